// Package coerce turns arbitrary spreadsheet cell content into typed
// values. Source files mix native dates, Excel date serials, day-first
// French text dates and both decimal conventions; everything here
// returns nil instead of failing.
package coerce

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Excel counts days from 1899-12-30; the shifted epoch absorbs the
// fictitious 1900-02-29 the format carries around.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// serialFloor keeps small integers (counts, ids) from being read as
// dates. 10000 days past the epoch is mid-1927.
const serialFloor = 10000

var tzParis = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		return time.FixedZone("CET", 3600)
	}
	return loc
}()

// Day-first layouts first; ambiguous day/month order is always resolved
// day-first (the regional convention of the source data), never US-style.
var dateLayouts = []string{
	"02/01/2006",
	"02/01/06",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
	"2006-01-02",
}

var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02 15:04",
	"02-01-2006 15:04:05",
}

const (
	isoDate = "2006-01-02"
	isoTime = "15:04:05"
)

// Date normalizes any cell value to an ISO calendar date, or nil when it
// cannot be read as one.
func Date(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		s := t.Format(isoDate)
		return &s
	case float64:
		return serialDate(t)
	case int:
		return serialDate(float64(t))
	case int64:
		return serialDate(float64(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return serialDate(f)
		}
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				out := d.Format(isoDate)
				return &out
			}
		}
	}
	return nil
}

// DateTime splits a stamp cell into independently nullable date and time
// parts, time zero-padded HH:MM:SS.
func DateTime(v any) (*string, *string) {
	switch t := v.(type) {
	case time.Time:
		d, h := t.Format(isoDate), t.Format(isoTime)
		return &d, &h
	case float64:
		return serialDateTime(t)
	case int:
		return serialDateTime(float64(t))
	case int64:
		return serialDateTime(float64(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return serialDateTime(f)
		}
		for _, layout := range dateTimeLayouts {
			if dt, err := time.Parse(layout, s); err == nil {
				d, h := dt.Format(isoDate), dt.Format(isoTime)
				return &d, &h
			}
		}
	}
	return Date(v), nil
}

func serialDate(f float64) *string {
	if f < serialFloor || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	s := excelEpoch.AddDate(0, 0, int(f)).Format(isoDate)
	return &s
}

func serialDateTime(f float64) (*string, *string) {
	if f < serialFloor || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, nil
	}
	secs := math.Round((f - math.Floor(f)) * 86400)
	dt := excelEpoch.AddDate(0, 0, int(f)).Add(time.Duration(secs) * time.Second)
	d, h := dt.Format(isoDate), dt.Format(isoTime)
	return &d, &h
}

// "mis à jour le 16/01[/2026] 14:30"; year and time optional.
var updatedAtRe = regexp.MustCompile(`(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?(?:\s+(\d{1,2}):(\d{2}))?`)

// UpdatedAt extracts a "data as of" anchor from free text. The stamp is
// interpreted in the hotel's business time zone (Europe/Paris); a
// missing year falls back to fallbackYear.
func UpdatedAt(text string, fallbackYear int) *time.Time {
	m := updatedAtRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	year := fallbackYear
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
	}
	var hour, minute int
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
	}
	ts := time.Date(year, time.Month(month), day, hour, minute, 0, 0, tzParis)
	return &ts
}

var currencyRe = regexp.MustCompile(`[€$£¥%]`)

// Number normalizes a cell to a finite float, or nil. Mixed-locale
// separators are disambiguated by position: when both ',' and '.'
// appear, the later one is the decimal point and the earlier ones are
// thousands grouping.
func Number(v any) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return finite(t)
	case int:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		s = strings.NewReplacer("\u00a0", "", "\u202f", "", " ", "").Replace(s)
		s = currencyRe.ReplaceAllString(s, "")
		comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
		switch {
		case comma >= 0 && dot >= 0 && comma > dot:
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		case comma >= 0 && dot >= 0:
			s = strings.ReplaceAll(s, ",", "")
		case comma >= 0:
			s = strings.Replace(s, ",", ".", 1)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return finite(f)
	}
	return nil
}

// NumberOrZero is the forced-zero variant for target columns that cannot
// hold NULL.
func NumberOrZero(v any) float64 {
	if f := Number(v); f != nil {
		return *f
	}
	return 0
}

// Int truncates after numeric parsing; nil when the cell is not numeric.
func Int(v any) *int64 {
	f := Number(v)
	if f == nil {
		return nil
	}
	n := int64(*f)
	return &n
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

var (
	accentFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	spacesRe   = regexp.MustCompile(`[\s\-]+`)
	nonWordRe  = regexp.MustCompile(`[^a-zA-Z0-9_]`)
)

// SnakeCase turns a header into a storable column name: accents folded,
// whitespace collapsed to underscores, capped at 63 bytes (Postgres
// identifier limit, kept for portability).
func SnakeCase(s string) string {
	if folded, _, err := transform.String(accentFold, s); err == nil {
		s = folded
	}
	s = spacesRe.ReplaceAllString(s, "_")
	s = nonWordRe.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	if len(s) > 63 {
		s = s[:63]
	}
	return strings.Trim(s, "_")
}
