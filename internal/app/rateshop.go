package app

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"rms_sync/internal/coerce"
	"rms_sync/internal/domain"
	"rms_sync/internal/grid"
)

// Rate-shopper workbook sheet names, as exported by the tool. The
// overview sheet doubles as the reference sheet for the "last updated"
// anchor: cell A1 carries the stamp, the header sits on row 1.
const (
	sheetApercu = "Aperçu"
	sheetTarifs = "Tarifs"

	apercuAnchorRow = 0
	apercuHeaderRow = 1
	apercuDataRow   = 2
)

var versusSheets = []struct{ sheet, horizon string }{
	{"vs. Hier", "hier"},
	{"vs. 3 jours", "3_jours"},
	{"vs. 7 jours", "7_jours"},
}

// Footnote rows carry stay-length annotation codes or free-text notes;
// they are never data, even when they contain a parseable date.
var annotationRe = regexp.MustCompile(`(?i)\b(los\s*\d+|notes?|annotations?)\b`)

func annotationRow(row []string) bool {
	for _, v := range row {
		if annotationRe.MatchString(v) {
			return true
		}
	}
	return false
}

// NormalizeRateShop reads the five rate-shopper sheets that are present
// (overview, market rates, three comparison horizons). Competitor
// columns are not known ahead of time: every non-fixed header becomes a
// competitor label, persisted verbatim and collected for reference-data
// registration. fallbackYear completes "updated at" stamps whose year
// was omitted.
func NormalizeRateShop(wb domain.Workbook, hotelID int64, fallbackYear int) (domain.Output, error) {
	present := make(map[string]bool)
	for _, s := range wb.Sheets() {
		present[s] = true
	}

	st := &rateShopState{hotelID: hotelID, seen: make(map[string]bool)}

	if present[sheetApercu] {
		rows, err := wb.Rows(sheetApercu)
		if err != nil {
			return domain.Output{}, fmt.Errorf("read sheet %q: %w", sheetApercu, err)
		}
		if ts := updatedAnchor(rows, fallbackYear); ts != nil {
			s := ts.Format("2006-01-02 15:04:05")
			st.update = &s
		}
		if err := st.apercu(rows); err != nil {
			return domain.Output{}, err
		}
	}
	if present[sheetTarifs] {
		rows, err := wb.Rows(sheetTarifs)
		if err != nil {
			return domain.Output{}, fmt.Errorf("read sheet %q: %w", sheetTarifs, err)
		}
		if err := st.tarifs(rows); err != nil {
			return domain.Output{}, err
		}
	}
	for _, vs := range versusSheets {
		if !present[vs.sheet] {
			continue
		}
		rows, err := wb.Rows(vs.sheet)
		if err != nil {
			return domain.Output{}, fmt.Errorf("read sheet %q: %w", vs.sheet, err)
		}
		if err := st.versus(rows, vs.horizon); err != nil {
			return domain.Output{}, err
		}
	}

	if st.processed == 0 {
		return domain.Output{}, fmt.Errorf("workbook has none of the rate-shopper sheets")
	}
	return st.out, nil
}

type rateShopState struct {
	hotelID   int64
	update    *string
	out       domain.Output
	seen      map[string]bool
	processed int
}

func (st *rateShopState) competitor(name string) {
	if st.seen[name] {
		return
	}
	st.seen[name] = true
	st.out.Competitors = append(st.out.Competitors, name)
}

// updatedAnchor tries the fixed cell first, then label-scans the first
// five rows for a "mis à jour" stamp.
func updatedAnchor(rows [][]string, fallbackYear int) *time.Time {
	if v := grid.Cell(rows, apercuAnchorRow, 0); v != "" {
		if ts := coerce.UpdatedAt(v, fallbackYear); ts != nil {
			return ts
		}
	}
	for r := 0; r < 5 && r < len(rows); r++ {
		for c := range rows[r] {
			v := strings.ToLower(grid.Cell(rows, r, c))
			if strings.Contains(v, "mis à jour") || strings.Contains(v, "mise à jour") || strings.Contains(v, "last updated") {
				if ts := coerce.UpdatedAt(v, fallbackYear); ts != nil {
					return ts
				}
			}
		}
	}
	return nil
}

// apercu emits one row per date with every metric column null-on-failure.
func (st *rateShopState) apercu(rows [][]string) error {
	if len(rows) <= apercuHeaderRow {
		return fmt.Errorf("sheet %q has no header row", sheetApercu)
	}
	end := grid.LastColumn(rows[apercuHeaderRow], 0)
	names := make([]string, end)
	dateCol, jourCol := -1, -1
	for c := 0; c < end; c++ {
		names[c] = coerce.SnakeCase(grid.Cell(rows, apercuHeaderRow, c))
		switch names[c] {
		case "date":
			dateCol = c
		case "jour":
			jourCol = c
		}
	}
	if dateCol < 0 {
		return fmt.Errorf("sheet %q has no Date column", sheetApercu)
	}

	var metricCols []int
	cols := []string{"hotel_id", "jour", "date"}
	for c := 0; c < end; c++ {
		if c == dateCol || c == jourCol || names[c] == "" {
			continue
		}
		metricCols = append(metricCols, c)
		cols = append(cols, names[c])
	}
	cols = append(cols, "mise_a_jour")

	rs := domain.RowSet{Table: domain.TableOtaApercu, Columns: cols}
	for r := apercuDataRow; r < len(rows); r++ {
		if grid.Empty(rows[r]) || annotationRow(rows[r]) {
			st.out.Stats.Skipped++
			continue
		}
		d := coerce.Date(grid.Cell(rows, r, dateCol))
		if d == nil {
			st.out.Stats.Skipped++
			continue
		}
		vals := []any{st.hotelID, textOrNil(grid.Cell(rows, r, jourCol)), *d}
		for _, c := range metricCols {
			raw := grid.Cell(rows, r, c)
			if raw == "" {
				vals = append(vals, nil)
				continue
			}
			n := coerce.Number(raw)
			if n == nil {
				st.out.Stats.Coerced++
			}
			vals = append(vals, n)
		}
		vals = append(vals, st.update)
		rs.Rows = append(rs.Rows, vals)
	}
	st.appendSet(rs)
	st.processed++
	return nil
}

// tarifs handles the market-rate sheet: fixed lead columns (Jour, Date,
// Demande du marché) followed by N competitor columns. The price column
// cannot hold NULL, so a parse failure stores zero and keeps the
// verbatim text in raw_prix.
func (st *rateShopState) tarifs(rows [][]string) error {
	if len(rows) == 0 {
		return fmt.Errorf("sheet %q is empty", sheetTarifs)
	}
	end := grid.LastColumn(rows[0], 0)
	dateCol, jourCol, demandeCol := -1, -1, -1
	var compCols []int
	for c := 0; c < end; c++ {
		header := grid.Cell(rows, 0, c)
		if header == "" {
			continue
		}
		switch name := coerce.SnakeCase(header); {
		case name == "date":
			dateCol = c
		case name == "jour":
			jourCol = c
		case strings.HasPrefix(name, "demande"):
			demandeCol = c
		default:
			compCols = append(compCols, c)
		}
	}
	if dateCol < 0 {
		return fmt.Errorf("sheet %q has no Date column", sheetTarifs)
	}

	rsTarifs := domain.RowSet{
		Table:   domain.TableOtaTarifs,
		Columns: []string{"hotel_id", "jour", "date", "demande_du_marche", "mise_a_jour"},
	}
	rsConc := domain.RowSet{
		Table:   domain.TableOtaConcurrence,
		Columns: []string{"hotel_id", "date", "competitor_name", "prix", "raw_prix", "mise_a_jour"},
	}
	for r := 1; r < len(rows); r++ {
		if grid.Empty(rows[r]) || annotationRow(rows[r]) {
			st.out.Stats.Skipped++
			continue
		}
		d := coerce.Date(grid.Cell(rows, r, dateCol))
		if d == nil {
			st.out.Stats.Skipped++
			continue
		}

		var demande *float64
		if demandeCol >= 0 {
			if raw := grid.Cell(rows, r, demandeCol); raw != "" {
				demande = coerce.Number(raw)
				if demande == nil {
					st.out.Stats.Coerced++
				}
			}
		}
		rsTarifs.Rows = append(rsTarifs.Rows, []any{
			st.hotelID, textOrNil(grid.Cell(rows, r, jourCol)), *d, demande, st.update,
		})

		for _, c := range compCols {
			raw := grid.Cell(rows, r, c)
			if raw == "" {
				continue
			}
			name := grid.Cell(rows, 0, c)
			st.competitor(name)
			var prix float64
			if n := coerce.Number(raw); n != nil {
				prix = *n
			} else {
				st.out.Stats.Coerced++
			}
			rsConc.Rows = append(rsConc.Rows, []any{
				st.hotelID, *d, name, prix, raw, st.update,
			})
		}
	}
	st.appendSet(rsTarifs)
	st.appendSet(rsConc)
	st.processed++
	return nil
}

// versus handles one comparison-horizon sheet. The layout pairs each
// named competitor column with an immediately following blank-headed
// column holding its delta; the pair becomes one row with prix and ecart
// channels, both kept nullable here.
func (st *rateShopState) versus(rows [][]string, horizon string) error {
	if len(rows) == 0 {
		return fmt.Errorf("versus sheet (%s) is empty", horizon)
	}
	end := grid.LastColumn(rows[0], 0)
	dateCol := -1
	var namedCols []int
	for c := 0; c < end; c++ {
		header := grid.Cell(rows, 0, c)
		if header == "" {
			continue
		}
		switch name := coerce.SnakeCase(header); name {
		case "date":
			dateCol = c
		case "jour":
		default:
			namedCols = append(namedCols, c)
		}
	}
	if dateCol < 0 {
		return fmt.Errorf("versus sheet (%s) has no Date column", horizon)
	}

	rs := domain.RowSet{
		Table: domain.TableOtaComparaison,
		Columns: []string{
			"hotel_id", "horizon", "date", "competitor_name",
			"prix", "raw_prix", "ecart", "raw_ecart", "mise_a_jour",
		},
	}
	for r := 1; r < len(rows); r++ {
		if grid.Empty(rows[r]) || annotationRow(rows[r]) {
			st.out.Stats.Skipped++
			continue
		}
		d := coerce.Date(grid.Cell(rows, r, dateCol))
		if d == nil {
			st.out.Stats.Skipped++
			continue
		}
		for _, c := range namedCols {
			rawPrix := grid.Cell(rows, r, c)
			var rawEcart string
			if grid.Cell(rows, 0, c+1) == "" {
				rawEcart = grid.Cell(rows, r, c+1)
			}
			if rawPrix == "" && rawEcart == "" {
				continue
			}
			name := grid.Cell(rows, 0, c)
			st.competitor(name)

			var prix, ecart *float64
			if rawPrix != "" {
				if prix = coerce.Number(rawPrix); prix == nil {
					st.out.Stats.Coerced++
				}
			}
			if rawEcart != "" {
				if ecart = coerce.Number(rawEcart); ecart == nil {
					st.out.Stats.Coerced++
				}
			}
			rs.Rows = append(rs.Rows, []any{
				st.hotelID, horizon, *d, name,
				prix, textOrNil(rawPrix), ecart, textOrNil(rawEcart), st.update,
			})
		}
	}
	st.appendSet(rs)
	st.processed++
	return nil
}

func (st *rateShopState) appendSet(rs domain.RowSet) {
	if len(rs.Rows) > 0 {
		st.out.Sets = append(st.out.Sets, rs)
	}
}

func textOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
