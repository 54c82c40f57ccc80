package app

import (
	"fmt"
	"strings"

	"rms_sync/internal/coerce"
	"rms_sync/internal/domain"
	"rms_sync/internal/grid"
)

// Column roles for the booking export. The schema is a fixed wide
// contract but no column is ever dropped: headers not matched below pass
// through untouched.
type bookingRole int

const (
	roleText bookingRole = iota
	roleStamp
	roleDate
	roleMoney
	roleCount
)

var bookingStampCols = []string{"creation", "modification", "annulation"}
var bookingMoneyCols = []string{"montant", "tarif", "prix", "total", "revenu", "commission"}
var bookingCountCols = []string{"nuit", "adulte", "enfant", "chambre", "personne"}

func bookingColumnRole(name string) bookingRole {
	for _, k := range bookingStampCols {
		if strings.Contains(name, k) {
			return roleStamp
		}
	}
	if strings.Contains(name, "date") {
		return roleDate
	}
	for _, k := range bookingMoneyCols {
		if strings.Contains(name, k) {
			return roleMoney
		}
	}
	for _, k := range bookingCountCols {
		if strings.Contains(name, k) {
			return roleCount
		}
	}
	return roleText
}

// NormalizeBookings flattens a booking export into the reservations
// table. Stamp columns (creation / modification / cancellation) are
// split into independent date_* and heure_* fields; monetary columns
// accept either decimal convention; count columns are truncated to
// integers. Everything else passes through as-is.
func NormalizeBookings(wb domain.Workbook, hotelID int64) (domain.Output, error) {
	sheets := wb.Sheets()
	if len(sheets) == 0 {
		return domain.Output{}, fmt.Errorf("booking workbook has no sheets")
	}
	rows, err := wb.Rows(sheets[0])
	if err != nil {
		return domain.Output{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return domain.Output{}, fmt.Errorf("booking sheet %q is empty", sheets[0])
	}

	end := grid.LastColumn(rows[0], 0)
	type column struct {
		src  int
		name string
		role bookingRole
	}
	columns := make([]column, 0, end)
	for c := 0; c < end; c++ {
		name := coerce.SnakeCase(grid.Cell(rows, 0, c))
		if name == "" {
			// Same fallback the rate-shopper exports need: unnamed
			// headers become positional columns.
			name = fmt.Sprintf("col_%d", c)
		}
		columns = append(columns, column{src: c, name: name, role: bookingColumnRole(name)})
	}

	rs := domain.RowSet{Table: domain.TableReservations, Columns: []string{"hotel_id"}}
	for _, col := range columns {
		if col.role == roleStamp {
			rs.Columns = append(rs.Columns, "date_"+col.name, "heure_"+col.name)
			continue
		}
		rs.Columns = append(rs.Columns, col.name)
	}

	var stats domain.Stats
	for r := 1; r < len(rows); r++ {
		if grid.Empty(rows[r]) {
			stats.Skipped++
			continue
		}
		vals := []any{hotelID}
		for _, col := range columns {
			raw := grid.Cell(rows, r, col.src)
			switch col.role {
			case roleStamp:
				d, h := coerce.DateTime(raw)
				if raw != "" && d == nil {
					stats.Coerced++
				}
				vals = append(vals, d, h)
			case roleDate:
				d := coerce.Date(raw)
				if raw != "" && d == nil {
					stats.Coerced++
				}
				vals = append(vals, d)
			case roleMoney:
				n := coerce.Number(raw)
				if raw != "" && n == nil {
					stats.Coerced++
				}
				vals = append(vals, n)
			case roleCount:
				n := coerce.Int(raw)
				if raw != "" && n == nil {
					stats.Coerced++
				}
				vals = append(vals, n)
			default:
				vals = append(vals, textOrNil(raw))
			}
		}
		rs.Rows = append(rs.Rows, vals)
	}

	out := domain.Output{Stats: stats}
	if len(rs.Rows) > 0 {
		out.Sets = append(out.Sets, rs)
	}
	return out, nil
}
