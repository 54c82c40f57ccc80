package app

import (
	"fmt"
	"strings"

	"rms_sync/internal/coerce"
	"rms_sync/internal/domain"
	"rms_sync/internal/grid"
)

// NormalizeEvents reads the trade-show / events calendar: a fixed
// schema with two independently normalized dates and two numeric fields
// (impact index, multiplier). A non-blank numeric that fails to parse
// goes null and counts as coerced.
func NormalizeEvents(wb domain.Workbook, hotelID int64) (domain.Output, error) {
	sheets := wb.Sheets()
	if len(sheets) == 0 {
		return domain.Output{}, fmt.Errorf("events workbook has no sheets")
	}
	rows, err := wb.Rows(sheets[0])
	if err != nil {
		return domain.Output{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return domain.Output{}, fmt.Errorf("events sheet %q is empty", sheets[0])
	}

	end := grid.LastColumn(rows[0], 0)
	nomCol, debutCol, finCol, impactCol, multCol := -1, -1, -1, -1, -1
	for c := 0; c < end; c++ {
		name := coerce.SnakeCase(grid.Cell(rows, 0, c))
		switch {
		case name == "nom" || strings.Contains(name, "evenement") || strings.Contains(name, "salon"):
			nomCol = c
		case strings.Contains(name, "debut"):
			debutCol = c
		case strings.Contains(name, "fin"):
			finCol = c
		case strings.Contains(name, "impact"):
			impactCol = c
		case strings.Contains(name, "multiplicateur"):
			multCol = c
		}
	}
	if debutCol < 0 {
		return domain.Output{}, fmt.Errorf("events sheet %q has no start date column", sheets[0])
	}

	var (
		events []domain.Evenement
		stats  domain.Stats
	)
	for r := 1; r < len(rows); r++ {
		if grid.Empty(rows[r]) {
			stats.Skipped++
			continue
		}
		ev := domain.Evenement{
			DateDebut: coerce.Date(grid.Cell(rows, r, debutCol)),
		}
		if nomCol >= 0 {
			if v := grid.Cell(rows, r, nomCol); v != "" {
				ev.Nom = &v
			}
		}
		if finCol >= 0 {
			ev.DateFin = coerce.Date(grid.Cell(rows, r, finCol))
		}
		if impactCol >= 0 {
			raw := grid.Cell(rows, r, impactCol)
			if ev.IndiceImpact = coerce.Number(raw); raw != "" && ev.IndiceImpact == nil {
				stats.Coerced++
			}
		}
		if multCol >= 0 {
			raw := grid.Cell(rows, r, multCol)
			if ev.Multiplicateur = coerce.Number(raw); raw != "" && ev.Multiplicateur == nil {
				stats.Coerced++
			}
		}
		events = append(events, ev)
	}

	out := domain.Output{Stats: stats}
	if len(events) > 0 {
		rs := domain.RowSet{
			Table:   domain.TableEvenements,
			Columns: []string{"hotel_id", "nom", "date_debut", "date_fin", "indice_impact", "multiplicateur"},
		}
		for _, ev := range events {
			rs.Rows = append(rs.Rows, []any{hotelID, ev.Nom, ev.DateDebut, ev.DateFin, ev.IndiceImpact, ev.Multiplicateur})
		}
		out.Sets = append(out.Sets, rs)
	}
	return out, nil
}
