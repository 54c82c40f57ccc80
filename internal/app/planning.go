package app

import (
	"fmt"
	"strings"

	"rms_sync/internal/coerce"
	"rms_sync/internal/domain"
	"rms_sync/internal/grid"
)

// Planning export layout: the date span sits on row 2 starting at column
// 3; data blocks start on row 4. Column 0 carries the room type (only on
// the first row of its block), column 1 the rate plan, column 2 the
// metric label.
const (
	planningDateRow  = 2
	planningDataRow  = 4
	planningDateCol  = 3
	planningRoomCol  = 0
	planningPlanCol  = 1
	planningLabelCol = 2
)

// NormalizePlanning unpivots the tariff/availability grid into one row
// per (room type, rate plan, date). The room type is carried down across
// its block until a new label appears.
func NormalizePlanning(wb domain.Workbook, hotelID int64) (domain.Output, error) {
	sheets := wb.Sheets()
	if len(sheets) == 0 {
		return domain.Output{}, fmt.Errorf("planning workbook has no sheets")
	}
	rows, err := wb.Rows(sheets[0])
	if err != nil {
		return domain.Output{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) <= planningDateRow {
		return domain.Output{}, fmt.Errorf("planning sheet %q has no date header row", sheets[0])
	}

	end := grid.LastColumn(rows[planningDateRow], planningDateCol)
	dates := make([]*string, end)
	for c := planningDateCol; c < end; c++ {
		dates[c] = coerce.Date(grid.Cell(rows, planningDateRow, c))
	}

	var (
		tarifs      []domain.PlanningTarif
		dispos      []domain.PlanningDispo
		stats       domain.Stats
		currentRoom string
	)
	for r := planningDataRow; r < len(rows); r++ {
		if room := grid.Cell(rows, r, planningRoomCol); room != "" {
			currentRoom = room
		}
		label := grid.Cell(rows, r, planningLabelCol)
		blank := grid.EmptySpan(rows, r, planningRoomCol, planningDateCol) &&
			grid.EmptySpan(rows, r, planningDateCol, end)
		if blank || currentRoom == "" || label == "" {
			stats.Skipped++
			continue
		}

		var plan *string
		if p := grid.Cell(rows, r, planningPlanCol); p != "" {
			plan = &p
		}
		avail := isAvailabilityLabel(label)

		for c := planningDateCol; c < end; c++ {
			d := dates[c]
			raw := grid.Cell(rows, r, c)
			if d == nil || raw == "" {
				continue
			}
			if avail {
				if strings.EqualFold(raw, "x") {
					// Closed to sale: availability forced to zero, the
					// marker itself kept as the flag value.
					closed := "x"
					dispos = append(dispos, domain.PlanningDispo{
						Date:           *d,
						TypeDeChambre:  currentRoom,
						PlanTarifaire:  plan,
						Disponibilites: 0,
						FermeALaVente:  &closed,
					})
					continue
				}
				if coerce.Number(raw) == nil {
					stats.Coerced++
				}
				dispos = append(dispos, domain.PlanningDispo{
					Date:           *d,
					TypeDeChambre:  currentRoom,
					PlanTarifaire:  plan,
					Disponibilites: coerce.NumberOrZero(raw),
				})
				continue
			}
			n := coerce.Number(raw)
			if n == nil {
				stats.Coerced++
				continue
			}
			tarifs = append(tarifs, domain.PlanningTarif{
				Date:          *d,
				TypeDeChambre: currentRoom,
				PlanTarifaire: plan,
				Tarif:         *n,
			})
		}
	}

	out := domain.Output{Stats: stats}
	if len(tarifs) > 0 {
		rs := domain.RowSet{
			Table:   domain.TablePlanningTarifs,
			Columns: []string{"hotel_id", "date", "type_de_chambre", "plan_tarifaire", "tarif"},
		}
		for _, t := range tarifs {
			rs.Rows = append(rs.Rows, []any{hotelID, t.Date, t.TypeDeChambre, t.PlanTarifaire, t.Tarif})
		}
		out.Sets = append(out.Sets, rs)
	}
	if len(dispos) > 0 {
		rs := domain.RowSet{
			Table:   domain.TablePlanningDispo,
			Columns: []string{"hotel_id", "date", "type_de_chambre", "plan_tarifaire", "disponibilites", "ferme_a_la_vente"},
		}
		for _, d := range dispos {
			rs.Rows = append(rs.Rows, []any{hotelID, d.Date, d.TypeDeChambre, d.PlanTarifaire, d.Disponibilites, d.FermeALaVente})
		}
		out.Sets = append(out.Sets, rs)
	}
	return out, nil
}

// isAvailabilityLabel matches the "left for sale" metric label, ignoring
// case and spacing; anything else on a labelled row is price-like.
func isAvailabilityLabel(label string) bool {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ") == "left for sale"
}
