package domain

// Template selectors, one per supported report family.
const (
	TemplatePlanning = "dedge_planning"
	TemplateRateShop = "ota_insight"
	TemplateBookings = "dedge_reservations"
	TemplateEvents   = "salons_evenements"
)

// Target tables. The schema itself is assumed given; the importer only
// knows table and column names.
const (
	TablePlanningTarifs = "planning_tarifs"
	TablePlanningDispo  = "planning_disponibilites"
	TableOtaApercu      = "ota_apercu"
	TableOtaTarifs      = "ota_tarifs"
	TableOtaConcurrence = "ota_tarifs_concurrence"
	TableOtaComparaison = "ota_comparaisons"
	TableReservations   = "reservations"
	TableEvenements     = "salons_evenements"
)

// SourceOTA labels competitor names discovered in rate-shopper workbooks.
const SourceOTA = "ota_insight"

// RowSet is one insert-ready collection: a target table, its column list
// (fixed contract or discovered from headers) and positional values.
type RowSet struct {
	Table   string
	Columns []string
	Rows    [][]any
}

// Stats counts row-level data-quality outcomes of a normalizer call.
// Skipped rows never reach any RowSet; coerced values were replaced by a
// default (nil or zero) after failing strict parsing.
type Stats struct {
	Skipped int
	Coerced int
}

// Output is what a normalizer hands back to the orchestrator.
type Output struct {
	Sets        []RowSet
	Competitors []string
	Stats       Stats
}

// Fixed-shape rows, one set per report family.

type PlanningTarif struct {
	Date          string
	TypeDeChambre string
	PlanTarifaire *string
	Tarif         float64
}

type PlanningDispo struct {
	Date           string
	TypeDeChambre  string
	PlanTarifaire  *string
	Disponibilites float64
	FermeALaVente  *string
}

type Evenement struct {
	Nom            *string
	DateDebut      *string
	DateFin        *string
	IndiceImpact   *float64
	Multiplicateur *float64
}
