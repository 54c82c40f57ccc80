package domain

import "context"

// ImportRepository is the persistence capability the orchestrator runs
// against. Upserts are idempotent; InsertRows is one atomic batch.
type ImportRepository interface {
	UpsertHotel(ctx context.Context, code string, nom *string) (int64, error)
	OpenRun(ctx context.Context, run ImportRun) (int64, error)
	CloseRun(ctx context.Context, id int64, status RunStatus, errMsg *string, meta RunMeta) error
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) error
	UpsertCompetitors(ctx context.Context, hotelID int64, source string, names []string) error
}

// Workbook is the reader capability over one spreadsheet file. Rows
// returns the raw rectangular grid of a sheet: date cells surface as
// serial strings so value coercion owns their interpretation.
type Workbook interface {
	Sheets() []string
	Rows(sheet string) ([][]string, error)
	Close() error
}

// WorkbookOpener opens a workbook by path.
type WorkbookOpener func(path string) (Workbook, error)

// Cache is an optional lookup cache (hotel ids, known competitor
// labels). A nil Cache is tolerated everywhere.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
