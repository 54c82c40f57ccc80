package domain

import "time"

type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// ImportRun is the audit record for one importer invocation. It is opened
// in `running` state and mutated exactly once more, to a terminal state.
type ImportRun struct {
	ID         int64
	UID        string
	Template   string
	SourceFile string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Error      *string
	Meta       RunMeta
}

// RunMeta is the metadata bag persisted with the closed run.
type RunMeta struct {
	RowsInserted int      `json:"rows_inserted"`
	RowsSkipped  int      `json:"rows_skipped"`
	RowsCoerced  int      `json:"rows_coerced"`
	RowErrors    int      `json:"row_errors"`
	ErrorRate    float64  `json:"error_rate"`
	Errors       []string `json:"errors,omitempty"`
}
