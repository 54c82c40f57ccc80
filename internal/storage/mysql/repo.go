package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"rms_sync/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertHotel(ctx context.Context, code string, nom *string) (int64, error) {
	res, err := r.db.ExecContext(ctx, upsertHotelSQL, code, nom)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) OpenRun(ctx context.Context, run domain.ImportRun) (int64, error) {
	res, err := r.db.ExecContext(ctx, openRunSQL,
		run.UID,
		run.Template,
		run.SourceFile,
		string(run.Status),
		run.StartedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *Repo) CloseRun(ctx context.Context, id int64, status domain.RunStatus, errMsg *string, meta domain.RunMeta) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal run metadata: %w", err)
	}
	res, err := r.db.ExecContext(ctx, closeRunSQL,
		string(status),
		time.Now().UTC(),
		errMsg,
		string(b),
		id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %d is not open", id)
	}
	return nil
}

// InsertRows writes one batch as a single multi-row statement, the same
// shape as a bulk review insert. The batch is its own atomic unit: no
// transaction spans batches.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if len(columns) == 0 {
		return fmt.Errorf("insert into %s: no columns", table)
	}

	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = quoteIdent(c)
	}
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"

	values := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("insert into %s: row %d has %d values, want %d", table, i, len(row), len(columns))
		}
		values = append(values, placeholder)
		args = append(args, row...)
	}

	sqlStr := "INSERT INTO " + quoteIdent(table) + " (" + strings.Join(cols, ", ") + ")\nVALUES " + strings.Join(values, ",")
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *Repo) UpsertCompetitors(ctx context.Context, hotelID int64, source string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	values := make([]string, 0, len(names))
	args := make([]any, 0, len(names)*3)
	for _, n := range names {
		values = append(values, "(?,?,?)")
		args = append(args, hotelID, source, n)
	}
	sqlStr := upsertCompetitorsPrefix + strings.Join(values, ",") + upsertCompetitorsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// Table and column names come from code constants or snake-cased
// headers; quoting plus backtick stripping keeps them inert either way.
func quoteIdent(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "") + "`"
}
