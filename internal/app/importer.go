package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"rms_sync/internal/adapters/observability"
	"rms_sync/internal/domain"
)

// ErrUnknownTemplate is a configuration error: the run is recorded as
// failed before it is returned to the caller.
var ErrUnknownTemplate = errors.New("unknown template")

const (
	defaultBatchSize    = 500
	defaultErrorRateMax = 0.05
)

// Config tunes the orchestrator. Zero values fall back to the documented
// defaults (batch 500, error-rate threshold 0.05, no rate limit).
type Config struct {
	BatchSize    int
	ErrorRateMax float64
	BatchRate    float64 // batch inserts per second; 0 disables limiting
}

// Job is one import invocation: one file, one run.
type Job struct {
	File      string
	Template  string
	HotelCode string
	HotelName string
}

// Summary is the process-exit-worthy outcome printed once per run.
type Summary struct {
	Status       string  `json:"status"`
	RowsInserted int     `json:"rows_inserted"`
	RowsSkipped  int     `json:"rows_skipped"`
	RowsCoerced  int     `json:"rows_coerced"`
	RowErrors    int     `json:"row_errors"`
	ErrorRate    float64 `json:"error_rate"`
}

// ImportService sequences hotel resolution, normalization, batched
// persistence and the error-rate-gated terminal run status.
type ImportService struct {
	repo         domain.ImportRepository
	cache        domain.Cache
	open         domain.WorkbookOpener
	batchSize    int
	errorRateMax float64
	limiter      *rate.Limiter
}

func NewImportService(repo domain.ImportRepository, cache domain.Cache, open domain.WorkbookOpener, cfg Config) *ImportService {
	s := &ImportService{
		repo:         repo,
		cache:        cache,
		open:         open,
		batchSize:    cfg.BatchSize,
		errorRateMax: cfg.ErrorRateMax,
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.errorRateMax <= 0 {
		s.errorRateMax = defaultErrorRateMax
	}
	if cfg.BatchRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.BatchRate), 1)
	}
	return s
}

// Run executes one import. The run record is opened before any data
// work and closed exactly once on every exit path; a fatal error forces
// the terminal status to failed and is returned so the process can exit
// non-zero.
func (s *ImportService) Run(ctx context.Context, job Job) (Summary, error) {
	hotelID, err := s.resolveHotel(ctx, job)
	if err != nil {
		// No run record exists yet to blame; this is fatal on its own.
		return Summary{Status: string(domain.RunFailed)}, fmt.Errorf("resolve hotel %q: %w", job.HotelCode, err)
	}

	run := domain.ImportRun{
		UID:        uuid.NewString(),
		Template:   job.Template,
		SourceFile: filepath.Base(job.File),
		Status:     domain.RunRunning,
		StartedAt:  time.Now().UTC(),
	}
	runID, err := s.repo.OpenRun(ctx, run)
	if err != nil {
		return Summary{Status: string(domain.RunFailed)}, fmt.Errorf("open run: %w", err)
	}

	logger := log.With().
		Str("run_uid", run.UID).
		Str("template", job.Template).
		Str("file", run.SourceFile).
		Int64("hotel_id", hotelID).
		Logger()
	logger.Info().Msg("run started")

	meta, runErr := s.execute(ctx, job, hotelID, run.StartedAt)

	status := domain.RunSuccess
	var errMsg *string
	switch {
	case runErr != nil:
		status = domain.RunFailed
		msg := runErr.Error()
		errMsg = &msg
	case meta.ErrorRate > s.errorRateMax:
		// Tolerance policy: partial batch failures only flip the run
		// when the aggregate rate crosses the threshold.
		status = domain.RunFailed
		fallthrough
	default:
		if len(meta.Errors) > 0 {
			joined := strings.Join(meta.Errors, "; ")
			errMsg = &joined
		}
	}

	if err := s.repo.CloseRun(ctx, runID, status, errMsg, meta); err != nil {
		logger.Error().Err(err).Msg("close run failed")
		if runErr == nil {
			runErr = fmt.Errorf("close run: %w", err)
			status = domain.RunFailed
		}
	}
	observability.ObserveRun(job.Template, string(status))

	sum := Summary{
		Status:       string(status),
		RowsInserted: meta.RowsInserted,
		RowsSkipped:  meta.RowsSkipped,
		RowsCoerced:  meta.RowsCoerced,
		RowErrors:    meta.RowErrors,
		ErrorRate:    meta.ErrorRate,
	}
	logger.Info().
		Str("status", sum.Status).
		Int("rows_inserted", sum.RowsInserted).
		Int("rows_skipped", sum.RowsSkipped).
		Int("rows_coerced", sum.RowsCoerced).
		Int("row_errors", sum.RowErrors).
		Float64("error_rate", sum.ErrorRate).
		Msg("run finished")
	return sum, runErr
}

// execute does steps 3-6: normalize, batch-insert, register competitor
// labels, aggregate the error rate. Batch failures are recorded in the
// metadata bag and never unwind; anything returned as error is fatal.
func (s *ImportService) execute(ctx context.Context, job Job, hotelID int64, startedAt time.Time) (domain.RunMeta, error) {
	var meta domain.RunMeta

	wb, err := s.open(job.File)
	if err != nil {
		return meta, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	out, err := s.normalize(wb, job, hotelID, startedAt)
	if err != nil {
		return meta, err
	}
	meta.RowsSkipped = out.Stats.Skipped
	meta.RowsCoerced = out.Stats.Coerced

	for _, set := range out.Sets {
		for start := 0; start < len(set.Rows); start += s.batchSize {
			end := start + s.batchSize
			if end > len(set.Rows) {
				end = len(set.Rows)
			}
			if s.limiter != nil {
				if err := s.limiter.Wait(ctx); err != nil {
					return meta, err
				}
			}
			batch := set.Rows[start:end]
			began := time.Now()
			err := s.repo.InsertRows(ctx, set.Table, set.Columns, batch)
			observability.ObserveBatch(set.Table, err, time.Since(began))
			if err != nil {
				meta.RowErrors += len(batch)
				meta.Errors = append(meta.Errors,
					fmt.Sprintf("%s batch %d: %v", set.Table, start/s.batchSize+1, err))
				log.Warn().Err(err).Str("table", set.Table).Int("rows", len(batch)).Msg("batch insert failed")
				continue
			}
			meta.RowsInserted += len(batch)
			observability.ObserveRows(set.Table, len(batch))
		}
	}

	if len(out.Competitors) > 0 {
		if err := s.registerCompetitors(ctx, hotelID, out.Competitors); err != nil {
			return meta, fmt.Errorf("register competitors: %w", err)
		}
	}

	if total := meta.RowsInserted + meta.RowErrors; total > 0 {
		meta.ErrorRate = float64(meta.RowErrors) / float64(total)
	}
	return meta, nil
}

// normalize dispatches by template name into exactly one report-family
// transform.
func (s *ImportService) normalize(wb domain.Workbook, job Job, hotelID int64, startedAt time.Time) (domain.Output, error) {
	switch job.Template {
	case domain.TemplatePlanning:
		return NormalizePlanning(wb, hotelID)
	case domain.TemplateRateShop:
		return NormalizeRateShop(wb, hotelID, startedAt.Year())
	case domain.TemplateBookings:
		return NormalizeBookings(wb, hotelID)
	case domain.TemplateEvents:
		return NormalizeEvents(wb, hotelID)
	default:
		return domain.Output{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, job.Template)
	}
}

// resolveHotel upserts the hotel reference by business code, memoizing
// the id in the optional cache. The upsert is idempotent, so racing
// invocations converge on the same row.
func (s *ImportService) resolveHotel(ctx context.Context, job Job) (int64, error) {
	key := "hotel:" + job.HotelCode
	if s.cache != nil {
		var id int64
		if ok, _ := s.cache.Get(ctx, key, &id); ok && id != 0 {
			return id, nil
		}
	}
	var nom *string
	if job.HotelName != "" {
		nom = &job.HotelName
	}
	id, err := s.repo.UpsertHotel(ctx, job.HotelCode, nom)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, id, 0)
	}
	return id, nil
}

// registerCompetitors upserts the discovered label set, skipping labels
// the cache already knows for this hotel.
func (s *ImportService) registerCompetitors(ctx context.Context, hotelID int64, names []string) error {
	key := fmt.Sprintf("competitors:%d:%s", hotelID, domain.SourceOTA)

	known := make(map[string]bool)
	if s.cache != nil {
		var cached []string
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			for _, n := range cached {
				known[n] = true
			}
		}
	}
	fresh := names[:0:0]
	for _, n := range names {
		if !known[n] {
			fresh = append(fresh, n)
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	if err := s.repo.UpsertCompetitors(ctx, hotelID, domain.SourceOTA, fresh); err != nil {
		return err
	}
	if s.cache != nil {
		all := make([]string, 0, len(known)+len(fresh))
		for n := range known {
			all = append(all, n)
		}
		all = append(all, fresh...)
		_ = s.cache.Set(ctx, key, all, 0)
	}
	return nil
}
