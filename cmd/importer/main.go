package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"rms_sync/internal/adapters/observability"
	redisad "rms_sync/internal/adapters/redis"
	"rms_sync/internal/adapters/xlsx"
	"rms_sync/internal/app"
	"rms_sync/internal/domain"
	"rms_sync/internal/shared"
	mysqlrepo "rms_sync/internal/storage/mysql"
)

var (
	flagTemplate  string
	flagHotelCode string
	flagHotelName string
)

func main() {
	root := &cobra.Command{
		Use:   "importer [flags] FILE...",
		Short: "Import revenue-management spreadsheets into MySQL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVar(&flagTemplate, "template", "", "report template (dedge_planning, ota_insight, dedge_reservations, salons_evenements)")
	root.Flags().StringVar(&flagHotelCode, "hotel-code", "", "business code of the hotel the files belong to")
	root.Flags().StringVar(&flagHotelName, "hotel-name", "", "display name recorded on first sight of the hotel")
	_ = root.MarkFlagRequired("template")
	_ = root.MarkFlagRequired("hotel-code")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, files []string) error {
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)
	observability.Serve(cfg.MetricsAddr)

	log.Info().
		Str("template", flagTemplate).
		Str("hotel_code", flagHotelCode).
		Int("files", len(files)).
		Int("workers", cfg.Workers).
		Msg("importer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return fmt.Errorf("sql.Open: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.CacheTTL)
		defer rc.Close()
		cache = rc
	}

	svc := app.NewImportService(mysqlrepo.New(db), cache, xlsx.Open, app.Config{
		BatchSize:    cfg.BatchSize,
		ErrorRateMax: cfg.ErrorRateMax,
		BatchRate:    cfg.BatchRate,
	})

	sem := semaphore.NewWeighted(int64(max(cfg.Workers, 1)))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	enc := json.NewEncoder(os.Stdout)
	for _, f := range files {
		if err := sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("semaphore acquire: %w", err)
		}
		wg.Add(1)
		go func(file string) {
			defer wg.Done()
			defer sem.Release(1)

			sum, err := svc.Run(ctx, app.Job{
				File:      file,
				Template:  flagTemplate,
				HotelCode: flagHotelCode,
				HotelName: flagHotelName,
			})

			mu.Lock()
			defer mu.Unlock()
			_ = enc.Encode(struct {
				File string `json:"file"`
				app.Summary
			}{File: file, Summary: sum})
			if err != nil {
				log.Error().Str("file", file).Err(err).Msg("import failed")
				if firstErr == nil {
					firstErr = fmt.Errorf("import %s: %w", file, err)
				}
			}
		}(f)
	}
	wg.Wait()

	return firstErr
}
