package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	RowsInserted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rms", Name: "rows_inserted_total", Help: "Rows persisted per table."},
		[]string{"table"},
	)
	BatchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rms", Name: "batch_failures_total", Help: "Failed batch inserts per table."},
		[]string{"table"},
	)
	BatchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rms", Name: "batch_insert_duration_seconds",
			Help:    "Batch insert duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table"},
	)
	Runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rms", Name: "import_runs_total", Help: "Import runs per template and terminal status."},
		[]string{"template", "status"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rms", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
)

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(RowsInserted, BatchFailures, BatchLatency, Runs, CacheEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics and /healthz on addr; empty addr disables it.
func Serve(addr string) {
	if addr == "" {
		return // disabled
	}
	r := chi.NewRouter()
	r.Handle("/metrics", MetricsHandler(InitRegistry()))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func ObserveBatch(table string, err error, dur time.Duration) {
	BatchLatency.WithLabelValues(table).Observe(dur.Seconds())
	if err != nil {
		BatchFailures.WithLabelValues(table).Inc()
	}
}

func ObserveRows(table string, n int) {
	RowsInserted.WithLabelValues(table).Add(float64(n))
}

func ObserveRun(template, status string) {
	Runs.WithLabelValues(template, status).Inc()
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}
