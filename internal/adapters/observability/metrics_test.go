package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rms_sync/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record one sample so counters are non-zero
	observability.ObserveRows("planning_tarifs", 500)
	observability.ObserveBatch("planning_tarifs", nil, 12*time.Millisecond)
	observability.ObserveRun("dedge_planning", "success")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	if !strings.Contains(out, "rms_rows_inserted_total") {
		t.Fatalf("expected rms_rows_inserted_total in output")
	}
	if !strings.Contains(out, "rms_import_runs_total") {
		t.Fatalf("expected rms_import_runs_total in output")
	}
}
