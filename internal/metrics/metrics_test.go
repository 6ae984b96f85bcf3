package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/symphonia/tms-sync/internal/models"
)

func TestCollectorRecordsHTTPMetrics(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	handlerInvoked := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerInvoked = true
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})

	instrumented := collector.InstrumentHandler(handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()

	instrumented.ServeHTTP(rr, req)

	if !handlerInvoked {
		t.Fatal("expected handler to be invoked")
	}
	if rr.Code != http.StatusAccepted {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}

	body := scrape(t, collector)
	if !strings.Contains(body, `tms_sync_http_requests_total{method="GET",path="/test",status="202"} 1`) {
		t.Fatalf("requests_total metric not recorded, body=%q", body)
	}
	if !strings.Contains(body, `tms_sync_http_request_duration_seconds_count{method="GET",path="/test",status="202"} 1`) {
		t.Fatalf("request_duration_seconds_count metric not recorded, body=%q", body)
	}
}

func TestCollectorObservesRuns(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	started := time.Now().Add(-2 * time.Second)
	finished := time.Now()
	collector.ObserveRun(&models.SyncRun{
		ID:              "run-1",
		TMSType:         "dashdoc",
		Status:          models.SyncRunStatusCompleted,
		StartedAt:       started,
		FinishedAt:      &finished,
		RecordsCreated:  3,
		RecordsUpdated:  2,
		RecordsFiltered: 1,
		Errors:          []models.SyncError{{Message: "boom"}},
	})

	body := scrape(t, collector)
	checks := []string{
		`tms_sync_sync_runs_total{status="completed",tms_type="dashdoc"} 1`,
		`tms_sync_sync_records_total{disposition="created",tms_type="dashdoc"} 3`,
		`tms_sync_sync_records_total{disposition="updated",tms_type="dashdoc"} 2`,
		`tms_sync_sync_records_total{disposition="filtered",tms_type="dashdoc"} 1`,
		`tms_sync_sync_run_errors_total{tms_type="dashdoc"} 1`,
		`tms_sync_sync_run_duration_seconds_count{tms_type="dashdoc"} 1`,
	}
	for _, want := range checks {
		if !strings.Contains(body, want) {
			t.Errorf("metric %q not found in scrape output", want)
		}
	}
}

func scrape(t *testing.T, collector *Collector) string {
	t.Helper()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics handler to return 200, got %d", rr.Code)
	}
	return rr.Body.String()
}
