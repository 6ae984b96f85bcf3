package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/symphonia/tms-sync/internal/models"
)

const namespace = "tms_sync"

// Collector exposes Prometheus metrics for inbound HTTP requests and sync
// runs. It implements carriersync.RunObserver.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	runTotal       *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	recordsTotal   *prometheus.CounterVec
	runErrorsTotal *prometheus.CounterVec
}

// NewCollector constructs a collector with its own registry.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	runTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Total number of finished sync runs.",
	}, []string{"tms_type", "status"})

	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "run_duration_seconds",
		Help:      "Duration distribution for sync runs.",
		Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"tms_type"})

	recordsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "records_total",
		Help:      "Records processed by sync runs, by disposition.",
	}, []string{"tms_type", "disposition"})

	runErrorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "run_errors_total",
		Help:      "Record-level errors recorded during sync runs.",
	}, []string{"tms_type"})

	for _, c := range []prometheus.Collector{
		requestDuration, requestTotal,
		runTotal, runDuration, recordsTotal, runErrorsTotal,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:        registry,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		runTotal:        runTotal,
		runDuration:     runDuration,
		recordsTotal:    recordsTotal,
		runErrorsTotal:  runErrorsTotal,
	}, nil
}

// Handler returns an HTTP handler exposing the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// ObserveRun records the outcome of a finished sync run.
func (c *Collector) ObserveRun(run *models.SyncRun) {
	c.runTotal.WithLabelValues(run.TMSType, string(run.Status)).Inc()

	if run.FinishedAt != nil {
		c.runDuration.WithLabelValues(run.TMSType).Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
	}

	c.recordsTotal.WithLabelValues(run.TMSType, "created").Add(float64(run.RecordsCreated))
	c.recordsTotal.WithLabelValues(run.TMSType, "updated").Add(float64(run.RecordsUpdated))
	c.recordsTotal.WithLabelValues(run.TMSType, "filtered").Add(float64(run.RecordsFiltered))
	c.runErrorsTotal.WithLabelValues(run.TMSType).Add(float64(len(run.Errors)))
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
