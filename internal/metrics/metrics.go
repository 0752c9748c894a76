package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the analysis pipeline.
type Metrics struct {
	RunsTotal     *prometheus.CounterVec // labels: result=ok|failed
	RowsProcessed prometheus.Counter
	StageDur      *prometheus.HistogramVec // labels: stage

	// Recoverable degradations
	SmoothingFallbacks  prometheus.Counter
	ScenarioUnavailable *prometheus.CounterVec // labels: component
	SignalsTotal        *prometheus.CounterVec // labels: kind
	LastPosition        prometheus.Gauge

	// Data plumbing
	FetchDur           *prometheus.HistogramVec // labels: source
	FetchErrors        *prometheus.CounterVec   // labels: source
	BarsStored         prometheus.Counter
	PublishTotal       *prometheus.CounterVec // labels: result=ok|error|circuit_open
	RedisCircuitState  prometheus.Gauge       // 0=closed, 1=open, 2=half-open
	RedisCircuitTrips  prometheus.Counter
	NotificationsTotal *prometheus.CounterVec // labels: result
}

// NewMetrics registers and returns all Prometheus metrics on reg.
// A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analysis_runs_total",
			Help: "Analysis runs by result",
		}, []string{"result"}),
		RowsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analysis_rows_processed_total",
			Help: "Daily bars pushed through the pipeline",
		}),
		StageDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analysis_stage_duration_seconds",
			Help:    "Time spent per pipeline stage",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"stage"}),
		SmoothingFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analysis_smoothing_fallbacks_total",
			Help: "Runs where LOWESS failed and SMA(20) was used",
		}),
		ScenarioUnavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analysis_scenario_unavailable_total",
			Help: "Risk projections that could not be computed",
		}, []string{"component"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analysis_signals_total",
			Help: "Rows firing each signal kind",
		}, []string{"kind"}),
		LastPosition: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "analysis_last_position",
			Help: "Position on the most recent bar (-2..2)",
		}),
		FetchDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketdata_fetch_duration_seconds",
			Help:    "History fetch latency by source",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketdata_fetch_errors_total",
			Help: "Failed history fetches by source",
		}, []string{"source"}),
		BarsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "store_bars_written_total",
			Help: "Daily bars upserted into SQLite",
		}),
		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "publish_total",
			Help: "Redis summary publications by result",
		}, []string{"result"}),
		RedisCircuitState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "redis_circuit_breaker_state",
			Help: "Redis circuit breaker state: 0=closed, 1=open, 2=half-open",
		}),
		RedisCircuitTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker opened",
		}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Signal alerts sent by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RowsProcessed,
		m.StageDur,
		m.SmoothingFallbacks,
		m.ScenarioUnavailable,
		m.SignalsTotal,
		m.LastPosition,
		m.FetchDur,
		m.FetchErrors,
		m.BarsStored,
		m.PublishTotal,
		m.RedisCircuitState,
		m.RedisCircuitTrips,
		m.NotificationsTotal,
	)

	return m
}

// ObserveStage records how long stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDur.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// HealthStatus represents the state of the last run and its dependencies.
type HealthStatus struct {
	mu sync.RWMutex

	Source         string    `json:"source"`
	SourceOK       bool      `json:"source_ok"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	LastRunID      string    `json:"last_run_id"`
	LastRunAt      time.Time `json:"last_run_at"`
	Degraded       bool      `json:"degraded"`

	// Liveness probe results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus(source string) *HealthStatus {
	return &HealthStatus{
		Source:    source,
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetSourceOK(v bool) {
	h.mu.Lock()
	h.SourceOK = v
	h.mu.Unlock()
}

// RecordRun stores the outcome of a finished run.
func (h *HealthStatus) RecordRun(runID string, at time.Time, degraded bool) {
	h.mu.Lock()
	h.LastRunID = runID
	h.LastRunAt = at
	h.Degraded = degraded
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	switch {
	case !h.SourceOK:
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	case h.Degraded:
		overallStatus = "degraded"
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		Source          string  `json:"source"`
		SourceOK        bool    `json:"source_ok"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastRunID       string  `json:"last_run_id"`
		LastRunAt       string  `json:"last_run_at"`
		Degraded        bool    `json:"degraded"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		Source:          h.Source,
		SourceOK:        h.SourceOK,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastRunID:       h.LastRunID,
		Degraded:        h.Degraded,
	}
	if !h.LastRunAt.IsZero() {
		status.LastRunAt = h.LastRunAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server. gatherer defaults to the
// global registry when nil.
func NewServer(addr string, health *HealthStatus, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("metrics server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
