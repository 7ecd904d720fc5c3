package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/cors"

	"github.com/solrush/rush/pkg/trigger"
	ammtypes "github.com/solrush/rush/x/amm/types"
	dcatypes "github.com/solrush/rush/x/dca/types"
	orderbooktypes "github.com/solrush/rush/x/orderbook/types"
)

var (
	startTime = time.Now()

	healthCheckTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rush_health_check_total",
			Help: "Total number of health check requests",
		},
		[]string{"endpoint", "status"},
	)

	healthCheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rush_health_check_duration_seconds",
			Help:    "Health check request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"endpoint"},
	)

	serviceHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rush_service_healthy",
			Help: "1 if the check passes, 0.5 if degraded, 0 if failing",
		},
		[]string{"check"},
	)
)

// EngineHealthChecker is the part of the engine the health server reads.
type EngineHealthChecker interface {
	Height() int64
	AssertInvariants(ctx context.Context) error
	Pools(ctx context.Context) ([]ammtypes.Pool, error)
	AllOpenLimitOrders(ctx context.Context) ([]*orderbooktypes.LimitOrder, error)
	DueDCAOrders(ctx context.Context) ([]*dcatypes.DCAOrder, error)
}

// SweepTracker remembers the last keeper sweep.
type SweepTracker struct {
	mu       sync.RWMutex
	last     trigger.Report
	lastAt   time.Time
	interval time.Duration
}

func NewSweepTracker(interval time.Duration) *SweepTracker {
	return &SweepTracker{interval: interval}
}

func (t *SweepTracker) Record(report trigger.Report) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = report
	t.lastAt = time.Now()
}

func (t *SweepTracker) Last() (trigger.Report, time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last, t.lastAt
}

// stale reports whether no sweep finished within three intervals.
func (t *SweepTracker) stale(now time.Time) bool {
	_, at := t.Last()
	if at.IsZero() {
		return now.Sub(startTime) > 3*t.interval
	}
	return now.Sub(at) > 3*t.interval
}

// TelemetryChecker reports whether the span and metric exporters are up.
type TelemetryChecker interface {
	HealthCheck() error
}

// HealthCheck represents the health check server
type HealthCheck struct {
	server    *http.Server
	engine    EngineHealthChecker
	sweeps    *SweepTracker
	telemetry TelemetryChecker
	cache     *healthCache
}

// healthCache caches detailed results; the invariant check blocks every
// engine operation while it runs.
type healthCache struct {
	mu          sync.RWMutex
	result      *DetailedHealthResponse
	lastChecked time.Time
	ttl         time.Duration
}

func newHealthCache(ttl time.Duration) *healthCache {
	return &healthCache{ttl: ttl}
}

func (c *healthCache) get() (*DetailedHealthResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.result == nil || time.Since(c.lastChecked) > c.ttl {
		return nil, false
	}
	return c.result, true
}

func (c *healthCache) set(result *DetailedHealthResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.result = result
	c.lastChecked = time.Now()
}

// BasicHealthResponse is the response for /health
type BasicHealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse is the response for /health/ready
type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// DetailedHealthResponse is the response for /health/detailed
type DetailedHealthResponse struct {
	Status        string                  `json:"status"`
	UptimeSeconds int64                   `json:"uptime_seconds"`
	Version       string                  `json:"version"`
	Checks        map[string]CheckResult  `json:"checks"`
	Modules       map[string]ModuleHealth `json:"modules"`
	System        SystemHealth            `json:"system"`
	LastSweep     *trigger.Report         `json:"last_sweep,omitempty"`
}

// CheckResult represents a single health check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type ModuleHealth struct {
	Status  string         `json:"status"`
	Metrics map[string]int `json:"metrics,omitempty"`
}

type SystemHealth struct {
	MemoryMB   uint64 `json:"memory_mb"`
	Goroutines int    `json:"goroutines"`
	Height     int64  `json:"height"`
}

// NewHealthCheck builds the handler set without starting a listener.
func NewHealthCheck(engine EngineHealthChecker, sweeps *SweepTracker) *HealthCheck {
	return &HealthCheck{
		engine: engine,
		sweeps: sweeps,
		cache:  newHealthCache(5 * time.Second),
	}
}

// WithTelemetry adds the exporter check to /health/detailed.
func (hc *HealthCheck) WithTelemetry(tel TelemetryChecker) *HealthCheck {
	hc.telemetry = tel
	return hc
}

// Handler serves the health endpoints. Dashboards poll them cross-origin, so
// GET is allowed from any origin.
func (hc *HealthCheck) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/health", hc.withHealthMetrics("health", hc.handleBasicHealth)).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", hc.withHealthMetrics("ready", hc.handleReadiness)).Methods(http.MethodGet)
	router.HandleFunc("/health/detailed", hc.withHealthMetrics("detailed", hc.handleDetailed)).Methods(http.MethodGet)
	return withMiddleware(router)
}

// withMiddleware recovers handler panics and answers CORS preflights.
func withMiddleware(h http.Handler) http.Handler {
	recovered := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler(recovered)
}

// StartHealthCheckServer starts the health check HTTP server
func StartHealthCheckServer(port int, engine EngineHealthChecker, sweeps *SweepTracker, tel TelemetryChecker) *HealthCheck {
	hc := NewHealthCheck(engine, sweeps).WithTelemetry(tel)
	hc.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           hc.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		if err := hc.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "health check server error: %v\n", err)
		}
	}()

	return hc
}

// withHealthMetrics wraps health check handlers with metrics
func (hc *HealthCheck) withHealthMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(rw, r)

		healthCheckTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", rw.statusCode)).Inc()
		healthCheckDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleBasicHealth handles GET /health - always returns 200 if process is alive
func (hc *HealthCheck) handleBasicHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, BasicHealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// handleReadiness handles GET /health/ready. The engine is ready when its
// stores answer reads; a stalled keeper loop only degrades it.
func (hc *HealthCheck) handleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]CheckResult)
	ready := true

	if _, err := hc.engine.Pools(r.Context()); err != nil {
		checks["store"] = CheckResult{Status: "unhealthy", Message: err.Error()}
		serviceHealthy.WithLabelValues("store").Set(0)
		ready = false
	} else {
		checks["store"] = CheckResult{Status: "ok"}
		serviceHealthy.WithLabelValues("store").Set(1)
	}

	checks["keeper"] = hc.keeperCheck()

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	writeJSON(w, code, ReadinessResponse{Status: status, Checks: checks})
}

func (hc *HealthCheck) keeperCheck() CheckResult {
	if hc.sweeps == nil {
		return CheckResult{Status: "disabled"}
	}
	if hc.sweeps.stale(time.Now()) {
		serviceHealthy.WithLabelValues("keeper").Set(0.5)
		return CheckResult{Status: "degraded", Message: "no recent keeper sweep"}
	}
	serviceHealthy.WithLabelValues("keeper").Set(1)
	return CheckResult{Status: "ok"}
}

// telemetryCheck degrades rather than fails: the engine settles without
// exporters.
func (hc *HealthCheck) telemetryCheck() CheckResult {
	if hc.telemetry == nil {
		return CheckResult{Status: "disabled"}
	}
	if err := hc.telemetry.HealthCheck(); err != nil {
		serviceHealthy.WithLabelValues("telemetry").Set(0.5)
		return CheckResult{Status: "degraded", Message: err.Error()}
	}
	serviceHealthy.WithLabelValues("telemetry").Set(1)
	return CheckResult{Status: "ok"}
}

// handleDetailed handles GET /health/detailed
func (hc *HealthCheck) handleDetailed(w http.ResponseWriter, r *http.Request) {
	if cached, ok := hc.cache.get(); ok {
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, http.StatusOK, cached)
		return
	}

	ctx := r.Context()
	checks := make(map[string]CheckResult)
	modules := make(map[string]ModuleHealth)

	if err := hc.engine.AssertInvariants(ctx); err != nil {
		checks["invariants"] = CheckResult{Status: "unhealthy", Message: err.Error()}
		serviceHealthy.WithLabelValues("invariants").Set(0)
	} else {
		checks["invariants"] = CheckResult{Status: "ok"}
		serviceHealthy.WithLabelValues("invariants").Set(1)
	}
	checks["keeper"] = hc.keeperCheck()
	checks["telemetry"] = hc.telemetryCheck()

	if pools, err := hc.engine.Pools(ctx); err != nil {
		checks["store"] = CheckResult{Status: "unhealthy", Message: err.Error()}
	} else {
		checks["store"] = CheckResult{Status: "ok"}
		paused := 0
		for _, pool := range pools {
			if pool.Paused {
				paused++
			}
		}
		modules[ammtypes.ModuleName] = ModuleHealth{Status: "ok", Metrics: map[string]int{"pools": len(pools), "paused": paused}}
	}
	if orders, err := hc.engine.AllOpenLimitOrders(ctx); err == nil {
		modules[orderbooktypes.ModuleName] = ModuleHealth{Status: "ok", Metrics: map[string]int{"open_orders": len(orders)}}
	}
	if due, err := hc.engine.DueDCAOrders(ctx); err == nil {
		modules[dcatypes.ModuleName] = ModuleHealth{Status: "ok", Metrics: map[string]int{"due_orders": len(due)}}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	status := "healthy"
	for _, check := range checks {
		if check.Status == "unhealthy" {
			status = "unhealthy"
			break
		} else if check.Status == "degraded" {
			status = "degraded"
		}
	}

	response := &DetailedHealthResponse{
		Status:        status,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		Version:       getVersion(),
		Checks:        checks,
		Modules:       modules,
		System: SystemHealth{
			MemoryMB:   m.Alloc / 1024 / 1024,
			Goroutines: runtime.NumGoroutine(),
			Height:     hc.engine.Height(),
		},
	}
	if hc.sweeps != nil {
		if report, at := hc.sweeps.Last(); !at.IsZero() {
			response.LastSweep = &report
		}
	}

	hc.cache.set(response)

	w.Header().Set("X-Cache", "MISS")
	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}

// Shutdown gracefully shuts down the health check server
func (hc *HealthCheck) Shutdown(ctx context.Context) error {
	if hc.server != nil {
		return hc.server.Shutdown(ctx)
	}
	return nil
}

func getVersion() string {
	if version := os.Getenv("RUSH_VERSION"); version != "" {
		return version
	}
	return "dev"
}
