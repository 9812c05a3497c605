// Package http serves a DataProvider over HTTP as a JSON RPC, one POST route
// per operation, plus health and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/reactodia/reactodia-workspace-sub004/errors"
	"github.com/reactodia/reactodia-workspace-sub004/gateway"
	"github.com/reactodia/reactodia-workspace-sub004/health"
	"github.com/reactodia/reactodia-workspace-sub004/metric"
	"github.com/reactodia/reactodia-workspace-sub004/provider"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// SystemName is the component name of the aggregated health status.
const SystemName = "graphdata"

type requestIDKey struct{}

// RequestID returns the request id stored in ctx by the gateway, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// getOrGenerateRequestID extracts the request id from headers or generates a
// new one.
func getOrGenerateRequestID(r *http.Request) string {
	if reqID := r.Header.Get(RequestIDHeader); reqID != "" {
		return reqID
	}
	return uuid.NewString()
}

// Stats counts gateway traffic since creation.
type Stats struct {
	RequestsTotal   uint64 `json:"requests_total"`
	RequestsSuccess uint64 `json:"requests_success"`
	RequestsFailed  uint64 `json:"requests_failed"`
	BytesReceived   uint64 `json:"bytes_received"`
	BytesSent       uint64 `json:"bytes_sent"`
}

// Gateway exposes a DataProvider over HTTP.
type Gateway struct {
	provider provider.DataProvider
	config   gateway.Config
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	monitor  *health.Monitor

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	requestsTotal   atomic.Uint64
	requestsSuccess atomic.Uint64
	requestsFailed  atomic.Uint64
	bytesReceived   atomic.Uint64
	bytesSent       atomic.Uint64
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics registers the gateway metrics and serves the registry on
// /metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(g *Gateway) {
		g.registry = registry
	}
}

// WithHealth serves the aggregated status of monitor on /healthz.
func WithHealth(monitor *health.Monitor) Option {
	return func(g *Gateway) {
		g.monitor = monitor
	}
}

// New creates a gateway for p. The config is validated and defaulted.
func New(p provider.DataProvider, config gateway.Config, opts ...Option) (*Gateway, error) {
	if p == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Gateway", "New", "provider is required")
	}
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Gateway", "New", "config validation")
	}

	g := &Gateway{
		provider: p,
		config:   config,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "gateway")

	if g.registry != nil {
		if err := g.registerMetrics(); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Gateway) registerMetrics() error {
	g.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graphdata",
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Gateway requests by operation and HTTP status code",
	}, []string{"operation", "code"})
	g.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "graphdata",
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Gateway request latency by operation",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	if err := g.registry.RegisterCounterVec("gateway", "requests_total", g.requests); err != nil {
		return err
	}
	return g.registry.RegisterHistogramVec("gateway", "request_duration_seconds", g.duration)
}

// Config returns the validated configuration.
func (g *Gateway) Config() gateway.Config {
	return g.config
}

// Stats returns a snapshot of the traffic counters.
func (g *Gateway) Stats() Stats {
	return Stats{
		RequestsTotal:   g.requestsTotal.Load(),
		RequestsSuccess: g.requestsSuccess.Load(),
		RequestsFailed:  g.requestsFailed.Load(),
		BytesReceived:   g.bytesReceived.Load(),
		BytesSent:       g.bytesSent.Load(),
	}
}

// Router builds the HTTP routes.
func (g *Gateway) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(g.requestID)
	r.Use(middleware.Recoverer)
	if g.config.EnableCORS {
		r.Use(g.cors)
	}

	r.Get("/healthz", g.handleHealth)
	if g.registry != nil {
		r.Method(http.MethodGet, "/metrics", g.registry.Handler())
	}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/operations", g.handleOperations)
		r.Post("/{operation}", g.handleOperation)
	})
	return r
}

// Serve listens on the configured address until ctx is done, then shuts the
// server down gracefully.
func (g *Gateway) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Addr)
	if err != nil {
		return errors.WrapFatal(err, "Gateway", "Serve", "listen on "+g.config.Addr)
	}
	return g.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is done.
func (g *Gateway) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           g.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	g.logger.Info("Gateway listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.WrapFatal(err, "Gateway", "ServeListener", "serve")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.WrapTransient(err, "Gateway", "ServeListener", "graceful shutdown")
	}
	g.logger.Info("Gateway stopped")
	return nil
}

func (g *Gateway) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := getOrGenerateRequestID(r)
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// cors applies CORS headers for allowed origins and answers preflight requests.
func (g *Gateway) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range g.config.CORSOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)
			w.Header().Set("Access-Control-Max-Age", "3600")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) handleOperation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	g.requestsTotal.Add(1)
	logger := g.logger.With("request_id", RequestID(r.Context()))

	op, err := provider.ParseOperation(chi.URLParam(r, "operation"))
	if err != nil {
		g.fail(w, "unknown", http.StatusNotFound, gateway.KindInvalid, "unknown operation", start)
		return
	}

	// Close body when done
	defer r.Body.Close()

	// Read request body with size limit + 1 to detect if request exceeds limit
	body, err := io.ReadAll(io.LimitReader(r.Body, g.config.MaxRequestSize+1))
	if err != nil {
		g.fail(w, string(op), http.StatusBadRequest, gateway.KindInvalid, "failed to read request body", start)
		return
	}
	if int64(len(body)) > g.config.MaxRequestSize {
		g.fail(w, string(op), http.StatusRequestEntityTooLarge, gateway.KindInvalid,
			fmt.Sprintf("request body exceeds maximum size of %d bytes", g.config.MaxRequestSize), start)
		return
	}
	g.bytesReceived.Add(uint64(len(body)))

	ctx, cancel := context.WithTimeout(r.Context(), g.config.RequestTimeoutDuration())
	defer cancel()

	result, err := dispatch(ctx, g.provider, op, body)
	if err != nil {
		status, kind := gateway.Classify(err)
		logger.Warn("Operation failed", "operation", op, "status", status, "error", err)
		g.fail(w, string(op), status, kind, sanitizeError(kind, err), start)
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		logger.Error("Failed to encode result", "operation", op, "error", err)
		g.fail(w, string(op), http.StatusInternalServerError, gateway.KindInternal, "internal server error", start)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		// Can't write error response at this point
		g.requestsFailed.Add(1)
		return
	}
	g.bytesSent.Add(uint64(len(data)))
	g.requestsSuccess.Add(1)
	g.observe(string(op), http.StatusOK, start)
	logger.Debug("Operation served", "operation", op, "duration", time.Since(start), "bytes", len(data))
}

func (g *Gateway) handleOperations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, provider.Operations())
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := health.Aggregate(SystemName, nil)
	if g.monitor != nil {
		status = g.monitor.AggregateHealth(SystemName)
	}

	code := http.StatusOK
	if status.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (g *Gateway) fail(w http.ResponseWriter, op string, status int, kind, message string, start time.Time) {
	g.requestsFailed.Add(1)
	g.observe(op, status, start)
	writeJSON(w, status, gateway.ErrorResponse{Error: message, Status: status, Kind: kind})
}

func (g *Gateway) observe(op string, status int, start time.Time) {
	if g.requests == nil {
		return
	}
	g.requests.WithLabelValues(op, strconv.Itoa(status)).Inc()
	g.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// sanitizeError returns a safe error message for external clients. Invalid
// requests keep their message so callers can fix them; other internal details
// are logged but not exposed.
func sanitizeError(kind string, err error) string {
	switch kind {
	case gateway.KindInvalid:
		return "invalid request: " + err.Error()
	case gateway.KindCancelled:
		return "request cancelled"
	case gateway.KindBackend:
		return "data source unavailable"
	default:
		return "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
