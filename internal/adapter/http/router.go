package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"valuta-service/internal/metrics"
	"valuta-service/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	requestIDHeader    = "X-Request-ID"
	responseTimeHeader = "X-Response-Time-Ms"
)

type requestIDKey struct{}

type requestInfoKey struct{}

// requestInfo carries values learned by inner middleware back out to the
// request log.
type requestInfo struct {
	clientID string
}

func setClientID(ctx context.Context, clientID string) {
	if info, ok := ctx.Value(requestInfoKey{}).(*requestInfo); ok {
		info.clientID = clientID
	}
}

type Router struct {
	handler  *Handler
	auth     *Authenticator
	limiter  *RateLimiter
	log      *logger.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
}

// NewRouter wires the API. A nil limiter disables rate limiting.
func NewRouter(handler *Handler, auth *Authenticator, limiter *RateLimiter, log *logger.Logger, metrics *metrics.Metrics, gatherer prometheus.Gatherer) *Router {
	return &Router{
		handler:  handler,
		auth:     auth,
		limiter:  limiter,
		log:      log,
		metrics:  metrics,
		gatherer: gatherer,
	}
}

func (r *Router) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), requestIDKey{}, id)))
	})
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (r *Router) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()

		crw := &customResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			start:          start,
		}

		info := &requestInfo{}
		next.ServeHTTP(crw, req.WithContext(context.WithValue(req.Context(), requestInfoKey{}, info)))

		// Route patterns keep label cardinality bounded.
		path := req.URL.Path
		if rctx := chi.RouteContext(req.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		duration := time.Since(start)
		if path != "/metrics" {
			r.metrics.HTTPRequestDuration.WithLabelValues(path, req.Method).Observe(duration.Seconds())
			r.metrics.HTTPRequestsTotal.WithLabelValues(path, req.Method, strconv.Itoa(crw.statusCode/100)+"xx").Inc()
		}

		fields := []any{
			"request_id", RequestIDFromContext(req.Context()),
			"method", req.Method,
			"path", req.URL.Path,
			"query", req.URL.RawQuery,
			"status", crw.statusCode,
			"duration", duration,
			"remote_addr", req.RemoteAddr,
			"user_agent", req.UserAgent(),
		}
		if info.clientID != "" {
			fields = append(fields, "client_id", info.clientID)
		}
		r.log.Info("HTTP request", fields...)
	})
}

type customResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	start       time.Time
	wroteHeader bool
}

func (crw *customResponseWriter) WriteHeader(code int) {
	if crw.wroteHeader {
		return
	}
	crw.wroteHeader = true
	crw.statusCode = code
	elapsed := time.Since(crw.start).Milliseconds()
	crw.ResponseWriter.Header().Set(responseTimeHeader, strconv.FormatInt(elapsed, 10))
	crw.ResponseWriter.WriteHeader(code)
}

func (crw *customResponseWriter) Write(b []byte) (int, error) {
	if !crw.wroteHeader {
		crw.WriteHeader(http.StatusOK)
	}
	return crw.ResponseWriter.Write(b)
}

func (r *Router) rateLimited(next http.Handler) http.Handler {
	if r.limiter == nil {
		return next
	}
	return r.limiter.Middleware(next)
}

func (r *Router) SetupRoutes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RealIP)
	mux.Use(r.requestIDMiddleware)
	mux.Use(r.loggingMiddleware)
	mux.Use(middleware.Recoverer)

	mux.Get("/health", r.handler.HealthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))

	mux.Route("/api/v1", func(api chi.Router) {
		api.With(r.rateLimited).Post("/login", r.auth.LoginHandler)

		api.Group(func(secured chi.Router) {
			secured.Use(r.auth.Middleware)
			secured.Use(r.rateLimited)

			anyRole := RequireRoles(r.log, RoleUser, RoleAdmin)
			secured.With(anyRole).Get("/currency/rates", r.handler.GetLatestRatesHandler)
			secured.With(anyRole).Get("/currency/convert", r.handler.ConvertCurrencyHandler)
			secured.With(RequireRoles(r.log, RoleAdmin)).Get("/currency/historical", r.handler.GetHistoricalRatesHandler)
			secured.Get("/currency/providers", r.handler.ListProvidersHandler)
		})
	})

	mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		r.handler.sendErrorResponse(w, http.StatusNotFound, "not found")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		r.handler.sendErrorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return mux
}
