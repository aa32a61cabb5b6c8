package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/trabamex/mir-bff-go/internal/domain"
	"github.com/trabamex/mir-bff-go/internal/infra/observability"
	"github.com/trabamex/mir-bff-go/internal/infra/realtime"
	"github.com/trabamex/mir-bff-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Pinger checks a dependency for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps groups what the router needs. If any service is missing every /v1
// route answers 503.
type Deps struct {
	Auth      *service.AuthService
	Plans     *service.PlanService
	Orders    *service.OrderService
	Supplies  *service.SuppliesService
	Incidents *service.IncidentService
	Activity  *service.ActivityService
	Admin     *service.AdminService
	Contact   *service.ContactService
	Checklist *service.ChecklistService
	Dashboard *service.DashboardService
	Hub       *realtime.Hub

	Supabase Pinger
	Metrics  *observability.Metrics
	Logger   *zap.Logger

	AllowedOrigins    []string
	ContactRatePerMin int
	AuthRatePerMin    int
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(requestMetrics(d.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d.Supabase, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", metricsHandler(d.Metrics))

	if !d.complete() {
		r.Handle("/v1/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusServiceUnavailable, "service unavailable: Supabase not configured")
		}))
		return r
	}

	contactLimiter := NewRateLimiter(orDefault(d.ContactRatePerMin, 5))
	authLimiter := NewRateLimiter(orDefault(d.AuthRatePerMin, 10))
	authn := JWTAuthMiddleware(d.Auth, logger)

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Public
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.With(RateLimitMiddleware(authLimiter, logger)).Post("/signup", signUpHandler(d.Auth, logger))
			r.With(RateLimitMiddleware(authLimiter, logger)).Post("/signin", signInHandler(d.Auth, logger))
			r.Post("/refresh", refreshHandler(d.Auth, logger))
			r.With(authn).Post("/signout", signOutHandler(d.Auth, logger))
		})
		r.With(RateLimitMiddleware(contactLimiter, logger)).Post("/contact", contactHandler(d.Contact, logger))
		r.Get("/plans", listPlansHandler(d.Plans, logger))
		r.Get("/plans/{planId}", getPlanHandler(d.Plans, logger))
		r.Get("/access/resolve", resolveAccessHandler(d.Auth, logger))

		// =============================================
		// Authenticated
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Get("/me", getMeHandler(d.Auth, logger))
			r.Patch("/me", updateMeHandler(d.Auth, logger))
			r.Get("/me/plans", listMyPlansHandler(d.Plans, logger))
			r.Get("/me/plans/usage", planUsageHandler(d.Plans, logger))
			r.With(RequireRole(logger, domain.RoleUser)).Post("/plans/{planId}/subscribe", subscribeHandler(d.Plans, logger))

			r.Get("/orders", listOrdersHandler(d.Orders, logger))
			r.Post("/orders", createOrderHandler(d.Orders, logger))
			r.Get("/orders/{orderId}", getOrderHandler(d.Orders, logger))
			r.Post("/orders/{orderId}/status", transitionOrderHandler(d.Orders, logger))
			r.Post("/orders/{orderId}/cancel", cancelOrderHandler(d.Orders, logger))

			r.Get("/supplies", listSuppliesHandler(d.Supplies, logger))
			r.Post("/supplies", createSuppliesHandler(d.Supplies, logger))
			r.Get("/supplies/{requestId}", getSuppliesHandler(d.Supplies, logger))
			r.Post("/supplies/{requestId}/status", updateSuppliesStatusHandler(d.Supplies, logger))

			r.Get("/incidents", listIncidentsHandler(d.Incidents, logger))
			r.Post("/incidents", createIncidentHandler(d.Incidents, logger))
			r.Get("/incidents/{incidentId}", getIncidentHandler(d.Incidents, logger))
			r.Post("/incidents/{incidentId}/status", updateIncidentStatusHandler(d.Incidents, logger))
			r.Get("/incidents/{incidentId}/messages", listMessagesHandler(d.Incidents, logger))
			r.Post("/incidents/{incidentId}/messages", postMessageHandler(d.Incidents, logger))
			r.Get("/incidents/{incidentId}/stream", incidentStreamHandler(d.Incidents, d.Hub, d.AllowedOrigins, logger))

			r.Get("/activities", listActivitiesHandler(d.Activity, logger))
			r.Post("/activities/read-all", markAllActivitiesReadHandler(d.Activity, logger))
			r.Post("/activities/{activityId}/read", markActivityReadHandler(d.Activity, logger))

			r.Get("/checklist", getChecklistHandler(d.Checklist, logger))
			r.Put("/checklist", saveChecklistHandler(d.Checklist, logger))

			r.Get("/dashboard", dashboardHandler(d.Dashboard, logger))
		})

		// =============================================
		// Admin
		// =============================================
		r.Route("/admin", func(r chi.Router) {
			r.Use(authn)
			r.Use(RequireRole(logger, domain.RoleAdmin))

			r.Get("/users", listUsersHandler(d.Admin, logger))
			r.Post("/users/invite", inviteUserHandler(d.Admin, logger))
			r.Get("/orders/unassigned", unassignedOrdersHandler(d.Orders, logger))
			r.Get("/orders/export", exportOrdersHandler(d.Orders, logger))
			r.Post("/orders/{orderId}/assign", assignOrderHandler(d.Orders, logger))
			r.Get("/supplies/unassigned", unassignedSuppliesHandler(d.Supplies, logger))
			r.Post("/supplies/{requestId}/assign", assignSuppliesHandler(d.Supplies, logger))
			r.Get("/metrics", opsMetricsHandler(d.Admin, logger))
		})
	})

	return r
}

// complete reports whether every service behind /v1 is wired.
func (d Deps) complete() bool {
	return d.Auth != nil && d.Plans != nil && d.Orders != nil && d.Supplies != nil &&
		d.Incidents != nil && d.Activity != nil && d.Admin != nil && d.Contact != nil &&
		d.Checklist != nil && d.Dashboard != nil && d.Hub != nil
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// ============================================================
// Operational endpoints
// ============================================================

func healthzHandler(supabase Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "mir-bff", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if supabase != nil {
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()

			start := time.Now()
			err := supabase.Ping(ctx)
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				logger.Warn("healthz: supabase check failed", zap.Error(err))
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "supabase", Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// requestMetrics records latency per route pattern, not per raw path, to
// keep label cardinality bounded.
func requestMetrics(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			pattern := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				pattern = rctx.RoutePattern()
			}
			metrics.RecordRequestDuration(r.Method+" "+pattern, time.Since(start))
		})
	}
}

func metricsHandler(metrics *observability.Metrics) http.Handler {
	if metrics == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})
}
