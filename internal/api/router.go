package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/lmscore/internal/api/handlers"
	"github.com/nikhilbhutani/lmscore/internal/api/middleware"
	"github.com/nikhilbhutani/lmscore/internal/auth"
	"github.com/nikhilbhutani/lmscore/internal/config"
	"github.com/nikhilbhutani/lmscore/internal/metrics"
	"github.com/nikhilbhutani/lmscore/internal/models"
	"github.com/nikhilbhutani/lmscore/internal/realtime"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

// Deps are the collaborators the HTTP surface is built from. DB and Redis
// are only used by the readiness endpoint and may be nil. ReadyChecks adds
// further named readiness checks.
type Deps struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Resolver *auth.Resolver
	Status   tenant.StatusLookup
	Tenants  handlers.TenantStore
	Courses  handlers.CourseLister
	Audit    handlers.AuditLister
	Users    handlers.UserChecker
	Emitter  realtime.Emitter
	Realtime http.Handler
	Metrics  *metrics.Metrics
	Auditor  middleware.DenialAuditor

	ReadyChecks map[string]handlers.CheckFunc
}

type Router struct {
	mux  *chi.Mux
	deps Deps
}

func NewRouter(deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Router{mux: chi.NewRouter(), deps: deps}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux
	d := rt.deps

	var (
		decisions middleware.DecisionRecorder
		observer  middleware.RequestObserver
	)
	if d.Metrics != nil {
		decisions = d.Metrics
		observer = d.Metrics
	}
	var origins []string
	if d.Config != nil {
		origins = d.Config.Realtime.AllowedOrigins
	}

	errs := middleware.NewAccessErrors(d.Logger, decisions, d.Auditor)
	authn := auth.NewMiddleware(d.Resolver, errs.Handle)
	roles := auth.NewRoleGate(errs.Handle)
	scoper := tenant.NewScoper(tenant.NewGuard(d.Status), decisions, errs.Handle)

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(d.Logger, observer))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(origins))

	rl := middleware.NewRateLimiter(100, 200, middleware.ByIP)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	checks := map[string]handlers.CheckFunc{}
	if d.DB != nil {
		checks["database"] = handlers.PingCheck(d.DB)
	}
	if d.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() }
	}
	for name, check := range d.ReadyChecks {
		checks[name] = check
	}
	health := handlers.NewHealthHandler(checks)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	// The websocket endpoint authenticates inside its own handshake.
	if d.Realtime != nil {
		r.Handle("/ws", d.Realtime)
	}

	tenantLimit := middleware.NewRateLimiter(50, 100, middleware.ByTenant)

	tenantH := handlers.NewTenantHandler(d.Tenants, errs.Handle)
	courseH := handlers.NewCourseHandler(d.Courses, errs.Handle)
	adminH := handlers.NewAdminHandler(d.Audit, errs.Handle)
	notifyH := handlers.NewNotificationHandler(d.Users, d.Emitter, errs.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authn.Authenticate)

		r.Get("/me", handlers.Me)

		// Platform-wide listing, no tenant scope.
		r.With(roles.Require(models.RoleSuperAdmin)).Get("/tenants", tenantH.List)

		r.Group(func(r chi.Router) {
			r.Use(scoper.Scope)
			r.Use(tenantLimit.Limit)

			r.Get("/tenants/{tenantId}", tenantH.Get)
			r.Get("/tenants/{tenantId}/courses", courseH.List)
			r.Get("/courses", courseH.List)

			r.With(roles.Require(models.RoleSuperAdmin, models.RoleTenantAdmin)).
				Get("/tenants/{tenantId}/audit-logs", adminH.AuditLogs)

			notify := roles.Require(models.RoleSuperAdmin, models.RoleTenantAdmin, models.RoleTeacher)
			r.With(notify).Post("/tenants/{tenantId}/notifications", notifyH.Send)
			r.With(notify).Post("/notifications", notifyH.Send)
		})
	})

	return r
}
