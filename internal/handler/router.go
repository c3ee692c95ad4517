package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"
	"github.com/boddenberg/modcar-console-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

const healthCheckTimeout = 2 * time.Second

// HealthChecker is a dependency /healthz probes.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Services groups everything the router dispatches to.
type Services struct {
	Sessions      *service.SessionService
	Provisioning  *service.ProvisioningService
	Approval      *service.ApprovalService
	Catalog       *service.CatalogService
	Campaigns     *service.CampaignService
	Customers     *service.CustomerService
	Partners      *service.PartnerService
	KPIs          *service.KPIService
	Dashboard     *service.DashboardService
	Notifications *service.NotificationService
	StockSync     *service.StockSyncService
	Funnel        *service.FunnelService

	// Supabase is probed by /healthz when set.
	Supabase HealthChecker
}

// Options tunes the cross-cutting middleware.
type Options struct {
	CORSAllowedOrigins   []string
	PublicRateLimitRPS   float64
	PublicRateLimitBurst int
	// TrustProxyHeaders takes the client address from X-Forwarded-For /
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, opts Options, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(observability.TracingMiddleware)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(corsMiddleware(opts.CORSAllowedOrigins))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Supabase))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// =============================================
	// Functions (storefront and ERP contracts)
	// =============================================
	r.Route("/functions/v1", func(r chi.Router) {
		r.Post("/create-partner", createPartnerFunction(svc.Sessions, svc.Provisioning, logger))
		r.Post("/send-welcome-email", sendWelcomeFunction(svc.Sessions, svc.Notifications, logger))
		r.Post("/sync-stock-erp", syncStockFunction(svc.Sessions, svc.StockSync, logger))
	})

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// Public funnel
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(opts.PublicRateLimitRPS, opts.PublicRateLimitBurst, logger))

			r.Get("/plans", listPlansHandler(svc.Funnel))
			r.Get("/plans/{planId}", getPlanHandler(svc.Funnel, logger))
			r.Post("/checkout/{planId}", checkoutHandler(svc.Funnel, logger))
			r.Post("/signup/personal", validatePersonalHandler(svc.Funnel, logger))
			r.Post("/signup", signupHandler(svc.Funnel, logger))
		})

		// =============================================
		// Admin console
		// =============================================
		r.Route("/admin", func(r chi.Router) {
			r.Use(SessionMiddleware(svc.Sessions, logger))
			r.Use(RequireRole(domain.RoleAdmin, logger))

			r.Get("/partners", listPartnersHandler(svc.Partners, logger))
			r.Post("/partners", createPartnerHandler(svc.Provisioning, logger))

			r.Get("/products", listAllProductsHandler(svc.Catalog, logger))
			r.Post("/products/{productId}/approve", approveProductHandler(svc.Approval, logger))
			r.Post("/products/{productId}/reject", rejectProductHandler(svc.Approval, logger))

			r.Get("/campaigns", listAllCampaignsHandler(svc.Campaigns, logger))
			r.Post("/campaigns", adminCreateCampaignHandler(svc.Campaigns, logger))
			r.Post("/campaigns/{campaignId}/approve", approveCampaignHandler(svc.Approval, logger))
			r.Post("/campaigns/{campaignId}/reject", rejectCampaignHandler(svc.Approval, logger))

			r.Get("/customers", listCustomersHandler(svc.Customers, logger))
			r.Get("/customers/{customerId}", getCustomerHandler(svc.Customers, logger))
			r.Post("/customers/{customerId}/block", blockCustomerHandler(svc.Customers, logger))
			r.Post("/customers/{customerId}/unblock", unblockCustomerHandler(svc.Customers, logger))

			r.Get("/kpis", kpiHandler(svc.KPIs, logger))
			r.Get("/dashboard", adminDashboardHandler(svc.Dashboard, logger))
			r.Get("/metrics", opsMetricsHandler(metrics))
			r.Post("/images", uploadImageHandler(svc.Catalog, logger))
		})

		// =============================================
		// Partner console
		// =============================================
		r.Route("/partner", func(r chi.Router) {
			r.Use(SessionMiddleware(svc.Sessions, logger))
			r.Use(RequireRole(domain.RolePartner, logger))

			r.Get("/products", listOwnProductsHandler(svc.Catalog, logger))
			r.Post("/products", createProductHandler(svc.Catalog, logger))
			r.Patch("/products/{productId}", updateProductHandler(svc.Catalog, logger))
			r.Delete("/products/{productId}", deleteProductHandler(svc.Catalog, logger))
			r.Post("/products/import", importProductsHandler(svc.Catalog, logger))
			r.Get("/products/import/template", importTemplateHandler())

			r.Get("/campaigns", listOwnCampaignsHandler(svc.Campaigns, logger))
			r.Post("/campaigns", submitCampaignHandler(svc.Campaigns, logger))
			r.Delete("/campaigns/{campaignId}", deleteCampaignHandler(svc.Campaigns, logger))

			r.Get("/subscription", subscriptionHandler(svc.Partners, logger))
			r.Get("/dashboard", partnerDashboardHandler(svc.Dashboard, logger))
			r.Post("/images", uploadImageHandler(svc.Catalog, logger))
		})
	})

	return r
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	})
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(supabase HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "console-bfa", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if supabase != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()

			start := time.Now()
			err := supabase.Ping(ctx)
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
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
