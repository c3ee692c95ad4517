package handler

import (
	"net/http"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"
	"github.com/boddenberg/modcar-console-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Admin: partners
// ============================================================

func listPartnersHandler(svc *service.PartnerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/partners")
		defer span.End()

		list, err := svc.ListPartners(ctx, SessionFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createPartnerHandler(svc *service.ProvisioningService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/partners")
		defer span.End()

		var req domain.CreatePartnerRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		partner, err := svc.CreatePartner(ctx, SessionFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("partner.id", partner.ID))
		writeJSON(w, http.StatusCreated, partner)
	}
}

// ============================================================
// Admin: product moderation
// ============================================================

func listAllProductsHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/products")
		defer span.End()

		products, err := svc.ListAll(ctx, SessionFromContext(ctx), r.URL.Query().Get("status"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, products)
	}
}

func approveProductHandler(svc *service.ApprovalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/products/{productId}/approve")
		defer span.End()

		id := chi.URLParam(r, "productId")
		span.SetAttributes(attribute.String("product.id", id))

		product, err := svc.ApproveProduct(ctx, SessionFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, product)
	}
}

func rejectProductHandler(svc *service.ApprovalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/products/{productId}/reject")
		defer span.End()

		id := chi.URLParam(r, "productId")
		span.SetAttributes(attribute.String("product.id", id))

		var req domain.RejectRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		product, err := svc.RejectProduct(ctx, SessionFromContext(ctx), id, req.Reason)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, product)
	}
}

// ============================================================
// Admin: campaigns
// ============================================================

func listAllCampaignsHandler(svc *service.CampaignService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/campaigns")
		defer span.End()

		list, err := svc.ListAll(ctx, SessionFromContext(ctx), r.URL.Query().Get("status"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func adminCreateCampaignHandler(svc *service.CampaignService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/campaigns")
		defer span.End()

		var req domain.AdminCampaignInput
		if !decodeJSON(w, r, &req) {
			return
		}

		campaign, err := svc.CreateForPartner(ctx, SessionFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, campaign)
	}
}

func approveCampaignHandler(svc *service.ApprovalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/campaigns/{campaignId}/approve")
		defer span.End()

		id := chi.URLParam(r, "campaignId")
		span.SetAttributes(attribute.String("campaign.id", id))

		campaign, err := svc.ApproveCampaign(ctx, SessionFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, campaign)
	}
}

func rejectCampaignHandler(svc *service.ApprovalService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/campaigns/{campaignId}/reject")
		defer span.End()

		id := chi.URLParam(r, "campaignId")
		span.SetAttributes(attribute.String("campaign.id", id))

		var req domain.RejectRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		campaign, err := svc.RejectCampaign(ctx, SessionFromContext(ctx), id, req.Reason)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, campaign)
	}
}

// ============================================================
// Admin: customers
// ============================================================

func listCustomersHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/customers")
		defer span.End()

		filter := domain.ProfileFilter{
			Status: r.URL.Query().Get("status"),
			Search: r.URL.Query().Get("search"),
		}
		customers, err := svc.ListCustomers(ctx, SessionFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		page, pageSize := parsePagination(r)
		writeJSON(w, http.StatusOK, domain.Paginate(customers, page, pageSize))
	}
}

func getCustomerHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/customers/{customerId}")
		defer span.End()

		id := chi.URLParam(r, "customerId")
		span.SetAttributes(attribute.String("customer.id", id))

		detail, err := svc.GetCustomer(ctx, SessionFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

func blockCustomerHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/customers/{customerId}/block")
		defer span.End()

		id := chi.URLParam(r, "customerId")
		span.SetAttributes(attribute.String("customer.id", id))

		var req domain.BlockRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		profile, err := svc.BlockCustomer(ctx, SessionFromContext(ctx), id, req.Reason)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func unblockCustomerHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/customers/{customerId}/unblock")
		defer span.End()

		id := chi.URLParam(r, "customerId")
		span.SetAttributes(attribute.String("customer.id", id))

		profile, err := svc.UnblockCustomer(ctx, SessionFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

// ============================================================
// Admin: reporting
// ============================================================

func kpiHandler(svc *service.KPIService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/kpis")
		defer span.End()

		report, err := svc.Report(ctx, SessionFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func adminDashboardHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/dashboard")
		defer span.End()

		dashboard, err := svc.Admin(ctx, SessionFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dashboard)
	}
}

func opsMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
