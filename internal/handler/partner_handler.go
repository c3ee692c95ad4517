package handler

import (
	"errors"
	"net/http"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	maxImageUpload  = 5 << 20
	maxImportUpload = 2 << 20
)

// ============================================================
// Partner: catalog
// ============================================================

func listOwnProductsHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/partner/products")
		defer span.End()

		products, err := svc.ListOwn(ctx, SessionFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, products)
	}
}

func createProductHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/partner/products")
		defer span.End()

		var req domain.ProductInput
		if !decodeJSON(w, r, &req) {
			return
		}

		product, err := svc.Create(ctx, SessionFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("product.id", product.ID))
		writeJSON(w, http.StatusCreated, product)
	}
}

func updateProductHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/partner/products/{productId}")
		defer span.End()

		id := chi.URLParam(r, "productId")
		span.SetAttributes(attribute.String("product.id", id))

		var req domain.ProductUpdate
		if !decodeJSON(w, r, &req) {
			return
		}

		product, err := svc.Update(ctx, SessionFromContext(ctx), id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, product)
	}
}

func deleteProductHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/partner/products/{productId}")
		defer span.End()

		id := chi.URLParam(r, "productId")
		span.SetAttributes(attribute.String("product.id", id))

		if err := svc.Delete(ctx, SessionFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Produto excluído", ID: id})
	}
}

func importProductsHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/partner/products/import")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxImportUpload)
		file, _, err := r.FormFile("file")
		if err != nil {
			writeUploadError(w, err)
			return
		}
		defer file.Close()

		result, err := svc.Import(ctx, SessionFromContext(ctx), file)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.Int("import.imported", result.Imported),
			attribute.Int("import.skipped", result.Skipped),
		)
		writeJSON(w, http.StatusOK, result)
	}
}

func importTemplateHandler() http.HandlerFunc {
	template := service.ImportTemplate()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="modelo-produtos.csv"`)
		w.WriteHeader(http.StatusOK)
		w.Write(template)
	}
}

// uploadImageHandler serves both the admin and the partner upload routes.
func uploadImageHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST "+r.URL.Path)
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxImageUpload)
		file, header, err := r.FormFile("file")
		if err != nil {
			writeUploadError(w, err)
			return
		}
		defer file.Close()

		url, err := svc.UploadImage(ctx, SessionFromContext(ctx), header.Filename, file, header.Size)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"url": url})
	}
}

func writeUploadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Arquivo muito grande")
		return
	}
	writeError(w, http.StatusBadRequest, "Arquivo não enviado (campo 'file')")
}

// ============================================================
// Partner: campaigns
// ============================================================

func listOwnCampaignsHandler(svc *service.CampaignService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/partner/campaigns")
		defer span.End()

		list, err := svc.ListOwn(ctx, SessionFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func submitCampaignHandler(svc *service.CampaignService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/partner/campaigns")
		defer span.End()

		var req domain.CampaignInput
		if !decodeJSON(w, r, &req) {
			return
		}

		campaign, err := svc.Submit(ctx, SessionFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, campaign)
	}
}

func deleteCampaignHandler(svc *service.CampaignService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/partner/campaigns/{campaignId}")
		defer span.End()

		id := chi.URLParam(r, "campaignId")
		span.SetAttributes(attribute.String("campaign.id", id))

		if err := svc.DeletePending(ctx, SessionFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Campanha excluída", ID: id})
	}
}

// ============================================================
// Partner: account
// ============================================================

func subscriptionHandler(svc *service.PartnerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/partner/subscription")
		defer span.End()

		overview, err := svc.Subscription(ctx, SessionFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, overview)
	}
}

func partnerDashboardHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/partner/dashboard")
		defer span.End()

		dashboard, err := svc.Partner(ctx, SessionFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dashboard)
	}
}
