package handler

import (
	"errors"
	"net/http"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"
	"github.com/boddenberg/modcar-console-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Function endpoints
//
// These keep the response contracts the storefront and the ERP already
// call, so their error bodies differ from the /v1 API.
// ============================================================

type partnerCreatedResponse struct {
	Success bool                   `json:"success"`
	Partner *domain.CreatedPartner `json:"partner,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// createPartnerFunction answers 200 {success, partner} or 400 {success:false, error}.
func createPartnerFunction(sessions *service.SessionService, svc *service.ProvisioningService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /functions/v1/create-partner")
		defer span.End()

		fail := func(err error) {
			logger.Warn("create-partner failed", zap.Error(err))
			writeJSON(w, http.StatusBadRequest, partnerCreatedResponse{Error: err.Error()})
		}

		token, ok := bearerToken(r)
		if !ok {
			fail(&domain.ErrUnauthorized{Message: "No authorization header"})
			return
		}
		session, err := sessions.Resolve(ctx, token)
		if err != nil {
			fail(err)
			return
		}
		observability.AnnotateCaller(ctx, session.UserID, string(session.Role))

		var req domain.CreatePartnerRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := decodeBody(r, &req); err != nil {
			fail(err)
			return
		}

		partner, err := svc.CreatePartner(ctx, session, &req)
		if err != nil {
			fail(err)
			return
		}
		span.SetAttributes(attribute.String("partner.id", partner.ID))
		writeJSON(w, http.StatusOK, partnerCreatedResponse{Success: true, Partner: partner})
	}
}

// sendWelcomeFunction answers 200 with the provider result or 500 {error}.
func sendWelcomeFunction(sessions *service.SessionService, svc *service.NotificationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /functions/v1/send-welcome-email")
		defer span.End()

		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
			return
		}
		session, err := sessions.Resolve(ctx, token)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		observability.AnnotateCaller(ctx, session.UserID, string(session.Role))

		var msg domain.WelcomeEmail
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := decodeBody(r, &msg); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		result, err := svc.SendWelcome(ctx, session, &msg)
		if err != nil {
			logger.Error("send-welcome-email failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(result)
	}
}

// syncStockFunction accepts the ERP integration key or an admin session as
// bearer. Unknown codes answer 404, rejected movements 400.
func syncStockFunction(sessions *service.SessionService, svc *service.StockSyncService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /functions/v1/sync-stock-erp")
		defer span.End()

		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
			return
		}
		if !svc.AuthorizeIntegrationKey(token) {
			session, err := sessions.Resolve(ctx, token)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			observability.AnnotateCaller(ctx, session.UserID, string(session.Role))
			if !session.IsAdmin() {
				writeError(w, http.StatusForbidden, "Acesso negado")
				return
			}
			span.SetAttributes(attribute.String("caller", "admin"))
		} else {
			span.SetAttributes(attribute.String("caller", "erp"))
		}

		var req domain.StockSyncRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, err := svc.Sync(ctx, &req)
		if err != nil {
			writeStockSyncError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func writeStockSyncError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var rejected *domain.ErrStockUpdate
	var validation *domain.ErrValidation
	var validationSet *domain.ErrValidationSet

	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, "Product not found")
	case errors.As(err, &rejected):
		writeError(w, http.StatusBadRequest, rejected.Message)
	case errors.As(err, &validation), errors.As(err, &validationSet):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("sync-stock-erp failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
