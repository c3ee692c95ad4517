package handler

import (
	"net/http"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Public funnel: plans, checkout and signup
// ============================================================

func listPlansHandler(svc *service.FunnelService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Plans())
	}
}

func getPlanHandler(svc *service.FunnelService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plan, err := svc.Plan(chi.URLParam(r, "planId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	}
}

func checkoutHandler(svc *service.FunnelService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/checkout/{planId}")
		defer span.End()

		planID := chi.URLParam(r, "planId")
		span.SetAttributes(attribute.String("plan", planID))

		var req domain.CheckoutRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		result, err := svc.Checkout(ctx, planID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func validatePersonalHandler(svc *service.FunnelService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.PersonalData
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := svc.ValidatePersonal(&req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
	}
}

func signupHandler(svc *service.FunnelService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/signup")
		defer span.End()

		var req domain.SignupRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		result, err := svc.Signup(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, result)
	}
}
