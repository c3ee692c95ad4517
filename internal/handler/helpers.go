package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type validationResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

type provisioningResponse struct {
	Error      string `json:"error"`
	Step       string `json:"step"`
	RolledBack bool   `json:"rolledBack"`
}

type quotaResponse struct {
	Error   string `json:"error"`
	Limit   int    `json:"limit"`
	Current int    `json:"current"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a bounded JSON body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := decodeBody(r, v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("corpo da requisição vazio")
		}
		return errors.New("JSON inválido")
	}
	return nil
}

func parsePagination(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = 20
	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if ps, err := strconv.Atoi(v); err == nil && ps > 0 && ps <= 100 {
			pageSize = ps
		}
	}
	return
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var validation *domain.ErrValidation
	var validationSet *domain.ErrValidationSet
	var forbidden *domain.ErrForbidden
	var unauthorized *domain.ErrUnauthorized
	var accountBlocked *domain.ErrAccountBlocked
	var conflict *domain.ErrConflict
	var transition *domain.ErrInvalidTransition
	var quota *domain.ErrQuotaExceeded
	var provisioning *domain.ErrProvisioning
	var stockUpdate *domain.ErrStockUpdate
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &provisioning):
		// checked first: it wraps the failing step's own error
		status := http.StatusBadGateway
		if errors.As(provisioning.Err, &conflict) {
			status = http.StatusConflict
		}
		logger.Error("partner provisioning failed",
			zap.String("step", string(provisioning.Step)),
			zap.Bool("rolled_back", provisioning.RolledBack()),
			zap.Error(err),
		)
		writeJSON(w, status, provisioningResponse{
			Error:      err.Error(),
			Step:       string(provisioning.Step),
			RolledBack: provisioning.RolledBack(),
		})
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &validationSet):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, validationResponse{Error: "Dados inválidos", Fields: validationSet.Fields})
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Error:  validation.Message,
			Fields: map[string]string{validation.Field: validation.Message},
		})
	case errors.As(err, &stockUpdate):
		logger.Warn("stock update rejected", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, stockUpdate.Message)
	case errors.As(err, &quota):
		logger.Warn("quota exceeded", zap.String("error", err.Error()))
		writeJSON(w, http.StatusUnprocessableEntity, quotaResponse{
			Error:   "Limite de produtos do plano atingido",
			Limit:   quota.Limit,
			Current: quota.Current,
		})
	case errors.As(err, &transition):
		logger.Info("invalid transition", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &accountBlocked):
		logger.Warn("account blocked")
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &external):
		logger.Error("external service error", zap.String("service", external.Service), zap.Error(err))
		writeError(w, http.StatusBadGateway, "serviço externo indisponível")
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
