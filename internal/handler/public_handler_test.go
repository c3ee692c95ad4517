package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListPlans(t *testing.T) {
	router := newTestRouter(t, newMemBackend())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/plans", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var plans []domain.PlanView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plans))
	assert.Len(t, plans, 3)
}

func TestGetPlan_Unknown(t *testing.T) {
	router := newTestRouter(t, newMemBackend())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/plans/v8", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckout(t *testing.T) {
	router := newTestRouter(t, newMemBackend())

	body := `{"cardNumber":"4111 1111 1111 1111","cardName":"Maria Souza","expiry":"12/45","cvv":"123"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/checkout/v6", "", body))

	require.Equal(t, http.StatusOK, rec.Code)
	var result domain.CheckoutResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "approved", result.Status)
	assert.Equal(t, "1111", result.CardLast4)
	assert.Equal(t, "signup", result.NextStep)
}

func TestCheckout_InvalidCard(t *testing.T) {
	router := newTestRouter(t, newMemBackend())

	body := `{"cardNumber":"123","cardName":"M","expiry":"13/99","cvv":"1"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/checkout/v6", "", body))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Fields, 4)
}

func TestValidatePersonal(t *testing.T) {
	router := newTestRouter(t, newMemBackend())

	valid := `{"name":"Maria Souza","email":"maria@email.com","cpf":"123.456.789-00","phone":"11987654321","password":"segredo1"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/signup/personal", "", valid))
	assert.Equal(t, http.StatusOK, rec.Code)

	invalid := `{"name":"Ma","email":"maria","cpf":"12345678900","phone":"119","password":"1"}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/signup/personal", "", invalid))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CPF inválido", resp.Fields["cpf"])
	assert.Len(t, resp.Fields, 5)
}

func TestSignup(t *testing.T) {
	backend := newMemBackend()
	router := newTestRouter(t, backend)

	body := `{
		"plan": "v12",
		"personal": {"name":"Maria Souza","email":"maria@email.com","cpf":"123.456.789-00","phone":"11987654321","password":"segredo1"},
		"company": {"companyName":"Souza Auto","cnpj":"12.345.678/0001-90","companyEmail":"contato@souza.com","companyPhone":"1133334444","address":"Rua A, 100"}
	}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/signup", "", body))

	require.Equal(t, http.StatusCreated, rec.Code)
	var result domain.SignupResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.PlanV12, result.Plan)
	assert.Equal(t, 1, backend.signups)
}

func TestSignup_AllErrorsAtOnce(t *testing.T) {
	backend := newMemBackend()
	router := newTestRouter(t, backend)

	body := `{"plan":"v8","personal":{"email":"maria@email.com"},"company":{"cnpj":"123"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/v1/signup", "", body))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Plano inválido", resp.Fields["plan"])
	assert.Contains(t, resp.Fields, "personal.name")
	assert.Equal(t, "CNPJ inválido", resp.Fields["company.cnpj"])
	assert.Zero(t, backend.signups)
}
