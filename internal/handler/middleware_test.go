package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func authedRequest(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestSessionMiddleware(t *testing.T) {
	router := newTestRouter(t, newMemBackend())

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"blocked account", "Bearer " + blockedToken, http.StatusForbidden},
		{"partner on admin route", "Bearer " + partnerToken, http.StatusForbidden},
		{"admin", "Bearer " + adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/admin/dashboard", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireRole_AdminOnPartnerRoute(t *testing.T) {
	router := newTestRouter(t, newMemBackend())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/v1/partner/products", adminToken))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	router := newTestRouter(t, newMemBackend(), withRateLimit(0.001, 2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// other clients keep their own bucket
	req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
	req.RemoteAddr = "198.51.100.1:5000"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware_IgnoresForwardedHeadersByDefault(t *testing.T) {
	router := newTestRouter(t, newMemBackend(), withRateLimit(0.001, 2))

	codes := make([]int, 0, 3)
	for _, forwarded := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitMiddleware_TrustedProxy(t *testing.T) {
	router := newTestRouter(t, newMemBackend(), withRateLimit(0.001, 2), withTrustedProxy())

	for _, forwarded := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/plans", nil)
		req.RemoteAddr = "192.0.2.10:443" // the proxy
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, forwarded)
	}
}

func TestRateLimitMiddleware_DisabledByDefault(t *testing.T) {
	router := newTestRouter(t, newMemBackend())

	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/plans", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
