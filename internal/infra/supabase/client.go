// Package supabase provides a client for Supabase (PostgREST + Auth).
// It is the data backend for profiles, roles, subscriptions, products,
// campaigns, orders and stock movements.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// Client wraps HTTP calls to Supabase PostgREST and GoTrue APIs.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	bulkhead       *resilience.Bulkhead
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 50
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		bulkhead:       resilience.NewBulkhead(maxConcurrency),
		logger:         logger,
	}
}

// APIError is a non-2xx answer from Supabase.
type APIError struct {
	Status  int
	Code    string
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("supabase returned status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("supabase returned status %d: %s", e.Status, e.Body)
}

// IsUnauthorized reports whether err carries a 401/403 from Supabase.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden)
}

// asAuthConflict turns GoTrue's 422 "already registered" into a conflict.
func asAuthConflict(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
		return &domain.ErrConflict{Message: apiErr.Message}
	}
	return err
}

// uniqueViolation is the Postgres SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// doRequest executes an authenticated request to Supabase PostgREST.
// 404 and 204 answers come back as a nil body.
func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	c.setServiceHeaders(req, "return=representation")

	resp, err := c.send(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, nil // no data
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, newAPIError(resp.StatusCode, body)
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	return body, nil
}

// send runs the request inside the bulkhead.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	if err := c.bulkhead.Acquire(req.Context()); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()
	return c.httpClient.Do(req)
}

func (c *Client) setServiceHeaders(req *http.Request, prefer string) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
}

// read runs an idempotent fetch through the breaker with retries.
func (c *Client) read(ctx context.Context, service string, fn func() error) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, fn)
	})
	return c.wrapErr(service, err)
}

// write runs a mutation through the breaker exactly once.
func (c *Client) write(service string, fn func() error) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	return c.wrapErr(service, err)
}

// wrapErr keeps domain errors intact and tags everything else with the
// failing service.
func (c *Client) wrapErr(service string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: service}
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.ErrTimeout{Operation: service}
	}

	var notFound *domain.ErrNotFound
	var conflict *domain.ErrConflict
	if errors.As(err, &notFound) || errors.As(err, &conflict) {
		return err
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == uniqueViolation {
		return &domain.ErrConflict{Message: apiErr.Message}
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}

// Ping checks that PostgREST answers.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	_, err := c.doRequest(ctx, http.MethodGet, "user_roles?select=user_id&limit=1")
	return err
}
