package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// GoTrue (implements port.IdentityProvider)
// ============================================================

type gotrueUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u *gotrueUser) toDomain() *domain.Identity {
	return &domain.Identity{ID: u.ID, Email: u.Email, Metadata: u.UserMetadata}
}

// CreateIdentity creates a pre-confirmed account with the admin API.
func (c *Client) CreateIdentity(ctx context.Context, email, password string, metadata map[string]any) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateIdentity")
	defer span.End()

	payload := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
		"user_metadata": metadata,
	}

	var user gotrueUser
	err := c.write("supabase/auth", func() error {
		body, err := c.doAuth(ctx, http.MethodPost, "admin/users", c.serviceRoleKey, payload)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &user)
	})
	if err != nil {
		return nil, asAuthConflict(err)
	}
	if user.ID == "" {
		return nil, &domain.ErrExternalService{Service: "supabase/auth", Err: fmt.Errorf("identity created without id")}
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	c.logger.Info("identity created", zap.String("user_id", user.ID))
	return user.toDomain(), nil
}

// DeleteIdentity removes an account. The profile row cascades with it.
func (c *Client) DeleteIdentity(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteIdentity")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", id))

	return c.write("supabase/auth", func() error {
		_, err := c.doAuth(ctx, http.MethodDelete, "admin/users/"+id, c.serviceRoleKey, nil)
		return err
	})
}

// SignUp registers an account through the public signup endpoint.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignUp")
	defer span.End()

	payload := map[string]any{
		"email":    email,
		"password": password,
		"data":     metadata,
	}

	var identity *domain.Identity
	err := c.write("supabase/auth", func() error {
		body, err := c.doAuth(ctx, http.MethodPost, "signup", c.apiKey, payload)
		if err != nil {
			return err
		}
		// With autoconfirm the user is nested under "user"; otherwise it is the root object.
		var wrapped struct {
			User *gotrueUser `json:"user"`
			gotrueUser
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return fmt.Errorf("failed to decode signup: %w", err)
		}
		if wrapped.User != nil && wrapped.User.ID != "" {
			identity = wrapped.User.toDomain()
		} else {
			identity = wrapped.gotrueUser.toDomain()
		}
		return nil
	})
	if err != nil {
		return nil, asAuthConflict(err)
	}
	return identity, nil
}

// IdentityFromToken asks GoTrue who owns a bearer token.
func (c *Client) IdentityFromToken(ctx context.Context, token string) (*domain.Identity, error) {
	ctx, span := tracer.Start(ctx, "Supabase.IdentityFromToken")
	defer span.End()

	var user gotrueUser
	err := c.read(ctx, "supabase/auth", func() error {
		body, err := c.doAuth(ctx, http.MethodGet, "user", token, nil)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &user)
	})
	if err != nil {
		if IsUnauthorized(err) {
			return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
		}
		return nil, err
	}
	if user.ID == "" {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}
	identity := user.toDomain()
	identity.ExpiresAt = tokenExpiry(token)
	return identity, nil
}

// doAuth calls /auth/v1 with bearer as the Authorization token.
func (c *Client) doAuth(ctx context.Context, method, path, bearer string, data any) ([]byte, error) {
	var reader *bytes.Reader
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s/auth/v1/%s", c.baseURL, path), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.send(req)
	if err != nil {
		c.logger.Error("supabase: auth request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: auth non-2xx",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, newAPIError(resp.StatusCode, body)
	}
	return body, nil
}
