package supabase

import (
	"context"
	"fmt"
	"net/http"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Role grants (implements port.RoleStore)
// ============================================================

// GetRole returns the identity's role, or RoleCustomer when it has none.
func (c *Client) GetRole(ctx context.Context, userID string) (domain.Role, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRole")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var grants []domain.RoleGrant
	err := c.read(ctx, "supabase/user_roles", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("user_roles?select=user_id,role&user_id=%s&limit=1", eq(userID)))
		if err != nil {
			return err
		}
		return decodeRows(body, &grants)
	})
	if err != nil {
		return "", err
	}
	if len(grants) == 0 {
		return domain.RoleCustomer, nil
	}
	return grants[0].Role, nil
}

func (c *Client) ListUserIDsByRole(ctx context.Context, role domain.Role) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListUserIDsByRole")
	defer span.End()

	var grants []domain.RoleGrant
	err := c.read(ctx, "supabase/user_roles", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("user_roles?select=user_id,role&role=%s", eq(string(role))))
		if err != nil {
			return err
		}
		return decodeRows(body, &grants)
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.UserID)
	}
	return ids, nil
}

func (c *Client) GrantRole(ctx context.Context, userID string, role domain.Role) error {
	ctx, span := tracer.Start(ctx, "Supabase.GrantRole")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("role", string(role)))

	return c.write("supabase/user_roles", func() error {
		_, err := c.doPost(ctx, "user_roles", map[string]any{
			"user_id": userID,
			"role":    role,
		})
		return err
	})
}

func (c *Client) RevokeRole(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeRole")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	return c.write("supabase/user_roles", func() error {
		return c.doDelete(ctx, fmt.Sprintf("user_roles?user_id=%s", eq(userID)))
	})
}
