package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Partner subscriptions (implements port.SubscriptionStore)
// ============================================================

func (c *Client) CreateSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateSubscription")
	defer span.End()
	span.SetAttributes(attribute.String("partner.id", sub.PartnerID), attribute.String("plan", string(sub.Plan)))

	data := map[string]any{
		"partner_id":      sub.PartnerID,
		"plan":            sub.Plan,
		"status":          sub.Status,
		"start_date":      sub.StartDate,
		"renewal_date":    sub.RenewalDate,
		"monthly_revenue": sub.MonthlyRevenue,
		"products_count":  sub.ProductsCount,
		"users_count":     sub.UsersCount,
	}

	var created []domain.Subscription
	err := c.write("supabase/partner_subscriptions", func() error {
		body, err := c.doPost(ctx, "partner_subscriptions", data)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &created)
	})
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return sub, nil
	}
	return &created[0], nil
}

func (c *Client) ListSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListSubscriptions")
	defer span.End()

	var subs []domain.Subscription
	err := c.read(ctx, "supabase/partner_subscriptions", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, "partner_subscriptions?select=*&order=created_at.desc")
		if err != nil {
			return err
		}
		return decodeRows(body, &subs)
	})
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (c *Client) GetSubscriptionByPartner(ctx context.Context, partnerID string) (*domain.Subscription, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetSubscriptionByPartner")
	defer span.End()
	span.SetAttributes(attribute.String("partner.id", partnerID))

	var subs []domain.Subscription
	err := c.read(ctx, "supabase/partner_subscriptions", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("partner_subscriptions?partner_id=%s&limit=1", eq(partnerID)))
		if err != nil {
			return err
		}
		return decodeRows(body, &subs)
	})
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, &domain.ErrNotFound{Resource: "subscription", ID: partnerID}
	}
	return &subs[0], nil
}

func (c *Client) UpdateProductsCount(ctx context.Context, partnerID string, count int) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProductsCount")
	defer span.End()

	return c.write("supabase/partner_subscriptions", func() error {
		return c.doPatch(ctx, fmt.Sprintf("partner_subscriptions?partner_id=%s", eq(partnerID)), map[string]any{
			"products_count": count,
		})
	})
}
