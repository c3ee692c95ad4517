package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Campaigns (implements port.CampaignStore)
// ============================================================

func (c *Client) ListCampaigns(ctx context.Context, filter domain.CampaignFilter) ([]domain.Campaign, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCampaigns")
	defer span.End()

	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	if filter.PartnerID != "" {
		q.Set("partner_id", "eq."+filter.PartnerID)
	}
	if filter.Status != "" {
		q.Set("status", "eq."+filter.Status)
	}

	var campaigns []domain.Campaign
	err := c.read(ctx, "supabase/campaigns", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, "campaigns?"+q.Encode())
		if err != nil {
			return err
		}
		return decodeRows(body, &campaigns)
	})
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (c *Client) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetCampaign")
	defer span.End()
	span.SetAttributes(attribute.String("campaign.id", id))

	var campaigns []domain.Campaign
	err := c.read(ctx, "supabase/campaigns", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("campaigns?id=%s&limit=1", eq(id)))
		if err != nil {
			return err
		}
		return decodeRows(body, &campaigns)
	})
	if err != nil {
		return nil, err
	}
	if len(campaigns) == 0 {
		return nil, &domain.ErrNotFound{Resource: "campaign", ID: id}
	}
	return &campaigns[0], nil
}

func (c *Client) CreateCampaign(ctx context.Context, fields map[string]any) (*domain.Campaign, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateCampaign")
	defer span.End()

	var created []domain.Campaign
	err := c.write("supabase/campaigns", func() error {
		body, err := c.doPost(ctx, "campaigns", fields)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &created)
	})
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, &domain.ErrExternalService{Service: "supabase/campaigns", Err: fmt.Errorf("insert returned no rows")}
	}
	return &created[0], nil
}

func (c *Client) TransitionCampaign(ctx context.Context, id, fromStatus string, fields map[string]any) (*domain.Campaign, error) {
	ctx, span := tracer.Start(ctx, "Supabase.TransitionCampaign")
	defer span.End()
	span.SetAttributes(attribute.String("campaign.id", id), attribute.String("from", fromStatus))

	var updated []domain.Campaign
	err := c.write("supabase/campaigns", func() error {
		body, err := c.doPatchReturning(ctx, fmt.Sprintf("campaigns?id=%s&status=%s", eq(id), eq(fromStatus)), fields)
		if err != nil {
			return err
		}
		return decodeRows(body, &updated)
	})
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, nil
	}
	return &updated[0], nil
}

// DeleteCampaign removes the campaign. With onlyStatus set, only a campaign
// still in that status is removed. It reports whether a row was deleted.
func (c *Client) DeleteCampaign(ctx context.Context, id, onlyStatus string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteCampaign")
	defer span.End()
	span.SetAttributes(attribute.String("campaign.id", id))

	path := fmt.Sprintf("campaigns?id=%s", eq(id))
	if onlyStatus != "" {
		path += "&status=" + eq(onlyStatus)
	}

	var deleted []domain.Campaign
	err := c.write("supabase/campaigns", func() error {
		body, err := c.doDeleteReturning(ctx, path)
		if err != nil {
			return err
		}
		return decodeRows(body, &deleted)
	})
	if err != nil {
		return false, err
	}
	return len(deleted) > 0, nil
}
