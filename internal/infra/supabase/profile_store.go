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
// Profiles (implements port.ProfileStore)
// ============================================================

// inChunk bounds the ids per in.(...) lookup.
const inChunk = 100

func (c *Client) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("profile.id", id))

	var profiles []domain.Profile
	err := c.read(ctx, "supabase/profiles", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("profiles?id=%s&limit=1", eq(id)))
		if err != nil {
			return err
		}
		return decodeRows(body, &profiles)
	})
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: id}
	}
	return &profiles[0], nil
}

func (c *Client) ListProfiles(ctx context.Context, filter domain.ProfileFilter) ([]domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProfiles")
	defer span.End()

	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	if filter.Status != "" {
		q.Set("status", "eq."+filter.Status)
	}
	if term := searchTerm(filter.Search); term != "" {
		pattern := "*" + term + "*"
		q.Set("or", fmt.Sprintf("(name.ilike.%[1]s,email.ilike.%[1]s,phone.ilike.%[1]s,cpf.ilike.%[1]s)", pattern))
	}

	var profiles []domain.Profile
	err := c.read(ctx, "supabase/profiles", func() error {
		body, err := c.doRequest(ctx, http.MethodGet, "profiles?"+q.Encode())
		if err != nil {
			return err
		}
		return decodeRows(body, &profiles)
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// ListProfilesByIDs resolves related profiles with one in.(...) query per
// chunk of ids instead of one query per row.
func (c *Client) ListProfilesByIDs(ctx context.Context, ids []string) ([]domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProfilesByIDs")
	defer span.End()

	ids = uniqueIDs(ids)
	span.SetAttributes(attribute.Int("profile.ids", len(ids)))

	profiles := make([]domain.Profile, 0, len(ids))
	for _, part := range chunk(ids, inChunk) {
		var rows []domain.Profile
		path := fmt.Sprintf("profiles?select=*&id=%s", inList(part))
		err := c.read(ctx, "supabase/profiles", func() error {
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}
			return decodeRows(body, &rows)
		})
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, rows...)
	}
	return profiles, nil
}

// ListPartnerActivity returns signup and last-access times of the active
// profiles among ids.
func (c *Client) ListPartnerActivity(ctx context.Context, ids []string) ([]domain.PartnerActivity, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPartnerActivity")
	defer span.End()

	ids = uniqueIDs(ids)
	activity := make([]domain.PartnerActivity, 0, len(ids))
	for _, part := range chunk(ids, inChunk) {
		var rows []domain.PartnerActivity
		path := fmt.Sprintf("profiles?select=id,created_at,last_access_at&status=eq.%s&id=%s", domain.ProfileActive, inList(part))
		err := c.read(ctx, "supabase/profiles", func() error {
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				return err
			}
			return decodeRows(body, &rows)
		})
		if err != nil {
			return nil, err
		}
		activity = append(activity, rows...)
	}
	return activity, nil
}

func (c *Client) UpdateProfile(ctx context.Context, id string, fields map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProfile")
	defer span.End()
	span.SetAttributes(attribute.String("profile.id", id))

	return c.write("supabase/profiles", func() error {
		return c.doPatch(ctx, fmt.Sprintf("profiles?id=%s", eq(id)), fields)
	})
}

// decodeRows unmarshals a PostgREST array; a nil body is an empty result.
func decodeRows[T any](body []byte, out *[]T) error {
	if len(body) == 0 {
		*out = []T{}
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode rows: %w", err)
	}
	return nil
}
