// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	// SetWithTTL stores value for ttl, capped at the cache's own TTL.
	SetWithTTL(key string, value T, ttl time.Duration)
	Delete(key string)
}

// IdentityProvider manages authentication accounts.
type IdentityProvider interface {
	// CreateIdentity creates a confirmed account on behalf of an admin.
	CreateIdentity(ctx context.Context, email, password string, metadata map[string]any) (*domain.Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
	// SignUp self-registers an account through the public flow.
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*domain.Identity, error)
	// IdentityFromToken resolves a bearer token to its account.
	IdentityFromToken(ctx context.Context, token string) (*domain.Identity, error)
}

// ProfileStore reads and writes per-identity profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	ListProfiles(ctx context.Context, filter domain.ProfileFilter) ([]domain.Profile, error)
	// ListProfilesByIDs resolves many profiles with one lookup.
	ListProfilesByIDs(ctx context.Context, ids []string) ([]domain.Profile, error)
	ListPartnerActivity(ctx context.Context, ids []string) ([]domain.PartnerActivity, error)
	UpdateProfile(ctx context.Context, id string, fields map[string]any) error
}

// RoleStore manages role grants.
type RoleStore interface {
	GetRole(ctx context.Context, userID string) (domain.Role, error)
	ListUserIDsByRole(ctx context.Context, role domain.Role) ([]string, error)
	GrantRole(ctx context.Context, userID string, role domain.Role) error
	RevokeRole(ctx context.Context, userID string) error
}

// SubscriptionStore manages partner subscriptions.
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, sub *domain.Subscription) (*domain.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]domain.Subscription, error)
	GetSubscriptionByPartner(ctx context.Context, partnerID string) (*domain.Subscription, error)
	UpdateProductsCount(ctx context.Context, partnerID string, count int) error
}

// ProductStore manages catalog items.
type ProductStore interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CountProducts(ctx context.Context, partnerID string) (int, error)
	CreateProducts(ctx context.Context, products []domain.Product) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, id string, fields map[string]any) (*domain.Product, error)
	// TransitionProduct applies fields only while the product is in fromStatus.
	// It returns nil when no row matched.
	TransitionProduct(ctx context.Context, id, fromStatus string, fields map[string]any) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// CampaignStore manages promotional campaigns.
type CampaignStore interface {
	ListCampaigns(ctx context.Context, filter domain.CampaignFilter) ([]domain.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)
	CreateCampaign(ctx context.Context, fields map[string]any) (*domain.Campaign, error)
	// TransitionCampaign applies fields only while the campaign is in fromStatus.
	// It returns nil when no row matched.
	TransitionCampaign(ctx context.Context, id, fromStatus string, fields map[string]any) (*domain.Campaign, error)
	DeleteCampaign(ctx context.Context, id, onlyStatus string) (bool, error)
}

// OrderStore reads purchase history.
type OrderStore interface {
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
}

// StockStore resolves products by code and applies stock movements.
type StockStore interface {
	FindProductByCode(ctx context.Context, code string) (*domain.StockProduct, error)
	ApplyStockMovement(ctx context.Context, m *domain.StockMovement) (json.RawMessage, error)
}

// ImageStore persists uploaded images and returns their public URL.
type ImageStore interface {
	PutImage(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// Mailer sends transactional email.
type Mailer interface {
	SendWelcome(ctx context.Context, msg *domain.WelcomeEmail) (json.RawMessage, error)
}

// TokenVerifier verifies bearer tokens locally.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*domain.Identity, time.Time, error)
}
