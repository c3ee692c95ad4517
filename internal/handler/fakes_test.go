package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/handler"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/cache"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"
	"github.com/boddenberg/modcar-console-bfa-go/internal/service"

	"go.uber.org/zap"
)

const (
	adminToken   = "admin-token"
	partnerToken = "partner-token"
	blockedToken = "blocked-token"
)

// memBackend is an in-memory stand-in for every store port.
type memBackend struct {
	mu        sync.Mutex
	tokens    map[string]*domain.Identity
	roles     map[string]domain.Role
	profiles  map[string]*domain.Profile
	subs      []domain.Subscription
	products  []domain.Product
	campaigns []domain.Campaign
	stock     map[string]*domain.StockProduct
	movements []domain.StockMovement
	rpcErr    error
	signups   int
	seq       int
}

func newMemBackend() *memBackend {
	created := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	reason := "fraude"
	return &memBackend{
		tokens: map[string]*domain.Identity{
			adminToken:   {ID: "admin-1", Email: "admin@modcar.com"},
			partnerToken: {ID: "partner-1", Email: "parceiro@modcar.com"},
			blockedToken: {ID: "customer-9", Email: "bloqueado@modcar.com"},
		},
		roles: map[string]domain.Role{
			"admin-1":   domain.RoleAdmin,
			"partner-1": domain.RolePartner,
		},
		profiles: map[string]*domain.Profile{
			"admin-1":   {ID: "admin-1", Name: "Admin", Email: "admin@modcar.com", Status: domain.ProfileActive, CreatedAt: created},
			"partner-1": {ID: "partner-1", Name: "Oficina Silva", Email: "parceiro@modcar.com", Company: "Silva Peças", Status: domain.ProfileActive, CreatedAt: created},
			"customer-1": {ID: "customer-1", Name: "Ana", Email: "ana@cliente.com", Status: domain.ProfileActive, CreatedAt: created.Add(time.Hour)},
			"customer-2": {ID: "customer-2", Name: "Bruno", Email: "bruno@cliente.com", Status: domain.ProfileActive, CreatedAt: created.Add(2 * time.Hour)},
			"customer-9": {ID: "customer-9", Name: "Carlos", Email: "bloqueado@modcar.com", Status: domain.ProfileBlocked, BlockedReason: &reason, CreatedAt: created},
		},
		subs: []domain.Subscription{{
			ID:        "sub-1",
			PartnerID: "partner-1",
			Plan:      domain.PlanTurbo,
			Status:    domain.SubscriptionActive,
			StartDate: domain.NewDate(created),
		}},
		stock: map[string]*domain.StockProduct{
			"FLT-001": {ID: "prod-flt", Name: "Filtro de óleo", Code: "FLT-001", Stock: 10},
		},
	}
}

// ---- port.IdentityProvider ----

func (m *memBackend) CreateIdentity(_ context.Context, email, _ string, _ map[string]any) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return &domain.Identity{ID: fmt.Sprintf("identity-%d", m.seq), Email: email}, nil
}

func (m *memBackend) DeleteIdentity(context.Context, string) error { return nil }

func (m *memBackend) SignUp(_ context.Context, email, _ string, _ map[string]any) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signups++
	return &domain.Identity{ID: "signup-1", Email: email}, nil
}

func (m *memBackend) IdentityFromToken(_ context.Context, token string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.tokens[token]; ok {
		return id, nil
	}
	return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
}

// ---- port.ProfileStore ----

func (m *memBackend) GetProfile(_ context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: id}
	}
	cp := *p
	return &cp, nil
}

func (m *memBackend) ListProfiles(_ context.Context, filter domain.ProfileFilter) ([]domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Profile
	for _, id := range []string{"customer-2", "customer-1", "partner-1", "admin-1", "customer-9"} {
		p := m.profiles[id]
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *memBackend) ListProfilesByIDs(_ context.Context, ids []string) ([]domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Profile
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memBackend) ListPartnerActivity(context.Context, []string) ([]domain.PartnerActivity, error) {
	return nil, nil
}

func (m *memBackend) UpdateProfile(_ context.Context, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		// profiles of new identities appear on first write
		p = &domain.Profile{ID: id, Status: domain.ProfileActive}
		m.profiles[id] = p
	}
	if v, ok := fields["status"].(string); ok {
		p.Status = v
	}
	return nil
}

// ---- port.RoleStore ----

func (m *memBackend) GetRole(_ context.Context, userID string) (domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.roles[userID]; ok {
		return r, nil
	}
	return domain.RoleCustomer, nil
}

func (m *memBackend) ListUserIDsByRole(_ context.Context, role domain.Role) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, r := range m.roles {
		if r == role {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memBackend) GrantRole(_ context.Context, userID string, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[userID] = role
	return nil
}

func (m *memBackend) RevokeRole(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.roles, userID)
	return nil
}

// ---- port.SubscriptionStore ----

func (m *memBackend) CreateSubscription(_ context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, *sub)
	return sub, nil
}

func (m *memBackend) ListSubscriptions(context.Context) ([]domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Subscription(nil), m.subs...), nil
}

func (m *memBackend) GetSubscriptionByPartner(_ context.Context, partnerID string) (*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.subs {
		if m.subs[i].PartnerID == partnerID {
			s := m.subs[i]
			return &s, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "subscription", ID: partnerID}
}

func (m *memBackend) UpdateProductsCount(_ context.Context, partnerID string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.subs {
		if m.subs[i].PartnerID == partnerID {
			m.subs[i].ProductsCount = count
		}
	}
	return nil
}

// ---- port.ProductStore ----

func (m *memBackend) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Product
	for _, p := range m.products {
		if filter.PartnerID != "" && p.PartnerID != filter.PartnerID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Code != "" && p.Code != filter.Code {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memBackend) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "product", ID: id}
}

func (m *memBackend) CountProducts(_ context.Context, partnerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.products {
		if p.PartnerID == partnerID {
			n++
		}
	}
	return n, nil
}

func (m *memBackend) CreateProducts(_ context.Context, products []domain.Product) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := make([]domain.Product, 0, len(products))
	for _, p := range products {
		m.seq++
		p.ID = fmt.Sprintf("prod-%d", m.seq)
		m.products = append(m.products, p)
		created = append(created, p)
	}
	return created, nil
}

func (m *memBackend) UpdateProduct(_ context.Context, id string, fields map[string]any) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			if v, ok := fields["status"].(string); ok {
				m.products[i].Status = v
			}
			p := m.products[i]
			return &p, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "product", ID: id}
}

func (m *memBackend) TransitionProduct(_ context.Context, id, fromStatus string, fields map[string]any) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id && m.products[i].Status == fromStatus {
			if v, ok := fields["status"].(string); ok {
				m.products[i].Status = v
			}
			p := m.products[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (m *memBackend) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return nil
}

// ---- port.CampaignStore ----

func (m *memBackend) ListCampaigns(_ context.Context, filter domain.CampaignFilter) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if filter.PartnerID != "" && c.PartnerID != filter.PartnerID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memBackend) GetCampaign(_ context.Context, id string) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.campaigns {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "campaign", ID: id}
}

func (m *memBackend) CreateCampaign(_ context.Context, fields map[string]any) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	c := domain.Campaign{ID: fmt.Sprintf("camp-%d", m.seq)}
	c.PartnerID, _ = fields["partner_id"].(string)
	c.Title, _ = fields["title"].(string)
	c.Status, _ = fields["status"].(string)
	m.campaigns = append(m.campaigns, c)
	return &c, nil
}

func (m *memBackend) TransitionCampaign(_ context.Context, id, fromStatus string, fields map[string]any) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.campaigns {
		if m.campaigns[i].ID == id && m.campaigns[i].Status == fromStatus {
			if v, ok := fields["status"].(string); ok {
				m.campaigns[i].Status = v
			}
			c := m.campaigns[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memBackend) DeleteCampaign(_ context.Context, id, onlyStatus string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.campaigns {
		if m.campaigns[i].ID == id && m.campaigns[i].Status == onlyStatus {
			m.campaigns = append(m.campaigns[:i], m.campaigns[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// ---- port.OrderStore ----

func (m *memBackend) ListOrdersByCustomer(context.Context, string) ([]domain.Order, error) {
	return nil, nil
}

// ---- port.StockStore ----

func (m *memBackend) FindProductByCode(_ context.Context, code string) (*domain.StockProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.stock[code]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "product", ID: code}
	}
	cp := *p
	return &cp, nil
}

func (m *memBackend) ApplyStockMovement(_ context.Context, mv *domain.StockMovement) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movements = append(m.movements, *mv)
	if m.rpcErr != nil {
		return nil, m.rpcErr
	}
	return json.RawMessage(`{"previous_stock":10,"new_stock":15}`), nil
}

func (m *memBackend) movementCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.movements)
}

func (m *memBackend) productStatus(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			return p.Status
		}
	}
	return ""
}

// ============================================================
// Router fixture
// ============================================================

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type routerOption func(*handler.Services, *handler.Options)

func withERPKeyHash(hash string, backend *memBackend) routerOption {
	return func(s *handler.Services, _ *handler.Options) {
		s.StockSync = service.NewStockSyncService(backend, hash, observability.NewMetrics(), zap.NewNop())
	}
}

func withRateLimit(rps float64, burst int) routerOption {
	return func(_ *handler.Services, o *handler.Options) {
		o.PublicRateLimitRPS = rps
		o.PublicRateLimitBurst = burst
	}
}

func withTrustedProxy() routerOption {
	return func(_ *handler.Services, o *handler.Options) {
		o.TrustProxyHeaders = true
	}
}

func newTestRouter(t *testing.T, backend *memBackend, opts ...routerOption) http.Handler {
	t.Helper()

	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	notifier := service.NewNotificationService(nil, metrics, logger)
	t.Cleanup(notifier.Wait)

	assumptions := service.NewKPIAssumptions(5.2, 18, 450, 35)
	svc := handler.Services{
		Sessions:      service.NewSessionService(nil, backend, backend, backend, cache.New[domain.Session](time.Minute), metrics, logger),
		Provisioning:  service.NewProvisioningService(backend, backend, backend, backend, notifier, metrics, logger),
		Approval:      service.NewApprovalService(backend, backend, metrics, logger),
		Catalog:       service.NewCatalogService(backend, backend, backend, nil, metrics, logger),
		Campaigns:     service.NewCampaignService(backend, backend, logger),
		Customers:     service.NewCustomerService(backend, backend, logger),
		Partners:      service.NewPartnerService(backend, backend, backend, logger),
		KPIs:          service.NewKPIService(backend, backend, backend, backend, assumptions, metrics, logger),
		Dashboard:     service.NewDashboardService(backend, backend, backend, backend, backend, metrics, logger),
		Notifications: notifier,
		StockSync:     service.NewStockSyncService(backend, "", metrics, logger),
		Funnel:        service.NewFunnelService(backend, notifier, metrics, logger),
	}
	options := handler.Options{}
	for _, opt := range opts {
		opt(&svc, &options)
	}
	return handler.NewRouter(svc, options, metrics, logger)
}
