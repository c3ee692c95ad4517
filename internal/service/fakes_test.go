package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"

	"go.uber.org/zap"
)

var (
	adminSession   = &domain.Session{UserID: "admin-1", Email: "admin@modcar.com", Role: domain.RoleAdmin}
	partnerSession = &domain.Session{UserID: "partner-1", Email: "parceiro@modcar.com", Role: domain.RolePartner}

	errBackend = errors.New("backend down")
	fixedNow   = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
)

func clock() time.Time { return fixedNow }

func testDeps() (*observability.Metrics, *zap.Logger) {
	return observability.NewMetrics(), zap.NewNop()
}

// ============================================================
// Identities
// ============================================================

type fakeIdentities struct {
	mu        sync.Mutex
	nextID    string
	created   []string
	deleted   []string
	signups   []map[string]any
	createErr error
	deleteErr error
	signUpErr error
	byToken   map[string]*domain.Identity
	lookups   int
}

func (f *fakeIdentities) CreateIdentity(_ context.Context, email, _ string, _ map[string]any) (*domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	id := f.nextID
	if id == "" {
		id = "new-partner"
	}
	f.created = append(f.created, id)
	return &domain.Identity{ID: id, Email: email}, nil
}

func (f *fakeIdentities) DeleteIdentity(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeIdentities) SignUp(_ context.Context, email, _ string, metadata map[string]any) (*domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	f.signups = append(f.signups, metadata)
	return &domain.Identity{ID: "signup-1", Email: email}, nil
}

func (f *fakeIdentities) IdentityFromToken(_ context.Context, token string) (*domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if id, ok := f.byToken[token]; ok {
		return id, nil
	}
	return nil, &domain.ErrUnauthorized{Message: "invalid token"}
}

// ============================================================
// Profiles
// ============================================================

type profileUpdate struct {
	id     string
	fields map[string]any
}

type fakeProfiles struct {
	mu        sync.Mutex
	profiles  map[string]*domain.Profile
	activity  []domain.PartnerActivity
	updates   []profileUpdate
	updateErr error
	batches   [][]string
}

func newFakeProfiles(profiles ...domain.Profile) *fakeProfiles {
	f := &fakeProfiles{profiles: map[string]*domain.Profile{}}
	for i := range profiles {
		p := profiles[i]
		f.profiles[p.ID] = &p
	}
	return f
}

func (f *fakeProfiles) GetProfile(_ context.Context, id string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: id}
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) ListProfiles(_ context.Context, filter domain.ProfileFilter) ([]domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Profile
	for _, p := range f.profiles {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeProfiles) ListProfilesByIDs(_ context.Context, ids []string) ([]domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, ids)
	var out []domain.Profile
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProfiles) ListPartnerActivity(_ context.Context, _ []string) ([]domain.PartnerActivity, error) {
	return f.activity, nil
}

func (f *fakeProfiles) UpdateProfile(_ context.Context, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, profileUpdate{id: id, fields: fields})
	return nil
}

// ============================================================
// Roles
// ============================================================

type fakeRoles struct {
	mu        sync.Mutex
	grants    map[string]domain.Role
	revoked   []string
	grantErr  error
	revokeErr error
}

func newFakeRoles() *fakeRoles {
	return &fakeRoles{grants: map[string]domain.Role{}}
}

func (f *fakeRoles) GetRole(_ context.Context, userID string) (domain.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.grants[userID]; ok {
		return r, nil
	}
	return domain.RoleCustomer, nil
}

func (f *fakeRoles) ListUserIDsByRole(_ context.Context, role domain.Role) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, r := range f.grants {
		if r == role {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeRoles) GrantRole(_ context.Context, userID string, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.grantErr != nil {
		return f.grantErr
	}
	f.grants[userID] = role
	return nil
}

func (f *fakeRoles) RevokeRole(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, userID)
	if f.revokeErr != nil {
		return f.revokeErr
	}
	delete(f.grants, userID)
	return nil
}

// ============================================================
// Subscriptions
// ============================================================

type fakeSubs struct {
	mu        sync.Mutex
	subs      []domain.Subscription
	counts    map[string]int
	createErr error
}

func (f *fakeSubs) CreateSubscription(_ context.Context, sub *domain.Subscription) (*domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.subs = append(f.subs, *sub)
	return sub, nil
}

func (f *fakeSubs) ListSubscriptions(context.Context) ([]domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Subscription(nil), f.subs...), nil
}

func (f *fakeSubs) GetSubscriptionByPartner(_ context.Context, partnerID string) (*domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.subs {
		if f.subs[i].PartnerID == partnerID {
			s := f.subs[i]
			return &s, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "subscription", ID: partnerID}
}

func (f *fakeSubs) UpdateProductsCount(_ context.Context, partnerID string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	f.counts[partnerID] = count
	return nil
}

// ============================================================
// Products and stock
// ============================================================

type fakeProducts struct {
	mu          sync.Mutex
	products    []domain.Product
	inserts     [][]domain.Product
	transitions int
	createErr   error
	seq         int
}

func (f *fakeProducts) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Product
	for _, p := range f.products {
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

func (f *fakeProducts) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "product", ID: id}
}

func (f *fakeProducts) CountProducts(_ context.Context, partnerID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.products {
		if p.PartnerID == partnerID {
			n++
		}
	}
	return n, nil
}

func (f *fakeProducts) CreateProducts(_ context.Context, products []domain.Product) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.inserts = append(f.inserts, products)
	created := make([]domain.Product, 0, len(products))
	for _, p := range products {
		f.seq++
		p.ID = fmt.Sprintf("prod-%d", f.seq)
		f.products = append(f.products, p)
		created = append(created, p)
	}
	return created, nil
}

func (f *fakeProducts) UpdateProduct(_ context.Context, id string, fields map[string]any) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			applyProductFields(&f.products[i], fields)
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "product", ID: id}
}

func (f *fakeProducts) TransitionProduct(_ context.Context, id, fromStatus string, fields map[string]any) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id && f.products[i].Status == fromStatus {
			f.transitions++
			applyProductFields(&f.products[i], fields)
			p := f.products[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeProducts) DeleteProduct(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			f.products = append(f.products[:i], f.products[i+1:]...)
			return nil
		}
	}
	return nil
}

func applyProductFields(p *domain.Product, fields map[string]any) {
	if v, ok := fields["status"].(string); ok {
		p.Status = v
	}
	if v, ok := fields["name"].(string); ok {
		p.Name = v
	}
	if v, ok := fields["stock"].(int); ok {
		p.Stock = v
	}
	if v, ok := fields["rejection_reason"].(string); ok {
		p.RejectionReason = &v
	}
	if v, ok := fields["approved_by"].(string); ok {
		p.ApprovedBy = &v
	}
}

type fakeStock struct {
	mu        sync.Mutex
	byCode    map[string]domain.StockProduct
	movements []domain.StockMovement
	rpcErr    error
}

func (f *fakeStock) FindProductByCode(_ context.Context, code string) (*domain.StockProduct, error) {
	p, ok := f.byCode[code]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "product", ID: code}
	}
	return &p, nil
}

func (f *fakeStock) ApplyStockMovement(_ context.Context, m *domain.StockMovement) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.movements = append(f.movements, *m)
	if f.rpcErr != nil {
		return nil, f.rpcErr
	}
	return json.RawMessage(`{"new_stock":12}`), nil
}

// ============================================================
// Campaigns and orders
// ============================================================

type fakeCampaigns struct {
	mu          sync.Mutex
	campaigns   []domain.Campaign
	created     []map[string]any
	transitions int
	deletes     int
}

func (f *fakeCampaigns) ListCampaigns(_ context.Context, filter domain.CampaignFilter) ([]domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Campaign
	for _, c := range f.campaigns {
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

func (f *fakeCampaigns) GetCampaign(_ context.Context, id string) (*domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.campaigns {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "campaign", ID: id}
}

func (f *fakeCampaigns) CreateCampaign(_ context.Context, fields map[string]any) (*domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, fields)
	c := domain.Campaign{ID: fmt.Sprintf("camp-%d", len(f.created))}
	c.PartnerID, _ = fields["partner_id"].(string)
	c.Title, _ = fields["title"].(string)
	c.Status, _ = fields["status"].(string)
	f.campaigns = append(f.campaigns, c)
	return &c, nil
}

func (f *fakeCampaigns) TransitionCampaign(_ context.Context, id, fromStatus string, fields map[string]any) (*domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.campaigns {
		if f.campaigns[i].ID == id && f.campaigns[i].Status == fromStatus {
			f.transitions++
			if v, ok := fields["status"].(string); ok {
				f.campaigns[i].Status = v
			}
			if v, ok := fields["rejection_reason"].(string); ok {
				f.campaigns[i].RejectionReason = &v
			}
			c := f.campaigns[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeCampaigns) DeleteCampaign(_ context.Context, id, onlyStatus string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.campaigns {
		if f.campaigns[i].ID == id && f.campaigns[i].Status == onlyStatus {
			f.deletes++
			f.campaigns = append(f.campaigns[:i], f.campaigns[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeOrders struct {
	orders map[string][]domain.Order
	err    error
}

func (f *fakeOrders) ListOrdersByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.orders[customerID], nil
}

// ============================================================
// Images, mail and tokens
// ============================================================

type fakeImages struct {
	keys  []string
	types []string
}

func (f *fakeImages) PutImage(_ context.Context, key, contentType string, body io.Reader, _ int64) (string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	f.types = append(f.types, contentType)
	return "https://cdn.example.com/product-images/" + key, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []domain.WelcomeEmail
	err  error
}

func (f *fakeMailer) SendWelcome(_ context.Context, msg *domain.WelcomeEmail) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, *msg)
	return json.RawMessage(`{"id":"email-1"}`), nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeVerifier struct {
	identities map[string]*domain.Identity
	expires    map[string]time.Time // defaults to an hour after fixedNow
	calls      int
}

func (f *fakeVerifier) VerifyAccessToken(token string) (*domain.Identity, time.Time, error) {
	f.calls++
	if id, ok := f.identities[token]; ok {
		exp, set := f.expires[token]
		if !set {
			exp = fixedNow.Add(time.Hour)
		}
		copied := *id
		return &copied, exp, nil
	}
	return nil, time.Time{}, &domain.ErrUnauthorized{Message: "invalid token"}
}
