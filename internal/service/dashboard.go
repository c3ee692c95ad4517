package service

import (
	"context"
	"errors"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"
	"github.com/boddenberg/modcar-console-bfa-go/internal/port"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DashboardService assembles the landing page summaries.
type DashboardService struct {
	roles     port.RoleStore
	profiles  port.ProfileStore
	subs      port.SubscriptionStore
	products  port.ProductStore
	campaigns port.CampaignStore
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewDashboardService creates the dashboard service.
func NewDashboardService(
	roles port.RoleStore,
	profiles port.ProfileStore,
	subs port.SubscriptionStore,
	products port.ProductStore,
	campaigns port.CampaignStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		roles:     roles,
		profiles:  profiles,
		subs:      subs,
		products:  products,
		campaigns: campaigns,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *DashboardService) Admin(ctx context.Context, session *domain.Session) (*domain.AdminDashboard, error) {
	ctx, span := tracer.Start(ctx, "DashboardService.Admin")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("admin_dashboard", time.Since(start))
	}()

	if err := requireRole(session, domain.RoleAdmin, "view the admin dashboard"); err != nil {
		return nil, err
	}

	var (
		partnerIDs []string
		subs       []domain.Subscription
		pending    []domain.Product
		campaigns  []domain.Campaign
		profiles   []domain.Profile
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		partnerIDs, err = s.roles.ListUserIDsByRole(gCtx, domain.RolePartner)
		return err
	})
	g.Go(func() (err error) {
		subs, err = s.subs.ListSubscriptions(gCtx)
		return err
	})
	g.Go(func() (err error) {
		pending, err = s.products.ListProducts(gCtx, domain.ProductFilter{Status: domain.ProductPending})
		return err
	})
	g.Go(func() (err error) {
		campaigns, err = s.campaigns.ListCampaigns(gCtx, domain.CampaignFilter{Status: domain.CampaignPending})
		return err
	})
	g.Go(func() (err error) {
		profiles, err = s.profiles.ListProfiles(gCtx, domain.ProfileFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &domain.AdminDashboard{
		Partners:         len(partnerIDs),
		PendingProducts:  len(pending),
		PendingCampaigns: len(campaigns),
		Customers:        len(profiles),
		MRR:              decimal.Zero,
	}
	for i := range subs {
		if subs[i].IsActive() {
			d.ActiveSubscriptions++
			d.MRR = d.MRR.Add(subs[i].MonthlyRevenue)
		}
	}
	for i := range profiles {
		if profiles[i].IsBlocked() {
			d.BlockedCustomers++
		}
	}
	return d, nil
}

func (s *DashboardService) Partner(ctx context.Context, session *domain.Session) (*domain.PartnerDashboard, error) {
	ctx, span := tracer.Start(ctx, "DashboardService.Partner")
	defer span.End()

	if err := requireRole(session, domain.RolePartner, "view the partner dashboard"); err != nil {
		return nil, err
	}

	var (
		products  []domain.Product
		campaigns []domain.Campaign
		sub       *domain.Subscription
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		products, err = s.products.ListProducts(gCtx, domain.ProductFilter{PartnerID: session.UserID})
		return err
	})
	g.Go(func() (err error) {
		campaigns, err = s.campaigns.ListCampaigns(gCtx, domain.CampaignFilter{PartnerID: session.UserID})
		return err
	})
	g.Go(func() error {
		var err error
		sub, err = s.subs.GetSubscriptionByPartner(gCtx, session.UserID)
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &domain.PartnerDashboard{
		Products:      map[string]int{},
		TotalProducts: len(products),
		Campaigns:     map[string]int{},
	}
	for i := range products {
		d.Products[products[i].Status]++
		d.StockUnits += products[i].Stock
	}
	for i := range campaigns {
		d.Campaigns[campaigns[i].Status]++
		d.Impressions += campaigns[i].Impressions
		d.Clicks += campaigns[i].Clicks
	}

	if sub != nil {
		if plan, ok := domain.LookupPlan(string(sub.Plan)); ok {
			d.Plan = plan.ID
			d.ProductsRemaining = plan.RemainingProducts(len(products))
			d.ProductsLabel = domain.QuotaLabel(d.ProductsRemaining)
		}
	}
	if d.Plan == "" {
		d.ProductsLabel = domain.QuotaLabel(0)
	}
	return d, nil
}
