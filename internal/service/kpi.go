package service

import (
	"context"
	"math"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"
	"github.com/boddenberg/modcar-console-bfa-go/internal/port"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	activityWindow = 30 * 24 * time.Hour
	moneyPlaces    = 2
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// NewKPIAssumptions builds the KPI constants from configured values.
func NewKPIAssumptions(churnRatePct, avgRetentionMonths, cac, profitMarginPct float64) domain.KPIAssumptions {
	return domain.KPIAssumptions{
		ChurnRatePct:       decimal.NewFromFloat(churnRatePct),
		AvgRetentionMonths: decimal.NewFromFloat(avgRetentionMonths),
		CAC:                decimal.NewFromFloat(cac),
		ProfitMarginPct:    decimal.NewFromFloat(profitMarginPct),
	}
}

// KPIService computes the admin KPI report. Results are never cached.
type KPIService struct {
	roles       port.RoleStore
	profiles    port.ProfileStore
	subs        port.SubscriptionStore
	products    port.ProductStore
	assumptions domain.KPIAssumptions
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewKPIService creates the KPI service.
func NewKPIService(
	roles port.RoleStore,
	profiles port.ProfileStore,
	subs port.SubscriptionStore,
	products port.ProductStore,
	assumptions domain.KPIAssumptions,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *KPIService {
	return &KPIService{
		roles:       roles,
		profiles:    profiles,
		subs:        subs,
		products:    products,
		assumptions: assumptions,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Report loads partners, subscriptions and products concurrently and
// derives the KPI set from them.
func (s *KPIService) Report(ctx context.Context, session *domain.Session) (*domain.KPIReport, error) {
	ctx, span := tracer.Start(ctx, "KPIService.Report")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("kpi_report", time.Since(start))
	}()

	if err := requireRole(session, domain.RoleAdmin, "view KPIs"); err != nil {
		return nil, err
	}

	var (
		partners []domain.PartnerActivity
		subs     []domain.Subscription
		products []domain.Product
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ids, err := s.roles.ListUserIDsByRole(gCtx, domain.RolePartner)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		partners, err = s.profiles.ListPartnerActivity(gCtx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		subs, err = s.subs.ListSubscriptions(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.products.ListProducts(gCtx, domain.ProductFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("kpi load failed", zap.Error(err))
		return nil, err
	}

	report := computeKPIs(s.now(), partners, subs, products, s.assumptions)
	return &report, nil
}

// computeKPIs is the pure aggregation over already-loaded rows.
func computeKPIs(now time.Time, partners []domain.PartnerActivity, subs []domain.Subscription, products []domain.Product, a domain.KPIAssumptions) domain.KPIReport {
	monthAgo := now.Add(-activityWindow)
	twoMonthsAgo := now.Add(-2 * activityWindow)

	r := domain.KPIReport{
		GeneratedAt:   now.UTC(),
		TotalPartners: len(partners),
		Assumptions:   a,
	}

	for _, p := range partners {
		if p.LastAccessAt != nil && p.LastAccessAt.After(monthAgo) {
			r.ActivePartners++
		}
		switch {
		case p.CreatedAt.After(monthAgo):
			r.NewPartnersMonth++
		case p.CreatedAt.After(twoMonthsAgo):
			r.NewPartnersPrevious++
		}
	}
	r.GrowthRatePct = growthRate(r.NewPartnersMonth, r.NewPartnersPrevious)

	mrr := decimal.Zero
	planCounts := map[domain.PlanID]int{}
	planRevenue := map[domain.PlanID]decimal.Decimal{}
	for i := range subs {
		if !subs[i].IsActive() {
			continue
		}
		r.ActiveSubscriptions++
		mrr = mrr.Add(subs[i].MonthlyRevenue)
		planCounts[subs[i].Plan]++
		planRevenue[subs[i].Plan] = planRevenue[subs[i].Plan].Add(subs[i].MonthlyRevenue)
	}

	arpu := decimal.Zero
	if r.ActivePartners > 0 {
		arpu = mrr.Div(decimal.NewFromInt(int64(r.ActivePartners)))
	}
	payback := decimal.Zero
	if arpu.IsPositive() {
		payback = a.CAC.Div(arpu)
	}

	r.MRR = mrr.Round(moneyPlaces)
	r.ARR = mrr.Mul(twelve).Round(moneyPlaces)
	r.ARPU = arpu.Round(moneyPlaces)
	r.LTV = arpu.Mul(a.AvgRetentionMonths).Round(moneyPlaces)
	r.PaybackMonth = payback.Round(1)
	r.ChurnMRR = mrr.Mul(a.ChurnRatePct).Div(hundred).Round(moneyPlaces)
	r.TotalRevenue = r.MRR
	r.GrossProfit = mrr.Mul(a.ProfitMarginPct).Div(hundred).Round(moneyPlaces)

	r.TotalProducts = len(products)
	for i := range products {
		switch products[i].Status {
		case domain.ProductActive:
			r.ActiveProducts++
		case domain.ProductPending:
			r.PendingProducts++
		}
	}
	if r.ActivePartners > 0 {
		r.AvgProductsPerPartner = round2(float64(r.TotalProducts) / float64(r.ActivePartners))
	}

	r.PlanDistribution = []domain.PlanShare{}
	for _, plan := range domain.Plans() {
		n := planCounts[plan.ID]
		if n == 0 {
			continue
		}
		r.PlanDistribution = append(r.PlanDistribution, domain.PlanShare{
			Plan:    plan.ID,
			Name:    plan.Name,
			Count:   n,
			Percent: round2(float64(n) / float64(r.ActiveSubscriptions) * 100),
			Revenue: planRevenue[plan.ID].Round(moneyPlaces),
		})
	}

	return r
}

// growthRate compares this month's signups with last month's. With no
// signups last month there is nothing to compare against and the rate is 0.
func growthRate(current, previous int) float64 {
	if previous == 0 {
		return 0
	}
	return round2(float64(current-previous) / float64(previous) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
