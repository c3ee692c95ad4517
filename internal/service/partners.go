package service

import (
	"context"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/port"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PartnerService lists partners for admins and exposes a partner's own plan.
type PartnerService struct {
	subs     port.SubscriptionStore
	profiles port.ProfileStore
	products port.ProductStore
	logger   *zap.Logger
}

// NewPartnerService creates the partner service.
func NewPartnerService(subs port.SubscriptionStore, profiles port.ProfileStore, products port.ProductStore, logger *zap.Logger) *PartnerService {
	return &PartnerService{subs: subs, profiles: profiles, products: products, logger: logger}
}

// ListPartners returns every subscription joined with its partner profile.
func (s *PartnerService) ListPartners(ctx context.Context, session *domain.Session) (*domain.PartnerList, error) {
	ctx, span := tracer.Start(ctx, "PartnerService.ListPartners")
	defer span.End()

	if err := requireRole(session, domain.RoleAdmin, "list partners"); err != nil {
		return nil, err
	}

	subs, err := s.subs.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(subs))
	for i := range subs {
		ids = append(ids, subs[i].PartnerID)
	}
	byID, err := profilesByID(ctx, s.profiles, ids)
	if err != nil {
		return nil, err
	}

	list := &domain.PartnerList{
		Partners:       make([]domain.PartnerSummary, 0, len(subs)),
		Total:          len(subs),
		MonthlyRevenue: decimal.Zero,
	}
	for i := range subs {
		summary := domain.PartnerSummary{Subscription: subs[i]}
		if p, ok := byID[subs[i].PartnerID]; ok {
			summary.Name = p.Name
			summary.Email = p.Email
			summary.Company = p.Company
		}
		list.Partners = append(list.Partners, summary)

		if subs[i].IsActive() {
			list.Active++
			list.MonthlyRevenue = list.MonthlyRevenue.Add(subs[i].MonthlyRevenue)
		}
	}
	return list, nil
}

// Subscription returns the caller's plan, quota usage and upgrade options.
func (s *PartnerService) Subscription(ctx context.Context, session *domain.Session) (*domain.SubscriptionOverview, error) {
	ctx, span := tracer.Start(ctx, "PartnerService.Subscription")
	defer span.End()

	if err := requireRole(session, domain.RolePartner, "view the subscription"); err != nil {
		return nil, err
	}

	sub, err := s.subs.GetSubscriptionByPartner(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	plan, ok := domain.LookupPlan(string(sub.Plan))
	if !ok {
		s.logger.Warn("subscription references unknown plan",
			zap.String("partner_id", session.UserID), zap.String("plan", string(sub.Plan)))
		return nil, &domain.ErrNotFound{Resource: "plan", ID: string(sub.Plan)}
	}

	used, err := s.products.CountProducts(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	upgrades := domain.UpgradesFrom(plan.ID)
	views := make([]domain.PlanView, 0, len(upgrades))
	for _, p := range upgrades {
		views = append(views, p.View())
	}

	remaining := plan.RemainingProducts(used)
	return &domain.SubscriptionOverview{
		Subscription:      *sub,
		Plan:              plan.View(),
		ProductsUsed:      used,
		ProductsRemaining: remaining,
		ProductsLabel:     domain.QuotaLabel(remaining),
		Upgrades:          views,
	}, nil
}

// profilesByID resolves the distinct ids with one batched lookup.
func profilesByID(ctx context.Context, store port.ProfileStore, ids []string) (map[string]domain.Profile, error) {
	ids = distinct(ids)
	byID := make(map[string]domain.Profile, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	profiles, err := store.ListProfilesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		byID[p.ID] = p
	}
	return byID, nil
}

// distinct drops empty and repeated ids, keeping first-seen order.
func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
