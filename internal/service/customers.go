package service

import (
	"context"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CustomerService backs the admin customers page.
type CustomerService struct {
	profiles port.ProfileStore
	orders   port.OrderStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewCustomerService creates the customer service.
func NewCustomerService(profiles port.ProfileStore, orders port.OrderStore, logger *zap.Logger) *CustomerService {
	return &CustomerService{profiles: profiles, orders: orders, logger: logger, now: time.Now}
}

// ListCustomers returns profiles newest first, optionally filtered.
func (s *CustomerService) ListCustomers(ctx context.Context, session *domain.Session, filter domain.ProfileFilter) ([]domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "CustomerService.ListCustomers")
	defer span.End()

	if err := requireRole(session, domain.RoleAdmin, "list customers"); err != nil {
		return nil, err
	}
	return s.profiles.ListProfiles(ctx, filter)
}

// GetCustomer returns the profile with its order history.
func (s *CustomerService) GetCustomer(ctx context.Context, session *domain.Session, id string) (*domain.CustomerDetail, error) {
	ctx, span := tracer.Start(ctx, "CustomerService.GetCustomer")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id))

	if err := requireRole(session, domain.RoleAdmin, "view customers"); err != nil {
		return nil, err
	}

	var (
		profile *domain.Profile
		orders  []domain.Order
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.profiles.GetProfile(gCtx, id)
		profile = p
		return err
	})
	g.Go(func() error {
		o, err := s.orders.ListOrdersByCustomer(gCtx, id)
		orders = o
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if orders == nil {
		orders = []domain.Order{}
	}
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.TotalPrice)
	}

	return &domain.CustomerDetail{
		Profile:    *profile,
		Orders:     orders,
		OrderCount: len(orders),
		TotalSpent: total,
	}, nil
}

// BlockCustomer blocks a profile. Blocking again replaces the reason.
func (s *CustomerService) BlockCustomer(ctx context.Context, session *domain.Session, id, reason string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "CustomerService.BlockCustomer")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id))

	if err := requireRole(session, domain.RoleAdmin, "block customers"); err != nil {
		return nil, err
	}
	reason, err := requireReason("reason", reason)
	if err != nil {
		return nil, err
	}
	if id == session.UserID {
		return nil, &domain.ErrValidation{Field: "id", Message: "Não é possível bloquear a própria conta"}
	}

	profile, err := s.profiles.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	blockedAt := s.now().UTC()
	err = s.profiles.UpdateProfile(ctx, id, map[string]any{
		"status":         domain.ProfileBlocked,
		"blocked_at":     blockedAt,
		"blocked_reason": reason,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("customer blocked", zap.String("customer_id", id), zap.String("admin_id", session.UserID))

	profile.Status = domain.ProfileBlocked
	profile.BlockedAt = &blockedAt
	profile.BlockedReason = &reason
	return profile, nil
}

// UnblockCustomer reactivates a profile and clears the block record.
func (s *CustomerService) UnblockCustomer(ctx context.Context, session *domain.Session, id string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "CustomerService.UnblockCustomer")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id))

	if err := requireRole(session, domain.RoleAdmin, "unblock customers"); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.profiles.UpdateProfile(ctx, id, map[string]any{
		"status":         domain.ProfileActive,
		"blocked_at":     nil,
		"blocked_reason": nil,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("customer unblocked", zap.String("customer_id", id), zap.String("admin_id", session.UserID))

	profile.Status = domain.ProfileActive
	profile.BlockedAt = nil
	profile.BlockedReason = nil
	return profile, nil
}
