package service

import (
	"context"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"
	"github.com/boddenberg/modcar-console-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ApprovalService moderates partner products and campaigns. Decisions are
// taken only on pending items; the store applies them conditionally so a
// concurrent decision cannot be overwritten.
type ApprovalService struct {
	products  port.ProductStore
	campaigns port.CampaignStore
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewApprovalService creates the moderation service.
func NewApprovalService(products port.ProductStore, campaigns port.CampaignStore, metrics *observability.Metrics, logger *zap.Logger) *ApprovalService {
	return &ApprovalService{
		products:  products,
		campaigns: campaigns,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// ============================================================
// Products
// ============================================================

func (s *ApprovalService) ApproveProduct(ctx context.Context, session *domain.Session, id string) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "ApprovalService.ApproveProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	if err := requireRole(session, domain.RoleAdmin, "approve products"); err != nil {
		return nil, err
	}

	p, err := s.products.TransitionProduct(ctx, id, domain.ProductPending, map[string]any{
		"status":           domain.ProductActive,
		"approved_by":      session.UserID,
		"approved_at":      s.now().UTC(),
		"rejection_reason": nil,
	})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, s.productTransitionError(ctx, id, domain.ProductActive)
	}

	s.decided("product", "approve", id, session)
	return p, nil
}

func (s *ApprovalService) RejectProduct(ctx context.Context, session *domain.Session, id, reason string) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "ApprovalService.RejectProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	if err := requireRole(session, domain.RoleAdmin, "reject products"); err != nil {
		return nil, err
	}
	reason, err := requireReason("reason", reason)
	if err != nil {
		return nil, err
	}

	p, err := s.products.TransitionProduct(ctx, id, domain.ProductPending, map[string]any{
		"status":           domain.ProductRejected,
		"rejection_reason": reason,
	})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, s.productTransitionError(ctx, id, domain.ProductRejected)
	}

	s.decided("product", "reject", id, session)
	return p, nil
}

// productTransitionError explains why a conditional update matched nothing.
func (s *ApprovalService) productTransitionError(ctx context.Context, id, to string) error {
	current, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	return &domain.ErrInvalidTransition{Resource: "product", ID: id, From: current.Status, To: to}
}

// ============================================================
// Campaigns
// ============================================================

func (s *ApprovalService) ApproveCampaign(ctx context.Context, session *domain.Session, id string) (*domain.Campaign, error) {
	ctx, span := tracer.Start(ctx, "ApprovalService.ApproveCampaign")
	defer span.End()
	span.SetAttributes(attribute.String("campaign.id", id))

	if err := requireRole(session, domain.RoleAdmin, "approve campaigns"); err != nil {
		return nil, err
	}

	c, err := s.campaigns.TransitionCampaign(ctx, id, domain.CampaignPending, map[string]any{
		"status":           domain.CampaignApproved,
		"approved_by":      session.UserID,
		"approved_at":      s.now().UTC(),
		"rejection_reason": nil,
	})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, s.campaignTransitionError(ctx, id, domain.CampaignApproved)
	}

	s.decided("campaign", "approve", id, session)
	return c, nil
}

func (s *ApprovalService) RejectCampaign(ctx context.Context, session *domain.Session, id, reason string) (*domain.Campaign, error) {
	ctx, span := tracer.Start(ctx, "ApprovalService.RejectCampaign")
	defer span.End()
	span.SetAttributes(attribute.String("campaign.id", id))

	if err := requireRole(session, domain.RoleAdmin, "reject campaigns"); err != nil {
		return nil, err
	}
	reason, err := requireReason("reason", reason)
	if err != nil {
		return nil, err
	}

	c, err := s.campaigns.TransitionCampaign(ctx, id, domain.CampaignPending, map[string]any{
		"status":           domain.CampaignRejected,
		"rejection_reason": reason,
	})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, s.campaignTransitionError(ctx, id, domain.CampaignRejected)
	}

	s.decided("campaign", "reject", id, session)
	return c, nil
}

func (s *ApprovalService) campaignTransitionError(ctx context.Context, id, to string) error {
	current, err := s.campaigns.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	return &domain.ErrInvalidTransition{Resource: "campaign", ID: id, From: current.Status, To: to}
}

func (s *ApprovalService) decided(resource, decision, id string, session *domain.Session) {
	s.metrics.IncrDecision(resource, decision)
	s.logger.Info("moderation decision",
		zap.String("resource", resource),
		zap.String("decision", decision),
		zap.String("id", id),
		zap.String("admin_id", session.UserID),
	)
}
