package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"
	"github.com/boddenberg/modcar-console-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProvisioningService onboards partners: identity, profile, role grant and
// subscription, written one after the other. A failure undoes the steps
// already done, newest first.
type ProvisioningService struct {
	identities port.IdentityProvider
	profiles   port.ProfileStore
	roles      port.RoleStore
	subs       port.SubscriptionStore
	notifier   *NotificationService
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewProvisioningService creates the provisioning service.
func NewProvisioningService(
	identities port.IdentityProvider,
	profiles port.ProfileStore,
	roles port.RoleStore,
	subs port.SubscriptionStore,
	notifier *NotificationService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ProvisioningService {
	return &ProvisioningService{
		identities: identities,
		profiles:   profiles,
		roles:      roles,
		subs:       subs,
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

type compensation struct {
	step domain.ProvisioningStep
	undo func(context.Context) error
}

// CreatePartner provisions a partner on behalf of an admin.
func (s *ProvisioningService) CreatePartner(ctx context.Context, session *domain.Session, req *domain.CreatePartnerRequest) (*domain.CreatedPartner, error) {
	ctx, span := tracer.Start(ctx, "ProvisioningService.CreatePartner")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("create_partner", time.Since(start))
	}()

	if err := requireRole(session, domain.RoleAdmin, "create partners"); err != nil {
		return nil, err
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.Company = strings.TrimSpace(req.Company)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	plan, _ := domain.LookupPlan(req.Plan)
	span.SetAttributes(attribute.String("plan", string(plan.ID)))

	var done []compensation

	// 1. identity
	identity, err := s.identities.CreateIdentity(ctx, req.Email, req.Password, map[string]any{
		"name": req.Name,
	})
	if err != nil {
		return nil, s.fail(ctx, domain.StepCreateIdentity, err, done)
	}
	partnerID := identity.ID
	span.SetAttributes(attribute.String("partner.id", partnerID))
	// Deleting the identity cascades to its profile row.
	done = append(done, compensation{domain.StepCreateIdentity, func(ctx context.Context) error {
		return s.identities.DeleteIdentity(ctx, partnerID)
	}})

	// 2. profile
	err = s.profiles.UpdateProfile(ctx, partnerID, map[string]any{
		"name":    req.Name,
		"company": req.Company,
	})
	if err != nil {
		return nil, s.fail(ctx, domain.StepUpdateProfile, err, done)
	}

	// 3. role grant
	if err := s.roles.GrantRole(ctx, partnerID, domain.RolePartner); err != nil {
		return nil, s.fail(ctx, domain.StepGrantRole, err, done)
	}
	done = append(done, compensation{domain.StepGrantRole, func(ctx context.Context) error {
		return s.roles.RevokeRole(ctx, partnerID)
	}})

	// 4. subscription
	startDate := domain.NewDate(s.now())
	_, err = s.subs.CreateSubscription(ctx, &domain.Subscription{
		PartnerID:      partnerID,
		Plan:           plan.ID,
		Status:         domain.SubscriptionActive,
		StartDate:      startDate,
		RenewalDate:    domain.RenewalDate(startDate),
		MonthlyRevenue: plan.Price,
		ProductsCount:  0,
		UsersCount:     1,
	})
	if err != nil {
		return nil, s.fail(ctx, domain.StepCreateSubscription, err, done)
	}

	s.metrics.IncrProvisioned()
	s.logger.Info("partner provisioned",
		zap.String("partner_id", partnerID),
		zap.String("plan", string(plan.ID)),
	)

	if s.notifier != nil {
		s.notifier.DispatchWelcome(ctx, &domain.WelcomeEmail{
			Email:       identity.Email,
			Name:        req.Name,
			CompanyName: req.Company,
			Plan:        plan.Name,
		})
	}

	email := identity.Email
	if email == "" {
		email = req.Email
	}
	return &domain.CreatedPartner{
		ID:      partnerID,
		Email:   email,
		Name:    req.Name,
		Company: req.Company,
		Plan:    plan.ID,
	}, nil
}

// fail undoes done in reverse order and reports the failing step.
func (s *ProvisioningService) fail(ctx context.Context, step domain.ProvisioningStep, cause error, done []compensation) error {
	s.metrics.IncrProvisioningFailure(step)
	s.logger.Error("partner provisioning failed",
		zap.String("step", string(step)),
		zap.Int("steps_to_undo", len(done)),
		zap.Error(cause),
	)

	if len(done) == 0 {
		return &domain.ErrProvisioning{Step: step, Err: cause}
	}

	// Undo even if the caller has gone away.
	undoCtx := context.WithoutCancel(ctx)

	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		if err := done[i].undo(undoCtx); err != nil {
			s.logger.Error("provisioning compensation failed",
				zap.String("step", string(done[i].step)),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}

	compErr := errors.Join(errs...)
	s.metrics.IncrRollback(compErr == nil)
	return &domain.ErrProvisioning{Step: step, Err: cause, CompensationErr: compErr}
}
