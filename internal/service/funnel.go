package service

import (
	"context"
	"strings"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"
	"github.com/boddenberg/modcar-console-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Checkout statuses and next steps returned to the funnel.
const (
	CheckoutApproved = "approved"
	NextStepSignup   = "signup"
)

// FunnelService backs the public plan, checkout and signup pages.
type FunnelService struct {
	identities port.IdentityProvider
	notifier   *NotificationService
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewFunnelService creates the public funnel service.
func NewFunnelService(identities port.IdentityProvider, notifier *NotificationService, metrics *observability.Metrics, logger *zap.Logger) *FunnelService {
	return &FunnelService{
		identities: identities,
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Plan resolves a plan for display.
func (s *FunnelService) Plan(id string) (domain.PlanView, error) {
	plan, ok := domain.LookupPlan(id)
	if !ok {
		return domain.PlanView{}, &domain.ErrNotFound{Resource: "plan", ID: id}
	}
	return plan.View(), nil
}

// Plans lists every plan from cheapest to most expensive.
func (s *FunnelService) Plans() []domain.PlanView {
	plans := domain.Plans()
	views := make([]domain.PlanView, 0, len(plans))
	for _, p := range plans {
		views = append(views, p.View())
	}
	return views
}

// Checkout validates the card form and approves the payment. No gateway is
// contacted.
func (s *FunnelService) Checkout(ctx context.Context, planID string, req *domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	_, span := tracer.Start(ctx, "FunnelService.Checkout")
	defer span.End()
	span.SetAttributes(attribute.String("plan", planID))

	plan, ok := domain.LookupPlan(planID)
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "plan", ID: planID}
	}

	req.CardNumber = strings.ReplaceAll(strings.TrimSpace(req.CardNumber), " ", "")
	req.CardName = strings.TrimSpace(req.CardName)
	req.Expiry = strings.TrimSpace(req.Expiry)
	req.CVV = strings.TrimSpace(req.CVV)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	result := &domain.CheckoutResult{
		TransactionID: uuid.NewString(),
		Status:        CheckoutApproved,
		Plan:          plan.ID,
		Amount:        plan.Price,
		CardLast4:     req.CardNumber[len(req.CardNumber)-4:],
		ProcessedAt:   s.now().UTC(),
		NextStep:      NextStepSignup,
	}

	s.logger.Info("checkout approved",
		zap.String("transaction_id", result.TransactionID),
		zap.String("plan", string(plan.ID)),
	)
	return result, nil
}

// ValidatePersonal checks the first signup step on its own.
func (s *FunnelService) ValidatePersonal(data *domain.PersonalData) error {
	trimPersonal(data)
	return validateStruct(data)
}

// Signup validates both steps and the plan, registers the identity and
// sends the welcome email in the background.
func (s *FunnelService) Signup(ctx context.Context, req *domain.SignupRequest) (*domain.SignupResult, error) {
	ctx, span := tracer.Start(ctx, "FunnelService.Signup")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("signup", time.Since(start))
	}()

	trimPersonal(&req.Personal)
	trimCompany(&req.Company)
	req.Plan = strings.TrimSpace(req.Plan)

	var planErr error
	if !domain.IsValidPlan(req.Plan) {
		planErr = &domain.ErrValidationSet{Fields: map[string]string{"plan": "Plano inválido"}}
	}
	if err := mergeValidation(validateStruct(req), planErr); err != nil {
		return nil, err
	}
	plan, _ := domain.LookupPlan(req.Plan)
	span.SetAttributes(attribute.String("plan", string(plan.ID)))

	identity, err := s.identities.SignUp(ctx, req.Personal.Email, req.Personal.Password, map[string]any{
		"name":    req.Personal.Name,
		"company": req.Company.CompanyName,
	})
	if err != nil {
		s.logger.Warn("signup failed", zap.String("plan", string(plan.ID)), zap.Error(err))
		return nil, err
	}

	s.logger.Info("signup completed", zap.String("user_id", identity.ID), zap.String("plan", string(plan.ID)))

	if s.notifier != nil {
		s.notifier.DispatchWelcome(ctx, &domain.WelcomeEmail{
			Email:       req.Personal.Email,
			Name:        req.Personal.Name,
			CompanyName: req.Company.CompanyName,
			Plan:        plan.Name,
		})
	}

	email := identity.Email
	if email == "" {
		email = req.Personal.Email
	}
	return &domain.SignupResult{UserID: identity.ID, Email: email, Plan: plan.ID}, nil
}

func trimPersonal(d *domain.PersonalData) {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.TrimSpace(d.Email)
	d.CPF = strings.TrimSpace(d.CPF)
	d.Phone = strings.TrimSpace(d.Phone)
}

func trimCompany(d *domain.CompanyData) {
	d.CompanyName = strings.TrimSpace(d.CompanyName)
	d.CNPJ = strings.TrimSpace(d.CNPJ)
	d.CompanyEmail = strings.TrimSpace(d.CompanyEmail)
	d.CompanyPhone = strings.TrimSpace(d.CompanyPhone)
	d.Address = strings.TrimSpace(d.Address)
}
