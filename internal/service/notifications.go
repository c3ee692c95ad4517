package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"
	"github.com/boddenberg/modcar-console-bfa-go/internal/port"

	"go.uber.org/zap"
)

const welcomeTimeout = 15 * time.Second

// NotificationService sends the partner welcome email.
type NotificationService struct {
	mailer  port.Mailer // nil when no provider is configured
	metrics *observability.Metrics
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewNotificationService creates the notifier. mailer may be nil.
func NewNotificationService(mailer port.Mailer, metrics *observability.Metrics, logger *zap.Logger) *NotificationService {
	return &NotificationService{mailer: mailer, metrics: metrics, logger: logger}
}

// SendWelcome sends the email synchronously and returns the provider result.
func (n *NotificationService) SendWelcome(ctx context.Context, session *domain.Session, msg *domain.WelcomeEmail) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "NotificationService.SendWelcome")
	defer span.End()

	if session == nil {
		return nil, &domain.ErrUnauthorized{Message: "Sessão ausente"}
	}
	if err := validateStruct(msg); err != nil {
		return nil, err
	}
	return n.send(ctx, msg)
}

// DispatchWelcome sends the email in the background. The outcome is only
// logged: a failed email never undoes the signup that triggered it.
func (n *NotificationService) DispatchWelcome(ctx context.Context, msg *domain.WelcomeEmail) {
	bg := context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(bg, welcomeTimeout)
		defer cancel()

		if _, err := n.send(ctx, msg); err != nil {
			n.logger.Warn("welcome email not delivered", zap.String("plan", msg.Plan), zap.Error(err))
		}
	}()
}

// Wait blocks until background sends finish.
func (n *NotificationService) Wait() {
	n.wg.Wait()
}

func (n *NotificationService) send(ctx context.Context, msg *domain.WelcomeEmail) (json.RawMessage, error) {
	if n.mailer == nil {
		n.metrics.IncrEmail("failed")
		return nil, &domain.ErrExternalService{Service: "resend", Err: errors.New("email provider not configured")}
	}

	result, err := n.mailer.SendWelcome(ctx, msg)
	if err != nil {
		n.metrics.IncrEmail("failed")
		n.metrics.IncrExternalError("resend")
		return nil, err
	}
	n.metrics.IncrEmail("sent")
	return result, nil
}
