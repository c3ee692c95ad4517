// Package client holds outbound HTTP clients for third-party services.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("client")

// DefaultResendURL is the Resend send-email endpoint.
const DefaultResendURL = "https://api.resend.com/emails"

const welcomeSubject = "Bem-vindo à ModCar! 🚗"

// ResendMailer sends transactional email through the Resend HTTP API.
// Sends are not retried: a retry after a timeout could deliver twice.
type ResendMailer struct {
	httpClient *http.Client
	url        string
	apiKey     string
	from       string
	appURL     string
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewResendMailer creates a mailer. url is usually DefaultResendURL.
func NewResendMailer(httpClient *http.Client, url, apiKey, from, appURL string, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *ResendMailer {
	return &ResendMailer{
		httpClient: httpClient,
		url:        url,
		apiKey:     apiKey,
		from:       from,
		appURL:     appURL,
		cb:         cb,
		logger:     logger,
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendWelcome sends the partner welcome email and returns the provider's
// response body unchanged.
func (m *ResendMailer) SendWelcome(ctx context.Context, msg *domain.WelcomeEmail) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "ResendMailer.SendWelcome")
	defer span.End()
	span.SetAttributes(attribute.String("plan", msg.Plan))

	html, err := renderWelcome(msg, m.appURL)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(resendRequest{
		From:    m.from,
		To:      []string{msg.Email},
		Subject: welcomeSubject,
		HTML:    html,
	})
	if err != nil {
		return nil, err
	}

	result, err := m.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := m.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("resend returned status %d: %s", resp.StatusCode, body)
		}
		return json.RawMessage(body), nil
	})
	if err != nil {
		m.logger.Warn("welcome email failed", zap.Error(err))
		return nil, &domain.ErrExternalService{Service: "resend", Err: err}
	}

	m.logger.Info("welcome email sent", zap.String("plan", msg.Plan))
	return result.(json.RawMessage), nil
}

func renderWelcome(msg *domain.WelcomeEmail, appURL string) (string, error) {
	var buf bytes.Buffer
	err := welcomeTemplate.Execute(&buf, struct {
		*domain.WelcomeEmail
		AppURL string
	}{msg, appURL})
	if err != nil {
		return "", fmt.Errorf("failed to render welcome email: %w", err)
	}
	return buf.String(), nil
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
  </head>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background: linear-gradient(135deg, #dc2626, #ef4444); color: white; padding: 30px; border-radius: 10px 10px 0 0; text-align: center;">
      <h1 style="margin: 10px 0;">Bem-vindo à ModCar!</h1>
      <p style="margin: 0; opacity: 0.9;">Sua jornada começa agora</p>
    </div>
    <div style="background: #f9fafb; padding: 30px; border-radius: 0 0 10px 10px;">
      <h2 style="color: #dc2626; margin-top: 0;">Olá, {{.Name}}! 👋</h2>
      <p>Ficamos muito felizes em ter você e a <strong>{{.CompanyName}}</strong> como parte da família ModCar!</p>
      <p><strong>🎯 Plano contratado:</strong> <span style="background: #dc2626; color: white; padding: 8px 16px; border-radius: 20px; font-weight: bold;">{{.Plan}}</span></p>
      <h3 style="color: #dc2626;">Próximos passos:</h3>
      <ol>
        <li><strong>Confirme seu email</strong>: clique no link de confirmação que enviamos para validar sua conta.</li>
        <li><strong>Crie sua senha de acesso</strong>: defina uma senha segura para proteger sua conta.</li>
        <li><strong>Comece a cadastrar produtos</strong>: acesse a plataforma e comece a gerenciar seus produtos automotivos.</li>
      </ol>
      <p style="text-align: center;"><a href="{{.AppURL}}" style="display: inline-block; background: #dc2626; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; font-weight: bold;">Acessar Plataforma</a></p>
      <p><strong>📧 Seus dados de acesso:</strong><br><strong>Email:</strong> {{.Email}}<br>Use este email para fazer login na plataforma.</p>
      <p>Se você tiver qualquer dúvida ou precisar de ajuda, nossa equipe de suporte está à disposição para auxiliá-lo.</p>
      <p><strong>Sucesso com seu negócio!</strong><br>Equipe ModCar</p>
    </div>
    <p style="text-align: center; color: #6b7280; font-size: 12px; margin-top: 30px;">Este é um email automático, por favor não responda.</p>
  </body>
</html>
`))
