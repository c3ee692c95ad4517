package handler

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"
	"github.com/boddenberg/modcar-console-bfa-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type contextKey string

const sessionKey contextKey = "session"

// bearerToken returns the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// SessionMiddleware resolves the bearer token into a session and injects it
// into the request context.
func SessionMiddleware(sessions *service.SessionService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Formato de token inválido")
				return
			}

			session, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}

			observability.AnnotateCaller(r.Context(), session.UserID, string(session.Role))
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequireRole rejects sessions without the given role. It must run after
// SessionMiddleware.
func RequireRole(role domain.Role, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := SessionFromContext(r.Context())
			if session == nil {
				writeError(w, http.StatusUnauthorized, "Sessão ausente")
				return
			}
			if session.Role != role {
				logger.Warn("auth: role required",
					zap.String("path", r.URL.Path),
					zap.String("role", string(role)),
					zap.String("user_id", session.UserID),
				)
				writeError(w, http.StatusForbidden, "Acesso negado")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithSession stores the session in ctx.
func WithSession(ctx context.Context, session *domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext extracts the resolved session, or nil.
func SessionFromContext(ctx context.Context) *domain.Session {
	v, _ := ctx.Value(sessionKey).(*domain.Session)
	return v
}

// ============================================================
// Per-client rate limiting for the public funnel
// ============================================================

const limiterIdle = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client address.
type ipLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     rate.Limit
	burst   int
	now     func() time.Time
}

func newIPLimiter(rps float64, burst int) *ipLimiter {
	return &ipLimiter{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

func (l *ipLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, c := range l.clients {
		if now.Sub(c.lastSeen) > limiterIdle {
			delete(l.clients, k)
		}
	}

	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// RateLimitMiddleware limits requests per client IP. A non-positive rps
// disables limiting.
func RateLimitMiddleware(rps float64, burst int, logger *zap.Logger) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := newIPLimiter(rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if !limiter.allow(key) {
				logger.Warn("rate limit exceeded", zap.String("client", key), zap.String("path", r.URL.Path))
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "Muitas requisições, tente novamente em instantes")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP reads RemoteAddr. It reflects forwarded headers only when the
// router trusts them (Options.TrustProxyHeaders).
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
