package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"
	"github.com/boddenberg/modcar-console-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SessionService turns bearer tokens into sessions.
type SessionService struct {
	verifier   port.TokenVerifier // nil asks the identity provider instead
	identities port.IdentityProvider
	roles      port.RoleStore
	profiles   port.ProfileStore
	cache      port.Cache[domain.Session]
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewSessionService creates the session resolver. verifier may be nil.
func NewSessionService(
	verifier port.TokenVerifier,
	identities port.IdentityProvider,
	roles port.RoleStore,
	profiles port.ProfileStore,
	cache port.Cache[domain.Session],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		verifier:   verifier,
		identities: identities,
		roles:      roles,
		profiles:   profiles,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Resolve returns the session behind token. Sessions are cached per token;
// on a miss the profile is checked for a block and its last access is
// refreshed.
func (s *SessionService) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "SessionService.Resolve")
	defer span.End()

	if token == "" {
		return nil, &domain.ErrUnauthorized{Message: "Token ausente"}
	}

	key := tokenKey(token)
	if cached, ok := s.cache.Get(key); ok {
		if cached.Expired(s.now()) {
			s.Forget(token)
			return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
		}
		s.metrics.IncrCacheHit("session")
		cached.Token = token
		return &cached, nil
	}
	s.metrics.IncrCacheMiss("session")

	identity, err := s.identify(ctx, token)
	if err != nil {
		return nil, err
	}
	if !identity.ExpiresAt.IsZero() && !s.now().Before(identity.ExpiresAt) {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}
	span.SetAttributes(attribute.String("user.id", identity.ID))

	role, err := s.roles.GetRole(ctx, identity.ID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetProfile(ctx, identity.ID)
	var notFound *domain.ErrNotFound
	switch {
	case errors.As(err, &notFound):
		// identities created outside the console may have no profile yet
	case err != nil:
		return nil, err
	case profile.IsBlocked():
		reason := ""
		if profile.BlockedReason != nil {
			reason = *profile.BlockedReason
		}
		s.logger.Warn("blocked account refused", zap.String("user_id", identity.ID))
		return nil, &domain.ErrAccountBlocked{Reason: reason}
	default:
		s.touch(ctx, identity.ID)
	}

	session := domain.Session{UserID: identity.ID, Email: identity.Email, Role: role, ExpiresAt: identity.ExpiresAt}
	if session.ExpiresAt.IsZero() {
		s.cache.Set(key, session)
	} else {
		s.cache.SetWithTTL(key, session, session.ExpiresAt.Sub(s.now()))
	}

	session.Token = token
	return &session, nil
}

// Forget drops the cached session for token.
func (s *SessionService) Forget(token string) {
	s.cache.Delete(tokenKey(token))
}

func (s *SessionService) identify(ctx context.Context, token string) (*domain.Identity, error) {
	if s.verifier != nil {
		identity, expiresAt, err := s.verifier.VerifyAccessToken(token)
		if err != nil {
			return nil, err
		}
		identity.ExpiresAt = expiresAt
		return identity, nil
	}
	return s.identities.IdentityFromToken(ctx, token)
}

// touch records the access; failing to do so never fails the request.
func (s *SessionService) touch(ctx context.Context, userID string) {
	err := s.profiles.UpdateProfile(ctx, userID, map[string]any{"last_access_at": s.now().UTC()})
	if err != nil {
		s.logger.Warn("failed to refresh last access", zap.String("user_id", userID), zap.Error(err))
	}
}

// tokenKey keeps raw tokens out of cache keys.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
