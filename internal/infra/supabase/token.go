package supabase

import (
	"fmt"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the claims GoTrue puts in access tokens.
type AccessClaims struct {
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates access tokens with the project's JWT secret,
// avoiding a round trip to GoTrue per request.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for HS256 tokens.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// VerifyAccessToken returns the token's identity and expiry.
func (v *TokenVerifier) VerifyAccessToken(tokenString string) (*domain.Identity, time.Time, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, time.Time{}, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, time.Time{}, &domain.ErrUnauthorized{Message: "Token inválido"}
	}
	if claims.Role != "authenticated" {
		return nil, time.Time{}, &domain.ErrUnauthorized{Message: "Tipo de token inválido"}
	}

	return &domain.Identity{
		ID:       claims.Subject,
		Email:    claims.Email,
		Metadata: claims.UserMetadata,
	}, claims.ExpiresAt.Time, nil
}

// tokenExpiry reads the exp claim without checking the signature. Only use
// it on tokens GoTrue has already accepted. Opaque tokens yield zero.
func tokenExpiry(tokenString string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
