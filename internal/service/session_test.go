package service

import (
	"context"
	"testing"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionFixture(profiles ...domain.Profile) (*SessionService, *fakeVerifier, *fakeProfiles, *fakeRoles) {
	metrics, logger := testDeps()
	verifier := &fakeVerifier{identities: map[string]*domain.Identity{
		"tok-partner": {ID: "partner-1", Email: "parceiro@modcar.com"},
	}}
	store := newFakeProfiles(profiles...)
	roles := newFakeRoles()
	roles.grants["partner-1"] = domain.RolePartner

	svc := NewSessionService(verifier, &fakeIdentities{}, roles, store, cache.New[domain.Session](time.Minute), metrics, logger)
	svc.now = clock
	return svc, verifier, store, roles
}

func TestResolve_PartnerSession(t *testing.T) {
	svc, _, profiles, _ := newSessionFixture(domain.Profile{ID: "partner-1", Status: domain.ProfileActive})

	s, err := svc.Resolve(context.Background(), "tok-partner")
	require.NoError(t, err)

	assert.Equal(t, "partner-1", s.UserID)
	assert.Equal(t, domain.RolePartner, s.Role)
	assert.Equal(t, "tok-partner", s.Token)

	require.Len(t, profiles.updates, 1)
	assert.Equal(t, fixedNow, profiles.updates[0].fields["last_access_at"])
}

func TestResolve_CachesPerToken(t *testing.T) {
	svc, verifier, profiles, _ := newSessionFixture(domain.Profile{ID: "partner-1", Status: domain.ProfileActive})

	for i := 0; i < 3; i++ {
		_, err := svc.Resolve(context.Background(), "tok-partner")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, verifier.calls)
	assert.Len(t, profiles.updates, 1)

	svc.Forget("tok-partner")
	_, err := svc.Resolve(context.Background(), "tok-partner")
	require.NoError(t, err)
	assert.Equal(t, 2, verifier.calls)
}

func TestResolve_ExpiredTokenNotServedFromCache(t *testing.T) {
	svc, verifier, _, _ := newSessionFixture(domain.Profile{ID: "partner-1", Status: domain.ProfileActive})
	verifier.expires = map[string]time.Time{"tok-partner": fixedNow.Add(time.Second)}

	s, err := svc.Resolve(context.Background(), "tok-partner")
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(time.Second), s.ExpiresAt)

	now := fixedNow.Add(2 * time.Second)
	svc.now = func() time.Time { return now }

	_, err = svc.Resolve(context.Background(), "tok-partner")
	var unauthorized *domain.ErrUnauthorized
	require.ErrorAs(t, err, &unauthorized)
	assert.Equal(t, 1, verifier.calls)

	// the stale entry is gone, so the next attempt goes back to the verifier
	_, _ = svc.Resolve(context.Background(), "tok-partner")
	assert.Equal(t, 2, verifier.calls)
}

func TestResolve_LapsedIdentityRejected(t *testing.T) {
	svc, verifier, profiles, _ := newSessionFixture(domain.Profile{ID: "partner-1", Status: domain.ProfileActive})
	// the identity provider may accept a token this clock already sees as lapsed
	verifier.expires = map[string]time.Time{"tok-partner": fixedNow.Add(-time.Second)}

	var unauthorized *domain.ErrUnauthorized
	for i := 0; i < 2; i++ {
		_, err := svc.Resolve(context.Background(), "tok-partner")
		require.ErrorAs(t, err, &unauthorized)
	}

	assert.Equal(t, 2, verifier.calls)
	assert.Empty(t, profiles.updates)
}

func TestResolve_BlockedProfile(t *testing.T) {
	reason := "fraude"
	svc, _, profiles, _ := newSessionFixture(domain.Profile{ID: "partner-1", Status: domain.ProfileBlocked, BlockedReason: &reason})

	_, err := svc.Resolve(context.Background(), "tok-partner")

	var blocked *domain.ErrAccountBlocked
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, "fraude", blocked.Reason)
	assert.Empty(t, profiles.updates)
}

func TestResolve_MissingProfileIsTolerated(t *testing.T) {
	svc, _, _, _ := newSessionFixture()

	s, err := svc.Resolve(context.Background(), "tok-partner")
	require.NoError(t, err)
	assert.Equal(t, domain.RolePartner, s.Role)
}

func TestResolve_InvalidToken(t *testing.T) {
	svc, _, _, _ := newSessionFixture()

	_, err := svc.Resolve(context.Background(), "garbage")

	var unauthorized *domain.ErrUnauthorized
	assert.ErrorAs(t, err, &unauthorized)

	_, err = svc.Resolve(context.Background(), "")
	assert.ErrorAs(t, err, &unauthorized)
}

func TestResolve_FallsBackToIdentityProvider(t *testing.T) {
	metrics, logger := testDeps()
	identities := &fakeIdentities{byToken: map[string]*domain.Identity{
		"opaque": {ID: "cust-1", Email: "cliente@x.com"},
	}}
	svc := NewSessionService(nil, identities, newFakeRoles(), newFakeProfiles(), cache.New[domain.Session](time.Minute), metrics, logger)

	s, err := svc.Resolve(context.Background(), "opaque")
	require.NoError(t, err)

	assert.Equal(t, domain.RoleCustomer, s.Role)
	assert.Equal(t, 1, identities.lookups)
}

func TestTokenKey_DoesNotContainToken(t *testing.T) {
	key := tokenKey("secret-token")
	assert.Len(t, key, 64)
	assert.NotContains(t, key, "secret-token")
}
