package service

import (
	"context"
	"testing"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCustomerFixture() (*CustomerService, *fakeProfiles) {
	_, logger := testDeps()
	profiles := newFakeProfiles(
		domain.Profile{ID: "cust-1", Name: "Ana", Status: domain.ProfileActive},
		domain.Profile{ID: "cust-2", Name: "Bruno", Status: domain.ProfileBlocked},
	)
	orders := &fakeOrders{orders: map[string][]domain.Order{
		"cust-1": {
			{ID: "o-2", CustomerID: "cust-1", TotalPrice: dec("120.50")},
			{ID: "o-1", CustomerID: "cust-1", TotalPrice: dec("79.50")},
		},
	}}
	svc := NewCustomerService(profiles, orders, logger)
	svc.now = clock
	return svc, profiles
}

func TestGetCustomer(t *testing.T) {
	svc, _ := newCustomerFixture()

	d, err := svc.GetCustomer(context.Background(), adminSession, "cust-1")
	require.NoError(t, err)

	assert.Equal(t, "Ana", d.Profile.Name)
	assert.Equal(t, 2, d.OrderCount)
	assert.Equal(t, "o-2", d.Orders[0].ID)
	assert.True(t, dec("200").Equal(d.TotalSpent))
}

func TestGetCustomer_NoOrders(t *testing.T) {
	svc, _ := newCustomerFixture()

	d, err := svc.GetCustomer(context.Background(), adminSession, "cust-2")
	require.NoError(t, err)

	assert.NotNil(t, d.Orders)
	assert.Zero(t, d.OrderCount)
}

func TestBlockCustomer(t *testing.T) {
	svc, profiles := newCustomerFixture()

	p, err := svc.BlockCustomer(context.Background(), adminSession, "cust-1", "  chargeback  ")
	require.NoError(t, err)

	assert.Equal(t, domain.ProfileBlocked, p.Status)
	require.NotNil(t, p.BlockedReason)
	assert.Equal(t, "chargeback", *p.BlockedReason)
	assert.Equal(t, fixedNow, *p.BlockedAt)

	require.Len(t, profiles.updates, 1)
	assert.Equal(t, "chargeback", profiles.updates[0].fields["blocked_reason"])
}

func TestBlockCustomer_EmptyReason(t *testing.T) {
	svc, profiles := newCustomerFixture()

	_, err := svc.BlockCustomer(context.Background(), adminSession, "cust-1", "")

	var verr *domain.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, profiles.updates)
}

func TestBlockCustomer_Missing(t *testing.T) {
	svc, profiles := newCustomerFixture()

	_, err := svc.BlockCustomer(context.Background(), adminSession, "ghost", "spam")

	var nf *domain.ErrNotFound
	require.ErrorAs(t, err, &nf)
	assert.Empty(t, profiles.updates)
}

func TestUnblockCustomer_ClearsBlock(t *testing.T) {
	svc, profiles := newCustomerFixture()

	p, err := svc.UnblockCustomer(context.Background(), adminSession, "cust-2")
	require.NoError(t, err)

	assert.Equal(t, domain.ProfileActive, p.Status)
	assert.Nil(t, p.BlockedAt)
	assert.Nil(t, p.BlockedReason)

	fields := profiles.updates[0].fields
	assert.Nil(t, fields["blocked_at"])
	assert.Nil(t, fields["blocked_reason"])
	assert.Contains(t, fields, "blocked_reason")
}

func TestCustomers_RequireAdmin(t *testing.T) {
	svc, _ := newCustomerFixture()

	_, err := svc.ListCustomers(context.Background(), partnerSession, domain.ProfileFilter{})

	var forbidden *domain.ErrForbidden
	assert.ErrorAs(t, err, &forbidden)
}
