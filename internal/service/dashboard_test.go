package service

import (
	"context"
	"testing"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminDashboard(t *testing.T) {
	metrics, logger := testDeps()
	roles := newFakeRoles()
	roles.grants["partner-1"] = domain.RolePartner
	roles.grants["partner-2"] = domain.RolePartner
	roles.grants["admin-1"] = domain.RoleAdmin
	profiles := newFakeProfiles(
		domain.Profile{ID: "c1", Status: domain.ProfileActive},
		domain.Profile{ID: "c2", Status: domain.ProfileBlocked},
	)
	subs := &fakeSubs{subs: []domain.Subscription{
		{PartnerID: "partner-1", Status: domain.SubscriptionActive, MonthlyRevenue: dec("99.90")},
		{PartnerID: "partner-2", Status: domain.SubscriptionInactive, MonthlyRevenue: dec("249.90")},
	}}
	products := &fakeProducts{products: []domain.Product{
		{ID: "p1", Status: domain.ProductPending},
		{ID: "p2", Status: domain.ProductActive},
	}}
	campaigns := &fakeCampaigns{campaigns: []domain.Campaign{{ID: "c1", Status: domain.CampaignPending}}}

	svc := NewDashboardService(roles, profiles, subs, products, campaigns, metrics, logger)
	d, err := svc.Admin(context.Background(), adminSession)
	require.NoError(t, err)

	assert.Equal(t, 2, d.Partners)
	assert.Equal(t, 1, d.ActiveSubscriptions)
	assert.True(t, dec("99.90").Equal(d.MRR))
	assert.Equal(t, 1, d.PendingProducts)
	assert.Equal(t, 1, d.PendingCampaigns)
	assert.Equal(t, 2, d.Customers)
	assert.Equal(t, 1, d.BlockedCustomers)
}

func TestPartnerDashboard(t *testing.T) {
	metrics, logger := testDeps()
	subs := &fakeSubs{subs: []domain.Subscription{
		{PartnerID: "partner-1", Plan: domain.PlanTurbo, Status: domain.SubscriptionActive},
	}}
	products := &fakeProducts{products: []domain.Product{
		{ID: "p1", PartnerID: "partner-1", Status: domain.ProductActive, Stock: 4},
		{ID: "p2", PartnerID: "partner-1", Status: domain.ProductPending, Stock: 6},
		{ID: "p3", PartnerID: "partner-2", Status: domain.ProductActive, Stock: 100},
	}}
	campaigns := &fakeCampaigns{campaigns: []domain.Campaign{
		{ID: "c1", PartnerID: "partner-1", Status: domain.CampaignActive, Impressions: 300, Clicks: 12},
	}}

	svc := NewDashboardService(newFakeRoles(), newFakeProfiles(), subs, products, campaigns, metrics, logger)
	d, err := svc.Partner(context.Background(), partnerSession)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"active": 1, "pending": 1}, d.Products)
	assert.Equal(t, 10, d.StockUnits)
	assert.Equal(t, 300, d.Impressions)
	assert.Equal(t, domain.PlanTurbo, d.Plan)
	assert.Equal(t, 98, d.ProductsRemaining)
	assert.Equal(t, "98", d.ProductsLabel)
}

func TestPartnerList_TotalsAndBatchedNames(t *testing.T) {
	_, logger := testDeps()
	subs := &fakeSubs{subs: []domain.Subscription{
		{PartnerID: "partner-1", Plan: domain.PlanV6, Status: domain.SubscriptionActive, MonthlyRevenue: dec("249.90")},
		{PartnerID: "partner-2", Plan: domain.PlanV12, Status: domain.SubscriptionActive, MonthlyRevenue: dec("499.90")},
		{PartnerID: "partner-3", Plan: domain.PlanTurbo, Status: domain.SubscriptionCancelled, MonthlyRevenue: dec("99.90")},
	}}
	profiles := newFakeProfiles(
		domain.Profile{ID: "partner-1", Name: "Carlos", Company: "Auto Peças Lima"},
		domain.Profile{ID: "partner-2", Name: "Dora", Company: "Dora Motors"},
	)

	svc := NewPartnerService(subs, profiles, &fakeProducts{}, logger)
	list, err := svc.ListPartners(context.Background(), adminSession)
	require.NoError(t, err)

	assert.Equal(t, 3, list.Total)
	assert.Equal(t, 2, list.Active)
	assert.True(t, dec("749.80").Equal(list.MonthlyRevenue))
	assert.Equal(t, "Dora Motors", list.Partners[1].Company)
	assert.Empty(t, list.Partners[2].Name)
	require.Len(t, profiles.batches, 1)
	assert.Len(t, profiles.batches[0], 3)
}

func TestSubscriptionOverview(t *testing.T) {
	_, logger := testDeps()
	subs := &fakeSubs{subs: []domain.Subscription{
		{PartnerID: "partner-1", Plan: domain.PlanV6, Status: domain.SubscriptionActive},
	}}
	products := &fakeProducts{products: []domain.Product{{ID: "p1", PartnerID: "partner-1"}}}

	svc := NewPartnerService(subs, newFakeProfiles(), products, logger)
	o, err := svc.Subscription(context.Background(), partnerSession)
	require.NoError(t, err)

	assert.Equal(t, 1, o.ProductsUsed)
	assert.Equal(t, 499, o.ProductsRemaining)
	require.Len(t, o.Upgrades, 1)
	assert.Equal(t, domain.PlanV12, o.Upgrades[0].ID)
	assert.Equal(t, "Ilimitado", o.Upgrades[0].ProductsLabel)
}
