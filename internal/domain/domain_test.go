package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlans_Order(t *testing.T) {
	plans := domain.Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, domain.PlanTurbo, plans[0].ID)
	assert.Equal(t, domain.PlanV6, plans[1].ID)
	assert.Equal(t, domain.PlanV12, plans[2].ID)
}

func TestLookupPlan(t *testing.T) {
	p, ok := domain.LookupPlan("v6")
	require.True(t, ok)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("249.90")))
	assert.Equal(t, 500, p.MaxProducts)

	_, ok = domain.LookupPlan("v8")
	assert.False(t, ok)
	assert.False(t, domain.IsValidPlan(""))
}

func TestPlanView_UnlimitedLabel(t *testing.T) {
	v12, _ := domain.LookupPlan("v12")
	view := v12.View()
	assert.Equal(t, "Ilimitado", view.ProductsLabel)
	assert.Equal(t, "Ilimitado", view.UsersLabel)

	turbo, _ := domain.LookupPlan("turbo")
	assert.Equal(t, "100", turbo.View().ProductsLabel)
}

func TestPlan_ProductQuota(t *testing.T) {
	turbo, _ := domain.LookupPlan("turbo")
	assert.True(t, turbo.AllowsProducts(99))
	assert.False(t, turbo.AllowsProducts(100))
	assert.Equal(t, 0, turbo.RemainingProducts(120))

	v12, _ := domain.LookupPlan("v12")
	assert.True(t, v12.AllowsProducts(1_000_000))
	assert.Equal(t, domain.Unlimited, v12.RemainingProducts(10))
}

func TestUpgradesFrom(t *testing.T) {
	ups := domain.UpgradesFrom(domain.PlanV6)
	require.Len(t, ups, 1)
	assert.Equal(t, domain.PlanV12, ups[0].ID)

	assert.Empty(t, domain.UpgradesFrom(domain.PlanV12))
}

func TestRenewalDate(t *testing.T) {
	tests := []struct {
		start string
		want  string
	}{
		{"2026-03-15", "2027-03-15"},
		{"2026-12-31", "2027-12-31"},
		{"2028-02-29", "2029-03-01"},
	}
	for _, tt := range tests {
		t.Run(tt.start, func(t *testing.T) {
			start, err := domain.ParseDate(tt.start)
			require.NoError(t, err)
			assert.Equal(t, tt.want, domain.RenewalDate(start).String())
		})
	}
}

func TestDate_JSON(t *testing.T) {
	var d domain.Date
	require.NoError(t, json.Unmarshal([]byte(`"2026-05-04T18:30:00Z"`), &d))
	assert.Equal(t, "2026-05-04", d.String())

	out, err := json.Marshal(domain.NewDate(time.Date(2026, 1, 2, 23, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, `"2026-01-02"`, string(out))

	out, err = json.Marshal(domain.Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))

	assert.Error(t, json.Unmarshal([]byte(`"04/05/2026"`), &d))
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page := domain.Paginate(items, 2, 2)
	assert.Equal(t, []int{3, 4}, page.Data)
	assert.Equal(t, 5, page.Total)
	assert.True(t, page.HasMore)

	last := domain.Paginate(items, 3, 2)
	assert.Equal(t, []int{5}, last.Data)
	assert.False(t, last.HasMore)

	past := domain.Paginate(items, 9, 2)
	assert.NotNil(t, past.Data)
	assert.Empty(t, past.Data)
}

func TestErrProvisioning(t *testing.T) {
	cause := &domain.ErrConflict{Message: "email already registered"}
	err := &domain.ErrProvisioning{Step: domain.StepCreateIdentity, Err: cause}

	assert.True(t, err.RolledBack())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "create_identity")
}
