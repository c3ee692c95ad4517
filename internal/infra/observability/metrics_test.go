package observability_test

import (
	"testing"

	"github.com/boddenberg/modcar-console-bfa-go/internal/domain"
	"github.com/boddenberg/modcar-console-bfa-go/internal/infra/observability"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot(t *testing.T) {
	m := observability.NewMetrics()

	m.IncrProvisioned()
	m.IncrProvisioned()
	m.IncrProvisioningFailure(domain.StepGrantRole)
	m.IncrRollback(true)
	m.IncrDecision("product", "approve")
	m.IncrDecision("campaign", "approve")
	m.IncrDecision("campaign", "reject")
	m.IncrStockSync("success")
	m.IncrStockSync("not_found")
	m.IncrEmail("sent")
	m.IncrCacheHit("session")
	m.IncrCacheHit("session")
	m.IncrCacheHit("session")
	m.IncrCacheMiss("session")

	s := m.Snapshot()

	assert.EqualValues(t, 2, s.PartnersProvisioned)
	assert.EqualValues(t, 1, s.ProvisioningFailures)
	assert.EqualValues(t, 1, s.Rollbacks)
	assert.EqualValues(t, 2, s.Approvals)
	assert.EqualValues(t, 1, s.Rejections)
	assert.EqualValues(t, 1, s.StockSyncs)
	assert.EqualValues(t, 1, s.StockSyncFailures)
	assert.EqualValues(t, 1, s.EmailsSent)
	assert.InDelta(t, 0.75, s.SessionCacheHitRate, 1e-9)
}

func TestSnapshot_Empty(t *testing.T) {
	s := observability.NewMetrics().Snapshot()

	assert.Zero(t, s.PartnersProvisioned)
	assert.Zero(t, s.SessionCacheHitRate)
}
