package quota

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/nanogate/imagegate/internal/models"
	"github.com/nanogate/imagegate/internal/repository"
	"github.com/nanogate/imagegate/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *storage.Postgres {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	pg := &storage.Postgres{DB: db}
	require.NoError(t, pg.AutoMigrate())
	return pg
}

func newTestAccount(t *testing.T, db *storage.Postgres, used int, lastReset time.Time) *models.Account {
	t.Helper()

	account := &models.Account{
		Username:       "tester-" + uuid.NewString()[:8],
		PasswordHash:   "x",
		QuotaLimit:     models.DefaultQuotaLimit,
		QuotaUsed:      used,
		LastQuotaReset: lastReset,
	}
	require.NoError(t, db.DB.Create(account).Error)
	return account
}

func TestLedgerAuthorizeAllows(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(repository.NewAccountRepository(db))
	account := newTestAccount(t, db, 5, time.Now())

	decision, err := ledger.Authorize(context.Background(), account.ID, 2)

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 2, decision.Cost)
	assert.Equal(t, 13, decision.Remaining)
}

func TestLedgerDeniesWhenCostExceedsRemaining(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(repository.NewAccountRepository(db))
	account := newTestAccount(t, db, 19, time.Now())

	decision, err := ledger.Authorize(context.Background(), account.ID, 2)

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 1, decision.Remaining)
	assert.Contains(t, decision.Reason, "Point quota exceeded")
}

func TestLedgerDeniesAtLimitRegardlessOfCost(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(repository.NewAccountRepository(db))
	account := newTestAccount(t, db, 20, time.Now())

	decision, err := ledger.Authorize(context.Background(), account.ID, 0)

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, 0, decision.Remaining)
}

func TestLedgerLazyWeeklyReset(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewAccountRepository(db)

	start := time.Now().Add(-8 * 24 * time.Hour)
	account := newTestAccount(t, db, 20, start)

	now := time.Now()
	ledger := NewLedger(repo).WithClock(func() time.Time { return now })

	decision, err := ledger.Authorize(context.Background(), account.ID, 1)

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, models.DefaultQuotaLimit-1, decision.Remaining)

	// Reset was persisted, not just applied in memory.
	stored, err := repo.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.QuotaUsed)
	assert.WithinDuration(t, now, stored.LastQuotaReset, time.Second)
}

func TestLedgerNoResetInsideWindow(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewAccountRepository(db)
	account := newTestAccount(t, db, 10, time.Now().Add(-6*24*time.Hour))

	ledger := NewLedger(repo)
	decision, err := ledger.Authorize(context.Background(), account.ID, 1)

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 9, decision.Remaining)
}

func TestLedgerCharge(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewAccountRepository(db)
	account := newTestAccount(t, db, 0, time.Now())

	ledger := NewLedger(repo)
	require.NoError(t, ledger.Charge(context.Background(), account.ID, 2))
	require.NoError(t, ledger.Charge(context.Background(), account.ID, 1))

	stored, err := repo.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.QuotaUsed)
}

func TestRateGateCooldown(t *testing.T) {
	db := newTestDB(t)
	logs := repository.NewUsageLogRepository(db)

	base := time.Now()
	clock := base
	gate := NewRateGate(logs).WithClock(func() time.Time { return clock })

	decision, err := gate.CheckLimit(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	require.NoError(t, gate.RecordUsage(context.Background(), "10.0.0.1"))

	clock = base.Add(10 * time.Second)
	decision, err = gate.CheckLimit(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "wait")

	clock = base.Add(61 * time.Second)
	decision, err = gate.CheckLimit(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestRateGateCooldownIsPerIP(t *testing.T) {
	db := newTestDB(t)
	gate := NewRateGate(repository.NewUsageLogRepository(db))

	require.NoError(t, gate.RecordUsage(context.Background(), "10.0.0.1"))

	decision, err := gate.CheckLimit(context.Background(), "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestRateGateWeeklyCap(t *testing.T) {
	db := newTestDB(t)
	logs := repository.NewUsageLogRepository(db)

	base := time.Now()
	clock := base
	gate := NewRateGate(logs).WithClock(func() time.Time { return clock })

	// Fill the whole weekly allowance, spaced past the cooldown.
	for i := 0; i < WeeklyCap; i++ {
		clock = base.Add(time.Duration(i) * 2 * time.Minute)
		decision, err := gate.CheckLimit(context.Background(), "10.0.0.1")
		require.NoError(t, err)
		require.True(t, decision.Allowed, "request %d should be allowed", i+1)
		require.NoError(t, gate.RecordUsage(context.Background(), "10.0.0.1"))
	}

	clock = clock.Add(2 * time.Minute)
	decision, err := gate.CheckLimit(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "Weekly quota exhausted")
}

func TestRateGateCapIgnoresOldEntries(t *testing.T) {
	db := newTestDB(t)
	logs := repository.NewUsageLogRepository(db)

	base := time.Now()
	for i := 0; i < WeeklyCap; i++ {
		require.NoError(t, logs.Append(context.Background(), "10.0.0.1", base.Add(-8*24*time.Hour)))
	}

	gate := NewRateGate(logs).WithClock(func() time.Time { return base })
	decision, err := gate.CheckLimit(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, WeeklyCap, decision.Remaining)
}

func TestRateGateRemainingQuota(t *testing.T) {
	db := newTestDB(t)
	logs := repository.NewUsageLogRepository(db)

	base := time.Now()
	require.NoError(t, logs.Append(context.Background(), "10.0.0.1", base.Add(-time.Hour)))
	require.NoError(t, logs.Append(context.Background(), "10.0.0.1", base.Add(-2*time.Hour)))

	gate := NewRateGate(logs).WithClock(func() time.Time { return base })
	remaining, err := gate.RemainingQuota(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, WeeklyCap-2, remaining)
}
