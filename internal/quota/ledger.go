package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nanogate/imagegate/internal/repository"
)

// ResetWindow is how long an account's point usage accumulates before the
// next access lazily zeroes it. No background timer.
const ResetWindow = 7 * 24 * time.Hour

// Decision is the outcome of an access check, for both the ledger and the
// rate gate. Denials carry actionable text: remaining seconds or counts.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Cost      int    `json:"cost,omitempty"`
	Remaining int    `json:"remaining"`
	Reason    string `json:"reason,omitempty"`
}

// Ledger is the authoritative per-account point counter. It is
// cost-agnostic: callers decide what a model class costs, the ledger only
// compares usage plus cost against the limit. Row-level atomicity comes
// from the storage layer; the ledger holds no locks of its own.
type Ledger struct {
	accounts *repository.AccountRepository
	now      func() time.Time
}

func NewLedger(accounts *repository.AccountRepository) *Ledger {
	return &Ledger{
		accounts: accounts,
		now:      time.Now,
	}
}

// WithClock injects a clock, for tests exercising the lazy reset.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Authorize checks whether the account can afford cost points, resetting
// usage first if the weekly window has elapsed.
func (l *Ledger) Authorize(ctx context.Context, accountID uuid.UUID, cost int) (Decision, error) {
	account, err := l.accounts.FindByID(ctx, accountID)
	if err != nil {
		return Decision{}, err
	}
	if account == nil {
		return Decision{}, fmt.Errorf("quota: account %s not found", accountID)
	}

	now := l.now()
	if now.Sub(account.LastQuotaReset) > ResetWindow {
		if err := l.accounts.ResetQuota(ctx, accountID, now); err != nil {
			return Decision{}, err
		}
		account.QuotaUsed = 0
		account.LastQuotaReset = now
	}

	remaining := account.QuotaLimit - account.QuotaUsed
	if remaining < 0 {
		remaining = 0
	}

	if account.QuotaUsed >= account.QuotaLimit || account.QuotaUsed+cost > account.QuotaLimit {
		return Decision{
			Allowed:   false,
			Cost:      cost,
			Remaining: remaining,
			Reason:    fmt.Sprintf("Point quota exceeded: %d point(s) needed, %d remaining of %d. Quota resets weekly.", cost, remaining, account.QuotaLimit),
		}, nil
	}

	return Decision{Allowed: true, Cost: cost, Remaining: remaining - cost}, nil
}

// Charge books cost points against the account. Call only after the
// dispatch succeeded; a failed dispatch must not consume quota.
func (l *Ledger) Charge(ctx context.Context, accountID uuid.UUID, cost int) error {
	return l.accounts.ChargeQuota(ctx, accountID, cost)
}

// Remaining reports the account's current allowance without authorizing
// anything, applying the same lazy reset.
func (l *Ledger) Remaining(ctx context.Context, accountID uuid.UUID) (Decision, error) {
	return l.Authorize(ctx, accountID, 0)
}
