package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/nanogate/imagegate/internal/repository"
)

// Anonymous callers get a short per-IP cooldown and a weekly cap.
const (
	Cooldown  = 60 * time.Second
	WeeklyCap = 20
)

// RateGate enforces the anonymous limits as pure aggregate queries over
// the append-only usage log: the newest timestamp per IP for the cooldown
// and the 7-day count for the cap. No separate counter state, so the
// decisions are always consistent with the log contents.
type RateGate struct {
	logs *repository.UsageLogRepository
	now  func() time.Time
}

func NewRateGate(logs *repository.UsageLogRepository) *RateGate {
	return &RateGate{
		logs: logs,
		now:  time.Now,
	}
}

// WithClock injects a clock, for tests.
func (g *RateGate) WithClock(now func() time.Time) *RateGate {
	g.now = now
	return g
}

// CheckLimit decides whether ip may generate right now. The cooldown runs
// first: it is the cheaper query and the more common rejection.
func (g *RateGate) CheckLimit(ctx context.Context, ip string) (Decision, error) {
	now := g.now()

	last, err := g.logs.LastUsedAt(ctx, ip)
	if err != nil {
		return Decision{}, err
	}

	if last != nil {
		elapsed := now.Sub(*last)
		if elapsed < Cooldown {
			wait := int((Cooldown - elapsed).Seconds())
			if wait < 1 {
				wait = 1
			}
			return Decision{
				Allowed: false,
				Reason:  fmt.Sprintf("Too many requests. Please wait %d second(s) before generating again.", wait),
			}, nil
		}
	}

	count, err := g.logs.CountSince(ctx, ip, now.Add(-ResetWindow))
	if err != nil {
		return Decision{}, err
	}

	if count >= WeeklyCap {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("Weekly quota exhausted (%d/%d). Please come back next week.", count, WeeklyCap),
		}, nil
	}

	return Decision{Allowed: true, Remaining: WeeklyCap - int(count)}, nil
}

// RecordUsage appends one entry for ip. Call only after a successful
// dispatch.
func (g *RateGate) RecordUsage(ctx context.Context, ip string) error {
	return g.logs.Append(ctx, ip, g.now())
}

// RemainingQuota reports how many generations ip has left this week.
func (g *RateGate) RemainingQuota(ctx context.Context, ip string) (int, error) {
	count, err := g.logs.CountSince(ctx, ip, g.now().Add(-ResetWindow))
	if err != nil {
		return 0, err
	}

	remaining := WeeklyCap - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
