package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/thepool/internal/domain"
)

// Action decides what happens once a window's limit is reached.
type Action string

const (
	// ActionWarn logs and lets the call through.
	ActionWarn Action = "warn"
	// ActionReject fails the call with domain.ErrEmbeddingQuotaExceeded.
	ActionReject Action = "reject"
)

// ParseAction maps a config value to an Action. Anything but "reject" warns.
func ParseAction(s string) Action {
	if s == string(ActionReject) {
		return ActionReject
	}
	return ActionWarn
}

// Period names used in keys, metrics and usage reports.
const (
	PeriodDaily   = "daily"
	PeriodMonthly = "monthly"
)

// CounterStore persists window totals.
type CounterStore interface {
	Add(ctx context.Context, key string, n int64, ttl time.Duration) error
	Load(ctx context.Context, key string) (int64, error)
}

// WindowUsage is a point-in-time view of one budget window.
type WindowUsage struct {
	Period    string    `json:"period"`
	Limit     int64     `json:"limit"` // 0 means unlimited
	Used      int64     `json:"used"`
	Remaining int64     `json:"remaining"` // -1 when unlimited
	Exhausted bool      `json:"exhausted"`
	ResetsAt  time.Time `json:"resets_at"`
}

type window struct {
	period string
	limit  int64
	used   int64
	start  time.Time
	ttl    time.Duration
	floor  func(time.Time) time.Time
	next   func(time.Time) time.Time
	layout string
}

func (w *window) roll(now time.Time) {
	if s := w.floor(now); s.After(w.start) {
		w.start = s
		w.used = 0
	}
}

func (w *window) exceeded() bool { return w.limit > 0 && w.used >= w.limit }

func (w *window) remaining() int64 {
	if w.limit == 0 {
		return -1
	}
	return max(w.limit-w.used, 0)
}

// Budget tracks token spend against daily and monthly limits.
// Allow reads memory only; Spend updates memory and then writes behind to the store.
type Budget struct {
	mu       sync.Mutex
	provider string
	action   Action
	windows  []*window
	store    CounterStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewBudget creates a budget. A zero limit disables that window.
func NewBudget(provider string, daily, monthly int64, action Action, logger *zap.Logger) *Budget {
	b := &Budget{
		provider: provider,
		action:   action,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
	now := b.now()
	b.windows = []*window{
		{
			period: PeriodDaily, limit: daily, ttl: 48 * time.Hour, layout: "2006-01-02",
			floor: startOfDay, next: func(t time.Time) time.Time { return t.AddDate(0, 0, 1) },
		},
		{
			period: PeriodMonthly, limit: monthly, ttl: 62 * 24 * time.Hour, layout: "2006-01",
			floor: startOfMonth, next: func(t time.Time) time.Time { return t.AddDate(0, 1, 0) },
		},
	}
	for _, w := range b.windows {
		w.start = w.floor(now)
	}
	return b
}

// Persist attaches a store and seeds the in-memory counters from it.
// Load failures are logged and leave the counters at zero.
func (b *Budget) Persist(ctx context.Context, store CounterStore) *Budget {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now()
	for _, w := range b.windows {
		w.roll(now)
		used, err := store.Load(ctx, b.key(w, now))
		if err != nil {
			b.logger.Warn("Failed to load budget counter", zap.String("period", w.period), zap.Error(err))
			continue
		}
		w.used = used
	}
	b.logger.Info("Budget counters loaded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.windows[0].used),
		zap.Int64("monthly_used", b.windows[1].used),
	)
	return b
}

// Allow reports whether another embedding call may be made.
func (b *Budget) Allow(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	var over *window
	for _, w := range b.windows {
		w.roll(now)
		if over == nil && w.exceeded() {
			over = w
		}
	}
	if over == nil {
		return nil
	}
	if b.action == ActionReject {
		return fmt.Errorf("%s token budget of %d spent: %w", over.period, over.limit, domain.ErrEmbeddingQuotaExceeded)
	}
	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.provider),
		zap.String("period", over.period),
		zap.Int64("used", over.used),
		zap.Int64("limit", over.limit),
	)
	return nil
}

// Spend records tokens consumed by a finished call.
func (b *Budget) Spend(tokens int64) {
	if tokens <= 0 {
		return
	}

	type write struct {
		key string
		ttl time.Duration
	}
	b.mu.Lock()
	now := b.now()
	writes := make([]write, 0, len(b.windows))
	for _, w := range b.windows {
		w.roll(now)
		w.used += tokens
		writes = append(writes, write{key: b.key(w, now), ttl: w.ttl})
	}
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}
	// The request context may already be done; counters must still land.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, wr := range writes {
		if err := store.Add(ctx, wr.key, tokens, wr.ttl); err != nil {
			b.logger.Warn("Failed to persist budget counter", zap.String("key", wr.key), zap.Error(err))
		}
	}
}

// Remaining returns tokens left in period, -1 when unlimited.
func (b *Budget) Remaining(period string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for _, w := range b.windows {
		if w.period == period {
			w.roll(now)
			return w.remaining()
		}
	}
	return -1
}

// Usage reports every window.
func (b *Budget) Usage() []WindowUsage {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	out := make([]WindowUsage, 0, len(b.windows))
	for _, w := range b.windows {
		w.roll(now)
		out = append(out, WindowUsage{
			Period:    w.period,
			Limit:     w.limit,
			Used:      w.used,
			Remaining: w.remaining(),
			Exhausted: w.exceeded(),
			ResetsAt:  w.next(w.start),
		})
	}
	return out
}

func (b *Budget) key(w *window, now time.Time) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", domain.KeyPrefix, b.provider, w.period, now.Format(w.layout))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
