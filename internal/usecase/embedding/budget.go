package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/playsearch/internal/domain"
)

// BudgetAction defines behavior when the token budget is exhausted.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but lets the query be embedded.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject fails the search with ErrEmbeddingQuotaExceeded.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetLimits caps query embedding tokens per UTC day and month. Zero means unlimited.
type BudgetLimits struct {
	Daily   int64
	Monthly int64
	Action  BudgetAction
}

// BudgetStore persists counters so every replica sees the same spend.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// BudgetStatus is a point-in-time view of the budget for health reporting.
type BudgetStatus struct {
	DailyUsed    int64 `json:"daily_used"`
	DailyLimit   int64 `json:"daily_limit"`
	MonthlyUsed  int64 `json:"monthly_used"`
	MonthlyLimit int64 `json:"monthly_limit"`
	Exhausted    bool  `json:"exhausted"`
}

// BudgetTracker counts tokens in memory and writes them behind to a store.
// Check never leaves the process.
type BudgetTracker struct {
	mu          sync.Mutex
	dailyUsed   int64
	monthlyUsed int64
	limits      BudgetLimits
	provider    string
	day         time.Time
	month       time.Time
	now         func() time.Time
	store       BudgetStore
	logger      *zap.Logger
}

// NewBudgetTracker creates a tracker for one embedding provider.
func NewBudgetTracker(provider string, limits BudgetLimits, logger *zap.Logger) *BudgetTracker {
	if limits.Action == "" {
		limits.Action = BudgetActionWarn
	}
	b := &BudgetTracker{limits: limits, provider: provider, now: time.Now, logger: logger}
	now := b.now().UTC()
	b.day, b.month = truncateToDay(now), truncateToMonth(now)
	return b
}

// WithStore attaches a persistence store and loads today's and this month's counters.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now().UTC()
	if val, err := store.Get(ctx, b.dailyKey(now)); err == nil {
		b.dailyUsed = val
	} else {
		b.logger.Warn("Failed to load daily budget from store", zap.Error(err))
	}
	if val, err := store.Get(ctx, b.monthlyKey(now)); err == nil {
		b.monthlyUsed = val
	} else {
		b.logger.Warn("Failed to load monthly budget from store", zap.Error(err))
	}

	b.logger.Info("Budget loaded from store",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("monthly_used", b.monthlyUsed),
	)
	return b
}

func (b *BudgetTracker) dailyKey(t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:daily:%s", domain.KeyPrefix, b.provider, t.Format("2006-01-02"))
}

func (b *BudgetTracker) monthlyKey(t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:monthly:%s", domain.KeyPrefix, b.provider, t.Format("2006-01"))
}

// Check reports whether another query may be embedded.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover()
	if !b.exhausted() {
		return nil
	}
	if b.limits.Action == BudgetActionReject {
		return domain.ErrEmbeddingQuotaExceeded
	}

	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("daily_limit", b.limits.Daily),
		zap.Int64("monthly_used", b.monthlyUsed),
		zap.Int64("monthly_limit", b.limits.Monthly),
	)
	return nil
}

// Record adds consumed tokens, then persists them when a store is attached.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.rollover()
	b.dailyUsed += tokens
	b.monthlyUsed += tokens
	store := b.store
	now := b.now().UTC()
	b.mu.Unlock()

	if store == nil {
		return
	}

	// Не блокируем поиск дольше пары секунд из-за счётчика.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if key := b.dailyKey(now); store.IncrBy(ctx, key, tokens) != nil {
		b.logger.Warn("Failed to persist daily budget", zap.String("key", key))
	}
	if key := b.monthlyKey(now); store.IncrBy(ctx, key, tokens) != nil {
		b.logger.Warn("Failed to persist monthly budget", zap.String("key", key))
	}
}

// RemainingDaily returns tokens left today, -1 if unlimited.
func (b *BudgetTracker) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	return remaining(b.limits.Daily, b.dailyUsed)
}

// RemainingMonthly returns tokens left this month, -1 if unlimited.
func (b *BudgetTracker) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	return remaining(b.limits.Monthly, b.monthlyUsed)
}

// Status snapshots usage against the limits.
func (b *BudgetTracker) Status() BudgetStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	return BudgetStatus{
		DailyUsed:    b.dailyUsed,
		DailyLimit:   b.limits.Daily,
		MonthlyUsed:  b.monthlyUsed,
		MonthlyLimit: b.limits.Monthly,
		Exhausted:    b.exhausted(),
	}
}

func (b *BudgetTracker) exhausted() bool {
	return (b.limits.Daily > 0 && b.dailyUsed >= b.limits.Daily) ||
		(b.limits.Monthly > 0 && b.monthlyUsed >= b.limits.Monthly)
}

// rollover zeroes counters when the UTC day or month changes. Caller holds mu.
func (b *BudgetTracker) rollover() {
	now := b.now().UTC()
	if today := truncateToDay(now); today.After(b.day) {
		b.dailyUsed = 0
		b.day = today
	}
	if month := truncateToMonth(now); month.After(b.month) {
		b.monthlyUsed = 0
		b.month = month
	}
}

func remaining(limit, used int64) int64 {
	if limit == 0 {
		return -1
	}
	return max(limit-used, 0)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
