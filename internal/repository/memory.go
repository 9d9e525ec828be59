package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akozlov/spendbot/internal/model"
)

// MemoryRepository — хранилище в памяти процесса. Используется в тестах
// и для запуска без внешней базы; семантика повторяет SQLite-реализацию.
type MemoryRepository struct {
	mu       sync.Mutex
	expenses []model.Expense
	limits   map[int64]decimal.Decimal

	// NowFunc подменяется в тестах; по умолчанию time.Now.
	NowFunc func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		limits:  make(map[int64]decimal.Decimal),
		NowFunc: time.Now,
	}
}

func (r *MemoryRepository) InsertExpense(ctx context.Context, expense *model.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	expense.GenerateID()
	if expense.Timestamp.IsZero() {
		expense.Timestamp = r.NowFunc()
	}
	r.expenses = append(r.expenses, *expense)
	return nil
}

func (r *MemoryRepository) ListExpenses(ctx context.Context, userID int64) ([]model.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.Expense
	for _, e := range r.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *MemoryRepository) ListExpensesInPeriod(ctx context.Context, userID int64, period model.Period) ([]model.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := period.Start(r.NowFunc())
	var out []model.Expense
	for _, e := range r.expenses {
		if e.UserID == userID && !e.Timestamp.Before(start) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (r *MemoryRepository) DeleteAllExpenses(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.expenses[:0]
	for _, e := range r.expenses {
		if e.UserID != userID {
			kept = append(kept, e)
		}
	}
	r.expenses = kept
	return nil
}

func (r *MemoryRepository) LatestExpenseTimestamp(ctx context.Context, userID int64) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *time.Time
	for _, e := range r.expenses {
		if e.UserID != userID {
			continue
		}
		ts := e.Timestamp
		if latest == nil || ts.After(*latest) {
			latest = &ts
		}
	}
	return latest, nil
}

func (r *MemoryRepository) SumExpensesToday(ctx context.Context, userID int64) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := model.PeriodDay.Start(r.NowFunc())
	total := decimal.Zero
	for _, e := range r.expenses {
		if e.UserID == userID && !e.Timestamp.Before(start) {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (r *MemoryRepository) SumExpensesByCategory(ctx context.Context, userID int64) ([]model.CategoryTotal, error) {
	expenses, err := r.ListExpenses(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sumByCategory(expenses), nil
}

func (r *MemoryRepository) UpsertDailyLimit(ctx context.Context, userID int64, limit decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.limits[userID] = limit
	return nil
}

func (r *MemoryRepository) GetDailyLimit(ctx context.Context, userID int64) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit, ok := r.limits[userID]
	if !ok {
		return decimal.Zero, nil
	}
	return limit, nil
}

func (r *MemoryRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int64]bool)
	var ids []int64
	for _, e := range r.expenses {
		if !seen[e.UserID] {
			seen[e.UserID] = true
			ids = append(ids, e.UserID)
		}
	}
	for userID := range r.limits {
		if !seen[userID] {
			seen[userID] = true
			ids = append(ids, userID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
