package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akozlov/spendbot/internal/model"
	"github.com/akozlov/spendbot/internal/repository"
)

// ExpenseTracker реализует операции над тратами и настройками поверх хранилища.
type ExpenseTracker struct {
	repo repository.Repository
}

// NewExpenseTracker создает новый экземпляр ExpenseTracker
func NewExpenseTracker(repo repository.Repository) *ExpenseTracker {
	return &ExpenseTracker{
		repo: repo,
	}
}

// AddResult — итог добавления траты вместе с данными для проверки лимита.
type AddResult struct {
	Expense       model.Expense
	Limit         decimal.Decimal
	TodayTotal    decimal.Decimal
	LimitExceeded bool
}

// AddExpense сохраняет трату и после успешной записи читает лимит и сумму за
// сегодня: ответ пользователю должен отражать уже записанную трату.
func (s *ExpenseTracker) AddExpense(ctx context.Context, userID int64, category model.Category, amount decimal.Decimal) (*AddResult, error) {
	expense := &model.Expense{
		UserID:   userID,
		Category: category,
		Amount:   amount,
	}
	if err := s.repo.InsertExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to add expense: %w", err)
	}

	result := &AddResult{Expense: *expense}

	// Трата уже записана: сбой на чтении лимита не делает ход ошибочным,
	// просто остаемся без предупреждения.
	limit, err := s.repo.GetDailyLimit(ctx, userID)
	if err != nil {
		slog.Warn("failed to read daily limit after insert", "user_id", userID, "error", err)
		return result, nil
	}
	total, err := s.repo.SumExpensesToday(ctx, userID)
	if err != nil {
		slog.Warn("failed to read today total after insert", "user_id", userID, "error", err)
		return result, nil
	}

	result.Limit = limit
	result.TodayTotal = total
	result.LimitExceeded = limit.IsPositive() && total.GreaterThan(limit)
	return result, nil
}

// Expenses возвращает все траты пользователя в хронологическом порядке.
func (s *ExpenseTracker) Expenses(ctx context.Context, userID int64) ([]model.Expense, error) {
	expenses, err := s.repo.ListExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return expenses, nil
}

// FilteredExpenses возвращает траты за период, новые сверху.
func (s *ExpenseTracker) FilteredExpenses(ctx context.Context, userID int64, period model.Period) ([]model.Expense, error) {
	expenses, err := s.repo.ListExpensesInPeriod(ctx, userID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to filter expenses: %w", err)
	}
	return expenses, nil
}

// CategoryStats возвращает суммарные траты по категориям.
func (s *ExpenseTracker) CategoryStats(ctx context.Context, userID int64) ([]model.CategoryTotal, error) {
	totals, err := s.repo.SumExpensesByCategory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get category stats: %w", err)
	}
	return totals, nil
}

// Reset удаляет все траты одного пользователя, чужие траты не трогает.
func (s *ExpenseTracker) Reset(ctx context.Context, userID int64) error {
	if err := s.repo.DeleteAllExpenses(ctx, userID); err != nil {
		return fmt.Errorf("failed to reset expenses: %w", err)
	}
	return nil
}

// SetDailyLimit записывает дневной лимит; ноль отключает проверку.
func (s *ExpenseTracker) SetDailyLimit(ctx context.Context, userID int64, limit decimal.Decimal) error {
	if err := s.repo.UpsertDailyLimit(ctx, userID, limit); err != nil {
		return fmt.Errorf("failed to set daily limit: %w", err)
	}
	return nil
}

// Export отдает историю трат строками вида "timestamp - категория: сумма₽".
// Пустая история — nil без ошибки.
func (s *ExpenseTracker) Export(ctx context.Context, userID int64) ([]byte, error) {
	expenses, err := s.repo.ListExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to export expenses: %w", err)
	}
	if len(expenses) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	for i, e := range expenses {
		if i > 0 {
			buf.WriteByte('\n')
		}
		fmt.Fprintf(&buf, "%s - %s: %s₽", e.Timestamp.Format("2006-01-02 15:04:05"), e.Category, e.Amount)
	}
	return buf.Bytes(), nil
}

// LastExpenseTime возвращает время последней траты, nil — трат не было.
func (s *ExpenseTracker) LastExpenseTime(ctx context.Context, userID int64) (*time.Time, error) {
	ts, err := s.repo.LatestExpenseTimestamp(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get last expense time: %w", err)
	}
	return ts, nil
}
