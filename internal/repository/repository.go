package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akozlov/spendbot/internal/model"
)

// Repository определяет интерфейс для работы с хранилищем трат и настроек.
type Repository interface {
	// Траты
	InsertExpense(ctx context.Context, expense *model.Expense) error
	ListExpenses(ctx context.Context, userID int64) ([]model.Expense, error)
	ListExpensesInPeriod(ctx context.Context, userID int64, period model.Period) ([]model.Expense, error)
	DeleteAllExpenses(ctx context.Context, userID int64) error
	LatestExpenseTimestamp(ctx context.Context, userID int64) (*time.Time, error)
	SumExpensesToday(ctx context.Context, userID int64) (decimal.Decimal, error)
	SumExpensesByCategory(ctx context.Context, userID int64) ([]model.CategoryTotal, error)

	// Настройки
	UpsertDailyLimit(ctx context.Context, userID int64, limit decimal.Decimal) error
	GetDailyLimit(ctx context.Context, userID int64) (decimal.Decimal, error)

	// Все пользователи, известные хранилищу: с тратами или с настройками.
	ListUserIDs(ctx context.Context) ([]int64, error)
}
