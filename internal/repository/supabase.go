package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/supabase-community/supabase-go"

	"github.com/akozlov/spendbot/internal/model"
)

// SupabaseRepository хранит данные в Supabase (PostgREST поверх Postgres).
// Таблицы expenses и settings повторяют схему SQLite; агрегаты считаются
// на клиенте.
type SupabaseRepository struct {
	client *supabase.Client
	now    func() time.Time
}

func NewSupabaseRepository(url, key string) (*SupabaseRepository, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &SupabaseRepository{
		client: client,
		now:    time.Now,
	}, nil
}

type settingsRow struct {
	UserID     int64           `json:"user_id"`
	DailyLimit decimal.Decimal `json:"daily_limit"`
}

func (r *SupabaseRepository) InsertExpense(ctx context.Context, expense *model.Expense) error {
	expense.GenerateID()
	if expense.Timestamp.IsZero() {
		expense.Timestamp = r.now()
	}

	_, _, err := r.client.From("expenses").Insert(expense, false, "", "", "").Execute()
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

func (r *SupabaseRepository) ListExpenses(ctx context.Context, userID int64) ([]model.Expense, error) {
	data, _, err := r.client.From("expenses").
		Select("*", "", false).
		Eq("user_id", strconv.FormatInt(userID, 10)).
		Order("timestamp.asc", nil).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	return decodeExpenses(data)
}

func (r *SupabaseRepository) ListExpensesInPeriod(ctx context.Context, userID int64, period model.Period) ([]model.Expense, error) {
	data, _, err := r.client.From("expenses").
		Select("*", "", false).
		Eq("user_id", strconv.FormatInt(userID, 10)).
		Gte("timestamp", period.Start(r.now()).Format(time.RFC3339)).
		Order("timestamp.desc", nil).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses for period: %w", err)
	}
	return decodeExpenses(data)
}

func (r *SupabaseRepository) DeleteAllExpenses(ctx context.Context, userID int64) error {
	_, _, err := r.client.From("expenses").
		Delete("", "").
		Eq("user_id", strconv.FormatInt(userID, 10)).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete expenses: %w", err)
	}
	return nil
}

func (r *SupabaseRepository) LatestExpenseTimestamp(ctx context.Context, userID int64) (*time.Time, error) {
	data, _, err := r.client.From("expenses").
		Select("timestamp", "", false).
		Eq("user_id", strconv.FormatInt(userID, 10)).
		Order("timestamp.desc", nil).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get latest expense: %w", err)
	}

	var rows []struct {
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse latest expense: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0].Timestamp, nil
}

func (r *SupabaseRepository) SumExpensesToday(ctx context.Context, userID int64) (decimal.Decimal, error) {
	expenses, err := r.ListExpensesInPeriod(ctx, userID, model.PeriodDay)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (r *SupabaseRepository) SumExpensesByCategory(ctx context.Context, userID int64) ([]model.CategoryTotal, error) {
	expenses, err := r.ListExpenses(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sumByCategory(expenses), nil
}

func (r *SupabaseRepository) UpsertDailyLimit(ctx context.Context, userID int64, limit decimal.Decimal) error {
	row := settingsRow{UserID: userID, DailyLimit: limit}
	_, _, err := r.client.From("settings").Insert(row, true, "", "", "").Execute()
	if err != nil {
		return fmt.Errorf("failed to upsert daily limit: %w", err)
	}
	return nil
}

func (r *SupabaseRepository) GetDailyLimit(ctx context.Context, userID int64) (decimal.Decimal, error) {
	data, _, err := r.client.From("settings").
		Select("daily_limit", "", false).
		Eq("user_id", strconv.FormatInt(userID, 10)).
		Execute()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get daily limit: %w", err)
	}

	var rows []settingsRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse settings: %w", err)
	}
	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	return rows[0].DailyLimit, nil
}

func (r *SupabaseRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	seen := make(map[int64]bool)
	var ids []int64

	for _, table := range []string{"expenses", "settings"} {
		data, _, err := r.client.From(table).Select("user_id", "", false).Execute()
		if err != nil {
			return nil, fmt.Errorf("failed to list users from %s: %w", table, err)
		}
		var rows []struct {
			UserID int64 `json:"user_id"`
		}
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("failed to parse users from %s: %w", table, err)
		}
		for _, row := range rows {
			if !seen[row.UserID] {
				seen[row.UserID] = true
				ids = append(ids, row.UserID)
			}
		}
	}
	return ids, nil
}

func decodeExpenses(data []byte) ([]model.Expense, error) {
	var expenses []model.Expense
	if err := json.Unmarshal(data, &expenses); err != nil {
		return nil, fmt.Errorf("failed to parse expenses: %w", err)
	}
	return expenses, nil
}
