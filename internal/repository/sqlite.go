package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	// драйвер sqlite
	_ "modernc.org/sqlite"

	"github.com/akozlov/spendbot/internal/model"
)

// SQLiteRepository хранит траты и настройки в локальной базе SQLite.
// Суммы хранятся текстом и складываются на клиенте, чтобы не терять
// точность на REAL.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository открывает базу по указанному пути и накатывает схему.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Один writer: sqlite не любит параллельные записи, а для :memory:
	// каждое новое соединение было бы отдельной базой.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	r := &SQLiteRepository{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS expenses (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			category TEXT NOT NULL,
			amount TEXT NOT NULL,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			user_id INTEGER PRIMARY KEY,
			daily_limit TEXT NOT NULL DEFAULT '0'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_user_ts ON expenses(user_id, timestamp)`,
	}
	for _, m := range migrations {
		if _, err := r.db.Exec(m); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

// Close закрывает соединение с базой.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) InsertExpense(ctx context.Context, expense *model.Expense) error {
	expense.GenerateID()
	if expense.Timestamp.IsZero() {
		expense.Timestamp = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, category, amount, timestamp) VALUES (?, ?, ?, ?, ?)`,
		expense.ID, expense.UserID, string(expense.Category), expense.Amount.String(), expense.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64) ([]model.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT id, user_id, category, amount, timestamp FROM expenses WHERE user_id = ? ORDER BY timestamp`,
		userID)
}

func (r *SQLiteRepository) ListExpensesInPeriod(ctx context.Context, userID int64, period model.Period) ([]model.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT id, user_id, category, amount, timestamp FROM expenses
		 WHERE user_id = ? AND timestamp >= ? ORDER BY timestamp DESC`,
		userID, period.Start(r.now()))
}

func (r *SQLiteRepository) DeleteAllExpenses(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete expenses: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) LatestExpenseTimestamp(ctx context.Context, userID int64) (*time.Time, error) {
	var ts time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT timestamp FROM expenses WHERE user_id = ? ORDER BY timestamp DESC LIMIT 1`,
		userID).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest expense: %w", err)
	}
	return &ts, nil
}

func (r *SQLiteRepository) SumExpensesToday(ctx context.Context, userID int64) (decimal.Decimal, error) {
	expenses, err := r.queryExpenses(ctx,
		`SELECT id, user_id, category, amount, timestamp FROM expenses WHERE user_id = ? AND timestamp >= ?`,
		userID, model.PeriodDay.Start(r.now()))
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (r *SQLiteRepository) SumExpensesByCategory(ctx context.Context, userID int64) ([]model.CategoryTotal, error) {
	expenses, err := r.ListExpenses(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sumByCategory(expenses), nil
}

func (r *SQLiteRepository) UpsertDailyLimit(ctx context.Context, userID int64, limit decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (user_id, daily_limit) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET daily_limit = excluded.daily_limit`,
		userID, limit.String())
	if err != nil {
		return fmt.Errorf("failed to upsert daily limit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetDailyLimit(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT daily_limit FROM settings WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get daily limit: %w", err)
	}
	limit, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt daily limit %q: %w", raw, err)
	}
	return limit, nil
}

func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM expenses UNION SELECT user_id FROM settings ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]model.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []model.Expense
	for rows.Next() {
		var (
			e        model.Expense
			category string
			amount   string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &category, &amount, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.Category = model.Category(category)
		e.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt amount %q: %w", amount, err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// sumByCategory складывает траты по категориям в порядке model.Categories.
func sumByCategory(expenses []model.Expense) []model.CategoryTotal {
	byCategory := make(map[model.Category]decimal.Decimal)
	for _, e := range expenses {
		byCategory[e.Category] = byCategory[e.Category].Add(e.Amount)
	}

	var totals []model.CategoryTotal
	for _, c := range model.Categories {
		if total, ok := byCategory[c]; ok {
			totals = append(totals, model.CategoryTotal{Category: c, Total: total})
		}
	}
	return totals
}
