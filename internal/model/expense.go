package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense — одна запись о трате. После создания не изменяется, удаляется
// только общим сбросом по пользователю.
type Expense struct {
	ID        string          `json:"id,omitempty"`
	UserID    int64           `json:"user_id"`
	Category  Category        `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// GenerateID генерирует новый UUID для траты, если он еще не установлен
func (e *Expense) GenerateID() {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
}

// UserSettings — настройки одного пользователя, не больше одной записи
// на пользователя.
type UserSettings struct {
	UserID     int64           `json:"user_id"`
	DailyLimit decimal.Decimal `json:"daily_limit"` // 0 — лимит отключен
}

// CategoryTotal — суммарные траты по одной категории.
type CategoryTotal struct {
	Category Category
	Total    decimal.Decimal
}
