// Package scheduler рассылает напоминания пользователям, давно не вносившим траты.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

const (
	reminderText   = "🔔 Напоминание: ты не вносил траты уже 2 дня!"
	inactiveDays   = 2
	perUserTimeout = 5 * time.Second
)

// Notifier отправляет пользователю текстовое сообщение вне диалога.
type Notifier interface {
	SendText(userID int64, text string) error
}

// ExpenseSource — часть хранилища, нужная для обхода пользователей.
type ExpenseSource interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
	LatestExpenseTimestamp(ctx context.Context, userID int64) (*time.Time, error)
}

// Reminder раз в сутки в заданный час обходит всех известных хранилищу
// пользователей и напоминает тем, чья последняя трата старше двух
// календарных дней. Работает независимо от диалогов и не трогает их замки.
type Reminder struct {
	source   ExpenseSource
	notifier Notifier
	hour     int
	now      func() time.Time
}

func NewReminder(source ExpenseSource, notifier Notifier, hour int) *Reminder {
	return &Reminder{
		source:   source,
		notifier: notifier,
		hour:     hour,
		now:      time.Now,
	}
}

// Run крутит планировщик до отмены контекста.
func (r *Reminder) Run(ctx context.Context) {
	for {
		next := r.nextRun()
		timer := time.NewTimer(next.Sub(r.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			r.Sweep(ctx)
		}
	}
}

func (r *Reminder) nextRun() time.Time {
	now := r.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), r.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Sweep — один проход по всем пользователям. Сбой на отдельном пользователе
// логируется и не прерывает обход остальных.
func (r *Reminder) Sweep(ctx context.Context) {
	users, err := r.source.ListUserIDs(ctx)
	if err != nil {
		slog.Error("reminder: failed to list users", "error", err)
		return
	}
	slog.Debug("reminder: sweep started", "users", len(users))

	for _, userID := range users {
		if ctx.Err() != nil {
			return
		}
		if err := r.remindUser(ctx, userID); err != nil {
			slog.Warn("reminder: skipping user", "user_id", userID, "error", err)
		}
	}
}

func (r *Reminder) remindUser(ctx context.Context, userID int64) error {
	// Таймаут на каждый запрос, чтобы один медленный пользователь не
	// задерживал остальных.
	callCtx, cancel := context.WithTimeout(ctx, perUserTimeout)
	defer cancel()

	last, err := r.source.LatestExpenseTimestamp(callCtx, userID)
	if err != nil {
		return err
	}
	if last == nil {
		// Без единой траты напоминать не о чем.
		return nil
	}
	if daysBetween(*last, r.now()) < inactiveDays {
		return nil
	}
	return r.notifier.SendText(userID, reminderText)
}

// daysBetween считает разницу в календарных днях, а не в сутках по 24 часа:
// трата вчера в 23:59 и проверка сегодня в 00:01 — это один день.
func daysBetween(from, to time.Time) int {
	from = from.In(to.Location())
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, to.Location())
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())
	return int(toDay.Sub(fromDay) / (24 * time.Hour))
}
