package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/akozlov/spendbot/internal/model"
	"github.com/akozlov/spendbot/internal/service"
)

// ChartRenderer рисует диаграмму по статистике категорий.
// nil без ошибки означает, что рисовать нечего.
type ChartRenderer interface {
	Render(stats []model.CategoryTotal) ([]byte, error)
}

// Engine — машина состояний диалога. На каждый входящий текст обновляет
// состояние пользователя в Store и возвращает ответы для отправки.
type Engine struct {
	tracker *service.ExpenseTracker
	states  *Store
	charts  ChartRenderer // может быть nil
}

func NewEngine(tracker *service.ExpenseTracker, states *Store, charts ChartRenderer) *Engine {
	return &Engine{
		tracker: tracker,
		states:  states,
		charts:  charts,
	}
}

// Handle обрабатывает один ход диалога. Ходы одного пользователя
// сериализуются его замком на все время хода, включая запись в хранилище.
func (e *Engine) Handle(ctx context.Context, userID int64, text string) []Reply {
	mu := e.states.TurnLock(userID)
	mu.Lock()
	defer mu.Unlock()

	text = strings.TrimSpace(text)

	// Перезапуск сбрасывает диалог из любого состояния.
	switch text {
	case "/start":
		e.states.Clear(userID)
		return []Reply{{Text: "Привет! Что хочешь сделать?", Options: mainMenuOptions()}}
	case "🔄 Перезапуск":
		e.states.Clear(userID)
		return []Reply{{Text: "Бот перезапущен", Options: mainMenuOptions()}}
	}

	state := e.states.Get(userID)
	switch state.Stage {
	case model.StageAwaitingCategory:
		return e.handleCategoryChoice(userID, text)
	case model.StageAwaitingAmount:
		return e.handleAmountInput(userID, state, text)
	case model.StageAwaitingConfirmation:
		return e.handleConfirmation(ctx, userID, state, text)
	case model.StageAwaitingLimit:
		return e.handleLimitInput(ctx, userID, text)
	case model.StageAwaitingFilterChoice:
		return e.handleFilterChoice(ctx, userID, text)
	default:
		return e.handleIdle(ctx, userID, text)
	}
}

func (e *Engine) handleIdle(ctx context.Context, userID int64, text string) []Reply {
	switch text {
	case "➕ Добавить трату":
		e.states.Set(userID, model.ConversationState{Stage: model.StageAwaitingCategory})
		return []Reply{{Text: "Выбери категорию:", Options: categoryOptions()}}
	case "💰 Лимит":
		e.states.Set(userID, model.ConversationState{Stage: model.StageAwaitingLimit})
		return []Reply{{Text: "Введи лимит на день в рублях (например: 500):"}}
	case "📅 Фильтр по дате":
		e.states.Set(userID, model.ConversationState{Stage: model.StageAwaitingFilterChoice})
		return []Reply{{Text: "Выбери период:", Options: periodOptions()}}
	case "📜 Посмотреть траты":
		return e.handleList(ctx, userID)
	case "📊 Статистика":
		return e.handleStats(ctx, userID)
	case "♻️ Сброс":
		return e.handleReset(ctx, userID)
	case "💾 Экспорт":
		return e.handleExport(ctx, userID)
	}
	// Произвольный текст вне диалога сознательно остается без ответа.
	return nil
}

func (e *Engine) handleCategoryChoice(userID int64, text string) []Reply {
	category, ok := model.ParseCategory(text)
	if !ok {
		return []Reply{{Text: "Такой категории нет. Выбери из списка:", Options: categoryOptions()}}
	}
	e.states.Set(userID, model.ConversationState{
		Stage:           model.StageAwaitingAmount,
		PendingCategory: category,
	})
	return []Reply{{Text: fmt.Sprintf("Введи сумму для категории \"%s\":", category)}}
}

func (e *Engine) handleAmountInput(userID int64, state model.ConversationState, text string) []Reply {
	amount, err := parseAmount(text)
	if err != nil || !amount.IsPositive() {
		return []Reply{{Text: "Это не похоже на число. Попробуй ещё раз."}}
	}

	state.Stage = model.StageAwaitingConfirmation
	state.PendingAmount = amount
	e.states.Set(userID, state)
	return []Reply{{
		Text:    fmt.Sprintf("Подтверди трату: %s — %s₽", state.PendingCategory, amount),
		Options: confirmOptions(),
	}}
}

func (e *Engine) handleConfirmation(ctx context.Context, userID int64, state model.ConversationState, text string) []Reply {
	switch text {
	case "✅ Подтвердить":
		result, err := e.tracker.AddExpense(ctx, userID, state.PendingCategory, state.PendingAmount)
		if err != nil {
			return e.storageFailure(userID, err)
		}
		e.states.Clear(userID)

		msg := "Трата добавлена!"
		if result.LimitExceeded {
			msg += fmt.Sprintf(" ⚠️ Ты превысил дневной лимит: %s₽ / %s₽", result.TodayTotal, result.Limit)
		}
		return []Reply{{Text: msg, Options: mainMenuOptions()}}
	case "❌ Отмена":
		e.states.Clear(userID)
		return []Reply{{Text: "Добавление траты отменено.", Options: mainMenuOptions()}}
	}
	return []Reply{{Text: "Подтверди или отмени трату:", Options: confirmOptions()}}
}

func (e *Engine) handleLimitInput(ctx context.Context, userID int64, text string) []Reply {
	limit, err := parseAmount(text)
	if err != nil || limit.IsNegative() {
		return []Reply{{Text: "Это не число. Введи лимит снова:"}}
	}

	if err := e.tracker.SetDailyLimit(ctx, userID, limit); err != nil {
		return e.storageFailure(userID, err)
	}
	e.states.Clear(userID)
	return []Reply{{Text: fmt.Sprintf("Лимит установлен: %s₽ в день", limit), Options: mainMenuOptions()}}
}

func (e *Engine) handleFilterChoice(ctx context.Context, userID int64, text string) []Reply {
	if text == "⬅️ Назад" {
		e.states.Clear(userID)
		return []Reply{{Text: "Возвращаемся в меню.", Options: mainMenuOptions()}}
	}

	period, ok := model.ParsePeriod(text)
	if !ok {
		return []Reply{{Text: "Неверный выбор. Пожалуйста, выбери из списка.", Options: periodOptions()}}
	}

	expenses, err := e.tracker.FilteredExpenses(ctx, userID, period)
	if err != nil {
		return e.storageFailure(userID, err)
	}
	e.states.Clear(userID)

	if len(expenses) == 0 {
		return []Reply{{Text: "Нет трат за выбранный период.", Options: mainMenuOptions()}}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Твои траты за период «%s»:\n\n", period.Label())
	for i, exp := range expenses {
		fmt.Fprintf(&b, "%d. %s — %s: %s₽\n", i+1, exp.Timestamp.Format("2006-01-02"), exp.Category, exp.Amount)
	}
	return []Reply{{Text: strings.TrimRight(b.String(), "\n"), Options: mainMenuOptions()}}
}

func (e *Engine) handleList(ctx context.Context, userID int64) []Reply {
	expenses, err := e.tracker.Expenses(ctx, userID)
	if err != nil {
		return e.storageFailure(userID, err)
	}
	if len(expenses) == 0 {
		return []Reply{{Text: "У тебя пока нет трат."}}
	}

	var b strings.Builder
	b.WriteString("Твои траты:\n\n")
	for i, exp := range expenses {
		fmt.Fprintf(&b, "%d. %s — %s₽\n", i+1, exp.Category, exp.Amount)
	}
	return []Reply{{Text: strings.TrimRight(b.String(), "\n")}}
}

func (e *Engine) handleStats(ctx context.Context, userID int64) []Reply {
	stats, err := e.tracker.CategoryStats(ctx, userID)
	if err != nil {
		return e.storageFailure(userID, err)
	}
	if len(stats) == 0 {
		return []Reply{{Text: "У тебя нет трат для статистики."}}
	}

	var b strings.Builder
	b.WriteString("📊 Твоя статистика по категориям:\n\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%s: %s₽\n", s.Category, s.Total)
	}
	replies := []Reply{{Text: strings.TrimRight(b.String(), "\n")}}

	if e.charts != nil {
		png, err := e.charts.Render(stats)
		if err != nil {
			// График — украшение, без него статистика остается текстом.
			slog.Warn("failed to render stats chart", "user_id", userID, "error", err)
		} else if png != nil {
			replies = append(replies, Reply{Photo: png})
		}
	}
	return replies
}

func (e *Engine) handleReset(ctx context.Context, userID int64) []Reply {
	if err := e.tracker.Reset(ctx, userID); err != nil {
		return e.storageFailure(userID, err)
	}
	return []Reply{{Text: "Все траты удалены."}}
}

func (e *Engine) handleExport(ctx context.Context, userID int64) []Reply {
	data, err := e.tracker.Export(ctx, userID)
	if err != nil {
		return e.storageFailure(userID, err)
	}
	if data == nil {
		return []Reply{{Text: "У тебя пока нет трат для экспорта."}}
	}
	return []Reply{{Document: &Document{
		Name: fmt.Sprintf("export_%d.txt", userID),
		Data: data,
	}}}
}

// storageFailure — сбой хранилища: извиняемся и возвращаем диалог в idle,
// чтобы пользователь не застрял в промежуточном шаге.
func (e *Engine) storageFailure(userID int64, err error) []Reply {
	slog.Error("storage failure", "user_id", userID, "error", err)
	e.states.Clear(userID)
	return []Reply{{Text: "Что-то пошло не так. Попробуй ещё раз.", Options: mainMenuOptions()}}
}

// parseAmount разбирает сумму, принимая и точку, и запятую как разделитель.
func parseAmount(text string) (decimal.Decimal, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if normalized == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}
	return decimal.NewFromString(normalized)
}
