package dialog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akozlov/spendbot/internal/model"
	"github.com/akozlov/spendbot/internal/repository"
	"github.com/akozlov/spendbot/internal/service"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newTestEngine(repo repository.Repository) (*Engine, *Store) {
	store := NewStore()
	return NewEngine(service.NewExpenseTracker(repo), store, nil), store
}

// failingRepo подменяет выбранные операции ошибкой хранилища.
type failingRepo struct {
	repository.Repository
	failInsert bool
	failList   bool
}

func (f *failingRepo) InsertExpense(ctx context.Context, e *model.Expense) error {
	if f.failInsert {
		return errors.New("db down")
	}
	return f.Repository.InsertExpense(ctx, e)
}

func (f *failingRepo) ListExpensesInPeriod(ctx context.Context, userID int64, period model.Period) ([]model.Expense, error) {
	if f.failList {
		return nil, errors.New("db down")
	}
	return f.Repository.ListExpensesInPeriod(ctx, userID, period)
}

func TestAddExpenseFullFlow(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, store := newTestEngine(repo)
	ctx := context.Background()

	replies := engine.Handle(ctx, 1, "➕ Добавить трату")
	require.Len(t, replies, 1)
	assert.Equal(t, "Выбери категорию:", replies[0].Text)
	assert.NotEmpty(t, replies[0].Options)

	replies = engine.Handle(ctx, 1, "Еда")
	require.Len(t, replies, 1)
	assert.Equal(t, "Введи сумму для категории \"Еда\":", replies[0].Text)

	replies = engine.Handle(ctx, 1, "150")
	require.Len(t, replies, 1)
	assert.Equal(t, "Подтверди трату: Еда — 150₽", replies[0].Text)

	replies = engine.Handle(ctx, 1, "✅ Подтвердить")
	require.Len(t, replies, 1)
	assert.Equal(t, "Трата добавлена!", replies[0].Text)

	expenses, err := repo.ListExpenses(ctx, 1)
	require.NoError(t, err)
	require.Len(t, expenses, 1, "ровно одна трата за весь проход")
	assert.Equal(t, model.CategoryFood, expenses[0].Category)
	assert.True(t, expenses[0].Amount.Equal(dec("150")))
	assert.Equal(t, model.StageIdle, store.Get(1).Stage)
}

func TestAmountCommaAndDotParseIdentically(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, _ := newTestEngine(repo)
	ctx := context.Background()

	for userID, input := range map[int64]string{1: "12,5", 2: "12.5"} {
		engine.Handle(ctx, userID, "➕ Добавить трату")
		engine.Handle(ctx, userID, "Транспорт")
		engine.Handle(ctx, userID, input)
		engine.Handle(ctx, userID, "✅ Подтвердить")

		expenses, err := repo.ListExpenses(ctx, userID)
		require.NoError(t, err)
		require.Len(t, expenses, 1)
		assert.True(t, expenses[0].Amount.Equal(dec("12.5")), "input %q -> %s", input, expenses[0].Amount)
	}
}

func TestCancelCreatesNoExpense(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, store := newTestEngine(repo)
	ctx := context.Background()

	engine.Handle(ctx, 1, "➕ Добавить трату")
	engine.Handle(ctx, 1, "Одежда")
	engine.Handle(ctx, 1, "300")
	replies := engine.Handle(ctx, 1, "❌ Отмена")

	require.Len(t, replies, 1)
	assert.Equal(t, "Добавление траты отменено.", replies[0].Text)
	assert.Equal(t, model.StageIdle, store.Get(1).Stage)

	expenses, err := repo.ListExpenses(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, expenses)
}

func TestInvalidCategoryReprompts(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, store := newTestEngine(repo)
	ctx := context.Background()

	engine.Handle(ctx, 1, "➕ Добавить трату")
	replies := engine.Handle(ctx, 1, "Котики")

	require.Len(t, replies, 1)
	assert.Equal(t, "Такой категории нет. Выбери из списка:", replies[0].Text)
	assert.Equal(t, model.StageAwaitingCategory, store.Get(1).Stage)
}

func TestMalformedAmountDoesNotAdvance(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, store := newTestEngine(repo)
	ctx := context.Background()

	engine.Handle(ctx, 1, "➕ Добавить трату")
	engine.Handle(ctx, 1, "Еда")

	for _, input := range []string{"abc", "", "12abc", "-5", "0"} {
		replies := engine.Handle(ctx, 1, input)
		require.Len(t, replies, 1, "input %q", input)
		assert.Equal(t, "Это не похоже на число. Попробуй ещё раз.", replies[0].Text, "input %q", input)
		assert.Equal(t, model.StageAwaitingAmount, store.Get(1).Stage, "input %q", input)
	}

	expenses, err := repo.ListExpenses(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, expenses)
}

func TestConfirmationRepromptOnUnknownInput(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, store := newTestEngine(repo)
	ctx := context.Background()

	engine.Handle(ctx, 1, "➕ Добавить трату")
	engine.Handle(ctx, 1, "Еда")
	engine.Handle(ctx, 1, "100")
	replies := engine.Handle(ctx, 1, "может быть")

	require.Len(t, replies, 1)
	assert.Equal(t, "Подтверди или отмени трату:", replies[0].Text)
	assert.Equal(t, model.StageAwaitingConfirmation, store.Get(1).Stage)
}

func TestLimitFlow(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, store := newTestEngine(repo)
	ctx := context.Background()

	replies := engine.Handle(ctx, 1, "💰 Лимит")
	require.Len(t, replies, 1)
	assert.Equal(t, "Введи лимит на день в рублях (например: 500):", replies[0].Text)

	replies = engine.Handle(ctx, 1, "250")
	require.Len(t, replies, 1)
	assert.Equal(t, "Лимит установлен: 250₽ в день", replies[0].Text)
	assert.Equal(t, model.StageIdle, store.Get(1).Stage)

	limit, err := repo.GetDailyLimit(ctx, 1)
	require.NoError(t, err)
	assert.True(t, limit.Equal(dec("250")))
}

func TestLimitRejectsGarbageAndNegative(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, store := newTestEngine(repo)
	ctx := context.Background()

	engine.Handle(ctx, 1, "💰 Лимит")

	for _, input := range []string{"abc", "", "-5"} {
		replies := engine.Handle(ctx, 1, input)
		require.Len(t, replies, 1, "input %q", input)
		assert.Equal(t, "Это не число. Введи лимит снова:", replies[0].Text, "input %q", input)
		assert.Equal(t, model.StageAwaitingLimit, store.Get(1).Stage, "input %q", input)
	}

	// Ноль — валидное значение, отключает лимит.
	replies := engine.Handle(ctx, 1, "0")
	require.Len(t, replies, 1)
	assert.Equal(t, "Лимит установлен: 0₽ в день", replies[0].Text)
}

func TestLimitWarningOnConfirm(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, _ := newTestEngine(repo)
	ctx := context.Background()

	require.NoError(t, repo.UpsertDailyLimit(ctx, 1, dec("100")))

	engine.Handle(ctx, 1, "➕ Добавить трату")
	engine.Handle(ctx, 1, "Еда")
	engine.Handle(ctx, 1, "150")
	replies := engine.Handle(ctx, 1, "✅ Подтвердить")

	require.Len(t, replies, 1)
	assert.Equal(t, "Трата добавлена! ⚠️ Ты превысил дневной лимит: 150₽ / 100₽", replies[0].Text)
}

func TestNoLimitWarningWhenDisabled(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, _ := newTestEngine(repo)
	ctx := context.Background()

	engine.Handle(ctx, 1, "➕ Добавить трату")
	engine.Handle(ctx, 1, "Еда")
	engine.Handle(ctx, 1, "10000")
	replies := engine.Handle(ctx, 1, "✅ Подтвердить")

	require.Len(t, replies, 1)
	assert.Equal(t, "Трата добавлена!", replies[0].Text)
}

func TestFilterByPeriod(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, store := newTestEngine(repo)
	ctx := context.Background()

	now := time.Now()
	seed := []struct {
		category model.Category
		amount   string
		ts       time.Time
	}{
		{model.CategoryFood, "1", now.Add(-time.Minute)},
		{model.CategoryTransport, "2", now.AddDate(0, 0, -3)},
		{model.CategoryClothes, "3", now.AddDate(0, 0, -10)},
	}
	for _, e := range seed {
		expense := model.Expense{UserID: 1, Category: e.category, Amount: dec(e.amount), Timestamp: e.ts}
		require.NoError(t, repo.InsertExpense(ctx, &expense))
	}

	engine.Handle(ctx, 1, "📅 Фильтр по дате")
	replies := engine.Handle(ctx, 1, "Сегодня")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "Твои траты за период «Сегодня»:")
	assert.Contains(t, replies[0].Text, "Еда")
	assert.NotContains(t, replies[0].Text, "Транспорт")
	assert.Equal(t, model.StageIdle, store.Get(1).Stage)

	engine.Handle(ctx, 1, "📅 Фильтр по дате")
	replies = engine.Handle(ctx, 1, "Неделя")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "1. "+now.Add(-time.Minute).Format("2006-01-02")+" — Еда: 1₽")
	assert.Contains(t, replies[0].Text, "2. "+now.AddDate(0, 0, -3).Format("2006-01-02")+" — Транспорт: 2₽")
	assert.NotContains(t, replies[0].Text, "Одежда")

	engine.Handle(ctx, 1, "📅 Фильтр по дате")
	replies = engine.Handle(ctx, 1, "Месяц")
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0].Text, "Одежда")
}

func TestFilterInvalidChoiceReprompts(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, store := newTestEngine(repo)
	ctx := context.Background()

	engine.Handle(ctx, 1, "📅 Фильтр по дате")
	replies := engine.Handle(ctx, 1, "Вчера")

	require.Len(t, replies, 1)
	assert.Equal(t, "Неверный выбор. Пожалуйста, выбери из списка.", replies[0].Text)
	assert.Equal(t, model.StageAwaitingFilterChoice, store.Get(1).Stage)
}

func TestFilterBackReturnsToMenu(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, store := newTestEngine(repo)
	ctx := context.Background()

	engine.Handle(ctx, 1, "📅 Фильтр по дате")
	replies := engine.Handle(ctx, 1, "⬅️ Назад")

	require.Len(t, replies, 1)
	assert.Equal(t, "Возвращаемся в меню.", replies[0].Text)
	assert.Equal(t, model.StageIdle, store.Get(1).Stage)
}

func TestFilterEmptyPeriod(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, _ := newTestEngine(repo)
	ctx := context.Background()

	engine.Handle(ctx, 1, "📅 Фильтр по дате")
	replies := engine.Handle(ctx, 1, "Сегодня")

	require.Len(t, replies, 1)
	assert.Equal(t, "Нет трат за выбранный период.", replies[0].Text)
}

func TestUnknownIdleTextIgnored(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, _ := newTestEngine(repo)

	replies := engine.Handle(context.Background(), 1, "привет, бот")
	assert.Empty(t, replies)
}

func TestRestartClearsPendingState(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, store := newTestEngine(repo)
	ctx := context.Background()

	engine.Handle(ctx, 1, "➕ Добавить трату")
	engine.Handle(ctx, 1, "Еда")
	replies := engine.Handle(ctx, 1, "🔄 Перезапуск")

	require.Len(t, replies, 1)
	assert.Equal(t, "Бот перезапущен", replies[0].Text)
	assert.Equal(t, model.StageIdle, store.Get(1).Stage)

	// После сброса число — обычный текст вне диалога, трата не создается.
	assert.Empty(t, engine.Handle(ctx, 1, "150"))
	expenses, err := repo.ListExpenses(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, expenses)
}

func TestViewExpenses(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, _ := newTestEngine(repo)
	ctx := context.Background()

	replies := engine.Handle(ctx, 1, "📜 Посмотреть траты")
	require.Len(t, replies, 1)
	assert.Equal(t, "У тебя пока нет трат.", replies[0].Text)

	expense := model.Expense{UserID: 1, Category: model.CategoryFood, Amount: dec("42")}
	require.NoError(t, repo.InsertExpense(ctx, &expense))

	replies = engine.Handle(ctx, 1, "📜 Посмотреть траты")
	require.Len(t, replies, 1)
	assert.Equal(t, "Твои траты:\n\n1. Еда — 42₽", replies[0].Text)
}

func TestStats(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, _ := newTestEngine(repo)
	ctx := context.Background()

	replies := engine.Handle(ctx, 1, "📊 Статистика")
	require.Len(t, replies, 1)
	assert.Equal(t, "У тебя нет трат для статистики.", replies[0].Text)

	for _, e := range []struct {
		category model.Category
		amount   string
	}{
		{model.CategoryFood, "100"},
		{model.CategoryFood, "50"},
		{model.CategoryTransport, "30"},
	} {
		expense := model.Expense{UserID: 1, Category: e.category, Amount: dec(e.amount)}
		require.NoError(t, repo.InsertExpense(ctx, &expense))
	}

	replies = engine.Handle(ctx, 1, "📊 Статистика")
	require.Len(t, replies, 1)
	assert.Equal(t, "📊 Твоя статистика по категориям:\n\nЕда: 150₽\nТранспорт: 30₽", replies[0].Text)
}

func TestResetScopedToUser(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, _ := newTestEngine(repo)
	ctx := context.Background()

	for _, userID := range []int64{1, 2} {
		expense := model.Expense{UserID: userID, Category: model.CategoryFood, Amount: dec("10")}
		require.NoError(t, repo.InsertExpense(ctx, &expense))
	}

	replies := engine.Handle(ctx, 1, "♻️ Сброс")
	require.Len(t, replies, 1)
	assert.Equal(t, "Все траты удалены.", replies[0].Text)

	mine, err := repo.ListExpenses(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, mine)

	theirs, err := repo.ListExpenses(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestExportDocument(t *testing.T) {
	repo := repository.NewMemoryRepository()
	engine, _ := newTestEngine(repo)
	ctx := context.Background()

	replies := engine.Handle(ctx, 7, "💾 Экспорт")
	require.Len(t, replies, 1)
	assert.Equal(t, "У тебя пока нет трат для экспорта.", replies[0].Text)

	expense := model.Expense{UserID: 7, Category: model.CategoryOther, Amount: dec("99")}
	require.NoError(t, repo.InsertExpense(ctx, &expense))

	replies = engine.Handle(ctx, 7, "💾 Экспорт")
	require.Len(t, replies, 1)
	require.NotNil(t, replies[0].Document)
	assert.Equal(t, "export_7.txt", replies[0].Document.Name)
	assert.Contains(t, string(replies[0].Document.Data), " - Другое: 99₽")
}

func TestInsertFailureRevertsToIdle(t *testing.T) {
	repo := &failingRepo{Repository: repository.NewMemoryRepository(), failInsert: true}
	engine, store := newTestEngine(repo)
	ctx := context.Background()

	engine.Handle(ctx, 1, "➕ Добавить трату")
	engine.Handle(ctx, 1, "Еда")
	engine.Handle(ctx, 1, "100")
	replies := engine.Handle(ctx, 1, "✅ Подтвердить")

	require.Len(t, replies, 1)
	assert.Equal(t, "Что-то пошло не так. Попробуй ещё раз.", replies[0].Text)
	assert.Equal(t, model.StageIdle, store.Get(1).Stage)

	expenses, err := repo.Repository.ListExpenses(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, expenses, "после ошибки записи не остается")
}

func TestFilterQueryFailureRevertsToIdle(t *testing.T) {
	repo := &failingRepo{Repository: repository.NewMemoryRepository(), failList: true}
	engine, store := newTestEngine(repo)
	ctx := context.Background()

	engine.Handle(ctx, 1, "📅 Фильтр по дате")
	replies := engine.Handle(ctx, 1, "Сегодня")

	require.Len(t, replies, 1)
	assert.Equal(t, "Что-то пошло не так. Попробуй ещё раз.", replies[0].Text)
	assert.Equal(t, model.StageIdle, store.Get(1).Stage)
}
