package dialog

import "github.com/akozlov/spendbot/internal/model"

// Reply — одно исходящее сообщение. Содержимое транспортно-нейтрально:
// адаптер только доставляет текст, клавиатуру и вложения.
type Reply struct {
	Text     string
	Options  [][]string // клавиатура с вариантами ответа; nil — без клавиатуры
	Document *Document
	Photo    []byte // PNG
}

// Document — файл, отправляемый пользователю.
type Document struct {
	Name string
	Data []byte
}

func mainMenuOptions() [][]string {
	return [][]string{
		{"➕ Добавить трату"},
		{"📜 Посмотреть траты", "📊 Статистика"},
		{"📅 Фильтр по дате", "♻️ Сброс"},
		{"💾 Экспорт", "💰 Лимит"},
		{"🔄 Перезапуск"},
	}
}

func categoryOptions() [][]string {
	row := make([]string, 0, len(model.Categories))
	for _, c := range model.Categories {
		row = append(row, string(c))
	}
	return [][]string{row}
}

func periodOptions() [][]string {
	return [][]string{
		{"Сегодня", "Неделя", "Месяц"},
		{"⬅️ Назад"},
	}
}

func confirmOptions() [][]string {
	return [][]string{{"✅ Подтвердить", "❌ Отмена"}}
}
