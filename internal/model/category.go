package model

import "time"

// Category — категория траты из фиксированного набора.
type Category string

const (
	CategoryFood          Category = "Еда"
	CategoryTransport     Category = "Транспорт"
	CategoryClothes       Category = "Одежда"
	CategoryEntertainment Category = "Развлечения"
	CategoryOther         Category = "Другое"
)

// Categories — все категории в порядке показа на клавиатуре.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryClothes,
	CategoryEntertainment,
	CategoryOther,
}

// ParseCategory сопоставляет текст пользователя с категорией.
// Любой текст вне набора отклоняется здесь, а не по ходу диалога.
func ParseCategory(text string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == text {
			return c, true
		}
	}
	return "", false
}

// Period — период фильтрации трат.
type Period string

const (
	PeriodDay   Period = "day"   // с начала текущего дня
	PeriodWeek  Period = "week"  // последние 7 суток
	PeriodMonth Period = "month" // последние 30 суток
)

// ParsePeriod сопоставляет кнопку выбора периода с периодом.
func ParsePeriod(text string) (Period, bool) {
	switch text {
	case "Сегодня":
		return PeriodDay, true
	case "Неделя":
		return PeriodWeek, true
	case "Месяц":
		return PeriodMonth, true
	}
	return "", false
}

// Label возвращает название периода для пользователя.
func (p Period) Label() string {
	switch p {
	case PeriodDay:
		return "Сегодня"
	case PeriodWeek:
		return "Неделя"
	case PeriodMonth:
		return "Месяц"
	}
	return string(p)
}

// Start возвращает начало периода относительно момента now.
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case PeriodDay:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		return now.Add(-7 * 24 * time.Hour)
	case PeriodMonth:
		return now.Add(-30 * 24 * time.Hour)
	}
	return now
}
