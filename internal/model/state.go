package model

import "github.com/shopspring/decimal"

// Stage — текущий шаг диалога с пользователем.
type Stage int

const (
	StageIdle Stage = iota
	StageAwaitingCategory
	StageAwaitingAmount
	StageAwaitingConfirmation
	StageAwaitingLimit
	StageAwaitingFilterChoice
)

// ConversationState — состояние диалога одного пользователя. Живет только в
// памяти процесса: после рестарта все диалоги начинаются с главного меню.
type ConversationState struct {
	Stage           Stage
	PendingCategory Category
	PendingAmount   decimal.Decimal // заполнена только на StageAwaitingConfirmation
}
