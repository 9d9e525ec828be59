// Package gate решает, допущен ли пользователь к боту.
package gate

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Gate проверяет доступ пользователя перед обработкой его сообщения.
type Gate interface {
	IsAuthorized(ctx context.Context, userID int64) (bool, error)
}

// AllowAll пропускает всех. Используется, когда канал подписки не настроен.
type AllowAll struct{}

func (AllowAll) IsAuthorized(ctx context.Context, userID int64) (bool, error) {
	return true, nil
}

// ChannelGate допускает только подписчиков заданного канала.
type ChannelGate struct {
	api     *tgbotapi.BotAPI
	channel string // @username канала
}

func NewChannelGate(api *tgbotapi.BotAPI, channel string) *ChannelGate {
	return &ChannelGate{api: api, channel: channel}
}

func (g *ChannelGate) IsAuthorized(ctx context.Context, userID int64) (bool, error) {
	member, err := g.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: g.channel,
			UserID:             userID,
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to check channel membership: %w", err)
	}

	switch member.Status {
	case "creator", "administrator", "member":
		return true, nil
	}
	return false, nil
}
