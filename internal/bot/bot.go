package bot

import (
	"context"
	"encoding/json"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/akozlov/spendbot/internal/dialog"
	"github.com/akozlov/spendbot/internal/gate"
)

// Bot связывает Telegram с движком диалога.
type Bot struct {
	api    *tgbotapi.BotAPI
	engine *dialog.Engine
	gate   gate.Gate
}

func NewBot(api *tgbotapi.BotAPI, engine *dialog.Engine, g gate.Gate) *Bot {
	return &Bot{
		api:    api,
		engine: engine,
		gate:   g,
	}
}

// Start запускает бота в режиме long polling до отмены контекста.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil || update.Message.From == nil {
			continue
		}
		// Сообщения разных пользователей обрабатываются параллельно; ходы
		// одного пользователя сериализует его замок внутри движка.
		go b.handleMessage(ctx, update.Message)
	}

	return nil
}

// HandleWebhook — точка входа для обработки входящего webhook-обновления.
func (b *Bot) HandleWebhook(body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return err
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}
	b.handleMessage(context.Background(), update.Message)
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	// Гейт стоит перед движком: без подписки диалог не начинается.
	ok, err := b.gate.IsAuthorized(ctx, userID)
	if err != nil {
		slog.Warn("gate check failed", "user_id", userID, "error", err)
		ok = false
	}
	if !ok {
		b.send(chatID, dialog.Reply{Text: "🔒 Бот доступен по подписке. Подпишись на канал и напиши снова."})
		return
	}

	for _, reply := range b.engine.Handle(ctx, userID, message.Text) {
		b.send(chatID, reply)
	}
}

func (b *Bot) send(chatID int64, reply dialog.Reply) {
	var msg tgbotapi.Chattable
	switch {
	case reply.Document != nil:
		msg = tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
			Name:  reply.Document.Name,
			Bytes: reply.Document.Data,
		})
	case reply.Photo != nil:
		msg = tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
			Name:  "chart.png",
			Bytes: reply.Photo,
		})
	default:
		text := tgbotapi.NewMessage(chatID, reply.Text)
		if len(reply.Options) > 0 {
			text.ReplyMarkup = replyKeyboard(reply.Options)
		}
		msg = text
	}

	if _, err := b.api.Send(msg); err != nil {
		slog.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

// SendText реализует scheduler.Notifier: в личном чате id чата совпадает
// с id пользователя.
func (b *Bot) SendText(userID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(userID, text))
	return err
}
