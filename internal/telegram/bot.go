package telegram

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"procheff/internal/config"
)

// replyTimeout bounds the work done for a single message.
const replyTimeout = 30 * time.Second

// Bot wraps the Telegram API and the cost commands.
type Bot struct {
	api      *tgbotapi.BotAPI
	commands *Commands
	allowed  []int64
	log      *zap.Logger
}

// NewBot initializes the Telegram Bot and sets the Webhook when a webhook
// URL is configured.
func NewBot(cfg *config.Config, commands *Commands, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Info("telegram bot authorized", zap.String("account", api.Self.UserName))

	if cfg.TelegramWebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
		}
		resp, err := api.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
		}
		log.Info("webhook set", zap.String("description", resp.Description))
	}

	if len(cfg.TelegramAllowedUserIDs) == 0 {
		log.Warn("no TELEGRAM_ALLOWED_USER_IDS configured; every message will be ignored")
	}

	return &Bot{
		api:      api,
		commands: commands,
		allowed:  cfg.TelegramAllowedUserIDs,
		log:      log,
	}, nil
}

// HandleWebhook receives Telegram updates.
func (b *Bot) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.log.Warn("error parsing update", zap.Error(err))
		http.Error(w, "invalid update", http.StatusBadRequest)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	if !isAllowed(b.allowed, msg.From.ID) {
		b.log.Warn("unauthorized access attempt",
			zap.Int64("user_id", msg.From.ID),
			zap.String("username", msg.From.UserName),
		)
		return
	}

	go b.processMessage(msg)
}

func isAllowed(allowed []int64, userID int64) bool {
	return slices.Contains(allowed, userID)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	reply := tgbotapi.NewMessage(msg.Chat.ID, b.commands.Handle(ctx, msg.Text))
	reply.ParseMode = tgbotapi.ModeMarkdown
	reply.ReplyToMessageID = msg.MessageID
	if _, err := b.api.Send(reply); err != nil {
		b.log.Error("failed to send reply", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}
