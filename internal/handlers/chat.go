package handlers

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/liora/internal/service"
)

// chatTimeout bounds one conversation turn including the completion call.
const chatTimeout = 2 * time.Minute

// ChatHandler sends plain messages through the conversation engine.
type ChatHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(svc *service.Service, logger *logrus.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, logger: logger}
}

// HandleText answers a plain text message.
func (h *ChatHandler) HandleText(bot *tgbotapi.BotAPI, message *tgbotapi.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
	defer cancel()

	p, err := h.svc.EnsureTelegramProfile(ctx, message.From.ID, displayName(message.From))
	if err != nil {
		return fmt.Errorf("failed to ensure profile: %w", err)
	}

	bot.Request(tgbotapi.NewChatAction(message.Chat.ID, tgbotapi.ChatTyping))

	resp, err := h.svc.Chat(ctx, service.ChatRequest{UserID: p.ID, Message: message.Text})
	if err != nil {
		return fmt.Errorf("failed to process message: %w", err)
	}

	// Replies are model text; sent without a parse mode so stray Markdown
	// cannot make Telegram reject them.
	reply := tgbotapi.NewMessage(message.Chat.ID, resp.Response)
	if _, err := bot.Send(reply); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}

	if code := resp.Metadata.Updates.FamilyCode; code != "" {
		msg := tgbotapi.NewMessage(message.Chat.ID, inviteCodeText(code))
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := bot.Send(msg); err != nil {
			return fmt.Errorf("failed to send invite code: %w", err)
		}
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id":    message.Chat.ID,
		"profile_id": p.ID,
		"agent":      resp.Metadata.Agent,
	}).Info("Answered chat message")

	return nil
}
