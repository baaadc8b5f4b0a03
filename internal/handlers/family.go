package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/liora/internal/service"
)

// FamilyHandler handles the /family command
type FamilyHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewFamilyHandler creates a new family command handler
func NewFamilyHandler(svc *service.Service, logger *logrus.Logger) *FamilyHandler {
	return &FamilyHandler{svc: svc, logger: logger}
}

// Handle shows the caller's family, its invite code and members.
func (h *FamilyHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	p, err := h.svc.EnsureTelegramProfile(ctx, message.From.ID, displayName(message.From))
	if err != nil {
		return fmt.Errorf("failed to ensure profile: %w", err)
	}

	text := "You are not part of a Family Circle yet. Tell me whether you want to start one or join one with an invite code."
	if p.HasFamily() {
		family, err := h.svc.GetFamily(ctx, *p.FamilyID)
		if err != nil {
			return fmt.Errorf("failed to get family: %w", err)
		}
		text = formatFamily(family)
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send family message: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id":    message.Chat.ID,
		"profile_id": p.ID,
	}).Info("Sent family details")

	return nil
}
