package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/liora/internal/service"
)

const onboardingGreeting = `👋 *Hi, I'm Liora!*

I'm your family's health assistant. Before we start, I'd like to get to know you a little.

Are you starting a new Family Circle for your family, or joining one with an invite code from a family member?`

// StartHandler handles the /start command
type StartHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewStartHandler creates a new start command handler
func NewStartHandler(svc *service.Service, logger *logrus.Logger) *StartHandler {
	return &StartHandler{svc: svc, logger: logger}
}

// Handle processes the /start command. It links the Telegram user to a
// profile and greets them according to their onboarding progress.
func (h *StartHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	p, err := h.svc.EnsureTelegramProfile(context.Background(), message.From.ID, displayName(message.From))
	if err != nil {
		return fmt.Errorf("failed to ensure profile: %w", err)
	}

	text := onboardingGreeting
	if p.OnboardingCompleted {
		text = fmt.Sprintf("👋 Welcome back, *%s*! Just send me a message whenever you need me. Use /help to see what I can do.",
			escapeMarkdown(p.DisplayName()))
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send start message: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id":    message.Chat.ID,
		"profile_id": p.ID,
		"completed":  p.OnboardingCompleted,
	}).Info("Sent start message")

	return nil
}
