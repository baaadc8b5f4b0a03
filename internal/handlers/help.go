package handlers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

func (h *HelpHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	helpText := `📚 *Liora Help*

Just talk to me. I'll help you set up your profile, keep your family's schedule and answer health questions.

*Commands:*
• /start - Start or resume onboarding
• /family - Show your Family Circle and invite code
• /schedule [YYYY-MM-DD] - Show the family schedule for a day
• /help - Show this help message

*Examples:*
• _Schedule a dentist appointment for mom tomorrow at 9:30_
• _Simulate my vitals_
• _I feel lonely today_`

	msg := tgbotapi.NewMessage(message.Chat.ID, helpText)
	msg.ParseMode = tgbotapi.ModeMarkdown

	_, err := bot.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send help message: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
	}).Info("Sent help message")

	return nil
}
