package handlers

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/liora/internal/models"
	"github.com/Kerhoff/liora/internal/repository"
	"github.com/Kerhoff/liora/internal/service"
)

// ScheduleHandler handles the /schedule [YYYY-MM-DD] command
type ScheduleHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewScheduleHandler creates a new schedule command handler
func NewScheduleHandler(svc *service.Service, logger *logrus.Logger) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, logger: logger}
}

// Handle lists the family schedule for the given day, today by default.
func (h *ScheduleHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx := context.Background()

	day := time.Now().Format(models.DateLayout)
	if len(args) > 0 {
		if _, err := time.Parse(models.DateLayout, args[0]); err != nil {
			msg := tgbotapi.NewMessage(message.Chat.ID,
				"❌ Please use the format `YYYY-MM-DD`.\nExample: `/schedule 2025-01-15`")
			msg.ParseMode = tgbotapi.ModeMarkdown
			bot.Send(msg)
			return nil
		}
		day = args[0]
	}

	p, err := h.svc.EnsureTelegramProfile(ctx, message.From.ID, displayName(message.From))
	if err != nil {
		return fmt.Errorf("failed to ensure profile: %w", err)
	}
	if !p.HasFamily() {
		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "You need to be part of a Family Circle to see a schedule."))
		return nil
	}

	entries, err := h.svc.ListSchedules(ctx, *p.FamilyID, repository.ScheduleFilters{Date: &day})
	if err != nil {
		return fmt.Errorf("failed to list schedules: %w", err)
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, formatSchedules(day, entries))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send schedule: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id":   message.Chat.ID,
		"family_id": *p.FamilyID,
		"date":      day,
		"count":     len(entries),
	}).Info("Sent schedule")

	return nil
}
