package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/liora/internal/models"
)

const reminderInterval = 30 * time.Second

// ReminderCallback sends a reminder message to a Telegram chat.
type ReminderCallback func(chatID int64, text string) error

// StartScheduleReminders runs a background loop that checks for due
// schedule entries every 30 seconds and sends each one to the family members
// linked to Telegram. It blocks until the context is cancelled, so it should
// be launched in a separate goroutine.
func (s *Service) StartScheduleReminders(ctx context.Context, send ReminderCallback) {
	ticker := time.NewTicker(reminderInterval)
	defer ticker.Stop()

	s.logger.Info("Schedule reminders started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Schedule reminders stopped")
			return
		case now := <-ticker.C:
			s.processReminders(ctx, now, send)
		}
	}
}

// processReminders sends every pending entry whose start time has passed
// and marks it reminded so it is sent once.
func (s *Service) processReminders(ctx context.Context, now time.Time, send ReminderCallback) {
	entries, err := s.Schedules.GetDue(ctx, now.Format(models.DateLayout))
	if err != nil {
		s.logger.WithError(err).Error("Failed to get due schedules")
		return
	}

	for _, e := range entries {
		startsAt, err := e.StartsAt(now.Location())
		if err != nil {
			s.logger.WithError(err).WithField("schedule_id", e.ID).Warn("Skipping schedule with invalid date or time")
			continue
		}
		if startsAt.After(now) {
			continue
		}

		recipients, err := s.reminderRecipients(ctx, e)
		if err != nil {
			s.logger.WithError(err).WithField("schedule_id", e.ID).Error("Failed to resolve reminder recipients")
			continue
		}

		text := reminderText(e)
		for _, chatID := range recipients {
			if err := send(chatID, text); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"schedule_id": e.ID,
					"chat_id":     chatID,
				}).Error("Failed to send schedule reminder")
				continue
			}
			if s.metrics != nil {
				s.metrics.RemindersSent.Inc()
			}
		}

		if err := s.Schedules.MarkReminded(ctx, e.ID, now); err != nil {
			s.logger.WithError(err).WithField("schedule_id", e.ID).Error("Failed to mark schedule reminded")
		}
	}
}

// reminderRecipients returns the Telegram chats of the assignee, or of the
// whole family when the entry is unassigned.
func (s *Service) reminderRecipients(ctx context.Context, e *models.ScheduleEntry) ([]int64, error) {
	members, err := s.Profiles.GetByFamily(ctx, e.FamilyID)
	if err != nil {
		return nil, err
	}

	var chats []int64
	for _, m := range members {
		if m.TelegramID == nil {
			continue
		}
		if e.AssignedTo != nil && *e.AssignedTo != m.ID {
			continue
		}
		chats = append(chats, *m.TelegramID)
	}
	return chats, nil
}

func reminderText(e *models.ScheduleEntry) string {
	text := fmt.Sprintf("⏰ *Reminder*\n%s at %s", e.Title, e.Time)
	if e.Description != "" {
		text += "\n" + e.Description
	}
	return text
}
