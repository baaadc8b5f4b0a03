package handlers

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"

	"github.com/Kerhoff/liora/internal/models"
)

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ann Smith", displayName(&tgbotapi.User{FirstName: "Ann", LastName: "Smith"}))
	assert.Equal(t, "Ann", displayName(&tgbotapi.User{FirstName: "Ann"}))
	assert.Equal(t, "annie", displayName(&tgbotapi.User{UserName: "annie"}))
	assert.Equal(t, "", displayName(nil))
}

func TestFormatFamily(t *testing.T) {
	text := formatFamily(&models.Family{
		Name:       "The_Smiths",
		InviteCode: "LIORA-ABC123",
		PioneerID:  "p1",
		Members: []models.Profile{
			{ID: "p1", FullName: "Ann"},
			{ID: "p2", FullName: "Tom", ProfileData: map[string]any{"relationship": "Son"}},
			{ID: "p3"},
		},
	})

	assert.Contains(t, text, "*The\\_Smiths*")
	assert.Contains(t, text, "`LIORA-ABC123`")
	assert.Contains(t, text, "• Ann (pioneer)")
	assert.Contains(t, text, "• Tom (son)")
	assert.Contains(t, text, "• Someone")
}

func TestFormatSchedules(t *testing.T) {
	assert.Equal(t, "📅 Nothing scheduled for 2025-03-15.", formatSchedules("2025-03-15", nil))

	entries := []*models.ScheduleEntry{
		{Title: "Walk", Time: "18:00", Type: models.ScheduleTypeExercise, Status: models.ScheduleStatusPending},
		{Title: "Pills", Time: "08:00", Type: models.ScheduleTypeMedication, Status: models.ScheduleStatusCompleted,
			Member: &models.MemberInfo{Name: "Ann"}},
	}
	text := formatSchedules("2025-03-15", entries)

	assert.Contains(t, text, "*Schedule for 2025-03-15*")
	assert.Contains(t, text, "💊 08:00 Pills (Ann) ✅\n🏃 18:00 Walk (Family)")
	assert.Equal(t, "Walk", entries[0].Title, "input order is preserved")
}

func TestInviteCodeText(t *testing.T) {
	assert.Contains(t, inviteCodeText("LIORA-ABC123"), "`LIORA-ABC123`")
}
