package handlers

import (
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Kerhoff/liora/internal/models"
)

var scheduleIcons = map[models.ScheduleType]string{
	models.ScheduleTypeRoutine:     "🔁",
	models.ScheduleTypeMedication:  "💊",
	models.ScheduleTypeAppointment: "🩺",
	models.ScheduleTypeExercise:    "🏃",
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown escapes user supplied text for Telegram's legacy Markdown.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func inviteCodeText(code string) string {
	return fmt.Sprintf("🔑 Your Family Circle invite code is `%s`\nShare it with family members so they can join.", code)
}

func formatFamily(f *models.Family) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👪 *%s*\n", escapeMarkdown(f.Name))
	if f.InviteCode != "" {
		fmt.Fprintf(&b, "Invite code: `%s`\n", f.InviteCode)
	}

	b.WriteString("\n*Members:*\n")
	for _, m := range f.Members {
		line := escapeMarkdown(m.DisplayName())
		if m.ID == f.PioneerID {
			line += " (pioneer)"
		} else if rel := m.Relationship(); rel != "" {
			line += " (" + escapeMarkdown(rel) + ")"
		}
		fmt.Fprintf(&b, "• %s\n", line)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSchedules(day string, entries []*models.ScheduleEntry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("📅 Nothing scheduled for %s.", day)
	}

	sorted := make([]*models.ScheduleEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	var b strings.Builder
	fmt.Fprintf(&b, "📅 *Schedule for %s*\n\n", day)
	for _, e := range sorted {
		icon := scheduleIcons[e.Type]
		if icon == "" {
			icon = "•"
		}
		who := "Family"
		if e.Member != nil {
			who = e.Member.Name
		}
		status := ""
		switch e.Status {
		case models.ScheduleStatusCompleted:
			status = " ✅"
		case models.ScheduleStatusSkipped:
			status = " ⏭"
		}
		fmt.Fprintf(&b, "%s %s %s (%s)%s\n", icon, e.Time, escapeMarkdown(e.Title), escapeMarkdown(who), status)
	}
	return strings.TrimRight(b.String(), "\n")
}
