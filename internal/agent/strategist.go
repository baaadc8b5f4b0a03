package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/liora/internal/extract"
	"github.com/Kerhoff/liora/internal/llm"
	"github.com/Kerhoff/liora/internal/metrics"
	"github.com/Kerhoff/liora/internal/models"
)

const (
	msgNoFamily           = "I can't add that to the schedule because I don't know which family you belong to."
	msgScheduleNotWritten = "I tried to add that to the schedule, but something went wrong."
	msgScheduleAdded      = "Done! I've added that to the schedule."
	msgStrategistTrouble  = "I'm having a bit of trouble processing that request right now."
	msgScheduleIncomplete = "I couldn't add that yet. What %s should I use?"
)

// ScheduleStore persists schedule entries and returns the rows written.
type ScheduleStore interface {
	Create(ctx context.Context, entries []*models.ScheduleEntry) ([]*models.ScheduleEntry, error)
}

// MemberLister lists the profiles of a family.
type MemberLister interface {
	GetByFamily(ctx context.Context, familyID string) ([]*models.Profile, error)
}

// Strategist turns scheduling requests into schedule entries.
type Strategist struct {
	completer llm.Completer
	schedules ScheduleStore
	members   MemberLister
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewStrategist creates the scheduling agent. metrics may be nil.
func NewStrategist(completer llm.Completer, schedules ScheduleStore, members MemberLister, logger *logrus.Logger, m *metrics.Metrics) *Strategist {
	return &Strategist{
		completer: completer,
		schedules: schedules,
		members:   members,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Process implements Agent.
func (a *Strategist) Process(ctx context.Context, req Request) Reply {
	now := a.now()
	prompt := fmt.Sprintf("Current Date: %s (%s)\nUser Message: %s\n\nExtract the schedule details and return the JSON.",
		now.Format(models.DateLayout), now.Weekday(), req.Message)

	raw, err := a.completer.Complete(ctx, prompt, strategistInstruction, nil)
	if err != nil {
		a.logger.WithError(err).WithField("agent", NameStrategist).Error("Strategist completion failed")
		return text(msgStrategistTrouble)
	}

	payload, ok := extract.JSON(raw)
	if !ok {
		countExtractionFailure(a.metrics, NameStrategist)
		return text(raw)
	}

	switch extract.String(payload, "action") {
	case "create_schedule":
		return text(a.createSchedule(ctx, req, payload))
	default:
		if reply := extract.String(payload, "response"); reply != "" {
			return text(reply)
		}
		return text(raw)
	}
}

func (a *Strategist) createSchedule(ctx context.Context, req Request, payload map[string]any) string {
	if !req.Profile.HasFamily() {
		return msgNoFamily
	}
	familyID := *req.Profile.FamilyID
	log := a.logger.WithFields(logrus.Fields{
		"agent":     NameStrategist,
		"family_id": familyID,
	})

	data := extract.Object(payload, "data")
	entry, missing := scheduleFromData(data)
	if missing != "" {
		log.WithField("missing", missing).Info("Schedule request incomplete")
		return fmt.Sprintf(msgScheduleIncomplete, missing)
	}
	entry.FamilyID = familyID
	entry.Status = models.ScheduleStatusPending

	if name := strings.TrimSpace(extract.String(data, "assigned_to_name")); name != "" && !strings.EqualFold(name, "family") {
		members, err := a.members.GetByFamily(ctx, familyID)
		if err != nil {
			log.WithError(err).Error("Failed to list family members")
			return msgStrategistTrouble
		}
		entry.AssignedTo = resolveAssignee(name, members)
	}

	written, err := a.schedules.Create(ctx, []*models.ScheduleEntry{entry})
	if err != nil {
		log.WithError(err).Error("Failed to create schedule entry")
		return msgScheduleNotWritten
	}
	if len(written) == 0 {
		log.Warn("Schedule insert wrote no rows")
		return msgScheduleNotWritten
	}

	log.WithFields(logrus.Fields{
		"schedule_id": written[0].ID,
		"date":        entry.Date,
		"time":        entry.Time,
	}).Info("Schedule entry created")

	if reply := extract.String(payload, "response"); reply != "" {
		return reply
	}
	return msgScheduleAdded
}

// scheduleFromData validates the model's schedule data. On failure it
// names the first missing or malformed detail.
func scheduleFromData(data map[string]any) (*models.ScheduleEntry, string) {
	title := strings.TrimSpace(extract.String(data, "title"))
	if title == "" {
		return nil, "title"
	}

	date, err := time.Parse(models.DateLayout, strings.TrimSpace(extract.String(data, "date")))
	if err != nil {
		return nil, "date (YYYY-MM-DD)"
	}

	at, err := time.Parse(models.TimeLayout, strings.TrimSpace(extract.String(data, "time")))
	if err != nil {
		return nil, "time (HH:MM)"
	}

	return &models.ScheduleEntry{
		Title:       title,
		Date:        date.Format(models.DateLayout),
		Time:        at.Format(models.TimeLayout),
		Type:        models.ParseScheduleType(extract.String(data, "type")),
		Description: strings.TrimSpace(extract.String(data, "description")),
	}, ""
}

// resolveAssignee returns the id of the first member whose full name
// contains name, or else whose role or relation equals it. No match means
// the whole family.
func resolveAssignee(name string, members []*models.Profile) *string {
	target := strings.ToLower(name)
	for _, m := range members {
		if strings.Contains(strings.ToLower(m.FullName), target) ||
			models.DataString(m.ProfileData, "role") == target ||
			models.DataString(m.ProfileData, "relation") == target {
			id := m.ID
			return &id
		}
	}
	return nil
}
