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
	msgUnknownUser      = "I can't generate data because I don't know who you are."
	msgNoDataPoints     = "I couldn't generate any valid data points."
	msgVitalsNotWritten = "I generated the data but couldn't save it to the database."
	msgSimulationGlitch = "I ran into a glitch while generating your data."
	msgVitalsGenerated  = "Data generated successfully."
)

// VitalStore persists vitals and returns the rows written.
type VitalStore interface {
	Create(ctx context.Context, vitals []*models.Vital) ([]*models.Vital, error)
}

// Simulation generates mock vitals for the requesting user.
type Simulation struct {
	completer llm.Completer
	vitals    VitalStore
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewSimulation creates the simulation agent. metrics may be nil.
func NewSimulation(completer llm.Completer, vitals VitalStore, logger *logrus.Logger, m *metrics.Metrics) *Simulation {
	return &Simulation{
		completer: completer,
		vitals:    vitals,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Process implements Agent.
func (a *Simulation) Process(ctx context.Context, req Request) Reply {
	raw, err := a.completer.Complete(ctx, simulationPrompt(req), simulationInstruction, nil)
	if err != nil {
		a.logger.WithError(err).WithField("agent", NameSimulation).Error("Simulation completion failed")
		return text(msgSimulationGlitch)
	}

	payload, ok := extract.JSON(raw)
	if !ok {
		countExtractionFailure(a.metrics, NameSimulation)
		return text(raw)
	}

	if extract.String(payload, "action") != "generate_vitals" {
		if reply := extract.String(payload, "response"); reply != "" {
			return text(reply)
		}
		return text(raw)
	}

	if req.UserID == "" {
		return text(msgUnknownUser)
	}

	recordedAt := a.now()
	points, _ := payload["data"].([]any)
	vitals := make([]*models.Vital, 0, len(points))
	for _, p := range points {
		if v, ok := vitalFromPoint(p); ok {
			v.UserID = req.UserID
			v.Source = models.VitalSourceSimulation
			v.RecordedAt = recordedAt
			vitals = append(vitals, v)
		}
	}
	if len(vitals) == 0 {
		return text(msgNoDataPoints)
	}

	log := a.logger.WithFields(logrus.Fields{
		"agent":   NameSimulation,
		"user_id": req.UserID,
	})
	written, err := a.vitals.Create(ctx, vitals)
	if err != nil {
		log.WithError(err).Error("Failed to store simulated vitals")
		return text(msgSimulationGlitch)
	}
	if len(written) == 0 {
		log.Warn("Vitals insert wrote no rows")
		return text(msgVitalsNotWritten)
	}
	log.WithField("count", len(written)).Info("Simulated vitals stored")

	if reply := extract.String(payload, "response"); reply != "" {
		return text(reply)
	}
	return text(msgVitalsGenerated)
}

func simulationPrompt(req Request) string {
	var data map[string]any
	if req.Profile != nil {
		data = req.Profile.ProfileData
	}

	age := "unknown"
	switch v := data["age"].(type) {
	case string:
		if v != "" {
			age = v
		}
	case float64:
		age = fmt.Sprint(v)
	}

	gender := "unknown"
	for _, key := range []string{"gender", "sex"} {
		if s, ok := data[key].(string); ok && s != "" {
			gender = s
			break
		}
	}

	conditions := "None"
	if list, ok := data["conditions"].([]any); ok && len(list) > 0 {
		names := make([]string, 0, len(list))
		for _, c := range list {
			if s, ok := c.(string); ok {
				names = append(names, s)
			}
		}
		if len(names) > 0 {
			conditions = strings.Join(names, ", ")
		}
	}

	return fmt.Sprintf("User Profile:\nAge: %s\nGender: %s\nConditions: %s\n\nUser Message: %s\n\nGenerate realistic vitals data for this user.",
		age, gender, conditions, req.Message)
}

// vitalFromPoint accepts a data point with a non-empty type and unit and a
// numeric value.
func vitalFromPoint(p any) (*models.Vital, bool) {
	point, ok := p.(map[string]any)
	if !ok {
		return nil, false
	}
	kind := strings.TrimSpace(extract.String(point, "type"))
	unit := strings.TrimSpace(extract.String(point, "unit"))
	value, ok := point["value"].(float64)
	if !ok || kind == "" || unit == "" {
		return nil, false
	}
	return &models.Vital{Type: kind, Value: value, Unit: unit}, true
}
