package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/Kerhoff/liora/internal/models"
	"github.com/Kerhoff/liora/internal/repository"
)

const (
	stepsGoal    = 10000
	caloriesGoal = 2000

	noVitalValue = "--"
	noVitalTrend = "No data"
)

// defaultVitals are the dashboard cards shown before anything is recorded.
func defaultVitals() map[string]models.VitalSummary {
	return map[string]models.VitalSummary{
		models.VitalHeartRate: {Value: noVitalValue, Unit: "BPM", Trend: noVitalTrend},
		models.VitalSpO2:      {Value: noVitalValue, Unit: "%", Trend: noVitalTrend},
		models.VitalSteps:     {Value: 0.0, Goal: stepsGoal},
		models.VitalSleep:     {Value: noVitalValue, Trend: noVitalTrend},
		models.VitalCalories:  {Value: 0.0, Left: floatPtr(caloriesGoal)},
	}
}

// UserDashboard summarises the latest vital of each dashboard type and the
// medications and routines scheduled today for the user or the whole
// family.
func (s *Service) UserDashboard(ctx context.Context, userID string) (*models.UserDashboard, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	latest, err := s.Vitals.LatestByType(ctx, p.ID, models.DashboardVitalTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest vitals for %s: %w", p.ID, err)
	}

	dash := &models.UserDashboard{
		Vitals:      summariseVitals(latest),
		Medications: []models.DashboardMedication{},
		Routines:    []models.DashboardRoutine{},
	}
	if !p.HasFamily() {
		return dash, nil
	}

	today := s.now().Format(models.DateLayout)
	entries, err := s.Schedules.GetByFamily(ctx, *p.FamilyID, repository.ScheduleFilters{Date: &today})
	if err != nil {
		return nil, fmt.Errorf("failed to get today's schedule for %s: %w", p.ID, err)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Time < entries[j].Time })

	for _, e := range entries {
		if e.AssignedTo != nil && *e.AssignedTo != p.ID {
			continue
		}
		done := e.Status == models.ScheduleStatusCompleted
		switch e.Type {
		case models.ScheduleTypeMedication:
			dash.Medications = append(dash.Medications, models.DashboardMedication{
				ID: e.ID, Name: e.Title, Dose: e.Description, Time: e.Time, Taken: done,
			})
		case models.ScheduleTypeRoutine, models.ScheduleTypeExercise:
			dash.Routines = append(dash.Routines, models.DashboardRoutine{
				ID: e.ID, Name: e.Title, Time: e.Time, Completed: done,
			})
		}
	}
	return dash, nil
}

func summariseVitals(latest map[string]*models.Vital) map[string]models.VitalSummary {
	vitals := defaultVitals()
	for typ, card := range vitals {
		v, ok := latest[typ]
		if !ok {
			continue
		}
		recordedAt := v.RecordedAt
		card.Value = v.Value
		card.Unit = v.Unit
		card.Trend = "Updated " + recordedAt.Format("Jan 2 15:04")
		card.RecordedAt = &recordedAt
		if typ == models.VitalCalories {
			card.Left = floatPtr(max(caloriesGoal-v.Value, 0))
		}
		vitals[typ] = card
	}
	return vitals
}

func floatPtr(f float64) *float64 { return &f }
