package models

import "time"

// Vital types shown on the user dashboard, in display order.
const (
	VitalHeartRate = "heart_rate"
	VitalSpO2      = "spo2"
	VitalSteps     = "steps"
	VitalSleep     = "sleep"
	VitalCalories  = "calories"
)

// DashboardVitalTypes lists the vital types summarised on the dashboard.
var DashboardVitalTypes = []string{VitalHeartRate, VitalSpO2, VitalSteps, VitalSleep, VitalCalories}

// VitalSummary is the dashboard card of one vital type. Value is a number,
// or "--" when nothing was recorded yet.
type VitalSummary struct {
	Value      any        `json:"value"`
	Unit       string     `json:"unit,omitempty"`
	Trend      string     `json:"trend,omitempty"`
	Goal       float64    `json:"goal,omitempty"`
	Left       *float64   `json:"left,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

// DashboardMedication is a medication schedule entry of the day.
type DashboardMedication struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Dose  string `json:"dose"`
	Time  string `json:"time"`
	Taken bool   `json:"taken"`
}

// DashboardRoutine is a routine or exercise schedule entry of the day.
type DashboardRoutine struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Time      string `json:"time"`
	Completed bool   `json:"completed"`
}

// UserDashboard is the per-user summary: the latest vital of each type and
// the medications and routines scheduled for today.
type UserDashboard struct {
	Vitals      map[string]VitalSummary `json:"vitals"`
	Medications []DashboardMedication   `json:"medications"`
	Routines    []DashboardRoutine      `json:"routines"`
}
