package models

import "time"

// VitalSourceSimulation marks vitals produced by the simulation agent.
const VitalSourceSimulation = "simulation"

// Vital is a single health measurement for a profile.
type Vital struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Type       string    `json:"type" db:"type"`
	Value      float64   `json:"value" db:"value"`
	Unit       string    `json:"unit" db:"unit"`
	Source     string    `json:"source" db:"source"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}
