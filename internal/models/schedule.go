package models

import (
	"strings"
	"time"
)

// ScheduleType is the kind of a schedule entry.
type ScheduleType string

const (
	ScheduleTypeRoutine     ScheduleType = "routine"
	ScheduleTypeMedication  ScheduleType = "medication"
	ScheduleTypeAppointment ScheduleType = "appointment"
	ScheduleTypeExercise    ScheduleType = "exercise"
)

// ParseScheduleType normalizes s into a known type. Unknown values fall back
// to routine.
func ParseScheduleType(s string) ScheduleType {
	switch t := ScheduleType(strings.ToLower(strings.TrimSpace(s))); t {
	case ScheduleTypeRoutine, ScheduleTypeMedication, ScheduleTypeAppointment, ScheduleTypeExercise:
		return t
	default:
		return ScheduleTypeRoutine
	}
}

// ScheduleStatus represents the state of a schedule entry.
type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "pending"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusSkipped   ScheduleStatus = "skipped"
)

// Layouts used by schedule entries.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ScheduleEntry is a family schedule item: a routine, medication, appointment
// or exercise at a given date and time.
type ScheduleEntry struct {
	ID          string         `json:"id" db:"id"`
	Title       string         `json:"title" db:"title"`
	Time        string         `json:"time" db:"time"`
	Type        ScheduleType   `json:"type" db:"type"`
	Date        string         `json:"date" db:"date"`
	Description string         `json:"description,omitempty" db:"description"`
	FamilyID    string         `json:"family_id" db:"family_id"`
	AssignedTo  *string        `json:"assigned_to" db:"assigned_to"` // nil means the whole family
	Status      ScheduleStatus `json:"status" db:"status"`
	RemindedAt  *time.Time     `json:"reminded_at,omitempty" db:"reminded_at"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	Member      *MemberInfo    `json:"member,omitempty"`
}

// StartsAt returns the moment the entry is scheduled for in loc.
func (e *ScheduleEntry) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, e.Date+" "+e.Time, loc)
}

// MemberInfo is the display helper attached to schedule entries.
type MemberInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}
