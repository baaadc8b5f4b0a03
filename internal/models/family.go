package models

import "time"

// Family represents a family circle created by its pioneer. Joiners link to
// it through the invite code.
type Family struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	InviteCode string    `json:"invite_code" db:"invite_code"`
	PioneerID  string    `json:"pioneer_id" db:"pioneer_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
	Members    []Profile `json:"members,omitempty"`
}
