package models

import "time"

// InventoryCategory is where a kitchen item is kept.
type InventoryCategory string

const (
	InventoryFridge  InventoryCategory = "fridge"
	InventoryPantry  InventoryCategory = "pantry"
	InventoryFreezer InventoryCategory = "freezer"
)

// InventoryStatus tracks the freshness of a kitchen item.
type InventoryStatus string

const (
	InventoryGood     InventoryStatus = "good"
	InventoryExpiring InventoryStatus = "expiring"
	InventoryExpired  InventoryStatus = "expired"
)

// InventoryItem is a kitchen item shared by a family, or owned by a single
// user who has no family yet.
type InventoryItem struct {
	ID         string            `json:"id" db:"id"`
	Name       string            `json:"name" db:"name"`
	Category   InventoryCategory `json:"category" db:"category"`
	Quantity   string            `json:"quantity" db:"quantity"`
	ExpiryDate string            `json:"expiry_date" db:"expiry_date"`
	Status     InventoryStatus   `json:"status" db:"status"`
	UserID     string            `json:"user_id" db:"user_id"`
	FamilyID   *string           `json:"family_id" db:"family_id"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}
