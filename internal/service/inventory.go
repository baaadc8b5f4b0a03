package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/liora/internal/models"
)

// expiringWindow is how close to its expiry date an item counts as expiring.
const expiringWindow = 3 * 24 * time.Hour

// InventoryInput is a kitchen item as sent by a client. UserID and FamilyID
// are only read on creation; an empty Status is derived from ExpiryDate.
type InventoryInput struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Quantity   string  `json:"quantity"`
	ExpiryDate string  `json:"expiry_date"`
	Status     string  `json:"status"`
	UserID     string  `json:"user_id"`
	FamilyID   *string `json:"family_id"`
}

// ListInventory returns the kitchen items of the user's family, or the
// user's own items when they have no family yet.
func (s *Service) ListInventory(ctx context.Context, userID string) ([]*models.InventoryItem, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	var items []*models.InventoryItem
	if p.HasFamily() {
		items, err = s.Inventory.GetByFamily(ctx, *p.FamilyID)
	} else {
		items, err = s.Inventory.GetByUser(ctx, p.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory for %s: %w", p.ID, err)
	}

	today := s.today()
	for _, item := range items {
		item.Status = agedStatus(item.Status, item.ExpiryDate, today)
	}
	if items == nil {
		items = []*models.InventoryItem{}
	}
	return items, nil
}

// AddInventoryItem validates in and stores it. The item joins the user's
// family unless in names one.
func (s *Service) AddInventoryItem(ctx context.Context, in InventoryInput) (*models.InventoryItem, error) {
	item, err := s.inventoryItem(in)
	if err != nil {
		return nil, err
	}

	p, err := s.GetProfile(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	item.UserID = p.ID
	item.FamilyID = emptyToNil(in.FamilyID)
	if item.FamilyID == nil && p.HasFamily() {
		id := *p.FamilyID
		item.FamilyID = &id
	}

	created, err := s.Inventory.Create(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("failed to add inventory item: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"item_id": created.ID,
		"user_id": created.UserID,
	}).Info("Inventory item added")
	return created, nil
}

// UpdateInventoryItem replaces the descriptive fields of the item with id.
func (s *Service) UpdateInventoryItem(ctx context.Context, id string, in InventoryInput) (*models.InventoryItem, error) {
	existing, err := s.Inventory.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory item %s: %w", id, err)
	}
	if existing == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrInventoryItemNotFound)
	}

	item, err := s.inventoryItem(in)
	if err != nil {
		return nil, err
	}
	item.ID = existing.ID
	item.UserID = existing.UserID
	item.FamilyID = existing.FamilyID
	item.CreatedAt = existing.CreatedAt

	updated, err := s.Inventory.Update(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("failed to update inventory item %s: %w", id, err)
	}
	if updated == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrInventoryItemNotFound)
	}
	return updated, nil
}

// DeleteInventoryItem removes the item with id.
func (s *Service) DeleteInventoryItem(ctx context.Context, id string) error {
	deleted, err := s.Inventory.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete inventory item %s: %w", id, err)
	}
	if !deleted {
		return fmt.Errorf("%s: %w", id, ErrInventoryItemNotFound)
	}
	return nil
}

// inventoryItem validates the descriptive fields of in.
func (s *Service) inventoryItem(in InventoryInput) (*models.InventoryItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", ErrInvalidInput)
	}

	category := models.InventoryCategory(strings.ToLower(strings.TrimSpace(in.Category)))
	switch category {
	case models.InventoryFridge, models.InventoryPantry, models.InventoryFreezer:
	default:
		return nil, fmt.Errorf("category must be fridge, pantry or freezer: %w", ErrInvalidInput)
	}

	expiry, err := time.Parse(models.DateLayout, strings.TrimSpace(in.ExpiryDate))
	if err != nil {
		return nil, fmt.Errorf("expiry_date must be YYYY-MM-DD: %w", ErrInvalidInput)
	}

	var status models.InventoryStatus
	switch st := models.InventoryStatus(strings.ToLower(strings.TrimSpace(in.Status))); st {
	case "":
		status = agedStatus(models.InventoryGood, expiry.Format(models.DateLayout), s.today())
	case models.InventoryGood, models.InventoryExpiring, models.InventoryExpired:
		status = st
	default:
		return nil, fmt.Errorf("unknown status %q: %w", in.Status, ErrInvalidInput)
	}

	return &models.InventoryItem{
		Name:       name,
		Category:   category,
		Quantity:   strings.TrimSpace(in.Quantity),
		ExpiryDate: expiry.Format(models.DateLayout),
		Status:     status,
	}, nil
}

func (s *Service) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// agedStatus raises status to expiring or expired as the expiry date nears
// or passes. It never lowers a status.
func agedStatus(status models.InventoryStatus, expiryDate string, today time.Time) models.InventoryStatus {
	expiry, err := time.Parse(models.DateLayout, expiryDate)
	if err != nil || status == models.InventoryExpired {
		return status
	}
	switch {
	case expiry.Before(today):
		return models.InventoryExpired
	case expiry.Sub(today) <= expiringWindow:
		return models.InventoryExpiring
	default:
		return status
	}
}
