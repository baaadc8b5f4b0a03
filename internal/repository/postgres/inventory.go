package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/liora/internal/models"
	"github.com/Kerhoff/liora/internal/repository"
)

const inventoryColumns = `id, name, category, quantity, expiry_date, status, user_id, family_id, created_at`

type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository creates a new kitchen inventory repository
func NewInventoryRepository(db *sql.DB) repository.InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) Create(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error) {
	query := `
		INSERT INTO inventory_items (id, name, category, quantity, expiry_date, status, user_id, family_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, query,
		item.ID,
		item.Name,
		item.Category,
		item.Quantity,
		item.ExpiryDate,
		item.Status,
		item.UserID,
		item.FamilyID,
		time.Now(),
	).Scan(&item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create inventory item: %w", err)
	}

	return item, nil
}

func (r *inventoryRepository) GetByID(ctx context.Context, id string) (*models.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory_items WHERE id = $1`

	item, err := scanInventoryItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get inventory item by ID: %w", err)
	}

	return item, nil
}

func (r *inventoryRepository) GetByFamily(ctx context.Context, familyID string) ([]*models.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + `
		FROM inventory_items
		WHERE family_id = $1
		ORDER BY expiry_date ASC, name ASC`

	return r.query(ctx, query, familyID)
}

func (r *inventoryRepository) GetByUser(ctx context.Context, userID string) ([]*models.InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + `
		FROM inventory_items
		WHERE user_id = $1 AND family_id IS NULL
		ORDER BY expiry_date ASC, name ASC`

	return r.query(ctx, query, userID)
}

func (r *inventoryRepository) Update(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error) {
	query := `
		UPDATE inventory_items
		SET name = $2, category = $3, quantity = $4, expiry_date = $5, status = $6
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.Name,
		item.Category,
		item.Quantity,
		item.ExpiryDate,
		item.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update inventory item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	return item, nil
}

func (r *inventoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete inventory item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *inventoryRepository) query(ctx context.Context, query string, args ...any) ([]*models.InventoryItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory items: %w", err)
	}
	defer rows.Close()

	var items []*models.InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func scanInventoryItem(row rowScanner) (*models.InventoryItem, error) {
	item := &models.InventoryItem{}
	err := row.Scan(
		&item.ID,
		&item.Name,
		&item.Category,
		&item.Quantity,
		&item.ExpiryDate,
		&item.Status,
		&item.UserID,
		&item.FamilyID,
		&item.CreatedAt,
	)
	return item, err
}
