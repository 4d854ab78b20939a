package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rentadesk/internal/models"
)

// CreateResource inserts a rentable resource.
func (db *DB) CreateResource(ctx context.Context, r *models.Resource) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO resources (name, category, granularity, description, price_per_unit, is_active, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.Category, string(r.Granularity), r.Description, r.PricePerUnit, r.IsActive, r.SortOrder, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert resource: %w", err)
	}
	r.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// GetResource returns a resource by id.
func (db *DB) GetResource(ctx context.Context, id int64) (*models.Resource, error) {
	var r models.Resource
	var desc sql.NullString
	var gran string
	err := db.QueryRowContext(ctx, `
		SELECT id, name, category, granularity, description, price_per_unit, is_active, sort_order, created_at, updated_at
		FROM resources WHERE id = ?`,
		id,
	).Scan(&r.ID, &r.Name, &r.Category, &gran, &desc, &r.PricePerUnit, &r.IsActive, &r.SortOrder, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Granularity = models.Granularity(gran)
	r.Description = desc.String
	return &r, nil
}

// ListActiveResources returns active resources, optionally filtered by
// category, in catalog order.
func (db *DB) ListActiveResources(ctx context.Context, category string) ([]models.Resource, error) {
	query := `
		SELECT id, name, category, granularity, description, price_per_unit, is_active, sort_order, created_at, updated_at
		FROM resources WHERE is_active = 1`
	args := make([]any, 0, 1)
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += " ORDER BY sort_order, name"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	var resources []models.Resource
	for rows.Next() {
		var r models.Resource
		var desc sql.NullString
		var gran string
		if err := rows.Scan(&r.ID, &r.Name, &r.Category, &gran, &desc, &r.PricePerUnit, &r.IsActive, &r.SortOrder, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Granularity = models.Granularity(gran)
		r.Description = desc.String
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

// UpdateResource updates mutable resource fields. Returns ErrNotFound
// for an unknown id.
func (db *DB) UpdateResource(ctx context.Context, r *models.Resource) error {
	res, err := db.ExecContext(ctx, `
		UPDATE resources
		SET name = ?, category = ?, granularity = ?, description = ?, price_per_unit = ?, is_active = ?, sort_order = ?, updated_at = ?
		WHERE id = ?`,
		r.Name, r.Category, string(r.Granularity), r.Description, r.PricePerUnit, r.IsActive, r.SortOrder, time.Now(), r.ID,
	)
	if err != nil {
		return fmt.Errorf("update resource: %w", err)
	}
	return requireRow(res)
}

// DeactivateResource hides a resource from the catalog without touching
// its reservation history. Returns ErrNotFound for an unknown id.
func (db *DB) DeactivateResource(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx,
		"UPDATE resources SET is_active = 0, updated_at = ? WHERE id = ?",
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("deactivate resource: %w", err)
	}
	return requireRow(res)
}
