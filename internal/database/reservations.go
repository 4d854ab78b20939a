package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rentadesk/internal/models"
)

// ErrSlotTaken is returned when the transactional overlap check finds a
// competing blocking reservation. Callers surface it to the user as a
// slot conflict with a prompt to pick another time.
var ErrSlotTaken = errors.New("slot already taken")

// ErrVersionConflict is returned when an optimistic status update lost to
// a concurrent writer.
var ErrVersionConflict = errors.New("reservation modified concurrently")

// blockingStatuses filters the statuses that hold a slot. Keep in sync
// with models.CategoryOf.
const blockingStatuses = "('pending', 'confirmed', 'completed')"

// GetBlockingIntervals returns the intervals of all slot-holding
// reservations for a resource, ordered by start. This is what the
// availability engine consumes.
func (db *DB) GetBlockingIntervals(ctx context.Context, resourceID int64) ([]models.Interval, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT start_time, end_time FROM reservations
		WHERE resource_id = ? AND status IN `+blockingStatuses+`
		ORDER BY start_time`,
		resourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("query blocking intervals: %w", err)
	}
	defer rows.Close()

	var intervals []models.Interval
	for rows.Next() {
		var iv models.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}

// CreateReservationWithCheck atomically re-runs the overlap test and
// inserts the reservation in one transaction. The client-side
// availability check is only a UX optimization; this is the correctness
// guarantee against concurrent bookers (sqlite serializes writers, so the
// check-then-insert pair cannot interleave with another insert).
func (db *DB) CreateReservationWithCheck(ctx context.Context, r *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE resource_id = ?
		AND start_time < ? AND end_time > ?
		AND status IN `+blockingStatuses,
		r.ResourceID, r.Interval.End, r.Interval.Start,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("overlap check: %w", err)
	}
	if count > 0 {
		return ErrSlotTaken
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (
			public_id, resource_id, customer_name, customer_phone, customer_email,
			start_time, end_time, status, comment, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		r.PublicID, r.ResourceID, r.CustomerName, r.CustomerPhone, r.CustomerEmail,
		r.Interval.Start, r.Interval.End, r.Status, r.Comment, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.ID = id
	r.Version = 1
	r.CreatedAt = now
	r.UpdatedAt = now
	return nil
}

// GetReservation returns a reservation by internal id.
func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return db.getReservation(ctx, "id = ?", id)
}

// GetReservationByPublicID returns a reservation by its public uuid.
func (db *DB) GetReservationByPublicID(ctx context.Context, publicID string) (*models.Reservation, error) {
	return db.getReservation(ctx, "public_id = ?", publicID)
}

func (db *DB) getReservation(ctx context.Context, where string, arg any) (*models.Reservation, error) {
	var r models.Reservation
	var phone, email, comment sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT r.id, r.public_id, r.resource_id, res.name, r.customer_name,
		       r.customer_phone, r.customer_email, r.start_time, r.end_time,
		       r.status, r.comment, r.version, r.created_at, r.updated_at
		FROM reservations r
		JOIN resources res ON res.id = r.resource_id
		WHERE r.`+where,
		arg,
	).Scan(
		&r.ID, &r.PublicID, &r.ResourceID, &r.ResourceName, &r.CustomerName,
		&phone, &email, &r.Interval.Start, &r.Interval.End,
		&r.Status, &comment, &r.Version, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.CustomerPhone = phone.String
	r.CustomerEmail = email.String
	r.Comment = comment.String
	return &r, nil
}

// ListReservations returns reservations filtered by optional resource and
// status, newest first.
func (db *DB) ListReservations(ctx context.Context, resourceID int64, status string) ([]models.Reservation, error) {
	query := `
		SELECT r.id, r.public_id, r.resource_id, res.name, r.customer_name,
		       r.customer_phone, r.customer_email, r.start_time, r.end_time,
		       r.status, r.comment, r.version, r.created_at, r.updated_at
		FROM reservations r
		JOIN resources res ON res.id = r.resource_id
		WHERE 1=1`
	args := make([]any, 0, 2)
	if resourceID > 0 {
		query += " AND r.resource_id = ?"
		args = append(args, resourceID)
	}
	if status != "" {
		query += " AND r.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY r.created_at DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		var r models.Reservation
		var phone, email, comment sql.NullString
		if err := rows.Scan(
			&r.ID, &r.PublicID, &r.ResourceID, &r.ResourceName, &r.CustomerName,
			&phone, &email, &r.Interval.Start, &r.Interval.End,
			&r.Status, &comment, &r.Version, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		r.CustomerPhone = phone.String
		r.CustomerEmail = email.String
		r.Comment = comment.String
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

// UpdateReservationStatusWithVersion transitions a reservation's status
// guarded by its version, failing with ErrVersionConflict when a
// concurrent writer got there first.
func (db *DB) UpdateReservationStatusWithVersion(ctx context.Context, id, version int64, status string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE reservations
		SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		status, time.Now(), id, version,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// ExpirePendingBefore cancels pending reservations created before cutoff
// and returns them, so callers can publish change events per resource.
func (db *DB) ExpirePendingBefore(ctx context.Context, cutoff time.Time) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, public_id, resource_id, version FROM reservations
		WHERE status = ? AND created_at < ?`,
		models.StatusPending, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("query stale pending: %w", err)
	}
	defer rows.Close()

	var stale []models.Reservation
	for rows.Next() {
		var r models.Reservation
		if err := rows.Scan(&r.ID, &r.PublicID, &r.ResourceID, &r.Version); err != nil {
			return nil, err
		}
		stale = append(stale, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var expired []models.Reservation
	for _, r := range stale {
		err := db.UpdateReservationStatusWithVersion(ctx, r.ID, r.Version, models.StatusCanceled)
		if errors.Is(err, ErrVersionConflict) {
			continue // someone verified or rejected it in the meantime
		}
		if err != nil {
			return expired, err
		}
		r.Status = models.StatusCanceled
		expired = append(expired, r)
	}
	return expired, nil
}

// GetReservationsByDateRange returns blocking reservations intersecting
// [from, to) across all resources, for schedule exports.
func (db *DB) GetReservationsByDateRange(ctx context.Context, from, to time.Time) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT r.id, r.public_id, r.resource_id, res.name, r.customer_name,
		       r.customer_phone, r.customer_email, r.start_time, r.end_time,
		       r.status, r.comment, r.version, r.created_at, r.updated_at
		FROM reservations r
		JOIN resources res ON res.id = r.resource_id
		WHERE r.start_time < ? AND r.end_time > ?
		AND r.status IN `+blockingStatuses+`
		ORDER BY r.start_time`,
		to, from,
	)
	if err != nil {
		return nil, fmt.Errorf("query by date range: %w", err)
	}
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		var r models.Reservation
		var phone, email, comment sql.NullString
		if err := rows.Scan(
			&r.ID, &r.PublicID, &r.ResourceID, &r.ResourceName, &r.CustomerName,
			&phone, &email, &r.Interval.Start, &r.Interval.End,
			&r.Status, &comment, &r.Version, &r.CreatedAt, &r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		r.CustomerPhone = phone.String
		r.CustomerEmail = email.String
		r.Comment = comment.String
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}
