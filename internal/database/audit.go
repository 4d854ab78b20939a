package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AuditEntry is a single staff action record.
type AuditEntry struct {
	ID        int64     `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  int64     `json:"entity_id"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AppendAudit records a staff action.
func (db *DB) AppendAudit(ctx context.Context, e *AuditEntry) error {
	res, err := db.ExecContext(ctx, `
		INSERT INTO audit_log (actor, action, entity, entity_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Actor, e.Action, e.Entity, e.EntityID, e.Details, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

// ListAudit returns audit entries within [from, to), newest first.
func (db *DB) ListAudit(ctx context.Context, from, to time.Time) ([]AuditEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, actor, action, entity, entity_id, details, created_at
		FROM audit_log WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at DESC`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var entityID sql.NullInt64
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Entity, &entityID, &details, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.EntityID = entityID.Int64
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
