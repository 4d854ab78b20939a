package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rentadesk/internal/models"
)

// CreatePaymentProof records an uploaded proof for a reservation.
func (db *DB) CreatePaymentProof(ctx context.Context, p *models.PaymentProof) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO payment_proofs (reservation_id, object_name, content_type, uploaded_at)
		VALUES (?, ?, ?, ?)`,
		p.ReservationID, p.ObjectName, p.ContentType, now,
	)
	if err != nil {
		return fmt.Errorf("insert payment proof: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	p.UploadedAt = now
	return nil
}

// GetPaymentProofs returns proofs for a reservation, newest first.
func (db *DB) GetPaymentProofs(ctx context.Context, reservationID int64) ([]models.PaymentProof, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, reservation_id, object_name, content_type, uploaded_at, verified_by, verified_at
		FROM payment_proofs WHERE reservation_id = ? ORDER BY uploaded_at DESC`,
		reservationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query payment proofs: %w", err)
	}
	defer rows.Close()

	var proofs []models.PaymentProof
	for rows.Next() {
		var p models.PaymentProof
		var contentType, verifiedBy sql.NullString
		var verifiedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.ReservationID, &p.ObjectName, &contentType, &p.UploadedAt, &verifiedBy, &verifiedAt); err != nil {
			return nil, err
		}
		p.ContentType = contentType.String
		p.VerifiedBy = verifiedBy.String
		if verifiedAt.Valid {
			p.VerifiedAt = &verifiedAt.Time
		}
		proofs = append(proofs, p)
	}
	return proofs, rows.Err()
}

// MarkProofVerified stamps a proof with the verifying staff member.
// Returns ErrNotFound for an unknown id.
func (db *DB) MarkProofVerified(ctx context.Context, proofID int64, verifiedBy string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE payment_proofs SET verified_by = ?, verified_at = ? WHERE id = ?`,
		verifiedBy, time.Now(), proofID,
	)
	if err != nil {
		return fmt.Errorf("mark proof verified: %w", err)
	}
	return requireRow(res)
}
