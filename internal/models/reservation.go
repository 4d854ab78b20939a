package models

import "time"

// Reservation statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCanceled  = "canceled"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
)

// StatusCategory splits statuses into those that hold a slot and those the
// availability engine ignores.
type StatusCategory string

const (
	CategoryBlocking    StatusCategory = "blocking"
	CategoryNonBlocking StatusCategory = "non_blocking"
)

// CategoryOf maps a status string to its category. Unknown statuses count
// as blocking so a bad row never frees a slot by accident.
func CategoryOf(status string) StatusCategory {
	switch status {
	case StatusCanceled, StatusRejected:
		return CategoryNonBlocking
	default:
		return CategoryBlocking
	}
}

// Reservation is a booking of a resource for an interval.
type Reservation struct {
	ID            int64     `json:"id"`
	PublicID      string    `json:"public_id"`
	ResourceID    int64     `json:"resource_id"`
	ResourceName  string    `json:"resource_name,omitempty"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	Interval      Interval  `json:"interval"`
	Status        string    `json:"status"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int64     `json:"version"`
}

// Blocking reports whether this reservation holds its slot.
func (r *Reservation) Blocking() bool {
	return CategoryOf(r.Status) == CategoryBlocking
}

// PaymentProof is the uploaded evidence a customer attaches to a pending
// reservation; staff verification flips the reservation to confirmed.
type PaymentProof struct {
	ID            int64      `json:"id"`
	ReservationID int64      `json:"reservation_id"`
	ObjectName    string     `json:"object_name"`
	ContentType   string     `json:"content_type,omitempty"`
	UploadedAt    time.Time  `json:"uploaded_at"`
	VerifiedBy    string     `json:"verified_by,omitempty"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
}
