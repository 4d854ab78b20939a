package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentadesk/internal/availability"
	"rentadesk/internal/metrics"
	"rentadesk/internal/service"
)

// Uploaded proofs are images or PDFs; anything bigger than this is
// rejected before it hits disk.
const maxProofUploadBytes = 10 << 20

// CreateReservationRequest is the body for POST /api/reservations.
// Endpoints are RFC 3339 timestamps; an omitted endpoint means the
// customer has not finished picking.
type CreateReservationRequest struct {
	ResourceID    int64      `json:"resource_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	CustomerEmail string     `json:"customer_email,omitempty"`
	Comment       string     `json:"comment,omitempty"`
	Start         *time.Time `json:"start,omitempty"`
	End           *time.Time `json:"end,omitempty"`
}

// handleReservations creates a booking.
// POST /api/reservations
func (s *HTTPServer) handleReservations(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reservations_create")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CreateReservationRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.ResourceID <= 0 {
		writeError(w, http.StatusBadRequest, "resource_id is required")
		return
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		writeError(w, http.StatusBadRequest, "customer_name is required")
		return
	}

	reservation, err := s.svc.CreateReservation(r.Context(), service.CreateReservationRequest{
		ResourceID:    req.ResourceID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Comment:       req.Comment,
		Start:         req.Start,
		End:           req.End,
	})
	if err != nil {
		s.writeReservationError(w, err, req.ResourceID)
		return
	}

	writeJSON(w, http.StatusCreated, reservation)
}

// writeReservationError renders validation failures as recoverable
// client errors; everything else is a 500.
func (s *HTTPServer) writeReservationError(w http.ResponseWriter, err error, resourceID int64) {
	if verr, ok := availability.AsValidation(err); ok {
		status := http.StatusUnprocessableEntity
		if verr.Kind == availability.KindSlotConflict {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]any{
			"error": map[string]string{
				"kind":    string(verr.Kind),
				"message": verr.Message,
			},
		})
		return
	}

	s.log.Error().Err(err).Int64("resource_id", resourceID).Msg("create reservation failed")
	writeError(w, http.StatusInternalServerError, "failed to create reservation")
}

// handleReservationByID routes /api/reservations/{public_id}[/proof].
//
//	GET    /api/reservations/{public_id}        - fetch
//	DELETE /api/reservations/{public_id}        - customer cancel
//	POST   /api/reservations/{public_id}/proof  - upload payment proof
func (s *HTTPServer) handleReservationByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/reservations/")
	publicID, sub, _ := strings.Cut(rest, "/")
	if publicID == "" {
		writeError(w, http.StatusBadRequest, "reservation id is required")
		return
	}

	switch {
	case sub == "proof" && r.Method == http.MethodPost:
		s.handleUploadProof(w, r, publicID)
	case sub != "":
		writeError(w, http.StatusNotFound, "unknown path")
	case r.Method == http.MethodGet:
		s.handleGetReservation(w, r, publicID)
	case r.Method == http.MethodDelete:
		s.handleCancelReservation(w, r, publicID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleGetReservation(w http.ResponseWriter, r *http.Request, publicID string) {
	metrics.IncHTTP("reservations_get")

	reservation, err := s.db.GetReservationByPublicID(r.Context(), publicID)
	if err != nil {
		writeError(w, http.StatusNotFound, "reservation not found")
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (s *HTTPServer) handleCancelReservation(w http.ResponseWriter, r *http.Request, publicID string) {
	metrics.IncHTTP("reservations_cancel")

	if err := s.svc.CancelReservation(r.Context(), publicID); err != nil {
		s.log.Error().Err(err).Str("public_id", publicID).Msg("cancel failed")
		writeError(w, http.StatusNotFound, "reservation not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleUploadProof stores a payment proof file and attaches it.
func (s *HTTPServer) handleUploadProof(w http.ResponseWriter, r *http.Request, publicID string) {
	metrics.IncHTTP("reservations_upload_proof")

	r.Body = http.MaxBytesReader(w, r.Body, maxProofUploadBytes)
	if err := r.ParseMultipartForm(maxProofUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body or file too large")
		return
	}

	file, header, err := r.FormFile("proof")
	if err != nil {
		writeError(w, http.StatusBadRequest, "proof file is required")
		return
	}
	defer file.Close()

	objectName := fmt.Sprintf("%s-%s%s", publicID, uuid.NewString()[:8], filepath.Ext(header.Filename))
	dst, err := os.Create(filepath.Join(s.uploadDir, objectName))
	if err != nil {
		s.log.Error().Err(err).Msg("create upload file failed")
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		s.log.Error().Err(err).Msg("write upload file failed")
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	proof, err := s.svc.AttachPaymentProof(r.Context(), publicID, objectName, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, proof)
}

// StaffDecisionRequest is the body for staff verify/reject calls. The
// version makes concurrent decisions lose cleanly.
type StaffDecisionRequest struct {
	ReservationID int64  `json:"reservation_id"`
	Version       int64  `json:"version"`
	Actor         string `json:"actor"`
}

// handleStaffListReservations lists reservations with optional filters.
// GET /api/staff/reservations?resource_id=1&status=pending
func (s *HTTPServer) handleStaffListReservations(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("staff_list_reservations")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var resourceID int64
	if raw := r.URL.Query().Get("resource_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid resource_id")
			return
		}
		resourceID = id
	}

	reservations, err := s.db.ListReservations(r.Context(), resourceID, r.URL.Query().Get("status"))
	if err != nil {
		s.log.Error().Err(err).Msg("list reservations failed")
		writeError(w, http.StatusInternalServerError, "failed to load reservations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": reservations})
}

// handleListProofs lists the uploaded payment proofs for a reservation
// so staff can review them before deciding.
// GET /api/staff/proofs?reservation_id=1
func (s *HTTPServer) handleListProofs(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("staff_proofs")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reservationID, err := strconv.ParseInt(r.URL.Query().Get("reservation_id"), 10, 64)
	if err != nil || reservationID <= 0 {
		writeError(w, http.StatusBadRequest, "reservation_id is required")
		return
	}

	proofs, err := s.svc.ListPaymentProofs(r.Context(), reservationID)
	if err != nil {
		s.log.Error().Err(err).Int64("reservation_id", reservationID).Msg("list proofs failed")
		writeError(w, http.StatusInternalServerError, "failed to load proofs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"proofs": proofs})
}

// handleVerifyPayment confirms a reservation after a proof check.
// POST /api/staff/verify
func (s *HTTPServer) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("staff_verify")
	s.handleStaffDecision(w, r, s.svc.VerifyPayment)
}

// handleRejectReservation declines a reservation and frees the slot.
// POST /api/staff/reject
func (s *HTTPServer) handleRejectReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("staff_reject")
	s.handleStaffDecision(w, r, s.svc.RejectReservation)
}

func (s *HTTPServer) handleStaffDecision(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, id, version int64, actor string) error) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req StaffDecisionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ReservationID <= 0 || req.Version <= 0 {
		writeError(w, http.StatusBadRequest, "reservation_id and version are required")
		return
	}

	if err := decide(r.Context(), req.ReservationID, req.Version, req.Actor); err != nil {
		s.log.Warn().Err(err).Int64("reservation_id", req.ReservationID).Msg("staff decision failed")
		writeError(w, http.StatusConflict, "decision failed; reload and retry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
