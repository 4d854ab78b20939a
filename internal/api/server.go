// Package api exposes the booking and content workflows over HTTP.
//
// Customer-facing endpoints are open; staff endpoints require the
// shared API key. All responses are JSON except the xlsx report.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"rentadesk/internal/database"
	"rentadesk/internal/service"
)

// HTTPServer wires the booking service and store into HTTP handlers.
type HTTPServer struct {
	svc       *service.BookingService
	db        *database.DB
	apiKey    string
	uploadDir string
	log       *zerolog.Logger
}

func NewHTTPServer(svc *service.BookingService, db *database.DB, apiKey, uploadDir string, logger *zerolog.Logger) *HTTPServer {
	return &HTTPServer{
		svc:       svc,
		db:        db,
		apiKey:    apiKey,
		uploadDir: uploadDir,
		log:       logger,
	}
}

// Routes builds the full mux.
func (s *HTTPServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Availability (public reads; resource management needs the key)
	mux.HandleFunc("/api/resources", s.handleListResources)
	mux.HandleFunc("/api/resources/", s.handleResourceByID)
	mux.HandleFunc("/api/availability/disabled", s.handleDisabledRanges)
	mux.HandleFunc("/api/availability/suggest", s.handleSuggestSlot)

	// Reservations
	mux.HandleFunc("/api/reservations", s.handleReservations)
	mux.HandleFunc("/api/reservations/", s.handleReservationByID)

	// Staff decisions
	mux.HandleFunc("/api/staff/reservations", s.requireAPIKey(s.handleStaffListReservations))
	mux.HandleFunc("/api/staff/proofs", s.requireAPIKey(s.handleListProofs))
	mux.HandleFunc("/api/staff/verify", s.requireAPIKey(s.handleVerifyPayment))
	mux.HandleFunc("/api/staff/reject", s.requireAPIKey(s.handleRejectReservation))
	mux.HandleFunc("/api/staff/report.xlsx", s.requireAPIKey(s.handleReservationsReport))
	mux.HandleFunc("/api/staff/audit", s.requireAPIKey(s.handleAuditLog))

	// Content
	mux.HandleFunc("/api/posts", s.handlePosts)
	mux.HandleFunc("/api/posts/", s.handlePostBySlug)
	mux.HandleFunc("/api/events", s.handleUnitEvents)
	mux.HandleFunc("/api/events/", s.handleUnitEventByID)
	mux.HandleFunc("/api/team", s.handleTeamMembers)
	mux.HandleFunc("/api/team/", s.handleTeamMemberByID)
	mux.HandleFunc("/api/promotions", s.handlePromotions)
	mux.HandleFunc("/api/promotions/", s.handlePromotionByID)

	return mux
}

// requireAPIKey guards staff endpoints with the shared key.
func (s *HTTPServer) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.Header.Get("X-API-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
