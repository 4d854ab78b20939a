package api

import (
	"net/http"
	"time"

	"rentadesk/internal/metrics"
	"rentadesk/internal/report"
)

// handleReservationsReport streams an xlsx export of reservations in a
// date range, one sheet per resource category.
// GET /api/staff/report.xlsx?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleReservationsReport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("staff_report")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now.AddDate(0, 1, 0)

	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err = time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date; expected YYYY-MM-DD")
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err = time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date; expected YYYY-MM-DD")
			return
		}
	}
	if !from.Before(to) {
		writeError(w, http.StatusBadRequest, "from must be before to")
		return
	}

	reservations, err := s.db.GetReservationsByDateRange(r.Context(), from, to)
	if err != nil {
		s.log.Error().Err(err).Msg("load reservations for report failed")
		writeError(w, http.StatusInternalServerError, "failed to load reservations")
		return
	}

	categories := make(map[int64]string)
	resources, err := s.db.ListActiveResources(r.Context(), "")
	if err == nil {
		for _, res := range resources {
			categories[res.ID] = res.Category
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="reservations.xlsx"`)

	err = report.WriteReservationsReport(w, reservations, func(resourceID int64) string {
		return categories[resourceID]
	})
	if err != nil {
		s.log.Error().Err(err).Msg("write report failed")
	}
}

// handleAuditLog lists staff actions in a date range, newest first.
// GET /api/staff/audit?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("staff_audit")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now.AddDate(0, 0, 1)

	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err = time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date; expected YYYY-MM-DD")
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err = time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date; expected YYYY-MM-DD")
			return
		}
	}

	entries, err := s.db.ListAudit(r.Context(), from, to)
	if err != nil {
		s.log.Error().Err(err).Msg("list audit failed")
		writeError(w, http.StatusInternalServerError, "failed to load audit log")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
