package api

import (
	"net/http"
	"strconv"
	"time"

	"rentadesk/internal/metrics"
	"rentadesk/internal/models"
)

// DisabledRangeResponse is one picker-disabled span.
type DisabledRangeResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// handleListResources returns bookable units or registers one.
//
//	GET  /api/resources?category=room
//	POST /api/resources - create (staff)
func (s *HTTPServer) handleListResources(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("resources")

	switch r.Method {
	case http.MethodGet:
		resources, err := s.db.ListActiveResources(r.Context(), r.URL.Query().Get("category"))
		if err != nil {
			s.log.Error().Err(err).Msg("list resources failed")
			writeError(w, http.StatusInternalServerError, "failed to load resources")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"resources": resources})

	case http.MethodPost:
		if !s.staffRequest(r) {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		var resource models.Resource
		if err := decodeStrict(r, &resource); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if resource.Name == "" || !resource.Granularity.Valid() {
			writeError(w, http.StatusBadRequest, "name and a granularity of day or hour are required")
			return
		}
		if err := s.db.CreateResource(r.Context(), &resource); err != nil {
			s.log.Error().Err(err).Str("name", resource.Name).Msg("create resource failed")
			writeError(w, http.StatusInternalServerError, "failed to create resource")
			return
		}
		writeJSON(w, http.StatusCreated, resource)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleResourceByID updates or retires a single unit (staff). DELETE
// deactivates rather than removing the row, so reservation history
// stays intact.
// PUT|DELETE /api/resources/{id}
func (s *HTTPServer) handleResourceByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("resource_by_id")

	id, ok := s.contentItemID(w, r, "/api/resources/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPut:
		var resource models.Resource
		if err := decodeStrict(r, &resource); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if resource.Name == "" || !resource.Granularity.Valid() {
			writeError(w, http.StatusBadRequest, "name and a granularity of day or hour are required")
			return
		}
		resource.ID = id
		if err := s.db.UpdateResource(r.Context(), &resource); err != nil {
			s.writeContentError(w, err, "update resource")
			return
		}
		writeJSON(w, http.StatusOK, resource)

	case http.MethodDelete:
		if err := s.db.DeactivateResource(r.Context(), id); err != nil {
			s.writeContentError(w, err, "deactivate resource")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleDisabledRanges returns the spans a booking picker must disable
// for a resource. Hour-granularity resources take a day parameter; day
// granularity ignores it.
// GET /api/availability/disabled?resource_id=1&day=2024-06-10
func (s *HTTPServer) handleDisabledRanges(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_disabled")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resourceID, err := strconv.ParseInt(r.URL.Query().Get("resource_id"), 10, 64)
	if err != nil || resourceID <= 0 {
		writeError(w, http.StatusBadRequest, "resource_id is required")
		return
	}

	day := time.Now()
	if dayStr := r.URL.Query().Get("day"); dayStr != "" {
		day, err = time.Parse("2006-01-02", dayStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid day format; expected YYYY-MM-DD")
			return
		}
	}

	ranges, err := s.svc.DisabledRanges(r.Context(), resourceID, day)
	if err != nil {
		s.log.Error().Err(err).Int64("resource_id", resourceID).Msg("disabled ranges failed")
		writeError(w, http.StatusInternalServerError, "failed to compute availability")
		return
	}

	out := make([]DisabledRangeResponse, 0, len(ranges))
	for _, iv := range ranges {
		out = append(out, DisabledRangeResponse{Start: iv.Start, End: iv.End})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"resource_id": resourceID,
		"disabled":    out,
	})
}

// handleSuggestSlot proposes a default slot to pre-fill the picker.
// An exhausted search is a normal answer, not an error.
// GET /api/availability/suggest?resource_id=1
func (s *HTTPServer) handleSuggestSlot(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_suggest")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resourceID, err := strconv.ParseInt(r.URL.Query().Get("resource_id"), 10, 64)
	if err != nil || resourceID <= 0 {
		writeError(w, http.StatusBadRequest, "resource_id is required")
		return
	}

	slot, found, err := s.svc.SuggestSlot(r.Context(), resourceID)
	if err != nil {
		s.log.Error().Err(err).Int64("resource_id", resourceID).Msg("suggest slot failed")
		writeError(w, http.StatusInternalServerError, "failed to suggest a slot")
		return
	}

	resp := map[string]any{"found": found}
	if found {
		resp["slot"] = models.Interval{Start: slot.Start, End: slot.End}
	}
	writeJSON(w, http.StatusOK, resp)
}
