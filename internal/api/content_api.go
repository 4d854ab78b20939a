package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rentadesk/internal/database"
	"rentadesk/internal/metrics"
	"rentadesk/internal/models"
)

// Content endpoints back the marketing pages: blog posts, unit events,
// the team roster and promotion banners. Reads are public; writes go
// through the staff API key.

// handlePosts lists published posts or creates one.
//
//	GET  /api/posts            - published posts
//	GET  /api/posts?all=true   - all posts (staff)
//	POST /api/posts            - create (staff)
func (s *HTTPServer) handlePosts(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("posts")

	switch r.Method {
	case http.MethodGet:
		all := r.URL.Query().Get("all") == "true"
		if all && !s.staffRequest(r) {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		posts, err := s.db.ListPosts(r.Context(), !all)
		if err != nil {
			s.log.Error().Err(err).Msg("list posts failed")
			writeError(w, http.StatusInternalServerError, "failed to load posts")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"posts": posts})

	case http.MethodPost:
		if !s.staffRequest(r) {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		var post models.Post
		if err := decodeStrict(r, &post); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if post.Title == "" || post.Slug == "" {
			writeError(w, http.StatusBadRequest, "title and slug are required")
			return
		}
		if err := s.db.CreatePost(r.Context(), &post); err != nil {
			s.log.Error().Err(err).Str("slug", post.Slug).Msg("create post failed")
			writeError(w, http.StatusInternalServerError, "failed to create post")
			return
		}
		writeJSON(w, http.StatusCreated, post)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handlePostBySlug fetches, updates or deletes a single post.
// GET|PUT|DELETE /api/posts/{slug}
func (s *HTTPServer) handlePostBySlug(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("post_by_slug")

	slug := strings.TrimPrefix(r.URL.Path, "/api/posts/")
	if slug == "" || strings.Contains(slug, "/") {
		writeError(w, http.StatusBadRequest, "invalid post slug")
		return
	}

	post, err := s.db.GetPostBySlug(r.Context(), slug)
	if err != nil {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !post.Published() && !s.staffRequest(r) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		writeJSON(w, http.StatusOK, post)

	case http.MethodPut:
		if !s.staffRequest(r) {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		var update models.Post
		if err := decodeStrict(r, &update); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		update.ID = post.ID
		update.Slug = slug
		if err := s.db.UpdatePost(r.Context(), &update); err != nil {
			s.log.Error().Err(err).Str("slug", slug).Msg("update post failed")
			writeError(w, http.StatusInternalServerError, "failed to update post")
			return
		}
		writeJSON(w, http.StatusOK, update)

	case http.MethodDelete:
		if !s.staffRequest(r) {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		if err := s.db.DeletePost(r.Context(), post.ID); err != nil {
			s.log.Error().Err(err).Str("slug", slug).Msg("delete post failed")
			writeError(w, http.StatusInternalServerError, "failed to delete post")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleUnitEvents lists upcoming events or creates one (staff).
// GET|POST /api/events
func (s *HTTPServer) handleUnitEvents(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("unit_events")

	switch r.Method {
	case http.MethodGet:
		events, err := s.db.ListUpcomingUnitEvents(r.Context(), time.Now())
		if err != nil {
			s.log.Error().Err(err).Msg("list events failed")
			writeError(w, http.StatusInternalServerError, "failed to load events")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events})

	case http.MethodPost:
		if !s.staffRequest(r) {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		var event models.UnitEvent
		if err := decodeStrict(r, &event); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if event.Title == "" || !event.StartsAt.Before(event.EndsAt) {
			writeError(w, http.StatusBadRequest, "title and a valid time range are required")
			return
		}
		if err := s.db.CreateUnitEvent(r.Context(), &event); err != nil {
			s.log.Error().Err(err).Msg("create event failed")
			writeError(w, http.StatusInternalServerError, "failed to create event")
			return
		}
		writeJSON(w, http.StatusCreated, event)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleUnitEventByID updates or deletes a single event (staff).
// PUT|DELETE /api/events/{id}
func (s *HTTPServer) handleUnitEventByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("unit_event_by_id")

	id, ok := s.contentItemID(w, r, "/api/events/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPut:
		var event models.UnitEvent
		if err := decodeStrict(r, &event); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if event.Title == "" || !event.StartsAt.Before(event.EndsAt) {
			writeError(w, http.StatusBadRequest, "title and a valid time range are required")
			return
		}
		event.ID = id
		if err := s.db.UpdateUnitEvent(r.Context(), &event); err != nil {
			s.writeContentError(w, err, "update event")
			return
		}
		writeJSON(w, http.StatusOK, event)

	case http.MethodDelete:
		if err := s.db.DeleteUnitEvent(r.Context(), id); err != nil {
			s.writeContentError(w, err, "delete event")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleTeamMembers lists the roster or adds a member (staff).
// GET|POST /api/team
func (s *HTTPServer) handleTeamMembers(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("team")

	switch r.Method {
	case http.MethodGet:
		members, err := s.db.ListTeamMembers(r.Context())
		if err != nil {
			s.log.Error().Err(err).Msg("list team failed")
			writeError(w, http.StatusInternalServerError, "failed to load team")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"team": members})

	case http.MethodPost:
		if !s.staffRequest(r) {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		var member models.TeamMember
		if err := decodeStrict(r, &member); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if member.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if err := s.db.CreateTeamMember(r.Context(), &member); err != nil {
			s.log.Error().Err(err).Msg("create team member failed")
			writeError(w, http.StatusInternalServerError, "failed to create team member")
			return
		}
		writeJSON(w, http.StatusCreated, member)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleTeamMemberByID updates or deletes a staff profile (staff).
// PUT|DELETE /api/team/{id}
func (s *HTTPServer) handleTeamMemberByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("team_member_by_id")

	id, ok := s.contentItemID(w, r, "/api/team/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPut:
		var member models.TeamMember
		if err := decodeStrict(r, &member); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if member.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		member.ID = id
		if err := s.db.UpdateTeamMember(r.Context(), &member); err != nil {
			s.writeContentError(w, err, "update team member")
			return
		}
		writeJSON(w, http.StatusOK, member)

	case http.MethodDelete:
		if err := s.db.DeleteTeamMember(r.Context(), id); err != nil {
			s.writeContentError(w, err, "delete team member")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handlePromotions lists live promotions or creates one (staff).
// GET|POST /api/promotions
func (s *HTTPServer) handlePromotions(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("promotions")

	switch r.Method {
	case http.MethodGet:
		promotions, err := s.db.ListLivePromotions(r.Context(), time.Now())
		if err != nil {
			s.log.Error().Err(err).Msg("list promotions failed")
			writeError(w, http.StatusInternalServerError, "failed to load promotions")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"promotions": promotions})

	case http.MethodPost:
		if !s.staffRequest(r) {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		var promo models.Promotion
		if err := decodeStrict(r, &promo); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if promo.Title == "" || !promo.StartsAt.Before(promo.EndsAt) {
			writeError(w, http.StatusBadRequest, "title and a valid time range are required")
			return
		}
		if err := s.db.CreatePromotion(r.Context(), &promo); err != nil {
			s.log.Error().Err(err).Msg("create promotion failed")
			writeError(w, http.StatusInternalServerError, "failed to create promotion")
			return
		}
		writeJSON(w, http.StatusCreated, promo)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handlePromotionByID updates or deletes a promotion (staff).
// PUT|DELETE /api/promotions/{id}
func (s *HTTPServer) handlePromotionByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("promotion_by_id")

	id, ok := s.contentItemID(w, r, "/api/promotions/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPut:
		var promo models.Promotion
		if err := decodeStrict(r, &promo); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if promo.Title == "" || !promo.StartsAt.Before(promo.EndsAt) {
			writeError(w, http.StatusBadRequest, "title and a valid time range are required")
			return
		}
		promo.ID = id
		if err := s.db.UpdatePromotion(r.Context(), &promo); err != nil {
			s.writeContentError(w, err, "update promotion")
			return
		}
		writeJSON(w, http.StatusOK, promo)

	case http.MethodDelete:
		if err := s.db.DeletePromotion(r.Context(), id); err != nil {
			s.writeContentError(w, err, "delete promotion")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// contentItemID authorizes a staff mutation and pulls the numeric id
// off the path. It writes the error response itself when returning
// ok=false.
func (s *HTTPServer) contentItemID(w http.ResponseWriter, r *http.Request, prefix string) (int64, bool) {
	if !s.staffRequest(r) {
		writeError(w, http.StatusUnauthorized, "invalid or missing API key")
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, prefix), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func (s *HTTPServer) writeContentError(w http.ResponseWriter, err error, action string) {
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.log.Error().Err(err).Msg(action + " failed")
	writeError(w, http.StatusInternalServerError, "failed to "+action)
}

func (s *HTTPServer) staffRequest(r *http.Request) bool {
	return s.apiKey != "" && r.Header.Get("X-API-Key") == s.apiKey
}

func decodeStrict(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
