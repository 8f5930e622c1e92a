// ABOUTME: Handlers for recording, listing, clearing and merging recently viewed entities
// ABOUTME: Maps tracker and catalog errors onto JSON error responses

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/2389/recentviews/internal/catalog"
	"github.com/2389/recentviews/internal/recent"
	"github.com/2389/recentviews/internal/store"
)

// ViewsResponse lists the keys of one entity type, most recent first.
type ViewsResponse struct {
	Type string   `json:"type"`
	Keys []string `json:"keys"`
}

// ItemResponse is one resolved entity.
type ItemResponse struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// ItemsResponse lists resolved entities, most recent first.
type ItemsResponse struct {
	Type  string         `json:"type"`
	Items []ItemResponse `json:"items"`
}

// AllViewsResponse lists every key list in the session keyed by type.
type AllViewsResponse struct {
	Views map[string][]string `json:"views"`
}

// catalogEntity is implemented by catalog entities.
type catalogEntity interface {
	CatalogItem() store.Item
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleRecordView handles POST /api/views/{type}/{id}.
func (s *Server) handleRecordView(w http.ResponseWriter, r *http.Request) {
	kind, id := r.PathValue("type"), r.PathValue("id")

	entity, err := s.catalog.Find(r.Context(), kind, id)
	switch {
	case errors.Is(err, catalog.ErrUnknownKind):
		s.sendJSONError(w, http.StatusNotFound, "unknown entity type")
		return
	case errors.Is(err, store.ErrNotFound):
		s.sendJSONError(w, http.StatusNotFound, "item not found")
		return
	case err != nil:
		s.logger.Error("failed to load item", "type", kind, "id", id, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	t := s.tracker(r)
	if err := t.Add(r.Context(), entity); err != nil {
		s.logger.Error("failed to record view", "type", kind, "id", id, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	keys, err := t.Keys(r.Context(), recent.EntityType(kind))
	if err != nil {
		s.logger.Error("failed to read views", "type", kind, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.sendJSON(w, http.StatusOK, ViewsResponse{Type: kind, Keys: keyStrings(keys)})
}

// handleGetViews handles GET /api/views/{type}?limit=N.
func (s *Server) handleGetViews(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("type")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.sendJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := s.tracker(r).Get(r.Context(), recent.EntityType(kind), limit)
	if errors.Is(err, recent.ErrNotViewable) {
		s.sendJSONError(w, http.StatusNotFound, "unknown entity type")
		return
	}
	if err != nil {
		s.logger.Error("failed to get views", "type", kind, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := ItemsResponse{Type: kind, Items: make([]ItemResponse, 0, len(records))}
	for _, rec := range records {
		item := ItemResponse{ID: string(rec.RecentKey())}
		if e, ok := rec.(catalogEntity); ok {
			item.Title = e.CatalogItem().Title
		}
		resp.Items = append(resp.Items, item)
	}
	s.sendJSON(w, http.StatusOK, resp)
}

// handleListViews handles GET /api/views.
func (s *Server) handleListViews(w http.ResponseWriter, r *http.Request) {
	all, err := s.tracker(r).All(r.Context())
	if err != nil {
		s.logger.Error("failed to list views", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.sendJSON(w, http.StatusOK, allViews(all))
}

// handleClearViews handles DELETE /api/views/{type}.
func (s *Server) handleClearViews(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("type")

	err := s.tracker(r).Clear(r.Context(), recent.EntityType(kind))
	if errors.Is(err, recent.ErrNotViewable) {
		s.sendJSONError(w, http.StatusNotFound, "unknown entity type")
		return
	}
	if err != nil {
		s.logger.Error("failed to clear views", "type", kind, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearAllViews handles DELETE /api/views.
func (s *Server) handleClearAllViews(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker(r).ClearAll(r.Context()); err != nil {
		s.logger.Error("failed to clear all views", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMerge handles POST /api/session/merge, called after a viewer logs in.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	t := s.tracker(r)
	if err := t.MergePersistToCurrentSession(r.Context()); err != nil {
		s.logger.Error("failed to merge views", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	all, err := t.All(r.Context())
	if err != nil {
		s.logger.Error("failed to list views", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	s.sendJSON(w, http.StatusOK, allViews(all))
}

func allViews(all map[recent.EntityType][]recent.EntityKey) AllViewsResponse {
	resp := AllViewsResponse{Views: make(map[string][]string, len(all))}
	for t, keys := range all {
		resp.Views[string(t)] = keyStrings(keys)
	}
	return resp
}

func keyStrings(keys []recent.EntityKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response with the given status code and message.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
