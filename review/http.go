package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coverwire/curator/core"
	"github.com/coverwire/curator/storage"
)

// maxActionBodySize limits action request bodies.
const maxActionBodySize = 1 << 20 // 1 MB

// Handler serves the reviewer-facing HTTP API.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates the HTTP handler for reviewer actions.
func NewHandler(service *Service) (*Handler, error) {
	if service == nil {
		return nil, fmt.Errorf("review service required")
	}
	return &Handler{
		service: service,
		logger:  slog.Default().With("component", "review-api"),
	}, nil
}

// RegisterRoutes registers the review endpoints on the mux. The prefix
// should be "/reviews" without a trailing slash.
func (h *Handler) RegisterRoutes(prefix string, mux *http.ServeMux) {
	prefix = strings.TrimSuffix(prefix, "/")

	// GET /reviews - list items by status (default pending)
	mux.HandleFunc("GET "+prefix, h.handleList)

	// GET /reviews/{id} - get a single item
	mux.HandleFunc("GET "+prefix+"/{id}", h.handleGet)

	// POST /reviews/{id}/action - apply a reviewer decision
	mux.HandleFunc("POST "+prefix+"/{id}/action", h.handleAction)
}

// itemResponse is the API shape of a staging item.
type itemResponse struct {
	Id              uint64     `json:"id"`
	Fingerprint     string     `json:"fingerprint"`
	Type            string     `json:"type"`
	Title           string     `json:"title"`
	Body            string     `json:"body,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	Status          string     `json:"status"`
	DetectionType   string     `json:"detection_type"`
	Score           int        `json:"score"`
	Category        string     `json:"category"`
	Priority        string     `json:"priority"`
	SourceName      string     `json:"source_name"`
	SourceURL       string     `json:"source_url"`
	PublishedSource *time.Time `json:"published_source,omitempty"`
	DetectedAt      time.Time  `json:"detected_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	ReviewNotes     string     `json:"review_notes,omitempty"`
	NotificationRef string     `json:"notification_ref,omitempty"`
}

// listResponse is the response for GET /reviews.
type listResponse struct {
	Items []itemResponse `json:"items"`
	Total int            `json:"total"`
}

// actionRequest is the request body for POST /reviews/{id}/action.
type actionRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes,omitempty"`
}

func toItemResponse(item *core.StagingItem) itemResponse {
	resp := itemResponse{
		Id:              uint64(item.Id),
		Fingerprint:     string(item.Fingerprint),
		Type:            string(item.Type),
		Title:           item.Title,
		Body:            item.Body,
		Tags:            item.Tags,
		Status:          item.Status.String(),
		DetectionType:   string(item.DetectionType),
		Score:           item.Score,
		Category:        item.Category,
		Priority:        string(item.Priority),
		SourceName:      item.SourceName,
		SourceURL:       item.SourceURL,
		DetectedAt:      item.DetectedAt,
		ReviewNotes:     item.ReviewNotes,
		NotificationRef: item.NotificationRef,
	}
	if !item.PublishedSource.IsZero() {
		t := item.PublishedSource
		resp.PublishedSource = &t
	}
	if !item.ResolvedAt.IsZero() {
		t := item.ResolvedAt
		resp.ResolvedAt = &t
	}
	if !item.PublishedAt.IsZero() {
		t := item.PublishedAt
		resp.PublishedAt = &t
	}
	return resp
}

// handleList handles GET /reviews.
// Query parameters:
//   - status: any lifecycle status (default: pending)
//   - type: filter by staging type
//   - limit: max results (default: 50)
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := core.StatusPending
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := core.ParseStatus(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid status: "+raw)
			return
		}
		status = parsed
	}

	stagingType := core.StagingType(r.URL.Query().Get("type"))

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			h.writeError(w, http.StatusBadRequest, "invalid limit: must be 1-1000")
			return
		}
		limit = parsed
	}

	items, err := h.service.ListByStatus(ctx, status, stagingType)
	if err != nil {
		h.logger.Error("failed to list items", "status", status.String(), "err", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	total := len(items)
	if len(items) > limit {
		items = items[:limit]
	}

	resp := listResponse{Items: make([]itemResponse, 0, len(items)), Total: total}
	for _, item := range items {
		resp.Items = append(resp.Items, toItemResponse(item))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleGet handles GET /reviews/{id}.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	item, err := h.service.Item(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "item not found")
			return
		}
		h.logger.Error("failed to get item", "id", uint64(id), "err", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}

	h.writeJSON(w, http.StatusOK, toItemResponse(item))
}

// handleAction handles POST /reviews/{id}/action.
func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxActionBodySize)

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" {
		h.writeError(w, http.StatusBadRequest, "action is required")
		return
	}

	if reviewer := r.Header.Get("X-Reviewer-ID"); reviewer != "" {
		h.logger.Info("reviewer action received",
			"id", uint64(id), "action", req.Action, "reviewer", reviewer)
	}

	item, err := h.service.HandleReviewerAction(r.Context(), id, req.Action, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUnknownEvent):
			h.writeError(w, http.StatusBadRequest, "unknown action: "+req.Action)
		case errors.Is(err, storage.ErrNotFound):
			h.writeError(w, http.StatusNotFound, "item not found")
		case core.IsInvalidTransition(err):
			h.writeError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("reviewer action failed",
				"id", uint64(id), "action", req.Action, "err", err)
			h.writeError(w, http.StatusInternalServerError, "action failed")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, toItemResponse(item))
}

// itemID extracts and parses the {id} path segment.
func (h *Handler) itemID(w http.ResponseWriter, r *http.Request) (core.ID, bool) {
	raw := r.PathValue("id")
	if raw == "" {
		h.writeError(w, http.StatusBadRequest, "item ID required")
		return 0, false
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid item ID: "+raw)
		return 0, false
	}
	return core.ID(parsed), true
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to write JSON response", "err", err)
	}
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
