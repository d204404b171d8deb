package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
)

// ActivityRequest is the body of POST /api/activities. Date accepts
// YYYY-MM-DD or RFC 3339 and defaults to now.
type ActivityRequest struct {
	FarmerID    string           `json:"farmer_id"`
	Type        string           `json:"type"`
	Crop        string           `json:"crop,omitempty"`
	Description string           `json:"description"`
	Quantity    string           `json:"quantity,omitempty"`
	Location    *models.Location `json:"location,omitempty"`
	Date        string           `json:"date,omitempty"`
}

// Activity handlers

// CreateActivity handles POST /api/activities.
func (h *Handler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var req ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteAPIError(w, ErrInvalidJSON)
		return
	}

	now := h.clock.Now().UTC()
	date := now
	if req.Date != "" {
		d, err := parseActivityDate(req.Date)
		if err != nil {
			h.WriteAPIError(w, NewValidationError("date must be YYYY-MM-DD or RFC 3339"))
			return
		}
		date = d
	}

	activity := &models.Activity{
		ID:          uuid.New().String(),
		FarmerID:    strings.TrimSpace(req.FarmerID),
		Type:        models.ActivityType(strings.ToLower(strings.TrimSpace(req.Type))),
		Crop:        strings.TrimSpace(req.Crop),
		Description: strings.TrimSpace(req.Description),
		Quantity:    strings.TrimSpace(req.Quantity),
		Location:    req.Location,
		Date:        date,
		CreatedAt:   now,
	}
	if err := activity.Validate(); err != nil {
		h.HandleError(w, err)
		return
	}

	if h.HandleStoreError(w, h.store.CreateActivity(activity), "create activity") {
		return
	}

	h.logger.Info().
		Str("activity_id", activity.ID).
		Str("farmer_id", activity.FarmerID).
		Str("type", string(activity.Type)).
		Msg("Activity logged")

	h.writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Data:    activity,
	})
}

// ListActivities handles GET /api/activities.
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	page, limit := pagination(r)
	farmerID := strings.TrimSpace(r.URL.Query().Get("farmer_id"))

	// Saturate instead of overflowing; an offset past the end is an empty page.
	offset := math.MaxInt
	if page-1 <= math.MaxInt/limit {
		offset = (page - 1) * limit
	}

	activities, total, err := h.store.ListActivities(farmerID, offset, limit)
	if h.HandleStoreError(w, err, "list activities") {
		return
	}
	if activities == nil {
		activities = []*models.Activity{}
	}

	h.writeJSON(w, http.StatusOK, ListResponse{
		Success: true,
		Data:    activities,
		Total:   total,
		Page:    page,
	})
}

// GetActivity handles GET /api/activities/{id}.
func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.store.GetActivity(chi.URLParam(r, "id"))
	if h.HandleStoreError(w, err, "get activity") {
		return
	}

	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    activity,
	})
}

// DeleteActivity handles DELETE /api/activities/{id}.
func (h *Handler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.HandleStoreError(w, h.store.DeleteActivity(id), "delete activity") {
		return
	}

	h.logger.Info().Str("activity_id", id).Msg("Activity deleted")
	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Activity deleted",
	})
}

func parseActivityDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
