// Package api provides the REST API handlers.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/advisor"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/cache"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/metrics"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/storage"
	"github.com/mabhinav2955-coder/kisan-sub000/pkg/clock"
)

// DefaultDataTTL is how long a fetched dataset is served from cache.
const DefaultDataTTL = 5 * time.Minute

// Pagination defaults for list routes.
const (
	defaultPage  = 1
	defaultLimit = 20
)

// Dependencies are the collaborators of the API handlers.
type Dependencies struct {
	// Cache holds fetched datasets for the data routes.
	Cache *cache.Cache
	// Data fetches the upstream feeds.
	Data advisor.DataSource
	// Chat answers the chat routes with the configured provider.
	Chat *advisor.Assembler
	// Mobile answers the mobile chat route, usually through a provider chain.
	Mobile *advisor.Assembler
	// Store persists the activity log.
	Store storage.ActivityStore
	// Metrics is optional.
	Metrics *metrics.Metrics
	// Clock defaults to the wall clock.
	Clock clock.Clock
	// DataTTL defaults to DefaultDataTTL.
	DataTTL time.Duration
}

// Handler handles API requests.
type Handler struct {
	cache   *cache.Cache
	data    advisor.DataSource
	chat    *advisor.Assembler
	mobile  *advisor.Assembler
	store   storage.ActivityStore
	metrics *metrics.Metrics
	clock   clock.Clock
	dataTTL time.Duration
	logger  zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies, logger zerolog.Logger) *Handler {
	h := &Handler{
		cache:   deps.Cache,
		data:    deps.Data,
		chat:    deps.Chat,
		mobile:  deps.Mobile,
		store:   deps.Store,
		metrics: deps.Metrics,
		clock:   deps.Clock,
		dataTTL: deps.DataTTL,
		logger:  logger.With().Str("component", "api").Logger(),
	}
	if h.clock == nil {
		h.clock = clock.New()
	}
	if h.dataTTL <= 0 {
		h.dataTTL = DefaultDataTTL
	}
	if h.cache == nil {
		h.cache = cache.New(cache.Config{}, h.clock)
	}
	if h.mobile == nil {
		h.mobile = h.chat
	}
	return h
}

// API Response types

// Response is the generic API envelope. Failed requests carry a message and
// an error code.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// ListResponse is the envelope for paginated lists.
type ListResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Provenance string      `json:"provenance,omitempty"`
}

// Health check

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":        "healthy",
		"timestamp":     h.clock.Now().UTC(),
		"cache_entries": h.cache.Len(),
	}
	if h.chat != nil {
		status["provider"] = h.chat.ProviderName()
	}
	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    status,
	})
}

// pagination reads page and limit, falling back to the defaults for
// missing, malformed or non-positive values.
func pagination(r *http.Request) (page, limit int) {
	page, limit = defaultPage, defaultLimit
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = v
	}
	return page, limit
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, Response{
		Success: false,
		Message: message,
		Code:    code,
	})
}
