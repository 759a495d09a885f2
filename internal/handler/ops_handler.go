package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"match-service/internal/client"
	"match-service/internal/model"
	"match-service/internal/util"
)

// OpsHandler exposes the operational HTTP surface: health, queue and
// session statistics, and the recent pairing history.
type OpsHandler struct {
	redis    *client.RedisClient
	pool     model.WaitingPool
	sessions model.SessionStore
	history  model.HistoryArchive
	logger   *zap.Logger
}

// NewOpsHandler creates the ops handler. history may be nil when no
// durable archive is configured; the history endpoint then returns 503.
func NewOpsHandler(redis *client.RedisClient, pool model.WaitingPool, sessions model.SessionStore, history model.HistoryArchive, logger *zap.Logger) *OpsHandler {
	return &OpsHandler{
		redis:    redis,
		pool:     pool,
		sessions: sessions,
		history:  history,
		logger:   logger,
	}
}

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func successResponse(data interface{}, message string) Response {
	return Response{Success: true, Data: data, Message: message}
}

func errorResponse(err error, message string) Response {
	return Response{Success: false, Error: err.Error(), Message: message}
}

// RegisterRoutes registers the ops routes
func (h *OpsHandler) RegisterRoutes(router chi.Router) {
	router.Get("/stats", h.GetStats)
	router.Get("/history/recent", h.GetRecentPairings)
}

// HealthCheck reports readiness of the store backing all matching state.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.redis.HealthCheck(r.Context()); err != nil {
		h.respondWithError(w, http.StatusServiceUnavailable, err, "Store unreachable")
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "match-service",
	})
}

// StatsResponse is the queue and session snapshot returned by GetStats.
type StatsResponse struct {
	WaitingMale    int64 `json:"waiting_male"`
	WaitingFemale  int64 `json:"waiting_female"`
	ActiveSessions int64 `json:"active_sessions"`
}

// GetStats reports current queue depths and the number of active pairings.
func (h *OpsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	male, err := h.pool.Len(ctx, model.AttributeMale)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err, "Failed to read queue depth")
		return
	}
	female, err := h.pool.Len(ctx, model.AttributeFemale)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err, "Failed to read queue depth")
		return
	}
	rows, err := h.sessions.Count(ctx)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err, "Failed to count sessions")
		return
	}

	stats := StatsResponse{
		WaitingMale:   male,
		WaitingFemale: female,
		// Two rows per pairing.
		ActiveSessions: rows / 2,
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(stats, "Stats retrieved successfully"))
	h.logger.Debug("Stats served via HTTP",
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "GetStats"),
	)
}

// GetRecentPairings returns the latest archived pairings, newest first.
func (h *OpsHandler) GetRecentPairings(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			h.respondWithError(w, http.StatusBadRequest,
				errors.New("limit must be an integer in [1,500]"), "Invalid limit")
			return
		}
		limit = parsed
	}

	if h.history == nil {
		h.respondWithError(w, http.StatusServiceUnavailable,
			errors.New("history archive not configured"), "History unavailable")
		return
	}

	records, err := h.history.RecentPairings(r.Context(), limit)
	if err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err, "Failed to read history")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(records, "History retrieved successfully"))
}

// respondWithJSON sends a JSON response
func (h *OpsHandler) respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

// respondWithError sends an error response
func (h *OpsHandler) respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	h.logger.Warn("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message),
	)
	h.respondWithJSON(w, statusCode, errorResponse(err, message))
}
