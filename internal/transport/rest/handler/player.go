package handler

import (
	"net/http"
	"strconv"

	"ecocards/internal/service"
	"ecocards/internal/transport/rest/middleware"

	"go.uber.org/zap"
)

// PlayerHandler handles the caller's profile endpoints
type PlayerHandler struct {
	playerSvc *service.PlayerService
	logger    *zap.Logger
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(playerSvc *service.PlayerService, logger *zap.Logger) *PlayerHandler {
	return &PlayerHandler{playerSvc: playerSvc, logger: logger}
}

// Me handles GET /v1/me
func (h *PlayerHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	profile, err := h.playerSvc.Profile(r.Context(), userID)
	if err != nil {
		h.logger.Error("get profile failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// Battles handles GET /v1/me/battles?limit=
func (h *PlayerHandler) Battles(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	records, err := h.playerSvc.History(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("list battles failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"battles": records})
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return 0, false
	}
	return n, true
}
