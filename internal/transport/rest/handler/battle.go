package handler

import (
	"net/http"

	"ecocards/internal/battle"
	"ecocards/internal/service"
	"ecocards/internal/transport/rest/middleware"
	"ecocards/internal/transport/ws"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// BattleHandler handles battle room endpoints
type BattleHandler struct {
	battleSvc *service.BattleService
	logger    *zap.Logger
}

// NewBattleHandler creates a new battle handler
func NewBattleHandler(battleSvc *service.BattleService, logger *zap.Logger) *BattleHandler {
	return &BattleHandler{battleSvc: battleSvc, logger: logger}
}

// Create handles POST /v1/battles. The room itself is created by the first
// WebSocket connection.
func (h *BattleHandler) Create(w http.ResponseWriter, r *http.Request) {
	roomID, err := h.battleSvc.NewRoomID(r.Context())
	if err != nil {
		h.logger.Error("generate room id failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"roomId": roomID,
		"wsPath": "/v1/ws/battle/" + roomID,
	})
}

// Get handles GET /v1/battles/{roomId}
func (h *BattleHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	if !ws.ValidRoomID(roomID) {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	userID := middleware.GetUserID(r.Context())

	view, err := h.battleSvc.State(r.Context(), roomID, userID)
	if err != nil {
		be, ok := battle.AsError(err)
		if !ok {
			h.logger.Error("get battle failed", zap.String("room_id", roomID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeError(w, statusFor(be), be.Message)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func statusFor(be *battle.Error) int {
	switch be.Kind {
	case battle.KindValidation:
		return http.StatusBadRequest
	case battle.KindAuthorization:
		return http.StatusForbidden
	case battle.KindNotFound:
		return http.StatusNotFound
	case battle.KindConflict, battle.KindTerminalState:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
