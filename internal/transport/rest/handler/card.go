package handler

import (
	"net/http"

	"ecocards/internal/service"
	"ecocards/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CardHandler handles catalog endpoints
type CardHandler struct {
	cardSvc *service.CardService
	logger  *zap.Logger
}

// NewCardHandler creates a new card handler
func NewCardHandler(cardSvc *service.CardService, logger *zap.Logger) *CardHandler {
	return &CardHandler{cardSvc: cardSvc, logger: logger}
}

// List handles GET /v1/cards?set=
func (h *CardHandler) List(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cardSvc.List(r.Context(), r.URL.Query().Get("set"))
	if err != nil {
		h.logger.Error("list cards failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"cards": cards})
}

// Get handles GET /v1/cards/{name}
func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	card, err := h.cardSvc.Get(r.Context(), name)
	if err != nil {
		h.logger.Error("get card failed", zap.String("card", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if card == nil {
		writeError(w, http.StatusNotFound, "card not found")
		return
	}

	writeJSON(w, http.StatusOK, card)
}

// Mine handles GET /v1/me/cards
func (h *CardHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	cards, err := h.cardSvc.Collected(r.Context(), userID)
	if err != nil {
		h.logger.Error("list collected cards failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"cards": cards})
}
