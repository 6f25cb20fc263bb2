package handlers

import (
	"net/http"

	"github.com/vedran77/matrimony/internal/service"
	"github.com/vedran77/matrimony/internal/transport/http/middleware"
)

type MatchHandler struct {
	matchService *service.MatchService
}

func NewMatchHandler(matchService *service.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	matches, err := h.matchService.ListActiveFor(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "list matches", err)
		return
	}

	writeJSON(w, http.StatusOK, matches)
}

func (h *MatchHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	matchID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.matchService.Unmatch(r.Context(), matchID, userID); err != nil {
		writeServiceError(w, r, "unmatch", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
