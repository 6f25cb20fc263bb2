package handlers

import (
	"net/http"

	"github.com/vedran77/matrimony/internal/service"
	"github.com/vedran77/matrimony/internal/transport/http/middleware"
	"github.com/vedran77/matrimony/pkg/validator"
)

type ConversationHandler struct {
	convService *service.ConversationService
}

func NewConversationHandler(convService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{convService: convService}
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.convService.ListConversations(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "list conversations", err)
		return
	}

	writeJSON(w, http.StatusOK, convs)
}

// Open starts or resumes the conversation with another member.
func (h *ConversationHandler) Open(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		UserID int64 `json:"user_id"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "MISSING_USER", "user_id is required")
		return
	}

	view, err := h.convService.OpenConversation(r.Context(), userID, service.OpenTarget{UserID: input.UserID})
	if err != nil {
		writeServiceError(w, r, "open conversation", err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *ConversationHandler) Messages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	matchID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	view, err := h.convService.OpenConversation(r.Context(), userID, service.OpenTarget{MatchID: matchID})
	if err != nil {
		writeServiceError(w, r, "list messages", err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *ConversationHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	matchID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var input struct {
		Content string `json:"content"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.ValidateMessage(input.Content); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.convService.Send(r.Context(), matchID, userID, input.Content)
	if err != nil {
		writeServiceError(w, r, "send message", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *ConversationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	matchID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	n, err := h.convService.MarkAllRead(r.Context(), matchID, userID)
	if err != nil {
		writeServiceError(w, r, "mark conversation read", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (h *ConversationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.convService.MarkRead(r.Context(), messageID, userID); err != nil {
		writeServiceError(w, r, "mark message read", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
