package handlers

import (
	"net/http"

	"github.com/vedran77/matrimony/internal/service"
	"github.com/vedran77/matrimony/internal/transport/http/middleware"
	"github.com/vedran77/matrimony/pkg/validator"
)

type ConnectionHandler struct {
	connService *service.ConnectionService
}

func NewConnectionHandler(connService *service.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connService: connService}
}

type connectInput struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}

func (h *ConnectionHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input connectInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.ValidateConnectRequest(input.UserID, input.Message); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	res, err := h.connService.SendRequest(r.Context(), userID, input.UserID, input.Message)
	if err != nil {
		writeServiceError(w, r, "send connect request", err)
		return
	}

	status := http.StatusCreated
	if res.Outcome == service.RequestReopened {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (h *ConnectionHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	view, err := h.connService.ListRequests(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "list connect requests", err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *ConnectionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	requestID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	req, err := h.connService.Accept(r.Context(), userID, requestID)
	if err != nil {
		writeServiceError(w, r, "accept connect request", err)
		return
	}

	writeJSON(w, http.StatusOK, req)
}

func (h *ConnectionHandler) Decline(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	requestID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	req, err := h.connService.Decline(r.Context(), userID, requestID)
	if err != nil {
		writeServiceError(w, r, "decline connect request", err)
		return
	}

	writeJSON(w, http.StatusOK, req)
}
