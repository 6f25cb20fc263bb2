package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/vedran77/matrimony/internal/media"
	"github.com/vedran77/matrimony/internal/service"
	"github.com/vedran77/matrimony/internal/transport/http/middleware"
	"github.com/vedran77/matrimony/pkg/logger"
	"github.com/vedran77/matrimony/pkg/validator"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":   "VALIDATION_ERROR",
			"fields": errs,
		},
	})
}

// Refinements come before the errors they wrap.
var serviceErrors = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{service.ErrSelfTarget, http.StatusBadRequest, "SELF_TARGET", "You cannot do this to yourself"},
	{service.ErrRequestPending, http.StatusConflict, "REQUEST_PENDING", "You have already sent a connect request to this user"},
	{service.ErrAlreadyConnected, http.StatusConflict, "ALREADY_CONNECTED", "You are already connected with this user"},
	{service.ErrIncomingRequest, http.StatusConflict, "INCOMING_REQUEST", "This user has already sent you a connect request"},
	{service.ErrDuplicate, http.StatusConflict, "DUPLICATE", "Already done"},
	{service.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "Not found"},
	{service.ErrInvalidTransition, http.StatusConflict, "ALREADY_PROCESSED", "Request not found or already processed"},
	{service.ErrMatchClosed, http.StatusForbidden, "MATCH_CLOSED", "This conversation has been closed"},
	{service.ErrForbidden, http.StatusForbidden, "FORBIDDEN", "You are not allowed to do this"},
	{service.ErrNotConnected, http.StatusForbidden, "NOT_CONNECTED", "You are not connected with this user"},
	{service.ErrEmptyContent, http.StatusBadRequest, "EMPTY_CONTENT", "Message cannot be empty"},
	{media.ErrUnsupportedType, http.StatusBadRequest, "UNSUPPORTED_TYPE", "Only JPEG, PNG and WebP images are allowed"},
}

// writeServiceError maps a domain outcome to its response. Anything else is
// logged and reported as an internal error.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	for _, e := range serviceErrors {
		if errors.Is(err, e.err) {
			writeError(w, e.status, e.code, e.message)
			return
		}
	}

	event := logger.Error().Err(err).
		Str("op", op).
		Str("request_id", middleware.GetRequestID(r.Context())).
		Int64("user_id", middleware.GetUserID(r.Context()))
	var storage *service.StorageError
	if errors.As(err, &storage) {
		event = event.Str("storage_op", storage.Op)
	}
	event.Msg("request failed")
	writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
}

// pathID parses a positive int64 path value and writes a 400 if it is not one.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return id, true
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	return true
}
