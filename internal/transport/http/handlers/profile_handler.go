package handlers

import (
	"net/http"

	"github.com/vedran77/matrimony/internal/media"
	"github.com/vedran77/matrimony/internal/service"
	"github.com/vedran77/matrimony/internal/transport/http/middleware"
	"github.com/vedran77/matrimony/pkg/validator"
)

type ProfileHandler struct {
	profileService *service.ProfileService
	media          media.Store
}

func NewProfileHandler(profileService *service.ProfileService, store media.Store) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, media: store}
}

func (h *ProfileHandler) View(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	targetID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	card, err := h.profileService.View(r.Context(), userID, targetID)
	if err != nil {
		writeServiceError(w, r, "view profile", err)
		return
	}

	writeJSON(w, http.StatusOK, card)
}

func (h *ProfileHandler) ExpressInterest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	targetID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var input struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if errs := validator.ValidateConnectRequest(targetID, input.Message); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	in, err := h.profileService.ExpressInterest(r.Context(), userID, targetID, input.Message)
	if err != nil {
		writeServiceError(w, r, "express interest", err)
		return
	}

	writeJSON(w, http.StatusCreated, in)
}

func (h *ProfileHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	d, err := h.profileService.Dashboard(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "dashboard", err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

func (h *ProfileHandler) PhotoUploadURL(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		ContentType string `json:"content_type"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	up, err := h.media.UploadURL(r.Context(), userID, input.ContentType)
	if err != nil {
		writeServiceError(w, r, "photo upload url", err)
		return
	}

	writeJSON(w, http.StatusOK, up)
}

func (h *ProfileHandler) SetPrimaryPhoto(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		Key string `json:"key"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	photo, err := h.profileService.SetPrimaryPhoto(r.Context(), userID, input.Key)
	if err != nil {
		writeServiceError(w, r, "set primary photo", err)
		return
	}

	writeJSON(w, http.StatusOK, photo)
}

func (h *ProfileHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	photos, err := h.profileService.ListPhotos(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, "list photos", err)
		return
	}
	writeJSON(w, http.StatusOK, photos)
}

// AddPhoto registers an object uploaded through PhotoUploadURL.
func (h *ProfileHandler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var input struct {
		Key string `json:"key"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	photo, err := h.profileService.AddPhoto(r.Context(), userID, input.Key)
	if err != nil {
		writeServiceError(w, r, "add photo", err)
		return
	}
	writeJSON(w, http.StatusCreated, photo)
}

func (h *ProfileHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	photoID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.profileService.DeletePhoto(r.Context(), userID, photoID); err != nil {
		writeServiceError(w, r, "delete photo", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
