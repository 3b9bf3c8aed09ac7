package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	apierrors "github.com/pribylovaa/go-videotube/accounts-service/internal/transport/http/errors"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/transport/http/middleware"
)

// ChannelProfile доступен анонимно; для аутентифицированного зрителя
// заполняется isSubscribed.
//
// @Summary Channel profile
// @Description Public channel page with subscriber counts. isSubscribed is filled for an authenticated viewer.
// @Tags channels
// @Produce json
// @Param username path string true "Channel username"
// @Success 200 {object} handlers.channelProfileResponse "Channel profile"
// @Failure 400 {object} apierrors.ErrorResponse "Missing username"
// @Failure 404 {object} apierrors.ErrorResponse "Channel not found"
// @Router /c/{username} [get]
func (h *Handlers) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	viewer := uuid.Nil
	if id, ok := middleware.IdentityFrom(r.Context()); ok {
		viewer = id.UserID
	}

	profile, err := h.svc.ChannelProfile(r.Context(), chi.URLParam(r, "username"), viewer)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toChannelProfile(profile))
}

// @Summary Watch history
// @Description Watched videos in watch order with owner summaries.
// @Tags history
// @Produce json
// @Success 200 {array} handlers.watchHistoryItemResponse "Watch history"
// @Failure 401 {object} apierrors.ErrorResponse "Unauthorized"
// @Router /history [get]
// @Security BearerAuth
func (h *Handlers) WatchHistory(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	items, err := h.svc.WatchHistory(r.Context(), id.UserID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toWatchHistory(items))
}

// @Summary Record view
// @Tags history
// @Param videoID path string true "Video ID (UUID)"
// @Success 204 "View recorded"
// @Failure 400 {object} apierrors.ErrorResponse "Invalid video id"
// @Failure 401 {object} apierrors.ErrorResponse "Unauthorized"
// @Failure 404 {object} apierrors.ErrorResponse "Video not found"
// @Router /history/{videoID} [post]
// @Security BearerAuth
func (h *Handlers) RecordView(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	videoID, err := uuid.Parse(chi.URLParam(r, "videoID"))
	if err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidID)
		return
	}

	if err := h.svc.RecordView(r.Context(), id.UserID, videoID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Subscribe to channel
// @Tags channels
// @Param username path string true "Channel username"
// @Success 204 "Subscribed"
// @Failure 400 {object} apierrors.ErrorResponse "Self-subscription"
// @Failure 401 {object} apierrors.ErrorResponse "Unauthorized"
// @Failure 404 {object} apierrors.ErrorResponse "Channel not found"
// @Router /c/{username}/subscribe [post]
// @Security BearerAuth
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.Subscribe(r.Context(), id.UserID, chi.URLParam(r, "username")); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Unsubscribe from channel
// @Tags channels
// @Param username path string true "Channel username"
// @Success 204 "Unsubscribed"
// @Failure 401 {object} apierrors.ErrorResponse "Unauthorized"
// @Failure 404 {object} apierrors.ErrorResponse "Channel not found"
// @Router /c/{username}/subscribe [delete]
// @Security BearerAuth
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.Unsubscribe(r.Context(), id.UserID, chi.URLParam(r, "username")); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
