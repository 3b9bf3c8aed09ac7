package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/models"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/service"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
	apierrors "github.com/pribylovaa/go-videotube/accounts-service/internal/transport/http/errors"
)

// Register принимает multipart-форму: fullName, email, username, password,
// файл avatar (обязателен) и файл coverImage.
//
// @Summary Register user
// @Description Creates an account from a multipart form. The avatar file is required, the cover image is optional.
// @Tags users
// @Accept mpfd
// @Produce json
// @Param fullName formData string true "Full name"
// @Param email formData string true "E-mail"
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Param avatar formData file true "Avatar image"
// @Param coverImage formData file false "Cover image"
// @Success 201 {object} handlers.userResponse "Registered user"
// @Failure 400 {object} apierrors.ErrorResponse "Missing fields, invalid e-mail or media"
// @Failure 409 {object} apierrors.ErrorResponse "Username or e-mail taken"
// @Failure 502 {object} apierrors.ErrorResponse "Media upload failed"
// @Failure 500 {object} apierrors.ErrorResponse "Internal error"
// @Router /register [post]
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	cleanup, err := h.parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		apierrors.WriteError(w, r, apierrors.ErrMalformedBody)
		return
	}

	avatar, closeAvatar, err := formFile(r, "avatar")
	defer closeAvatar()
	if err != nil {
		apierrors.WriteError(w, r, apierrors.ErrMalformedBody)
		return
	}

	cover, closeCover, err := formFile(r, "coverImage")
	defer closeCover()
	if err != nil {
		apierrors.WriteError(w, r, apierrors.ErrMalformedBody)
		return
	}

	user, err := h.svc.Register(r.Context(), service.RegisterInput{
		FullName:   r.FormValue("fullName"),
		Email:      r.FormValue("email"),
		Username:   r.FormValue("username"),
		Password:   r.FormValue("password"),
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUser(user))
}

// @Summary Change password
// @Tags users
// @Accept json
// @Param request body handlers.changePasswordRequest true "Old and new password"
// @Success 204 "Password changed"
// @Failure 400 {object} apierrors.ErrorResponse "Empty password or malformed body"
// @Failure 401 {object} apierrors.ErrorResponse "Unauthorized or wrong old password"
// @Router /change-password [post]
// @Security BearerAuth
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in changePasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrMalformedBody)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), id.UserID, in.OldPassword, in.NewPassword); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} handlers.userResponse "Authenticated user"
// @Failure 401 {object} apierrors.ErrorResponse "Unauthorized"
// @Failure 404 {object} apierrors.ErrorResponse "User not found"
// @Router /current-user [get]
// @Security BearerAuth
func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.CurrentUser(r.Context(), id.UserID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUser(user))
}

// @Summary Update account details
// @Tags users
// @Accept json
// @Produce json
// @Param request body handlers.updateAccountRequest true "Full name and e-mail"
// @Success 200 {object} handlers.userResponse "Updated user"
// @Failure 400 {object} apierrors.ErrorResponse "Missing fields or invalid e-mail"
// @Failure 401 {object} apierrors.ErrorResponse "Unauthorized"
// @Failure 409 {object} apierrors.ErrorResponse "E-mail taken"
// @Router /update-account [patch]
// @Security BearerAuth
func (h *Handlers) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in updateAccountRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrMalformedBody)
		return
	}

	user, err := h.svc.UpdateAccountDetails(r.Context(), id.UserID, in.FullName, in.Email)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUser(user))
}

// @Summary Replace avatar
// @Tags users
// @Accept mpfd
// @Produce json
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} handlers.userResponse "Updated user"
// @Failure 400 {object} apierrors.ErrorResponse "Missing or invalid file"
// @Failure 401 {object} apierrors.ErrorResponse "Unauthorized"
// @Failure 502 {object} apierrors.ErrorResponse "Media upload failed"
// @Router /avatar [patch]
// @Security BearerAuth
func (h *Handlers) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceMedia(w, r, "avatar", h.svc.UpdateAvatar)
}

// @Summary Replace cover image
// @Tags users
// @Accept mpfd
// @Produce json
// @Param coverImage formData file true "Cover image"
// @Success 200 {object} handlers.userResponse "Updated user"
// @Failure 400 {object} apierrors.ErrorResponse "Missing or invalid file"
// @Failure 401 {object} apierrors.ErrorResponse "Unauthorized"
// @Failure 502 {object} apierrors.ErrorResponse "Media upload failed"
// @Router /cover-image [patch]
// @Security BearerAuth
func (h *Handlers) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceMedia(w, r, "coverImage", h.svc.UpdateCoverImage)
}

type mediaUpdater func(ctx context.Context, userID uuid.UUID, file *storage.MediaFile) (*models.User, error)

// replaceMedia — общий путь PATCH /avatar и PATCH /cover-image.
// Отсутствующий файл передаётся в сервис как nil и там превращается в ValidationError.
func (h *Handlers) replaceMedia(w http.ResponseWriter, r *http.Request, field string, update mediaUpdater) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	cleanup, err := h.parseMultipart(w, r)
	defer cleanup()
	if err != nil {
		apierrors.WriteError(w, r, apierrors.ErrMalformedBody)
		return
	}

	file, closeFile, err := formFile(r, field)
	defer closeFile()
	if err != nil {
		apierrors.WriteError(w, r, apierrors.ErrMalformedBody)
		return
	}

	user, err := update(r.Context(), id.UserID, file)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUser(user))
}
