package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-videotube/accounts-service/internal/service"
	apierrors "github.com/pribylovaa/go-videotube/accounts-service/internal/transport/http/errors"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/transport/http/middleware"
)

// @Summary Log in
// @Description Verifies credentials by username or e-mail, issues a token pair and sets the accessToken and refreshToken cookies.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body handlers.loginRequest true "Credentials"
// @Success 200 {object} handlers.loginResponse "User and tokens"
// @Failure 400 {object} apierrors.ErrorResponse "Missing username and e-mail"
// @Failure 401 {object} apierrors.ErrorResponse "Invalid credentials"
// @Failure 429 {object} apierrors.ErrorResponse "Too many login attempts"
// @Router /login [post]
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrMalformedBody)
		return
	}

	user, pair, err := h.svc.Login(r.Context(), service.LoginInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, loginResponse{User: toUser(user), tokensResponse: toTokens(pair)})
}

// @Summary Log out
// @Description Revokes the refresh token and clears the token cookies.
// @Tags auth
// @Success 204 "Logged out"
// @Failure 401 {object} apierrors.ErrorResponse "Unauthorized"
// @Router /logout [post]
// @Security BearerAuth
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.Logout(r.Context(), id.UserID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.clearTokenCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// RefreshToken принимает refresh-токен из cookie или из тела {"refreshToken": "..."}.
//
// @Summary Rotate tokens
// @Description Exchanges a refresh token from the refreshToken cookie or the body for a new pair. A reused token is rejected.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body handlers.refreshRequest false "Refresh token when no cookie is sent"
// @Success 200 {object} handlers.tokensResponse "New token pair"
// @Failure 400 {object} apierrors.ErrorResponse "Malformed body"
// @Failure 401 {object} apierrors.ErrorResponse "Missing, invalid, expired or reused token"
// @Router /refresh-token [post]
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(middleware.RefreshTokenCookie); err == nil {
		token = c.Value
	}

	if token == "" {
		var in refreshRequest
		if err := decodeOptional(r, &in); err != nil {
			apierrors.WriteError(w, r, apierrors.ErrMalformedBody)
			return
		}
		token = in.RefreshToken
	}

	pair, err := h.svc.Rotate(r.Context(), token)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setTokenCookies(w, pair)
	writeJSON(w, http.StatusOK, toTokens(pair))
}
