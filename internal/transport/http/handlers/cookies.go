package handlers

import (
	"net/http"
	"time"

	"github.com/pribylovaa/go-videotube/accounts-service/internal/models"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/transport/http/middleware"
)

// setTokenCookies кладёт пару токенов в HttpOnly cookie со сроком жизни токенов.
func (h *Handlers) setTokenCookies(w http.ResponseWriter, p *models.TokenPair) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, p.AccessToken, p.AccessExpiresAt))
	http.SetCookie(w, h.cookie(middleware.RefreshTokenCookie, p.RefreshToken, p.RefreshExpiresAt))
}

// clearTokenCookies удаляет cookie токенов у клиента.
func (h *Handlers) clearTokenCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		c := h.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (h *Handlers) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}
