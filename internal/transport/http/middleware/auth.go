package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-videotube/accounts-service/internal/models"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/pkg/log"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/service"
	apierrors "github.com/pribylovaa/go-videotube/accounts-service/internal/transport/http/errors"
)

// Имена cookie с токенами.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// TokenVerifier проверяет access-токен.
type TokenVerifier interface {
	VerifyAccess(ctx context.Context, token string) (models.Identity, error)
}

type identityKey struct{}

// IdentityFrom возвращает личность, установленную Authenticate/OptionalAuthenticate.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(models.Identity)
	return id, ok
}

// WithIdentity кладёт личность в контекст.
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	ctx = context.WithValue(ctx, identityKey{}, id)
	return log.With(ctx, slog.String("user_id", id.UserID.String()))
}

// Authenticate требует действующий access-токен из Authorization: Bearer
// или cookie accessToken. Иначе — 401.
func Authenticate(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				apierrors.WriteError(w, r, service.ErrMissingToken)
				return
			}

			id, err := v.VerifyAccess(r.Context(), token)
			if err != nil {
				log.From(r.Context()).Debug("auth_rejected", slog.String("err", err.Error()))
				apierrors.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuthenticate устанавливает личность, если токен предъявлен и действителен.
// Отсутствующий или недействительный токен означает анонимного зрителя.
func OptionalAuthenticate(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				if id, err := v.VerifyAccess(r.Context(), token); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), id))
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken достаёт токен из заголовка Authorization, затем из cookie.
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "

	if auth := r.Header.Get("Authorization"); len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		if token := strings.TrimSpace(auth[len(prefix):]); token != "" {
			return token
		}
	}

	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}

	return ""
}
