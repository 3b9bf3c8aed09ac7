// http собирает публичный REST API accounts-сервиса на chi.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/pribylovaa/go-videotube/accounts-service/docs"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/transport/http/handlers"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/transport/http/middleware"
)

// API — сервисный слой целиком: обработчики и проверка access-токенов.
type API interface {
	handlers.Service
	middleware.TokenVerifier
}

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api/v1/users"; если пустой — роуты регистрируются на корне.

	// TrustProxy — IP клиента берётся из X-Forwarded-For/X-Real-IP (chi RealIP).
	TrustProxy bool
	// Docs — Swagger UI и doc.json под BasePath/docs/.
	Docs bool

	// Metrics — HTTP-метрики; nil отключает сбор.
	Metrics *middleware.Metrics
	// LoginLimiter ограничивает попытки входа; nil отключает ограничение.
	LoginLimiter middleware.RateLimiter

	Handlers handlers.Options
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(api API, opts Options) http.Handler {
	root := chi.NewRouter()

	// Метрикам нужен шаблон маршрута, поэтому они работают внутри chi.
	if opts.Metrics != nil {
		root.Use(opts.Metrics.Middleware())
	}

	h := handlers.New(api, opts.Handlers)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, api, opts)
		root.Mount(opts.BasePath, sub)
	} else {
		registerRoutes(root, h, api, opts)
	}

	// Middleware (внешний -> внутренний).
	mws := []middleware.Middleware{
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	}
	if opts.TrustProxy {
		mws = append(mws, chimw.RealIP)
	}
	if opts.Timeout > 0 {
		mws = append(mws, middleware.Timeout(opts.Timeout))
	}

	return middleware.Chain(root, mws...)
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, v middleware.TokenVerifier, opts Options) {
	// public
	r.Post("/register", h.Register)
	r.Group(func(r chi.Router) {
		if opts.LoginLimiter != nil {
			r.Use(middleware.RateLimit(opts.LoginLimiter))
		}
		r.Post("/login", h.Login)
	})
	r.Post("/refresh-token", h.RefreshToken)
	r.With(middleware.OptionalAuthenticate(v)).Get("/c/{username}", h.ChannelProfile)

	if opts.Docs {
		basePath := opts.BasePath
		if basePath == "" {
			basePath = "/"
		}
		docs.SwaggerInfo.BasePath = basePath
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("doc.json")))
	}

	// authenticated
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(v))

		r.Post("/logout", h.Logout)
		r.Post("/change-password", h.ChangePassword)
		r.Get("/current-user", h.CurrentUser)
		r.Patch("/update-account", h.UpdateAccount)
		r.Patch("/avatar", h.UpdateAvatar)
		r.Patch("/cover-image", h.UpdateCoverImage)

		r.Get("/history", h.WatchHistory)
		r.Post("/history/{videoID}", h.RecordView)

		r.Post("/c/{username}/subscribe", h.Subscribe)
		r.Delete("/c/{username}/subscribe", h.Unsubscribe)
	})
}
