// handlers реализует обработчики публичного REST API accounts-сервиса.
// Обработчики только разбирают запрос, вызывают сервисный слой и формируют ответ;
// ошибки отдаются через apierrors.WriteError.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/models"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/service"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/transport/http/middleware"
)

// Service — сервисный слой, которым пользуются обработчики.
type Service interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.User, error)
	Login(ctx context.Context, in service.LoginInput) (*models.User, *models.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	Rotate(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
	CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateAccountDetails(ctx context.Context, userID uuid.UUID, fullName, email string) (*models.User, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, file *storage.MediaFile) (*models.User, error)
	UpdateCoverImage(ctx context.Context, userID uuid.UUID, file *storage.MediaFile) (*models.User, error)
	ChannelProfile(ctx context.Context, username string, viewer uuid.UUID) (*models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchHistoryItem, error)
	Subscribe(ctx context.Context, subscriber uuid.UUID, channelName string) error
	Unsubscribe(ctx context.Context, subscriber uuid.UUID, channelName string) error
	RecordView(ctx context.Context, userID, videoID uuid.UUID) error
}

// Options — параметры обработчиков.
//   - SecureCookies выставляет флаг Secure на cookie токенов;
//   - MaxUploadBytes ограничивает размер multipart-тела целиком.
type Options struct {
	SecureCookies  bool
	MaxUploadBytes int64
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	svc  Service
	opts Options
}

var _ Service = (*service.Service)(nil)

func New(svc Service, opts Options) *Handlers {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 16 << 20
	}

	return &Handlers{svc: svc, opts: opts}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// decodeOptional — как decodeStrict, но пустое тело не считается ошибкой.
func decodeOptional(r *http.Request, value any) error {
	if err := decodeStrict(r, value); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

// identity достаёт личность, установленную middleware.Authenticate.
// Маршрут без Authenticate получит ErrMissingToken.
func identity(r *http.Request) (models.Identity, error) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		return models.Identity{}, service.ErrMissingToken
	}

	return id, nil
}
