// service содержит бизнес-логику accounts-сервиса:
// жизненный цикл токенов, учётные записи, подписки и агрегированные
// представления (профиль канала, история просмотров).
//
// Основные аспекты:
//   - Service не хранит состояние запроса и безопасен для конкурентного
//     использования при потокобезопасных хранилищах.
//   - Ошибки делятся на категории (ErrValidation, ErrConflict, ErrUnauthorized,
//     ErrNotFound, ErrMediaUploadFailed, ErrPersistence); конкретные ошибки
//     оборачивают категорию, транспорт маппит их по errors.Is.
//   - Сервис не делает ретраев и не глотает ошибки; единственное исключение —
//     рекомендательный кэш отзыва, сбои которого только логируются.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/go-videotube/accounts-service/internal/cache"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/config"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
)

// Категории ошибок.
var (
	// ErrValidation — некорректный ввод. Транспорт: HTTP 400.
	ErrValidation = errors.New("validation error")
	// ErrConflict — нарушение уникальности. Транспорт: HTTP 409.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized — нет действующей аутентификации. Транспорт: HTTP 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound — сущность не существует. Транспорт: HTTP 404.
	ErrNotFound = errors.New("not found")
	// ErrMediaUploadFailed — объектное хранилище не приняло файл. Транспорт: HTTP 502.
	ErrMediaUploadFailed = errors.New("media upload failed")
	// ErrPersistence — сбой документного хранилища. Транспорт: HTTP 500.
	ErrPersistence = errors.New("persistence error")
)

// Конкретные ошибки.
var (
	ErrMissingToken       = fmt.Errorf("%w: missing token", ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrTokenExpired       = fmt.Errorf("%w: token expired", ErrUnauthorized)
	ErrTokenReuseDetected = fmt.Errorf("%w: refresh token reuse detected", ErrUnauthorized)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)

	ErrRequiredFields     = fmt.Errorf("%w: all fields are required", ErrValidation)
	ErrInvalidEmail       = fmt.Errorf("%w: invalid email format", ErrValidation)
	ErrInvalidUsername    = fmt.Errorf("%w: invalid username", ErrValidation)
	ErrEmptyPassword      = fmt.Errorf("%w: password is empty", ErrValidation)
	ErrAvatarRequired     = fmt.Errorf("%w: avatar file is required", ErrValidation)
	ErrCoverImageRequired = fmt.Errorf("%w: cover image file is required", ErrValidation)
	ErrInvalidMedia       = fmt.Errorf("%w: unsupported media type or size", ErrValidation)
	ErrSelfSubscription   = fmt.Errorf("%w: cannot subscribe to own channel", ErrValidation)
	ErrMissingIdentifier  = fmt.Errorf("%w: username or email is required", ErrValidation)
	ErrMissingUsername    = fmt.Errorf("%w: username is missing", ErrValidation)

	ErrUserExists = fmt.Errorf("%w: user with email or username already exists", ErrConflict)

	ErrUserNotFound    = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrChannelNotFound = fmt.Errorf("%w: channel not found", ErrNotFound)
	ErrVideoNotFound   = fmt.Errorf("%w: video not found", ErrNotFound)
)

// persistence оборачивает сбой хранилища в ErrPersistence, сохраняя причину в цепочке.
func persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// Service описывает бизнес-логику accounts-сервиса.
type Service struct {
	storage storage.Storage
	media   storage.MediaStorage
	cfg     config.AuthConfig
	hasher  PasswordHasher
	rcache  cache.RefreshCache // может быть nil, если кэш не сконфигурирован
	now     func() time.Time
}

// New создаёт новый экземпляр Service.
func New(st storage.Storage, media storage.MediaStorage, cfg config.AuthConfig) *Service {
	return &Service{
		storage: st,
		media:   media,
		cfg:     cfg,
		hasher:  NewBcryptHasher(0),
		now:     time.Now,
	}
}

// SetRefreshCache устанавливает кэш отозванных refresh-токенов (опционально).
func (s *Service) SetRefreshCache(c cache.RefreshCache) {
	s.rcache = c
}

// SetPasswordHasher заменяет алгоритм хэширования паролей.
func (s *Service) SetPasswordHasher(h PasswordHasher) {
	s.hasher = h
}
