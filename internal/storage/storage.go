// storage описывает контракты хранилищ accounts-сервиса: документное хранилище
// пользователей/подписок/видео и объектное хранилище медиа.
package storage

//go:generate mockgen -destination=../../mocks/storage.go -package=mocks . Storage,MediaStorage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/models"
)

var (
	// ErrNotFound — сущность отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (username/email/подписка).
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict — условное обновление не применено: документа нет
	// или ожидаемое значение поля не совпало.
	ErrConflict = errors.New("conditional update mismatch")
)

// UserUpdate — частичное обновление пользователя; nil-поля не трогаются.
type UserUpdate struct {
	FullName      *string
	Email         *string
	PasswordHash  *string
	AvatarURL     *string
	CoverImageURL *string
}

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// CreateUser создаёт пользователя. Конфликт username/email — ErrAlreadyExists.
	CreateUser(ctx context.Context, user *models.User) error
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UserByUsernameOrEmail находит пользователя, у которого совпадает username ИЛИ email.
	// Пустые аргументы в условие не попадают; если оба пусты — ErrNotFound.
	UserByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	// UpdateUser применяет UserUpdate и возвращает запись после обновления.
	UpdateUser(ctx context.Context, id uuid.UUID, upd UserUpdate) (*models.User, error)
	// AppendWatchHistory добавляет видео в конец истории просмотров.
	AppendWatchHistory(ctx context.Context, userID, videoID uuid.UUID) error
}

// RefreshTokenStorage управляет единственным слотом refresh-токена на записи пользователя.
type RefreshTokenStorage interface {
	// SetRefreshToken безусловно записывает хэш текущего refresh-токена.
	SetRefreshToken(ctx context.Context, userID uuid.UUID, hash string) error
	// SwapRefreshToken атомарно заменяет expectedHash на newHash.
	// Если пользователя нет или в слоте другое значение — ErrConflict.
	SwapRefreshToken(ctx context.Context, userID uuid.UUID, expectedHash, newHash string) error
	// ClearRefreshToken очищает слот и возвращает прежний хэш ("" если слот был пуст).
	ClearRefreshToken(ctx context.Context, userID uuid.UUID) (string, error)
}

// SubscriptionStorage управляет рёбрами графа подписок.
type SubscriptionStorage interface {
	// CreateSubscription создаёт ребро; повтор — ErrAlreadyExists.
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	// DeleteSubscription удаляет ребро; отсутствие ребра — ErrNotFound.
	DeleteSubscription(ctx context.Context, subscriber, channel uuid.UUID) error
}

// VideoStorage — доступ к видео на чтение (и на запись для наполнения).
type VideoStorage interface {
	CreateVideo(ctx context.Context, video *models.Video) error
	VideoByID(ctx context.Context, id uuid.UUID) (*models.Video, error)
}

// Aggregator исполняет типизированные join-спецификации.
type Aggregator interface {
	// Aggregate выполняет spec и декодирует результат в out (указатель на слайс).
	Aggregate(ctx context.Context, spec JoinSpec, out any) error
}

// Storage задаёт контракт документного хранилища.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	SubscriptionStorage
	VideoStorage
	Aggregator
	Close(ctx context.Context) error
}
