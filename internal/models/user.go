// models содержит доменные сущности accounts-сервиса.
// Эти типы используются слоями бизнес-логики, хранилища и транспорта.
// bson-теги описывают схему документов MongoDB.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User — учётная запись пользователя (она же канал).
//   - Username и Email хранятся в нижнем регистре, уникальность регистронезависимая;
//   - PasswordHash и RefreshTokenHash никогда не покидают сервисный слой;
//   - RefreshTokenHash — SHA-256 текущего refresh-токена, пусто после logout;
//   - WatchHistory — идентификаторы просмотренных видео в порядке добавления.
type User struct {
	ID               uuid.UUID   `bson:"_id"`
	Username         string      `bson:"username"`
	Email            string      `bson:"email"`
	FullName         string      `bson:"full_name"`
	PasswordHash     string      `bson:"password_hash"`
	AvatarURL        string      `bson:"avatar_url"`
	CoverImageURL    string      `bson:"cover_image_url"`
	RefreshTokenHash string      `bson:"refresh_token_hash,omitempty"`
	WatchHistory     []uuid.UUID `bson:"watch_history"`
	CreatedAt        time.Time   `bson:"created_at"`
	UpdatedAt        time.Time   `bson:"updated_at"`
}

// Subscription — ребро графа подписок: Subscriber подписан на канал Channel.
type Subscription struct {
	ID         uuid.UUID `bson:"_id"`
	Subscriber uuid.UUID `bson:"subscriber"`
	Channel    uuid.UUID `bson:"channel"`
	CreatedAt  time.Time `bson:"created_at"`
}

// Video — контент канала. Документы создаются сервисом публикации,
// здесь используются только для чтения истории просмотров.
type Video struct {
	ID           uuid.UUID     `bson:"_id"`
	Owner        uuid.UUID     `bson:"owner"`
	Title        string        `bson:"title"`
	Description  string        `bson:"description"`
	VideoURL     string        `bson:"video_url"`
	ThumbnailURL string        `bson:"thumbnail_url"`
	Duration     time.Duration `bson:"duration"`
	Views        int64         `bson:"views"`
	IsPublished  bool          `bson:"is_published"`
	CreatedAt    time.Time     `bson:"created_at"`
}
