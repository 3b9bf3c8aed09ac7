package models

import (
	"time"

	"github.com/google/uuid"
)

// ChannelProfile — производное представление канала, вычисляется на чтение и не кэшируется.
type ChannelProfile struct {
	FullName                  string    `bson:"full_name"`
	Username                  string    `bson:"username"`
	Email                     string    `bson:"email"`
	AvatarURL                 string    `bson:"avatar_url"`
	CoverImageURL             string    `bson:"cover_image_url"`
	SubscribersCount          int64     `bson:"subscribers_count"`
	ChannelsSubscribedToCount int64     `bson:"channels_subscribed_to_count"`
	IsSubscribed              bool      `bson:"is_subscribed"`
	CreatedAt                 time.Time `bson:"created_at"`
}

// OwnerSummary — денормализованная сводка владельца видео.
type OwnerSummary struct {
	FullName  string `bson:"full_name"`
	Username  string `bson:"username"`
	AvatarURL string `bson:"avatar_url"`
}

// WatchHistoryItem — видео из истории просмотров с владельцем.
// Owner == nil, если владелец видео больше не существует.
type WatchHistoryItem struct {
	VideoID      uuid.UUID     `bson:"_id"`
	Title        string        `bson:"title"`
	Description  string        `bson:"description"`
	VideoURL     string        `bson:"video_url"`
	ThumbnailURL string        `bson:"thumbnail_url"`
	Duration     time.Duration `bson:"duration"`
	Views        int64         `bson:"views"`
	CreatedAt    time.Time     `bson:"created_at"`
	Owner        *OwnerSummary `bson:"owner"`
}
