package storage

// Коллекции документного хранилища.
const (
	CollUsers         Collection = "users"
	CollSubscriptions Collection = "subscriptions"
	CollVideos        Collection = "videos"
)

// Имена полей документов (совпадают с bson-тегами в models).
const (
	FieldID            = "_id"
	FieldUsername      = "username"
	FieldEmail         = "email"
	FieldFullName      = "full_name"
	FieldAvatarURL     = "avatar_url"
	FieldCoverImageURL = "cover_image_url"
	FieldCreatedAt     = "created_at"
	FieldWatchHistory  = "watch_history"

	FieldPasswordHash     = "password_hash"
	FieldRefreshTokenHash = "refresh_token_hash"

	FieldSubscriber = "subscriber"
	FieldChannel    = "channel"

	FieldOwner        = "owner"
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldVideoURL     = "video_url"
	FieldThumbnailURL = "thumbnail_url"
	FieldDuration     = "duration"
	FieldViews        = "views"
)

// sensitiveFields никогда не попадают в проекции join-спецификаций.
var sensitiveFields = map[string]struct{}{
	FieldPasswordHash:     {},
	FieldRefreshTokenHash: {},
}
