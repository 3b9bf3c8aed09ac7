package handlers

import (
	"time"

	"github.com/pribylovaa/go-videotube/accounts-service/internal/models"
)

// userResponse — публичное представление пользователя. Хэши пароля и
// refresh-токена сюда не попадают.
type userResponse struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage,omitempty"`
	WatchHistory []string  `json:"watchHistory"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type tokensResponse struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

type loginResponse struct {
	User userResponse `json:"user"`
	tokensResponse
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type channelProfileResponse struct {
	FullName                  string    `json:"fullName"`
	Username                  string    `json:"username"`
	Email                     string    `json:"email"`
	Avatar                    string    `json:"avatar"`
	CoverImage                string    `json:"coverImage,omitempty"`
	SubscribersCount          int64     `json:"subscribersCount"`
	ChannelsSubscribedToCount int64     `json:"channelsSubscribedToCount"`
	IsSubscribed              bool      `json:"isSubscribed"`
	CreatedAt                 time.Time `json:"createdAt"`
}

type ownerResponse struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type watchHistoryItemResponse struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	VideoFile   string         `json:"videoFile"`
	Thumbnail   string         `json:"thumbnail"`
	Duration    float64        `json:"duration"`
	Views       int64          `json:"views"`
	CreatedAt   time.Time      `json:"createdAt"`
	Owner       *ownerResponse `json:"owner"`
}

func toUser(u *models.User) userResponse {
	history := make([]string, 0, len(u.WatchHistory))
	for _, id := range u.WatchHistory {
		history = append(history, id.String())
	}

	return userResponse{
		ID:           u.ID.String(),
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Avatar:       u.AvatarURL,
		CoverImage:   u.CoverImageURL,
		WatchHistory: history,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func toTokens(p *models.TokenPair) tokensResponse {
	return tokensResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		AccessExpiresAt:  p.AccessExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}

func toChannelProfile(p *models.ChannelProfile) channelProfileResponse {
	return channelProfileResponse{
		FullName:                  p.FullName,
		Username:                  p.Username,
		Email:                     p.Email,
		Avatar:                    p.AvatarURL,
		CoverImage:                p.CoverImageURL,
		SubscribersCount:          p.SubscribersCount,
		ChannelsSubscribedToCount: p.ChannelsSubscribedToCount,
		IsSubscribed:              p.IsSubscribed,
		CreatedAt:                 p.CreatedAt,
	}
}

// toWatchHistory сохраняет порядок и возвращает [] вместо null для пустой истории.
func toWatchHistory(items []models.WatchHistoryItem) []watchHistoryItemResponse {
	out := make([]watchHistoryItemResponse, 0, len(items))
	for _, it := range items {
		item := watchHistoryItemResponse{
			ID:          it.VideoID.String(),
			Title:       it.Title,
			Description: it.Description,
			VideoFile:   it.VideoURL,
			Thumbnail:   it.ThumbnailURL,
			Duration:    it.Duration.Seconds(),
			Views:       it.Views,
			CreatedAt:   it.CreatedAt,
		}
		if it.Owner != nil {
			item.Owner = &ownerResponse{
				FullName: it.Owner.FullName,
				Username: it.Owner.Username,
				Avatar:   it.Owner.AvatarURL,
			}
		}
		out = append(out, item)
	}

	return out
}
