package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/models"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/pkg/log"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
)

// Поля агрегированных представлений.
const (
	fieldSubscribers       = "subscribers"
	fieldSubscribedTo      = "subscribed_to"
	fieldViewerEdge        = "viewer_edge"
	fieldSubscribersCount  = "subscribers_count"
	fieldSubscribedToCount = "channels_subscribed_to_count"
	fieldIsSubscribed      = "is_subscribed"
)

// channelProfileSpec — профиль канала за один проход. Рёбра subscriptions
// сворачиваются в счётчики внутри lookup, а для признака подписки
// присоединяется не больше одного ребра зрителя.
func channelProfileSpec(username string, viewer uuid.UUID) (storage.JoinSpec, error) {
	viewerEdge := storage.Nested().
		Match(storage.FieldSubscriber, viewer).
		Project(storage.FieldSubscriber)

	return storage.From(storage.CollUsers).
		Match(storage.FieldUsername, username).
		Lookup(storage.CollSubscriptions, storage.FieldID, storage.FieldChannel, fieldSubscribers, storage.Nested().Tally()).
		Lookup(storage.CollSubscriptions, storage.FieldID, storage.FieldSubscriber, fieldSubscribedTo, storage.Nested().Tally()).
		Lookup(storage.CollSubscriptions, storage.FieldID, storage.FieldChannel, fieldViewerEdge, viewerEdge).
		Count(fieldSubscribers, fieldSubscribersCount).
		Count(fieldSubscribedTo, fieldSubscribedToCount).
		Contains(fieldViewerEdge+"."+storage.FieldSubscriber, viewer, fieldIsSubscribed).
		Project(
			storage.FieldFullName,
			storage.FieldUsername,
			storage.FieldEmail,
			storage.FieldAvatarURL,
			storage.FieldCoverImageURL,
			storage.FieldCreatedAt,
			fieldSubscribersCount,
			fieldSubscribedToCount,
			fieldIsSubscribed,
		).
		Build()
}

// watchHistorySpec выбирает видео из ids и присоединяет сводку владельца.
func watchHistorySpec(ids []uuid.UUID) (storage.JoinSpec, error) {
	owner := storage.Nested().
		Project(storage.FieldFullName, storage.FieldUsername, storage.FieldAvatarURL)

	return storage.From(storage.CollVideos).
		MatchIn(storage.FieldID, ids).
		Lookup(storage.CollUsers, storage.FieldOwner, storage.FieldID, storage.FieldOwner, owner).
		First(storage.FieldOwner).
		Project(
			storage.FieldID,
			storage.FieldTitle,
			storage.FieldDescription,
			storage.FieldVideoURL,
			storage.FieldThumbnailURL,
			storage.FieldDuration,
			storage.FieldViews,
			storage.FieldCreatedAt,
			storage.FieldOwner,
		).
		Build()
}

// ChannelProfile возвращает профиль канала username глазами viewer.
// viewer == uuid.Nil — анонимный зритель, IsSubscribed всегда false.
func (s *Service) ChannelProfile(ctx context.Context, username string, viewer uuid.UUID) (*models.ChannelProfile, error) {
	const op = "service/profile/ChannelProfile"

	username = normalize(username)
	if username == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingUsername)
	}

	spec, err := channelProfileSpec(username, viewer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out []models.ChannelProfile
	if err := s.storage.Aggregate(ctx, spec, &out); err != nil {
		return nil, persistence(op, err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrChannelNotFound)
	}

	return &out[0], nil
}

// WatchHistory возвращает историю просмотров в порядке watch_history.
// Повторные просмотры сохраняются. Видео, которого больше нет, пропускается;
// видео с удалённым владельцем возвращается с Owner == nil.
func (s *Service) WatchHistory(ctx context.Context, userID uuid.UUID) ([]models.WatchHistoryItem, error) {
	const op = "service/profile/WatchHistory"

	user, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items := make([]models.WatchHistoryItem, 0, len(user.WatchHistory))
	if len(user.WatchHistory) == 0 {
		return items, nil
	}

	ids := unique(user.WatchHistory)

	spec, err := watchHistorySpec(ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var videos []models.WatchHistoryItem
	if err := s.storage.Aggregate(ctx, spec, &videos); err != nil {
		return nil, persistence(op, err)
	}

	byID := make(map[uuid.UUID]models.WatchHistoryItem, len(videos))
	for _, v := range videos {
		byID[v.VideoID] = v
	}

	var skipped int
	for _, id := range user.WatchHistory {
		v, ok := byID[id]
		if !ok {
			skipped++
			continue
		}

		items = append(items, v)
	}

	if skipped > 0 {
		log.From(ctx).Debug("watch_history_missing_videos",
			slog.String("user_id", userID.String()),
			slog.Int("skipped", skipped),
		)
	}

	return items, nil
}

// Subscribe подписывает subscriber на канал channelName. Повторная подписка ничего не меняет.
func (s *Service) Subscribe(ctx context.Context, subscriber uuid.UUID, channelName string) error {
	const op = "service/profile/Subscribe"

	channel, err := s.channelByName(ctx, subscriber, channelName)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sub := &models.Subscription{
		ID:         uuid.New(),
		Subscriber: subscriber,
		Channel:    channel.ID,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.storage.CreateSubscription(ctx, sub); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil
		}

		return persistence(op, err)
	}

	return nil
}

// Unsubscribe удаляет подписку. Отсутствие подписки не ошибка.
func (s *Service) Unsubscribe(ctx context.Context, subscriber uuid.UUID, channelName string) error {
	const op = "service/profile/Unsubscribe"

	channel, err := s.channelByName(ctx, subscriber, channelName)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.DeleteSubscription(ctx, subscriber, channel.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}

		return persistence(op, err)
	}

	return nil
}

func (s *Service) channelByName(ctx context.Context, subscriber uuid.UUID, channelName string) (*models.User, error) {
	const op = "service/profile/channelByName"

	name := normalize(channelName)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingUsername)
	}

	channel, err := s.storage.UserByUsernameOrEmail(ctx, name, "")
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrChannelNotFound)
		}

		return nil, persistence(op, err)
	}

	if channel.ID == subscriber {
		return nil, fmt.Errorf("%s: %w", op, ErrSelfSubscription)
	}

	return channel, nil
}

// RecordView добавляет видео в конец истории просмотров пользователя.
func (s *Service) RecordView(ctx context.Context, userID, videoID uuid.UUID) error {
	const op = "service/profile/RecordView"

	if _, err := s.storage.VideoByID(ctx, videoID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrVideoNotFound)
		}

		return persistence(op, err)
	}

	if err := s.storage.AppendWatchHistory(ctx, userID, videoID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return persistence(op, err)
	}

	return nil
}

func unique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
