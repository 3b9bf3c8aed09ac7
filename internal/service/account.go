package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/models"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/pkg/log"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/pkg/redact"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
)

// discardTimeout ограничивает удаление осиротевших файлов после отменённого запроса.
const discardTimeout = 5 * time.Second

// RegisterInput — данные регистрации. CoverImage необязателен.
type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	Avatar     *storage.MediaFile
	CoverImage *storage.MediaFile
}

// Register создаёт пользователя.
// Порядок: валидация -> проверка уникальности -> загрузка медиа -> запись.
// Если медиа не загрузилось, запись не создаётся.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "service/account/Register"

	lg := log.From(ctx)

	fullName := strings.TrimSpace(in.FullName)
	username := normalize(in.Username)
	rawEmail := strings.TrimSpace(in.Email)

	if fullName == "" || username == "" || rawEmail == "" || strings.TrimSpace(in.Password) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrRequiredFields)
	}

	if strings.ContainsAny(username, " \t\n@/") {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidUsername)
	}

	email, err := validateEmail(rawEmail)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if in.Avatar == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrAvatarRequired)
	}

	_, err = s.storage.UserByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, persistence(op, err)
	}

	id := uuid.New()

	avatarURL, err := s.upload(ctx, storage.MediaAvatar, id, *in.Avatar)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Пока запись не создана, загруженные файлы ничему не принадлежат.
	uploaded := []string{avatarURL}
	committed := false
	defer func() {
		if !committed {
			s.discard(ctx, uploaded...)
		}
	}()

	var coverURL string
	if in.CoverImage != nil {
		coverURL, err = s.upload(ctx, storage.MediaCoverImage, id, *in.CoverImage)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		uploaded = append(uploaded, coverURL)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:            id,
		Username:      username,
		Email:         email,
		FullName:      fullName,
		PasswordHash:  hash,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		WatchHistory:  []uuid.UUID{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.storage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		return nil, persistence(op, err)
	}
	committed = true

	lg.Info("user_registered",
		slog.String("op", op),
		slog.String("user_id", id.String()),
		slog.String("email", redact.Email(email)),
	)

	return public(user), nil
}

// ChangePassword меняет пароль после проверки текущего.
// Выданные токены остаются действительными.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	const op = "service/account/ChangePassword"

	if newPassword == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	user, err := s.userByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Verify(user.PasswordHash, oldPassword) {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.update(ctx, userID, storage.UserUpdate{PasswordHash: &hash}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// CurrentUser возвращает пользователя без секретов.
func (s *Service) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	const op = "service/account/CurrentUser"

	user, err := s.userByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return public(user), nil
}

// UpdateAccountDetails меняет имя и email.
func (s *Service) UpdateAccountDetails(ctx context.Context, userID uuid.UUID, fullName, email string) (*models.User, error) {
	const op = "service/account/UpdateAccountDetails"

	fullName = strings.TrimSpace(fullName)
	if fullName == "" || strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrRequiredFields)
	}

	norm, err := validateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.update(ctx, userID, storage.UserUpdate{FullName: &fullName, Email: &norm})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return public(user), nil
}

// UpdateAvatar загружает новый аватар и сохраняет ссылку на него.
func (s *Service) UpdateAvatar(ctx context.Context, userID uuid.UUID, file *storage.MediaFile) (*models.User, error) {
	const op = "service/account/UpdateAvatar"

	if file == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrAvatarRequired)
	}

	user, err := s.replaceMedia(ctx, userID, storage.MediaAvatar, *file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateCoverImage загружает новую обложку канала.
func (s *Service) UpdateCoverImage(ctx context.Context, userID uuid.UUID, file *storage.MediaFile) (*models.User, error) {
	const op = "service/account/UpdateCoverImage"

	if file == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrCoverImageRequired)
	}

	user, err := s.replaceMedia(ctx, userID, storage.MediaCoverImage, *file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// replaceMedia сначала убеждается, что пользователь существует, затем загружает
// файл и только после успешной загрузки обновляет запись.
func (s *Service) replaceMedia(ctx context.Context, userID uuid.UUID, kind storage.MediaKind, file storage.MediaFile) (*models.User, error) {
	const op = "service/account/replaceMedia"

	if _, err := s.userByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	url, err := s.upload(ctx, kind, userID, file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var upd storage.UserUpdate
	switch kind {
	case storage.MediaAvatar:
		upd.AvatarURL = &url
	case storage.MediaCoverImage:
		upd.CoverImageURL = &url
	}

	user, err := s.update(ctx, userID, upd)
	if err != nil {
		s.discard(ctx, url)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return public(user), nil
}

// upload сохраняет файл в объектном хранилище.
func (s *Service) upload(ctx context.Context, kind storage.MediaKind, owner uuid.UUID, file storage.MediaFile) (string, error) {
	const op = "service/account/upload"

	start := time.Now()

	url, err := s.media.Store(ctx, kind, owner, file)
	if err != nil {
		log.From(ctx).Warn("media_upload_failed",
			slog.String("op", op),
			slog.String("kind", string(kind)),
			slog.String("owner", owner.String()),
			slog.String("err", err.Error()),
		)

		if errors.Is(err, storage.ErrInvalidMedia) {
			return "", fmt.Errorf("%s: %w", op, ErrInvalidMedia)
		}

		return "", fmt.Errorf("%s: %w: %w", op, ErrMediaUploadFailed, err)
	}

	log.From(ctx).Debug("media_uploaded",
		slog.String("kind", string(kind)),
		slog.Duration("took", time.Since(start)),
	)

	return url, nil
}

// discard удаляет загруженные файлы, не попавшие в запись пользователя.
// Удаление выполняется по возможности: неудача только логируется,
// ключ остаётся в логе для ручной очистки.
func (s *Service) discard(ctx context.Context, urls ...string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()

	for _, url := range urls {
		if err := s.media.Remove(ctx, url); err != nil {
			log.From(ctx).Warn("media_orphaned",
				slog.String("url", url),
				slog.String("err", err.Error()),
			)
			continue
		}

		log.From(ctx).Debug("media_discarded", slog.String("url", url))
	}
}

func (s *Service) userByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	const op = "service/account/userByID"

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, persistence(op, err)
	}

	return user, nil
}

func (s *Service) update(ctx context.Context, userID uuid.UUID, upd storage.UserUpdate) (*models.User, error) {
	const op = "service/account/update"

	user, err := s.storage.UpdateUser(ctx, userID, upd)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		return nil, persistence(op, err)
	}

	return user, nil
}

// validateEmail проверяет формат email и приводит его к нижнему регистру.
func validateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}

	return strings.ToLower(email), nil
}
