package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/cache"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/models"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/pkg/log"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/pkg/redact"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
)

// LoginInput — идентификатор (username или email) и пароль.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// Issue выпускает новую пару токенов для существующего пользователя и
// записывает дайджест refresh-токена в его слот, заменяя прежний.
// Пара возвращается только после подтверждённой записи.
func (s *Service) Issue(ctx context.Context, userID uuid.UUID) (*models.TokenPair, error) {
	const op = "service/auth/Issue"

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		return nil, persistence(op, err)
	}

	pair, err := s.issueFor(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

func (s *Service) issueFor(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	const op = "service/auth/issueFor"

	issued, err := s.signPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SetRefreshToken(ctx, user.ID, issued.refreshDigest); err != nil {
		log.From(ctx).Error("refresh_token_persist_failed",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
			slog.String("err", err.Error()),
		)
		return nil, persistence(op, err)
	}

	return issued.pair, nil
}

// VerifyAccess проверяет access-токен и возвращает личность владельца.
// Проверка не обращается к хранилищу: отзыв refresh-токена не влияет
// на уже выданные access-токены до истечения их TTL.
func (s *Service) VerifyAccess(ctx context.Context, token string) (models.Identity, error) {
	const op = "service/auth/VerifyAccess"

	if strings.TrimSpace(token) == "" {
		return models.Identity{}, fmt.Errorf("%s: %w", op, ErrMissingToken)
	}

	claims, err := s.parseAccess(token)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := subjectID(claims.UserID)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.Identity{UserID: id, Email: claims.Email, Username: claims.Username}, nil
}

// Rotate обменивает refresh-токен на новую пару.
// Сравнение предъявленного токена с текущим и запись нового выполняются одним
// условным обновлением хранилища, поэтому из N конкурентных ротаций одного
// токена успешна ровно одна; остальные получают ErrTokenReuseDetected.
func (s *Service) Rotate(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "service/auth/Rotate"

	lg := log.From(ctx)

	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingToken)
	}

	claims, err := s.parseRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	userID, err := subjectID(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	presented := digest(refreshToken)

	if e := s.knownRevoked(ctx, presented, userID); e != nil {
		lg.Warn("refresh_reuse_detected",
			slog.String("op", op),
			slog.String("user_id", userID.String()),
			slog.String("digest", redact.Digest(presented)),
			slog.String("source", "cache"),
			slog.Time("revoked_at", e.RevokedAt),
			slog.Duration("since_revoke", s.now().Sub(e.RevokedAt)),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrTokenReuseDetected)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, persistence(op, err)
	}

	issued, err := s.signPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SwapRefreshToken(ctx, userID, presented, issued.refreshDigest); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			lg.Warn("refresh_reuse_detected",
				slog.String("op", op),
				slog.String("user_id", userID.String()),
				slog.String("digest", redact.Digest(presented)),
				slog.String("source", "store"),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrTokenReuseDetected)
		}

		return nil, persistence(op, err)
	}

	var until time.Time
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	s.rememberRevoked(ctx, presented, userID, until)

	lg.Info("refresh_rotated", slog.String("op", op), slog.String("user_id", userID.String()))

	return issued.pair, nil
}

// Revoke очищает слот refresh-токена пользователя. Повторный вызов безопасен.
func (s *Service) Revoke(ctx context.Context, userID uuid.UUID) error {
	const op = "service/auth/Revoke"

	prev, err := s.storage.ClearRefreshToken(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return persistence(op, err)
	}

	if prev != "" {
		s.rememberRevoked(ctx, prev, userID, s.now().Add(s.cfg.RefreshTokenTTL))
	}

	return nil
}

// Login аутентифицирует пользователя по username или email и паролю
// и выпускает новую пару токенов.
func (s *Service) Login(ctx context.Context, in LoginInput) (*models.User, *models.TokenPair, error) {
	const op = "service/auth/Login"

	username := normalize(in.Username)
	email := normalize(in.Email)

	if username == "" && email == "" {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrMissingIdentifier)
	}

	if in.Password == "" {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	user, err := s.storage.UserByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, nil, persistence(op, err)
	}

	if !s.hasher.Verify(user.PasswordHash, in.Password) {
		log.From(ctx).Warn("login_failed",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
		)
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issueFor(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return public(user), pair, nil
}

// Logout завершает сессию пользователя.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	const op = "service/auth/Logout"

	if err := s.Revoke(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// knownRevoked сверяется с кэшем и возвращает запись об отзыве токена userID.
// Запись чужого пользователя игнорируется. Ошибки кэша не мешают ротации:
// окончательное решение принимает условное обновление в хранилище.
func (s *Service) knownRevoked(ctx context.Context, hash string, userID uuid.UUID) *cache.RevokedEntry {
	if s.rcache == nil {
		return nil
	}

	e, ok, err := s.rcache.Revoked(ctx, hash)
	if err != nil {
		log.From(ctx).Warn("refresh_cache_get_failed", slog.String("err", err.Error()))
		return nil
	}

	if !ok || e == nil {
		return nil
	}

	if e.UserID != userID {
		log.From(ctx).Warn("refresh_cache_owner_mismatch",
			slog.String("user_id", userID.String()),
			slog.String("cached_user_id", e.UserID.String()),
		)
		return nil
	}

	return e
}

func (s *Service) rememberRevoked(ctx context.Context, hash string, userID uuid.UUID, until time.Time) {
	if s.rcache == nil {
		return
	}

	now := s.now()
	e := &cache.RevokedEntry{UserID: userID, RevokedAt: now.UTC()}

	if err := s.rcache.MarkRevoked(ctx, hash, e, until.Sub(now)); err != nil {
		log.From(ctx).Warn("refresh_cache_mark_failed", slog.String("err", err.Error()))
	}
}

// public возвращает копию пользователя без секретов.
func public(u *models.User) *models.User {
	cp := *u
	cp.PasswordHash = ""
	cp.RefreshTokenHash = ""

	return &cp
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
