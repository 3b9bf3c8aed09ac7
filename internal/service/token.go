package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/models"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/pkg/log"
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"

	clockLeeway = 5 * time.Second
)

type accessClaims struct {
	UserID   string `json:"uid"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

// refreshClaims несут минимум данных; jti делает токены уникальными
// даже при выпуске в одну и ту же секунду.
type refreshClaims struct {
	UserID string `json:"uid"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// issuedPair — подписанная пара и дайджест refresh-токена для записи в слот.
type issuedPair struct {
	pair          *models.TokenPair
	refreshDigest string
}

// signPair подписывает access- и refresh-токены для user.
func (s *Service) signPair(ctx context.Context, user *models.User) (*issuedPair, error) {
	const op = "service/token/signPair"

	lg := log.From(ctx)
	now := s.now().UTC()
	accessExp := now.Add(s.cfg.AccessTokenTTL)
	refreshExp := now.Add(s.cfg.RefreshTokenTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		UserID:           user.ID.String(),
		Email:            user.Email,
		Username:         user.Username,
		FullName:         user.FullName,
		Type:             typeAccess,
		RegisteredClaims: s.registered(user, now, accessExp, ""),
	})

	accessStr, err := access.SignedString([]byte(s.cfg.AccessSecret))
	if err != nil {
		lg.Error("access_token_sign_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims{
		UserID:           user.ID.String(),
		Type:             typeRefresh,
		RegisteredClaims: s.registered(user, now, refreshExp, uuid.NewString()),
	})

	refreshStr, err := refresh.SignedString([]byte(s.cfg.RefreshSecret))
	if err != nil {
		lg.Error("refresh_token_sign_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &issuedPair{
		pair: &models.TokenPair{
			AccessToken:      accessStr,
			RefreshToken:     refreshStr,
			AccessExpiresAt:  accessExp.Truncate(time.Second),
			RefreshExpiresAt: refreshExp.Truncate(time.Second),
		},
		refreshDigest: digest(refreshStr),
	}, nil
}

func (s *Service) registered(user *models.User, now, exp time.Time, jti string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        jti,
		Subject:   user.ID.String(),
		Issuer:    s.cfg.Issuer,
		Audience:  jwt.ClaimStrings(s.cfg.Audience),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

// parseAccess проверяет подпись, срок, issuer/audience и тип access-токена.
func (s *Service) parseAccess(tokenStr string) (*accessClaims, error) {
	const op = "service/token/parseAccess"

	claims := &accessClaims{}
	if err := s.parse(tokenStr, s.cfg.AccessSecret, claims); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if claims.Type != typeAccess {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}

// parseRefresh — то же для refresh-токена.
func (s *Service) parseRefresh(tokenStr string) (*refreshClaims, error) {
	const op = "service/token/parseRefresh"

	claims := &refreshClaims{}
	if err := s.parse(tokenStr, s.cfg.RefreshSecret, claims); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if claims.Type != typeRefresh {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return claims, nil
}

func (s *Service) parse(tokenStr, secret string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(clockLeeway),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience...),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}

		return ErrInvalidToken
	}

	if !token.Valid {
		return ErrInvalidToken
	}

	return nil
}

// subjectID извлекает идентификатор пользователя из claim uid.
func subjectID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidToken
	}

	return id, nil
}

// digest — SHA-256 токена в base64url; в слоте пользователя хранится только он.
func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
