// cache хранит в Redis дайджесты отозванных и ротированных refresh-токенов.
// Кэш носит рекомендательный характер: источник истины — слот токена в MongoDB,
// кэш лишь позволяет отклонить повторное предъявление без обращения к базе.
package cache

//go:generate mockgen -destination=../../mocks/cache.go -package=mocks . RefreshCache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RevokedEntry — запись об отозванном refresh-токене.
type RevokedEntry struct {
	UserID    uuid.UUID
	RevokedAt time.Time
}

// RefreshCache — контракт кэша отозванных refresh-токенов.
type RefreshCache interface {
	// Revoked возвращает запись и признак её наличия.
	Revoked(ctx context.Context, hash string) (*RevokedEntry, bool, error)
	// MarkRevoked сохраняет запись на ttl (остаток жизни токена).
	MarkRevoked(ctx context.Context, hash string, e *RevokedEntry, ttl time.Duration) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "accounts:rt:".
func NewRedisCache(ctx context.Context, redisURL, prefix string) (RefreshCache, error) {
	const op = "cache/NewRedisCache"

	if prefix == "" {
		prefix = "accounts:rt:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return &redisCache{rdb: rdb, prefix: prefix}, nil
}

func (c *redisCache) key(hash string) string { return c.prefix + hash }

// Храним как Redis Hash с полями uid и at (unix).
func (c *redisCache) Revoked(ctx context.Context, hash string) (*RevokedEntry, bool, error) {
	m, err := c.rdb.HGetAll(ctx, c.key(hash)).Result()
	if err != nil {
		return nil, false, err
	}

	if len(m) == 0 {
		return nil, false, nil
	}

	uid, err := uuid.Parse(m["uid"])
	if err != nil {
		return nil, false, err
	}

	at, err := strconv.ParseInt(m["at"], 10, 64)
	if err != nil {
		return nil, false, err
	}

	return &RevokedEntry{UserID: uid, RevokedAt: time.Unix(at, 0).UTC()}, true, nil
}

func (c *redisCache) MarkRevoked(ctx context.Context, hash string, e *RevokedEntry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, c.key(hash), map[string]string{
		"uid": e.UserID.String(),
		"at":  strconv.FormatInt(e.RevokedAt.Unix(), 10),
	})
	pipe.Expire(ctx, c.key(hash), ttl)

	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCache) Close() error { return c.rdb.Close() }
