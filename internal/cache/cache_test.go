package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Запуск:
//   GO_TEST_INTEGRATION=1 go test ./internal/cache -v -count=1

func startRedis(t *testing.T) string {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7.0-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedisCache_MarkAndGet(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	c, err := NewRedisCache(ctx, url, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, ok, err := c.Revoked(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	uid := uuid.New()
	at := time.Now().Truncate(time.Second).UTC()
	require.NoError(t, c.MarkRevoked(ctx, "h1", &RevokedEntry{UserID: uid, RevokedAt: at}, time.Minute))

	e, ok, err := c.Revoked(ctx, "h1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uid, e.UserID)
	require.Equal(t, at, e.RevokedAt)

	// Нулевой TTL — токен уже истёк, запоминать нечего.
	require.NoError(t, c.MarkRevoked(ctx, "h2", &RevokedEntry{UserID: uid, RevokedAt: at}, 0))
	_, ok, err = c.Revoked(ctx, "h2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_EntryExpires(t *testing.T) {
	url := startRedis(t)
	ctx := context.Background()

	c, err := NewRedisCache(ctx, url, "test:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.MarkRevoked(ctx, "h", &RevokedEntry{UserID: uuid.New(), RevokedAt: time.Now()}, time.Second))

	require.Eventually(t, func() bool {
		_, ok, err := c.Revoked(ctx, "h")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not-a-url://", "")
	require.Error(t, err)
}
