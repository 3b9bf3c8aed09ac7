package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/config"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты поднимают MinIO через testcontainers-go.
// Запуск:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/minio -v -race -count=1

func startMinio(t *testing.T, createBucket bool) (*MediaStorage, error) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	const (
		image        = "docker.io/minio/minio:latest"
		rootUser     = "root"
		rootPassword = "rootpass"
		bucket       = "media"
	)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image: image,
			Env: map[string]string{
				"MINIO_ROOT_USER":     rootUser,
				"MINIO_ROOT_PASSWORD": rootPassword,
			},
			Cmd:          []string{"server", "/data"},
			ExposedPorts: []string{"9000/tcp"},
			WaitingFor:   wait.ForListeningPort("9000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)

	if createBucket {
		admin, err := mclient.New(host+":"+port.Port(), &mclient.Options{
			Creds: credentials.NewStaticV4(rootUser, rootPassword, ""),
		})
		require.NoError(t, err)
		require.NoError(t, admin.MakeBucket(ctx, bucket, mclient.MakeBucketOptions{Region: "us-east-1"}))
	}

	return New(ctx, config.S3Config{
		Endpoint:  fmt.Sprintf("http://%s:%s", host, port.Port()),
		AccessKey: rootUser,
		SecretKey: rootPassword,
		Bucket:    bucket,
	}, config.MediaConfig{
		MaxSizeBytes:        1 << 10,
		AllowedContentTypes: []string{"image/png", "image/jpeg"},
	})
}

func TestIntegration_New_BucketMustExist(t *testing.T) {
	_, err := startMinio(t, false)
	require.Error(t, err)
}

func TestIntegration_Store(t *testing.T) {
	st, err := startMinio(t, true)
	require.NoError(t, err)

	owner := uuid.New()
	body := bytes.Repeat([]byte{0x42}, 16)

	url, err := st.Store(context.Background(), storage.MediaAvatar, owner, storage.MediaFile{
		Name:        "me.png",
		ContentType: "image/png",
		Size:        int64(len(body)),
		Body:        bytes.NewReader(body),
	})
	require.NoError(t, err)
	require.Contains(t, url, "/media/avatars/"+owner.String()+"/")
	require.True(t, strings.HasSuffix(url, ".png"))

	// Бакет приватный, поэтому читаем объект через клиент, а не по URL.
	key := url[strings.Index(url, "avatars/"):]
	obj, err := st.client.GetObject(context.Background(), "media", key, mclient.GetObjectOptions{})
	require.NoError(t, err)
	got, err := io.ReadAll(obj)
	require.NoError(t, err)
	require.Equal(t, body, got)

	info, err := obj.Stat()
	require.NoError(t, err)
	require.Equal(t, "image/png", info.ContentType)
}

func TestIntegration_Store_Rejects(t *testing.T) {
	st, err := startMinio(t, true)
	require.NoError(t, err)

	tests := []struct {
		name string
		file storage.MediaFile
	}{
		{"empty", storage.MediaFile{ContentType: "image/png", Body: bytes.NewReader(nil)}},
		{"too large", storage.MediaFile{ContentType: "image/png", Size: 2 << 10, Body: bytes.NewReader(make([]byte, 2<<10))}},
		{"wrong type", storage.MediaFile{ContentType: "image/gif", Size: 3, Body: strings.NewReader("GIF")}},
		{"no body", storage.MediaFile{ContentType: "image/png", Size: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.Store(context.Background(), storage.MediaCoverImage, uuid.New(), tt.file)
			require.ErrorIs(t, err, storage.ErrInvalidMedia)
		})
	}
}

func TestIntegration_Remove(t *testing.T) {
	st, err := startMinio(t, true)
	require.NoError(t, err)

	ctx := context.Background()
	body := []byte("PNG")

	url, err := st.Store(ctx, storage.MediaAvatar, uuid.New(), storage.MediaFile{
		ContentType: "image/png",
		Size:        int64(len(body)),
		Body:        bytes.NewReader(body),
	})
	require.NoError(t, err)

	require.NoError(t, st.Remove(ctx, url))

	key := url[strings.Index(url, "avatars/"):]
	_, err = st.client.StatObject(ctx, "media", key, mclient.StatObjectOptions{})
	require.Equal(t, "NoSuchKey", mclient.ToErrorResponse(err).Code)

	// Повторное удаление безопасно.
	require.NoError(t, st.Remove(ctx, url))
}

func TestRemove_RejectsForeignURL(t *testing.T) {
	st := &MediaStorage{s3: config.S3Config{Bucket: "media"}, baseURL: "http://cdn.local/media"}

	for _, url := range []string{
		"http://evil.local/media/avatars/x.png",
		"http://cdn.local/media",
		"http://cdn.local/media/",
		"",
	} {
		require.Error(t, st.Remove(context.Background(), url), url)
	}
}

func TestPublicBase(t *testing.T) {
	require.Equal(t, "http://cdn.local", publicBase(config.S3Config{PublicBaseURL: "http://cdn.local/"}, false, "minio:9000"))
	require.Equal(t, "https://s3.local/media", publicBase(config.S3Config{Bucket: "media"}, true, "s3.local"))
	require.Equal(t, "http://minio:9000/media", publicBase(config.S3Config{Bucket: "media"}, false, "minio:9000"))
}

