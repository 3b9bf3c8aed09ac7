// minio реализует storage.MediaStorage на базе MinIO/S3.
// minio.go — конструктор клиента: нормализует endpoint, подбирает Secure
// по схеме и проверяет наличие бакета.
// media.go — загрузка аватаров и обложек с проверкой типа и размера.
package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/config"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
)

// MediaStorage — адаптер MinIO для медиафайлов пользователей.
type MediaStorage struct {
	s3      config.S3Config
	media   config.MediaConfig
	client  *mclient.Client
	baseURL string
}

// New создаёт клиент MinIO и выполняет fail-fast-проверку бакета.
func New(ctx context.Context, s3 config.S3Config, media config.MediaConfig) (*MediaStorage, error) {
	const op = "storage/minio/New"

	endpoint := s3.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(s3.AccessKey, s3.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, s3.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, s3.Bucket)
	}

	return &MediaStorage{
		s3:      s3,
		media:   media,
		client:  client,
		baseURL: publicBase(s3, secure, endpoint),
	}, nil
}

// publicBase — префикс публичных ссылок. Без PublicBaseURL ссылки
// строятся path-style прямо на endpoint хранилища.
func publicBase(s3 config.S3Config, secure bool, endpoint string) string {
	if s3.PublicBaseURL != "" {
		return strings.TrimRight(s3.PublicBaseURL, "/")
	}

	scheme := "http"
	if secure {
		scheme = "https"
	}

	return scheme + "://" + endpoint + "/" + s3.Bucket
}

var _ storage.MediaStorage = (*MediaStorage)(nil)
