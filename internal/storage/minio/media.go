package minio

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
)

// Store загружает файл под ключом "<kind>/<owner>/<uuid>.<ext>" и возвращает публичный URL.
// Тип вне allow-list, пустой или слишком большой файл — storage.ErrInvalidMedia.
func (s *MediaStorage) Store(ctx context.Context, kind storage.MediaKind, owner uuid.UUID, file storage.MediaFile) (string, error) {
	const op = "storage/minio/Store"

	if file.Body == nil || file.Size <= 0 || file.Size > s.media.MaxSizeBytes {
		return "", fmt.Errorf("%s: %w: size %d", op, storage.ErrInvalidMedia, file.Size)
	}

	if !slices.Contains(s.media.AllowedContentTypes, file.ContentType) {
		return "", fmt.Errorf("%s: %w: content type %q", op, storage.ErrInvalidMedia, file.ContentType)
	}

	key := path.Join(string(kind), owner.String(), uuid.NewString()+extension(file.ContentType))

	_, err := s.client.PutObject(ctx, s.s3.Bucket, key, file.Body, file.Size, mclient.PutObjectOptions{
		ContentType: file.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("%s: put %s: %w", op, key, err)
	}

	return s.baseURL + "/" + key, nil
}

// Remove удаляет объект по публичному URL, выданному Store.
// URL вне бакета отвергается, чтобы не удалить чужой объект.
func (s *MediaStorage) Remove(ctx context.Context, url string) error {
	const op = "storage/minio/Remove"

	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || key == "" {
		return fmt.Errorf("%s: url %q is outside of bucket %q", op, url, s.s3.Bucket)
	}

	if err := s.client.RemoveObject(ctx, s.s3.Bucket, key, mclient.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%s: remove %s: %w", op, key, err)
	}

	return nil
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
