package storage

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
)

// ErrInvalidMedia — файл нарушает ограничения (тип/размер).
var ErrInvalidMedia = errors.New("invalid media")

// MediaKind — назначение файла; используется как префикс ключа в бакете.
type MediaKind string

const (
	MediaAvatar     MediaKind = "avatars"
	MediaCoverImage MediaKind = "covers"
)

// MediaFile — файл, полученный от клиента.
type MediaFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// MediaStorage сохраняет файл и возвращает его публичный URL.
type MediaStorage interface {
	Store(ctx context.Context, kind MediaKind, owner uuid.UUID, file MediaFile) (string, error)
	// Remove удаляет файл по URL, выданному Store. Отсутствующий файл — не ошибка.
	Remove(ctx context.Context, url string) error
}
