package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/models"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// CreateVideo вставляет документ видео.
func (m *Mongo) CreateVideo(ctx context.Context, video *models.Video) error {
	const op = "storage/mongo/CreateVideo"

	video.CreatedAt = toMS(video.CreatedAt)

	if _, err := m.videos.InsertOne(ctx, video); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: insert: %w", op, err)
	}

	return nil
}

// VideoByID возвращает видео по идентификатору.
func (m *Mongo) VideoByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	const op = "storage/mongo/VideoByID"

	var v models.Video
	if err := m.videos.FindOne(ctx, bson.D{{Key: storage.FieldID, Value: id}}).Decode(&v); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: find: %w", op, err)
	}

	return &v, nil
}
