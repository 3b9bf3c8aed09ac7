package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/models"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// CreateSubscription вставляет ребро subscriber -> channel.
func (m *Mongo) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	const op = "storage/mongo/CreateSubscription"

	sub.CreatedAt = toMS(sub.CreatedAt)

	if _, err := m.subscriptions.InsertOne(ctx, sub); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: insert: %w", op, err)
	}

	return nil
}

// DeleteSubscription удаляет ребро subscriber -> channel.
func (m *Mongo) DeleteSubscription(ctx context.Context, subscriber, channel uuid.UUID) error {
	const op = "storage/mongo/DeleteSubscription"

	res, err := m.subscriptions.DeleteOne(ctx, bson.D{
		{Key: storage.FieldSubscriber, Value: subscriber},
		{Key: storage.FieldChannel, Value: channel},
	})
	if err != nil {
		return fmt.Errorf("%s: delete: %w", op, err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}
