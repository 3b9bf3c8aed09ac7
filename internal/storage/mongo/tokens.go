package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SetRefreshToken безусловно записывает хэш refresh-токена в слот пользователя.
func (m *Mongo) SetRefreshToken(ctx context.Context, userID uuid.UUID, hash string) error {
	const op = "storage/mongo/SetRefreshToken"

	res, err := m.users.UpdateByID(ctx, userID, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: storage.FieldRefreshTokenHash, Value: hash},
			{Key: "updated_at", Value: toMS(time.Now())},
		}},
	})
	if err != nil {
		return fmt.Errorf("%s: update: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// SwapRefreshToken — compare-and-swap слота refresh-токена.
// Фильтр по (_id, refresh_token_hash == expectedHash) и $set выполняются сервером
// как одна операция над документом: из конкурирующих вызовов с одинаковым
// expectedHash совпадёт не более одного.
func (m *Mongo) SwapRefreshToken(ctx context.Context, userID uuid.UUID, expectedHash, newHash string) error {
	const op = "storage/mongo/SwapRefreshToken"

	if expectedHash == "" {
		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}

	res, err := m.users.UpdateOne(ctx,
		bson.D{
			{Key: storage.FieldID, Value: userID},
			{Key: storage.FieldRefreshTokenHash, Value: expectedHash},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: storage.FieldRefreshTokenHash, Value: newHash},
			{Key: "updated_at", Value: toMS(time.Now())},
		}}},
	)
	if err != nil {
		return fmt.Errorf("%s: update: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrConflict)
	}

	return nil
}

// ClearRefreshToken снимает refresh-токен ($unset) и возвращает прежний хэш.
// Повторный вызов возвращает "" без ошибки.
func (m *Mongo) ClearRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	const op = "storage/mongo/ClearRefreshToken"

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetProjection(bson.D{{Key: storage.FieldRefreshTokenHash, Value: 1}})

	var prev struct {
		Hash string `bson:"refresh_token_hash"`
	}

	err := m.users.FindOneAndUpdate(ctx,
		bson.D{{Key: storage.FieldID, Value: userID}},
		bson.D{
			{Key: "$unset", Value: bson.D{{Key: storage.FieldRefreshTokenHash, Value: ""}}},
			{Key: "$set", Value: bson.D{{Key: "updated_at", Value: toMS(time.Now())}}},
		},
		opts,
	).Decode(&prev)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return "", fmt.Errorf("%s: update: %w", op, err)
	}

	return prev.Hash, nil
}
