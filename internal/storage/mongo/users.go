package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/models"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// toMS — MongoDB DateTime хранит миллисекунды.
func toMS(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

// CreateUser вставляет пользователя. Нарушение уникального индекса — ErrAlreadyExists.
func (m *Mongo) CreateUser(ctx context.Context, user *models.User) error {
	const op = "storage/mongo/CreateUser"

	// $push по null-полю невозможен, поэтому история всегда хранится массивом.
	if user.WatchHistory == nil {
		user.WatchHistory = []uuid.UUID{}
	}

	user.CreatedAt = toMS(user.CreatedAt)
	user.UpdatedAt = toMS(user.UpdatedAt)

	if _, err := m.users.InsertOne(ctx, user); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: insert: %w", op, err)
	}

	return nil
}

// UserByID возвращает пользователя по идентификатору.
func (m *Mongo) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage/mongo/UserByID"

	return m.findUser(ctx, op, bson.D{{Key: storage.FieldID, Value: id}})
}

// UserByUsernameOrEmail ищет пользователя по username ИЛИ email.
func (m *Mongo) UserByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	const op = "storage/mongo/UserByUsernameOrEmail"

	var or bson.A
	if username != "" {
		or = append(or, bson.D{{Key: storage.FieldUsername, Value: username}})
	}

	if email != "" {
		or = append(or, bson.D{{Key: storage.FieldEmail, Value: email}})
	}

	if len(or) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return m.findUser(ctx, op, bson.D{{Key: "$or", Value: or}})
}

func (m *Mongo) findUser(ctx context.Context, op string, filter bson.D) (*models.User, error) {
	var user models.User
	if err := m.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: find: %w", op, err)
	}

	return &user, nil
}

// UpdateUser выполняет частичное обновление и возвращает документ после изменения.
// Пустой UserUpdate только обновляет updated_at.
func (m *Mongo) UpdateUser(ctx context.Context, id uuid.UUID, upd storage.UserUpdate) (*models.User, error) {
	const op = "storage/mongo/UpdateUser"

	set := bson.D{{Key: "updated_at", Value: toMS(time.Now())}}

	add := func(field string, v *string) {
		if v != nil {
			set = append(set, bson.E{Key: field, Value: *v})
		}
	}

	add(storage.FieldFullName, upd.FullName)
	add(storage.FieldEmail, upd.Email)
	add(storage.FieldPasswordHash, upd.PasswordHash)
	add(storage.FieldAvatarURL, upd.AvatarURL)
	add(storage.FieldCoverImageURL, upd.CoverImageURL)

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err := m.users.FindOneAndUpdate(ctx,
		bson.D{{Key: storage.FieldID, Value: id}},
		bson.D{{Key: "$set", Value: set}},
		opts,
	).Decode(&user)
	if err != nil {
		switch {
		case errors.Is(err, mongodriver.ErrNoDocuments):
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		case mongodriver.IsDuplicateKeyError(err):
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		default:
			return nil, fmt.Errorf("%s: update: %w", op, err)
		}
	}

	return &user, nil
}

// AppendWatchHistory добавляет videoID в конец watch_history.
func (m *Mongo) AppendWatchHistory(ctx context.Context, userID, videoID uuid.UUID) error {
	const op = "storage/mongo/AppendWatchHistory"

	res, err := m.users.UpdateByID(ctx, userID, bson.D{
		{Key: "$push", Value: bson.D{{Key: storage.FieldWatchHistory, Value: videoID}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: toMS(time.Now())}}},
	})
	if err != nil {
		return fmt.Errorf("%s: update: %w", op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}
