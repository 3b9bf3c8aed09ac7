// mongo реализует storage.Storage поверх MongoDB.
// mongo.go — подключение, коллекции и индексы;
// users.go, tokens.go, subscriptions.go, videos.go — операции над документами;
// aggregate.go — компиляция storage.JoinSpec в конвейер агрегации.
package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pribylovaa/go-videotube/accounts-service/internal/config"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultDBName = "videotube"

// Mongo — адаптер MongoDB для пользователей, подписок и видео.
type Mongo struct {
	client        *mongodriver.Client
	db            *mongodriver.Database
	users         *mongodriver.Collection
	subscriptions *mongodriver.Collection
	videos        *mongodriver.Collection
}

// New подключается к MongoDB, проверяет соединение, подготавливает коллекции и индексы.
func New(ctx context.Context, cfg config.DBConfig) (*Mongo, error) {
	const op = "storage/mongo/New"

	if cfg.URL == "" {
		return nil, fmt.Errorf("%s: empty db url", op)
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	db := cli.Database(databaseFromURI(cfg.URL))

	m := &Mongo{
		client:        cli,
		db:            db,
		users:         db.Collection(string(storage.CollUsers)),
		subscriptions: db.Collection(string(storage.CollSubscriptions)),
		videos:        db.Collection(string(storage.CollVideos)),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = m.Close(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return m, nil
}

// Ping проверяет доступность primary; используется пробой готовности.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close закрывает соединение с MongoDB.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// collection возвращает коллекцию по имени из join-спецификации.
func (m *Mongo) collection(c storage.Collection) (*mongodriver.Collection, error) {
	switch c {
	case storage.CollUsers:
		return m.users, nil
	case storage.CollSubscriptions:
		return m.subscriptions, nil
	case storage.CollVideos:
		return m.videos, nil
	default:
		return nil, fmt.Errorf("%w: unknown collection %q", storage.ErrInvalidJoinSpec, c)
	}
}

// ensureIndexes создаёт индексы:
//   - users: уникальные username и email (collation strength=2, регистронезависимо);
//   - subscriptions: уникальная пара (channel, subscriber) и subscriber для обратного join;
//   - videos: owner.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	ci := &options.Collation{Locale: "en", Strength: 2}

	userIdx := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: storage.FieldUsername, Value: 1}},
			Options: options.Index().SetName("username_unique").SetUnique(true).SetCollation(ci),
		},
		{
			Keys:    bson.D{{Key: storage.FieldEmail, Value: 1}},
			Options: options.Index().SetName("email_unique").SetUnique(true).SetCollation(ci),
		},
	}

	if _, err := m.users.Indexes().CreateMany(ctx, userIdx); err != nil {
		return fmt.Errorf("ensure users indexes: %w", err)
	}

	subIdx := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: storage.FieldChannel, Value: 1}, {Key: storage.FieldSubscriber, Value: 1}},
			Options: options.Index().SetName("channel_subscriber_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: storage.FieldSubscriber, Value: 1}},
			Options: options.Index().SetName("subscriber"),
		},
	}

	if _, err := m.subscriptions.Indexes().CreateMany(ctx, subIdx); err != nil {
		return fmt.Errorf("ensure subscriptions indexes: %w", err)
	}

	_, err := m.videos.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: storage.FieldOwner, Value: 1}},
		Options: options.Index().SetName("owner"),
	})
	if err != nil {
		return fmt.Errorf("ensure videos indexes: %w", err)
	}

	return nil
}

// databaseFromURI извлекает имя базы данных из пути mongodb URI.
// Если оно отсутствует, возвращает defaultDBName.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}

	return defaultDBName
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.Storage = (*Mongo)(nil)
