package mongo

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-videotube/accounts-service/internal/storage"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// fakeStage — шаг вне закрытого набора; компилятор обязан его отвергнуть.
type fakeStage struct{ storage.MatchStage }

func TestCompile_ChannelProfile(t *testing.T) {
	t.Parallel()

	viewer := uuid.New()
	spec, err := storage.From(storage.CollUsers).
		Match(storage.FieldUsername, "alice").
		Lookup(storage.CollSubscriptions, storage.FieldID, storage.FieldChannel, "subscribers", storage.Nested().Tally()).
		Lookup(storage.CollSubscriptions, storage.FieldID, storage.FieldChannel, "viewer_edge",
			storage.Nested().Match(storage.FieldSubscriber, viewer).Project(storage.FieldSubscriber)).
		Count("subscribers", "subscribers_count").
		Contains("viewer_edge.subscriber", viewer, "is_subscribed").
		Project(storage.FieldUsername, "subscribers_count", "is_subscribed").
		Build()
	require.NoError(t, err)

	p, err := compile(spec.Stages)
	require.NoError(t, err)
	require.Len(t, p, 6)

	require.Equal(t, bson.D{{Key: "$match", Value: bson.D{{Key: "username", Value: "alice"}}}}, p[0])
	require.Equal(t, bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: "subscriptions"},
		{Key: "localField", Value: "_id"},
		{Key: "foreignField", Value: "channel"},
		{Key: "as", Value: "subscribers"},
		{Key: "pipeline", Value: mongodriver.Pipeline{{{Key: "$count", Value: "n"}}}},
	}}}, p[1])
	require.Equal(t, bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: "subscriptions"},
		{Key: "localField", Value: "_id"},
		{Key: "foreignField", Value: "channel"},
		{Key: "as", Value: "viewer_edge"},
		{Key: "pipeline", Value: mongodriver.Pipeline{
			{{Key: "$match", Value: bson.D{{Key: "subscriber", Value: viewer}}}},
			{{Key: "$project", Value: bson.D{{Key: "subscriber", Value: 1}, {Key: "_id", Value: 0}}}},
		}},
	}}}, p[2])
	require.Equal(t, bson.D{{Key: "$addFields", Value: bson.D{{Key: "subscribers_count", Value: bson.D{{Key: "$ifNull", Value: bson.A{
		bson.D{{Key: "$first", Value: "$subscribers.n"}}, 0,
	}}}}}}}, p[3])
	require.Equal(t, bson.D{{Key: "$addFields", Value: bson.D{{Key: "is_subscribed", Value: bson.D{{Key: "$in", Value: bson.A{viewer, "$viewer_edge.subscriber"}}}}}}}, p[4])
	require.Equal(t, bson.D{{Key: "$project", Value: bson.D{
		{Key: "username", Value: 1},
		{Key: "subscribers_count", Value: 1},
		{Key: "is_subscribed", Value: 1},
		{Key: "_id", Value: 0},
	}}}, p[5])
}

func TestCompile_NestedLookupAndFirst(t *testing.T) {
	t.Parallel()

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	spec, err := storage.From(storage.CollVideos).
		MatchIn(storage.FieldID, ids).
		Lookup(storage.CollUsers, storage.FieldOwner, storage.FieldID, storage.FieldOwner,
			storage.Nested().Project(storage.FieldFullName, storage.FieldUsername, storage.FieldAvatarURL)).
		First(storage.FieldOwner).
		Project(storage.FieldID, storage.FieldTitle, storage.FieldOwner).
		Build()
	require.NoError(t, err)

	p, err := compile(spec.Stages)
	require.NoError(t, err)
	require.Len(t, p, 4)

	require.Equal(t, bson.D{{Key: "$match", Value: bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}}}, p[0])

	lookup := p[1][0].Value.(bson.D)
	require.Equal(t, "pipeline", lookup[4].Key)
	require.Equal(t, bson.D{{Key: "$project", Value: bson.D{
		{Key: "full_name", Value: 1},
		{Key: "username", Value: 1},
		{Key: "avatar_url", Value: 1},
		{Key: "_id", Value: 0},
	}}}, lookup[4].Value.(mongodriver.Pipeline)[0])

	require.Equal(t, bson.D{{Key: "$addFields", Value: bson.D{{Key: "owner", Value: bson.D{{Key: "$first", Value: "$owner"}}}}}}, p[2])

	// _id явно запрошен — исключающий ключ не добавляется.
	require.Equal(t, bson.D{{Key: "$project", Value: bson.D{
		{Key: "_id", Value: 1},
		{Key: "title", Value: 1},
		{Key: "owner", Value: 1},
	}}}, p[3])
}

func TestCompile_UnknownStage(t *testing.T) {
	t.Parallel()

	_, err := compile([]storage.Stage{fakeStage{}})
	require.ErrorIs(t, err, storage.ErrInvalidJoinSpec)
}

func TestDatabaseFromURI(t *testing.T) {
	t.Parallel()

	require.Equal(t, "accounts", databaseFromURI("mongodb://localhost:27017/accounts"))
	require.Equal(t, "accounts", databaseFromURI("mongodb://u:p@localhost:27017/accounts?replicaSet=rs0"))
	require.Equal(t, defaultDBName, databaseFromURI("mongodb://localhost:27017"))
	require.Equal(t, defaultDBName, databaseFromURI("mongodb://localhost:27017/"))
}
