//go:build integration

package sessionstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongodb "github.com/testcontainers/testcontainers-go/modules/mongodb"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/moltis-ai/moltis/internal/llm/model"
)

func newTestMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	ctx := context.Background()

	container, err := tcmongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate mongo container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongodriver.Connect(options.Client().ApplyURI(connStr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	require.NoError(t, client.Ping(ctx, nil))

	store, err := NewMongoStore(ctx, MongoOptions{Client: client, Database: "moltis_test"})
	require.NoError(t, err)
	return store
}

func textMessage(role model.ConversationRole, text string) *model.Message {
	return &model.Message{Role: role, Parts: []model.Part{model.TextPart{Text: text}}}
}

func TestMongoStoreAppendAndReadPreservesOrder(t *testing.T) {
	store := newTestMongoStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", textMessage(model.ConversationRoleUser, "hello")))
	require.NoError(t, store.Append(ctx, "s1", textMessage(model.ConversationRoleAssistant, "hi there")))

	msgs, err := store.Read(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Parts[0].(model.TextPart).Text)
	assert.Equal(t, "hi there", msgs[1].Parts[0].(model.TextPart).Text)

	count, err := store.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMongoStoreClearRemovesMessagesAndMetadata(t *testing.T) {
	store := newTestMongoStore(t)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "s1", textMessage(model.ConversationRoleUser, "hello")))

	require.NoError(t, store.Clear(ctx, "s1"))

	msgs, err := store.Read(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, found, err := store.LoadMetadata(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMongoStoreReplaceHistoryDiscardsPriorMessages(t *testing.T) {
	store := newTestMongoStore(t)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "s1", textMessage(model.ConversationRoleUser, "one")))
	require.NoError(t, store.Append(ctx, "s1", textMessage(model.ConversationRoleUser, "two")))

	summary := textMessage(model.ConversationRoleAssistant, "summary")
	require.NoError(t, store.ReplaceHistory(ctx, "s1", []*model.Message{summary}))

	msgs, err := store.Read(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "summary", msgs[0].Parts[0].(model.TextPart).Text)
}

func TestMongoStoreBumpMetadataTracksMessageCount(t *testing.T) {
	store := newTestMongoStore(t)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "s1", textMessage(model.ConversationRoleUser, "one")))
	require.NoError(t, store.Append(ctx, "s1", textMessage(model.ConversationRoleUser, "two")))

	meta, found, err := store.LoadMetadata(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, meta.MessageCount)
}
