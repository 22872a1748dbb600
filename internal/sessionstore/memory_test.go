package sessionstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltis-ai/moltis/internal/llm/model"
)

func textMessage(role model.ConversationRole, text string) *model.Message {
	return &model.Message{Role: role, Parts: []model.Part{model.TextPart{Text: text}}}
}

func TestMemoryStoreAppendAndRead(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "sess-1", textMessage(model.ConversationRoleUser, "hi")))
	require.NoError(t, s.Append(ctx, "sess-1", textMessage(model.ConversationRoleAssistant, "hello")))

	msgs, err := s.Read(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.ConversationRoleUser, msgs[0].Role)
	assert.Equal(t, model.ConversationRoleAssistant, msgs[1].Role)
}

func TestMemoryStoreCount(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, "sess-1", textMessage(model.ConversationRoleUser, "hi")))

	n, err := s.Count(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Count(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemoryStoreClearRemovesMessagesAndMetadata(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, "sess-1", textMessage(model.ConversationRoleUser, "hi")))
	require.NoError(t, s.UpsertMetadata(ctx, Metadata{Key: "sess-1", Label: "demo"}))

	require.NoError(t, s.Clear(ctx, "sess-1"))

	n, err := s.Count(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, ok, err := s.LoadMetadata(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreReplaceHistoryDiscardsPriorMessages(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, "sess-1", textMessage(model.ConversationRoleUser, "a")))
	require.NoError(t, s.Append(ctx, "sess-1", textMessage(model.ConversationRoleUser, "b")))

	replacement := []*model.Message{textMessage(model.ConversationRoleUser, "summary")}
	require.NoError(t, s.ReplaceHistory(ctx, "sess-1", replacement))

	msgs, err := s.Read(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "summary", msgs[0].Parts[0].(model.TextPart).Text)
}

func TestMemoryStoreReadReturnsIndependentCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, "sess-1", textMessage(model.ConversationRoleUser, "hi")))

	first, err := s.Read(ctx, "sess-1")
	require.NoError(t, err)
	first[0] = textMessage(model.ConversationRoleUser, "mutated")

	second, err := s.Read(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "hi", second[0].Parts[0].(model.TextPart).Text)
}

func TestMemoryStoreUpsertAndLoadMetadata(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.UpsertMetadata(ctx, Metadata{Key: "sess-1", Label: "demo", Model: "gpt"}))

	meta, ok, err := s.LoadMetadata(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "demo", meta.Label)
	assert.Equal(t, "gpt", meta.Model)
}
