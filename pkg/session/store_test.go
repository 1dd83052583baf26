package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-dev/codeagent/pkg/message"
)

func TestStoreCreateSaveGetRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	sess, err := store.Create("/tmp/proj")
	require.NoError(t, err)

	err = store.AddUserMessage(context.Background(), sess, "help me fix the parser")
	require.NoError(t, err)

	loaded, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Len(t, loaded.Messages, 1)
	assert.True(t, loaded.TitleAutoset)
	assert.NotEqual(t, defaultTitle, loaded.Title)
}

func TestStoreGetMissingReturnsErrNotFound(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = store.Get("does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreListOrdersByMostRecentlyUpdated(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	first, err := store.Create("/tmp/a")
	require.NoError(t, err)
	second, err := store.Create("/tmp/b")
	require.NoError(t, err)

	require.NoError(t, store.AddMessage(first, message.Message{Role: message.RoleUser, Content: "later edit"}))

	sessions, err := store.List()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first.ID, sessions[0].ID)
	assert.Equal(t, second.ID, sessions[1].ID)
}

func TestStoreSearchFindsSubstringInMessages(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	sess, err := store.Create("/tmp/a")
	require.NoError(t, err)
	require.NoError(t, store.AddMessage(sess, message.Message{Role: message.RoleUser, Content: "how do I configure the snapshot store"}))

	matches, err := store.Search("snapshot")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, sess.ID, matches[0].Session.ID)
}

func TestStoreDelete(t *testing.T) {
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)

	sess, err := store.Create("/tmp/a")
	require.NoError(t, err)
	require.NoError(t, store.Delete(sess.ID))

	_, err = store.Get(sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
