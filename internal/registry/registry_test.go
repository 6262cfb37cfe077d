// ABOUTME: Tests for the conversation registry
// ABOUTME: Verifies creation, activation, deletion re-election, and persistence mirroring

package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/parley/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, *store.SQLiteStore) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg, err := New(context.Background(), st, nil)
	require.NoError(t, err)
	return reg, st
}

func TestCreate_SeedsGreeting(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	conv, ok := reg.Get(id)
	require.True(t, ok)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, store.RoleAssistant, conv.Messages[0].Role)
	assert.Equal(t, Greeting, conv.Messages[0].Content)
	assert.False(t, conv.FeedbackGiven)
	assert.Equal(t, id, reg.ActiveID())
}

func TestCreate_IDsAreUnique(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		id, err := reg.Create(ctx)
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Equal(t, 20, reg.Len())
}

func TestActivate_ReturnsTranscriptCopy(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Create(ctx)
	require.NoError(t, err)

	transcript, err := reg.Activate(id)
	require.NoError(t, err)
	require.Len(t, transcript, 1)

	// Mutating the returned slice must not touch registry state
	transcript[0].Content = "tampered"
	conv, _ := reg.Get(id)
	assert.Equal(t, Greeting, conv.Messages[0].Content)
}

func TestActivate_NotFound(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Activate("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppend_PersistsSynchronously(t *testing.T) {
	reg, st := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Create(ctx)
	require.NoError(t, err)

	err = reg.Append(ctx, id, store.Message{Role: store.RoleUser, Content: "hello"})
	require.NoError(t, err)

	// Read the store directly: the append must already be durable
	chats, err := st.LoadChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats[id], 2)
	assert.Equal(t, "hello", chats[id][1].Content)
	assert.NotEmpty(t, chats[id][1].ID)
	assert.False(t, chats[id][1].CreatedAt.IsZero())
}

func TestAppend_NotFound(t *testing.T) {
	reg, _ := newTestRegistry(t)

	err := reg.Append(context.Background(), "missing", store.Message{Role: store.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRename_WhitespaceIsNoOp(t *testing.T) {
	reg, st := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Create(ctx)
	require.NoError(t, err)
	before := reg.Title(id)

	require.NoError(t, reg.Rename(ctx, id, ""))
	require.NoError(t, reg.Rename(ctx, id, "   "))
	assert.Equal(t, before, reg.Title(id))

	titles, err := st.LoadTitles(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, titles[id])
}

func TestRename_OverwritesAndPersists(t *testing.T) {
	reg, st := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, reg.Rename(ctx, id, "  Kubernetes help  "))
	assert.Equal(t, "Kubernetes help", reg.Title(id))

	titles, err := st.LoadTitles(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Kubernetes help", titles[id])
}

func TestDelete_ReElectsActive(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	first, err := reg.Create(ctx)
	require.NoError(t, err)
	second, err := reg.Create(ctx)
	require.NoError(t, err)
	require.Equal(t, second, reg.ActiveID())

	newActive, err := reg.Delete(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, first, newActive)
	assert.Equal(t, first, reg.ActiveID())

	// The active pointer must reference an existing conversation
	_, ok := reg.Get(reg.ActiveID())
	assert.True(t, ok)
}

func TestDelete_InactiveLeavesActiveAlone(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	first, err := reg.Create(ctx)
	require.NoError(t, err)
	second, err := reg.Create(ctx)
	require.NoError(t, err)

	newActive, err := reg.Delete(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, second, newActive)
	assert.Equal(t, second, reg.ActiveID())
}

func TestDelete_LastConversationClearsActive(t *testing.T) {
	reg, st := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Create(ctx)
	require.NoError(t, err)

	newActive, err := reg.Delete(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, newActive)
	assert.Empty(t, reg.ActiveID())
	assert.Equal(t, 0, reg.Len())

	chats, err := st.LoadChats(ctx)
	require.NoError(t, err)
	assert.Empty(t, chats)
	titles, err := st.LoadTitles(ctx)
	require.NoError(t, err)
	assert.Empty(t, titles)
}

func TestDelete_NotFound(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkFeedbackGiven_Idempotent(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, reg.MarkFeedbackGiven(ctx, id, "Suggested title"))
	conv, _ := reg.Get(id)
	assert.True(t, conv.FeedbackGiven)
	assert.Equal(t, "Suggested title", reg.Title(id))

	// Second call is a no-op, including the title
	require.NoError(t, reg.MarkFeedbackGiven(ctx, id, "Another title"))
	conv, _ = reg.Get(id)
	assert.True(t, conv.FeedbackGiven)
	assert.Equal(t, "Suggested title", reg.Title(id))
}

func TestMarkFeedbackGiven_EmptyTitleKeepsCurrent(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Create(ctx)
	require.NoError(t, err)
	before := reg.Title(id)

	require.NoError(t, reg.MarkFeedbackGiven(ctx, id, ""))
	conv, _ := reg.Get(id)
	assert.True(t, conv.FeedbackGiven)
	assert.Equal(t, before, reg.Title(id))
}

func TestMarkFeedbackGiven_DeletedConversation(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Create(ctx)
	require.NoError(t, err)
	_, err = reg.Delete(ctx, id)
	require.NoError(t, err)

	err = reg.MarkFeedbackGiven(ctx, id, "late title")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNew_LoadsFromStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)

	reg, err := New(ctx, st, nil)
	require.NoError(t, err)
	first, err := reg.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, reg.Append(ctx, first, store.Message{Role: store.RoleUser, Content: "remember me"}))
	require.NoError(t, reg.Rename(ctx, first, "Persistent chat"))
	require.NoError(t, st.Close())

	// Reopen: a fresh registry over the same database sees the same state
	st2, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer st2.Close()

	reloaded, err := New(ctx, st2, nil)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.Len())

	conv, ok := reloaded.Get(first)
	require.True(t, ok)
	assert.Len(t, conv.Messages, 2)
	assert.Equal(t, "remember me", conv.Messages[1].Content)
	assert.Equal(t, "Persistent chat", reloaded.Title(first))
	// The feedback flag is per-session state and starts clear after reload
	assert.False(t, conv.FeedbackGiven)
	// No active conversation until the controller initializes one
	assert.Empty(t, reloaded.ActiveID())
}

func TestIDs_RegistryOrder(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	var created []string
	for i := 0; i < 5; i++ {
		id, err := reg.Create(ctx)
		require.NoError(t, err)
		created = append(created, id)
	}
	assert.Equal(t, created, reg.IDs())
}

func TestDefaultTitle(t *testing.T) {
	assert.Contains(t, DefaultTitle("1700000000000"), "Chat ")
	assert.Equal(t, "Chat weird-id", DefaultTitle("weird-id"))
}
