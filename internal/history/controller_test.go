// ABOUTME: Tests for the history view controller
// ABOUTME: Covers startup initialization, switch-triggered feedback, and delete flows

package history

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/parley/internal/api"
	"github.com/2389/parley/internal/feedback"
	"github.com/2389/parley/internal/registry"
	"github.com/2389/parley/internal/render"
	"github.com/2389/parley/internal/store"
)

// recordingSink implements render.Sink
type recordingSink struct {
	mu            sync.Mutex
	conversations []string // ids passed to Conversation
	lastMessages  []store.Message
	histories     int
	cleared       int
}

func (s *recordingSink) Conversation(id, title string, messages []store.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = append(s.conversations, id)
	s.lastMessages = messages
}

func (s *recordingSink) History(entries []render.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories++
}

func (s *recordingSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
}

// mockSubmitter implements feedback.Submitter
type mockSubmitter struct {
	mu    sync.Mutex
	title string
	reqs  []api.FeedbackRequest
}

func (m *mockSubmitter) Feedback(_ context.Context, req api.FeedbackRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	return m.title, nil
}

func (m *mockSubmitter) requests() []api.FeedbackRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]api.FeedbackRequest, len(m.reqs))
	copy(out, m.reqs)
	return out
}

type fixture struct {
	reg      *registry.Registry
	sub      *mockSubmitter
	pipeline *feedback.Pipeline
	sink     *recordingSink
	ctrl     *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg, err := registry.New(context.Background(), st, nil)
	require.NoError(t, err)

	sub := &mockSubmitter{title: "Suggested"}
	pipeline := feedback.New(reg, sub, feedback.Meta{Strategy: "cot", PromptVersion: "v1", ModelName: "gpt-4o-mini-voc2"}, nil)
	sink := &recordingSink{}
	return &fixture{
		reg:      reg,
		sub:      sub,
		pipeline: pipeline,
		sink:     sink,
		ctrl:     New(reg, pipeline, sink, nil),
	}
}

func TestInit_EmptyStoreSeedsFirstConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Init(ctx))
	f.pipeline.Wait()

	// Exactly one conversation with the seed greeting, no feedback fired
	require.Equal(t, 1, f.reg.Len())
	id := f.reg.ActiveID()
	require.NotEmpty(t, id)
	conv, ok := f.reg.Get(id)
	require.True(t, ok)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, store.RoleAssistant, conv.Messages[0].Role)
	assert.Equal(t, registry.Greeting, conv.Messages[0].Content)
	assert.False(t, conv.FeedbackGiven)
	assert.Empty(t, f.sub.requests())
}

func TestInit_ActivatesNewestStoredConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reg.Create(ctx)
	require.NoError(t, err)
	second, err := f.reg.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, f.ctrl.Init(ctx))
	assert.Equal(t, second, f.reg.ActiveID())
	assert.Equal(t, 2, f.reg.Len())
}

func TestNewConversation_FiresFeedbackForPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A: a conversation with real content; B: untouched bystander
	a, err := f.reg.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, f.reg.Append(ctx, a, store.Message{Role: store.RoleUser, Content: "question A"}))
	b, err := f.reg.Create(ctx)
	require.NoError(t, err)

	_, err = f.reg.Activate(a)
	require.NoError(t, err)

	cID, err := f.ctrl.NewConversation(ctx)
	require.NoError(t, err)
	f.pipeline.Wait()

	// Feedback submitted for A with A's exact transcript
	reqs := f.sub.requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Messages, 2)
	assert.Equal(t, "question A", reqs[0].Messages[1].Content)

	convA, _ := f.reg.Get(a)
	assert.True(t, convA.FeedbackGiven)
	assert.Equal(t, "Suggested", f.reg.Title(a))

	// C is active, B untouched
	assert.Equal(t, cID, f.reg.ActiveID())
	convB, _ := f.reg.Get(b)
	assert.False(t, convB.FeedbackGiven)
	require.Len(t, convB.Messages, 1)
}

func TestNewConversation_SkipsFeedbackForSeedOnlyPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.ctrl.Init(ctx))
	_, err := f.ctrl.NewConversation(ctx)
	require.NoError(t, err)
	f.pipeline.Wait()

	assert.Empty(t, f.sub.requests())
	assert.Equal(t, 2, f.reg.Len())
}

func TestEntries_ReflectFeedbackStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.reg.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, f.reg.MarkFeedbackGiven(ctx, a, "Reviewed chat"))
	b, err := f.reg.Create(ctx)
	require.NoError(t, err)

	entries := f.ctrl.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, a, entries[0].ID)
	assert.True(t, entries[0].FeedbackGiven)
	assert.Equal(t, "Reviewed chat", entries[0].Title)
	assert.False(t, entries[0].Active)
	assert.Equal(t, b, entries[1].ID)
	assert.False(t, entries[1].FeedbackGiven)
	assert.True(t, entries[1].Active)
}

func TestSelect_RendersConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.reg.Create(ctx)
	require.NoError(t, err)
	_, err = f.reg.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, f.ctrl.Select(a))
	assert.Equal(t, a, f.reg.ActiveID())
	require.NotEmpty(t, f.sink.conversations)
	assert.Equal(t, a, f.sink.conversations[len(f.sink.conversations)-1])
}

func TestSelect_NotFound(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.ctrl.Select("missing"), registry.ErrNotFound)
}

func TestDelete_LastConversationClearsView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.reg.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, f.ctrl.Delete(ctx, id))
	assert.Empty(t, f.reg.ActiveID())
	assert.Equal(t, 1, f.sink.cleared)
}

func TestDelete_ReElectsAndRenders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.reg.Create(ctx)
	require.NoError(t, err)
	second, err := f.reg.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, f.ctrl.Delete(ctx, second))
	assert.Equal(t, first, f.reg.ActiveID())
	assert.Zero(t, f.sink.cleared)
	require.NotEmpty(t, f.sink.conversations)
	assert.Equal(t, first, f.sink.conversations[len(f.sink.conversations)-1])
}

func TestRename_RefreshesHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.reg.Create(ctx)
	require.NoError(t, err)

	before := f.sink.histories
	require.NoError(t, f.ctrl.Rename(ctx, id, "Better title"))
	assert.Equal(t, "Better title", f.reg.Title(id))
	assert.Greater(t, f.sink.histories, before)
}
