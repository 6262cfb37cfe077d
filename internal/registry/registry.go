// ABOUTME: In-memory conversation registry mirroring the persistent store
// ABOUTME: Owns conversation ordering, titles, and the active conversation pointer

package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/parley/internal/store"
)

// ErrNotFound is returned when an operation targets an unknown conversation id
var ErrNotFound = errors.New("conversation not found")

// Greeting seeds every newly created conversation.
const Greeting = "Hello! How can I help you today?"

// Conversation is one chat thread: an opaque id, ordered messages, and the
// feedback flag. FeedbackGiven transitions false->true at most once, only
// via a successful feedback submission, and never resets.
type Conversation struct {
	ID            string
	Messages      []store.Message
	FeedbackGiven bool
}

// Registry holds all conversations and the active conversation pointer.
// It mirrors the persistent store: every mutating operation flushes to the
// store before returning. The mutex serializes feedback completion
// callbacks (which arrive from a goroutine) against foreground mutations.
type Registry struct {
	mu     sync.Mutex
	store  store.Store
	logger *slog.Logger

	conversations map[string]*Conversation
	titles        map[string]string
	order         []string // insertion order, oldest first
	activeID      string
}

// New constructs a registry from the persistent store. Loaded conversations
// are ordered chronologically (ids are creation timestamps) and start with
// FeedbackGiven=false; the active pointer is unset until the caller
// activates or creates a conversation.
func New(ctx context.Context, st store.Store, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	chats, err := st.LoadChats(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading chats: %w", err)
	}
	titles, err := st.LoadTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading titles: %w", err)
	}

	r := &Registry{
		store:         st,
		logger:        logger.With("component", "registry"),
		conversations: make(map[string]*Conversation, len(chats)),
		titles:        titles,
		order:         make([]string, 0, len(chats)),
	}
	for id, msgs := range chats {
		r.conversations[id] = &Conversation{ID: id, Messages: msgs}
		r.order = append(r.order, id)
	}
	sortIDs(r.order)

	r.logger.Debug("registry loaded", "conversations", len(r.order))
	return r, nil
}

// Create generates a fresh conversation seeded with the assistant greeting,
// inserts a default title, persists, sets it active, and returns the new id.
func (r *Registry) Create(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newIDLocked()
	conv := &Conversation{
		ID: id,
		Messages: []store.Message{{
			ID:        uuid.NewString(),
			Role:      store.RoleAssistant,
			Content:   Greeting,
			CreatedAt: time.Now().UTC(),
		}},
	}

	r.conversations[id] = conv
	r.order = append(r.order, id)
	r.titles[id] = DefaultTitle(id)

	if err := r.persistLocked(ctx, true, true); err != nil {
		delete(r.conversations, id)
		delete(r.titles, id)
		r.order = r.order[:len(r.order)-1]
		return "", err
	}

	r.activeID = id
	r.logger.Debug("conversation created", "conversation_id", id)
	return id, nil
}

// Activate sets the active pointer and returns a copy of the conversation's
// message list as the basis for the remote-call transcript.
func (r *Registry) Activate(id string) ([]store.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.activeID = id
	return copyMessages(conv.Messages), nil
}

// Append adds a message to the conversation and persists synchronously.
// A missing id or zero CreatedAt is filled in at append time.
func (r *Registry) Append(ctx context.Context, id string, msg store.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return ErrNotFound
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	conv.Messages = append(conv.Messages, msg)
	if err := r.persistLocked(ctx, true, false); err != nil {
		conv.Messages = conv.Messages[:len(conv.Messages)-1]
		return err
	}
	return nil
}

// Rename overwrites the conversation's title. A title that trims to empty
// is a silent no-op.
func (r *Registry) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[id]; !ok {
		return ErrNotFound
	}

	old, hadOld := r.titles[id]
	r.titles[id] = title
	if err := r.persistLocked(ctx, false, true); err != nil {
		if hadOld {
			r.titles[id] = old
		} else {
			delete(r.titles, id)
		}
		return err
	}
	return nil
}

// Delete removes the conversation and its title. If it was active, the
// first remaining conversation in registry order becomes active (or none).
// Returns the newly active id, which is empty when no conversations remain.
func (r *Registry) Delete(ctx context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return "", ErrNotFound
	}
	title, hadTitle := r.titles[id]
	idx := indexOf(r.order, id)

	delete(r.conversations, id)
	delete(r.titles, id)
	r.order = append(r.order[:idx], r.order[idx+1:]...)

	prevActive := r.activeID
	if r.activeID == id {
		if len(r.order) > 0 {
			r.activeID = r.order[0]
		} else {
			r.activeID = ""
		}
	}

	if err := r.persistLocked(ctx, true, true); err != nil {
		r.conversations[id] = conv
		if hadTitle {
			r.titles[id] = title
		}
		r.order = append(r.order[:idx], append([]string{id}, r.order[idx:]...)...)
		r.activeID = prevActive
		return "", err
	}

	r.logger.Debug("conversation deleted", "conversation_id", id, "active_id", r.activeID)
	return r.activeID, nil
}

// MarkFeedbackGiven sets the feedback flag, optionally applying a suggested
// title. Calling it twice is safe: the second call is a no-op. An empty
// title leaves the stored title alone.
func (r *Registry) MarkFeedbackGiven(ctx context.Context, id, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return ErrNotFound
	}
	if conv.FeedbackGiven {
		return nil
	}

	conv.FeedbackGiven = true

	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	old, hadOld := r.titles[id]
	r.titles[id] = title
	if err := r.persistLocked(ctx, false, true); err != nil {
		// Keep the flag: the remote submission already succeeded, only the
		// title write failed.
		if hadOld {
			r.titles[id] = old
		} else {
			delete(r.titles, id)
		}
		return err
	}
	return nil
}

// ActiveID returns the active conversation id, or "" when none is active.
func (r *Registry) ActiveID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeID
}

// IDs returns all conversation ids in registry order (oldest first).
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of conversations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Get returns a snapshot of the conversation: the message slice is copied,
// so later appends cannot mutate a transcript already handed out.
func (r *Registry) Get(id string) (Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return Conversation{}, false
	}
	return Conversation{
		ID:            conv.ID,
		Messages:      copyMessages(conv.Messages),
		FeedbackGiven: conv.FeedbackGiven,
	}, true
}

// Transcript returns a copy of the conversation's ordered message list.
func (r *Registry) Transcript(id string) ([]store.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMessages(conv.Messages), nil
}

// Title returns the display title for id, falling back to the
// timestamp-derived default when no title is stored.
func (r *Registry) Title(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if title, ok := r.titles[id]; ok && title != "" {
		return title
	}
	return DefaultTitle(id)
}

// DefaultTitle derives a display label from a timestamp-based id.
func DefaultTitle(id string) string {
	ms, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return "Chat " + id
	}
	return "Chat " + time.UnixMilli(ms).Format("15:04:05")
}

// newIDLocked generates a millisecond-timestamp id, bumping on collision so
// two creates in the same millisecond still get distinct ids.
func (r *Registry) newIDLocked() string {
	ms := time.Now().UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		if _, exists := r.conversations[id]; !exists {
			return id
		}
		ms++
	}
}

// persistLocked flushes the selected maps to the store. Callers hold r.mu.
func (r *Registry) persistLocked(ctx context.Context, chats, titles bool) error {
	if chats {
		m := make(map[string][]store.Message, len(r.conversations))
		for id, conv := range r.conversations {
			m[id] = conv.Messages
		}
		if err := r.store.SaveChats(ctx, m); err != nil {
			return fmt.Errorf("persisting chats: %w", err)
		}
	}
	if titles {
		if err := r.store.SaveTitles(ctx, r.titles); err != nil {
			return fmt.Errorf("persisting titles: %w", err)
		}
	}
	return nil
}

func copyMessages(msgs []store.Message) []store.Message {
	out := make([]store.Message, len(msgs))
	copy(out, msgs)
	return out
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// sortIDs orders timestamp ids chronologically. Plain string comparison is
// wrong once id lengths differ, so shorter (older epoch) ids sort first.
func sortIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return idLess(ids[i], ids[j]) })
}

func idLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
