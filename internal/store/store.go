// ABOUTME: Store interface and data types for parley persistence
// ABOUTME: Defines Message, Reference and the contract for the two durable state maps

package store

import (
	"context"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Reference is a citation attached to an assistant reply.
type Reference struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Message is a single conversation turn. Messages are immutable once
// appended; ordering within a conversation is insertion order and defines
// the transcript sent to the remote service.
type Message struct {
	ID         string      `json:"id"`
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	References []Reference `json:"references,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Store persists the two conversation state maps under fixed keys.
// An absent key reads back as an empty map.
type Store interface {
	// LoadChats returns the conversation-id -> message list map ("chats").
	LoadChats(ctx context.Context) (map[string][]Message, error)
	// SaveChats replaces the stored "chats" map.
	SaveChats(ctx context.Context, chats map[string][]Message) error

	// LoadTitles returns the conversation-id -> display title map ("chatTitles").
	LoadTitles(ctx context.Context) (map[string]string, error)
	// SaveTitles replaces the stored "chatTitles" map.
	SaveTitles(ctx context.Context, titles map[string]string) error

	// Close releases any resources held by the store
	Close() error
}
