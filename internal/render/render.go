// ABOUTME: Render sink and status surface interfaces for the chat UI
// ABOUTME: The state machine talks to these; implementations live alongside

package render

import "github.com/2389/parley/internal/store"

// HistoryEntry is one row of the conversation history view.
type HistoryEntry struct {
	ID            string
	Title         string
	FeedbackGiven bool
	Active        bool
}

// Sink receives view updates. Implementations are side-effect-only; the
// state machine never reads back from a sink.
type Sink interface {
	// Conversation renders the full transcript of one conversation.
	Conversation(id, title string, messages []store.Message)
	// History renders the conversation list.
	History(entries []HistoryEntry)
	// Clear empties the chat view (no conversation remains).
	Clear()
}

// Status is the user-facing status surface for the message exchange.
type Status interface {
	// Loading toggles the "waiting for a reply" indicator.
	Loading(visible bool)
	// Alert surfaces a user-visible error notification.
	Alert(message string)
}
