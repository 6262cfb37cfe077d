// ABOUTME: Message exchange orchestration between the user, registry, and reply endpoint
// ABOUTME: Owns the loading indicator contract and the failure alert surface

package exchange

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/2389/parley/internal/api"
	"github.com/2389/parley/internal/registry"
	"github.com/2389/parley/internal/render"
	"github.com/2389/parley/internal/store"
)

// ReplyFetcher is what the exchange needs from the remote service client.
type ReplyFetcher interface {
	Chat(ctx context.Context, messages []store.Message) (*api.Reply, error)
}

// Exchange sends user messages through the registry to the reply endpoint.
type Exchange struct {
	reg    *registry.Registry
	client ReplyFetcher
	status render.Status
	sink   render.Sink
	logger *slog.Logger
}

// New creates a message exchange.
func New(reg *registry.Registry, client ReplyFetcher, status render.Status, sink render.Sink, logger *slog.Logger) *Exchange {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exchange{
		reg:    reg,
		client: client,
		status: status,
		sink:   sink,
		logger: logger.With("component", "exchange"),
	}
}

// Send appends the user message to the active conversation, fetches the
// assistant reply, and appends it. Empty input (after trimming) is a silent
// no-op: no append, no network call. A failed remote call surfaces as an
// alert; the already-appended user message stays.
//
// Key principle: record first, then act. The user message is persisted
// before the remote call, so a failure never loses what the user typed.
func (e *Exchange) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	id := e.reg.ActiveID()
	if id == "" {
		return nil
	}

	if err := e.reg.Append(ctx, id, store.Message{Role: store.RoleUser, Content: text}); err != nil {
		return err
	}
	e.renderIfActive(id)

	transcript, err := e.reg.Transcript(id)
	if err != nil {
		return err
	}

	// The indicator is visible for exactly the duration of the remote call,
	// on success and failure alike.
	reply, err := func() (*api.Reply, error) {
		e.status.Loading(true)
		defer e.status.Loading(false)
		return e.client.Chat(ctx, transcript)
	}()
	if err != nil {
		e.logger.Error("reply request failed", "conversation_id", id, "error", err)
		e.status.Alert(err.Error())
		return nil
	}

	assistantMsg := store.Message{
		Role:       store.RoleAssistant,
		Content:    reply.Text,
		References: reply.References,
	}
	if err := e.reg.Append(ctx, id, assistantMsg); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			// The conversation was deleted while the request was in flight
			e.logger.Debug("dropping reply for deleted conversation", "conversation_id", id)
			return nil
		}
		return err
	}
	e.renderIfActive(id)
	return nil
}

// renderIfActive re-renders the conversation when it is still the one on
// display.
func (e *Exchange) renderIfActive(id string) {
	if e.reg.ActiveID() != id {
		return
	}
	transcript, err := e.reg.Transcript(id)
	if err != nil {
		return
	}
	e.sink.Conversation(id, e.reg.Title(id), transcript)
}
