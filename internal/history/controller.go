// ABOUTME: History view controller for listing, selecting, and mutating conversations
// ABOUTME: Coordinates the registry, feedback pipeline, and render sink

package history

import (
	"context"
	"log/slog"

	"github.com/2389/parley/internal/feedback"
	"github.com/2389/parley/internal/registry"
	"github.com/2389/parley/internal/render"
)

// Controller drives the conversation list and the switch/rename/delete
// actions, delegating all state mutations to the registry.
type Controller struct {
	reg      *registry.Registry
	pipeline *feedback.Pipeline
	sink     render.Sink
	logger   *slog.Logger
}

// New creates a history controller.
func New(reg *registry.Registry, pipeline *feedback.Pipeline, sink render.Sink, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		reg:      reg,
		pipeline: pipeline,
		sink:     sink,
		logger:   logger.With("component", "history"),
	}
}

// Init brings the view up at startup: an empty registry gets its first
// conversation (no feedback fires, there is no previous conversation);
// otherwise the newest stored conversation becomes active.
func (c *Controller) Init(ctx context.Context) error {
	if c.reg.Len() == 0 {
		if _, err := c.reg.Create(ctx); err != nil {
			return err
		}
	} else {
		ids := c.reg.IDs()
		if _, err := c.reg.Activate(ids[len(ids)-1]); err != nil {
			return err
		}
	}
	c.renderActive()
	c.sink.History(c.Entries())
	return nil
}

// NewConversation fires the feedback pipeline for the conversation being
// switched away from, then creates and activates a fresh one. The pipeline
// snapshots the previous transcript before the switch happens.
func (c *Controller) NewConversation(ctx context.Context) (string, error) {
	prev := c.reg.ActiveID()
	c.pipeline.OnSwitch(prev)

	id, err := c.reg.Create(ctx)
	if err != nil {
		return "", err
	}
	c.sink.History(c.Entries())
	c.renderActive()
	return id, nil
}

// Entries lists the conversations in registry order.
func (c *Controller) Entries() []render.HistoryEntry {
	active := c.reg.ActiveID()
	ids := c.reg.IDs()
	entries := make([]render.HistoryEntry, 0, len(ids))
	for _, id := range ids {
		conv, ok := c.reg.Get(id)
		if !ok {
			continue
		}
		entries = append(entries, render.HistoryEntry{
			ID:            id,
			Title:         c.reg.Title(id),
			FeedbackGiven: conv.FeedbackGiven,
			Active:        id == active,
		})
	}
	return entries
}

// Select activates the conversation and renders it.
func (c *Controller) Select(id string) error {
	if _, err := c.reg.Activate(id); err != nil {
		return err
	}
	c.renderActive()
	return nil
}

// Rename delegates to the registry (whitespace titles are a no-op there)
// and refreshes the history list.
func (c *Controller) Rename(ctx context.Context, id, title string) error {
	if err := c.reg.Rename(ctx, id, title); err != nil {
		return err
	}
	c.sink.History(c.Entries())
	return nil
}

// Delete removes the conversation, refreshes the history list, and renders
// whatever became active, or clears the chat view when nothing remains.
func (c *Controller) Delete(ctx context.Context, id string) error {
	newActive, err := c.reg.Delete(ctx, id)
	if err != nil {
		return err
	}
	c.sink.History(c.Entries())
	if newActive == "" {
		c.sink.Clear()
	} else {
		c.renderActive()
	}
	return nil
}

func (c *Controller) renderActive() {
	id := c.reg.ActiveID()
	if id == "" {
		c.sink.Clear()
		return
	}
	transcript, err := c.reg.Transcript(id)
	if err != nil {
		c.logger.Error("rendering active conversation failed", "conversation_id", id, "error", err)
		return
	}
	c.sink.Conversation(id, c.reg.Title(id), transcript)
}
