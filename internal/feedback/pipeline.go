// ABOUTME: Feedback pipeline submitting finished transcripts for titling and review
// ABOUTME: Fire-and-forget with guarded at-most-once submission per conversation

package feedback

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/2389/parley/internal/api"
	"github.com/2389/parley/internal/registry"
	"github.com/2389/parley/internal/store"
)

// Sentiment values accepted by the feedback endpoint.
const (
	SentimentThumbsUp   = "thumbs_up"
	SentimentThumbsDown = "thumbs_down"
)

// Submitter is what the pipeline needs from the remote service client.
type Submitter interface {
	Feedback(ctx context.Context, req api.FeedbackRequest) (string, error)
}

// Meta carries the fixed metadata tags attached to every submission.
type Meta struct {
	Strategy      string
	PromptVersion string
	ModelName     string
}

// Pipeline submits conversation transcripts to the feedback endpoint.
// Submissions run on background goroutines and never block or fail the
// conversation flow that triggered them: failures are logged, not surfaced.
type Pipeline struct {
	reg    *registry.Registry
	client Submitter
	meta   Meta
	logger *slog.Logger
	wg     sync.WaitGroup
}

// New creates a feedback pipeline.
func New(reg *registry.Registry, client Submitter, meta Meta, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		reg:    reg,
		client: client,
		meta:   meta,
		logger: logger.With("component", "feedback"),
	}
}

// OnSwitch fires the automatic submission for the conversation being
// switched away from. Guards: the conversation exists, has at least two
// messages, and has not been submitted before; any guard failure skips
// silently. The transcript snapshot is taken before this method returns,
// so nothing appended to the replacement conversation can leak into the
// payload.
func (p *Pipeline) OnSwitch(prevID string) {
	if prevID == "" {
		return
	}
	conv, ok := p.reg.Get(prevID)
	if !ok || conv.FeedbackGiven || len(conv.Messages) < 2 {
		p.logger.Debug("skipping automatic feedback",
			"conversation_id", prevID,
			"exists", ok,
			"messages", len(conv.Messages),
			"feedback_given", conv.FeedbackGiven)
		return
	}
	p.submit(prevID, conv.Messages, SentimentThumbsUp)
}

// Send fires the manual submission for the currently active conversation
// with the caller-supplied sentiment. No-op when nothing is active or the
// conversation's feedback was already recorded.
func (p *Pipeline) Send(sentiment string) {
	id := p.reg.ActiveID()
	if id == "" {
		return
	}
	conv, ok := p.reg.Get(id)
	if !ok || conv.FeedbackGiven {
		return
	}
	p.submit(id, conv.Messages, sentiment)
}

// submit spawns the background submission. transcript is already a snapshot
// (registry.Get copies the message slice).
func (p *Pipeline) submit(id string, transcript []store.Message, sentiment string) {
	req := api.FeedbackRequest{
		Messages:      transcript,
		Strategy:      p.meta.Strategy,
		PromptVersion: p.meta.PromptVersion,
		ModelName:     p.meta.ModelName,
		Feedback:      sentiment,
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		// Detached context: the submission outlives the UI action that
		// triggered it and is never cancelled.
		ctx := context.Background()

		title, err := p.client.Feedback(ctx, req)
		if err != nil {
			p.logger.Error("feedback submission failed",
				"conversation_id", id,
				"error", err)
			return
		}

		if err := p.reg.MarkFeedbackGiven(ctx, id, title); err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				// Conversation deleted while the request was in flight
				p.logger.Debug("conversation gone before feedback completion",
					"conversation_id", id)
				return
			}
			p.logger.Error("recording feedback failed",
				"conversation_id", id,
				"error", err)
			return
		}

		p.logger.Debug("feedback recorded",
			"conversation_id", id,
			"sentiment", sentiment,
			"title", title)
	}()
}

// Wait blocks until all in-flight submissions complete. Called on shutdown
// so a pending request is not torn down mid-flight.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
