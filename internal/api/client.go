// ABOUTME: HTTP client for the remote reply and feedback endpoints
// ABOUTME: Applies documented defaults to optional response fields

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/2389/parley/internal/store"
)

// FallbackReply substitutes for a response that omits the reply string.
const FallbackReply = "Sorry, I didn't understand that."

// RemoteCallError wraps a failure talking to a remote endpoint: transport
// errors, non-2xx statuses, and malformed payloads. Status is 0 for
// transport-level failures.
type RemoteCallError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// Reply is the decoded reply-endpoint response with defaults applied.
type Reply struct {
	Text       string
	References []store.Reference
}

// FeedbackRequest is the payload for the feedback endpoint.
type FeedbackRequest struct {
	Messages      []store.Message
	Strategy      string
	PromptVersion string
	ModelName     string
	Feedback      string
}

// Client talks to the remote chat service. It deliberately carries no
// request timeout: both endpoints are fire-once, await-completion calls and
// callers must not assume a deadline.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger.With("component", "api"),
	}
}

// outboundMessage is the trimmed wire form of a message: references and
// local bookkeeping fields are excluded from outbound transcripts.
type outboundMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []outboundMessage `json:"messages"`
}

type chatResponse struct {
	Reply      string            `json:"reply"`
	References []store.Reference `json:"references"`
}

// Chat sends the ordered transcript to POST /api/chat and returns the
// decoded reply. A missing reply string becomes FallbackReply; missing
// references become an empty slice.
func (c *Client) Chat(ctx context.Context, messages []store.Message) (*Reply, error) {
	req := chatRequest{Messages: make([]outboundMessage, 0, len(messages))}
	for _, m := range messages {
		req.Messages = append(req.Messages, outboundMessage{Role: m.Role, Content: m.Content})
	}

	var resp chatResponse
	if err := c.post(ctx, "/api/chat", req, &resp); err != nil {
		return nil, err
	}

	reply := &Reply{Text: resp.Reply, References: resp.References}
	if reply.Text == "" {
		reply.Text = FallbackReply
	}
	if reply.References == nil {
		reply.References = []store.Reference{}
	}
	return reply, nil
}

type feedbackRequest struct {
	Messages      []outboundMessage `json:"messages"`
	Strategy      string            `json:"strategy"`
	PromptVersion string            `json:"prompt_version"`
	ModelName     string            `json:"model_name"`
	Feedback      string            `json:"feedback"`
}

type feedbackResponse struct {
	Title string `json:"title"`
}

// Feedback submits a transcript plus metadata to POST /api/feedback and
// returns the suggested title, which may be empty.
func (c *Client) Feedback(ctx context.Context, req FeedbackRequest) (string, error) {
	body := feedbackRequest{
		Messages:      make([]outboundMessage, 0, len(req.Messages)),
		Strategy:      req.Strategy,
		PromptVersion: req.PromptVersion,
		ModelName:     req.ModelName,
		Feedback:      req.Feedback,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, outboundMessage{Role: m.Role, Content: m.Content})
	}

	var resp feedbackResponse
	if err := c.post(ctx, "/api/feedback", body, &resp); err != nil {
		return "", err
	}
	return resp.Title, nil
}

// post sends a JSON request and decodes a JSON response. All failure modes
// are reported as *RemoteCallError so call sites can handle them uniformly.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteCallError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteCallError{
			Endpoint: path,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("server returned status %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteCallError{Endpoint: path, Err: fmt.Errorf("parsing response: %w", err)}
	}
	return nil
}
