// ABOUTME: ANSI terminal implementation of the render sink and status surface
// ABOUTME: Role-colored transcript, history list with feedback markers, red alerts

package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/2389/parley/internal/store"
)

// Terminal renders conversations and history to an ANSI terminal.
// It implements both Sink and Status. Set color.NoColor to disable colors.
type Terminal struct {
	out io.Writer

	title     *color.Color
	user      *color.Color
	assistant *color.Color
	ref       *color.Color
	alert     *color.Color
	dim       *color.Color
}

// NewTerminal creates a terminal renderer writing to out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{
		out:       out,
		title:     color.New(color.FgCyan, color.Bold),
		user:      color.New(color.FgBlue, color.Bold),
		assistant: color.New(color.FgGreen, color.Bold),
		ref:       color.New(color.FgHiBlack),
		alert:     color.New(color.FgRed, color.Bold),
		dim:       color.New(color.FgHiBlack),
	}
}

// Conversation prints the transcript with role labels and reference footnotes.
func (t *Terminal) Conversation(id, title string, messages []store.Message) {
	fmt.Fprintln(t.out)
	t.title.Fprintf(t.out, "── %s ──\n", title)
	for _, msg := range messages {
		switch msg.Role {
		case store.RoleUser:
			t.user.Fprint(t.out, "you> ")
		case store.RoleAssistant:
			t.assistant.Fprint(t.out, "assistant> ")
		default:
			fmt.Fprintf(t.out, "%s> ", msg.Role)
		}
		fmt.Fprintln(t.out, msg.Content)
		for i, ref := range msg.References {
			t.ref.Fprintf(t.out, "    [%d] %s (%s)\n", i+1, ref.ID, ref.URL)
		}
	}
}

// History prints one line per conversation with a feedback marker.
func (t *Terminal) History(entries []HistoryEntry) {
	fmt.Fprintln(t.out)
	t.title.Fprintln(t.out, "Conversations:")
	for i, e := range entries {
		marker := "·"
		if e.FeedbackGiven {
			marker = "✓"
		}
		line := fmt.Sprintf("  %d. %s %s", i+1, marker, e.Title)
		if e.Active {
			line += "  (active)"
		}
		fmt.Fprintln(t.out, line)
	}
	if len(entries) == 0 {
		t.dim.Fprintln(t.out, "  (none)")
	}
}

// Clear empties the chat view.
func (t *Terminal) Clear() {
	fmt.Fprintln(t.out)
	t.dim.Fprintln(t.out, "(no conversation)")
}

// Loading shows or hides the waiting indicator. The terminal cannot retract
// printed output, so hiding erases the indicator line in place.
func (t *Terminal) Loading(visible bool) {
	if visible {
		t.dim.Fprint(t.out, "assistant is thinking…")
		return
	}
	fmt.Fprint(t.out, "\r\x1b[2K")
}

// Alert prints a user-visible error notification.
func (t *Terminal) Alert(message string) {
	t.alert.Fprintf(t.out, "Error: %s\n", message)
}
