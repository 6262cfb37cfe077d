// ABOUTME: HTML transcript exporter backed by goldmark
// ABOUTME: Message content is authored as markdown, same as the web chat surfaces render it

package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"

	"github.com/2389/parley/internal/store"
)

var transcriptTmpl = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
.message { margin: 1rem 0; padding: 0.5rem 1rem; border-radius: 8px; }
.message.user { background: #e8f0fe; }
.message.assistant { background: #f1f3f4; }
.role { font-weight: bold; font-size: 0.8rem; text-transform: uppercase; color: #555; }
.references { font-size: 0.85rem; color: #555; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Messages}}<div class="message {{.Role}}">
<div class="role">{{.Role}}</div>
{{.Body}}
{{if .References}}<ol class="references">
{{range .References}}<li><a href="{{.URL}}">{{.ID}}</a></li>
{{end}}</ol>{{end}}
</div>
{{end}}</body>
</html>
`))

type transcriptMessage struct {
	Role       string
	Body       template.HTML
	References []store.Reference
}

type transcriptData struct {
	Title    string
	Messages []transcriptMessage
}

// HTMLWriter converts a conversation transcript into a standalone HTML
// document, rendering message content as markdown.
type HTMLWriter struct {
	md goldmark.Markdown
}

// NewHTMLWriter creates an HTML transcript writer.
func NewHTMLWriter() *HTMLWriter {
	return &HTMLWriter{md: goldmark.New()}
}

// Write renders the transcript to out.
func (w *HTMLWriter) Write(out io.Writer, title string, messages []store.Message) error {
	data := transcriptData{Title: title, Messages: make([]transcriptMessage, 0, len(messages))}
	for _, msg := range messages {
		var buf bytes.Buffer
		if err := w.md.Convert([]byte(msg.Content), &buf); err != nil {
			return fmt.Errorf("converting markdown: %w", err)
		}
		data.Messages = append(data.Messages, transcriptMessage{
			Role:       msg.Role,
			Body:       template.HTML(buf.String()),
			References: msg.References,
		})
	}
	return transcriptTmpl.Execute(out, data)
}
