package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/hylla/kolumn/internal/domain"
)

// markdownRenderer renders markdown and rebuilds the glamour renderer only
// when the wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// render converts markdown into styled terminal text wrapped at width.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := max(24, width)
	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}

// taskInfoMarkdown builds the info document for a task. The task text is
// rendered as markdown so lists and emphasis typed into a card show up.
func taskInfoMarkdown(task domain.Task, column domain.ColumnKey) string {
	var b strings.Builder
	b.WriteString(task.Text)
	b.WriteString("\n\n---\n\n")
	fmt.Fprintf(&b, "- **column:** %s\n", column.Name())
	fmt.Fprintf(&b, "- **priority:** %s\n", task.Priority)
	fmt.Fprintf(&b, "- **id:** `%s`\n", task.ID)
	return b.String()
}
