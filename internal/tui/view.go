package tui

import (
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/hylla/kolumn/internal/domain"
)

var (
	accentColor = lipgloss.Color("62")
	hoverColor  = lipgloss.Color("212")
	mutedColor  = lipgloss.Color("241")
	dimColor    = lipgloss.Color("239")
)

// priorityColors maps each priority to its badge colour.
var priorityColors = map[domain.Priority]color.Color{
	domain.PriorityLow:    lipgloss.Color("108"),
	domain.PriorityMedium: lipgloss.Color("179"),
	domain.PriorityHigh:   lipgloss.Color("203"),
}

func priorityBadge(p domain.Priority) string {
	return "[" + string(p) + "]"
}

func newView(content string) tea.View {
	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	v.ReportFocus = true
	return v
}

// View renders the whole frame from the board, or from the drag preview
// while a gesture is active.
func (m Model) View() tea.View {
	return newView(m.render())
}

func (m Model) render() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\npress r to retry • q quit\n"
	}
	if !m.ready {
		return "loading..."
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dimColor)

	geo := m.geometry()
	header := titleStyle.Render("kolumn") + statusStyle.Render(fmt.Sprintf("  %d tasks  [%s]", m.board.Len(), m.modeLabel()))

	blocks := make([]string, 0, 2*len(geo.columns))
	for idx, col := range geo.columns {
		if idx > 0 {
			blocks = append(blocks, strings.Repeat(" ", columnGap))
		}
		blocks = append(blocks, m.renderColumn(idx, col))
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, blocks...)
	content := header + "\n\n" + body

	footer := statusStyle.Render(truncate(m.status, max(1, m.width)))
	if m.showHelp {
		helpBubble := m.help
		helpBubble.ShowAll = false
		helpBubble.SetWidth(max(0, m.width-2))
		helpLine := lipgloss.NewStyle().
			Foreground(mutedColor).
			BorderTop(true).
			BorderForeground(dimColor).
			Padding(0, 1).
			Width(max(0, m.width)).
			Render(helpBubble.View(m.keys))
		footer += "\n" + helpLine
	}
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(footer)))
	}
	full := content + "\n" + footer

	switch {
	case m.drag.Dragging():
		full = m.overlayLiftedCard(full)
	case m.help.ShowAll:
		full = overlayOnContent(full, m.renderHelpOverlay(), max(1, m.width), max(1, m.height))
	case m.mode == modePriority:
		full = m.overlayPriorityPopup(full, geo)
	case m.mode == modeAddTask, m.mode == modeTaskInfo, m.mode == modeConfirmDelete:
		full = overlayOnContent(full, m.renderModeOverlay(), max(1, m.width), max(1, m.height))
	}
	return full
}

// renderColumn draws one column box. Every line is padded to the inner width
// so the box lands exactly on its layout rectangle.
func (m Model) renderColumn(colIdx int, col columnGeometry) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	mutedStyle := lipgloss.NewStyle().Foreground(mutedColor)

	blank := strings.Repeat(" ", col.inner.W)
	lines := make([]string, col.inner.H)
	for i := range lines {
		lines[i] = blank
	}
	lines[0] = padRight(titleStyle.Render(truncate(fmt.Sprintf("%s (%d)", col.key.Name(), col.total), col.inner.W)), col.inner.W)
	if col.total == 0 && len(lines) > 2 {
		lines[2] = padRight(mutedStyle.Render("(empty)"), col.inner.W)
	}
	for _, card := range col.cards {
		row := card.bounds.Y - col.inner.Y
		top, bottom := m.renderCard(colIdx, card, col.inner.W)
		lines[row] = top
		lines[row+1] = bottom
	}
	if len(col.below) > 0 {
		lines[len(lines)-1] = padRight(mutedStyle.Render(truncate(fmt.Sprintf("↓ %d more", len(col.below)), col.inner.W)), col.inner.W)
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(0, 1)
	if hover, ok := m.drag.HoverColumn(); ok {
		if hover == col.key {
			style = style.BorderForeground(hoverColor)
		}
	} else if colIdx == m.selectedColumn {
		style = style.BorderForeground(accentColor)
	}
	return style.Render(strings.Join(lines, "\n"))
}

// renderCard draws the text line and the badge line of one card.
func (m Model) renderCard(colIdx int, card cardGeometry, width int) (string, string) {
	dragging := m.drag.Dragging()
	source, _ := m.drag.Source()
	ghost := dragging && card.task.ID == source.TaskID
	selected := !dragging && colIdx == m.selectedColumn && card.index == m.selectedTask

	prefix := "  "
	textStyle := lipgloss.NewStyle()
	switch {
	case ghost:
		prefix = "┆ "
		textStyle = textStyle.Foreground(mutedColor).Faint(true)
	case selected:
		prefix = "│ "
		textStyle = textStyle.Foreground(lipgloss.Color("212")).Bold(true)
	}

	var text string
	if m.mode == modeEditText && card.task.ID == m.editTaskID {
		text = m.input.View()
	} else {
		text = textStyle.Render(truncate(card.task.Text, card.text.W))
	}
	top := padRight(textStyle.Render(prefix)+text, width)

	badge := priorityBadge(card.task.Priority)
	badgeStyle := lipgloss.NewStyle().Foreground(priorityColors[card.task.Priority])
	removeStyle := lipgloss.NewStyle().Foreground(mutedColor)
	if ghost {
		badgeStyle = badgeStyle.Faint(true)
		removeStyle = removeStyle.Faint(true)
	}
	gap := max(1, width-lipgloss.Width(prefix)-lipgloss.Width(badge)-1)
	bottom := textStyle.Render(prefix) + badgeStyle.Render(badge) + strings.Repeat(" ", gap) + removeStyle.Render("×")
	return top, padRight(bottom, width)
}

// overlayLiftedCard draws the dragged card where the pointer has carried it,
// above the preview board.
func (m Model) overlayLiftedCard(base string) string {
	r, ok := m.drag.Lifted()
	if !ok {
		return base
	}
	source, _ := m.drag.Source()
	task, ok := m.board.Task(source.TaskID)
	if !ok {
		return base
	}
	width, height := max(1, m.width), max(1, m.height)
	canvas := lipgloss.NewCanvas(width, height)
	canvas.Compose(lipgloss.NewLayer(fitLines(base, height)).X(0).Y(0).Z(0))
	canvas.Compose(lipgloss.NewLayer(renderLiftedCard(task, r.W)).X(max(0, r.X-1)).Y(max(0, r.Y-1)).Z(5))
	return canvas.Render()
}

// renderLiftedCard draws a card box whose content is width cells wide.
func renderLiftedCard(task domain.Task, width int) string {
	width = max(lipgloss.Width(priorityBadge(task.Priority)), width)
	textStyle := lipgloss.NewStyle().Foreground(hoverColor).Bold(true)
	badgeStyle := lipgloss.NewStyle().Foreground(priorityColors[task.Priority])
	top := padRight(textStyle.Render(truncate(task.Text, width)), width)
	bottom := padRight(badgeStyle.Render(priorityBadge(task.Priority)), width)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(hoverColor).
		Render(top + "\n" + bottom)
}

// overlayPriorityPopup draws the priority popup anchored under the badge of
// its task, or centered when the card is scrolled out of view.
func (m Model) overlayPriorityPopup(base string, geo boardGeometry) string {
	popup := m.renderPriorityPopup()
	r, ok := m.popupBounds(geo)
	if !ok {
		return overlayOnContent(base, popup, max(1, m.width), max(1, m.height))
	}
	width, height := max(1, m.width), max(1, m.height)
	canvas := lipgloss.NewCanvas(width, height)
	canvas.Compose(lipgloss.NewLayer(fitLines(base, height)).X(0).Y(0).Z(0))
	canvas.Compose(lipgloss.NewLayer(popup).X(r.X).Y(r.Y).Z(10))
	return canvas.Render()
}

func (m Model) renderPriorityPopup() string {
	current := domain.PriorityMedium
	if task, ok := m.board.Task(m.popupTaskID); ok {
		current = task.Priority
	}
	inner := popupWidth - 4
	lines := make([]string, 0, len(priorityOptions))
	for idx, p := range priorityOptions {
		marker := "  "
		if p == current {
			marker = "• "
		}
		style := lipgloss.NewStyle().Foreground(priorityColors[p])
		if idx == m.popupIndex {
			style = style.Bold(true).Reverse(true)
		}
		lines = append(lines, style.Render(padRight(marker+string(p), inner)))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

// renderModeOverlay renders the centered box for the add form, the task
// info view and the delete confirmation.
func (m Model) renderModeOverlay() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	hintStyle := lipgloss.NewStyle().Foreground(mutedColor)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1)

	var lines []string
	switch m.mode {
	case modeAddTask:
		badge := lipgloss.NewStyle().Foreground(priorityColors[m.addPriority]).Render(priorityBadge(m.addPriority))
		lines = []string{
			titleStyle.Render("New Task"),
			m.input.View(),
			"priority " + badge,
			hintStyle.Render("enter add • tab priority • esc cancel"),
		}
	case modeTaskInfo:
		task, ok := m.board.Task(m.infoTaskID)
		if !ok {
			return ""
		}
		column, _, _ := m.board.Locate(task.ID)
		width := clamp(m.width-12, 24, 72)
		lines = []string{
			titleStyle.Render("Task Info"),
			m.markdown.render(taskInfoMarkdown(task, column), width),
			hintStyle.Render("y copy • esc close"),
		}
	case modeConfirmDelete:
		task, ok := m.board.Task(m.pendingDeleteID)
		if !ok {
			return ""
		}
		lines = []string{
			titleStyle.Render("Delete Task"),
			fmt.Sprintf("delete %q?", truncate(task.Text, 40)),
			hintStyle.Render("y confirm • n cancel"),
		}
	default:
		return ""
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderHelpOverlay() string {
	width := clamp(m.width-8, 40, 100)
	h := m.help
	h.ShowAll = true
	h.SetWidth(width - 4)
	title := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Keys")
	mouse := lipgloss.NewStyle().Foreground(mutedColor).Render("mouse: drag cards • click badge for priority • click × to delete • double-click text to edit")
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1).
		Render(strings.Join([]string{title, h.View(m.keys), "", truncate(mouse, width-4)}, "\n"))
}

func (m Model) modeLabel() string {
	if m.drag.Dragging() {
		return "drag"
	}
	switch m.mode {
	case modeAddTask:
		return "add"
	case modeEditText:
		return "edit"
	case modePriority:
		return "priority"
	case modeTaskInfo:
		return "info"
	case modeConfirmDelete:
		return "confirm"
	default:
		return "board"
	}
}

// fitLines pads or cuts content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent centers overlay on top of base.
func overlayOnContent(base, overlay string, width, height int) string {
	if strings.TrimSpace(overlay) == "" {
		return base
	}
	if width <= 0 || height <= 0 {
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate cuts s to max cells, ending in an ellipsis when shortened.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= max {
		return s
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		w := lipgloss.Width(string(r))
		if used+w > max-1 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	return b.String() + "…"
}

// padRight pads a rendered string with spaces up to width cells.
func padRight(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}
