package tui

import (
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/hylla/kolumn/internal/reorder"
)

// handleMouseClick routes a button press. A left press on a card starts a
// drag gesture; badges, delete buttons and popups are handled first.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	mouse := msg.Mouse()
	if mouse.Button != tea.MouseLeft {
		m.cancelDrag()
		return m, nil
	}
	if m.help.ShowAll {
		return m, nil
	}

	switch m.mode {
	case modeNone:
	case modePriority:
		geo := m.geometry()
		if r, ok := m.popupBounds(geo); ok {
			if idx, hit := popupOptionAt(r, mouse.X, mouse.Y); hit {
				return m.applyPriority(idx)
			}
			if r.Contains(mouse.X, mouse.Y) {
				return m, nil
			}
		}
		m.closePopup()
		return m, nil
	case modeEditText:
		if card, ok := m.geometry().cardByID(m.editTaskID); ok && card.text.Contains(mouse.X, mouse.Y) {
			return m, nil
		}
		return m.commitEdit()
	default:
		return m, nil
	}

	geo := m.geometry()
	colIdx, card, ok := geo.cardAt(mouse.X, mouse.Y)
	if colIdx >= 0 {
		m.selectedColumn = colIdx
	}
	if !ok {
		m.clampSelection()
		return m, nil
	}
	m.selectedTask = card.index

	switch {
	case card.remove.Contains(mouse.X, mouse.Y):
		return m.requestDelete(card.task)
	case card.badge.Contains(mouse.X, mouse.Y):
		return m.openPriorityPopup(card.task)
	}

	now := m.now()
	if card.text.Contains(mouse.X, mouse.Y) &&
		card.task.ID == m.lastClickTaskID &&
		now.Sub(m.lastClickAt) <= doubleClickThreshold {
		m.lastClickTaskID = ""
		m.lastClickAt = time.Time{}
		return m.startEditText(card.task)
	}
	m.lastClickTaskID = card.task.ID
	m.lastClickAt = now

	m.drag.Begin(geo.reorderLayout(), mouse.X, mouse.Y)
	return m, nil
}

// handleMouseMotion updates the drop target. The model is not touched until
// release.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if !m.drag.Dragging() {
		return m, nil
	}
	mouse := msg.Mouse()
	if m.drag.Move(m.geometry().reorderLayout(), mouse.X, mouse.Y) {
		if target, ok := m.drag.Target(); ok {
			m.status = "drop into " + target.Column.Name()
		}
	}
	return m, nil
}

// handleMouseRelease ends the gesture and commits at most one move.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	if !m.drag.Dragging() {
		return m, nil
	}
	mouse := msg.Mouse()
	commit, ok := m.drag.End(m.geometry().reorderLayout(), mouse.X, mouse.Y)
	if !ok {
		m.status = "dropped outside the board, move reverted"
		return m, nil
	}
	if !commit.Changed {
		if m.status != "ready" && m.status != "editing text" {
			m.status = "ready"
		}
		return m, nil
	}

	// Show the committed order right away; the service result resyncs it.
	next := m.board.Clone()
	if from, idx, found := next.Locate(commit.TaskID); found {
		if err := next.Move(from, idx, commit.To, commit.ToIndex); err == nil {
			m.board = next
		}
	}
	m.focusTaskByID(commit.TaskID)
	m.ensureSelectionVisible()
	return m, m.moveTaskCmd(commit.TaskID, commit.To, commit.ToIndex, "moved to "+commit.To.Name())
}

// handleMouseWheel scrolls the column under the pointer.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll || m.mode != modeNone || m.drag.Dragging() {
		return m, nil
	}
	mouse := msg.Mouse()
	geo := m.geometry()
	colIdx, ok := geo.columnAt(mouse.X, mouse.Y)
	if !ok {
		return m, nil
	}
	col := geo.columns[colIdx]
	offsets := append([]int(nil), m.offsets...)
	switch mouse.Button {
	case tea.MouseWheelUp:
		offsets[colIdx] = max(0, col.offset-1)
	case tea.MouseWheelDown:
		if len(col.below) > 0 {
			offsets[colIdx] = col.offset + 1
		}
	}
	m.offsets = offsets
	return m, nil
}

// popupBounds returns the priority popup rectangle for the current frame.
func (m Model) popupBounds(geo boardGeometry) (reorder.Rect, bool) {
	card, ok := geo.cardByID(m.popupTaskID)
	if !ok {
		return reorder.Rect{}, false
	}
	return popupRect(card.badge, m.width, m.height), true
}
