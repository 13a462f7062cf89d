package tui

import (
	"github.com/hylla/kolumn/internal/domain"
	"github.com/hylla/kolumn/internal/reorder"
)

// board geometry constants in terminal cells.
const (
	boardTop       = 2
	columnGap      = 1
	minColumnWidth = 18
	minColumnRows  = 7
	cardRows       = 2
	cardStride     = cardRows + 1
	popupWidth     = 14
)

// cardGeometry locates one rendered card and its clickable parts.
type cardGeometry struct {
	task   domain.Task
	index  int
	bounds reorder.Rect
	text   reorder.Rect
	badge  reorder.Rect
	remove reorder.Rect
}

// columnGeometry locates one rendered column.
type columnGeometry struct {
	key    domain.ColumnKey
	bounds reorder.Rect
	inner  reorder.Rect
	total  int
	offset int
	cards  []cardGeometry
	// below holds the ids of cards hidden under the last visible slot.
	below []string
}

// boardGeometry is the geometry of one frame. Rendering and mouse hit tests
// both read it, so they always agree.
type boardGeometry struct {
	width   int
	height  int
	columns []columnGeometry
}

// footerRows returns rows taken by the status and help lines.
func footerRows(showHelp bool) int {
	if showHelp {
		return 3
	}
	return 1
}

// computeLayout lays the board out for a terminal of width x height. offsets
// holds the scroll position of each column in display order.
func computeLayout(board domain.Board, width, height int, showHelp bool, offsets []int) boardGeometry {
	keys := domain.Columns()
	geo := boardGeometry{width: width, height: height, columns: make([]columnGeometry, 0, len(keys))}

	colWidth := max(minColumnWidth, (width-columnGap*(len(keys)-1))/len(keys))
	colHeight := max(minColumnRows, height-boardTop-footerRows(showHelp))
	innerWidth := colWidth - 4
	innerRows := colHeight - 2

	for idx, key := range keys {
		x := idx * (colWidth + columnGap)
		col := columnGeometry{
			key:    key,
			bounds: reorder.Rect{X: x, Y: boardTop, W: colWidth, H: colHeight},
			inner:  reorder.Rect{X: x + 2, Y: boardTop + 1, W: innerWidth, H: innerRows},
		}
		tasks := board.Tasks(key)
		col.total = len(tasks)

		// Title and a spacer come first; cards need no trailing gap.
		slots := max(0, (innerRows-2+1)/cardStride)
		if idx < len(offsets) {
			col.offset = clamp(offsets[idx], 0, max(0, len(tasks)-1))
		}
		if len(tasks)-col.offset > slots {
			slots = max(0, (innerRows-3+1)/cardStride)
		}
		if len(tasks) <= slots {
			col.offset = 0
		}
		end := min(len(tasks), col.offset+slots)
		for slot, taskIdx := 0, col.offset; taskIdx < end; slot, taskIdx = slot+1, taskIdx+1 {
			task := tasks[taskIdx]
			y := col.inner.Y + 2 + slot*cardStride
			badgeWidth := len(priorityBadge(task.Priority))
			col.cards = append(col.cards, cardGeometry{
				task:   task,
				index:  taskIdx,
				bounds: reorder.Rect{X: col.inner.X, Y: y, W: innerWidth, H: cardRows},
				text:   reorder.Rect{X: col.inner.X + 2, Y: y, W: max(1, innerWidth-2), H: 1},
				badge:  reorder.Rect{X: col.inner.X + 2, Y: y + 1, W: badgeWidth, H: 1},
				remove: reorder.Rect{X: col.inner.X + innerWidth - 1, Y: y + 1, W: 1, H: 1},
			})
		}
		for _, task := range tasks[end:] {
			col.below = append(col.below, task.ID)
		}
		geo.columns = append(geo.columns, col)
	}
	return geo
}

// reorderLayout converts the geometry into the drag engine's view of it.
func (g boardGeometry) reorderLayout() reorder.Layout {
	out := reorder.Layout{Columns: make([]reorder.Column, 0, len(g.columns))}
	for _, col := range g.columns {
		rc := reorder.Column{Key: col.key, Bounds: col.bounds, Offset: col.offset, Below: col.below}
		for _, card := range col.cards {
			rc.Items = append(rc.Items, reorder.Item{TaskID: card.task.ID, Bounds: card.bounds})
		}
		out.Columns = append(out.Columns, rc)
	}
	return out
}

// column returns the geometry for key.
func (g boardGeometry) column(key domain.ColumnKey) (columnGeometry, bool) {
	for _, col := range g.columns {
		if col.key == key {
			return col, true
		}
	}
	return columnGeometry{}, false
}

// columnAt returns the column index under (x, y).
func (g boardGeometry) columnAt(x, y int) (int, bool) {
	for idx, col := range g.columns {
		if col.bounds.Contains(x, y) {
			return idx, true
		}
	}
	return -1, false
}

// cardAt returns the card under (x, y) with its column index.
func (g boardGeometry) cardAt(x, y int) (int, cardGeometry, bool) {
	colIdx, ok := g.columnAt(x, y)
	if !ok {
		return -1, cardGeometry{}, false
	}
	for _, card := range g.columns[colIdx].cards {
		if card.bounds.Contains(x, y) {
			return colIdx, card, true
		}
	}
	return colIdx, cardGeometry{}, false
}

// cardByID returns the rendered card for taskID.
func (g boardGeometry) cardByID(taskID string) (cardGeometry, bool) {
	for _, col := range g.columns {
		for _, card := range col.cards {
			if card.task.ID == taskID {
				return card, true
			}
		}
	}
	return cardGeometry{}, false
}

// popupRect anchors the priority popup just below the badge, flipping above
// it or shifting left when the screen edge is in the way.
func popupRect(anchor reorder.Rect, width, height int) reorder.Rect {
	h := len(priorityOptions) + 2
	r := reorder.Rect{X: anchor.X, Y: anchor.Y + 1, W: popupWidth, H: h}
	if width > 0 && r.X+r.W > width {
		r.X = max(0, width-r.W)
	}
	if height > 0 && r.Y+r.H > height {
		r.Y = max(0, anchor.Y-r.H)
	}
	return r
}

// popupOptionAt maps a click inside the popup to a priority option index.
func popupOptionAt(r reorder.Rect, x, y int) (int, bool) {
	inner := reorder.Rect{X: r.X + 1, Y: r.Y + 1, W: r.W - 2, H: r.H - 2}
	if !inner.Contains(x, y) {
		return -1, false
	}
	return y - inner.Y, true
}
