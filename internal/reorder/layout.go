package reorder

import "github.com/hylla/kolumn/internal/domain"

// Rect is a cell rectangle in terminal coordinates. W and H are exclusive
// extents, so a Rect covers [X, X+W) by [Y, Y+H).
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether (x, y) falls inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// midY2 returns twice the vertical midpoint so odd heights stay exact.
func (r Rect) midY2() int {
	return 2*r.Y + r.H
}

// Item is one rendered card.
type Item struct {
	TaskID string
	Bounds Rect
}

// Column is one rendered column and its visible cards in display order.
// Offset is the board index of the first listed card when the column is
// scrolled. Below holds the ids of cards scrolled out under the listed ones.
type Column struct {
	Key    domain.ColumnKey
	Bounds Rect
	Items  []Item
	Offset int
	Below  []string
}

// Layout is the geometry of one rendered frame.
type Layout struct {
	Columns []Column
}

// ColumnAt returns the column under (x, y).
func (l Layout) ColumnAt(x, y int) (Column, bool) {
	for _, col := range l.Columns {
		if col.Bounds.Contains(x, y) {
			return col, true
		}
	}
	return Column{}, false
}

// ItemAt returns the card under (x, y) with its column and display index.
func (l Layout) ItemAt(x, y int) (domain.ColumnKey, int, Item, bool) {
	for _, col := range l.Columns {
		if !col.Bounds.Contains(x, y) {
			continue
		}
		for idx, item := range col.Items {
			if item.Bounds.Contains(x, y) {
				return col.Key, col.Offset + idx, item, true
			}
		}
		return col.Key, -1, Item{}, false
	}
	return "", -1, Item{}, false
}

// insertionIndex picks the slot for draggedID in col when the pointer is at
// row y. Among the other cards it takes the one whose midpoint lies closest
// below y and returns its index; with no such card the slot is the end of
// the column, past any cards scrolled out below. The index counts board
// positions with the dragged card removed.
func insertionIndex(col Column, draggedID string, y int) int {
	best := -1
	bestDelta := 0
	pos := 0
	for _, item := range col.Items {
		if item.TaskID == draggedID {
			continue
		}
		delta := item.Bounds.midY2() - 2*y
		if delta > 0 && (best < 0 || delta < bestDelta) {
			best = pos
			bestDelta = delta
		}
		pos++
	}
	if best < 0 {
		for _, id := range col.Below {
			if id != draggedID {
				pos++
			}
		}
		return col.Offset + pos
	}
	return col.Offset + best
}
