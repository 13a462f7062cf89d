// Package reorder tracks a drag gesture over the rendered board and resolves
// it into a single move.
package reorder

import (
	"fmt"
	"math"
	"strings"

	"github.com/hylla/kolumn/internal/domain"
)

// State is the gesture state.
type State int

// Gesture states.
const (
	StateIdle State = iota
	StateDragging
)

// InvalidDropPolicy decides what a release outside every column does.
type InvalidDropPolicy string

// Drop policies.
const (
	DropRevert   InvalidDropPolicy = "revert"
	DropKeepLast InvalidDropPolicy = "keep-last"
)

// ParseInvalidDropPolicy parses a policy name. Empty means revert.
func ParseInvalidDropPolicy(raw string) (InvalidDropPolicy, error) {
	switch InvalidDropPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", DropRevert:
		return DropRevert, nil
	case DropKeepLast:
		return DropKeepLast, nil
	default:
		return "", fmt.Errorf("unknown invalid drop policy %q", raw)
	}
}

// LiftScale is the scale applied to the lifted card.
const LiftScale = 1.02

// Point is a terminal cell position.
type Point struct {
	X, Y int
}

// Source is where the dragged task started.
type Source struct {
	Column domain.ColumnKey
	Index  int
	TaskID string
}

// Target is where the dragged task would land, counted with the task removed.
type Target struct {
	Column domain.ColumnKey
	Index  int
}

// Transform is the visual offset of the lifted card from where it was picked
// up.
type Transform struct {
	DX, DY int
	Scale  float64
}

// Commit is the resolved result of a finished gesture.
type Commit struct {
	TaskID    string
	From      domain.ColumnKey
	FromIndex int
	To        domain.ColumnKey
	ToIndex   int
	// Changed is false when the task was dropped where it started.
	Changed bool
}

// Engine owns the state of at most one drag gesture.
type Engine struct {
	policy    InvalidDropPolicy
	state     State
	source    Source
	target    Target
	origin    Point
	lifted    Rect
	over      bool
	hover     domain.ColumnKey
	transform Transform
}

// NewEngine constructs an idle engine.
func NewEngine(policy InvalidDropPolicy) *Engine {
	if policy != DropKeepLast {
		policy = DropRevert
	}
	return &Engine{policy: policy}
}

// Policy returns the configured invalid drop policy.
func (e *Engine) Policy() InvalidDropPolicy {
	return e.policy
}

// State returns the current gesture state.
func (e *Engine) State() State {
	return e.state
}

// Dragging reports whether a gesture is in progress.
func (e *Engine) Dragging() bool {
	return e.state == StateDragging
}

// Source returns the dragged task origin.
func (e *Engine) Source() (Source, bool) {
	return e.source, e.Dragging()
}

// Target returns the current drop target.
func (e *Engine) Target() (Target, bool) {
	return e.target, e.Dragging()
}

// HoverColumn returns the column currently under the pointer.
func (e *Engine) HoverColumn() (domain.ColumnKey, bool) {
	if !e.Dragging() || !e.over {
		return "", false
	}
	return e.hover, true
}

// Transform returns the lift transform of the gesture in progress.
func (e *Engine) Transform() (Transform, bool) {
	return e.transform, e.Dragging()
}

// Lifted returns where the picked-up card is drawn: its bounds at Begin moved
// by the transform and widened by its scale around the center.
func (e *Engine) Lifted() (Rect, bool) {
	if !e.Dragging() {
		return Rect{}, false
	}
	w := int(math.Round(float64(e.lifted.W) * e.transform.Scale))
	return Rect{
		X: e.lifted.X + e.transform.DX - (w-e.lifted.W)/2,
		Y: e.lifted.Y + e.transform.DY,
		W: w,
		H: e.lifted.H,
	}, true
}

// Begin starts a gesture on the card under (x, y). It returns false and
// stays idle when no card is hit. A gesture already in progress is dropped.
func (e *Engine) Begin(layout Layout, x, y int) bool {
	e.reset()
	column, idx, item, ok := layout.ItemAt(x, y)
	if !ok || strings.TrimSpace(item.TaskID) == "" {
		return false
	}
	e.state = StateDragging
	e.source = Source{Column: column, Index: idx, TaskID: item.TaskID}
	e.target = Target{Column: column, Index: idx}
	e.origin = Point{X: x, Y: y}
	e.lifted = item.Bounds
	e.over = true
	e.hover = column
	e.transform = Transform{Scale: LiftScale}
	return true
}

// Move updates the drop target for a pointer at (x, y). Outside every column
// the previous target is kept. It reports whether the target changed.
func (e *Engine) Move(layout Layout, x, y int) bool {
	if !e.Dragging() {
		return false
	}
	e.transform = Transform{DX: x - e.origin.X, DY: y - e.origin.Y, Scale: LiftScale}
	col, ok := layout.ColumnAt(x, y)
	if !ok {
		e.over = false
		return false
	}
	e.over = true
	e.hover = col.Key
	next := Target{Column: col.Key, Index: insertionIndex(col, e.source.TaskID, y)}
	if next == e.target {
		return false
	}
	e.target = next
	return true
}

// End applies a final move at the release point and resolves the gesture.
// The engine is idle afterwards. The bool is false when nothing should be
// committed: no gesture was active, or the drop was invalid under the revert
// policy.
func (e *Engine) End(layout Layout, x, y int) (Commit, bool) {
	if !e.Dragging() {
		return Commit{}, false
	}
	defer e.reset()
	e.Move(layout, x, y)
	if !e.over && e.policy == DropRevert {
		return Commit{}, false
	}
	commit := Commit{
		TaskID:    e.source.TaskID,
		From:      e.source.Column,
		FromIndex: e.source.Index,
		To:        e.target.Column,
		ToIndex:   e.target.Index,
	}
	commit.Changed = commit.From != commit.To || commit.FromIndex != commit.ToIndex
	return commit, true
}

// Cancel drops any gesture in progress without committing.
func (e *Engine) Cancel() {
	e.reset()
}

// Preview returns the board as it would look if the gesture ended now. The
// input board is not modified.
func (e *Engine) Preview(board domain.Board) domain.Board {
	if !e.Dragging() {
		return board
	}
	from, idx, ok := board.Locate(e.source.TaskID)
	if !ok {
		return board
	}
	out := board.Clone()
	if err := out.Move(from, idx, e.target.Column, e.target.Index); err != nil {
		return board
	}
	return out
}

func (e *Engine) reset() {
	policy := e.policy
	*e = Engine{policy: policy}
}
