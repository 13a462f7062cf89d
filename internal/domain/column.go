package domain

import (
	"slices"
	"strings"
)

// ColumnKey identifies one of the fixed board columns.
type ColumnKey string

// Column keys in display order.
const (
	ColumnTodo       ColumnKey = "todo"
	ColumnInProgress ColumnKey = "inProgress"
	ColumnDone       ColumnKey = "done"
)

var columnOrder = []ColumnKey{ColumnTodo, ColumnInProgress, ColumnDone}

var columnNames = map[ColumnKey]string{
	ColumnTodo:       "To Do",
	ColumnInProgress: "In Progress",
	ColumnDone:       "Done",
}

// Columns returns every column key in display order.
func Columns() []ColumnKey {
	return slices.Clone(columnOrder)
}

// ParseColumnKey accepts the canonical key plus a few human spellings.
func ParseColumnKey(raw string) (ColumnKey, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "todo", "to-do", "to do":
		return ColumnTodo, nil
	case "inprogress", "in-progress", "in progress", "progress", "doing":
		return ColumnInProgress, nil
	case "done":
		return ColumnDone, nil
	default:
		return "", ErrInvalidColumn
	}
}

// Valid reports whether k is a known column key.
func (k ColumnKey) Valid() bool {
	return slices.Contains(columnOrder, k)
}

// Name returns the display name of the column.
func (k ColumnKey) Name() string {
	if name, ok := columnNames[k]; ok {
		return name
	}
	return string(k)
}

// Index returns the display index of the column, or -1.
func (k ColumnKey) Index() int {
	return slices.Index(columnOrder, k)
}
