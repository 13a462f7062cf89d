package domain

import "slices"

// Board holds one ordered task sequence per column.
type Board struct {
	columns map[ColumnKey][]Task
}

// NewBoard returns a board with every column empty.
func NewBoard() Board {
	cols := make(map[ColumnKey][]Task, len(columnOrder))
	for _, key := range columnOrder {
		cols[key] = []Task{}
	}
	return Board{columns: cols}
}

// BoardFromColumns builds a board from per-column sequences and rejects
// unknown columns, invalid tasks, and ids that appear more than once.
func BoardFromColumns(in map[ColumnKey][]Task) (Board, error) {
	b := NewBoard()
	seen := map[string]struct{}{}
	for key, tasks := range in {
		if !key.Valid() {
			return Board{}, ErrInvalidColumn
		}
		for _, task := range tasks {
			normalized, err := NewTask(TaskInput(task))
			if err != nil {
				return Board{}, err
			}
			if _, ok := seen[normalized.ID]; ok {
				return Board{}, ErrDuplicateTask
			}
			seen[normalized.ID] = struct{}{}
			b.columns[key] = append(b.columns[key], normalized)
		}
	}
	return b, nil
}

func (b *Board) ensure() {
	if b.columns == nil {
		*b = NewBoard()
	}
}

// Tasks returns a copy of one column's sequence.
func (b Board) Tasks(column ColumnKey) []Task {
	return slices.Clone(b.columns[column])
}

// Count returns the number of tasks in one column.
func (b Board) Count(column ColumnKey) int {
	return len(b.columns[column])
}

// Len returns the total number of tasks on the board.
func (b Board) Len() int {
	total := 0
	for _, tasks := range b.columns {
		total += len(tasks)
	}
	return total
}

// Clone deep-copies the board.
func (b Board) Clone() Board {
	out := NewBoard()
	for key, tasks := range b.columns {
		out.columns[key] = slices.Clone(tasks)
	}
	return out
}

// Equal reports whether both boards hold the same tasks in the same order.
func (b Board) Equal(other Board) bool {
	for _, key := range columnOrder {
		if !slices.Equal(b.columns[key], other.columns[key]) {
			return false
		}
	}
	return true
}

// Locate finds a task by id.
func (b Board) Locate(taskID string) (ColumnKey, int, bool) {
	for _, key := range columnOrder {
		for idx, task := range b.columns[key] {
			if task.ID == taskID {
				return key, idx, true
			}
		}
	}
	return "", -1, false
}

// Task returns the task with the given id.
func (b Board) Task(taskID string) (Task, bool) {
	column, idx, ok := b.Locate(taskID)
	if !ok {
		return Task{}, false
	}
	return b.columns[column][idx], true
}

// Append adds a task to the end of a column.
func (b *Board) Append(column ColumnKey, task Task) error {
	return b.Insert(column, b.Count(column), task)
}

// Insert places a task at index within a column.
func (b *Board) Insert(column ColumnKey, index int, task Task) error {
	if !column.Valid() {
		return ErrInvalidColumn
	}
	b.ensure()
	if index < 0 || index > len(b.columns[column]) {
		return ErrInvalidPosition
	}
	if _, _, exists := b.Locate(task.ID); exists {
		return ErrDuplicateTask
	}
	b.columns[column] = slices.Insert(b.columns[column], index, task)
	return nil
}

// Remove deletes and returns the task at index within a column.
func (b *Board) Remove(column ColumnKey, index int) (Task, error) {
	if !column.Valid() {
		return Task{}, ErrInvalidColumn
	}
	b.ensure()
	tasks := b.columns[column]
	if index < 0 || index >= len(tasks) {
		return Task{}, ErrInvalidPosition
	}
	task := tasks[index]
	b.columns[column] = slices.Delete(tasks, index, index+1)
	return task, nil
}

// Replace overwrites the task stored at its current position.
func (b *Board) Replace(task Task) error {
	column, idx, ok := b.Locate(task.ID)
	if !ok {
		return ErrInvalidID
	}
	b.columns[column][idx] = task
	return nil
}

// Move removes the task at fromIndex and inserts it at toIndex of the
// destination column. toIndex refers to the destination after removal and
// is clamped to its bounds.
func (b *Board) Move(from ColumnKey, fromIndex int, to ColumnKey, toIndex int) error {
	if !to.Valid() {
		return ErrInvalidColumn
	}
	task, err := b.Remove(from, fromIndex)
	if err != nil {
		return err
	}
	toIndex = max(0, min(toIndex, len(b.columns[to])))
	b.columns[to] = slices.Insert(b.columns[to], toIndex, task)
	return nil
}
