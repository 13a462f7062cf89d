package domain

import (
	"slices"
	"strings"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var validPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Priorities returns the selectable priorities in popup order.
func Priorities() []Priority {
	return slices.Clone(validPriorities)
}

// ParsePriority normalizes raw input into a known priority.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if !slices.Contains(validPriorities, p) {
		return "", ErrInvalidPriority
	}
	return p, nil
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return slices.Contains(validPriorities, p)
}

type Task struct {
	ID       string
	Text     string
	Priority Priority
}

type TaskInput struct {
	ID       string
	Text     string
	Priority Priority
}

func NewTask(in TaskInput) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Text = normalizeText(in.Text)

	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.Text == "" {
		return Task{}, ErrInvalidText
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !in.Priority.Valid() {
		return Task{}, ErrInvalidPriority
	}

	return Task{
		ID:       in.ID,
		Text:     in.Text,
		Priority: in.Priority,
	}, nil
}

// Rename replaces the task text; blank text is rejected and leaves the task untouched.
func (t *Task) Rename(text string) error {
	text = normalizeText(text)
	if text == "" {
		return ErrInvalidText
	}
	t.Text = text
	return nil
}

// normalizeText folds every whitespace run, newlines included, into one
// space. A card shows its text on a single row.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func (t *Task) SetPriority(priority Priority) error {
	if !priority.Valid() {
		return ErrInvalidPriority
	}
	t.Priority = priority
	return nil
}
