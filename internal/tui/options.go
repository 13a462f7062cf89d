package tui

import (
	"time"

	"github.com/hylla/kolumn/internal/reorder"
)

// Option configures a Model.
type Option func(*Model)

// WithInvalidDropPolicy sets what a release outside the columns does.
func WithInvalidDropPolicy(policy reorder.InvalidDropPolicy) Option {
	return func(m *Model) {
		m.drag = reorder.NewEngine(policy)
	}
}

// WithConfirmDelete asks before deleting a task.
func WithConfirmDelete(confirm bool) Option {
	return func(m *Model) {
		m.confirmDelete = confirm
	}
}

// WithShowHelp toggles the footer help bar.
func WithShowHelp(show bool) Option {
	return func(m *Model) {
		m.showHelp = show
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyToClipboard = write
		}
	}
}

// WithClock replaces the clock used for double-click detection.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}
