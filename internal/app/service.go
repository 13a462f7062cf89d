package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hylla/kolumn/internal/domain"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	StorageKey      string
	DefaultPriority domain.Priority
}

// IDGenerator returns unique identifiers for new tasks.
type IDGenerator func() string

// Service owns the in-memory board and persists the full snapshot after
// every successful mutation.
type Service struct {
	mu              sync.Mutex
	store           *SnapshotStore
	idGen           IDGenerator
	logger          Logger
	defaultPriority domain.Priority

	board     domain.Board
	recovered bool
}

// NewService constructs a new value for this package.
func NewService(kv KeyValueStore, idGen IDGenerator, logger Logger, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if logger == nil {
		logger = nopLogger{}
	}
	if !cfg.DefaultPriority.Valid() {
		cfg.DefaultPriority = domain.PriorityMedium
	}
	return &Service{
		store:           NewSnapshotStore(kv, cfg.StorageKey, idGen),
		idGen:           idGen,
		logger:          logger,
		defaultPriority: cfg.DefaultPriority,
		board:           domain.NewBoard(),
	}
}

// DefaultPriority returns the priority applied when none is chosen.
func (s *Service) DefaultPriority() domain.Priority {
	return s.defaultPriority
}

// Load reads the persisted board. A corrupt snapshot is logged and replaced
// by an empty board in memory; it is overwritten on the next mutation.
func (s *Service) Load(ctx context.Context) (domain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.store.Load(ctx)
	switch {
	case err == nil:
		s.recovered = false
	case errors.Is(err, ErrCorruptSnapshot):
		s.logger.Warn("board snapshot corrupt, starting empty", "key", s.store.Key(), "err", err)
		board = domain.NewBoard()
		s.recovered = true
	default:
		return domain.Board{}, err
	}
	s.board = board
	s.logger.Debug("board loaded", "key", s.store.Key(), "tasks", board.Len())
	return board.Clone(), nil
}

// Recovered reports whether the last Load discarded a corrupt snapshot.
func (s *Service) Recovered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recovered
}

// Board returns a copy of the current board.
func (s *Service) Board() domain.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Clone()
}

// AddTask appends a new task to the todo column.
func (s *Service) AddTask(ctx context.Context, text string, priority domain.Priority) (domain.Task, error) {
	if priority == "" {
		priority = s.defaultPriority
	}
	task, err := domain.NewTask(domain.TaskInput{
		ID:       s.idGen(),
		Text:     text,
		Priority: priority,
	})
	if err != nil {
		return domain.Task{}, err
	}
	err = s.mutate(ctx, "add", func(b *domain.Board) (bool, error) {
		return true, b.Append(domain.ColumnTodo, task)
	})
	if err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// DeleteTask removes a task from whichever column holds it.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	return s.mutate(ctx, "delete", func(b *domain.Board) (bool, error) {
		column, idx, ok := b.Locate(taskID)
		if !ok {
			return false, ErrNotFound
		}
		_, err := b.Remove(column, idx)
		return true, err
	})
}

// EditText replaces a task's text. Blank text returns domain.ErrInvalidText
// and leaves the board untouched.
func (s *Service) EditText(ctx context.Context, taskID, text string) (domain.Task, error) {
	var updated domain.Task
	err := s.mutate(ctx, "edit", func(b *domain.Board) (bool, error) {
		task, ok := b.Task(taskID)
		if !ok {
			return false, ErrNotFound
		}
		if err := task.Rename(text); err != nil {
			return false, err
		}
		updated = task
		return true, b.Replace(task)
	})
	return updated, err
}

// SetPriority changes a task's priority.
func (s *Service) SetPriority(ctx context.Context, taskID string, priority domain.Priority) (domain.Task, error) {
	var updated domain.Task
	err := s.mutate(ctx, "priority", func(b *domain.Board) (bool, error) {
		task, ok := b.Task(taskID)
		if !ok {
			return false, ErrNotFound
		}
		if err := task.SetPriority(priority); err != nil {
			return false, err
		}
		updated = task
		return true, b.Replace(task)
	})
	return updated, err
}

// MoveTask places a task at index of the destination column, where index
// counts positions with the task already removed. It reports false without
// persisting when the task would land where it already is.
func (s *Service) MoveTask(ctx context.Context, taskID string, to domain.ColumnKey, index int) (bool, error) {
	moved := false
	err := s.mutate(ctx, "move", func(b *domain.Board) (bool, error) {
		from, fromIdx, ok := b.Locate(taskID)
		if !ok {
			return false, ErrNotFound
		}
		if !to.Valid() {
			return false, domain.ErrInvalidColumn
		}
		limit := b.Count(to)
		if from == to {
			limit--
		}
		index = max(0, min(index, limit))
		if from == to && fromIdx == index {
			return false, nil
		}
		if err := b.Move(from, fromIdx, to, index); err != nil {
			return false, err
		}
		moved = true
		return true, nil
	})
	return moved, err
}

// ReplaceBoard swaps in an entire board, as done by import.
func (s *Service) ReplaceBoard(ctx context.Context, board domain.Board) error {
	return s.mutate(ctx, "replace", func(b *domain.Board) (bool, error) {
		*b = board.Clone()
		return true, nil
	})
}

// Reset clears the stored snapshot and empties the board.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Error("board reset failed", "key", s.store.Key(), "err", err)
		return err
	}
	s.board = domain.NewBoard()
	s.recovered = false
	s.logger.Info("board reset", "key", s.store.Key())
	return nil
}

// mutate applies fn to a copy of the board and persists it. The in-memory
// board only changes once the save succeeds. fn reports whether anything
// changed; unchanged boards are not saved.
func (s *Service) mutate(ctx context.Context, op string, fn func(*domain.Board) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.board.Clone()
	changed, err := fn(&next)
	if err != nil {
		s.logger.Debug("board mutation rejected", "op", op, "err", err)
		return err
	}
	if !changed {
		return nil
	}
	if err := s.store.Save(ctx, next); err != nil {
		s.logger.Error("board save failed", "op", op, "key", s.store.Key(), "err", err)
		return fmt.Errorf("persist %s: %w", strings.TrimSpace(op), err)
	}
	s.board = next
	s.logger.Debug("board saved", "op", op, "key", s.store.Key(), "tasks", next.Len())
	return nil
}
