package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/kolumn/internal/domain"
)

// DefaultStorageKey names the key-value entry that holds the board.
const DefaultStorageKey = "tasks"

// Snapshot is the persisted shape of a board: one array per column.
type Snapshot struct {
	Todo       []SnapshotTask `json:"todo" yaml:"todo"`
	InProgress []SnapshotTask `json:"inProgress" yaml:"inProgress"`
	Done       []SnapshotTask `json:"done" yaml:"done"`
}

// SnapshotTask is one persisted task entry.
type SnapshotTask struct {
	ID       string          `json:"id,omitempty" yaml:"id,omitempty"`
	Text     string          `json:"text" yaml:"text"`
	Priority domain.Priority `json:"priority" yaml:"priority"`
}

// SnapshotFromBoard serializes every column of b.
func SnapshotFromBoard(b domain.Board) Snapshot {
	return Snapshot{
		Todo:       snapshotTasks(b.Tasks(domain.ColumnTodo)),
		InProgress: snapshotTasks(b.Tasks(domain.ColumnInProgress)),
		Done:       snapshotTasks(b.Tasks(domain.ColumnDone)),
	}
}

func snapshotTasks(tasks []domain.Task) []SnapshotTask {
	out := make([]SnapshotTask, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, SnapshotTask{ID: task.ID, Text: task.Text, Priority: task.Priority})
	}
	return out
}

// columns returns the snapshot arrays keyed by column.
func (s Snapshot) columns() map[domain.ColumnKey][]SnapshotTask {
	return map[domain.ColumnKey][]SnapshotTask{
		domain.ColumnTodo:       s.Todo,
		domain.ColumnInProgress: s.InProgress,
		domain.ColumnDone:       s.Done,
	}
}

// Board rebuilds a domain board. Entries without an id receive one from idGen.
func (s Snapshot) Board(idGen IDGenerator) (domain.Board, error) {
	if idGen == nil {
		return domain.Board{}, errors.New("id generator is required")
	}
	in := map[domain.ColumnKey][]domain.Task{}
	for column, entries := range s.columns() {
		tasks := make([]domain.Task, 0, len(entries))
		for _, entry := range entries {
			id := strings.TrimSpace(entry.ID)
			if id == "" {
				id = idGen()
			}
			task, err := domain.NewTask(domain.TaskInput{ID: id, Text: entry.Text, Priority: entry.Priority})
			if err != nil {
				return domain.Board{}, fmt.Errorf("%s task %q: %w", column, id, err)
			}
			tasks = append(tasks, task)
		}
		in[column] = tasks
	}
	return domain.BoardFromColumns(in)
}

// EncodeSnapshot renders b in the persisted JSON format.
func EncodeSnapshot(b domain.Board) ([]byte, error) {
	encoded, err := json.Marshal(SnapshotFromBoard(b))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot json: %w", err)
	}
	return encoded, nil
}

// DecodeSnapshot validates and decodes a persisted payload. Every failure is
// wrapped in ErrCorruptSnapshot.
func DecodeSnapshot(payload []byte, idGen IDGenerator) (domain.Board, error) {
	if err := validateSnapshotPayload(payload); err != nil {
		return domain.Board{}, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return domain.Board{}, fmt.Errorf("%w: decode snapshot json: %w", ErrCorruptSnapshot, err)
	}
	board, err := snap.Board(idGen)
	if err != nil {
		return domain.Board{}, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	return board, nil
}

// SnapshotStore loads and saves the whole board under a single key.
type SnapshotStore struct {
	kv    KeyValueStore
	key   string
	idGen IDGenerator
}

// NewSnapshotStore constructs a snapshot store over kv.
func NewSnapshotStore(kv KeyValueStore, key string, idGen IDGenerator) *SnapshotStore {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultStorageKey
	}
	return &SnapshotStore{kv: kv, key: key, idGen: idGen}
}

// Key returns the storage key in use.
func (s *SnapshotStore) Key() string {
	return s.key
}

// Load returns the stored board, or an empty board when nothing is stored.
func (s *SnapshotStore) Load(ctx context.Context) (domain.Board, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return domain.Board{}, fmt.Errorf("read snapshot %q: %w", s.key, err)
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return domain.NewBoard(), nil
	}
	return DecodeSnapshot([]byte(raw), s.idGen)
}

// Save overwrites the stored board.
func (s *SnapshotStore) Save(ctx context.Context, b domain.Board) error {
	encoded, err := EncodeSnapshot(b)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key, string(encoded)); err != nil {
		return fmt.Errorf("write snapshot %q: %w", s.key, err)
	}
	return nil
}

// Clear removes the stored board.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("delete snapshot %q: %w", s.key, err)
	}
	return nil
}
