package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hylla/kolumn/internal/domain"
)

func TestSnapshotRoundTrip(t *testing.T) {
	priorities := domain.Priorities()
	cases := []struct {
		name   string
		counts map[domain.ColumnKey]int
	}{
		{name: "empty", counts: map[domain.ColumnKey]int{}},
		{name: "todo only", counts: map[domain.ColumnKey]int{domain.ColumnTodo: 3}},
		{name: "mixed", counts: map[domain.ColumnKey]int{domain.ColumnTodo: 1, domain.ColumnInProgress: 4, domain.ColumnDone: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			board := domain.NewBoard()
			n := 0
			for _, column := range domain.Columns() {
				for i := 0; i < tc.counts[column]; i++ {
					n++
					task, err := domain.NewTask(domain.TaskInput{
						ID:       fmt.Sprintf("id-%d", n),
						Text:     fmt.Sprintf("task \"%d\" <b>ü</b>", n),
						Priority: priorities[n%len(priorities)],
					})
					if err != nil {
						t.Fatalf("NewTask() error = %v", err)
					}
					if err := board.Append(column, task); err != nil {
						t.Fatalf("Append() error = %v", err)
					}
				}
			}

			kv := newFakeKV()
			store := NewSnapshotStore(kv, "", sequentialIDs("gen"))
			if err := store.Save(context.Background(), board); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			loaded, err := store.Load(context.Background())
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !loaded.Equal(board) {
				t.Fatalf("round trip mismatch: %v", kv.values[DefaultStorageKey])
			}
		})
	}
}

func TestSnapshotWireFormatKeys(t *testing.T) {
	board := domain.NewBoard()
	task, _ := domain.NewTask(domain.TaskInput{ID: "a", Text: "write docs", Priority: domain.PriorityMedium})
	_ = board.Append(domain.ColumnTodo, task)

	encoded, err := EncodeSnapshot(board)
	if err != nil {
		t.Fatalf("EncodeSnapshot() error = %v", err)
	}
	want := `{"todo":[{"id":"a","text":"write docs","priority":"medium"}],"inProgress":[],"done":[]}`
	if string(encoded) != want {
		t.Fatalf("unexpected encoding\nwant %s\ngot  %s", want, encoded)
	}
}

func TestDecodeSnapshotAssignsMissingIDs(t *testing.T) {
	payload := `{"todo":[{"text":"legacy","priority":"low"}],"inProgress":[],"done":[{"text":"old","priority":"high"}]}`
	board, err := DecodeSnapshot([]byte(payload), sequentialIDs("gen-"))
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if board.Len() != 2 {
		t.Fatalf("expected 2 tasks, got %d", board.Len())
	}
	for _, column := range domain.Columns() {
		for _, task := range board.Tasks(column) {
			if !strings.HasPrefix(task.ID, "gen-") {
				t.Fatalf("expected generated id, got %q", task.ID)
			}
		}
	}
}

func TestDecodeSnapshotMissingColumnsAreEmpty(t *testing.T) {
	board, err := DecodeSnapshot([]byte(`{"done":[{"text":"x","priority":"low"}]}`), sequentialIDs("g"))
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if board.Count(domain.ColumnTodo) != 0 || board.Count(domain.ColumnDone) != 1 {
		t.Fatal("unexpected column counts")
	}
}

func TestDecodeSnapshotFoldsMultilineText(t *testing.T) {
	payload := `{"todo":[{"id":"a","text":"first\nsecond","priority":"low"},{"id":"b","text":"plain","priority":"low"}]}`
	board, err := DecodeSnapshot([]byte(payload), sequentialIDs("g"))
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	task, ok := board.Task("a")
	if !ok || task.Text != "first second" {
		t.Fatalf("unexpected task %#v", task)
	}
}

func TestDecodeSnapshotRejectsCorruptPayloads(t *testing.T) {
	cases := map[string]string{
		"not json":         `{"todo": [`,
		"wrong root":       `[]`,
		"unknown column":   `{"later": []}`,
		"bad priority":     `{"todo":[{"text":"x","priority":"urgent"}]}`,
		"blank text":       `{"todo":[{"text":"   ","priority":"low"}]}`,
		"missing priority": `{"todo":[{"text":"x"}]}`,
		"duplicate ids":    `{"todo":[{"id":"a","text":"x","priority":"low"}],"done":[{"id":"a","text":"y","priority":"low"}]}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(payload), sequentialIDs("g"))
			if !errors.Is(err, ErrCorruptSnapshot) {
				t.Fatalf("expected ErrCorruptSnapshot, got %v", err)
			}
		})
	}
}

func TestSchemaValidationErrorPath(t *testing.T) {
	err := validateSnapshotPayload([]byte(`{"todo":[{"text":"x","priority":"urgent"}]}`))
	var schemaErr SchemaValidationError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaValidationError, got %v", err)
	}
	if schemaErr.Path != "$.todo[0].priority" {
		t.Fatalf("unexpected path %q", schemaErr.Path)
	}
}

func TestSnapshotStoreMissingKeyIsEmptyBoard(t *testing.T) {
	store := NewSnapshotStore(newFakeKV(), "custom", sequentialIDs("g"))
	if store.Key() != "custom" {
		t.Fatalf("unexpected key %q", store.Key())
	}
	board, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if board.Len() != 0 {
		t.Fatal("expected empty board")
	}
}
