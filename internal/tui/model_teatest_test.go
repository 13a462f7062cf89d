package tui

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/exp/teatest/v2"

	"github.com/hylla/kolumn/internal/domain"
)

// TestModelWithTeatest renders a stored board and quits.
func TestModelWithTeatest(t *testing.T) {
	kv := newMemKV()
	svc := seedService(t, kv, map[domain.ColumnKey][]string{
		domain.ColumnTodo:       {"First task"},
		domain.ColumnInProgress: {"Second task"},
	})

	tm := teatest.NewTestModel(t, NewModel(svc), teatest.WithInitialTermSize(120, 35))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		s := string(out)
		return strings.Contains(s, "First task") && strings.Contains(s, "Second task")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
}

// TestModelWithTeatestAddAndHelp drives the add form and the help overlay
// through a running program.
func TestModelWithTeatestAddAndHelp(t *testing.T) {
	kv := newMemKV()
	svc := newTestService(t, kv)

	tm := teatest.NewTestModel(t, NewModel(svc), teatest.WithInitialTermSize(120, 35))
	t.Cleanup(func() {
		_ = tm.Quit()
	})

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "To Do")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'n', Text: "n"})
	for _, r := range "ship it" {
		tm.Send(tea.KeyPressMsg{Code: r, Text: string(r)})
	}
	tm.Send(tea.KeyPressMsg{Code: tea.KeyEnter})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "task added")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: '?', Text: "?"})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "double-click text to edit")
	}, teatest.WithDuration(2*time.Second), teatest.WithCheckInterval(10*time.Millisecond))

	tm.Send(tea.KeyPressMsg{Code: 'q', Text: "q"})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	if got := texts(svc.Board(), domain.ColumnTodo); !sameTexts(got, []string{"ship it"}) {
		t.Fatalf("unexpected todo column %v", got)
	}
	if kv.sets != 1 {
		t.Fatalf("expected one save, got %d", kv.sets)
	}
}
