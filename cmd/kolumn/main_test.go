package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/alicebob/miniredis/v2"

	"github.com/hylla/kolumn/internal/app"
	"github.com/hylla/kolumn/internal/config"
)

// TestMain keeps dev-mode log files out of the test run.
func TestMain(m *testing.M) {
	_ = os.Setenv("KOLUMN_DEV_MODE", "false")
	os.Exit(m.Run())
}

// fakeProgram returns immediately without touching the model.
type fakeProgram struct {
	runErr error
}

func (f fakeProgram) Run() (tea.Model, error) {
	return nil, f.runErr
}

// scriptedProgram drives the model in-process instead of a terminal.
type scriptedProgram struct {
	model tea.Model
	runFn func(tea.Model) (tea.Model, error)
}

func (p scriptedProgram) Run() (tea.Model, error) {
	if p.runFn == nil {
		return p.model, nil
	}
	return p.runFn(p.model)
}

// applyModelMsg applies one message and any resulting command chain.
func applyModelMsg(t *testing.T, model tea.Model, msg tea.Msg) tea.Model {
	t.Helper()
	updated, cmd := model.Update(msg)
	return applyModelCmd(t, updated, cmd)
}

// applyModelCmd executes one command chain to completion (bounded for safety).
func applyModelCmd(t *testing.T, model tea.Model, cmd tea.Cmd) tea.Model {
	t.Helper()
	out := model
	currentCmd := cmd
	for i := 0; i < 8 && currentCmd != nil; i++ {
		msg := currentCmd()
		updated, nextCmd := out.Update(msg)
		out = updated
		currentCmd = nextCmd
	}
	return out
}

// testEnv holds isolated config and database paths for one test.
type testEnv struct {
	dbPath  string
	cfgPath string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	return testEnv{
		dbPath:  filepath.Join(dir, "kolumn.db"),
		cfgPath: filepath.Join(dir, "config.toml"),
	}
}

func (e testEnv) args(rest ...string) []string {
	return append([]string{"--db", e.dbPath, "--config", e.cfgPath}, rest...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func exportJSON(t *testing.T, env testEnv) app.Snapshot {
	t.Helper()
	var out strings.Builder
	if err := run(context.Background(), env.args("export"), &out, io.Discard); err != nil {
		t.Fatalf("run(export) error = %v", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal([]byte(out.String()), &snap); err != nil {
		t.Fatalf("json.Unmarshal(export) error = %v\n%s", err, out.String())
	}
	return snap
}

func TestRunVersion(t *testing.T) {
	var out strings.Builder
	if err := run(context.Background(), []string{"--version"}, &out, io.Discard); err != nil {
		t.Fatalf("run(version) error = %v", err)
	}
	if !strings.Contains(out.String(), version) {
		t.Fatalf("expected version output, got %q", out.String())
	}
}

func TestRunStartsProgram(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(_ tea.Model) program {
		return fakeProgram{}
	}

	env := newTestEnv(t)
	if err := run(context.Background(), env.args(), io.Discard, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}
}

func TestRunReturnsProgramError(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(_ tea.Model) program {
		return fakeProgram{runErr: fmt.Errorf("boom")}
	}

	env := newTestEnv(t)
	err := run(context.Background(), env.args(), io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected program error, got %v", err)
	}
}

func TestRunTUIPersistsAddedTask(t *testing.T) {
	origFactory := programFactory
	t.Cleanup(func() { programFactory = origFactory })
	programFactory = func(m tea.Model) program {
		return scriptedProgram{model: m, runFn: func(model tea.Model) (tea.Model, error) {
			model = applyModelCmd(t, model, model.Init())
			model = applyModelMsg(t, model, tea.WindowSizeMsg{Width: 120, Height: 40})
			// Focus and typing only return cursor blinks; skip them.
			model, _ = model.Update(tea.KeyPressMsg{Code: 'n', Text: "n"})
			for _, r := range "write docs" {
				model, _ = model.Update(tea.KeyPressMsg{Code: r, Text: string(r)})
			}
			model = applyModelMsg(t, model, tea.KeyPressMsg{Code: tea.KeyEnter})
			return model, nil
		}}
	}

	env := newTestEnv(t)
	writeFile(t, env.cfgPath, `
[board]
default_priority = "low"
`)
	if err := run(context.Background(), env.args(), io.Discard, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	snap := exportJSON(t, env)
	if len(snap.Todo) != 1 || snap.Todo[0].Text != "write docs" || snap.Todo[0].Priority != "low" {
		t.Fatalf("unexpected todo column %#v", snap.Todo)
	}
	if snap.Todo[0].ID == "" {
		t.Fatal("expected a generated task id")
	}
}

func TestRunPaths(t *testing.T) {
	var out strings.Builder
	if err := run(context.Background(), []string{"--app", "kolumn-test", "paths"}, &out, io.Discard); err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	for _, want := range []string{"app: kolumn-test", "dev_mode: false", "config:", "data_dir:", "db:"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in paths output, got %q", want, out.String())
		}
	}
}

func TestRunImportExportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	in := filepath.Join(t.TempDir(), "board.json")
	writeFile(t, in, `{
  "todo": [{"id": "a", "text": "write docs", "priority": "medium"}],
  "inProgress": [],
  "done": [{"text": "ship", "priority": "high"}]
}`)
	if err := run(context.Background(), env.args("import", "--in", in), io.Discard, io.Discard); err != nil {
		t.Fatalf("run(import) error = %v", err)
	}

	snap := exportJSON(t, env)
	if len(snap.Todo) != 1 || snap.Todo[0].ID != "a" || snap.Todo[0].Text != "write docs" {
		t.Fatalf("unexpected todo %#v", snap.Todo)
	}
	if len(snap.InProgress) != 0 {
		t.Fatalf("expected empty in-progress, got %#v", snap.InProgress)
	}
	if len(snap.Done) != 1 || snap.Done[0].Priority != "high" || snap.Done[0].ID == "" {
		t.Fatalf("expected done task with generated id, got %#v", snap.Done)
	}

	yamlOut := filepath.Join(t.TempDir(), "nested", "board.yaml")
	if err := run(context.Background(), env.args("export", "--format", "yaml", "--out", yamlOut), io.Discard, io.Discard); err != nil {
		t.Fatalf("run(export yaml) error = %v", err)
	}
	content, err := os.ReadFile(yamlOut)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), "text: write docs") {
		t.Fatalf("unexpected yaml export %q", string(content))
	}

	// The yaml export imports back into a fresh store unchanged.
	other := newTestEnv(t)
	if err := run(context.Background(), other.args("import", "--in", yamlOut), io.Discard, io.Discard); err != nil {
		t.Fatalf("run(import yaml) error = %v", err)
	}
	again := exportJSON(t, other)
	if len(again.Todo) != 1 || again.Todo[0].ID != "a" || len(again.Done) != 1 || again.Done[0].ID != snap.Done[0].ID {
		t.Fatalf("yaml round trip changed the board: %#v", again)
	}
}

func TestRunImportRejectsInvalidFile(t *testing.T) {
	env := newTestEnv(t)
	good := filepath.Join(t.TempDir(), "good.json")
	writeFile(t, good, `{"todo":[{"id":"a","text":"keep me","priority":"low"}]}`)
	if err := run(context.Background(), env.args("import", "--in", good), io.Discard, io.Discard); err != nil {
		t.Fatalf("run(import) error = %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	writeFile(t, bad, `{"todo":[{"text":"x","priority":"urgent"}]}`)
	err := run(context.Background(), env.args("import", "--in", bad), io.Discard, io.Discard)
	if err == nil {
		t.Fatal("expected invalid import to fail")
	}

	snap := exportJSON(t, env)
	if len(snap.Todo) != 1 || snap.Todo[0].Text != "keep me" {
		t.Fatalf("expected stored board untouched, got %#v", snap.Todo)
	}
}

func TestRunImportRequiresInput(t *testing.T) {
	env := newTestEnv(t)
	err := run(context.Background(), env.args("import"), io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "--in") {
		t.Fatalf("expected --in error, got %v", err)
	}
}

func TestRunExportRejectsUnknownFormat(t *testing.T) {
	env := newTestEnv(t)
	err := run(context.Background(), env.args("export", "--format", "xml"), io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "xml") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestRunReset(t *testing.T) {
	env := newTestEnv(t)
	in := filepath.Join(t.TempDir(), "board.json")
	writeFile(t, in, `{"done":[{"text":"old","priority":"low"}]}`)
	if err := run(context.Background(), env.args("import", "--in", in), io.Discard, io.Discard); err != nil {
		t.Fatalf("run(import) error = %v", err)
	}

	var out strings.Builder
	if err := run(context.Background(), env.args("reset"), &out, io.Discard); err != nil {
		t.Fatalf("run(reset) error = %v", err)
	}
	if !strings.Contains(out.String(), "board cleared") {
		t.Fatalf("unexpected reset output %q", out.String())
	}
	snap := exportJSON(t, env)
	if len(snap.Todo)+len(snap.InProgress)+len(snap.Done) != 0 {
		t.Fatalf("expected empty board after reset, got %#v", snap)
	}
}

func TestRunListPrintsColumns(t *testing.T) {
	env := newTestEnv(t)
	in := filepath.Join(t.TempDir(), "board.json")
	writeFile(t, in, `{"todo":[{"id":"a","text":"write docs","priority":"medium"}],"done":[{"id":"b","text":"ship","priority":"high"}]}`)
	if err := run(context.Background(), env.args("import", "--in", in), io.Discard, io.Discard); err != nil {
		t.Fatalf("run(import) error = %v", err)
	}

	var out strings.Builder
	if err := run(context.Background(), env.args("list"), &out, io.Discard); err != nil {
		t.Fatalf("run(list) error = %v", err)
	}
	for _, want := range []string{"To Do (1)", "  [medium] write docs", "In Progress (0)", "Done (1)", "  [high]   ship", "last saved "} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in list output:\n%s", want, out.String())
		}
	}

	out.Reset()
	if err := run(context.Background(), env.args("list", "To Do"), &out, io.Discard); err != nil {
		t.Fatalf("run(list todo) error = %v", err)
	}
	if !strings.Contains(out.String(), "write docs") || strings.Contains(out.String(), "ship") {
		t.Fatalf("expected only the todo column, got:\n%s", out.String())
	}

	err := run(context.Background(), env.args("list", "later"), io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "later") {
		t.Fatalf("expected unknown column error, got %v", err)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"frobnicate"}, io.Discard, io.Discard)
	if err == nil {
		t.Fatal("expected unknown command error")
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	writeFile(t, env.cfgPath, `
[board]
invalid_drop = "bounce"
`)
	err := run(context.Background(), env.args("export"), io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "invalid_drop") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestRunRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	env := newTestEnv(t)
	writeFile(t, env.cfgPath, fmt.Sprintf(`
[storage]
backend = "redis"
redis_addr = %q
key = "board"
`, mr.Addr()))

	in := filepath.Join(t.TempDir(), "board.json")
	writeFile(t, in, `{"inProgress":[{"id":"r1","text":"from redis","priority":"medium"}]}`)
	if err := run(context.Background(), env.args("import", "--in", in), io.Discard, io.Discard); err != nil {
		t.Fatalf("run(import) error = %v", err)
	}

	raw, err := mr.Get("board")
	if err != nil {
		t.Fatalf("miniredis Get() error = %v", err)
	}
	if !strings.Contains(raw, `"from redis"`) {
		t.Fatalf("unexpected stored value %q", raw)
	}
	snap := exportJSON(t, env)
	if len(snap.InProgress) != 1 || snap.InProgress[0].ID != "r1" {
		t.Fatalf("unexpected export %#v", snap.InProgress)
	}

	var out strings.Builder
	if err := run(context.Background(), env.args("list", "doing"), &out, io.Discard); err != nil {
		t.Fatalf("run(list) error = %v", err)
	}
	if !strings.Contains(out.String(), "from redis") || strings.Contains(out.String(), "last saved") {
		t.Fatalf("unexpected redis list output:\n%s", out.String())
	}
}

func TestRuntimeLoggerDevFileSink(t *testing.T) {
	dir := t.TempDir()
	now := func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	var console strings.Builder
	logger, err := newRuntimeLogger(&console, loggerOptions{appName: "kolumn", devMode: true, now: now}, config.LoggingConfig{
		Level:   "debug",
		DevFile: config.DevFileConfig{Enabled: true, Dir: dir},
	})
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}

	want := filepath.Join(dir, "kolumn-20260301.log")
	if got := logger.DevLogPath(); got != want {
		t.Fatalf("DevLogPath() = %q, want %q", got, want)
	}
	logger.MuteConsole()
	if !logger.ConsoleMuted() {
		t.Fatal("expected muted console")
	}
	logger.bind("backend", "sqlite")
	logger.Info("board saved", "tasks", 3)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if console.Len() != 0 {
		t.Fatalf("expected muted console, got %q", console.String())
	}
	content, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, part := range []string{"msg=\"board saved\"", "tasks=3", "backend=sqlite"} {
		if !strings.Contains(string(content), part) {
			t.Fatalf("dev log missing %s: %q", part, string(content))
		}
	}
}

func TestRuntimeLoggerConsoleOnlyWithoutDevMode(t *testing.T) {
	var console strings.Builder
	logger, err := newRuntimeLogger(&console, loggerOptions{appName: "kolumn", dataDir: t.TempDir()}, config.LoggingConfig{
		Level:   "info",
		DevFile: config.DevFileConfig{Enabled: true},
	})
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}
	if got := logger.DevLogPath(); got != "" {
		t.Fatalf("expected no dev log, got %q", got)
	}
	logger.bind("key", "kolumn.board")
	logger.Debug("hidden")
	logger.Warn("store close failed")
	out := console.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "store close failed") || !strings.Contains(out, "key=kolumn.board") {
		t.Fatalf("unexpected console output %q", out)
	}
}

func TestRuntimeLoggerRejectsBadLevel(t *testing.T) {
	_, err := newRuntimeLogger(io.Discard, loggerOptions{appName: "kolumn"}, config.LoggingConfig{Level: "loud"})
	if err == nil {
		t.Fatal("expected level parse error")
	}
}

func TestDevLogFilePath(t *testing.T) {
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	data := filepath.Join(t.TempDir(), "data")
	abs := filepath.Join(t.TempDir(), "logs")
	cases := []struct {
		dir  string
		want string
	}{
		{"", filepath.Join(data, config.DefaultDevLogDir, "kolumn-20260301.log")},
		{"trace", filepath.Join(data, "trace", "kolumn-20260301.log")},
		{abs, filepath.Join(abs, "kolumn-20260301.log")},
	}
	for _, tc := range cases {
		if got := devLogFilePath(tc.dir, data, "kolumn", now); got != tc.want {
			t.Fatalf("devLogFilePath(%q) = %q, want %q", tc.dir, got, tc.want)
		}
	}
}

func TestLogFileStem(t *testing.T) {
	cases := map[string]string{
		"":            "kolumn",
		" kolumn ":    "kolumn",
		"my app":      "my-app",
		"team/kolumn": "team-kolumn",
		"--":          "kolumn",
		`c:\boards\x`: "c--boards-x",
	}
	for in, want := range cases {
		if got := logFileStem(in); got != want {
			t.Fatalf("logFileStem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRunInitWritesConfigOnce(t *testing.T) {
	env := newTestEnv(t)
	env.cfgPath = filepath.Join(t.TempDir(), "nested", "config.toml")

	var out strings.Builder
	if err := run(context.Background(), env.args("init"), &out, io.Discard); err != nil {
		t.Fatalf("run(init) error = %v", err)
	}
	if !strings.Contains(out.String(), "wrote "+env.cfgPath) {
		t.Fatalf("unexpected init output %q", out.String())
	}
	content, err := os.ReadFile(env.cfgPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), env.dbPath) {
		t.Fatalf("expected db path in config, got %q", string(content))
	}

	out.Reset()
	if err := run(context.Background(), env.args("init"), &out, io.Discard); err != nil {
		t.Fatalf("run(init) second error = %v", err)
	}
	if !strings.Contains(out.String(), "kept existing") {
		t.Fatalf("expected existing config kept, got %q", out.String())
	}
}
