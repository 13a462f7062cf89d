package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"

	"github.com/hylla/kolumn/internal/config"
	"github.com/hylla/kolumn/internal/platform"
)

// logSink is one destination for runtime events.
type logSink struct {
	*charmLog.Logger
	console bool
}

// loggerOptions carries the CLI state the runtime logger depends on.
type loggerOptions struct {
	appName string
	devMode bool
	// dataDir anchors a relative logging.dev_file.dir.
	dataDir string
	now     func() time.Time
}

// runtimeLogger writes command events to stderr and, in dev mode, to a daily
// logfmt file. It satisfies app.Logger.
type runtimeLogger struct {
	sinks    []logSink
	muted    bool
	file     *os.File
	filePath string
}

// newRuntimeLogger builds the console sink and, when dev mode and the config
// both allow it, the dev-file sink.
func newRuntimeLogger(stderr io.Writer, opts loggerOptions, cfg config.LoggingConfig) (*runtimeLogger, error) {
	level, err := charmLog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if opts.now == nil {
		opts.now = time.Now
	}

	l := &runtimeLogger{}
	l.sinks = append(l.sinks, logSink{
		Logger:  newSinkLogger(stderr, opts.appName, level, charmLog.TextFormatter),
		console: true,
	})
	if !opts.devMode || !cfg.DevFile.Enabled {
		return l, nil
	}

	path := devLogFilePath(cfg.DevFile.Dir, opts.dataDir, opts.appName, opts.now())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log file: %w", err)
	}
	l.file = f
	l.filePath = path
	l.sinks = append(l.sinks, logSink{Logger: newSinkLogger(f, opts.appName, level, charmLog.LogfmtFormatter)})
	return l, nil
}

func newSinkLogger(w io.Writer, prefix string, level charmLog.Level, formatter charmLog.Formatter) *charmLog.Logger {
	return charmLog.NewWithOptions(w, charmLog.Options{
		Level:           level,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter,
	})
}

// bind attaches keyvals to every later event on every sink.
func (l *runtimeLogger) bind(keyvals ...any) {
	for i := range l.sinks {
		l.sinks[i].Logger = l.sinks[i].With(keyvals...)
	}
}

// MuteConsole stops events reaching stderr. The TUI owns the terminal while
// it runs.
func (l *runtimeLogger) MuteConsole() {
	l.muted = true
}

// ConsoleMuted reports whether stderr is muted.
func (l *runtimeLogger) ConsoleMuted() bool {
	return l.muted
}

// DevLogPath returns the dev log file, or "" when file logging is off.
func (l *runtimeLogger) DevLogPath() string {
	return l.filePath
}

// Close closes the dev log file. Calling it twice is safe.
func (l *runtimeLogger) Close() error {
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil
	return f.Close()
}

func (l *runtimeLogger) log(level charmLog.Level, msg string, keyvals []any) {
	for _, sink := range l.sinks {
		if sink.console && l.muted {
			continue
		}
		sink.Log(level, msg, keyvals...)
	}
}

func (l *runtimeLogger) Debug(msg string, keyvals ...any) {
	l.log(charmLog.DebugLevel, msg, keyvals)
}

func (l *runtimeLogger) Info(msg string, keyvals ...any) {
	l.log(charmLog.InfoLevel, msg, keyvals)
}

func (l *runtimeLogger) Warn(msg string, keyvals ...any) {
	l.log(charmLog.WarnLevel, msg, keyvals)
}

func (l *runtimeLogger) Error(msg string, keyvals ...any) {
	l.log(charmLog.ErrorLevel, msg, keyvals)
}

// devLogFilePath names the log file for the day of now. A relative dir is
// placed under dataDir.
func devLogFilePath(dir, dataDir, appName string, now time.Time) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = config.DefaultDevLogDir
	}
	if !filepath.IsAbs(dir) && dataDir != "" {
		dir = filepath.Join(dataDir, dir)
	}
	name := logFileStem(appName) + "-" + now.UTC().Format("20060102") + ".log"
	return filepath.Join(filepath.Clean(dir), name)
}

// logFileStem keeps letters, digits, dot and underscore from appName and
// turns everything else into dashes.
func logFileStem(appName string) string {
	stem := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			return r
		default:
			return '-'
		}
	}, strings.TrimSpace(appName))
	stem = strings.Trim(stem, "-.")
	if stem == "" {
		return platform.DefaultAppName
	}
	return stem
}
