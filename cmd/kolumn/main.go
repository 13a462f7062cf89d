package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hylla/kolumn/internal/adapters/storage/redisstore"
	"github.com/hylla/kolumn/internal/adapters/storage/sqlite"
	"github.com/hylla/kolumn/internal/app"
	"github.com/hylla/kolumn/internal/config"
	"github.com/hylla/kolumn/internal/domain"
	"github.com/hylla/kolumn/internal/platform"
	"github.com/hylla/kolumn/internal/reorder"
	"github.com/hylla/kolumn/internal/tui"
)

// version is set at build time.
var version = "dev"

// program is the part of tea.Program the CLI needs.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program. Tests swap it out.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// run executes one CLI invocation.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// newRootCommand wires the command tree.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("KOLUMN_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultApp := platform.DefaultAppName
	if envApp := strings.TrimSpace(os.Getenv("KOLUMN_APP_NAME")); envApp != "" {
		defaultApp = envApp
	}

	root := &cobra.Command{
		Use:           "kolumn",
		Short:         "A three-column kanban board for the terminal",
		Long:          "kolumn is a terminal kanban board with To Do, In Progress and Done columns.\nDrag cards with the mouse or move them from the keyboard.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, stderr)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	flags.StringVar(&opts.appName, "app", defaultApp, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		newPathsCommand(opts, stdout),
		newInitCommand(opts, stdout),
		newListCommand(opts, stdout, stderr),
		newExportCommand(opts, stdout, stderr),
		newImportCommand(opts, stderr),
		newResetCommand(opts, stdout, stderr),
	)
	return root
}

func newPathsCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the resolved config, data and database paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := resolvePaths(opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
			return nil
		},
	}
}

func newInitCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file if none exists",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := resolvePaths(opts)
			if err != nil {
				return err
			}
			configPath, dbPath, _ := resolveConfigAndDB(opts, paths)
			created, err := config.WriteIfMissing(configPath, config.Default(dbPath))
			if err != nil {
				return fmt.Errorf("write config %q: %w", configPath, err)
			}
			if created {
				_, _ = fmt.Fprintf(stdout, "wrote %s\n", configPath)
			} else {
				_, _ = fmt.Fprintf(stdout, "kept existing %s\n", configPath)
			}
			return nil
		},
	}
}

func newListCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list [column]",
		Short: "Print the stored tasks, optionally for one column",
		Example: `  kolumn list
  kolumn list doing`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			columns := domain.Columns()
			if len(args) == 1 {
				key, err := domain.ParseColumnKey(args[0])
				if err != nil {
					return fmt.Errorf("column %q: %w", args[0], err)
				}
				columns = []domain.ColumnKey{key}
			}
			return withRuntime(cmd.Context(), opts, "list", stderr, func(ctx context.Context, rt *appRuntime) error {
				return runList(ctx, rt, columns, stdout)
			})
		},
	}
}

func newExportCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		format  string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored board as JSON or YAML",
		Example: `  kolumn export
  kolumn export --format yaml --out board.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, "export", stderr, func(ctx context.Context, rt *appRuntime) error {
				return runExport(ctx, rt.svc, format, outPath, stdout)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	cmd.Flags().StringVar(&outPath, "out", "-", "output file path ('-' for stdout)")
	return cmd
}

func newImportCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Validate a JSON or YAML board file and replace the stored board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			return withRuntime(cmd.Context(), opts, "import", stderr, func(ctx context.Context, rt *appRuntime) error {
				return runImport(ctx, rt.svc, inPath)
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input board file (.json, .yaml or .yml)")
	return cmd
}

func newResetCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the stored board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, "reset", stderr, func(ctx context.Context, rt *appRuntime) error {
				if err := rt.svc.Reset(ctx); err != nil {
					return fmt.Errorf("reset board: %w", err)
				}
				_, _ = fmt.Fprintln(stdout, "board cleared")
				return nil
			})
		},
	}
}

// appRuntime is the resolved state every storage-backed command shares.
type appRuntime struct {
	cfg        config.Config
	configPath string
	logger     *runtimeLogger
	store      app.KeyValueStore
	svc        *app.Service
	closeStore func() error
}

// Close releases the store and the log sinks.
func (rt *appRuntime) Close() error {
	var errs []error
	if rt.closeStore != nil {
		if err := rt.closeStore(); err != nil {
			rt.logger.Warn("store close failed", "err", err)
			errs = append(errs, err)
		}
	}
	if err := rt.logger.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// withRuntime opens the runtime, runs fn and logs the command lifecycle.
func withRuntime(ctx context.Context, opts *rootOptions, command string, stderr io.Writer, fn func(context.Context, *appRuntime) error) error {
	rt, err := openRuntime(ctx, opts, command, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil && !rt.logger.ConsoleMuted() {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime: %v\n", closeErr)
		}
	}()

	rt.logger.Info("command flow start", "command", command)
	if err := fn(ctx, rt); err != nil {
		rt.logger.Error("command flow failed", "command", command, "err", err)
		return fmt.Errorf("run %s command: %w", command, err)
	}
	rt.logger.Info("command flow complete", "command", command)
	return nil
}

func resolvePaths(opts *rootOptions) (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
}

// resolveConfigAndDB applies flag, environment and platform defaults in that
// order. The bool reports whether the db path came from a flag or env var.
func resolveConfigAndDB(opts *rootOptions, paths platform.Paths) (string, string, bool) {
	configPath := opts.configPath
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("KOLUMN_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(opts.dbPath)
	if dbPath != "" {
		return configPath, dbPath, true
	}
	if envPath := strings.TrimSpace(os.Getenv("KOLUMN_DB_PATH")); envPath != "" {
		return configPath, envPath, true
	}
	return configPath, paths.DBPath, false
}

// openRuntime resolves paths and config, then opens logging, storage and the
// board service.
func openRuntime(ctx context.Context, opts *rootOptions, command string, stderr io.Writer) (*appRuntime, error) {
	paths, err := resolvePaths(opts)
	if err != nil {
		return nil, err
	}

	configPath, dbPath, dbOverridden := resolveConfigAndDB(opts, paths)

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Storage.Path = dbPath
	}
	cfg.Storage.RedisPassword = os.Getenv("KOLUMN_REDIS_PASSWORD")

	logger, err := newRuntimeLogger(stderr, loggerOptions{
		appName: opts.appName,
		devMode: opts.devMode,
		dataDir: paths.DataDir,
		now:     time.Now,
	}, cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		logger.MuteConsole()
	}
	logger.bind("backend", cfg.Storage.Backend, "key", cfg.Storage.Key)

	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", dbPath)
	logger.Info("configuration loaded", "config_path", configPath, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}

	kv, closeStore, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	priority, err := domain.ParsePriority(cfg.Board.DefaultPriority)
	if err != nil {
		_ = closeStore()
		_ = logger.Close()
		return nil, fmt.Errorf("board.default_priority %q: %w", cfg.Board.DefaultPriority, err)
	}
	svc := app.NewService(kv, uuid.NewString, logger, app.ServiceConfig{
		StorageKey:      cfg.Storage.Key,
		DefaultPriority: priority,
	})
	logger.Debug("board service initialized", "default_priority", priority)

	return &appRuntime{
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
		store:      kv,
		svc:        svc,
		closeStore: closeStore,
	}, nil
}

// openStore opens the configured key-value backend.
func openStore(ctx context.Context, cfg config.StorageConfig, logger *runtimeLogger) (app.KeyValueStore, func() error, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		logger.Info("opening redis store", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		store, err := redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Error("redis open failed", "addr", cfg.RedisAddr, "err", err)
			return nil, nil, fmt.Errorf("open redis store: %w", err)
		}
		logger.Info("redis store ready", "addr", cfg.RedisAddr)
		return store, store.Close, nil
	default:
		logger.Info("opening sqlite store", "db_path", cfg.Path)
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			logger.Error("sqlite open failed", "db_path", cfg.Path, "err", err)
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("sqlite store ready", "db_path", cfg.Path, "migrations", "ensured")
		return store, store.Close, nil
	}
}

// runTUI starts the board program.
func runTUI(ctx context.Context, opts *rootOptions, stderr io.Writer) error {
	return withRuntime(ctx, opts, "tui", stderr, func(_ context.Context, rt *appRuntime) error {
		policy, err := reorder.ParseInvalidDropPolicy(rt.cfg.Board.InvalidDrop)
		if err != nil {
			return err
		}
		m := tui.NewModel(
			rt.svc,
			tui.WithInvalidDropPolicy(policy),
			tui.WithConfirmDelete(rt.cfg.Board.ConfirmDelete),
			tui.WithShowHelp(rt.cfg.UI.ShowHelp),
		)
		rt.logger.Info("starting tui program loop")
		if _, err := programFactory(m).Run(); err != nil {
			return fmt.Errorf("run tui program: %w", err)
		}
		return nil
	})
}

// updateTimer is implemented by stores that record write times.
type updateTimer interface {
	UpdatedAt(ctx context.Context, key string) (time.Time, bool, error)
}

// runList prints columns of the stored board, one task per line.
func runList(ctx context.Context, rt *appRuntime, columns []domain.ColumnKey, stdout io.Writer) error {
	board, err := rt.svc.Load(ctx)
	if err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	if rt.svc.Recovered() {
		_, _ = fmt.Fprintln(stdout, "stored board was unreadable, showing an empty board")
	}
	for idx, key := range columns {
		if idx > 0 {
			_, _ = fmt.Fprintln(stdout)
		}
		tasks := board.Tasks(key)
		_, _ = fmt.Fprintf(stdout, "%s (%d)\n", key.Name(), len(tasks))
		for _, task := range tasks {
			_, _ = fmt.Fprintf(stdout, "  %-8s %s\n", "["+string(task.Priority)+"]", task.Text)
		}
	}
	if timer, ok := rt.store.(updateTimer); ok {
		updated, found, err := timer.UpdatedAt(ctx, rt.cfg.Storage.Key)
		if err != nil {
			return fmt.Errorf("read board update time: %w", err)
		}
		if found {
			_, _ = fmt.Fprintf(stdout, "\nlast saved %s\n", updated.Format(time.RFC3339))
		}
	}
	return nil
}

// runExport writes the stored board in the requested format.
func runExport(ctx context.Context, svc *app.Service, format, outPath string, stdout io.Writer) error {
	board, err := svc.Load(ctx)
	if err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	if svc.Recovered() {
		return fmt.Errorf("export board: %w", app.ErrCorruptSnapshot)
	}
	snap := app.SnapshotFromBoard(board)

	var encoded []byte
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		encoded, err = json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("encode snapshot json: %w", err)
		}
		encoded = append(encoded, '\n')
	case "yaml", "yml":
		encoded, err = yaml.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encode snapshot yaml: %w", err)
		}
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}

	if outPath == "" || outPath == "-" {
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write snapshot to stdout: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export output dir: %w", err)
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

// runImport validates a board file and replaces the stored board with it.
// YAML input is converted to JSON first so both go through the same schema.
func runImport(ctx context.Context, svc *app.Service, inPath string) error {
	content, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(inPath)) {
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return fmt.Errorf("decode snapshot yaml: %w", err)
		}
		content, err = json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode snapshot json: %w", err)
		}
	}
	board, err := app.DecodeSnapshot(content, uuid.NewString)
	if err != nil {
		return fmt.Errorf("validate import file: %w", err)
	}
	if _, err := svc.Load(ctx); err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	if err := svc.ReplaceBoard(ctx, board); err != nil {
		return fmt.Errorf("replace board: %w", err)
	}
	return nil
}

// parseBoolEnv reads a boolean environment variable.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
