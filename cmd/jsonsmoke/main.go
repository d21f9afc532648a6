package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jsonsmoke/internal/codec"
	"jsonsmoke/internal/config"
	"jsonsmoke/internal/harness"
	"jsonsmoke/internal/history"
	"jsonsmoke/internal/logging"
	"jsonsmoke/internal/timing"
)

// Set with -ldflags "-X main.buildStamp=..."
var buildStamp = "dev"

const version = "0.3.0"

// Commands annotated with annotationSettings: "skip" run without loading the
// config, so they work even when it is invalid.
const annotationSettings = "jsonsmoke/settings"

var (
	// Global flags
	verbose     bool
	workspace   string
	configPath  string
	timeout     time.Duration
	backendName string
	timingsPath string

	// Loaded once per process by loadSettings.
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "jsonsmoke",
	Short: "Smoke-test a JSON library with randomized documents",
	Long: `jsonsmoke generates random JSON trees from a seed, writes them through the
JSON library under test, reads them back and times every phase.

The same seed and size always produce the same document, so a failing run
can be replayed with --random-seed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[annotationSettings] == "skip" {
			logger = zap.NewNop()
			return nil
		}
		if err := loadSettings(); err != nil {
			return err
		}
		root, err := logging.New(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = root
		logging.For(logger, cfg.Logging, logging.CategoryBoot).Debug("configuration loaded",
			zap.String("workspace", workspace),
			zap.String("backend", cfg.Backend.Name))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/.jsonsmoke/config.yaml)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Abort after this long (0 disables)")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "JSON backend: cybergodev or stdlib (default from config)")
	rootCmd.PersistentFlags().StringVar(&timingsPath, "timings", "", "Also write phase statistics as JSON to this file")

	rootCmd.AddCommand(
		generateCmd,
		readCmd,
		roundtripCmd,
		batchCmd,
		historyCmd,
		configCmd,
		versionCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// workspaceDir resolves --workspace, defaulting to the working directory.
func workspaceDir() string {
	if workspace != "" {
		return workspace
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// loadSettings loads and validates the config once. Commands call it too so
// they work when invoked without the root command.
func loadSettings() error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg != nil {
		return nil
	}

	path := configPath
	if path == "" {
		path = config.DefaultPath(workspaceDir())
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	if backendName != "" {
		loaded.Backend.Name = backendName
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg = loaded
	return nil
}

// commandContext returns a context cancelled by SIGINT/SIGTERM and, when
// withTimeout is set, by --timeout.
func commandContext(cmd *cobra.Command, withTimeout bool) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	ctx, stop := signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
	if !withTimeout || timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// session bundles what one command needs to run the harness.
type session struct {
	runner  *harness.Runner
	backend codec.Backend
	store   *history.Store
}

func openSession() (*session, error) {
	if err := loadSettings(); err != nil {
		return nil, err
	}

	backend, err := codec.Open(cfg.Backend.Name, codec.Limits{
		MaxJSONSize:      cfg.Backend.MaxJSONSize,
		MaxDepth:         cfg.Backend.MaxDepth,
		MaxObjectKeys:    cfg.Backend.MaxObjectKeys,
		MaxArrayElements: cfg.Backend.MaxArrayElements,
	})
	if err != nil {
		return nil, err
	}
	logging.For(logger, cfg.Logging, logging.CategoryCodec).Debug("backend opened",
		zap.String("backend", backend.Name()))

	s := &session{backend: backend}
	s.runner = harness.NewRunner(backend, timing.NewTracker(),
		logging.For(logger, cfg.Logging, logging.CategoryHarness))
	s.runner.SetGeneratorLogger(logging.For(logger, cfg.Logging, logging.CategoryGenerator))

	if cfg.History.Enabled {
		store, err := openHistory()
		if err != nil {
			// Runs still work without history.
			logger.Warn("history disabled for this run", zap.Error(err))
		} else {
			s.store = store
			s.runner.SetRecorder(store)
		}
	}
	return s, nil
}

func openHistory() (*history.Store, error) {
	path := config.ResolvePath(workspaceDir(), cfg.History.Path)
	return history.Open(path, logging.For(logger, cfg.Logging, logging.CategoryHistory))
}

// finish saves --timings output and releases the session.
func (s *session) finish() error {
	var err error
	if timingsPath != "" {
		if saveErr := s.runner.Tracker().Save(timingsPath); saveErr != nil {
			err = fmt.Errorf("failed to save timings: %w", saveErr)
		}
	}
	if s.store != nil {
		_ = s.store.Close()
	}
	_ = s.backend.Close()
	return err
}

// outputPath resolves a file argument against the configured output dir.
func outputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(config.ResolvePath(workspaceDir(), cfg.Output.Dir), name)
}
