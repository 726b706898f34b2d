// Package cmd implements the slidecast Cobra command tree.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/slidecast/slidecast/internal/checkpoint"
	"github.com/slidecast/slidecast/internal/config"
	"github.com/slidecast/slidecast/internal/logging"
)

// Version, Commit, and Date are set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	configFlag    string
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "slidecast",
	Short: "Render, inspect and recover slide presentation recordings",
	Long: `slidecast - Render, inspect and recover slide presentation recordings

A recording pairs an audio track with the page visits and annotation
actions of a presentation. While a session records, its state is
checkpointed so an interrupted recording can be recovered later.

Examples:
  # Show the pages and actions of a recording
  slidecast inspect talk.scr

  # List checkpoints left by interrupted sessions
  slidecast checkpoints

  # Rebuild the latest interrupted session into a recording
  slidecast recover --output talk.scr

  # Remove leftover checkpoints
  slidecast clean

  # Check a presentation script against its audio track
  slidecast validate --audio talk.wav talk.yaml

  # Render a recording offline from a script and an audio track
  slidecast record --script talk.yaml --audio talk.wav --output talk.scr`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. An interrupt cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() { //nolint:gochecknoinits // Standard cobra pattern
	rootCmd.SetVersionTemplate(fmt.Sprintf("slidecast version {{.Version}} (commit: %s, built: %s)\n", Commit, Date))
	addRootFlags(rootCmd)
}

func addRootFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (.yaml, .yml or .toml); defaults to $SLIDECAST_CONFIG")
	root.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level override: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format override: console, json")
}

// loadRuntime loads the config named by --config (or SLIDECAST_CONFIG),
// applies command-line overrides and builds the logger writing to stderr.
func loadRuntime(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path := configFlag
	if path == "" {
		path = os.Getenv("SLIDECAST_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = strings.ToLower(logLevelFlag)
	}
	if logFormatFlag != "" {
		cfg.Logging.Format = strings.ToLower(logFormatFlag)
	}
	logger, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// cliEnv is what every command builds from config and root flags.
type cliEnv struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *checkpoint.Store
}

// openStore builds a checkpoint store over dir, or the configured directory
// when dir is empty. opts are applied after the configured defaults.
func openStore(cmd *cobra.Command, dir string, opts ...checkpoint.Option) (*cliEnv, error) {
	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = cfg.Checkpoint.Dir
	} else if dir, err = config.ExpandPath(dir); err != nil {
		return nil, fmt.Errorf("failed to resolve checkpoint dir: %w", err)
	}
	opts = append([]checkpoint.Option{
		checkpoint.WithLogger(logger),
		checkpoint.WithFormat(cfg.AudioFormat()),
	}, opts...)
	return &cliEnv{cfg: cfg, logger: logger, store: checkpoint.New(dir, opts...)}, nil
}

func status(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "slidecast: "+format+"\n", args...)
}
