// Package main provides the CLI entrypoint for typegate.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/typegate/internal/config"
	"github.com/verte-zerg/typegate/internal/gate"
	"github.com/verte-zerg/typegate/internal/generator"
	"github.com/verte-zerg/typegate/internal/logging"
	"github.com/verte-zerg/typegate/internal/lookup"
	"github.com/verte-zerg/typegate/internal/model"
	"github.com/verte-zerg/typegate/internal/store"
	"github.com/verte-zerg/typegate/internal/tui"
	"github.com/verte-zerg/typegate/internal/typing"
)

const (
	defaultLogLevel = "info"
	maxDurationSec  = 3600
	maxLength       = 100000
)

var (
	lookupURL      string
	lookupTimeout  time.Duration
	lookupFallback string
	testTopic      string
	testDuration   int
	testLength     int
	dbPath         string
	logPath        string
	logLevel       string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "typegate",
		Short:         "License-gated typing assessment",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runAssessmentCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&lookupURL, "lookup-url", lookup.DefaultURL, "URL returning the client address as {\"ip\": ...}")
	flags.DurationVar(&lookupTimeout, "lookup-timeout", lookup.DefaultTimeout, "address lookup timeout")
	flags.StringVar(&lookupFallback, "fallback-id", lookup.DefaultFallback, "client identifier when the lookup fails")
	flags.StringVar(&dbPath, "db", config.DefaultDBPath(), "record store path")
	flags.StringVar(&logPath, "log-file", config.DefaultLogPath(), "log file path")
	flags.StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")

	rootCmd.Flags().StringVar(&testTopic, "topic", "", "preselected topic (see: typegate topics)")
	rootCmd.Flags().IntVar(&testDuration, "duration", typing.DefaultDurationSec, "assessment duration in seconds")
	rootCmd.Flags().IntVar(&testLength, "length", generator.DefaultLength, "generated text length in characters")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newTopicsCmd())
	rootCmd.AddCommand(newCodesCmd())
	rootCmd.AddCommand(newClientsCmd())

	return rootCmd
}

// resolveConfig merges the config file under explicitly set flags.
func resolveConfig(cmd *cobra.Command) (model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "lookup-url", &lookupURL, fileCfg.Lookup.URL)
	if err := applyDurationConfig(cmd, "lookup-timeout", &lookupTimeout, fileCfg.Lookup.Timeout); err != nil {
		return model.Config{}, err
	}
	applyStringConfig(cmd, "fallback-id", &lookupFallback, fileCfg.Lookup.Fallback)
	applyStringConfig(cmd, "topic", &testTopic, fileCfg.Assessment.Topic)
	applyIntConfig(cmd, "duration", &testDuration, fileCfg.Assessment.Duration)
	applyIntConfig(cmd, "length", &testLength, fileCfg.Assessment.Length)
	applyStringConfig(cmd, "db", &dbPath, fileCfg.Store.Path)
	applyStringConfig(cmd, "log-file", &logPath, fileCfg.Log.Path)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)

	cfg := model.Config{
		LookupURL:     lookupURL,
		LookupTimeout: lookupTimeout,
		FallbackID:    lookupFallback,
		Topic:         testTopic,
		DurationSec:   testDuration,
		ContentLength: testLength,
		DBPath:        dbPath,
		LogPath:       logPath,
		LogLevel:      logLevel,
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

// env holds the collaborators shared by every command.
type env struct {
	cfg   model.Config
	log   *zap.Logger
	store *store.Store
}

func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	st, err := store.Open(cfg.DBPath, log)
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return &env{cfg: cfg, log: log, store: st}, nil
}

func (e *env) close() {
	if cerr := e.store.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
	// Best-effort flush.
	_ = e.log.Sync()
}

func (e *env) resolveClient(ctx context.Context) string {
	resolver := lookup.New(e.cfg.LookupURL, e.cfg.FallbackID, e.cfg.LookupTimeout, e.log)
	return resolver.Resolve(ctx)
}

func runAssessmentCmd(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client := e.resolveClient(ctx)
	g := gate.New(e.store, gate.Options{
		Client:    client,
		Generator: generator.NewShuffled(time.Now().UnixNano()),
		Typing: typing.Options{
			DurationSec:   e.cfg.DurationSec,
			ContentLength: e.cfg.ContentLength,
		},
		Log: e.log,
	})
	if err := g.Start(ctx); err != nil {
		e.log.Error("failed to read access status", zap.Error(err))
	}
	if e.cfg.Topic != "" {
		if err := g.SelectTopic(e.cfg.Topic); err != nil {
			return err
		}
	}

	m := tui.NewModel(ctx, g, e.cfg.DurationSec, e.log)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *string) error {
	if value == nil {
		return nil
	}
	if cmd.Flags().Changed(name) {
		return nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return fmt.Errorf("invalid %s in config: %w", name, err)
	}
	*target = d
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# typegate configuration
# Uncomment a value to enable it. CLI flags override config values.

[lookup]
# url = %q
# timeout = %q
# fallback = %q

[assessment]
# topic = "technology"     # Preselected topic (see: typegate topics)
# duration = %d            # Assessment duration in seconds
# length = %d             # Generated text length in characters

[store]
# path = %q

[log]
# level = %q                # debug, info, warn, error
# path = %q
`,
		lookup.DefaultURL,
		lookup.DefaultTimeout.String(),
		lookup.DefaultFallback,
		typing.DefaultDurationSec,
		generator.DefaultLength,
		config.DefaultDBPath(),
		defaultLogLevel,
		config.DefaultLogPath(),
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.DurationSec <= 0 || cfg.DurationSec > maxDurationSec {
		return fmt.Errorf("--duration must be between 1 and %d", maxDurationSec)
	}
	if cfg.ContentLength <= 0 || cfg.ContentLength > maxLength {
		return fmt.Errorf("--length must be between 1 and %d", maxLength)
	}
	if cfg.LookupTimeout <= 0 {
		return fmt.Errorf("--lookup-timeout must be > 0")
	}
	if cfg.Topic != "" && !generator.KnownTopic(cfg.Topic) {
		return fmt.Errorf("unknown topic %q (see: typegate topics)", cfg.Topic)
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return fmt.Errorf("--db must not be empty")
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
