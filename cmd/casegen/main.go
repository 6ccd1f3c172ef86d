// Package main provides the casegen binary entry point.
// Casegen turns requirement documents into traceable test cases through a
// structured completion backend and manages the resulting suite.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	// Register LLM providers via init()
	_ "github.com/c360studio/casegen/llm/providers"

	"github.com/c360studio/casegen/config"
	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "casegen"
)

// openApp builds the App for a command. Tests replace it.
var openApp = NewApp

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	workspace  string
	logLevel   string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Requirement-driven test case generation",
		Long: `Casegen extracts requirements from documents, generates test cases
linked to them and keeps the suite maintained.

It provides:
- Requirement extraction from text, markdown, HTML, PDF and API specs
- Test case generation with requirement traceability
- Improvement, automation scripts, duplicate detection and impact healing

Results are stored in a local SQLite workspace or a NATS KV bucket and
printed as JSON.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&g.workspace, "workspace", "", "Workspace directory (default: project or git root)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		generateCmd(g),
		requirementsCmd(g),
		testCasesCmd(g),
		traceCmd(g),
		improveCmd(g),
		automateCmd(g),
		duplicatesCmd(g),
		impactCmd(g),
		healCmd(g),
		healImpactedCmd(g),
		bulkEditCmd(g),
		usageCmd(g),
		watchCmd(g),
		initCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}

func newLogger(w io.Writer, level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// loadConfig applies the layered config and the --workspace override.
func (g *globalFlags) loadConfig(logger *slog.Logger) (*config.Config, error) {
	loader := config.NewLoader(logger)
	var absWorkspace string
	if g.workspace != "" {
		abs, err := filepath.Abs(g.workspace)
		if err != nil {
			return nil, fmt.Errorf("resolve workspace: %w", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("stat workspace: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("not a directory: %s", abs)
		}
		absWorkspace = abs
		loader.FromDir(abs)
	}

	cfg, err := loader.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if absWorkspace != "" {
		cfg.Workspace = absWorkspace
	}
	return cfg, nil
}

// withApp loads config, opens the App, runs fn and closes the App.
func (g *globalFlags) withApp(cmd *cobra.Command, configure func(*config.Config), fn func(context.Context, *App) error) error {
	logger := newLogger(cmd.ErrOrStderr(), g.logLevel)
	slog.SetDefault(logger)

	cfg, err := g.loadConfig(logger)
	if err != nil {
		return err
	}
	if configure != nil {
		configure(cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	ctx := cmd.Context()
	app, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.Warn("Close workspace failed", "error", cerr)
		}
	}()
	return fn(ctx, app)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
