// bpmnctx - Normalize BPMN moddle documents into a flat, queryable context.
// Maps, stores and exports parsed BPMN definitions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/logflow/bpmnctx/pkg/config"
	"github.com/logflow/bpmnctx/pkg/logger"
	"github.com/logflow/bpmnctx/pkg/registry"
	"github.com/logflow/bpmnctx/pkg/telemetry"
	"github.com/logflow/bpmnctx/pkg/tui"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// Global flags
var (
	configFile string
	verbose    bool
	jsonLogs   bool
)

// Set up by the root command before any subcommand runs.
var (
	cfg      *config.Config
	log      logger.Logger
	types    *registry.Registry
	shutdown func(context.Context) error
)

func main() {
	err := rootCmd.Execute()
	if shutdown != nil {
		_ = shutdown(context.Background())
	}
	if err != nil {
		tui.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bpmnctx",
	Short: "bpmnctx - Flatten BPMN moddle documents into a queryable context",
	Long: `bpmnctx maps a parsed BPMN moddle document (JSON) into a flat model of
processes, activities, flows, data objects, scripts and timers, binds every
element type to a behaviour, and stores or exports the result.`,
	Version:           fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (applied after the default locations)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Write logs as JSON")

	rootCmd.AddCommand(mapCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(diffCmd)
}

// setup loads configuration and builds the logger, registry and tracer.
func setup(cmd *cobra.Command, args []string) error {
	mgr := config.NewManager()
	if err := mgr.Load(configFile); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = mgr.Get()

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.LogLevel(cfg.Log.Level)
	logCfg.JSON = cfg.Log.JSON || jsonLogs
	logCfg.AddSource = cfg.Log.Source
	if verbose {
		logCfg.Level = logger.DebugLevel
	}
	logger.Init(logCfg)
	log = logger.GetDefault()
	log.Debug("config loaded", "paths", mgr.GetPaths())

	defaults := registry.Defaults()
	types = registry.New(defaults, defaults.Aliases(cfg.Registry.Aliases))

	var err error
	shutdown, err = telemetry.Setup(cmd.Context(), telemetry.FromConfig(cfg.Telemetry, version))
	if err != nil {
		return fmt.Errorf("failed to start telemetry: %w", err)
	}

	cmd.SetContext(logger.ContextWithLogger(cmd.Context(), log))
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, message string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\n"+message)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
