package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/logflow/bpmnctx/pkg/pipeline"
	"github.com/logflow/bpmnctx/pkg/tui"
	"github.com/logflow/bpmnctx/pkg/watch"
)

// Batch and watch flags
var (
	batchWorkers int
	batchStore   bool
	batchExport  bool
	batchFormat  string
	batchDir     string

	watchDebounce time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch <files|dirs>...",
	Short: "Map many documents concurrently",
	Long: `Map every given document, and every *.json file in given directories,
with a bounded worker pool. A failing document does not stop the others.`,
	Example: `  bpmnctx batch models/ --store
  bpmnctx batch a.json b.json --export -f duckdb -d out -w 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

var watchCmd = &cobra.Command{
	Use:   "watch <files|dirs>...",
	Short: "Re-map documents whenever they change",
	Example: `  bpmnctx watch models/ --store
  bpmnctx watch order.json --export -f xlsx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	for _, cmd := range []*cobra.Command{batchCmd, watchCmd} {
		cmd.Flags().BoolVar(&batchStore, "store", false, "Save snapshots to the configured store")
		cmd.Flags().BoolVar(&batchExport, "export", false, "Export every mapped document")
		cmd.Flags().StringVarP(&batchFormat, "format", "f", "", "Export format: parquet, xlsx, duckdb")
		cmd.Flags().StringVarP(&batchDir, "dir", "d", "", "Export directory")
	}
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "Concurrent documents (default from config, 0 = CPUs)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Quiet period before re-mapping (default from config)")
}

// runnerOptions builds the store and export options shared by batch and watch.
// The returned cleanup closes the store.
func runnerOptions(ctx context.Context) ([]pipeline.Option, func(), error) {
	var opts []pipeline.Option
	cleanup := func() {}

	if batchExport {
		exp, dir, err := exporterFromFlags(batchFormat, "", batchDir)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, pipeline.WithExporter(exp, dir))
	}
	if batchStore {
		b, err := openStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, pipeline.WithStore(b))
		cleanup = func() { closeQuietly(b) }
	}
	return opts, cleanup, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	paths, err := expandPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no documents found")
	}

	ctx, cancel := signalContext(cmd.Context(), "Cancelling...")
	defer cancel()

	opts, cleanup, err := runnerOptions(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	bar := tui.ShowProgress(os.Stderr, len(paths), "mapping")
	opts = append(opts, pipeline.WithProgress(func(pipeline.Result) { _ = bar.Add(1) }))
	if batchWorkers > 0 {
		opts = append(opts, pipeline.WithWorkers(batchWorkers))
	}

	start := time.Now()
	results, err := newRunner(opts...).RunBatch(ctx, paths)
	_ = bar.Finish()

	tui.PrintBatchReport(os.Stdout, results, time.Since(start))
	if err != nil {
		return fmt.Errorf("%d of %d documents failed", failures(results), len(results))
	}
	return nil
}

func failures(results []*pipeline.Result) int {
	n := 0
	for _, res := range results {
		if res != nil && res.Err != nil {
			n++
		}
	}
	return n
}

// expandPaths replaces directories with the *.json files they contain.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// Missing files are reported per document.
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context(), "Stopping watcher...")
	defer cancel()

	opts, cleanup, err := runnerOptions(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	runner := newRunner(opts...)

	debounce := cfg.Watch.Debounce
	if watchDebounce > 0 {
		debounce = watchDebounce
	}

	w, err := watch.NewWatcher(
		func(ctx context.Context, path string) error {
			res, err := runner.Run(ctx, path)
			if err != nil {
				return err
			}
			tui.PrintSummary(os.Stdout, res.Context, res.Duration)
			return nil
		},
		watch.WithDebounce(debounce),
		watch.WithLogger(log),
		watch.WithErrorHandler(func(path string, err error) {
			fmt.Fprintf(os.Stderr, "%s: ", path)
			tui.PrintError(os.Stderr, err)
		}),
	)
	if err != nil {
		return err
	}

	for _, path := range args {
		if err := w.Watch(path); err != nil {
			_ = w.Close()
			return err
		}
	}

	log.Info("watching", "paths", args, "debounce", debounce)
	err = w.Run(ctx)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
