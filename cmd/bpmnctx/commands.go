package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/logflow/bpmnctx/pkg/errors"
	"github.com/logflow/bpmnctx/pkg/export"
	"github.com/logflow/bpmnctx/pkg/mapper"
	"github.com/logflow/bpmnctx/pkg/moddle"
	"github.com/logflow/bpmnctx/pkg/pipeline"
	"github.com/logflow/bpmnctx/pkg/registry"
	"github.com/logflow/bpmnctx/pkg/tui"
)

// Map flags
var (
	mapOutput  string
	mapSummary bool
	mapStore   bool
)

var mapCmd = &cobra.Command{
	Use:   "map <file>",
	Short: "Map a moddle document and print its serialized context",
	Example: `  bpmnctx map order.json
  bpmnctx map order.json -o order.snapshot.json
  bpmnctx map order.json --summary --store`,
	Args: cobra.ExactArgs(1),
	RunE: runMap,
}

func init() {
	mapCmd.Flags().StringVarP(&mapOutput, "output", "o", "", "Write the snapshot to a file instead of stdout")
	mapCmd.Flags().BoolVarP(&mapSummary, "summary", "s", false, "Print entity counts instead of the snapshot")
	mapCmd.Flags().BoolVar(&mapStore, "store", false, "Also save the snapshot to the configured store")
}

func runMap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var opts []pipeline.Option
	if mapStore {
		b, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeQuietly(b)
		opts = append(opts, pipeline.WithStore(b))
	}

	res, err := newRunner(opts...).Run(ctx, args[0])
	if err != nil {
		return err
	}

	if mapSummary {
		tui.PrintSummary(os.Stdout, res.Context, res.Duration)
	} else {
		data, err := res.Context.Serialize()
		if err != nil {
			return err
		}
		if err := writeOutput(mapOutput, data); err != nil {
			return err
		}
	}
	if res.Record != nil {
		fmt.Fprintf(os.Stderr, "stored as %s\n", res.Record.ID)
	}
	return nil
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Check flags
var checkList bool

var checkCmd = &cobra.Command{
	Use:   "check [files...]",
	Short: "Verify every element type in the documents has a behaviour",
	Example: `  bpmnctx check order.json billing.json
  bpmnctx check --list`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkList, "list", false, "List the registered types")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkList {
		tui.PrintTypes(os.Stdout, "registered types", types.Names())
		return nil
	}
	if len(args) == 0 {
		return fmt.Errorf("no documents given")
	}

	var errs errors.MultiError
	for _, path := range args {
		doc, err := moddle.Load(path)
		if err != nil {
			errs.Add(err)
			continue
		}
		m, err := mapper.Map(doc)
		if err != nil {
			errs.Add(err)
			continue
		}
		if err := types.Check(registry.TypesOf(m)...); err != nil {
			errs.Add(fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Fprintf(os.Stdout, "✓ %s\n", path)
	}
	return errs.Combined()
}

// Export flags
var (
	exportFormat      string
	exportCompression string
	exportDir         string
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export a mapped document as Parquet, XLSX or DuckDB",
	Example: `  bpmnctx export order.json
  bpmnctx export order.json -f xlsx -d out
  bpmnctx export order.json -f parquet --compression zstd`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Export format: parquet, xlsx, duckdb")
	exportCmd.Flags().StringVar(&exportCompression, "compression", "", "Parquet compression: snappy, zstd, gzip, lz4, none")
	exportCmd.Flags().StringVarP(&exportDir, "dir", "d", "", "Output directory")
}

func runExport(cmd *cobra.Command, args []string) error {
	exp, dir, err := exporterFromFlags(exportFormat, exportCompression, exportDir)
	if err != nil {
		return err
	}

	res, err := newRunner(pipeline.WithExporter(exp, dir)).Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	tui.PrintSummary(os.Stdout, res.Context, res.Duration)
	fmt.Fprintf(os.Stdout, "  %s → %s\n\n", exp.Format(), res.ExportPath)
	return nil
}

// exporterFromFlags overlays flag values on the export config.
func exporterFromFlags(format, compression, dir string) (export.Exporter, string, error) {
	ec := cfg.Export
	if format != "" {
		ec.Format = format
	}
	if compression != "" {
		ec.Compression = compression
	}
	if dir != "" {
		ec.Dir = dir
	}
	exp, err := export.New(ec)
	if err != nil {
		return nil, "", err
	}
	return exp, ec.Dir, nil
}

var queryCmd = &cobra.Command{
	Use:   "query <database> <sql>",
	Short: "Run SQL against a DuckDB export",
	Example: `  bpmnctx query Definitions_order.duckdb "SELECT kind, count(*) FROM entities GROUP BY kind"`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	start := time.Now()
	res, err := export.Query(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	tui.PrintQuery(os.Stdout, res)
	log.Debug("query complete", "rows", len(res.Rows), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// newRunner builds a pipeline runner over the configured registry.
func newRunner(opts ...pipeline.Option) *pipeline.Runner {
	base := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithWorkers(cfg.Batch.Workers),
	}
	return pipeline.NewRunner(types.Resolve, append(base, opts...)...)
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		log.Warn("close failed", "err", err)
	}
}
