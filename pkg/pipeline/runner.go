// Package pipeline runs documents through load, map, resolve, store and export.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/logflow/bpmnctx/pkg/errors"
	"github.com/logflow/bpmnctx/pkg/export"
	"github.com/logflow/bpmnctx/pkg/logger"
	"github.com/logflow/bpmnctx/pkg/mapper"
	"github.com/logflow/bpmnctx/pkg/moddle"
	"github.com/logflow/bpmnctx/pkg/registry"
	"github.com/logflow/bpmnctx/pkg/serializer"
	"github.com/logflow/bpmnctx/pkg/store"
	"github.com/logflow/bpmnctx/pkg/telemetry"
)

// Result is the outcome of one document run.
type Result struct {
	Path       string
	Context    *serializer.Context
	Record     *store.Record // nil without a store
	ExportPath string        // empty without an exporter
	Duration   time.Duration
	Err        error
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore saves every mapped snapshot to b.
func WithStore(b store.Backend) Option {
	return func(r *Runner) { r.store = b }
}

// WithExporter exports every mapped context into dir.
func WithExporter(e export.Exporter, dir string) Option {
	return func(r *Runner) {
		r.exporter = e
		r.exportDir = dir
	}
}

// WithExtender registers a mapping extension.
func WithExtender(fn mapper.Extender) Option {
	return func(r *Runner) { r.extender = fn }
}

// WithWorkers bounds RunBatch concurrency. Zero or less means one per CPU.
func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithProgress is called after each document, from the worker that ran it.
func WithProgress(fn func(Result)) Option {
	return func(r *Runner) { r.progress = fn }
}

// Runner wires the registry with optional storage and export. The registry
// is shared read-only across concurrent runs.
type Runner struct {
	resolve   registry.Func
	extender  mapper.Extender
	store     store.Backend
	exporter  export.Exporter
	exportDir string
	workers   int
	log       logger.Logger
	progress  func(Result)
}

// NewRunner creates a runner that resolves types with resolve.
func NewRunner(resolve registry.Func, opts ...Option) *Runner {
	r := &Runner{
		resolve: resolve,
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers <= 0 {
		r.workers = runtime.NumCPU()
	}
	return r
}

// Run processes a single document.
func (r *Runner) Run(ctx context.Context, path string) (*Result, error) {
	res := r.run(ctx, path)
	if r.progress != nil {
		r.progress(*res)
	}
	return res, res.Err
}

func (r *Runner) run(ctx context.Context, path string) (res *Result) {
	start := time.Now()
	res = &Result{Path: path}
	log := r.log.With("path", path)

	ctx, span := telemetry.Start(ctx, "pipeline.run", attribute.String("bpmnctx.path", path))
	defer func() {
		res.Duration = time.Since(start)
		telemetry.End(span, res.Err)
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	c, err := r.mapDocument(ctx, path)
	if err != nil {
		log.Warn("mapping failed", "err", err)
		res.Err = err
		return res
	}
	res.Context = c
	telemetry.SetSpanAttributes(ctx,
		attribute.String("bpmnctx.definition", c.ID()),
		attribute.Int("bpmnctx.activities", len(c.Activities())),
	)

	if r.store != nil {
		rec, err := r.save(ctx, c, path)
		if err != nil {
			log.Warn("store failed", "backend", r.store.Name(), "err", err)
			res.Err = err
			return res
		}
		res.Record = rec
	}

	if r.exporter != nil {
		out, err := r.export(ctx, c)
		if err != nil {
			log.Warn("export failed", "format", r.exporter.Format(), "err", err)
			res.Err = err
			return res
		}
		res.ExportPath = out
	}

	log.Info("mapped",
		"definition", c.ID(),
		"processes", len(c.Processes()),
		"activities", len(c.Activities()),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return res
}

func (r *Runner) mapDocument(ctx context.Context, path string) (c *serializer.Context, err error) {
	_, span := telemetry.Start(ctx, "pipeline.map")
	defer func() { telemetry.End(span, err) }()

	doc, err := moddle.Load(path)
	if err != nil {
		return nil, err
	}

	opts := []serializer.Option{serializer.WithLogger(r.log)}
	if r.extender != nil {
		opts = append(opts, serializer.WithExtender(r.extender))
	}
	return serializer.New(doc, r.resolve, opts...)
}

func (r *Runner) save(ctx context.Context, c *serializer.Context, path string) (rec *store.Record, err error) {
	ctx, span := telemetry.Start(ctx, "pipeline.store", attribute.String("bpmnctx.backend", r.store.Name()))
	defer func() { telemetry.End(span, err) }()

	data, err := c.Serialize()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStoreFailed, "serialize failed")
	}
	rec = store.NewRecord(c.ID(), path, data)
	if err := r.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *Runner) export(ctx context.Context, c *serializer.Context) (out string, err error) {
	ctx, span := telemetry.Start(ctx, "pipeline.export", attribute.String("bpmnctx.format", r.exporter.Format()))
	defer func() { telemetry.End(span, err) }()

	return r.exporter.Export(ctx, c, r.exportDir)
}

// RunBatch processes paths concurrently. A failing document does not stop the
// others; results keep the order of paths and the error lists every failure.
func (r *Runner) RunBatch(ctx context.Context, paths []string) ([]*Result, error) {
	results := make([]*Result, len(paths))

	var g errgroup.Group
	g.SetLimit(r.workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			results[i], _ = r.Run(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	var errs errors.MultiError
	for _, res := range results {
		if res.Err != nil {
			errs.Add(fmt.Errorf("%s: %w", res.Path, res.Err))
		}
	}

	r.log.Info("batch complete", "documents", len(paths), "failed", len(errs.Errors))
	return results, errs.Combined()
}

// Restore loads a stored snapshot and re-resolves it.
func (r *Runner) Restore(ctx context.Context, id string) (c *serializer.Context, rec *store.Record, err error) {
	if r.store == nil {
		return nil, nil, errors.New(errors.CodeStoreFailed, "no store configured")
	}

	ctx, span := telemetry.Start(ctx, "pipeline.restore", attribute.String("bpmnctx.record", id))
	defer func() { telemetry.End(span, err) }()

	rec, err = r.store.Load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	c, err = serializer.Deserialize(rec.Snapshot, r.resolve)
	if err != nil {
		return nil, nil, err
	}
	return c, rec, nil
}
