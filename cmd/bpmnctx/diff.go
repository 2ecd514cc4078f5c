package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/logflow/bpmnctx/pkg/diff"
	"github.com/logflow/bpmnctx/pkg/pipeline"
	"github.com/logflow/bpmnctx/pkg/serializer"
	"github.com/logflow/bpmnctx/pkg/store"
)

// Diff flags
var (
	diffSnapshots bool
	diffExitCode  bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <left> <right>",
	Short: "Compare two documents or stored snapshots",
	Example: `  bpmnctx diff order-v1.json order-v2.json
  bpmnctx diff --snapshots 4f1c... 9a2e...`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffSnapshots, "snapshots", false, "Arguments are stored snapshot ids")
	diffCmd.Flags().BoolVar(&diffExitCode, "exit-code", false, "Fail when the two differ")
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var left, right *serializer.Context
	var err error
	if diffSnapshots {
		err = withRunnerStore(ctx, func(r *pipeline.Runner, _ store.Backend) error {
			if left, err = restore(ctx, r, args[0]); err != nil {
				return err
			}
			right, err = restore(ctx, r, args[1])
			return err
		})
	} else {
		r := newRunner()
		if left, err = mapFile(ctx, r, args[0]); err == nil {
			right, err = mapFile(ctx, r, args[1])
		}
	}
	if err != nil {
		return err
	}

	report, err := diff.Compare(left, right)
	if err != nil {
		return err
	}
	fmt.Fprint(os.Stdout, report.String())

	if diffExitCode && report.HasChanges() {
		return fmt.Errorf("%d changes", len(report.Changes))
	}
	return nil
}

func restore(ctx context.Context, r *pipeline.Runner, id string) (*serializer.Context, error) {
	c, _, err := r.Restore(ctx, id)
	return c, err
}

func mapFile(ctx context.Context, r *pipeline.Runner, path string) (*serializer.Context, error) {
	res, err := r.Run(ctx, path)
	if err != nil {
		return nil, err
	}
	return res.Context, nil
}
