package tui

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logflow/bpmnctx/pkg/errors"
	"github.com/logflow/bpmnctx/pkg/export"
	"github.com/logflow/bpmnctx/pkg/moddle"
	"github.com/logflow/bpmnctx/pkg/pipeline"
	"github.com/logflow/bpmnctx/pkg/registry"
	"github.com/logflow/bpmnctx/pkg/serializer"
	"github.com/logflow/bpmnctx/pkg/store"
)

func orderContext(t *testing.T) *serializer.Context {
	t.Helper()
	doc, err := moddle.Load("../../testdata/order.json")
	require.NoError(t, err)
	c, err := serializer.New(doc, registry.Default().Resolve)
	require.NoError(t, err)
	return c
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, orderContext(t), 1500*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "Definitions_order")
	assert.Contains(t, out, "Order handling")
	assert.Contains(t, out, "2 (1 executable)")
	assert.Contains(t, out, "1.5s")
}

func TestPrintBatchReport(t *testing.T) {
	c := orderContext(t)
	results := []*pipeline.Result{
		{Path: "order.json", Context: c, Record: &store.Record{ID: "rec-1"}, ExportPath: "out/Definitions_order.xlsx"},
		{Path: "broken.json", Err: errors.New(errors.CodeInvalidDocument, "invalid moddle document")},
	}

	var buf bytes.Buffer
	PrintBatchReport(&buf, results, 0)

	out := buf.String()
	assert.Contains(t, out, "order.json")
	assert.Contains(t, out, "record rec-1")
	assert.Contains(t, out, "out/Definitions_order.xlsx")
	assert.Contains(t, out, "[E101] invalid moddle document")
	assert.Contains(t, out, "2 documents, 1 failed")
}

func TestPrintRecords(t *testing.T) {
	var buf bytes.Buffer
	PrintRecords(&buf, nil)
	assert.Contains(t, buf.String(), "No snapshots stored.")

	buf.Reset()
	PrintRecords(&buf, []*store.Record{{ID: "rec-1", DocumentID: "Definitions_order", Source: "order.json", CreatedAt: time.Now()}})
	assert.Contains(t, buf.String(), "DOCUMENT")
	assert.Contains(t, buf.String(), "rec-1")
}

func TestPrintQuery(t *testing.T) {
	var buf bytes.Buffer
	PrintQuery(&buf, &export.QueryResult{
		Columns: []string{"kind", "n"},
		Rows:    [][]any{{"activities", int64(12)}, {"timers", nil}},
	})

	out := buf.String()
	assert.Contains(t, out, "activities")
	assert.Contains(t, out, "12")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "2 rows")
}

func TestPrintError(t *testing.T) {
	var multi errors.MultiError
	multi.Add(errors.UnknownType("acme:Robot"))
	multi.Add(fmt.Errorf("plain"))

	var buf bytes.Buffer
	PrintError(&buf, multi.Combined())

	out := buf.String()
	assert.Contains(t, out, "E201")
	assert.Contains(t, out, "Unknown activity type acme:Robot")
	assert.Contains(t, out, "E999")
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1.5K", formatNumber(1500))
	assert.Equal(t, "2.0M", formatNumber(2000000))
}

func TestShowProgress(t *testing.T) {
	var buf bytes.Buffer
	bar := ShowProgress(&buf, 2, "mapping")
	require.NoError(t, bar.Add(1))
	require.NoError(t, bar.Add(1))
	assert.True(t, bar.IsFinished())
}
