package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/logflow/bpmnctx/pkg/config"
	"github.com/logflow/bpmnctx/pkg/errors"
	"github.com/logflow/bpmnctx/pkg/moddle"
	"github.com/logflow/bpmnctx/pkg/registry"
	"github.com/logflow/bpmnctx/pkg/serializer"
)

func orderContext(t *testing.T) *serializer.Context {
	t.Helper()
	doc, err := moddle.Load("../../testdata/order.json")
	require.NoError(t, err)
	c, err := serializer.New(doc, registry.Default().Resolve)
	require.NoError(t, err)
	return c
}

var wantCounts = map[string]int{
	KindDefinition:   1,
	KindProcess:      2,
	KindActivity:     12,
	KindSequenceFlow: 5,
	KindMessageFlow:  1,
	KindDataObject:   1,
	KindScript:       2,
	KindTimer:        1,
}

func TestRows(t *testing.T) {
	rows, err := Rows(orderContext(t))
	require.NoError(t, err)
	require.Len(t, rows, 25)

	grouped := ByKind(rows)
	for kind, n := range wantCounts {
		assert.Len(t, grouped[kind], n, kind)
	}

	find := func(kind, id string) Row {
		for _, r := range grouped[kind] {
			if r.ID == id {
				return r
			}
		}
		t.Fatalf("no %s row %s", kind, id)
		return Row{}
	}

	charge := find(KindActivity, "charge")
	assert.Equal(t, "order", charge.ScopeID)
	assert.Equal(t, "bpmn:Process", charge.ScopeType)
	assert.Equal(t, "ServiceTask", charge.Binding)
	assert.Contains(t, charge.Detail, "${environment.services.charge}")

	approve := find(KindActivity, "approve")
	assert.Equal(t, "review", approve.ScopeID)
	assert.Equal(t, "bpmn:SubProcess", approve.ScopeType)

	flow := find(KindSequenceFlow, "toReview")
	assert.Equal(t, "decide", flow.Source)
	assert.Equal(t, "review", flow.Target)

	message := find(KindMessageFlow, "invoiceFlow")
	assert.Equal(t, "order/charge", message.Source)
	assert.Equal(t, "billing/receive", message.Target)

	def := grouped[KindDefinition][0]
	assert.Equal(t, "Definitions_order", def.ID)
	assert.Empty(t, def.ScopeID)

	assert.Equal(t, "audit", grouped[KindScript][1].Name)
	assert.Equal(t, "bpmn:ScriptTask", grouped[KindScript][1].ScopeType)

	for _, r := range rows {
		assert.Len(t, r.Values(), len(Columns))
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"", "parquet"},
		{"parquet", "parquet"},
		{"XLSX", "xlsx"},
		{"duckdb", "duckdb"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			e, err := New(config.ExportConfig{Format: tt.format})
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Format())
		})
	}

	_, err := New(config.ExportConfig{Format: "csv"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeExportFailed))
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, CompressionSnappy, ParseCompression("snappy"))
	assert.Equal(t, CompressionZstd, ParseCompression("ZSTD"))
	assert.Equal(t, CompressionNone, ParseCompression("brotli"))
	assert.Equal(t, "lz4", CompressionLZ4.String())
}

func TestParquetExport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := NewParquetExporter(CompressionSnappy).Export(context.Background(), orderContext(t), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Definitions_order.parquet"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	table, err := pqarrow.ReadTable(context.Background(), f, nil, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	require.NoError(t, err)
	defer table.Release()

	assert.EqualValues(t, 25, table.NumRows())
	require.EqualValues(t, len(Columns), table.NumCols())
	for i, name := range Columns {
		assert.Equal(t, name, table.Schema().Field(i).Name)
	}
}

func TestRowSchema(t *testing.T) {
	schema := rowSchema()
	require.Equal(t, len(Columns), schema.NumFields())
	for i, name := range Columns {
		assert.Equal(t, name, schema.Field(i).Name)
		assert.Equal(t, i > 1, schema.Field(i).Nullable, name)
	}

	md := schema.Metadata()
	idx := md.FindKey("format")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "bpmnctx", md.Values()[idx])
}

func TestXLSXExport(t *testing.T) {
	path, err := NewXLSXExporter().Export(context.Background(), orderContext(t), t.TempDir())
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, Kinds, f.GetSheetList())

	for kind, n := range wantCounts {
		rows, err := f.GetRows(kind)
		require.NoError(t, err)
		require.Len(t, rows, n+1, kind)
		assert.Equal(t, Columns, rows[0])
	}

	activities, err := f.GetRows(KindActivity)
	require.NoError(t, err)
	assert.Equal(t, "activities", activities[1][0])
	assert.Equal(t, "start", activities[1][1])
}

func TestDuckDBExport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := orderContext(t)

	path, err := NewDuckDBExporter().Export(ctx, c, dir)
	require.NoError(t, err)

	// a second export replaces the first
	path, err = NewDuckDBExporter().Export(ctx, c, dir)
	require.NoError(t, err)

	res, err := Query(ctx, path, "SELECT kind, count(*) AS n FROM entities GROUP BY kind ORDER BY kind")
	require.NoError(t, err)
	assert.Equal(t, []string{"kind", "n"}, res.Columns)
	require.Len(t, res.Rows, len(wantCounts))
	for _, row := range res.Rows {
		kind := row[0].(string)
		assert.EqualValues(t, wantCounts[kind], row[1], kind)
	}

	res, err = Query(ctx, path, "SELECT binding, scope_id FROM entities WHERE id = 'charge'")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "ServiceTask", res.Rows[0][0])
	assert.Equal(t, "order", res.Rows[0][1])

	t.Run("missing database", func(t *testing.T) {
		_, err := Query(ctx, filepath.Join(dir, "missing.duckdb"), "SELECT 1")
		assert.True(t, errors.IsCode(err, errors.CodeFileNotFound))
	})

	t.Run("bad sql", func(t *testing.T) {
		_, err := Query(ctx, path, "SELEKT")
		assert.True(t, errors.IsCode(err, errors.CodeExportFailed))
	})
}
