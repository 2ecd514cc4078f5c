package export

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/logflow/bpmnctx/pkg/serializer"
)

// ParquetExporter writes all rows to a single Parquet file using Apache Arrow.
type ParquetExporter struct {
	compression CompressionType
}

// NewParquetExporter creates a Parquet exporter.
func NewParquetExporter(compression CompressionType) *ParquetExporter {
	return &ParquetExporter{compression: compression}
}

// Format returns "parquet".
func (e *ParquetExporter) Format() string { return "parquet" }

// rowSchema returns the Arrow schema for rows. kind and id are required.
func rowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(Columns))
	for i, name := range Columns {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: i > 1}
	}
	md := arrow.NewMetadata([]string{"format"}, []string{"bpmnctx"})
	return arrow.NewSchema(fields, &md)
}

func codec(c CompressionType) compress.Compression {
	switch c {
	case CompressionSnappy:
		return compress.Codecs.Snappy
	case CompressionGzip:
		return compress.Codecs.Gzip
	case CompressionZstd:
		return compress.Codecs.Zstd
	case CompressionLZ4:
		return compress.Codecs.Lz4
	default:
		return compress.Codecs.Uncompressed
	}
}

// Export writes c to <dir>/<id>.parquet.
func (e *ParquetExporter) Export(ctx context.Context, c *serializer.Context, dir string) (string, error) {
	path, err := outputPath(c, dir, e.Format())
	if err != nil {
		return "", err
	}
	rows, err := Rows(c)
	if err != nil {
		return "", exportFailed(err, e.Format(), path)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", exportFailed(err, e.Format(), path)
	}
	defer f.Close()

	if err := e.write(f, rows); err != nil {
		return "", exportFailed(err, e.Format(), path)
	}
	return path, nil
}

func (e *ParquetExporter) write(f *os.File, rows []Row) error {
	allocator := memory.NewGoAllocator()
	schema := rowSchema()

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(codec(e.compression)),
		parquet.WithDictionaryDefault(true),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(schema, f, writerProps, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	builders := make([]*array.StringBuilder, len(Columns))
	for i := range builders {
		builders[i] = array.NewStringBuilder(allocator)
		builders[i].Reserve(len(rows))
		defer builders[i].Release()
	}

	for _, row := range rows {
		for i, v := range row.Values() {
			if v == "" && schema.Field(i).Nullable {
				builders[i].AppendNull()
			} else {
				builders[i].Append(v)
			}
		}
	}

	columns := make([]arrow.Array, len(builders))
	for i, b := range builders {
		columns[i] = b.NewArray()
		defer columns[i].Release()
	}

	batch := array.NewRecord(schema, columns, int64(len(rows)))
	defer batch.Release()

	if err := writer.Write(batch); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
