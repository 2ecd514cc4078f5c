package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/logflow/bpmnctx/pkg/config"
	"github.com/logflow/bpmnctx/pkg/errors"
	"github.com/logflow/bpmnctx/pkg/serializer"
)

// Exporter writes a context's rows to a file.
type Exporter interface {
	// Export writes c into dir and returns the written path.
	Export(ctx context.Context, c *serializer.Context, dir string) (string, error)

	// Format returns the format name, also used as the file extension.
	Format() string
}

// CompressionType represents Parquet compression options.
type CompressionType uint8

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionGzip
	CompressionZstd
	CompressionLZ4
)

// String returns the compression type name.
func (c CompressionType) String() string {
	switch c {
	case CompressionSnappy:
		return "snappy"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "none"
	}
}

// ParseCompression parses a compression type string.
func ParseCompression(s string) CompressionType {
	switch strings.ToLower(s) {
	case "snappy":
		return CompressionSnappy
	case "gzip":
		return CompressionGzip
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// Formats lists the supported export formats.
var Formats = []string{"parquet", "xlsx", "duckdb"}

// New creates the exporter named by cfg.Format.
func New(cfg config.ExportConfig) (Exporter, error) {
	switch strings.ToLower(cfg.Format) {
	case "", "parquet":
		return NewParquetExporter(ParseCompression(cfg.Compression)), nil
	case "xlsx":
		return NewXLSXExporter(), nil
	case "duckdb":
		return NewDuckDBExporter(), nil
	default:
		return nil, errors.New(errors.CodeExportFailed, fmt.Sprintf("unknown export format %q (supported: %s)", cfg.Format, strings.Join(Formats, ", ")))
	}
}

// outputPath creates dir and returns <dir>/<definition id>.<ext>.
func outputPath(c *serializer.Context, dir, ext string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", exportFailed(err, ext, dir)
	}
	name := c.ID()
	if name == "" {
		name = "definitions"
	}
	return filepath.Join(dir, filepath.Base(name)+"."+ext), nil
}

func exportFailed(err error, format, path string) error {
	return errors.Wrapf(err, errors.CodeExportFailed, "%s export failed", format).WithContext("path", path)
}
