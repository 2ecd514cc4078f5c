package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/logflow/bpmnctx/pkg/errors"
	"github.com/logflow/bpmnctx/pkg/serializer"
)

// TableName is the table DuckDB exports write rows to.
const TableName = "entities"

// DuckDBExporter writes rows to a DuckDB database file for SQL queries.
type DuckDBExporter struct{}

// NewDuckDBExporter creates a DuckDB exporter.
func NewDuckDBExporter() *DuckDBExporter {
	return &DuckDBExporter{}
}

// Format returns "duckdb".
func (e *DuckDBExporter) Format() string { return "duckdb" }

// Export writes c to <dir>/<id>.duckdb, replacing any previous export.
func (e *DuckDBExporter) Export(ctx context.Context, c *serializer.Context, dir string) (string, error) {
	path, err := outputPath(c, dir, e.Format())
	if err != nil {
		return "", err
	}
	rows, err := Rows(c)
	if err != nil {
		return "", exportFailed(err, e.Format(), path)
	}

	for _, p := range []string{path, path + ".wal"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return "", exportFailed(err, e.Format(), path)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return "", exportFailed(err, e.Format(), path)
	}
	defer db.Close()

	if err := insertRows(ctx, db, rows); err != nil {
		return "", exportFailed(err, e.Format(), path)
	}
	return path, nil
}

func insertRows(ctx context.Context, db *sql.DB, rows []Row) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE `+TableName+` (
			kind VARCHAR NOT NULL,
			id VARCHAR NOT NULL,
			type VARCHAR,
			name VARCHAR,
			scope_id VARCHAR,
			scope_type VARCHAR,
			binding VARCHAR,
			source VARCHAR,
			target VARCHAR,
			detail VARCHAR
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO `+TableName+` (kind, id, type, name, scope_id, scope_type, binding, source, target, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		values := row.Values()
		args := make([]any, len(values))
		for i, v := range values {
			if v != "" || i < 2 {
				args[i] = v
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert %s %s: %w", row.Kind, row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// QueryResult holds the rows of an ad-hoc query.
type QueryResult struct {
	Columns []string
	Rows    [][]any
}

// Query runs a read-only SQL statement against a DuckDB export.
func Query(ctx context.Context, path, query string) (*QueryResult, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.FileNotFound(path)
	}

	db, err := sql.Open("duckdb", path+"?access_mode=read_only")
	if err != nil {
		return nil, exportFailed(err, "duckdb", path)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExportFailed, "query failed").WithContext("path", path)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, exportFailed(err, "duckdb", path)
	}

	result := &QueryResult{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, exportFailed(err, "duckdb", path)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, exportFailed(err, "duckdb", path)
	}
	return result, nil
}
