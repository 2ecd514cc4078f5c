package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/logflow/bpmnctx/pkg/errors"
)

const recordExt = ".json"

// FileBackend stores one JSON file per record in a directory.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the directory if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, storeFailed(err, "file", "create store directory", "")
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(id string) (string, error) {
	if id == "" || filepath.Base(id) != id || strings.HasPrefix(id, ".") {
		return "", errors.SnapshotNotFound(b.Name(), id)
	}
	return filepath.Join(b.dir, id+recordExt), nil
}

// Save writes the record to a temp file first, then renames it into place.
func (b *FileBackend) Save(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := b.path(rec.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return storeFailed(err, b.Name(), "marshal record", rec.ID)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return storeFailed(err, b.Name(), "write record", rec.ID)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return storeFailed(err, b.Name(), "write record", rec.ID)
	}
	return nil
}

// Load reads a record from disk.
func (b *FileBackend) Load(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := b.path(id)
	if err != nil {
		return nil, err
	}
	return b.read(path, id)
}

func (b *FileBackend) read(path, id string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.SnapshotNotFound(b.Name(), id)
		}
		return nil, storeFailed(err, b.Name(), "read record", id)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, storeFailed(err, b.Name(), "decode record", id)
	}
	return &rec, nil
}

// Delete removes a record file.
func (b *FileBackend) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := b.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.SnapshotNotFound(b.Name(), id)
		}
		return storeFailed(err, b.Name(), "delete record", id)
	}
	return nil
}

// List reads every record in the directory. Unreadable files are skipped.
func (b *FileBackend) List(ctx context.Context) ([]*Record, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, storeFailed(err, b.Name(), "list records", "")
	}

	var records []*Record
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || filepath.Ext(entry.Name()) != recordExt {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), recordExt)
		rec, err := b.read(filepath.Join(b.dir, entry.Name()), id)
		if err != nil {
			continue
		}
		records = append(records, rec)
	}

	sortRecords(records)
	return records, nil
}

// Name returns "file".
func (b *FileBackend) Name() string {
	return "file"
}

// Close is a no-op.
func (b *FileBackend) Close() error {
	return nil
}
