// Package store persists serialized context snapshots.
// Backends can store records in various locations (local, S3, Redis).
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/logflow/bpmnctx/pkg/config"
	"github.com/logflow/bpmnctx/pkg/errors"
)

// Record is one stored snapshot.
type Record struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"documentId"`
	Source     string          `json:"source,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	Snapshot   json.RawMessage `json:"snapshot"`
}

// NewRecord wraps a serialized snapshot in a record with a fresh id.
func NewRecord(documentID, source string, snapshot []byte) *Record {
	return &Record{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Source:     source,
		CreatedAt:  time.Now().UTC(),
		Snapshot:   snapshot,
	}
}

// Backend defines the interface for snapshot storage backends.
type Backend interface {
	// Save persists a record, replacing any record with the same id.
	Save(ctx context.Context, rec *Record) error

	// Load retrieves a record by id. A missing record is CodeSnapshotNotFound.
	Load(ctx context.Context, id string) (*Record, error)

	// Delete removes a record.
	Delete(ctx context.Context, id string) error

	// List returns all records, oldest first.
	List(ctx context.Context) ([]*Record, error)

	// Name returns the backend name for logging.
	Name() string

	Close() error
}

// New creates the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StoreConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileBackend(cfg.File.Dir)
	case "redis":
		b, err := NewRedisBackend(ctx, RedisConfigFrom(cfg.Redis))
		if err != nil {
			return nil, err
		}
		return NewResilientBackend(b, cfg.Retry), nil
	case "s3":
		b, err := NewS3Backend(ctx, S3ConfigFrom(cfg.S3))
		if err != nil {
			return nil, err
		}
		return NewResilientBackend(b, cfg.Retry), nil
	case "multi":
		if len(cfg.Multi) == 0 {
			return nil, errors.New(errors.CodeStoreFailed, "multi store needs at least one backend")
		}
		var backends []Backend
		for _, name := range cfg.Multi {
			if name == "multi" {
				return nil, errors.New(errors.CodeStoreFailed, "multi store cannot nest")
			}
			sub := cfg
			sub.Backend = name
			b, err := New(ctx, sub)
			if err != nil {
				for _, opened := range backends {
					_ = opened.Close()
				}
				return nil, err
			}
			backends = append(backends, b)
		}
		return NewMultiBackend(backends[0], backends[1:]...), nil
	default:
		return nil, errors.New(errors.CodeStoreFailed, fmt.Sprintf("unknown store backend %q", cfg.Backend))
	}
}

func sortRecords(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}

func storeFailed(err error, backend, op, id string) error {
	e := errors.Wrapf(err, errors.CodeStoreFailed, "%s failed", op).WithContext("backend", backend)
	if id != "" {
		e = e.WithContext("id", id)
	}
	return e
}

// MultiBackend writes to a primary backend and mirrors to secondaries.
type MultiBackend struct {
	primary     Backend
	secondaries []Backend
}

// NewMultiBackend creates a backend that writes to primary and every secondary.
func NewMultiBackend(primary Backend, secondaries ...Backend) *MultiBackend {
	return &MultiBackend{
		primary:     primary,
		secondaries: secondaries,
	}
}

// Save writes to the primary first. Secondaries are best-effort.
func (m *MultiBackend) Save(ctx context.Context, rec *Record) error {
	if err := m.primary.Save(ctx, rec); err != nil {
		return err
	}
	for _, b := range m.secondaries {
		_ = b.Save(ctx, rec)
	}
	return nil
}

// Load reads from the primary and falls back to each secondary in order.
func (m *MultiBackend) Load(ctx context.Context, id string) (*Record, error) {
	rec, err := m.primary.Load(ctx, id)
	if err == nil {
		return rec, nil
	}
	for _, b := range m.secondaries {
		if rec, serr := b.Load(ctx, id); serr == nil {
			return rec, nil
		}
	}
	return nil, err
}

// Delete removes the record everywhere. Only the primary's error is reported.
func (m *MultiBackend) Delete(ctx context.Context, id string) error {
	err := m.primary.Delete(ctx, id)
	for _, b := range m.secondaries {
		_ = b.Delete(ctx, id)
	}
	return err
}

// List returns the primary's records.
func (m *MultiBackend) List(ctx context.Context) ([]*Record, error) {
	return m.primary.List(ctx)
}

// Name returns the combined backend names.
func (m *MultiBackend) Name() string {
	name := m.primary.Name()
	for _, b := range m.secondaries {
		name += "+" + b.Name()
	}
	return name
}

// Close closes every backend.
func (m *MultiBackend) Close() error {
	var errs errors.MultiError
	errs.Add(m.primary.Close())
	for _, b := range m.secondaries {
		errs.Add(b.Close())
	}
	return errs.Combined()
}
