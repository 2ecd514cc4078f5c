package store

import (
	"context"
	stderrors "errors"

	"github.com/logflow/bpmnctx/pkg/config"
	"github.com/logflow/bpmnctx/pkg/errors"
	"github.com/logflow/bpmnctx/pkg/resilience"
)

// ResilientBackend retries failed calls to a remote backend and stops calling
// it for a while after repeated failures.
type ResilientBackend struct {
	Backend
	policy  resilience.Policy
	breaker *resilience.CircuitBreaker
}

// NewResilientBackend wraps b with the retry and breaker settings of cfg.
func NewResilientBackend(b Backend, cfg config.RetryConfig) *ResilientBackend {
	return &ResilientBackend{
		Backend: b,
		policy:  resilience.PolicyFrom(cfg),
		breaker: resilience.NewCircuitBreaker(cfg.Threshold, cfg.Cooldown),
	}
}

// retryable rejects answers the backend gave on purpose.
func retryable(err error) bool {
	if errors.IsCode(err, errors.CodeSnapshotNotFound) {
		return false
	}
	return !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, context.DeadlineExceeded)
}

func (r *ResilientBackend) call(ctx context.Context, op, id string, fn func(context.Context) error) error {
	if err := r.breaker.Allow(); err != nil {
		return storeFailed(err, r.Name(), op, id)
	}
	err := resilience.Retry(ctx, r.policy, retryable, fn)
	if retryable(err) {
		r.breaker.Record(err)
	} else {
		r.breaker.Record(nil)
	}
	return err
}

// Save implements Backend.
func (r *ResilientBackend) Save(ctx context.Context, rec *Record) error {
	return r.call(ctx, "save", rec.ID, func(ctx context.Context) error {
		return r.Backend.Save(ctx, rec)
	})
}

// Load implements Backend.
func (r *ResilientBackend) Load(ctx context.Context, id string) (*Record, error) {
	var rec *Record
	err := r.call(ctx, "load", id, func(ctx context.Context) error {
		var err error
		rec, err = r.Backend.Load(ctx, id)
		return err
	})
	return rec, err
}

// Delete implements Backend.
func (r *ResilientBackend) Delete(ctx context.Context, id string) error {
	return r.call(ctx, "delete", id, func(ctx context.Context) error {
		return r.Backend.Delete(ctx, id)
	})
}

// List implements Backend.
func (r *ResilientBackend) List(ctx context.Context) ([]*Record, error) {
	var records []*Record
	err := r.call(ctx, "list", "", func(ctx context.Context) error {
		var err error
		records, err = r.Backend.List(ctx)
		return err
	})
	return records, err
}

// State returns the breaker state.
func (r *ResilientBackend) State() resilience.CircuitState {
	return r.breaker.State()
}
