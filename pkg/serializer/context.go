// Package serializer is the query and persistence facade over a mapped,
// type-resolved BPMN document.
package serializer

import (
	"encoding/json"

	"github.com/logflow/bpmnctx/pkg/errors"
	"github.com/logflow/bpmnctx/pkg/logger"
	"github.com/logflow/bpmnctx/pkg/mapper"
	"github.com/logflow/bpmnctx/pkg/moddle"
	"github.com/logflow/bpmnctx/pkg/model"
	"github.com/logflow/bpmnctx/pkg/registry"
)

// Snapshot is the serialized form of a Context. It carries no behaviour
// bindings; those are re-derived when a snapshot is loaded.
type Snapshot struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	model.Mapped
}

// Option configures New.
type Option func(*options)

type options struct {
	extender mapper.Extender
	log      logger.Logger
}

// WithExtender registers a per-element extension function used while mapping.
func WithExtender(fn mapper.Extender) Option {
	return func(o *options) { o.extender = fn }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// Context is a read-only view of a resolved document.
type Context struct {
	mapped *model.Mapped
}

// New maps doc and resolves every entity with resolve. On error no context is
// returned.
func New(doc *moddle.Context, resolve registry.Func, opts ...Option) (*Context, error) {
	o := options{log: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	var mopts []mapper.Option
	if o.extender != nil {
		mopts = append(mopts, mapper.WithExtender(o.extender))
	}
	mapped, err := mapper.Map(doc, mopts...)
	if err != nil {
		return nil, err
	}

	log := o.log.With("definition", mapped.Definition.ID)
	log.Debug("mapped document",
		"processes", len(mapped.Processes),
		"activities", len(mapped.Activities),
		"sequenceFlows", len(mapped.SequenceFlows),
		"messageFlows", len(mapped.MessageFlows),
		"dataObjects", len(mapped.DataObjects),
	)

	if err := registry.ResolveTypes(mapped, resolve); err != nil {
		log.Error("type resolution failed", "err", err)
		return nil, err
	}
	return &Context{mapped: mapped}, nil
}

// Deserialize rebuilds a context from Serialize output and resolves it again.
func Deserialize(data []byte, resolve registry.Func) (*Context, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidSnapshot, "decode snapshot")
	}
	return FromSnapshot(&s, resolve)
}

// FromSnapshot resolves a copy of s.
func FromSnapshot(s *Snapshot, resolve registry.Func) (*Context, error) {
	if s == nil || s.Definition == nil {
		return nil, errors.New(errors.CodeInvalidSnapshot, "snapshot has no definition")
	}

	mapped := s.Mapped.Clone()
	if err := registry.ResolveTypes(mapped, resolve); err != nil {
		return nil, err
	}
	return &Context{mapped: mapped}, nil
}

// ID returns the definition id.
func (c *Context) ID() string { return c.mapped.Definition.ID }

// Type returns the definition type.
func (c *Context) Type() string { return c.mapped.Definition.Type }

// Name returns the definition name.
func (c *Context) Name() string { return c.mapped.Definition.Name }

// Snapshot returns a value copy of the model.
func (c *Context) Snapshot() *Snapshot {
	return &Snapshot{
		ID:     c.ID(),
		Type:   c.Type(),
		Name:   c.Name(),
		Mapped: *c.mapped.Clone(),
	}
}

// Serialize encodes the snapshot as JSON.
func (c *Context) Serialize() ([]byte, error) {
	return json.Marshal(c.Snapshot())
}
