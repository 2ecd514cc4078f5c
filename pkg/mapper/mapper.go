// Package mapper flattens a parsed moddle context into the entity lists of
// model.Mapped.
//
// Mapping never fails on missing optional data: unresolved references, absent
// associations and unknown properties all map to zero values. It performs no I/O
// and keeps no state between calls.
package mapper

import (
	"github.com/logflow/bpmnctx/pkg/errors"
	"github.com/logflow/bpmnctx/pkg/moddle"
	"github.com/logflow/bpmnctx/pkg/model"
)

// Option configures a Map call.
type Option func(*mapper)

// WithExtender registers a per-element extension function.
func WithExtender(fn Extender) Option {
	return func(m *mapper) {
		m.extender = fn
	}
}

type mapper struct {
	root     *moddle.Element
	refs     *referenceIndex
	extender Extender
	out      *model.Mapped
}

// Map flattens doc. The only error is a document without a root element.
func Map(doc *moddle.Context, opts ...Option) (*model.Mapped, error) {
	root := doc.Root()
	if root == nil {
		return nil, errors.New(errors.CodeInvalidDocument, "moddle context has no root element")
	}

	m := &mapper{
		root: root,
		refs: indexReferences(doc.References),
		out:  &model.Mapped{},
	}
	for _, opt := range opts {
		opt(m)
	}

	def := &model.Definition{
		Entity: model.Entity{
			ID:   root.ID,
			Type: root.Type,
			Name: root.Name,
		},
		TargetNamespace: root.String("targetNamespace"),
		Exporter:        root.String("exporter"),
		ExporterVersion: root.String("exporterVersion"),
	}
	m.out.Definition = def

	flat := m.flatten(model.Scope{ID: def.ID, Type: def.Type}, root.Children("rootElements"))
	m.out.Activities = flat.activities
	m.out.DataObjects = flat.dataObjects
	m.out.MessageFlows = flat.messageFlows
	m.out.Processes = flat.processes
	m.out.SequenceFlows = flat.sequenceFlows

	return m.out, nil
}
