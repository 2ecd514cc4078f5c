// Package registry binds flattened entities to behaviour implementations by type.
// This enables runtime selection without type switches in calling code.
//
// A Registry is built once and never mutated afterwards, so one instance can be
// shared by concurrent mapping runs without locking.
package registry

import (
	"sort"
	"strings"

	"github.com/logflow/bpmnctx/pkg/errors"
	"github.com/logflow/bpmnctx/pkg/model"
)

// Named is a behaviour known only by its name.
type Named string

// Kind returns the behaviour name.
func (n Named) Kind() string { return string(n) }

// Behaviour names the fixed table is built from.
const (
	Dummy                 = "Dummy"
	Definition            = "Definition"
	BpmnError             = "BpmnError"
	ServiceImplementation = "ServiceImplementation"
)

// Types maps unprefixed type names, e.g. "ServiceTask", to behaviours.
type Types map[string]model.Implementation

// Extender adds or overrides entries of the prefixed type table before first use.
type Extender func(typeMapper map[string]model.Implementation)

// Func resolves one entity. (*Registry).Resolve satisfies it.
type Func func(model.Resolvable) error

// Registry resolves types in two tiers: the full prefixed type against the fixed
// table, then the type with its namespace prefix stripped against Types.
type Registry struct {
	typeMapper map[string]model.Implementation
	types      Types
}

// Global default registry
var defaultRegistry = New(Defaults())

// Default returns the registry over the standard BPMN vocabulary.
func Default() *Registry {
	return defaultRegistry
}

// New builds a registry. Extenders run once, in order, before New returns.
func New(types Types, extenders ...Extender) *Registry {
	r := &Registry{
		typeMapper: make(map[string]model.Implementation),
		types:      make(Types, len(types)),
	}
	for k, v := range types {
		r.types[k] = v
	}

	r.set("bpmn:DataObjectReference", types[Dummy])
	r.set("bpmn:Definitions", types[Definition])
	r.set("bpmn:Error", types[BpmnError])

	for _, extend := range extenders {
		if extend != nil {
			extend(r.typeMapper)
		}
	}
	return r
}

func (r *Registry) set(typ string, impl model.Implementation) {
	if impl != nil {
		r.typeMapper[typ] = impl
	}
}

// Lookup returns the behaviour for a type or an unknown-type error.
func (r *Registry) Lookup(typ string) (model.Implementation, error) {
	if impl := r.typeMapper[typ]; impl != nil {
		return impl, nil
	}
	if i := strings.Index(typ, ":"); i >= 0 {
		if impl := r.types[typ[i+1:]]; impl != nil {
			return impl, nil
		}
	}
	return nil, errors.UnknownType(typ)
}

// Resolve binds target and every nested detail in its behaviour: loop
// characteristics, event definitions and the io specification.
// Send and service tasks declaring an implementation also get the service
// implementation behaviour.
func (r *Registry) Resolve(target model.Resolvable) error {
	typ := target.TypeName()
	impl, err := r.Lookup(typ)
	if err != nil {
		return err
	}
	target.Bind(impl)

	b := target.Bundle()
	if b == nil {
		return nil
	}

	switch typ {
	case "bpmn:SendTask", "bpmn:ServiceTask":
		if b.String("implementation") != "" {
			b.Service = r.types[ServiceImplementation]
		}
	}

	if b.LoopCharacteristics != nil {
		if err := r.Resolve(b.LoopCharacteristics); err != nil {
			return err
		}
	}
	for _, ed := range b.EventDefinitions {
		if err := r.Resolve(ed); err != nil {
			return err
		}
	}
	if b.IOSpecification != nil {
		if err := r.Resolve(b.IOSpecification); err != nil {
			return err
		}
	}
	return nil
}

// Names returns every type the registry resolves directly, sorted. Unprefixed
// names are listed with a "*:" prefix to show they match any namespace.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.typeMapper)+len(r.types))
	for name := range r.typeMapper {
		names = append(names, name)
	}
	for name := range r.types {
		names = append(names, "*:"+name)
	}
	sort.Strings(names)
	return names
}

// ResolveTypes binds every top-level entity of m: definition, processes,
// activities, data objects, message flows and sequence flows. It stops at the
// first failure; the model must then be discarded.
func ResolveTypes(m *model.Mapped, resolve Func) error {
	for _, entity := range m.Resolvables() {
		if err := resolve(entity); err != nil {
			return err
		}
	}
	return nil
}
