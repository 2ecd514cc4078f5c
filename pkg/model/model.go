// Package model defines the flattened BPMN entities produced by the mapper.
//
// Entities are plain values. Parent scopes are stored as {id, type} pairs rather
// than pointers, so a mapped document has no reference cycles and serializes as is.
// Empty collections are kept nil so a JSON round trip yields an equal value.
package model

import "github.com/mohae/deepcopy"

// Implementation is a behaviour implementation bound to an entity by type.
// The model only carries the binding; it never executes it.
type Implementation interface {
	Kind() string
}

// Resolvable is anything the type registry can bind: top-level entities and the
// nested details (event definitions, loop characteristics, io specifications)
// found in their behaviour.
type Resolvable interface {
	TypeName() string
	Bundle() *Behaviour
	Bind(Implementation)
}

// Scope is a non-owning reference to the container an entity is declared in.
type Scope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Ref is a lightweight descriptor of a referenced element.
type Ref struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
}

// Entity holds the fields shared by every flattened element.
type Entity struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Name      string     `json:"name,omitempty"`
	Parent    *Scope     `json:"parent,omitempty"`
	Behaviour *Behaviour `json:"behaviour,omitempty"`

	Implementation Implementation `json:"-"`
}

func (e *Entity) TypeName() string      { return e.Type }
func (e *Entity) Bundle() *Behaviour    { return e.Behaviour }
func (e *Entity) Bind(i Implementation) { e.Implementation = i }

// ParentID returns the id of the enclosing scope or "".
func (e *Entity) ParentID() string {
	if e.Parent == nil {
		return ""
	}
	return e.Parent.ID
}

// Definition is the document root.
type Definition struct {
	Entity
	TargetNamespace string `json:"targetNamespace,omitempty"`
	Exporter        string `json:"exporter,omitempty"`
	ExporterVersion string `json:"exporterVersion,omitempty"`
}

// Process is a top-level process.
type Process struct {
	Entity
}

// IsExecutable reports the process isExecutable flag.
func (p *Process) IsExecutable() bool {
	return p.Behaviour.Bool("isExecutable")
}

// Activity is any flow node: tasks, events, gateways and nested sub-processes.
type Activity struct {
	Entity
}

// SequenceFlow connects two flow nodes within one scope.
type SequenceFlow struct {
	Entity
	SourceID  string `json:"sourceId,omitempty"`
	TargetID  string `json:"targetId,omitempty"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

// Endpoint is one end of a message flow. ProcessID is empty when the element is
// not a direct child of a top-level process.
type Endpoint struct {
	ProcessID string `json:"processId,omitempty"`
	ID        string `json:"id,omitempty"`
}

// MessageFlow connects elements of different participants.
type MessageFlow struct {
	Entity
	Source Endpoint `json:"source"`
	Target Endpoint `json:"target"`
}

// DataObjectReference is one place a data object is referenced from.
type DataObjectReference struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Behaviour map[string]any `json:"behaviour,omitempty"`
}

// DataObject is a data object with every reference point pointing at it.
type DataObject struct {
	Entity
	References []DataObjectReference `json:"references,omitempty"`
}

// Mapped is the complete flattened document.
type Mapped struct {
	Definition    *Definition     `json:"definition"`
	Activities    []*Activity     `json:"activities,omitempty"`
	DataObjects   []*DataObject   `json:"dataObjects,omitempty"`
	MessageFlows  []*MessageFlow  `json:"messageFlows,omitempty"`
	Processes     []*Process      `json:"processes,omitempty"`
	SequenceFlows []*SequenceFlow `json:"sequenceFlows,omitempty"`
	Scripts       []*Script       `json:"scripts,omitempty"`
	Timers        []*Timer        `json:"timers,omitempty"`
}

// Resolvables lists every top-level entity in resolution order:
// definition, processes, activities, data objects, message flows, sequence flows.
func (m *Mapped) Resolvables() []Resolvable {
	n := 1 + len(m.Processes) + len(m.Activities) + len(m.DataObjects) + len(m.MessageFlows) + len(m.SequenceFlows)
	out := make([]Resolvable, 0, n)
	if m.Definition != nil {
		out = append(out, &m.Definition.Entity)
	}
	for _, p := range m.Processes {
		out = append(out, &p.Entity)
	}
	for _, a := range m.Activities {
		out = append(out, &a.Entity)
	}
	for _, d := range m.DataObjects {
		out = append(out, &d.Entity)
	}
	for _, f := range m.MessageFlows {
		out = append(out, &f.Entity)
	}
	for _, f := range m.SequenceFlows {
		out = append(out, &f.Entity)
	}
	return out
}

// Clone returns a deep copy. Behaviour bindings are copied by value along with
// the entities; callers that need fresh bindings re-resolve the copy.
func (m *Mapped) Clone() *Mapped {
	if m == nil {
		return nil
	}
	return deepcopy.Copy(m).(*Mapped)
}
