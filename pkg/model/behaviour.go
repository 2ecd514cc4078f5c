package model

// Behaviour is the type-specific field bundle of an entity or detail.
//
// Fields holds the raw element attributes that have no typed home below, in
// their JSON form. Refs holds every attribute following the *Ref naming
// convention as a lightweight descriptor.
type Behaviour struct {
	Fields map[string]any `json:"fields,omitempty"`
	Refs   map[string]Ref `json:"refs,omitempty"`

	AttachedTo          *Ref       `json:"attachedTo,omitempty"`
	EventDefinitions    []*Detail  `json:"eventDefinitions,omitempty"`
	LoopCharacteristics *Detail    `json:"loopCharacteristics,omitempty"`
	IOSpecification     *Detail    `json:"ioSpecification,omitempty"`
	Resources           []Resource `json:"resources,omitempty"`

	// Literal bodies unwrapped from expression elements.
	Expression          string `json:"expression,omitempty"`
	LoopCardinality     string `json:"loopCardinality,omitempty"`
	CompletionCondition string `json:"completionCondition,omitempty"`
	TimeDuration        string `json:"timeDuration,omitempty"`
	TimeCycle           string `json:"timeCycle,omitempty"`
	TimeDate            string `json:"timeDate,omitempty"`

	DataInputs  []*DataParameter `json:"dataInputs,omitempty"`
	DataOutputs []*DataParameter `json:"dataOutputs,omitempty"`

	// Service is bound next to the type behaviour for send and service tasks
	// that declare an implementation.
	Service Implementation `json:"-"`
}

// Field returns a raw field value. It is safe on a nil bundle.
func (b *Behaviour) Field(key string) any {
	if b == nil {
		return nil
	}
	return b.Fields[key]
}

// String returns a string field or "".
func (b *Behaviour) String(key string) string {
	s, _ := b.Field(key).(string)
	return s
}

// Bool returns a boolean field or false.
func (b *Behaviour) Bool(key string) bool {
	v, _ := b.Field(key).(bool)
	return v
}

// Ref returns the reference descriptor stored under key.
func (b *Behaviour) Ref(key string) (Ref, bool) {
	if b == nil {
		return Ref{}, false
	}
	r, ok := b.Refs[key]
	return r, ok
}

// Detail is a nested behavioural sub-entity: an event definition, loop
// characteristics or an io specification. It is resolved like an entity.
type Detail struct {
	Type      string     `json:"type"`
	Behaviour *Behaviour `json:"behaviour,omitempty"`

	Implementation Implementation `json:"-"`
}

func (d *Detail) TypeName() string      { return d.Type }
func (d *Detail) Bundle() *Behaviour    { return d.Behaviour }
func (d *Detail) Bind(i Implementation) { d.Implementation = i }

// Resource is a resource role assigned to an activity.
type Resource struct {
	Type       string         `json:"type"`
	Expression string         `json:"expression,omitempty"`
	Behaviour  map[string]any `json:"behaviour,omitempty"`
}

// DataParameter is a declared data input or data output of an io specification.
type DataParameter struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Name        string         `json:"name,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	Association Association    `json:"association"`
}

// Association pairs the two ends of a data input or output association.
// Either end is nil when no matching reference record exists.
type Association struct {
	Source *AssociationEnd `json:"source,omitempty"`
	Target *AssociationEnd `json:"target,omitempty"`
}

// AssociationEnd is one reference record of an association: the association
// element carrying it, the reference property and the id it points at.
type AssociationEnd struct {
	ID          string          `json:"id"`
	Property    string          `json:"property"`
	Association Ref             `json:"association"`
	DataObject  *DataObjectLink `json:"dataObject,omitempty"`
}

// DataObjectLink ties a data object reference point to its data object.
type DataObjectLink struct {
	ID        string `json:"id"`
	Reference Ref    `json:"reference"`
}
