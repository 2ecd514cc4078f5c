package mapper

import (
	"github.com/logflow/bpmnctx/pkg/moddle"
	"github.com/logflow/bpmnctx/pkg/model"
)

// ioSpecification replaces the generic field copy with the declared parameters
// and their resolved associations.
func (m *mapper) ioSpecification(el *moddle.Element) *model.Detail {
	b := &model.Behaviour{}
	for _, in := range el.Children("dataInputs") {
		p := parameter(in)
		p.Association = m.refs.inputAssociation(in.ID)
		b.DataInputs = append(b.DataInputs, p)
	}
	for _, out := range el.Children("dataOutputs") {
		p := parameter(out)
		p.Association = m.refs.outputAssociation(out.ID)
		b.DataOutputs = append(b.DataOutputs, p)
	}
	return &model.Detail{Type: el.Type, Behaviour: b}
}

func parameter(el *moddle.Element) *model.DataParameter {
	return &model.DataParameter{
		ID:     el.ID,
		Type:   el.Type,
		Name:   el.Name,
		Fields: el.Fields(),
	}
}

// inputAssociation resolves a data input: the target record points at the input,
// the source record shares its association element and names the data object
// reference the input reads from.
func (ix *referenceIndex) inputAssociation(inputID string) model.Association {
	target := findReference(ix.inputs, func(r moddle.Reference) bool {
		return r.Property == propTargetRef && r.ID == inputID && r.Element != nil
	})
	if target == nil {
		return model.Association{}
	}
	source := findReference(ix.inputs, func(r moddle.Reference) bool {
		return r.Property == propSourceRef && r.Element != nil && r.Element.ID == target.Element.ID
	})

	assoc := model.Association{Target: associationEnd(target)}
	if source != nil {
		assoc.Source = associationEnd(source)
		assoc.Source.DataObject = ix.dataObjectLink(source.ID)
	}
	return assoc
}

// outputAssociation is the mirror of inputAssociation: the output is the source
// and the data object sits on the target end.
func (ix *referenceIndex) outputAssociation(outputID string) model.Association {
	source := findReference(ix.outputs, func(r moddle.Reference) bool {
		return r.Property == propSourceRef && r.ID == outputID && r.Element != nil
	})
	if source == nil {
		return model.Association{}
	}
	target := findReference(ix.outputs, func(r moddle.Reference) bool {
		return r.Property == propTargetRef && r.Element != nil && r.Element.ID == source.Element.ID
	})

	assoc := model.Association{Source: associationEnd(source)}
	if target != nil {
		assoc.Target = associationEnd(target)
		assoc.Target.DataObject = ix.dataObjectLink(target.ID)
	}
	return assoc
}

func associationEnd(r *moddle.Reference) *model.AssociationEnd {
	return &model.AssociationEnd{
		ID:          r.ID,
		Property:    r.Property,
		Association: describe(r.Element),
	}
}

// dataObjectLink finds the data object behind a data object reference id.
func (ix *referenceIndex) dataObjectLink(referenceID string) *model.DataObjectLink {
	r := findReference(ix.dataObjectRefs, func(r moddle.Reference) bool {
		return r.Element != nil && r.Element.ID == referenceID
	})
	if r == nil {
		return nil
	}
	return &model.DataObjectLink{ID: r.ID, Reference: describe(r.Element)}
}
