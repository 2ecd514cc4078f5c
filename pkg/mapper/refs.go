package mapper

import "github.com/logflow/bpmnctx/pkg/moddle"

// Reference properties understood by the index. Anything else is ignored.
const (
	propSourceRef     = "bpmn:sourceRef"
	propTargetRef     = "bpmn:targetRef"
	propDefault       = "bpmn:default"
	propDataObjectRef = "bpmn:dataObjectRef"
)

// flowRef is the edge data accumulated for one sequence or message flow.
type flowRef struct {
	SourceID  string
	TargetID  string
	IsDefault bool
}

// referenceIndex holds the reference records split by role.
type referenceIndex struct {
	// flows is keyed by the flow's own id. Source and target records are carried by
	// the flow element, default records by the gateway pointing at the flow.
	flows map[string]*flowRef

	dataObjectRefs []moddle.Reference
	inputs         []moddle.Reference
	outputs        []moddle.Reference
}

func indexReferences(refs []moddle.Reference) *referenceIndex {
	ix := &referenceIndex{flows: make(map[string]*flowRef)}

	for _, r := range refs {
		switch r.Property {
		case propSourceRef:
			if r.Element != nil {
				ix.upsert(r.Element.ID).SourceID = r.ID
			}
		case propTargetRef:
			if r.Element != nil {
				ix.upsert(r.Element.ID).TargetID = r.ID
			}
		case propDefault:
			ix.upsert(r.ID).IsDefault = true
		case propDataObjectRef:
			ix.dataObjectRefs = append(ix.dataObjectRefs, r)
		}

		if r.Element == nil {
			continue
		}
		switch r.Element.Type {
		case "bpmn:DataInputAssociation":
			ix.inputs = append(ix.inputs, r)
		case "bpmn:DataOutputAssociation":
			ix.outputs = append(ix.outputs, r)
		}
	}

	return ix
}

func (ix *referenceIndex) upsert(id string) *flowRef {
	f, ok := ix.flows[id]
	if !ok {
		f = &flowRef{}
		ix.flows[id] = f
	}
	return f
}

// flow returns the edge data for a flow id, zero valued when unknown.
func (ix *referenceIndex) flow(id string) flowRef {
	if f, ok := ix.flows[id]; ok {
		return *f
	}
	return flowRef{}
}

func findReference(refs []moddle.Reference, match func(moddle.Reference) bool) *moddle.Reference {
	for i := range refs {
		if match(refs[i]) {
			return &refs[i]
		}
	}
	return nil
}
