package mapper

import (
	"github.com/logflow/bpmnctx/pkg/moddle"
	"github.com/logflow/bpmnctx/pkg/model"
)

// lists accumulates the flattened entities of one scope.
type lists struct {
	activities    []*model.Activity
	dataObjects   []*model.DataObject
	messageFlows  []*model.MessageFlow
	processes     []*model.Process
	sequenceFlows []*model.SequenceFlow
}

// isContainer reports element kinds whose flow elements are flattened with the
// element itself as the parent scope.
func isContainer(typ string) bool {
	switch typ {
	case "bpmn:Process", "bpmn:SubProcess", "bpmn:Transaction", "bpmn:AdHocSubProcess":
		return true
	}
	return false
}

// flatten walks one level of elements, descending into containers.
func (m *mapper) flatten(parent model.Scope, elements []*moddle.Element) lists {
	var out lists

	for _, el := range elements {
		if el == nil {
			continue
		}
		switch {
		case el.Type == "bpmn:DataObjectReference" || el.Type == "bpmn:Message":
			continue

		case el.Type == "bpmn:Collaboration":
			// message flows belong to the current scope, never to the collaboration
			sub := m.flatten(parent, el.Children("messageFlows"))
			out.messageFlows = append(out.messageFlows, sub.messageFlows...)
			continue

		case el.Type == "bpmn:MessageFlow":
			out.messageFlows = append(out.messageFlows, m.messageFlow(parent, el))

		case el.Type == "bpmn:DataObject":
			out.dataObjects = append(out.dataObjects, m.dataObject(parent, el))

		case el.Type == "bpmn:SequenceFlow":
			flow := m.refs.flow(el.ID)
			out.sequenceFlows = append(out.sequenceFlows, &model.SequenceFlow{
				Entity:    newEntity(parent, el, flowBehaviour(el)),
				SourceID:  flow.SourceID,
				TargetID:  flow.TargetID,
				IsDefault: flow.IsDefault,
			})

		case isContainer(el.Type):
			entity := newEntity(parent, el, m.activityBehaviour(el))
			if el.Type == "bpmn:Process" {
				out.processes = append(out.processes, &model.Process{Entity: entity})
			} else {
				out.activities = append(out.activities, &model.Activity{Entity: entity})
			}
			m.extend(el)

			sub := m.flatten(model.Scope{ID: el.ID, Type: el.Type}, el.Children("flowElements"))
			out.activities = append(out.activities, sub.activities...)
			out.sequenceFlows = append(out.sequenceFlows, sub.sequenceFlows...)
			out.dataObjects = append(out.dataObjects, sub.dataObjects...)
			continue

		case el.Type == "bpmn:BoundaryEvent":
			b := m.activityBehaviour(el)
			if attached := el.Child("attachedToRef"); attached != nil {
				ref := describe(attached)
				b.AttachedTo = &ref
			}
			out.activities = append(out.activities, &model.Activity{Entity: newEntity(parent, el, b)})

		default:
			out.activities = append(out.activities, &model.Activity{Entity: newEntity(parent, el, m.activityBehaviour(el))})
		}

		m.extend(el)
	}

	return out
}

func newEntity(parent model.Scope, el *moddle.Element, b *model.Behaviour) model.Entity {
	p := parent
	return model.Entity{
		ID:        el.ID,
		Type:      el.Type,
		Name:      el.Name,
		Parent:    &p,
		Behaviour: b,
	}
}

func (m *mapper) messageFlow(parent model.Scope, el *moddle.Element) *model.MessageFlow {
	flow := m.refs.flow(el.ID)
	return &model.MessageFlow{
		Entity: newEntity(parent, el, bundle(el)),
		Source: model.Endpoint{ProcessID: m.processOf(flow.SourceID), ID: flow.SourceID},
		Target: model.Endpoint{ProcessID: m.processOf(flow.TargetID), ID: flow.TargetID},
	}
}

func (m *mapper) dataObject(parent model.Scope, el *moddle.Element) *model.DataObject {
	var refs []model.DataObjectReference
	for _, r := range m.refs.dataObjectRefs {
		if r.ID != el.ID || r.Element == nil {
			continue
		}
		refs = append(refs, model.DataObjectReference{
			ID:        r.Element.ID,
			Type:      r.Element.Type,
			Behaviour: raw(r.Element),
		})
	}
	return &model.DataObject{
		Entity:     newEntity(parent, el, bundle(el)),
		References: refs,
	}
}

// processOf finds the top-level process that directly contains elementID.
// Elements nested in sub-processes are not found.
func (m *mapper) processOf(elementID string) string {
	if elementID == "" {
		return ""
	}
	for _, root := range m.root.Children("rootElements") {
		if root.Type != "bpmn:Process" {
			continue
		}
		for _, child := range root.Children("flowElements") {
			if child.ID == elementID {
				return root.ID
			}
		}
	}
	return ""
}
