package mapper

import (
	"github.com/logflow/bpmnctx/pkg/moddle"
	"github.com/logflow/bpmnctx/pkg/model"
)

// nestedKeys are attributes that are either flattened into their own entities or
// given a typed home in the behaviour bundle. They are not copied into Fields.
var nestedKeys = map[string]bool{
	"eventDefinitions":    true,
	"loopCharacteristics": true,
	"ioSpecification":     true,
	"resources":           true,
	"flowElements":        true,
	"artifacts":           true,
	"laneSets":            true,
	"rootElements":        true,
	"messageFlows":        true,
}

// bundle copies the element's own attributes into a behaviour. Attributes named
// like references become lightweight descriptors.
func bundle(el *moddle.Element) *model.Behaviour {
	b := &model.Behaviour{}
	if el == nil {
		return b
	}

	for k, v := range el.Attrs {
		if nestedKeys[k] {
			continue
		}
		if moddle.IsRefKey(k) {
			if ref, ok := refOf(v); ok {
				if b.Refs == nil {
					b.Refs = make(map[string]model.Ref)
				}
				b.Refs[k] = ref
			}
			continue
		}
		if b.Fields == nil {
			b.Fields = make(map[string]any)
		}
		b.Fields[k] = moddle.Native(v)
	}
	return b
}

func refOf(v any) (model.Ref, bool) {
	switch t := v.(type) {
	case *moddle.Element:
		if t == nil {
			return model.Ref{}, false
		}
		return describe(t), true
	case string:
		if t == "" {
			return model.Ref{}, false
		}
		return model.Ref{ID: t}, true
	}
	return model.Ref{}, false
}

func describe(el *moddle.Element) model.Ref {
	return model.Ref{ID: el.ID, Type: el.Type, Name: el.Name}
}

// raw returns the JSON form of an element including its id and type.
func raw(el *moddle.Element) map[string]any {
	m, _ := moddle.Native(el).(map[string]any)
	return m
}

// activityBehaviour builds the bundle for processes and flow nodes.
func (m *mapper) activityBehaviour(el *moddle.Element) *model.Behaviour {
	b := bundle(el)

	for _, ed := range el.Children("eventDefinitions") {
		b.EventDefinitions = append(b.EventDefinitions, m.detail(ed))
	}
	b.LoopCharacteristics = m.detail(el.Child("loopCharacteristics"))
	b.IOSpecification = m.detail(el.Child("ioSpecification"))

	for _, res := range el.Children("resources") {
		b.Resources = append(b.Resources, resource(res))
	}
	return b
}

// detail maps a nested behavioural element and derives its literal fields.
func (m *mapper) detail(el *moddle.Element) *model.Detail {
	if el == nil {
		return nil
	}
	if el.Type == "bpmn:InputOutputSpecification" {
		return m.ioSpecification(el)
	}

	b := m.activityBehaviour(el)
	switch el.Type {
	case "bpmn:ConditionalEventDefinition":
		b.Expression = el.Child("condition").Body()
	case "bpmn:MultiInstanceLoopCharacteristics":
		b.LoopCardinality = el.Child("loopCardinality").Body()
		b.CompletionCondition = el.Child("completionCondition").Body()
	case "bpmn:TimerEventDefinition":
		b.TimeDuration = el.Child("timeDuration").Body()
		b.TimeCycle = el.Child("timeCycle").Body()
		b.TimeDate = el.Child("timeDate").Body()
	}

	return &model.Detail{Type: el.Type, Behaviour: b}
}

// flowBehaviour builds the bundle for a sequence flow. The condition body is only
// surfaced when the condition expression declares its type.
func flowBehaviour(el *moddle.Element) *model.Behaviour {
	b := bundle(el)
	if cond := el.Child("conditionExpression"); cond != nil && cond.Type != "" {
		b.Expression = cond.Body()
	}
	return b
}

func resource(el *moddle.Element) model.Resource {
	return model.Resource{
		Type:       el.Type,
		Expression: el.Child("resourceAssignmentExpression").Child("expression").Body(),
		Behaviour:  raw(el),
	}
}
