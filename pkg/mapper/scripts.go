package mapper

import (
	"github.com/logflow/bpmnctx/pkg/moddle"
	"github.com/logflow/bpmnctx/pkg/model"
)

// Extender is called for every flattened element after the built-in scripts and
// timers of that element have been registered. It may register more, e.g. scripts
// declared in vendor extension elements.
type Extender func(el *moddle.Element, ctx *ExtendContext)

// ExtendContext registers scripts and timers owned by one element.
type ExtendContext struct {
	owner  model.Scope
	mapped *model.Mapped
}

// Owner returns the element the context registers for.
func (c *ExtendContext) Owner() model.Scope {
	return c.owner
}

// AddScript registers a script under name.
func (c *ExtendContext) AddScript(name string, script model.ScriptInfo) {
	c.mapped.Scripts = append(c.mapped.Scripts, &model.Script{
		Name:   name,
		Parent: c.owner,
		Script: script,
	})
}

// AddTimer registers a timer under name.
func (c *ExtendContext) AddTimer(name string, timer model.TimerInfo) {
	c.mapped.Timers = append(c.mapped.Timers, &model.Timer{
		Name:   name,
		Parent: c.owner,
		Timer:  timer,
	})
}

func (m *mapper) extend(el *moddle.Element) {
	ctx := &ExtendContext{
		owner:  model.Scope{ID: el.ID, Type: el.Type},
		mapped: m.out,
	}

	addBuiltinScripts(el, ctx)
	addBuiltinTimers(el, ctx)

	if m.extender != nil {
		m.extender(el, ctx)
	}
}

func addBuiltinScripts(el *moddle.Element, ctx *ExtendContext) {
	switch el.Type {
	case "bpmn:ScriptTask":
		body, resource := el.String("script"), el.String("resource")
		if body == "" && resource == "" {
			return
		}
		ctx.AddScript(el.ID, model.ScriptInfo{
			ID:           el.ID,
			Type:         el.Type,
			ScriptFormat: el.String("scriptFormat"),
			Body:         body,
			Resource:     resource,
		})

	case "bpmn:SequenceFlow":
		// untyped conditions are plain expressions, not scripts
		cond := el.Child("conditionExpression")
		if cond == nil || cond.Type == "" || cond.String("language") == "" {
			return
		}
		ctx.AddScript(el.ID, model.ScriptInfo{
			ID:           cond.ID,
			Type:         cond.Type,
			ScriptFormat: cond.String("language"),
			Body:         cond.Body(),
			Resource:     cond.String("resource"),
		})
	}
}

func addBuiltinTimers(el *moddle.Element, ctx *ExtendContext) {
	for _, ed := range el.Children("eventDefinitions") {
		if ed.Type != "bpmn:TimerEventDefinition" {
			continue
		}
		name := ed.ID
		if name == "" {
			name = el.ID
		}
		ctx.AddTimer(name, model.TimerInfo{
			ID:           ed.ID,
			Type:         ed.Type,
			TimeDuration: ed.Child("timeDuration").Body(),
			TimeCycle:    ed.Child("timeCycle").Body(),
			TimeDate:     ed.Child("timeDate").Body(),
		})
	}
}
