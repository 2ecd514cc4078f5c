package serializer

import "github.com/logflow/bpmnctx/pkg/model"

func filter[T any](items []T, keep func(T) bool) []T {
	var out []T
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func find[T any](items []T, match func(T) bool) T {
	var zero T
	for _, item := range items {
		if match(item) {
			return item
		}
	}
	return zero
}

// Definition returns the document root entity.
func (c *Context) Definition() *model.Definition {
	return c.mapped.Definition
}

// Processes returns every top-level process.
func (c *Context) Processes() []*model.Process {
	return c.mapped.Processes
}

// ProcessByID returns a process or nil.
func (c *Context) ProcessByID(id string) *model.Process {
	return find(c.mapped.Processes, func(p *model.Process) bool { return p.ID == id })
}

// ExecutableProcesses returns the processes flagged isExecutable.
func (c *Context) ExecutableProcesses() []*model.Process {
	return filter(c.mapped.Processes, (*model.Process).IsExecutable)
}

// Activities returns every activity in document order.
func (c *Context) Activities() []*model.Activity {
	return c.mapped.Activities
}

// ActivitiesByScope returns the activities declared directly in scopeID.
func (c *Context) ActivitiesByScope(scopeID string) []*model.Activity {
	return filter(c.mapped.Activities, func(a *model.Activity) bool { return a.ParentID() == scopeID })
}

// ActivityByID returns an activity or nil.
func (c *Context) ActivityByID(id string) *model.Activity {
	return find(c.mapped.Activities, func(a *model.Activity) bool { return a.ID == id })
}

// Errors returns the bpmn:Error root elements.
func (c *Context) Errors() []*model.Activity {
	return filter(c.mapped.Activities, isError)
}

// ErrorByID returns a bpmn:Error element or nil.
func (c *Context) ErrorByID(id string) *model.Activity {
	return find(c.mapped.Activities, func(a *model.Activity) bool { return a.ID == id && isError(a) })
}

func isError(a *model.Activity) bool {
	return a.Type == "bpmn:Error"
}

// DataObjects returns every data object.
func (c *Context) DataObjects() []*model.DataObject {
	return c.mapped.DataObjects
}

// DataObjectByID returns a data object or nil.
func (c *Context) DataObjectByID(id string) *model.DataObject {
	return find(c.mapped.DataObjects, func(d *model.DataObject) bool { return d.ID == id })
}

// SequenceFlows returns every sequence flow.
func (c *Context) SequenceFlows() []*model.SequenceFlow {
	return c.mapped.SequenceFlows
}

// SequenceFlowsByScope returns the sequence flows declared directly in scopeID.
func (c *Context) SequenceFlowsByScope(scopeID string) []*model.SequenceFlow {
	return filter(c.mapped.SequenceFlows, func(f *model.SequenceFlow) bool { return f.ParentID() == scopeID })
}

// SequenceFlowByID returns a sequence flow or nil.
func (c *Context) SequenceFlowByID(id string) *model.SequenceFlow {
	return find(c.mapped.SequenceFlows, func(f *model.SequenceFlow) bool { return f.ID == id })
}

// InboundSequenceFlows returns the flows targeting activityID.
func (c *Context) InboundSequenceFlows(activityID string) []*model.SequenceFlow {
	return filter(c.mapped.SequenceFlows, func(f *model.SequenceFlow) bool { return f.TargetID == activityID })
}

// OutboundSequenceFlows returns the flows leaving activityID.
func (c *Context) OutboundSequenceFlows(activityID string) []*model.SequenceFlow {
	return filter(c.mapped.SequenceFlows, func(f *model.SequenceFlow) bool { return f.SourceID == activityID })
}

// MessageFlows returns every message flow.
func (c *Context) MessageFlows() []*model.MessageFlow {
	return c.mapped.MessageFlows
}

// MessageFlowsByScope returns the message flows whose source lies in process scopeID.
func (c *Context) MessageFlowsByScope(scopeID string) []*model.MessageFlow {
	return filter(c.mapped.MessageFlows, func(f *model.MessageFlow) bool { return f.Source.ProcessID == scopeID })
}

// Scripts returns every registered script.
func (c *Context) Scripts() []*model.Script {
	return c.mapped.Scripts
}

// ScriptsByType returns the scripts owned by elements of elementType,
// e.g. bpmn:SequenceFlow.
func (c *Context) ScriptsByType(elementType string) []*model.Script {
	return filter(c.mapped.Scripts, func(s *model.Script) bool { return s.Parent.Type == elementType })
}

// ScriptsByElementID returns the scripts owned by one element.
func (c *Context) ScriptsByElementID(id string) []*model.Script {
	return filter(c.mapped.Scripts, func(s *model.Script) bool { return s.Parent.ID == id })
}

// Timers returns every registered timer.
func (c *Context) Timers() []*model.Timer {
	return c.mapped.Timers
}

// TimersByElementID returns the timers owned by one element.
func (c *Context) TimersByElementID(id string) []*model.Timer {
	return filter(c.mapped.Timers, func(t *model.Timer) bool { return t.Parent.ID == id })
}
