package registry

import (
	"sort"

	"github.com/logflow/bpmnctx/pkg/errors"
	"github.com/logflow/bpmnctx/pkg/model"
)

// vocabulary is the standard BPMN element set, without namespace prefix.
var vocabulary = []string{
	// Containers and flows
	"Process", "SubProcess", "AdHocSubProcess", "Transaction",
	"SequenceFlow", "MessageFlow", "Association",

	// Tasks
	"Task", "UserTask", "ManualTask", "ScriptTask", "ServiceTask", "SendTask",
	"ReceiveTask", "BusinessRuleTask", "CallActivity",

	// Events
	"StartEvent", "EndEvent", "IntermediateCatchEvent", "IntermediateThrowEvent",
	"BoundaryEvent",

	// Event definitions
	"CancelEventDefinition", "CompensateEventDefinition", "ConditionalEventDefinition",
	"ErrorEventDefinition", "EscalationEventDefinition", "LinkEventDefinition",
	"MessageEventDefinition", "SignalEventDefinition", "TerminateEventDefinition",
	"TimerEventDefinition",

	// Gateways
	"ExclusiveGateway", "InclusiveGateway", "ParallelGateway", "EventBasedGateway",
	"ComplexGateway",

	// Loops and data
	"StandardLoopCharacteristics", "MultiInstanceLoopCharacteristics",
	"InputOutputSpecification", "DataInput", "DataOutput", "DataObject",
	"DataStore", "DataStoreReference",

	// Root elements
	"Escalation", "Signal", "Message", "Category", "Interface", "Operation",
	"ItemDefinition", "Resource", "EndPoint", "CorrelationProperty", "CorrelationKey",
	"PartnerEntity", "PartnerRole", "GlobalTask", "GlobalUserTask", "GlobalScriptTask",
	"GlobalManualTask", "GlobalBusinessRuleTask",
}

// Defaults returns the standard vocabulary bound to Named behaviours, plus the
// behaviours the fixed prefixed table is built from.
func Defaults() Types {
	types := make(Types, len(vocabulary)+4)
	for _, name := range vocabulary {
		types[name] = Named(name)
	}
	for _, name := range []string{Dummy, Definition, BpmnError, ServiceImplementation} {
		types[name] = Named(name)
	}
	return types
}

// Aliases returns an extender mapping prefixed types onto behaviours of t by name,
// e.g. "camunda:Connector" to "ServiceTask". A name missing from t is bound as a
// Named behaviour of that name.
func (t Types) Aliases(aliases map[string]string) Extender {
	return func(typeMapper map[string]model.Implementation) {
		for typ, name := range aliases {
			impl := t[name]
			if impl == nil {
				impl = Named(name)
			}
			typeMapper[typ] = impl
		}
	}
}

// Check verifies that every type resolves. All failures are collected.
func (r *Registry) Check(types ...string) error {
	var errs errors.MultiError
	for _, typ := range types {
		if _, err := r.Lookup(typ); err != nil {
			errs.Add(err)
		}
	}
	return errs.Combined()
}

// TypesOf collects the distinct types the resolver will be asked for, including
// nested details, sorted.
func TypesOf(m *model.Mapped) []string {
	seen := make(map[string]bool)
	var collect func(typ string, b *model.Behaviour)
	collect = func(typ string, b *model.Behaviour) {
		seen[typ] = true
		if b == nil {
			return
		}
		if b.LoopCharacteristics != nil {
			collect(b.LoopCharacteristics.Type, b.LoopCharacteristics.Behaviour)
		}
		for _, ed := range b.EventDefinitions {
			collect(ed.Type, ed.Behaviour)
		}
		if b.IOSpecification != nil {
			collect(b.IOSpecification.Type, b.IOSpecification.Behaviour)
		}
	}

	for _, r := range m.Resolvables() {
		collect(r.TypeName(), r.Bundle())
	}

	out := make([]string, 0, len(seen))
	for typ := range seen {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}
