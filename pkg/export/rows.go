// Package export writes a mapped context as tables for BI and SQL tools.
//
// Every entity becomes one row of a common shape; the kind column says which
// collection it came from.
package export

import (
	"encoding/json"

	"github.com/logflow/bpmnctx/pkg/model"
	"github.com/logflow/bpmnctx/pkg/serializer"
)

// Entity kinds, in export order.
const (
	KindDefinition   = "definitions"
	KindProcess      = "processes"
	KindActivity     = "activities"
	KindSequenceFlow = "sequenceFlows"
	KindMessageFlow  = "messageFlows"
	KindDataObject   = "dataObjects"
	KindScript       = "scripts"
	KindTimer        = "timers"
)

// Kinds lists every entity kind in export order.
var Kinds = []string{
	KindDefinition,
	KindProcess,
	KindActivity,
	KindSequenceFlow,
	KindMessageFlow,
	KindDataObject,
	KindScript,
	KindTimer,
}

// Columns is the column order shared by every output format.
var Columns = []string{
	"kind", "id", "type", "name", "scope_id", "scope_type", "binding", "source", "target", "detail",
}

// Row is one exported entity. Empty strings are written as nulls where the
// format supports them.
type Row struct {
	Kind      string
	ID        string
	Type      string
	Name      string
	ScopeID   string
	ScopeType string
	Binding   string
	Source    string
	Target    string
	Detail    string // JSON
}

// Values returns the row in Columns order.
func (r Row) Values() []string {
	return []string{r.Kind, r.ID, r.Type, r.Name, r.ScopeID, r.ScopeType, r.Binding, r.Source, r.Target, r.Detail}
}

// Rows flattens every collection of c into rows, grouped by kind in Kinds order.
func Rows(c *serializer.Context) ([]Row, error) {
	var rows []Row

	add := func(kind string, e *model.Entity, source, target string, detail any) error {
		row := Row{
			Kind:   kind,
			ID:     e.ID,
			Type:   e.Type,
			Name:   e.Name,
			Source: source,
			Target: target,
		}
		if e.Parent != nil {
			row.ScopeID = e.Parent.ID
			row.ScopeType = e.Parent.Type
		}
		if e.Implementation != nil {
			row.Binding = e.Implementation.Kind()
		}
		d, err := marshalDetail(detail)
		if err != nil {
			return err
		}
		row.Detail = d
		rows = append(rows, row)
		return nil
	}

	def := c.Definition()
	if err := add(KindDefinition, &def.Entity, "", "", def.Behaviour); err != nil {
		return nil, err
	}
	for _, p := range c.Processes() {
		if err := add(KindProcess, &p.Entity, "", "", p.Behaviour); err != nil {
			return nil, err
		}
	}
	for _, a := range c.Activities() {
		if err := add(KindActivity, &a.Entity, "", "", a.Behaviour); err != nil {
			return nil, err
		}
	}
	for _, f := range c.SequenceFlows() {
		if err := add(KindSequenceFlow, &f.Entity, f.SourceID, f.TargetID, f.Behaviour); err != nil {
			return nil, err
		}
	}
	for _, f := range c.MessageFlows() {
		if err := add(KindMessageFlow, &f.Entity, endpoint(f.Source), endpoint(f.Target), f.Behaviour); err != nil {
			return nil, err
		}
	}
	for _, d := range c.DataObjects() {
		if err := add(KindDataObject, &d.Entity, "", "", d.References); err != nil {
			return nil, err
		}
	}

	for _, s := range c.Scripts() {
		detail, err := marshalDetail(s.Script)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{
			Kind:      KindScript,
			ID:        s.Script.ID,
			Type:      s.Script.Type,
			Name:      s.Name,
			ScopeID:   s.Parent.ID,
			ScopeType: s.Parent.Type,
			Detail:    detail,
		})
	}
	for _, t := range c.Timers() {
		detail, err := marshalDetail(t.Timer)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{
			Kind:      KindTimer,
			ID:        t.Timer.ID,
			Type:      t.Timer.Type,
			Name:      t.Name,
			ScopeID:   t.Parent.ID,
			ScopeType: t.Parent.Type,
			Detail:    detail,
		})
	}

	return rows, nil
}

// ByKind groups rows by kind.
func ByKind(rows []Row) map[string][]Row {
	out := make(map[string][]Row, len(Kinds))
	for _, r := range rows {
		out[r.Kind] = append(out[r.Kind], r)
	}
	return out
}

func endpoint(e model.Endpoint) string {
	if e.ProcessID == "" {
		return e.ID
	}
	return e.ProcessID + "/" + e.ID
}

func marshalDetail(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return "", nil
	}
	return string(data), nil
}
