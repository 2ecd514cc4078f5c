package mapper

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logflow/bpmnctx/pkg/moddle"
	"github.com/logflow/bpmnctx/pkg/model"
)

func TestBuiltinScripts(t *testing.T) {
	m := loadFixture(t)

	require.Len(t, m.Scripts, 2)

	flow := m.Scripts[0]
	assert.Equal(t, "toReview", flow.Name)
	assert.Equal(t, model.Scope{ID: "toReview", Type: "bpmn:SequenceFlow"}, flow.Parent)
	assert.Equal(t, "bpmn:FormalExpression", flow.Script.Type)
	assert.Equal(t, "JavaScript", flow.Script.ScriptFormat)
	assert.Equal(t, "next(null, this.environment.variables.amount > 100);", flow.Script.Body)

	task := m.Scripts[1]
	assert.Equal(t, "audit", task.Name)
	assert.Equal(t, model.Scope{ID: "audit", Type: "bpmn:ScriptTask"}, task.Parent)
	assert.Equal(t, model.ScriptInfo{
		ID:           "audit",
		Type:         "bpmn:ScriptTask",
		ScriptFormat: "javascript",
		Body:         "next(null, true);",
	}, task.Script)
}

func TestBuiltinTimers(t *testing.T) {
	m := loadFixture(t)

	require.Len(t, m.Timers, 1)
	assert.Equal(t, &model.Timer{
		Name:   "timeoutTimer",
		Parent: model.Scope{ID: "timeout", Type: "bpmn:BoundaryEvent"},
		Timer: model.TimerInfo{
			ID:           "timeoutTimer",
			Type:         "bpmn:TimerEventDefinition",
			TimeDuration: "PT1H",
		},
	}, m.Timers[0])
}

func TestScriptTaskWithResource(t *testing.T) {
	doc := &moddle.Context{
		RootHandler: moddle.RootHandler{Element: moddle.NewElement("bpmn:Definitions", "defs", "", map[string]any{
			"rootElements": []*moddle.Element{
				moddle.NewElement("bpmn:Process", "p", "", map[string]any{
					"flowElements": []*moddle.Element{
						moddle.NewElement("bpmn:ScriptTask", "external", "", map[string]any{
							"scriptFormat": "javascript",
							"resource":     "/scripts/run.js",
						}),
						moddle.NewElement("bpmn:ScriptTask", "empty", "", nil),
					},
				}),
			},
		})},
	}

	m, err := Map(doc)
	require.NoError(t, err)
	require.Len(t, m.Scripts, 1)
	assert.Empty(t, m.Scripts[0].Script.Body)
	assert.Equal(t, "/scripts/run.js", m.Scripts[0].Script.Resource)
}

func TestExtender(t *testing.T) {
	doc, err := moddle.Load("../../testdata/order.json")
	require.NoError(t, err)

	var visited []string
	extend := func(el *moddle.Element, ctx *ExtendContext) {
		visited = append(visited, el.ID)
		if el.ID != "audit" {
			return
		}
		for _, dir := range []string{"input", "output"} {
			ctx.AddScript(fmt.Sprintf("parameter/%s", dir), model.ScriptInfo{
				ID:           "parameter_" + dir,
				Type:         "camunda:InputParameter",
				ScriptFormat: "javascript",
				Body:         dir + ";",
			})
		}
		ctx.AddTimer("audit/deadline", model.TimerInfo{Type: "camunda:Deadline", TimeDate: "2026-01-01T00:00:00Z"})
	}

	m, err := Map(doc, WithExtender(extend))
	require.NoError(t, err)

	assert.Contains(t, visited, "order")
	assert.Contains(t, visited, "review")
	assert.Contains(t, visited, "invoiceFlow")
	assert.Contains(t, visited, "orderData")
	assert.NotContains(t, visited, "orderRef1")
	assert.NotContains(t, visited, "collaboration")

	var owned []*model.Script
	for _, s := range m.Scripts {
		if s.Parent.ID == "audit" {
			owned = append(owned, s)
		}
	}
	require.Len(t, owned, 3)
	assert.Equal(t, "audit", owned[0].Name)
	assert.Equal(t, "parameter/input", owned[1].Name)
	assert.Equal(t, model.Scope{ID: "audit", Type: "bpmn:ScriptTask"}, owned[2].Parent)

	require.Len(t, m.Timers, 2)
	assert.Equal(t, "audit/deadline", m.Timers[1].Name)
}
