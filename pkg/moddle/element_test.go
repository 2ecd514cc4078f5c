package moddle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementUnmarshal(t *testing.T) {
	raw := `{
		"$type": "bpmn:UserTask",
		"id": "approve",
		"name": "Approve",
		"priority": 2,
		"candidates": ["a", "b"],
		"loopCharacteristics": {"$type": "bpmn:MultiInstanceLoopCharacteristics", "isSequential": true},
		"eventDefinitions": [{"$type": "bpmn:TimerEventDefinition", "id": "t1"}]
	}`

	var el Element
	require.NoError(t, json.Unmarshal([]byte(raw), &el))

	assert.Equal(t, "bpmn:UserTask", el.Type)
	assert.Equal(t, "approve", el.ID)
	assert.Equal(t, "Approve", el.Name)
	assert.NotContains(t, el.Attrs, "id")
	assert.NotContains(t, el.Attrs, "$type")

	loop := el.Child("loopCharacteristics")
	require.NotNil(t, loop)
	assert.True(t, loop.Bool("isSequential"))

	defs := el.Children("eventDefinitions")
	require.Len(t, defs, 1)
	assert.Equal(t, "t1", defs[0].ID)

	assert.Equal(t, []any{"a", "b"}, el.Get("candidates"))
	assert.Nil(t, el.Children("candidates"))
}

func TestElementAccessorsOnNil(t *testing.T) {
	var el *Element
	assert.Nil(t, el.Get("x"))
	assert.Empty(t, el.String("x"))
	assert.False(t, el.Bool("x"))
	assert.Nil(t, el.Child("x"))
	assert.Nil(t, el.Children("x"))
	assert.Nil(t, el.Fields())
	assert.Empty(t, el.Body())
}

func TestElementFields(t *testing.T) {
	el := NewElement("bpmn:SequenceFlow", "flow", "", map[string]any{
		"conditionExpression": NewElement("bpmn:FormalExpression", "", "", map[string]any{"body": "true"}),
		"weight":              3,
		"tags":                []*Element{NewElement("ext:Tag", "t", "tag", nil)},
	})

	fields := el.Fields()
	assert.Equal(t, map[string]any{
		"conditionExpression": map[string]any{"$type": "bpmn:FormalExpression", "body": "true"},
		"weight":              float64(3),
		"tags":                []any{map[string]any{"$type": "ext:Tag", "id": "t", "name": "tag"}},
	}, fields)

	t.Run("survives a json round trip", func(t *testing.T) {
		data, err := json.Marshal(fields)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, fields, decoded)
	})

	t.Run("is a copy", func(t *testing.T) {
		fields["weight"] = 9
		assert.Equal(t, 3, el.Get("weight"))
	})
}

func TestIsRefKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"messageRef", true},
		{"attachedToRef", true},
		{"errorRef", true},
		{"Ref", false},
		{"$parentRef", false},
		{"reference", false},
		{"dataObjectRefs", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRefKey(tt.key))
		})
	}
}

func TestWalk(t *testing.T) {
	stub := NewElement("bpmn:UserTask", "approve", "", nil)
	root := NewElement("bpmn:Process", "p", "", map[string]any{
		"flowElements": []*Element{
			NewElement("bpmn:BoundaryEvent", "b", "", map[string]any{"attachedToRef": stub}),
			NewElement("bpmn:UserTask", "approve", "", map[string]any{
				"loopCharacteristics": NewElement("bpmn:StandardLoopCharacteristics", "loop", "", nil),
			}),
		},
	})

	var visited []*Element
	Walk(root, func(el *Element) { visited = append(visited, el) })

	assert.Len(t, visited, 4)
	for _, el := range visited {
		assert.NotSame(t, stub, el)
	}
}
