package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logflow/bpmnctx/pkg/errors"
	"github.com/logflow/bpmnctx/pkg/mapper"
	"github.com/logflow/bpmnctx/pkg/moddle"
	"github.com/logflow/bpmnctx/pkg/model"
)

func mapFixture(t *testing.T) *model.Mapped {
	t.Helper()
	doc, err := moddle.Load("../../testdata/order.json")
	require.NoError(t, err)
	m, err := mapper.Map(doc)
	require.NoError(t, err)
	return m
}

func TestLookup(t *testing.T) {
	r := New(Types{
		"Task":        Named("Task"),
		Dummy:         Named("DummyImpl"),
		Definition:    Named("DefinitionImpl"),
		"ns:Nested":   Named("Nested"),
		"Definitions": Named("PlainDefinitions"),
	})

	tests := []struct {
		typ  string
		want string
	}{
		{"bpmn:Task", "Task"},
		{"camunda:Task", "Task"},
		{"bpmn:DataObjectReference", "DummyImpl"},
		{"bpmn:Definitions", "DefinitionImpl"},
		// only the first prefix is stripped
		{"x:ns:Nested", "Nested"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			impl, err := r.Lookup(tt.typ)
			require.NoError(t, err)
			assert.Equal(t, tt.want, impl.Kind())
		})
	}

	t.Run("bpmn:Error is unknown without BpmnError or Error", func(t *testing.T) {
		_, err := r.Lookup("bpmn:Error")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeUnknownType))
	})

	t.Run("unprefixed type is not looked up in types", func(t *testing.T) {
		_, err := r.Lookup("Task")
		require.Error(t, err)
	})

	t.Run("unknown type names the type", func(t *testing.T) {
		_, err := r.Lookup("bpmn:Foo")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Unknown activity type bpmn:Foo")
	})
}

func TestExtender(t *testing.T) {
	r := New(Types{"Task": Named("Task")}, func(typeMapper map[string]model.Implementation) {
		typeMapper["custom:Task"] = Named("Custom")
		typeMapper["bpmn:Task"] = Named("Override")
	})

	impl, err := r.Lookup("custom:Task")
	require.NoError(t, err)
	assert.Equal(t, "Custom", impl.Kind())

	impl, err = r.Lookup("bpmn:Task")
	require.NoError(t, err)
	assert.Equal(t, "Override", impl.Kind())

	impl, err = r.Lookup("other:Task")
	require.NoError(t, err)
	assert.Equal(t, "Task", impl.Kind())
}

func TestAliases(t *testing.T) {
	types := Defaults()
	r := New(types, types.Aliases(map[string]string{
		"camunda:Connector": "ServiceTask",
		"acme:Robot":        "RobotTask",
	}))

	impl, err := r.Lookup("camunda:Connector")
	require.NoError(t, err)
	assert.Equal(t, Named("ServiceTask"), impl)

	impl, err = r.Lookup("acme:Robot")
	require.NoError(t, err)
	assert.Equal(t, "RobotTask", impl.Kind())
}

func TestResolve(t *testing.T) {
	t.Run("service task with implementation", func(t *testing.T) {
		task := &model.Entity{
			Type:      "bpmn:ServiceTask",
			Behaviour: &model.Behaviour{Fields: map[string]any{"implementation": "${svc}"}},
		}
		require.NoError(t, Default().Resolve(task))
		assert.Equal(t, Named("ServiceTask"), task.Implementation)
		assert.Equal(t, Named(ServiceImplementation), task.Behaviour.Service)
	})

	t.Run("send task without implementation", func(t *testing.T) {
		task := &model.Entity{Type: "bpmn:SendTask", Behaviour: &model.Behaviour{}}
		require.NoError(t, Default().Resolve(task))
		assert.Equal(t, Named("SendTask"), task.Implementation)
		assert.Nil(t, task.Behaviour.Service)
	})

	t.Run("nested details", func(t *testing.T) {
		task := &model.Entity{
			Type: "bpmn:UserTask",
			Behaviour: &model.Behaviour{
				LoopCharacteristics: &model.Detail{Type: "bpmn:StandardLoopCharacteristics"},
				EventDefinitions:    []*model.Detail{{Type: "bpmn:TimerEventDefinition", Behaviour: &model.Behaviour{}}},
				IOSpecification:     &model.Detail{Type: "bpmn:InputOutputSpecification"},
			},
		}
		require.NoError(t, Default().Resolve(task))
		assert.Equal(t, Named("StandardLoopCharacteristics"), task.Behaviour.LoopCharacteristics.Implementation)
		assert.Equal(t, Named("TimerEventDefinition"), task.Behaviour.EventDefinitions[0].Implementation)
		assert.Equal(t, Named("InputOutputSpecification"), task.Behaviour.IOSpecification.Implementation)
	})

	t.Run("unknown nested type fails", func(t *testing.T) {
		task := &model.Entity{
			Type:      "bpmn:UserTask",
			Behaviour: &model.Behaviour{EventDefinitions: []*model.Detail{{Type: "acme:Bell"}}},
		}
		err := Default().Resolve(task)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "acme:Bell")
	})
}

func TestResolveTypes(t *testing.T) {
	t.Run("binds every entity of the fixture", func(t *testing.T) {
		m := mapFixture(t)
		require.NoError(t, ResolveTypes(m, Default().Resolve))

		for _, r := range m.Resolvables() {
			e := r.(*model.Entity)
			assert.NotNil(t, e.Implementation, e.ID)
		}
		assert.Equal(t, Named(Definition), m.Definition.Implementation)
		for _, a := range m.Activities {
			if a.ID == "paymentError" {
				assert.Equal(t, Named(BpmnError), a.Implementation)
			}
			if a.ID == "charge" {
				assert.Equal(t, Named(ServiceImplementation), a.Behaviour.Service)
			}
		}
	})

	t.Run("fails fast on an unknown type", func(t *testing.T) {
		m := mapFixture(t)
		m.Activities[1].Type = "acme:Robot"

		var calls int
		resolve := func(r model.Resolvable) error {
			calls++
			return Default().Resolve(r)
		}

		err := ResolveTypes(m, resolve)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeUnknownType))
		assert.Less(t, calls, len(m.Resolvables()))
	})
}

func TestCheck(t *testing.T) {
	m := mapFixture(t)
	types := TypesOf(m)

	assert.Contains(t, types, "bpmn:TimerEventDefinition")
	assert.Contains(t, types, "bpmn:InputOutputSpecification")
	assert.IsNonDecreasing(t, types)
	assert.NoError(t, Default().Check(types...))

	err := Default().Check("bpmn:Task", "acme:Robot", "acme:Drone")
	require.Error(t, err)
	var multi *errors.MultiError
	require.ErrorAs(t, err, &multi)
	assert.Len(t, multi.Errors, 2)
}

func TestNames(t *testing.T) {
	names := New(Types{"Task": Named("Task"), Dummy: Named(Dummy)}).Names()
	assert.Equal(t, []string{"*:Dummy", "*:Task", "bpmn:DataObjectReference"}, names)
}

func TestConcurrentResolve(t *testing.T) {
	r := Default()
	docs := make([]*model.Mapped, 8)
	for i := range docs {
		docs[i] = mapFixture(t)
	}

	var wg sync.WaitGroup
	for _, m := range docs {
		wg.Add(1)
		go func(m *model.Mapped) {
			defer wg.Done()
			assert.NoError(t, ResolveTypes(m, r.Resolve))
		}(m)
	}
	wg.Wait()
}

func TestDefaultRootElements(t *testing.T) {
	for _, typ := range []string{
		"bpmn:ItemDefinition", "bpmn:Resource", "bpmn:EndPoint", "bpmn:CorrelationProperty",
		"bpmn:Operation", "bpmn:Interface", "bpmn:Message", "bpmn:Error",
	} {
		t.Run(typ, func(t *testing.T) {
			_, err := Default().Lookup(typ)
			assert.NoError(t, err)
		})
	}
}
