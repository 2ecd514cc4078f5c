package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logflow/bpmnctx/pkg/export"
	"github.com/logflow/bpmnctx/pkg/moddle"
	"github.com/logflow/bpmnctx/pkg/model"
	"github.com/logflow/bpmnctx/pkg/registry"
	"github.com/logflow/bpmnctx/pkg/serializer"
)

func orderContext(t *testing.T) *serializer.Context {
	t.Helper()
	doc, err := moddle.Load("../../testdata/order.json")
	require.NoError(t, err)
	c, err := serializer.New(doc, registry.Default().Resolve)
	require.NoError(t, err)
	return c
}

func TestCompareIdentical(t *testing.T) {
	c := orderContext(t)

	r, err := Compare(c, orderContext(t))
	require.NoError(t, err)
	assert.False(t, r.HasChanges())
	assert.Contains(t, r.String(), "No structural changes.")

	require.Len(t, r.Counts, len(export.Kinds))
	for _, kc := range r.Counts {
		assert.Equal(t, kc.Left, kc.Right, kc.Kind)
	}
}

func TestCompare(t *testing.T) {
	left := orderContext(t)

	s := left.Snapshot()
	var charge *model.Activity
	for _, a := range s.Activities {
		if a.ID == "charge" {
			charge = a
		}
	}
	require.NotNil(t, charge)
	charge.Name = "Charge invoice"
	s.Activities = append(s.Activities, &model.Activity{Entity: model.Entity{
		ID:     "notify",
		Type:   "bpmn:SendTask",
		Parent: charge.Parent,
	}})
	s.Timers = nil

	right, err := serializer.FromSnapshot(s, registry.Default().Resolve)
	require.NoError(t, err)

	r, err := Compare(left, right)
	require.NoError(t, err)
	require.True(t, r.HasChanges())

	bySig := map[string][]Change{}
	for _, c := range r.Changes {
		bySig[c.Significance] = append(bySig[c.Significance], c)
	}

	require.Len(t, bySig[Added], 1)
	assert.Equal(t, "notify", bySig[Added][0].ID)
	assert.Equal(t, export.KindActivity, bySig[Added][0].Kind)

	require.Len(t, bySig[Removed], 1)
	assert.Equal(t, export.KindTimer, bySig[Removed][0].Kind)

	require.Len(t, bySig[Changed], 1)
	assert.Equal(t, "charge", bySig[Changed][0].ID)
	assert.Contains(t, bySig[Changed][0].Fields, "name")

	// Activities sort before timers.
	assert.Equal(t, export.KindActivity, r.Changes[0].Kind)
	assert.Equal(t, export.KindTimer, r.Changes[len(r.Changes)-1].Kind)

	for _, kc := range r.Counts {
		switch kc.Kind {
		case export.KindActivity:
			assert.Equal(t, kc.Left+1, kc.Right)
		case export.KindTimer:
			assert.Equal(t, 1, kc.Left)
			assert.Zero(t, kc.Right)
		}
	}

	out := r.String()
	assert.Contains(t, out, "+ activities notify")
	assert.Contains(t, out, "~ activities charge")
	assert.Contains(t, out, "3 changes:")
}
