package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayneeseguin/reconcile/internal/lens"
	"github.com/wayneeseguin/reconcile/internal/path"
	"github.com/wayneeseguin/reconcile/internal/state"
	"github.com/wayneeseguin/reconcile/internal/view"
)

func TestIDIsStableAcrossInstances(t *testing.T) {
	l := lens.MustParse("/counters/:key")
	a := NewActionTask(l, Update, "plusOne", nil, nil, nil)
	b := NewActionTask(l, Update, "plusOne", nil, nil, nil)
	assert.Equal(t, a.ID(), b.ID())
}

func TestIDDiffersByOpOrLabel(t *testing.T) {
	l := lens.MustParse("/counters/:key")
	a := NewActionTask(l, Update, "plusOne", nil, nil, nil)
	c := NewActionTask(l, Create, "plusOne", nil, nil, nil)
	d := NewActionTask(l, Update, "plusTwo", nil, nil, nil)
	assert.NotEqual(t, a.ID(), c.ID())
	assert.NotEqual(t, a.ID(), d.ID())
}

func TestImplicitConditions(t *testing.T) {
	s := state.ValueFromInterface(map[string]interface{}{"a": 1.0})
	present := path.MustParse("/a")
	absent := path.MustParse("/missing")

	assert.True(t, ImplicitConditionHolds(Update, s, present))
	assert.False(t, ImplicitConditionHolds(Update, s, absent))
	assert.True(t, ImplicitConditionHolds(Create, s, absent))
	assert.False(t, ImplicitConditionHolds(Create, s, present))
	assert.True(t, ImplicitConditionHolds(Delete, s, present))
	assert.True(t, ImplicitConditionHolds(Any, s, absent))
}

func TestGroundAndEquality(t *testing.T) {
	l := lens.MustParse("/counters/:key")
	tsk := NewActionTask(l, Update, "plusOne", nil, func(v view.View, a Args) error {
		return nil
	}, nil)

	target := state.Num(2)
	inst1, ok := Ground(tsk, lens.Binding{"key": "a"}, &target)
	require.True(t, ok)
	inst2, ok := Ground(tsk, lens.Binding{"key": "a"}, &target)
	require.True(t, ok)
	assert.True(t, inst1.Equal(inst2))

	other, ok := Ground(tsk, lens.Binding{"key": "b"}, &target)
	require.True(t, ok)
	assert.False(t, inst1.Equal(other))
}

func TestMethodEmptyReturnIsNotAnError(t *testing.T) {
	l := lens.MustParse("/counters")
	m := NewMethodTask(l, Any, "nPlusOne", nil, func(s state.Value, a Args) ([]Instruction, error) {
		return nil, nil
	})
	insts, err := m.Method(state.Null, Args{Binding: lens.Binding{}})
	require.NoError(t, err)
	assert.Empty(t, insts)
}
