package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wayneeseguin/reconcile/internal/state"
	"github.com/wayneeseguin/reconcile/pkg/reconcile"
)

// plusOne is the canonical counter-ascent ActionTask (spec.md S1),
// exercised here entirely through the public pkg/reconcile surface.
func plusOne() *reconcile.ActionTask {
	return reconcile.NewActionTask(
		reconcile.MustParseLens("/counter"),
		reconcile.OpUpdate,
		"counter+1",
		func(s reconcile.Value, a reconcile.Args) bool {
			cur, ok := s.Get("counter")
			return ok && cur.Kind() == state.KindNum && a.Target != nil && cur.AsNum() < a.Target.AsNum()
		},
		func(v reconcile.View, a reconcile.Args) error {
			cur, _ := v.Read()
			return v.Write(cur.(float64) + 1)
		},
		nil,
	)
}

func TestFindPlan_CounterAscent(t *testing.T) {
	s, err := reconcile.DecodeValue([]byte("counter: 0\n"))
	require.NoError(t, err)
	target, err := reconcile.DecodeTarget([]byte("counter: 3\n"))
	require.NoError(t, err)

	plan, stats, err := reconcile.FindPlan(context.Background(), s, target,
		[]reconcile.Task{plusOne()}, reconcile.DefaultPlannerOptions())
	require.NoError(t, err)
	require.NotNil(t, plan)
	require.Greater(t, stats.TasksConsidered, 0)

	str := reconcile.Serialize(plan)
	require.Contains(t, str, "counter+1")
}

func TestAgent_CounterAscent(t *testing.T) {
	s, err := reconcile.DecodeValue([]byte("counter: 0\n"))
	require.NoError(t, err)

	a := reconcile.NewAgent(s, []reconcile.Task{plusOne()}, reconcile.DefaultAgentOptions())
	defer a.Stop()

	a.Seek(reconcile.Target(state.Partial(map[string]state.Target{
		"counter": state.Of(state.Num(3)),
	})))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := a.Wait(ctx)
	require.NoError(t, err)
	require.True(t, res.Success)

	counter, ok := res.State.Get("counter")
	require.True(t, ok)
	require.Equal(t, 3.0, counter.AsNum())
}

func TestDiffAndApply(t *testing.T) {
	s, err := reconcile.DecodeValue([]byte("name: old\n"))
	require.NoError(t, err)
	target, err := reconcile.DecodeTarget([]byte("name: new\n"))
	require.NoError(t, err)

	ops := reconcile.Diff(s, target)
	require.Len(t, ops, 1)
	require.Equal(t, state.OpUpdate, ops[0].Kind)

	applied := reconcile.Apply(s, target)
	name, ok := applied.Get("name")
	require.True(t, ok)
	require.Equal(t, "new", name.AsStr())
}
