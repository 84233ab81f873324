package generictask

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wayneeseguin/reconcile/internal/agent"
	"github.com/wayneeseguin/reconcile/internal/planner"
	"github.com/wayneeseguin/reconcile/internal/state"
)

func TestForTarget_CounterAscent(t *testing.T) {
	s := state.ValueFromInterface(map[string]interface{}{"counter": 0.0})
	target := state.TargetFromInterface(map[string]interface{}{"counter": 3.0})

	tasks := ForTarget(s, target)
	require.NotEmpty(t, tasks)

	plan, _, err := planner.FindPlan(context.Background(), s, target, tasks, planner.DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, plan)
}

func TestForTarget_CascadingDelete(t *testing.T) {
	s := state.ValueFromInterface(map[string]interface{}{
		"a": map[string]interface{}{
			"b": map[string]interface{}{
				"c": map[string]interface{}{
					"d": "e",
				},
			},
		},
	})
	target := state.Partial(map[string]state.Target{
		"a": state.Partial(map[string]state.Target{"b": state.Deleted}),
	})

	tasks := ForTarget(s, target)
	plan, _, err := planner.FindPlan(context.Background(), s, target, tasks, planner.DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, plan)

	a := agent.New(s, tasks, agent.DefaultOptions())
	defer a.Stop()
	a.Seek(target)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := a.Wait(ctx)
	require.NoError(t, err)
	require.True(t, res.Success)

	av, ok := res.State.Get("a")
	require.True(t, ok)
	_, hasB := av.Get("b")
	require.False(t, hasB)
}
