package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wayneeseguin/reconcile/internal/lens"
	"github.com/wayneeseguin/reconcile/internal/state"
	"github.com/wayneeseguin/reconcile/internal/task"
	"github.com/wayneeseguin/reconcile/internal/view"
)

// plusOneTask is spec.md S1/S6's canonical counter-ascent task: it
// increments a numeric leaf by one whenever state < target.
func plusOneTask() *task.ActionTask {
	return task.NewActionTask(
		lens.MustParse("/counter"),
		task.Update,
		"counter+1",
		func(s state.Value, a task.Args) bool {
			cur, ok := s.Get("counter")
			return ok && cur.Kind() == state.KindNum && a.Target != nil && cur.AsNum() < a.Target.AsNum()
		},
		func(v view.View, a task.Args) error {
			cur, _ := v.Read()
			n := cur.(float64)
			return v.Write(n + 1)
		},
		nil,
	)
}

func TestAgentCounterAscent(t *testing.T) {
	a := New(state.ValueFromInterface(map[string]interface{}{"counter": 0.0}),
		[]task.Task{plusOneTask()}, DefaultOptions())
	defer a.Stop()

	target := state.Partial(map[string]state.Target{
		"counter": state.Of(state.Num(3)),
	})
	a.Seek(target)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := a.Wait(ctx)
	require.NoError(t, err)
	require.True(t, res.Success)

	counter, ok := res.State.Get("counter")
	require.True(t, ok)
	require.Equal(t, 3.0, counter.AsNum())
}

// flakyOnceTask fails its Action exactly once, then succeeds — spec.md
// S6 "Action failure with retry".
func flakyOnceTask() *task.ActionTask {
	tried := false
	return task.NewActionTask(
		lens.MustParse("/flag"),
		task.Update,
		"flip-flag",
		func(s state.Value, a task.Args) bool {
			cur, ok := s.Get("flag")
			return ok && cur.Kind() == state.KindBool && !cur.AsBool()
		},
		func(v view.View, a task.Args) error {
			return v.Write(true)
		},
		func(ctx context.Context, v view.View, a task.Args) error {
			if !tried {
				tried = true
				return errTransient
			}
			return v.Write(true)
		},
	)
}

var errTransient = errTransientType{}

type errTransientType struct{}

func (errTransientType) Error() string { return "transient failure" }

func TestAgentActionRetryWithBackoff(t *testing.T) {
	opts := DefaultOptions()
	opts.MinWaitMs = 1
	opts.MaxBackoffMs = 5

	a := New(state.ValueFromInterface(map[string]interface{}{"flag": false}),
		[]task.Task{flakyOnceTask()}, opts)
	defer a.Stop()

	events, unsubscribe := a.On()
	defer unsubscribe()

	var kinds []EventKind
	done := make(chan struct{})
	go func() {
		for ev := range events {
			kinds = append(kinds, ev.Kind)
			if ev.Kind == EventSuccess || ev.Kind == EventFailure {
				close(done)
				return
			}
		}
	}()

	target := state.Partial(map[string]state.Target{
		"flag": state.Of(state.Bool(true)),
	})
	a.Seek(target)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for agent to settle")
	}

	require.Contains(t, kinds, EventActionFailure)
	require.Contains(t, kinds, EventBackoff)
	require.Contains(t, kinds, EventActionSuccess)
	require.Contains(t, kinds, EventSuccess)
}
