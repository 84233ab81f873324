package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayneeseguin/reconcile/internal/lens"
	"github.com/wayneeseguin/reconcile/internal/state"
	"github.com/wayneeseguin/reconcile/internal/task"
	"github.com/wayneeseguin/reconcile/internal/view"
)

// counterCondition guards plusOne on "current < requested target", read
// from the grounded binding's key against bindings.target.
func counterCondition(s state.Value, a task.Args) bool {
	if a.Target == nil {
		return false
	}
	cv, ok := s.Get("counters")
	if !ok {
		return false
	}
	cur, ok := cv.Get(a.Binding["key"])
	if !ok {
		return false
	}
	return cur.AsNum() < a.Target.AsNum()
}

// counterEffect increments the view's current numeric value by one.
func counterEffect(v view.View, a task.Args) error {
	n := 0.0
	if cur, err := v.Read(); err == nil {
		if f, ok := cur.(float64); ok {
			n = f
		}
	}
	return v.Write(n + 1)
}

func newPlusOne() *task.ActionTask {
	return task.NewActionTask(
		lens.MustParse("/counters/:key"),
		task.Update,
		"plusOne",
		counterCondition,
		counterEffect,
		nil,
	)
}

// flattenLinear walks a plan expected to contain no ForkNode, returning
// its ActionNode instructions in order.
func flattenLinear(t *testing.T, n PlanNode) []task.Instruction {
	t.Helper()
	var out []task.Instruction
	for {
		switch node := n.(type) {
		case ActionNode:
			out = append(out, node.Instruction)
			n = node.Next
		case Terminal:
			return out
		case ForkNode:
			t.Fatalf("unexpected fork in linear plan")
			return nil
		default:
			t.Fatalf("unknown node type %T", node)
			return nil
		}
	}
}

// S1: counter ascent — a single plusOne action task ascends counters.a
// from 0 to 3 via three sequential +1 steps.
func TestFindPlan_CounterAscent(t *testing.T) {
	s := state.ValueFromInterface(map[string]interface{}{
		"counters": map[string]interface{}{"a": 0.0},
	})
	target := state.TargetFromInterface(map[string]interface{}{
		"counters": map[string]interface{}{"a": 3.0},
	})
	plusOne := newPlusOne()

	plan, stats, err := FindPlan(context.Background(), s, target, []task.Task{plusOne}, DefaultOptions())
	require.NoError(t, err)

	insts := flattenLinear(t, plan.Start)
	require.Len(t, insts, 3)
	for _, inst := range insts {
		assert.Equal(t, "plusOne", inst.Task.Description(task.Args{Binding: inst.Binding, Target: inst.Target}))
		assert.Equal(t, "a", inst.Binding["key"])
	}
	assert.Zero(t, stats.MethodExpansions)
	assert.Greater(t, stats.TasksConsidered, 0)
}

// S2: the same counter ascent, this time decomposed through a
// Sequential-mode method that grounds two plusOne children per call —
// the resulting linear plan is identical in shape to S1's.
func TestFindPlan_CounterAscent_ViaSequentialMethod(t *testing.T) {
	s := state.ValueFromInterface(map[string]interface{}{
		"counters": map[string]interface{}{"a": 0.0},
	})
	target := state.TargetFromInterface(map[string]interface{}{
		"counters": map[string]interface{}{"a": 3.0},
	})
	plusOne := newPlusOne()

	plusTwo := task.NewMethodTask(
		lens.MustParse("/counters/:key"),
		task.Update,
		"plusTwo",
		func(s state.Value, a task.Args) bool {
			if a.Target == nil {
				return false
			}
			cv, ok := s.Get("counters")
			if !ok {
				return false
			}
			cur, ok := cv.Get(a.Binding["key"])
			if !ok {
				return false
			}
			// Only decompose when at least two steps of headroom remain.
			return a.Target.AsNum()-cur.AsNum() >= 2
		},
		func(s state.Value, a task.Args) ([]task.Instruction, error) {
			first, ok := task.Ground(plusOne, a.Binding.Copy(), a.Target)
			if !ok {
				return nil, nil
			}
			second, ok := task.Ground(plusOne, a.Binding.Copy(), a.Target)
			if !ok {
				return nil, nil
			}
			return []task.Instruction{first, second}, nil
		},
	).WithMode(task.Sequential)

	plan, stats, err := FindPlan(context.Background(), s, target, []task.Task{plusTwo, plusOne}, DefaultOptions())
	require.NoError(t, err)

	insts := flattenLinear(t, plan.Start)
	require.Len(t, insts, 3)
	for _, inst := range insts {
		assert.Equal(t, "a", inst.Binding["key"])
	}
	assert.GreaterOrEqual(t, stats.MethodExpansions, 1)
}

// S3: two independent counters are advanced by a Detect-mode method that
// grounds one plusOne child per counter per call; since the children
// write disjoint paths, each round forks into two parallel branches.
func TestFindPlan_ParallelCounters_Fork(t *testing.T) {
	s := state.ValueFromInterface(map[string]interface{}{
		"counters": map[string]interface{}{"a": 0.0, "b": 0.0},
	})
	target := state.TargetFromInterface(map[string]interface{}{
		"counters": map[string]interface{}{"a": 2.0, "b": 2.0},
	})
	plusOne := newPlusOne()
	targets := map[string]float64{"a": 2, "b": 2}

	advanceAll := task.NewMethodTask(
		lens.MustParse("/counters/:key"),
		task.Update,
		"advanceAll",
		nil,
		func(s state.Value, a task.Args) ([]task.Instruction, error) {
			cv, ok := s.Get("counters")
			if !ok {
				return nil, nil
			}
			var insts []task.Instruction
			for _, key := range cv.Keys() {
				cur, ok := cv.Get(key)
				if !ok {
					continue
				}
				tgt, ok := targets[key]
				if !ok || cur.AsNum() >= tgt {
					continue
				}
				tv := state.Num(tgt)
				inst, ok := task.Ground(plusOne, lens.Binding{"key": key}, &tv)
				if ok {
					insts = append(insts, inst)
				}
			}
			return insts, nil
		},
	).WithMode(task.Detect)

	plan, _, err := FindPlan(context.Background(), s, target, []task.Task{advanceAll}, DefaultOptions())
	require.NoError(t, err)

	fork1, ok := plan.Start.(ForkNode)
	require.True(t, ok, "expected first node to be a fork")
	assert.Len(t, fork1.Branches, 2)

	fork2, ok := fork1.Next.(ForkNode)
	require.True(t, ok, "expected second round to also fork")
	assert.Len(t, fork2.Branches, 2)

	assert.IsType(t, Terminal{}, fork2.Next)
}

// Invariant 2 (plan soundness) + 3 (determinism): replaying a found
// plan's grounded actions against the initial state reaches a state with
// no remaining diff to the target, and re-planning the same inputs
// yields an identical serialized plan.
func TestFindPlan_SoundAndDeterministic(t *testing.T) {
	s := state.ValueFromInterface(map[string]interface{}{
		"counters": map[string]interface{}{"a": 0.0, "b": 0.0},
	})
	target := state.TargetFromInterface(map[string]interface{}{
		"counters": map[string]interface{}{"a": 2.0, "b": 3.0},
	})
	plusOne := newPlusOne()

	plan1, _, err := FindPlan(context.Background(), s, target, []task.Task{plusOne}, DefaultOptions())
	require.NoError(t, err)
	plan2, _, err := FindPlan(context.Background(), s, target, []task.Task{plusOne}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, Serialize(plan1), Serialize(plan2))

	final := replay(t, s, plan1.Start)
	assert.Empty(t, state.DistanceFrom(final, target).Full)
}

// Invariant 4 (fork non-interference): applying a fork's branches in
// either order yields the same resulting state, since the branches'
// write-sets are disjoint by construction.
func TestForkBranches_CommuteUnderAnyApplicationOrder(t *testing.T) {
	s := state.ValueFromInterface(map[string]interface{}{
		"counters": map[string]interface{}{"a": 0.0, "b": 0.0},
	})
	target := state.TargetFromInterface(map[string]interface{}{
		"counters": map[string]interface{}{"a": 1.0, "b": 1.0},
	})
	plusOne := newPlusOne()
	targets := map[string]float64{"a": 1, "b": 1}

	advanceAll := task.NewMethodTask(
		lens.MustParse("/counters/:key"),
		task.Update,
		"advanceAll",
		nil,
		func(s state.Value, a task.Args) ([]task.Instruction, error) {
			cv, _ := s.Get("counters")
			var insts []task.Instruction
			for _, key := range cv.Keys() {
				cur, _ := cv.Get(key)
				tgt := targets[key]
				if cur.AsNum() >= tgt {
					continue
				}
				tv := state.Num(tgt)
				inst, ok := task.Ground(plusOne, lens.Binding{"key": key}, &tv)
				if ok {
					insts = append(insts, inst)
				}
			}
			return insts, nil
		},
	).WithMode(task.Detect)

	plan, _, err := FindPlan(context.Background(), s, target, []task.Task{advanceAll}, DefaultOptions())
	require.NoError(t, err)

	fork, ok := plan.Start.(ForkNode)
	require.True(t, ok)
	require.Len(t, fork.Branches, 2)

	forward := replayNodes(s, fork.Branches[0], fork.Branches[1])
	backward := replayNodes(s, fork.Branches[1], fork.Branches[0])
	assert.True(t, forward.Equal(backward))
}

// replay applies every ActionNode/ForkNode in a plan chain in turn,
// failing the test on any effect error. It mirrors applyEffect/
// applyChanges but operates on Value, not a planner-internal branch
// struct.
func replay(t *testing.T, s state.Value, n PlanNode) state.Value {
	t.Helper()
	for {
		switch node := n.(type) {
		case ActionNode:
			s2, _, err := applyEffect(s, node.Instruction)
			require.NoError(t, err)
			s = s2
			n = node.Next
		case ForkNode:
			for _, branch := range node.Branches {
				s = replay(t, s, branch)
			}
			n = node.Next
		case Terminal:
			return s
		default:
			t.Fatalf("unknown node type %T", node)
			return s
		}
	}
}

// replayNodes applies a fixed sequence of standalone branch nodes (each
// assumed to terminate in Terminal) to s, in the given order.
func replayNodes(s state.Value, nodes ...PlanNode) state.Value {
	for _, n := range nodes {
		for {
			switch node := n.(type) {
			case ActionNode:
				s2, _, err := applyEffect(s, node.Instruction)
				if err != nil {
					return s
				}
				s = s2
				n = node.Next
			case Terminal:
				n = nil
			default:
				n = nil
			}
			if n == nil {
				break
			}
		}
	}
	return s
}
