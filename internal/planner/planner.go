package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/wayneeseguin/reconcile/internal/errs"
	"github.com/wayneeseguin/reconcile/internal/state"
	"github.com/wayneeseguin/reconcile/internal/task"
)

// FindPlan runs the depth-first, memoized HTN search of spec.md §4.5
// against the current state s, target t, and task library, honoring
// opts.Timeout via ctx's deadline. Tasks are tried strictly in the order
// supplied — this is semantically meaningful (spec.md §9 "Search order
// significance") and is never re-sorted.
func FindPlan(ctx context.Context, s state.Value, t state.Target, tasks []task.Task, opts Options) (*Plan, Stats, error) {
	start := time.Now()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	stats := Stats{}
	ops := state.DistanceFrom(s, t).Full

	node, err := findPlan(ctx, s, t, ops, tasks, &stats, map[string]bool{}, 0, opts)
	stats.ElapsedMs = time.Since(start).Milliseconds()
	if err != nil {
		return nil, stats, err
	}
	return &Plan{Start: node}, stats, nil
}

func findPlan(
	ctx context.Context,
	s state.Value,
	target state.Target,
	ops []state.Operation,
	tasks []task.Task,
	stats *Stats,
	stack map[string]bool,
	depth int,
	opts Options,
) (PlanNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.New(errs.PlanTimeout, "planner deadline exceeded")
	}
	if len(ops) == 0 {
		return Terminal{}, nil
	}
	if depth > opts.MaxDepth {
		return nil, errs.New(errs.PlanNotFound, "max search depth exceeded")
	}
	if depth > stats.MaxDepthReached {
		stats.MaxDepthReached = depth
	}

	fp := fingerprint(s, ops)
	if stack[fp] {
		return nil, errs.New(errs.PlanNotFound, "cycle detected")
	}
	stack[fp] = true
	defer delete(stack, fp)

	for _, op := range ops {
		for _, tsk := range tasks {
			stats.TasksConsidered++

			binding, ok := tsk.Lens().Match(op.Path)
			if !ok || !tsk.Op().Matches(op.Kind) {
				continue
			}

			var targetVal *state.Value
			if op.Kind != state.OpDelete {
				v := op.Value
				targetVal = &v
			}
			if !task.ConditionHoldsWithTarget(tsk, s, op.Path, binding, targetVal) {
				continue
			}
			inst, ok := task.Ground(tsk, binding, targetVal)
			if !ok {
				continue
			}

			switch tsk.(type) {
			case *task.ActionTask:
				node, err := planActionBranch(ctx, s, target, inst, tasks, stats, stack, depth, opts)
				if err != nil {
					stats.BranchBacktracks++
					continue
				}
				return node, nil

			case *task.MethodTask:
				node, err := planMethodBranch(ctx, s, target, inst, tasks, stats, stack, depth, opts)
				if err != nil {
					stats.BranchBacktracks++
					continue
				}
				return node, nil
			}
		}
	}
	return nil, errs.New(errs.PlanNotFound, "no applicable task found")
}

func planActionBranch(
	ctx context.Context,
	s state.Value,
	target state.Target,
	inst task.Instruction,
	tasks []task.Task,
	stats *Stats,
	stack map[string]bool,
	depth int,
	opts Options,
) (PlanNode, error) {
	s2, _, err := applyEffect(s, inst)
	if err != nil {
		return nil, err
	}
	before := state.DistanceFrom(s, target).Full
	after := state.DistanceFrom(s2, target).Full
	if !progressed(before, after, s, s2) {
		return nil, errs.New(errs.NoProgress, "action applied but made no progress")
	}
	sub, err := findPlan(ctx, s2, target, after, tasks, stats, stack, depth+1, opts)
	if err != nil {
		return nil, err
	}
	return ActionNode{Instruction: inst, Next: sub}, nil
}

func planMethodBranch(
	ctx context.Context,
	s state.Value,
	target state.Target,
	inst task.Instruction,
	tasks []task.Task,
	stats *Stats,
	stack map[string]bool,
	depth int,
	opts Options,
) (PlanNode, error) {
	mt := inst.Task.(*task.MethodTask)
	stats.MethodExpansions++
	children, err := mt.Method(s, task.Args{Binding: inst.Binding, Target: inst.Target})
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, errs.New(errs.PlanNotFound, "method not applicable")
	}
	return expandMethod(ctx, s, target, children, tasks, stats, stack, depth, opts, mt.Expansion())
}

// expandMethod implements spec.md §4.5's method expansion and
// parallelism rules.
func expandMethod(
	ctx context.Context,
	s state.Value,
	target state.Target,
	children []task.Instruction,
	tasks []task.Task,
	stats *Stats,
	stack map[string]bool,
	depth int,
	opts Options,
	mode task.ExpansionMode,
) (PlanNode, error) {
	if mode == task.Detect {
		node, err := expandDetect(ctx, s, target, children, tasks, stats, stack, depth, opts)
		if err == nil {
			return node, nil
		}
		// Conflict or planning failure: fall back to sequential.
	}
	return expandSequential(ctx, s, target, children, tasks, stats, stack, depth, opts)
}

func expandSequential(
	ctx context.Context,
	s state.Value,
	target state.Target,
	children []task.Instruction,
	tasks []task.Task,
	stats *Stats,
	stack map[string]bool,
	depth int,
	opts Options,
) (PlanNode, error) {
	finalState, build, err := planChain(ctx, s, target, children, tasks, stats, stack, depth, opts)
	if err != nil {
		return nil, err
	}
	ops := state.DistanceFrom(finalState, target).Full
	tail, err := findPlan(ctx, finalState, target, ops, tasks, stats, stack, depth+1, opts)
	if err != nil {
		return nil, err
	}
	return build(tail), nil
}

// planChain plans each instruction in children in turn, each against the
// state produced by the previous one, and returns a function that
// grafts a caller-supplied tail onto the end of the resulting chain.
func planChain(
	ctx context.Context,
	s state.Value,
	target state.Target,
	children []task.Instruction,
	tasks []task.Task,
	stats *Stats,
	stack map[string]bool,
	depth int,
	opts Options,
) (state.Value, func(PlanNode) PlanNode, error) {
	if len(children) == 0 {
		return s, func(tail PlanNode) PlanNode { return tail }, nil
	}
	head := children[0]
	node, s2, err := planSingleInstruction(ctx, s, target, head, tasks, stats, stack, depth, opts)
	if err != nil {
		return s, nil, err
	}
	restState, restBuild, err := planChain(ctx, s2, target, children[1:], tasks, stats, stack, depth, opts)
	if err != nil {
		return s, nil, err
	}
	build := func(tail PlanNode) PlanNode {
		return attachTail(node, restBuild(tail))
	}
	return restState, build, nil
}

// planSingleInstruction plans one already-grounded instruction (a method
// child), returning a sub-chain ending in Terminal and the state it
// produces.
func planSingleInstruction(
	ctx context.Context,
	s state.Value,
	target state.Target,
	inst task.Instruction,
	tasks []task.Task,
	stats *Stats,
	stack map[string]bool,
	depth int,
	opts Options,
) (PlanNode, state.Value, error) {
	switch t := inst.Task.(type) {
	case *task.ActionTask:
		if !task.ConditionHoldsWithTarget(t, s, inst.Path, inst.Binding, inst.Target) {
			return nil, s, errs.New(errs.ConditionFailed, "condition false for method child")
		}
		s2, _, err := applyEffect(s, inst)
		if err != nil {
			return nil, s, err
		}
		return ActionNode{Instruction: inst, Next: Terminal{}}, s2, nil

	case *task.MethodTask:
		stats.MethodExpansions++
		grandchildren, err := t.Method(s, task.Args{Binding: inst.Binding, Target: inst.Target})
		if err != nil {
			return nil, s, err
		}
		if len(grandchildren) == 0 {
			return Terminal{}, s, nil
		}
		finalState, build, err := planChain(ctx, s, target, grandchildren, tasks, stats, stack, depth+1, opts)
		if err != nil {
			return nil, s, err
		}
		return build(Terminal{}), finalState, nil
	}
	return nil, s, fmt.Errorf("planner: unknown task kind for %T", inst.Task)
}

// attachTail walks a chain ending in Terminal and replaces that Terminal
// with tail.
func attachTail(node PlanNode, tail PlanNode) PlanNode {
	switch n := node.(type) {
	case ActionNode:
		n.Next = attachTail(n.Next, tail)
		return n
	case ForkNode:
		n.Next = attachTail(n.Next, tail)
		return n
	case Terminal:
		return tail
	default:
		return tail
	}
}

// fingerprint derives the (state, remaining-ops) cycle-detection key of
// spec.md §4.5: "If the search visits a (state-fingerprint, remaining-
// ops-fingerprint) already on the current DFS stack, abandon the
// branch."
func fingerprint(s state.Value, ops []state.Operation) string {
	h := sha256.New()
	fmt.Fprintf(h, "%v", s.ToInterface())
	h.Write([]byte{0})
	for _, op := range ops {
		fmt.Fprintf(h, "%d:%s", op.Kind, op.Path.String())
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
