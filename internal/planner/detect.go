package planner

import (
	"context"

	"github.com/wayneeseguin/reconcile/internal/errs"
	"github.com/wayneeseguin/reconcile/internal/path"
	"github.com/wayneeseguin/reconcile/internal/state"
	"github.com/wayneeseguin/reconcile/internal/task"
	"github.com/wayneeseguin/reconcile/internal/view"
)

// expandDetect implements spec.md §4.5 Detect mode: speculatively plan
// each child in isolation, approximate its write/read path sets, and
// fork if no pair conflicts. The write-set is the actual Change path set
// recorded while applying the branch's effects; the read-set is that
// write-set plus the grounded instruction path itself (the lens path
// with bindings substituted) — see SPEC_FULL.md's Open Question #3
// resolution for why a full read-observing Condition wrapper is
// approximated this way: Condition is an opaque Go closure, not a parsed
// expression tree, so there is no generic way to enumerate the paths it
// inspects short of re-running it under instrumentation tasks do not
// opt into.
func expandDetect(
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
	branches := make([]branchPlan, 0, len(children))
	for _, child := range children {
		node, finalState, changes, err := planBranchIsolated(ctx, s, target, child, tasks, stats, stack, depth, opts)
		if err != nil {
			return nil, err
		}
		writePaths := make([]path.Path, 0, len(changes))
		for _, c := range changes {
			writePaths = append(writePaths, c.Path)
		}
		readPaths := append(append([]path.Path(nil), writePaths...), child.Path)
		branches = append(branches, branchPlan{
			node:       node,
			finalState: finalState,
			changes:    changes,
			writePaths: writePaths,
			readPaths:  readPaths,
		})
	}

	for i := range branches {
		for j := i + 1; j < len(branches); j++ {
			if conflicts(branches[i], branches[j]) {
				return nil, errs.New(errs.PlanNotFound, "fork branches conflict, falling back to sequential")
			}
		}
	}

	combined := s
	nodes := make([]PlanNode, len(branches))
	for i, br := range branches {
		nodes[i] = br.node
		combined = applyChanges(combined, br.changes)
	}

	ops := state.DistanceFrom(combined, target).Full
	tail, err := findPlan(ctx, combined, target, ops, tasks, stats, stack, depth+1, opts)
	if err != nil {
		return nil, err
	}
	return ForkNode{Branches: nodes, Next: tail}, nil
}

// planBranchIsolated plans a single method child against the original
// state s (not against any other branch's result), returning its
// sub-chain, the state it alone produces, and the Change set recorded
// while producing it.
func planBranchIsolated(
	ctx context.Context,
	s state.Value,
	target state.Target,
	inst task.Instruction,
	tasks []task.Task,
	stats *Stats,
	stack map[string]bool,
	depth int,
	opts Options,
) (PlanNode, state.Value, []view.Change, error) {
	switch t := inst.Task.(type) {
	case *task.ActionTask:
		if !task.ConditionHoldsWithTarget(t, s, inst.Path, inst.Binding, inst.Target) {
			return nil, s, nil, errs.New(errs.ConditionFailed, "condition false for fork branch")
		}
		s2, changes, err := applyEffect(s, inst)
		if err != nil {
			return nil, s, nil, err
		}
		return ActionNode{Instruction: inst, Next: Terminal{}}, s2, changes, nil

	case *task.MethodTask:
		stats.MethodExpansions++
		grandchildren, err := t.Method(s, task.Args{Binding: inst.Binding, Target: inst.Target})
		if err != nil {
			return nil, s, nil, err
		}
		if len(grandchildren) == 0 {
			return Terminal{}, s, nil, nil
		}
		var all []view.Change
		finalState := s
		buildChain := func(tail PlanNode) PlanNode { return tail }
		for _, gc := range grandchildren {
			node, s2, changes, err := planBranchIsolated(ctx, finalState, target, gc, tasks, stats, stack, depth+1, opts)
			if err != nil {
				return nil, s, nil, err
			}
			all = append(all, changes...)
			finalState = s2
			prevBuild := buildChain
			buildChain = func(tail PlanNode) PlanNode {
				return prevBuild(attachTail(node, tail))
			}
		}
		return buildChain(Terminal{}), finalState, all, nil
	}
	return nil, s, nil, errs.New(errs.PlanNotFound, "unknown task kind in fork branch")
}
