// Package generictask builds a domain-agnostic Task library directly
// from path structure, for callers with no compile-time knowledge of a
// target's schema (the reconcile CLI's plan and run subcommands):
// one ActionTask per path depth appearing while reconciling s toward
// t, applying whatever leaf or cascading-ancestor operation the planner
// grounds it against via the same structural primitives component B's
// Apply/Diff are themselves built on (internal/path's Assign/Remove).
// Grounded on spec.md §4.2's observation that state reconciliation is,
// at bottom, purely structural — the CLI needs no domain task library
// any more than cmd/graft's merge command needs per-field operators to
// apply a structural merge.
package generictask

import (
	"context"
	"fmt"
	"sort"

	"github.com/wayneeseguin/reconcile/internal/lens"
	"github.com/wayneeseguin/reconcile/internal/state"
	"github.com/wayneeseguin/reconcile/internal/task"
	"github.com/wayneeseguin/reconcile/internal/view"
)

// ForTarget returns a Task library sufficient to reconcile s toward t:
// one task per distinct non-root path depth appearing in the ancestor-
// inclusive diff (spec.md §9 Open Question 1's resolution: the internal
// diff always includes ancestor update ops, which is exactly what lets a
// cascading delete's emptied-out parent containers get removed once
// their children are gone).
func ForTarget(s state.Value, t state.Target) []task.Task {
	full := state.DistanceFrom(s, t).Full
	depths := map[int]bool{}
	for _, op := range full {
		if d := len(op.Path.Nodes); d > 0 {
			depths[d] = true
		}
	}
	ordered := make([]int, 0, len(depths))
	for depth := range depths {
		ordered = append(ordered, depth)
	}
	sort.Ints(ordered)

	tasks := make([]task.Task, 0, len(ordered))
	for _, depth := range ordered {
		tasks = append(tasks, leafTask(depth))
	}
	return tasks
}

// leafTask builds the generic ActionTask for a given path depth: a Lens
// of depth placeholder segments, op Any (no implicit precondition beyond
// what the grounded op.Kind already encodes), writing or deleting
// whatever Target the planner grounds it with.
func leafTask(depth int) *task.ActionTask {
	nodes := make([]string, depth)
	for i := range nodes {
		nodes[i] = fmt.Sprintf(":p%d", i)
	}
	l := lens.Lens{Nodes: nodes}
	return task.NewActionTask(l, task.Any, fmt.Sprintf("apply@%d", depth), nil, applyEffect, applyAction)
}

func applyEffect(v view.View, a task.Args) error {
	return apply(v, a)
}

func applyAction(_ context.Context, v view.View, a task.Args) error {
	return apply(v, a)
}

func apply(v view.View, a task.Args) error {
	if a.Target == nil {
		return v.Delete()
	}
	return v.Write(a.Target.ToInterface())
}
