package planner

import (
	"github.com/wayneeseguin/reconcile/internal/path"
	"github.com/wayneeseguin/reconcile/internal/state"
	"github.com/wayneeseguin/reconcile/internal/view"
)

// branchPlan is a speculatively-planned method child (spec.md §4.5 step
// 1): its resulting sub-plan node, the state it produces when applied in
// isolation, its recorded Change set (the merge source), and its
// approximate write/read path sets.
type branchPlan struct {
	node       PlanNode
	finalState state.Value
	changes    []view.Change
	writePaths []path.Path
	readPaths  []path.Path
}

// pathSetsOverlap reports whether any path in a overlaps (is contained
// by, or contains) any path in b.
func pathSetsOverlap(a, b []path.Path) bool {
	for _, pa := range a {
		for _, pb := range b {
			if pa.Contains(pb) || pb.Contains(pa) {
				return true
			}
		}
	}
	return false
}

// conflicts implements spec.md §4.5 step 2: two children conflict iff
// their write-path sets overlap, or one reads from a path the other
// writes.
func conflicts(a, b branchPlan) bool {
	if pathSetsOverlap(a.writePaths, b.writePaths) {
		return true
	}
	if pathSetsOverlap(a.readPaths, b.writePaths) {
		return true
	}
	if pathSetsOverlap(b.readPaths, a.writePaths) {
		return true
	}
	return false
}
