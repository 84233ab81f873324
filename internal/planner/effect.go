package planner

import (
	"github.com/wayneeseguin/reconcile/internal/path"
	"github.com/wayneeseguin/reconcile/internal/state"
	"github.com/wayneeseguin/reconcile/internal/task"
	"github.com/wayneeseguin/reconcile/internal/view"
)

// applyEffect runs a grounded action instruction's pure Effect inside a
// tracked view scope (spec.md §4.4's implicit effects), returning the
// resulting state and the recorded Change set. The Change set is the
// actual write-set of the action — used both to compute progress (via
// re-diff) and, in Detect-mode method expansion, as the branch's
// conflict-detection write-set (spec.md §4.5 step 2).
func applyEffect(s state.Value, inst task.Instruction) (state.Value, []view.Change, error) {
	at, ok := inst.Task.(*task.ActionTask)
	if !ok {
		return s, nil, nil
	}
	root := s.ToInterface()
	changes, err := view.Track(&root, func() error {
		v := view.At(&root, inst.Path)
		if err := at.Effect(v, task.Args{Binding: inst.Binding, Target: inst.Target}); err != nil {
			return err
		}
		if at.Op() == task.Delete {
			if _, readErr := v.Read(); readErr == nil {
				if delErr := v.Delete(); delErr != nil {
					return delErr
				}
			}
		}
		return nil
	})
	if err != nil {
		return s, nil, err
	}
	return state.ValueFromInterface(root), changes, nil
}

// applyChanges replays a recorded Change set onto an independent base
// state, used to merge Detect-mode fork branches' disjoint effects into
// one combined state (spec.md §4.5 step 3: "state' is the state after
// all branches' effects applied in any order; they commute by
// construction").
func applyChanges(base state.Value, changes []view.Change) state.Value {
	root := base.ToInterface()
	for _, c := range changes {
		switch c.Kind {
		case view.ChangeDelete:
			if out, err := path.Remove(root, c.Path); err == nil {
				root = out
			}
		default:
			if out, err := path.Assign(root, c.Path, c.Value); err == nil {
				root = out
			}
		}
	}
	return state.ValueFromInterface(root)
}

// progressed reports whether applying an action moved the search
// forward: either the outstanding operation count strictly shrank, or the
// count stayed the same and the action changed the state (one step of a
// counter ascent leaves its update op outstanding until the last step).
// An action that leaves the state unchanged never counts as progress;
// revisited states are caught by findPlan's cycle check, and long ascents
// are bounded by Options.MaxDepth.
func progressed(before, after []state.Operation, s, s2 state.Value) bool {
	if len(after) < len(before) {
		return true
	}
	return len(after) == len(before) && !s.Equal(s2)
}
