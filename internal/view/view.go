// Package view implements scoped read/write/delete projections of a
// sub-tree (spec.md §3 "View", §4.3) plus a tracked/transactional
// mutation scope with snapshot-compare-revert semantics, grounded on the
// teacher's copy-on-write tree (copy_on_write_tree.go, cow_evaluator.go):
// a tracked scope snapshots the root before the consumer runs, diffs the
// post-scope root against the snapshot to synthesize Change records, and
// restores the snapshot on panic/error — the "snapshot approach" spec.md
// §9 prefers over proxy-based mutation tracking.
package view

import (
	"fmt"
	"sort"

	"github.com/wayneeseguin/reconcile/internal/path"
)

// ChangeKind enumerates the three kinds of recorded mutation.
type ChangeKind int

const (
	ChangeCreate ChangeKind = iota
	ChangeUpdate
	ChangeDelete
)

// Change is a single recorded mutation inside a tracked scope.
type Change struct {
	Kind  ChangeKind
	Path  path.Path
	Value interface{}
}

// View is a scoped handle at Path p into a shared root value.
type View struct {
	root *interface{}
	path path.Path
}

// At constructs a View at p over root.
func At(root *interface{}, p path.Path) View {
	return View{root: root, path: p}
}

// Path returns the View's bound Path.
func (v View) Path() path.Path { return v.path }

// Read resolves the value at the View's Path. It returns path.NotFound
// if the location is absent.
func (v View) Read() (interface{}, error) {
	return path.Resolve(*v.root, v.path)
}

// Write assigns value at the View's Path, propagating to the root.
func (v View) Write(value interface{}) error {
	out, err := path.Assign(*v.root, v.path, value)
	if err != nil {
		return err
	}
	*v.root = out
	return nil
}

// Delete removes the entry at the View's Path.
func (v View) Delete() error {
	out, err := path.Remove(*v.root, v.path)
	if err != nil {
		return err
	}
	*v.root = out
	return nil
}

// Sub returns a View at a child path relative to v.
func (v View) Sub(seg string) View {
	return View{root: v.root, path: v.path.Join(seg)}
}

// Track runs fn against root inside a transactional scope: it snapshots
// root before fn runs, lets fn mutate *root freely through View or
// direct Pointer calls, and on success returns the Change records
// synthesized by comparing the post-fn root to the snapshot. If fn
// returns an error (or panics), root is restored to the pre-scope
// snapshot and a single Change{Update, root, original} is returned
// alongside the propagated error — the transactional-effect contract
// spec.md §4.3 requires for the planner's speculative effect application.
func Track(root *interface{}, fn func() error) (changes []Change, err error) {
	snapshot := deepCopy(*root)

	defer func() {
		if r := recover(); r != nil {
			*root = snapshot
			changes = []Change{{Kind: ChangeUpdate, Path: path.Root, Value: snapshot}}
			err = fmt.Errorf("view: tracked scope panicked: %v", r)
		}
	}()

	if runErr := fn(); runErr != nil {
		*root = snapshot
		return []Change{{Kind: ChangeUpdate, Path: path.Root, Value: snapshot}}, runErr
	}

	return diffChanges(snapshot, *root, path.Root), nil
}

func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}

// diffChanges compares old and new raw interface{} trees at p, recursing
// into matching container shapes and emitting Change records for
// additions, removals, and replacements. Sequences are compared by
// index; a write that touches no index and adds/removes none ("length-
// only") emits nothing, satisfying spec.md §8 invariant 6.
func diffChanges(oldV, newV interface{}, p path.Path) []Change {
	oldMap, oldIsMap := oldV.(map[string]interface{})
	newMap, newIsMap := newV.(map[string]interface{})
	if oldIsMap && newIsMap {
		return diffMapChanges(oldMap, newMap, p)
	}

	oldSeq, oldIsSeq := oldV.([]interface{})
	newSeq, newIsSeq := newV.([]interface{})
	if oldIsSeq && newIsSeq {
		return diffSeqChanges(oldSeq, newSeq, p)
	}

	if rawEqual(oldV, newV) {
		return nil
	}
	return []Change{{Kind: ChangeUpdate, Path: p, Value: newV}}
}

func diffMapChanges(oldMap, newMap map[string]interface{}, p path.Path) []Change {
	keys := make(map[string]struct{}, len(oldMap)+len(newMap))
	for k := range oldMap {
		keys[k] = struct{}{}
	}
	for k := range newMap {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var changes []Change
	for _, k := range sorted {
		ov, oldHas := oldMap[k]
		nv, newHas := newMap[k]
		childPath := p.Join(k)
		switch {
		case !oldHas && newHas:
			changes = append(changes, Change{Kind: ChangeCreate, Path: childPath, Value: nv})
		case oldHas && !newHas:
			changes = append(changes, Change{Kind: ChangeDelete, Path: childPath})
		default:
			changes = append(changes, diffChanges(ov, nv, childPath)...)
		}
	}
	return changes
}

func diffSeqChanges(oldSeq, newSeq []interface{}, p path.Path) []Change {
	var changes []Change
	max := len(oldSeq)
	if len(newSeq) > max {
		max = len(newSeq)
	}
	for i := 0; i < max; i++ {
		idx := fmt.Sprintf("%d", i)
		childPath := p.Join(idx)
		switch {
		case i >= len(oldSeq):
			changes = append(changes, Change{Kind: ChangeCreate, Path: childPath, Value: newSeq[i]})
		case i >= len(newSeq):
			changes = append(changes, Change{Kind: ChangeDelete, Path: childPath})
		default:
			changes = append(changes, diffChanges(oldSeq[i], newSeq[i], childPath)...)
		}
	}
	return changes
}

func rawEqual(a, b interface{}) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%#v", a) == fmt.Sprintf("%#v", b)
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
