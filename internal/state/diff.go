package state

import (
	"sort"

	"github.com/wayneeseguin/reconcile/internal/path"
)

// OpKind enumerates the three operation kinds spec.md §3 defines.
type OpKind int

const (
	OpCreate OpKind = iota
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Operation is one of create(path, value), update(path, value), or
// delete(path), produced exclusively by diffing a Value against a
// Target.
type Operation struct {
	Kind  OpKind
	Path  path.Path
	Value Value
}

type fullOp struct {
	Operation
	leaf bool
}

// Apply recursively merges t into s, honoring the DELETED sentinel, and
// returns the patched Value. DELETED never appears in the result
// (spec.md §4.2 invariant).
func Apply(s Value, t Target) Value {
	if v, ok := t.AsValue(); ok {
		return v
	}
	if t.IsDeleted() {
		// A Deleted target applied directly at the root has no sensible
		// Value representation; callers must special-case deletion of a
		// parent key before recursing into Apply for that key.
		return Null
	}
	// Partial: merge each constrained field; leave unconstrained fields
	// from s untouched.
	fields := t.Fields()
	base := map[string]Value{}
	if s.Kind() == KindObj {
		for k, v := range s.AsObj() {
			base[k] = v
		}
	}
	for k, childTarget := range fields {
		if childTarget.IsDeleted() {
			delete(base, k)
			continue
		}
		childValue, _ := s.Get(k)
		base[k] = Apply(childValue, childTarget)
	}
	return Value{kind: KindObj, obj: base}
}

// Diff compares the current state against a target and returns the leaf
// operations needed to reconcile them: an operation is a leaf if it
// addresses a scalar/sequence or a non-existent-to-exists boundary.
// Ancestor operations over interior objects are computed internally but
// are not part of the public surface — see Distance for the full list
// the planner consumes.
func Diff(s Value, t Target) []Operation {
	full := fullDiff(s, t)
	out := make([]Operation, 0, len(full))
	for _, op := range full {
		if op.leaf {
			out = append(out, op.Operation)
		}
	}
	return out
}

// Distance bundles the patched target state with the full (ancestor-
// inclusive) operation list the planner's re-diff loop needs.
type Distance struct {
	Target Value
	Full   []Operation
}

// DistanceFrom computes apply(s, t) and the ancestor-inclusive diff in
// one pass — the two operations the planner's findPlan loop performs on
// every recursion (spec.md §4.5's applyEffect/diff step).
func DistanceFrom(s Value, t Target) Distance {
	full := fullDiff(s, t)
	ops := make([]Operation, len(full))
	for i, op := range full {
		ops[i] = op.Operation
	}
	return Distance{Target: Apply(s, t), Full: ops}
}

type queueEntry struct {
	target Target
	path   path.Path
}

func fullDiff(s Value, t Target) []fullOp {
	patched := Apply(s, t)
	var ops []fullOp
	queue := []queueEntry{{target: t, path: path.Root}}
	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		sv, svErr := path.Resolve(s.ToInterface(), entry.path)
		svExists := svErr == nil
		tv, tvErr := path.Resolve(patched.ToInterface(), entry.path)
		tvExists := tvErr == nil

		switch {
		case entry.target.IsDeleted() && svExists:
			svValue := ValueFromInterface(sv)
			ops = append(ops, fullOp{
				Operation: Operation{Kind: OpDelete, Path: entry.path},
				leaf:      svValue.Kind() != KindObj,
			})
			if svValue.Kind() == KindObj {
				for _, key := range svValue.Keys() {
					queue = append(queue, queueEntry{target: Deleted, path: entry.path.Join(key)})
				}
			}

		case !svExists && tvExists:
			tvValue := ValueFromInterface(tv)
			ops = append(ops, fullOp{
				Operation: Operation{Kind: OpCreate, Path: entry.path, Value: tvValue},
				leaf:      true,
			})

		case svExists && tvExists && !valuesEqualRaw(sv, tv):
			svValue := ValueFromInterface(sv)
			tvValue := ValueFromInterface(tv)
			leaf := svValue.Kind() != KindObj || tvValue.Kind() != KindObj
			ops = append(ops, fullOp{
				Operation: Operation{Kind: OpUpdate, Path: entry.path, Value: tvValue},
				leaf:      leaf,
			})
		}

		if entry.target.IsPartial() && svExists {
			if svValue := ValueFromInterface(sv); svValue.Kind() == KindObj {
				fields := entry.target.Fields()
				keys := make([]string, 0, len(fields))
				for key := range fields {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				for _, key := range keys {
					queue = append(queue, queueEntry{target: fields[key], path: entry.path.Join(key)})
				}
			}
		}
	}
	return ops
}

func valuesEqualRaw(a, b interface{}) bool {
	return ValueFromInterface(a).Equal(ValueFromInterface(b))
}
