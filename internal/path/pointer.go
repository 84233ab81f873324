package path

import (
	"fmt"
	"strconv"

	patch "github.com/cppforlife/go-patch/patch"
)

// NotFound is returned by Resolve when any intermediate segment is missing
// or addresses the wrong kind of container (spec.md §4.1).
var NotFound = &notFound{}

type notFound struct{}

func (*notFound) Error() string { return "path: not found" }

// IsNotFound reports whether err is the sentinel NotFound value.
func IsNotFound(err error) bool { return err == NotFound }

// Resolve walks state following p, returning NotFound if any intermediate
// segment is absent or of the wrong kind. The root Path resolves to the
// whole state value.
func Resolve(state interface{}, p Path) (interface{}, error) {
	cur := state
	for _, seg := range p.Nodes {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[seg]
			if !ok {
				return nil, NotFound
			}
			cur = v
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, NotFound
			}
			cur = node[idx]
		default:
			return nil, NotFound
		}
	}
	return cur, nil
}

// toPatchPointer builds a go-patch Pointer from a Path: a segment that
// parses as an integer becomes an IndexToken and every other segment a
// KeyToken. A numeric segment is therefore always addressed as a sequence
// index, even where the value at that point is a mapping.
func toPatchPointer(p Path) patch.Pointer {
	tokens := make([]patch.Token, 0, len(p.Nodes)+1)
	tokens = append(tokens, patch.RootToken{})
	for _, seg := range p.Nodes {
		if idx, err := strconv.Atoi(seg); err == nil {
			tokens = append(tokens, patch.IndexToken{Index: idx})
		} else {
			tokens = append(tokens, patch.KeyToken{Key: seg})
		}
	}
	return patch.NewPointer(tokens)
}

// Assign mutates state "as if the whole value were rewritten", placing
// value at p. Assigning at root replaces the whole state.
func Assign(state interface{}, p Path, value interface{}) (interface{}, error) {
	if p.IsRoot() {
		return value, nil
	}
	op := patch.ReplaceOp{
		Path:  toPatchPointer(p),
		Value: value,
	}
	out, err := op.Apply(state)
	if err != nil {
		return nil, fmt.Errorf("path: assign %s: %w", p.String(), err)
	}
	return out, nil
}

// Remove deletes the entry addressed by p: a mapping key is removed, a
// sequence element is spliced out. Removing at root is an error per
// spec.md §4.1's edge-case policy.
func Remove(state interface{}, p Path) (interface{}, error) {
	if p.IsRoot() {
		return nil, fmt.Errorf("path: remove at root is not allowed")
	}
	op := patch.RemoveOp{Path: toPatchPointer(p)}
	out, err := op.Apply(state)
	if err != nil {
		return nil, fmt.Errorf("path: remove %s: %w", p.String(), err)
	}
	return out, nil
}
