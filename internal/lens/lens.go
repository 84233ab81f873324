// Package lens implements parameterised path patterns: a Lens is a Path
// template containing zero or more ":name" placeholders, matched against
// concrete paths to extract an argument Binding (spec.md §3, §4.4).
package lens

import (
	"strconv"
	"strings"

	"github.com/wayneeseguin/reconcile/internal/path"
)

// Lens is a path template. Nodes mirror path.Path.Nodes, except a
// segment beginning with ':' is a placeholder bound to whatever concrete
// segment occupies that position.
type Lens struct {
	Nodes []string
}

// Parse builds a Lens from an RFC-6901-shaped template string, e.g.
// "/counters/:key".
func Parse(s string) (Lens, error) {
	p, err := path.Parse(s)
	if err != nil {
		return Lens{}, err
	}
	return Lens{Nodes: p.Nodes}, nil
}

// MustParse parses s and panics on error; used for Lens literals in task
// definitions.
func MustParse(s string) Lens {
	l, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Lens) String() string {
	return path.FromSegments(l.Nodes...).String()
}

func isPlaceholder(seg string) bool {
	return strings.HasPrefix(seg, ":") && len(seg) > 1
}

// Binding is the argument binding produced by a successful Match: the
// placeholder name mapped to the concrete segment value that occupied
// its position.
type Binding map[string]string

// Int returns the binding value at name parsed as an integer, e.g. for a
// numeric-index placeholder.
func (b Binding) Int(name string) (int, bool) {
	v, ok := b[name]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Copy returns an independent copy of b.
func (b Binding) Copy() Binding {
	cp := make(Binding, len(b))
	for k, v := range b {
		cp[k] = v
	}
	return cp
}

// Match reports whether concrete matches the Lens template: all
// non-placeholder segments must be identical, and placeholder positions
// bind to whatever segment is present there. A Lens matches only a path
// of the exact same depth (spec.md §8 invariant 7: "/a/b" does not match
// "/a/b/c").
func (l Lens) Match(concrete path.Path) (Binding, bool) {
	if len(l.Nodes) != len(concrete.Nodes) {
		return nil, false
	}
	binding := Binding{}
	for i, seg := range l.Nodes {
		cseg := concrete.Nodes[i]
		if isPlaceholder(seg) {
			binding[seg[1:]] = cseg
			continue
		}
		if seg != cseg {
			return nil, false
		}
	}
	return binding, true
}

// Ground substitutes each ":name" placeholder in the Lens with the bound
// value, yielding a concrete Path (spec.md §4.4 "grounding").
func (l Lens) Ground(b Binding) (path.Path, bool) {
	nodes := make([]string, len(l.Nodes))
	for i, seg := range l.Nodes {
		if isPlaceholder(seg) {
			v, ok := b[seg[1:]]
			if !ok {
				return path.Path{}, false
			}
			nodes[i] = v
			continue
		}
		nodes[i] = seg
	}
	return path.FromSegments(nodes...), true
}

// Placeholders returns the placeholder names appearing in the Lens, in
// order of occurrence.
func (l Lens) Placeholders() []string {
	var names []string
	for _, seg := range l.Nodes {
		if isPlaceholder(seg) {
			names = append(names, seg[1:])
		}
	}
	return names
}
