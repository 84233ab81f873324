// Package path implements the JSON-Pointer (RFC 6901 subset) addressing
// scheme used throughout the engine: an immutable Path identifies a
// location in a state tree, and Pointer resolves/mutates a value at that
// location.
package path

import "strings"

// Path is an immutable sequence of path segments. The root Path has zero
// Nodes and is printed as the empty string.
type Path struct {
	Nodes []string
}

// Root is the unique empty Path value.
var Root = Path{}

// Parse parses an RFC 6901 pointer string ("" or "/a/b/0") into a Path.
// Segments are unescaped per RFC 6901 ("~1" -> "/", "~0" -> "~").
func Parse(s string) (Path, error) {
	if s == "" {
		return Root, nil
	}
	if s[0] != '/' {
		return Path{}, &InvalidError{Raw: s, Reason: "pointer must be empty or start with '/'"}
	}
	raw := strings.Split(s[1:], "/")
	nodes := make([]string, len(raw))
	for i, seg := range raw {
		nodes[i] = unescape(seg)
	}
	return Path{Nodes: nodes}, nil
}

// MustParse parses s and panics on error; intended for literals in tests
// and task definitions, mirroring the teacher's MustParseCursor convention.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// FromSegments builds a Path directly from already-unescaped segments.
func FromSegments(segs ...string) Path {
	if len(segs) == 0 {
		return Root
	}
	nodes := make([]string, len(segs))
	copy(nodes, segs)
	return Path{Nodes: nodes}
}

// InvalidError reports a malformed Path at construction (spec.md §7
// PathInvalid); programming errors throw rather than propagate as a
// recoverable value.
type InvalidError struct {
	Raw    string
	Reason string
}

func (e *InvalidError) Error() string {
	return "path: invalid pointer " + quote(e.Raw) + ": " + e.Reason
}

func quote(s string) string { return "\"" + s + "\"" }

func unescape(seg string) string {
	if !strings.Contains(seg, "~") {
		return seg
	}
	seg = strings.ReplaceAll(seg, "~1", "/")
	seg = strings.ReplaceAll(seg, "~0", "~")
	return seg
}

func escape(seg string) string {
	if !strings.ContainsAny(seg, "~/") {
		return seg
	}
	seg = strings.ReplaceAll(seg, "~", "~0")
	seg = strings.ReplaceAll(seg, "/", "~1")
	return seg
}

// IsRoot reports whether p addresses the whole state value.
func (p Path) IsRoot() bool { return len(p.Nodes) == 0 }

// Join returns a new Path with seg appended.
func (p Path) Join(seg string) Path {
	nodes := make([]string, len(p.Nodes)+1)
	copy(nodes, p.Nodes)
	nodes[len(p.Nodes)] = seg
	return Path{Nodes: nodes}
}

// Parent returns the Path one level up. Parent(Root) = Root, per spec.md
// §3's invariant.
func (p Path) Parent() Path {
	if len(p.Nodes) == 0 {
		return Root
	}
	return Path{Nodes: append([]string(nil), p.Nodes[:len(p.Nodes)-1]...)}
}

// Basename returns the last segment, or "" at root.
func (p Path) Basename() string {
	if len(p.Nodes) == 0 {
		return ""
	}
	return p.Nodes[len(p.Nodes)-1]
}

// String renders the Path as an RFC 6901 pointer string.
func (p Path) String() string {
	if len(p.Nodes) == 0 {
		return ""
	}
	var b strings.Builder
	for _, n := range p.Nodes {
		b.WriteByte('/')
		b.WriteString(escape(n))
	}
	return b.String()
}

// Copy returns a Path with an independent backing slice.
func (p Path) Copy() Path {
	return Path{Nodes: append([]string(nil), p.Nodes...)}
}

// Depth returns the number of segments.
func (p Path) Depth() int { return len(p.Nodes) }

// Equal reports structural equality.
func (p Path) Equal(o Path) bool {
	if len(p.Nodes) != len(o.Nodes) {
		return false
	}
	for i := range p.Nodes {
		if p.Nodes[i] != o.Nodes[i] {
			return false
		}
	}
	return true
}

// Contains reports whether p is a prefix of o (p itself counts as
// containing itself), ported from the teacher's Cursor.Contains.
func (p Path) Contains(o Path) bool {
	if len(p.Nodes) > len(o.Nodes) {
		return false
	}
	for i, n := range p.Nodes {
		if o.Nodes[i] != n {
			return false
		}
	}
	return true
}

// Under reports whether p is strictly below parent, i.e. parent.Contains(p)
// and p is not equal to parent.
func (p Path) Under(parent Path) bool {
	return parent.Contains(p) && !parent.Equal(p)
}

// Component returns the segment at depth i and whether it exists.
func (p Path) Component(i int) (string, bool) {
	if i < 0 || i >= len(p.Nodes) {
		return "", false
	}
	return p.Nodes[i], true
}
