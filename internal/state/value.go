// Package state implements the world-model value type, the partial
// Target specification with its DELETED sentinel, and the diff/apply
// algorithm of spec.md §4.2 — grounded on pkg/graft's interface{}-tree
// conventions (json.go) generalized into a static recursive sum, per the
// "Dynamic state shape" Design Note of spec.md §9.
package state

import "sort"

// Kind enumerates the variants of the recursive sum Value = Null | Bool |
// Num | Str | Seq([]Value) | Obj(map[string]Value).
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNum
	KindStr
	KindSeq
	KindObj
)

// Value is an arbitrary JSON-like value: null, bool, number, string,
// ordered sequence, or string-keyed mapping. Identity is by value;
// equality is structural (spec.md §3).
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	seq  []Value
	obj  map[string]Value
}

// Null is the unique null value.
var Null = Value{kind: KindNull}

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Num constructs a numeric Value.
func Num(n float64) Value { return Value{kind: KindNum, n: n} }

// Str constructs a string Value.
func Str(s string) Value { return Value{kind: KindStr, s: s} }

// Seq constructs a sequence Value from its elements.
func Seq(items ...Value) Value {
	return Value{kind: KindSeq, seq: append([]Value(nil), items...)}
}

// Obj constructs a mapping Value. The map is copied.
func Obj(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindObj, obj: cp}
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNull() bool  { return v.kind == KindNull }
func (v Value) AsBool() bool  { return v.b }
func (v Value) AsNum() float64 { return v.n }
func (v Value) AsStr() string { return v.s }

// AsSeq returns the sequence elements; nil if not a sequence.
func (v Value) AsSeq() []Value {
	if v.kind != KindSeq {
		return nil
	}
	return v.seq
}

// AsObj returns the mapping; nil if not a mapping. The returned map must
// not be mutated by callers — treat Value as immutable.
func (v Value) AsObj() map[string]Value {
	if v.kind != KindObj {
		return nil
	}
	return v.obj
}

// Keys returns the object's keys in lexicographic order, the canonical
// key ordering spec.md §4.2 requires for deterministic diff output.
func (v Value) Keys() []string {
	if v.kind != KindObj {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value at key and whether it is present, for an Obj
// Value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObj {
		return Value{}, false
	}
	child, ok := v.obj[key]
	return child, ok
}

// Equal reports structural equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNum:
		return v.n == o.n
	case KindStr:
		return v.s == o.s
	case KindSeq:
		if len(v.seq) != len(o.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(o.seq[i]) {
				return false
			}
		}
		return true
	case KindObj:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, vv := range v.obj {
			ov, ok := o.obj[k]
			if !ok || !vv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// ValueFromInterface bridges a generic JSON/YAML-decoded interface{}
// tree (map[string]interface{}, []interface{}, scalars) into a Value,
// per the decoding convention in spec.md §9's Design Notes.
func ValueFromInterface(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case bool:
		return Bool(t)
	case string:
		return Str(t)
	case int:
		return Num(float64(t))
	case int64:
		return Num(float64(t))
	case float64:
		return Num(t)
	case []interface{}:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = ValueFromInterface(e)
		}
		return Seq(items...)
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = ValueFromInterface(e)
		}
		return Value{kind: KindObj, obj: m}
	case map[interface{}]interface{}:
		// geofffranks/yaml decodes mappings with interface{} keys; coerce
		// string-able keys the same way the teacher's YAML path does.
		m := make(map[string]Value, len(t))
		for k, e := range t {
			if ks, ok := k.(string); ok {
				m[ks] = ValueFromInterface(e)
			}
		}
		return Value{kind: KindObj, obj: m}
	default:
		return Null
	}
}

// ToInterface converts a Value back to a generic interface{} tree,
// suitable for re-encoding as JSON or YAML.
func (v Value) ToInterface() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNum:
		return v.n
	case KindStr:
		return v.s
	case KindSeq:
		out := make([]interface{}, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.ToInterface()
		}
		return out
	case KindObj:
		out := make(map[string]interface{}, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.ToInterface()
		}
		return out
	}
	return nil
}
