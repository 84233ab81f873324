package state

import (
	"github.com/geofffranks/simpleyaml"
	"github.com/geofffranks/yaml"
)

// deleteMarker is the literal scalar a target document uses to author
// the DELETED sentinel, matching the teacher's convention of reserving a
// distinctive scalar token for operator-like meaning in plain YAML.
const deleteMarker = "(( delete ))"

// DecodeValue parses a YAML document into a Value, bridging through the
// teacher's geofffranks/yaml fork (kept for parity with its map-key-
// ordering and number-decoding behavior rather than switching to
// upstream go-yaml). An empty document decodes to an empty mapping
// rather than Null, matching cmd/graft/main.go's parseYAML convention of
// checking simpleyaml.NewYaml against an empty-doc sentinel before
// treating a blank state/target file as "no constraints" instead of null.
func DecodeValue(doc []byte) (Value, error) {
	if isEmptyYAML(doc) {
		return Value{kind: KindObj, obj: map[string]Value{}}, nil
	}
	var generic interface{}
	if err := yaml.Unmarshal(doc, &generic); err != nil {
		return Value{}, err
	}
	return ValueFromInterface(generic), nil
}

// DecodeTarget parses a YAML target document into a Target, recognising
// deleteMarker scalars as the DELETED sentinel. An empty document decodes
// to an empty Partial (no constraints), by the same isEmptyYAML check
// DecodeValue uses.
func DecodeTarget(doc []byte) (Target, error) {
	if isEmptyYAML(doc) {
		return Partial(map[string]Target{}), nil
	}
	var generic interface{}
	if err := yaml.Unmarshal(doc, &generic); err != nil {
		return Target{}, err
	}
	return TargetFromInterface(markDeletions(generic)), nil
}

// isEmptyYAML reports whether doc is a blank/empty YAML document, via the
// teacher's own simpleyaml.NewYaml([]byte{}) comparison idiom
// (cmd/graft/main.go's parseYAML: "if empty_y, _ := simpleyaml.NewYaml([]byte{}); *y == *empty_y").
func isEmptyYAML(doc []byte) bool {
	y, err := simpleyaml.NewYaml(doc)
	if err != nil {
		return false
	}
	emptyY, err := simpleyaml.NewYaml([]byte{})
	if err != nil {
		return false
	}
	return *y == *emptyY
}

// markDeletions walks a decoded tree replacing deleteMarker string leaves
// with the internal deletedMarker type TargetFromInterface recognises.
func markDeletions(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		if t == deleteMarker {
			return deletedMarker{}
		}
		return t
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = markDeletions(e)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[interface{}]interface{}, len(t))
		for k, e := range t {
			out[k] = markDeletions(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = markDeletions(e)
		}
		return out
	default:
		return t
	}
}
