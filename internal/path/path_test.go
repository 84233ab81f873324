package path

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	p, err := Parse("/a/b/0")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "0"}, p.Nodes)
	assert.Equal(t, "/a/b/0", p.String())

	root, err := Parse("")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())
	assert.Equal(t, "", root.String())
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("a/b")
	require.Error(t, err)
	var invalid *InvalidError
	assert.ErrorAs(t, err, &invalid)
}

func TestJoinParentBasename(t *testing.T) {
	p := MustParse("/a/b")
	joined := p.Join("c")
	assert.Equal(t, "/a/b/c", joined.String())
	assert.Equal(t, "/a/b", joined.Parent().String())
	assert.Equal(t, "c", joined.Basename())

	assert.True(t, Root.Parent().Equal(Root))
	assert.Equal(t, "", Root.Basename())
}

func TestContainsAndUnder(t *testing.T) {
	parent := MustParse("/a")
	child := MustParse("/a/b/c")
	assert.True(t, parent.Contains(child))
	assert.True(t, child.Under(parent))
	assert.False(t, child.Under(child))
	assert.True(t, Root.Contains(child))
}

func TestEscaping(t *testing.T) {
	p := FromSegments("a/b", "c~d")
	s := p.String()
	assert.Equal(t, "/a~1b/c~0d", s)

	reparsed, err := Parse(s)
	require.NoError(t, err)
	assert.True(t, p.Equal(reparsed))
}

func TestResolve(t *testing.T) {
	state := map[string]interface{}{
		"a": map[string]interface{}{
			"b": []interface{}{"x", "y"},
		},
	}
	v, err := Resolve(state, MustParse("/a/b/1"))
	require.NoError(t, err)
	assert.Equal(t, "y", v)

	_, err = Resolve(state, MustParse("/a/missing"))
	assert.True(t, IsNotFound(err))

	_, err = Resolve(state, MustParse("/a/b/5"))
	assert.True(t, IsNotFound(err))

	whole, err := Resolve(state, Root)
	require.NoError(t, err)
	assert.Equal(t, state, whole)
}
