package lens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayneeseguin/reconcile/internal/path"
)

func TestLensMatchBasic(t *testing.T) {
	l := MustParse("/:x/b")
	b, ok := l.Match(path.MustParse("/a/b"))
	require.True(t, ok)
	assert.Equal(t, "a", b["x"])
}

func TestLensDoesNotMatchDeeperPath(t *testing.T) {
	l := MustParse("/a/b")
	_, ok := l.Match(path.MustParse("/a/b/c"))
	assert.False(t, ok)
}

func TestLensGround(t *testing.T) {
	l := MustParse("/counters/:key")
	p, ok := l.Ground(Binding{"key": "a"})
	require.True(t, ok)
	assert.Equal(t, "/counters/a", p.String())
}

func TestLensGroundMissingBinding(t *testing.T) {
	l := MustParse("/counters/:key")
	_, ok := l.Ground(Binding{})
	assert.False(t, ok)
}
