package view

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayneeseguin/reconcile/internal/path"
)

func TestReadWriteDelete(t *testing.T) {
	var root interface{} = map[string]interface{}{"a": map[string]interface{}{"b": 1.0}}
	v := At(&root, path.MustParse("/a/b"))

	got, err := v.Read()
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	require.NoError(t, v.Write(2.0))
	got, err = v.Read()
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)

	require.NoError(t, v.Delete())
	_, err = v.Read()
	assert.True(t, path.IsNotFound(err))
}

func TestTrackCommitsChanges(t *testing.T) {
	var root interface{} = map[string]interface{}{"a": 1.0}
	changes, err := Track(&root, func() error {
		v := At(&root, path.MustParse("/a"))
		return v.Write(2.0)
	})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeUpdate, changes[0].Kind)
	assert.Equal(t, "/a", changes[0].Path.String())
}

func TestTrackRevertsOnError(t *testing.T) {
	original := map[string]interface{}{"a": 1.0}
	var root interface{} = original
	_, err := Track(&root, func() error {
		v := At(&root, path.MustParse("/a"))
		_ = v.Write(99.0)
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1.0, root.(map[string]interface{})["a"])
}

func TestTrackRevertsOnPanic(t *testing.T) {
	var root interface{} = map[string]interface{}{"a": 1.0}
	changes, err := Track(&root, func() error {
		panic("boom")
	})
	require.Error(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, 1.0, root.(map[string]interface{})["a"])
}

func TestLengthOnlySequenceWriteNoEvents(t *testing.T) {
	var root interface{} = map[string]interface{}{"seq": []interface{}{1.0, 2.0}}
	changes, err := Track(&root, func() error {
		v := At(&root, path.MustParse("/seq"))
		return v.Write([]interface{}{1.0, 2.0})
	})
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestSequenceElementChangeEmitsEvent(t *testing.T) {
	var root interface{} = map[string]interface{}{"seq": []interface{}{1.0, 2.0}}
	changes, err := Track(&root, func() error {
		v := At(&root, path.MustParse("/seq"))
		return v.Write([]interface{}{1.0, 3.0})
	})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeUpdate, changes[0].Kind)
	assert.Equal(t, "/seq/1", changes[0].Path.String())
}
