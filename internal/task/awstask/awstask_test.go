package awstask

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"

	"github.com/wayneeseguin/reconcile/internal/lens"
	"github.com/wayneeseguin/reconcile/internal/path"
	"github.com/wayneeseguin/reconcile/internal/state"
	"github.com/wayneeseguin/reconcile/internal/task"
	"github.com/wayneeseguin/reconcile/internal/view"
)

type fakeSSM struct {
	params   map[string]string
	getCalls int
}

func (f *fakeSSM) GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.getCalls++
	val, ok := f.params[*in.Name]
	if !ok {
		return nil, &types404{name: *in.Name}
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: &val}}, nil
}

func (f *fakeSSM) PutParameter(ctx context.Context, in *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	if f.params == nil {
		f.params = map[string]string{}
	}
	f.params[*in.Name] = *in.Value
	return &ssm.PutParameterOutput{}, nil
}

type types404 struct{ name string }

func (e *types404) Error() string { return "parameter not found: " + e.name }

func TestReadTask(t *testing.T) {
	client := &fakeSSM{params: map[string]string{"/app/db/password": "s3cr3t"}}
	cache := NewCache()
	l := lens.MustParse("/password")

	var root interface{} = map[string]interface{}{"password": nil}
	v := view.At(&root, path.MustParse("/password"))

	readTask := NewReadTask(client, cache, l, "/app/db/password")
	require.NoError(t, readTask.Action(context.Background(), v, task.Args{}))
	got, err := v.Read()
	require.NoError(t, err)
	require.Equal(t, "s3cr3t", got)

	require.NoError(t, readTask.Action(context.Background(), v, task.Args{}))
	require.Equal(t, 1, client.getCalls)
}

func TestWriteTask(t *testing.T) {
	client := &fakeSSM{}
	l := lens.MustParse("/password")
	var root interface{} = map[string]interface{}{"password": nil}
	v := view.At(&root, path.MustParse("/password"))

	writeTask := NewWriteTask(client, l, "/app/db/password")
	target := state.ValueFromInterface("newpass")
	require.NoError(t, writeTask.Action(context.Background(), v, task.Args{Target: &target}))
	require.Equal(t, "newpass", client.params["/app/db/password"])
}
