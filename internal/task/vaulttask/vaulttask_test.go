package vaulttask

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wayneeseguin/reconcile/internal/lens"
	"github.com/wayneeseguin/reconcile/internal/path"
	"github.com/wayneeseguin/reconcile/internal/state"
	"github.com/wayneeseguin/reconcile/internal/task"
	"github.com/wayneeseguin/reconcile/internal/view"
)

// fakeVault serves a minimal KV v1 surface ("data" envelope on GET,
// accept-and-store on PUT) sufficient to exercise NewReadTask/
// NewWriteTask against a real *vaultkv.KV without a live Vault server.
func fakeVault(t *testing.T) (*httptest.Server, map[string]interface{}) {
	t.Helper()
	store := map[string]interface{}{"password": "hunter2"}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/secret/myapp", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": store})
		case http.MethodPut, http.MethodPost:
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			for k, v := range body {
				store[k] = v
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return httptest.NewServer(mux), store
}

func TestReadWriteTask(t *testing.T) {
	srv, store := fakeVault(t)
	defer srv.Close()

	kv, err := NewClient(Config{Addr: srv.URL, Token: "test-token"})
	require.NoError(t, err)

	l := lens.MustParse("/password")
	var root interface{} = map[string]interface{}{"password": nil}
	v := view.At(&root, path.MustParse("/password"))

	read := NewReadTask(kv, l, "secret/myapp", "password")
	require.NoError(t, read.Action(context.Background(), v, task.Args{}))
	got, err := v.Read()
	require.NoError(t, err)
	require.Equal(t, "hunter2", got)

	write := NewWriteTask(kv, l, "secret/myapp", "password")
	target := state.ValueFromInterface("newsecret")
	require.NoError(t, write.Action(context.Background(), v, task.Args{Target: &target}))
	require.Equal(t, "newsecret", store["password"])
}
