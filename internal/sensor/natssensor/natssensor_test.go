package natssensor

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/wayneeseguin/reconcile/internal/path"
)

func startTestNATSServer(t *testing.T) string {
	t.Helper()
	opts := &server.Options{Port: -1}
	ns, err := server.NewServer(opts)
	require.NoError(t, err)
	ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second))
	t.Cleanup(ns.Shutdown)
	return ns.ClientURL()
}

func TestSensor_SubscribeAndDecode(t *testing.T) {
	url := startTestNATSServer(t)

	cfg := DefaultConfig(url, "reconcile.test.counter", path.MustParse("/counter"))
	cfg.Retries = 0
	s := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Subscribe(ctx)
	require.NoError(t, err)

	pub, err := nats.Connect(url)
	require.NoError(t, err)
	defer pub.Close()

	require.NoError(t, pub.Publish("reconcile.test.counter", []byte("3")))
	require.NoError(t, pub.Flush())

	select {
	case v := <-ch:
		require.Equal(t, 3.0, v.AsNum())
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for sensor value")
	}
}
