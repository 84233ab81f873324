// Package natssensor implements an agent.Sensor backed by NATS core
// pub/sub: every message published on a configured subject is decoded
// as a YAML/JSON document and pushed as a live value at the sensor's
// bound Path (spec.md §4.6 "Sensors"). Grounded on pkg/graft/operators/
// op_nats.go's connection-pool/TTL-cache pattern and retrying connect
// loop — generalized from "fetch a NATS KV value at evaluation time"
// into "push live NATS values into the agent's owned state reference".
package natssensor

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	gyaml "github.com/geofffranks/yaml"
	"github.com/nats-io/nats.go"

	"github.com/wayneeseguin/reconcile/internal/logx"
	"github.com/wayneeseguin/reconcile/internal/path"
	"github.com/wayneeseguin/reconcile/internal/state"
)

// Config configures a Sensor's NATS connection and subscription.
type Config struct {
	// URL is the NATS server URL (e.g. "nats://localhost:4222").
	URL string
	// Subject is the NATS subject to subscribe to.
	Subject string
	// Path is the state path this sensor's decoded values are applied
	// at (the Sensor interface's Path()).
	Path path.Path

	Timeout          time.Duration
	Retries          int
	RetryInterval    time.Duration
	RetryBackoff     float64
	MaxRetryInterval time.Duration

	TLS                bool
	CertFile           string
	KeyFile            string
	InsecureSkipVerify bool

	// CacheTTL deduplicates identical consecutive decoded values within
	// this window, mirroring op_nats.go's ttlCache.
	CacheTTL time.Duration
}

// DefaultConfig mirrors the teacher's natsConfig defaults.
func DefaultConfig(url, subject string, p path.Path) Config {
	return Config{
		URL:              url,
		Subject:          subject,
		Path:             p,
		Timeout:          5 * time.Second,
		Retries:          3,
		RetryInterval:    1 * time.Second,
		RetryBackoff:     2.0,
		MaxRetryInterval: 30 * time.Second,
		CacheTTL:         5 * time.Minute,
	}
}

// Sensor is an agent.Sensor reading live values from a NATS subject.
type Sensor struct {
	cfg   Config
	cache *ttlCache
}

// New constructs a Sensor from cfg.
func New(cfg Config) *Sensor {
	return &Sensor{cfg: cfg, cache: newTTLCache()}
}

// Path implements agent.Sensor.
func (s *Sensor) Path() path.Path { return s.cfg.Path }

// Subscribe implements agent.Sensor: it connects to NATS (retrying with
// backoff per op_nats.go's createNatsConnectionFromConfig), subscribes
// to cfg.Subject, and decodes every message into a state.Value pushed
// onto the returned channel. The connection and subscription are torn
// down when ctx is cancelled.
func (s *Sensor) Subscribe(ctx context.Context) (<-chan state.Value, error) {
	conn, err := connect(s.cfg)
	if err != nil {
		return nil, err
	}

	out := make(chan state.Value, 16)
	sub, err := conn.Subscribe(s.cfg.Subject, func(msg *nats.Msg) {
		v, ok := s.decode(msg.Data)
		if !ok {
			return
		}
		select {
		case out <- v:
		case <-ctx.Done():
		}
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("natssensor: subscribe %s: %w", s.cfg.Subject, err)
	}

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
		conn.Close()
		close(out)
	}()

	return out, nil
}

// decode parses a message payload as YAML/JSON and deduplicates it
// against the last value seen within cfg.CacheTTL.
func (s *Sensor) decode(data []byte) (state.Value, bool) {
	var generic interface{}
	if err := gyaml.Unmarshal(data, &generic); err != nil {
		logx.DEBUG("natssensor: decode %s: %s", s.cfg.Subject, err.Error())
		return state.Value{}, false
	}
	v := state.ValueFromInterface(generic)
	if s.cache.sameSince(s.cfg.Subject, v, s.cfg.CacheTTL) {
		return state.Value{}, false
	}
	return v, true
}

// connect dials NATS, retrying with exponential backoff the same way
// op_nats.go's createNatsConnectionFromConfig does.
func connect(cfg Config) (*nats.Conn, error) {
	opts := buildConnectionOptions(cfg)

	var conn *nats.Conn
	var err error
	retryInterval := cfg.RetryInterval
	for attempt := 0; attempt <= cfg.Retries; attempt++ {
		if attempt > 0 {
			logx.DEBUG("natssensor: retrying connection (attempt %d/%d) after %v", attempt, cfg.Retries, retryInterval)
			time.Sleep(retryInterval)
			if cfg.RetryBackoff > 1 {
				retryInterval = time.Duration(float64(retryInterval) * cfg.RetryBackoff)
				if cfg.MaxRetryInterval > 0 && retryInterval > cfg.MaxRetryInterval {
					retryInterval = cfg.MaxRetryInterval
				}
			}
		}
		conn, err = nats.Connect(cfg.URL, opts...)
		if err == nil {
			return conn, nil
		}
		logx.DEBUG("natssensor: connect failed: %s", err.Error())
	}
	return nil, fmt.Errorf("natssensor: connect to %s after %d attempts: %w", cfg.URL, cfg.Retries+1, err)
}

func buildConnectionOptions(cfg Config) []nats.Option {
	opts := []nats.Option{
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(cfg.Retries),
		nats.ReconnectWait(cfg.RetryInterval),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logx.DEBUG("natssensor: disconnected: %s", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logx.DEBUG("natssensor: reconnected to %s", nc.ConnectedUrl())
		}),
	}
	if cfg.TLS {
		tlsConfig := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify} // #nosec G402 - operator-controlled
		if cfg.CertFile != "" && cfg.KeyFile != "" {
			if cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile); err == nil {
				tlsConfig.Certificates = []tls.Certificate{cert}
			} else {
				logx.DEBUG("natssensor: loading client cert: %s", err.Error())
			}
		}
		opts = append(opts, nats.Secure(tlsConfig))
	}
	return opts
}

// ttlCache deduplicates identical consecutive values within a TTL
// window (op_nats.go's ttlCache, trimmed to the single "did this value
// already fire recently" question a Sensor needs).
type ttlCache struct {
	mu       sync.Mutex
	lastSeen map[string]cacheEntry
}

type cacheEntry struct {
	value     state.Value
	expiresAt time.Time
}

func newTTLCache() *ttlCache {
	return &ttlCache{lastSeen: make(map[string]cacheEntry)}
}

// sameSince reports whether key's last recorded value equals v and has
// not yet expired, recording v as the new entry either way.
func (c *ttlCache) sameSince(key string, v state.Value, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if entry, ok := c.lastSeen[key]; ok && now.Before(entry.expiresAt) && entry.value.Equal(v) {
		return true
	}
	c.lastSeen[key] = cacheEntry{value: v, expiresAt: now.Add(ttl)}
	return false
}
