package config

import (
	"time"

	"github.com/wayneeseguin/reconcile/internal/agent"
	"github.com/wayneeseguin/reconcile/internal/planner"
)

// AgentOptions converts the loaded AgentConfig/PlannerConfig into
// agent.Options, the shape cmd/reconcile hands to agent.New.
func (c *Config) AgentOptions() agent.Options {
	opts := agent.DefaultOptions()
	opts.MinWaitMs = c.Agent.MinWaitMs
	opts.MaxRetries = c.Agent.MaxRetries
	opts.BackoffFactor = c.Agent.BackoffFactor
	opts.MaxBackoffMs = c.Agent.MaxBackoffMs
	opts.Follow = c.Agent.Follow
	opts.Planner = c.PlannerOptions()
	return opts
}

// PlannerOptions converts PlannerConfig into planner.Options.
func (c *Config) PlannerOptions() planner.Options {
	opts := planner.DefaultOptions()
	if c.Planner.MaxDepth > 0 {
		opts.MaxDepth = c.Planner.MaxDepth
	}
	if c.Planner.TimeoutMs > 0 {
		opts.Timeout = time.Duration(c.Planner.TimeoutMs) * time.Millisecond
	}
	return opts
}
