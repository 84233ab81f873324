// Package reconcile is the engine's public surface (spec.md §6
// "External interfaces"): the task-author API, the Agent API, and the
// event taxonomy, re-exported from the internal packages that implement
// them. Grounded on the teacher's pkg/graft/engine_interface.go
// convention of a thin public package fronting the internal engine
// types rather than duplicating them.
package reconcile

import (
	"context"

	"github.com/wayneeseguin/reconcile/internal/agent"
	"github.com/wayneeseguin/reconcile/internal/lens"
	"github.com/wayneeseguin/reconcile/internal/path"
	"github.com/wayneeseguin/reconcile/internal/planner"
	"github.com/wayneeseguin/reconcile/internal/state"
	"github.com/wayneeseguin/reconcile/internal/task"
	"github.com/wayneeseguin/reconcile/internal/view"
)

// Core data-model types (spec.md §3).
type (
	Value       = state.Value
	Target      = state.Target
	Path        = path.Path
	Lens        = lens.Lens
	Binding     = lens.Binding
	Operation   = state.Operation
	Instruction = task.Instruction
)

// Task-author API types (spec.md §6).
type (
	Args           = task.Args
	ConditionFunc  = task.ConditionFunc
	DescriptionFunc = task.DescriptionFunc
	EffectFunc     = task.EffectFunc
	ActionFunc     = task.ActionFunc
	MethodFunc     = task.MethodFunc
	Task           = task.Task
	ActionTask     = task.ActionTask
	MethodTask     = task.MethodTask
	View           = view.View
	OpKind         = task.OpKind
)

// Task operation kinds and expansion modes.
const (
	OpCreate = task.Create
	OpUpdate = task.Update
	OpDelete = task.Delete
	OpAny    = task.Any

	ExpandSequential = task.Sequential
	ExpandDetect      = task.Detect
)

// Deleted is the distinguished DELETED sentinel (spec.md §3).
var Deleted = state.Deleted

// Planner types (spec.md §4.5).
type (
	PlanNode     = planner.PlanNode
	Plan         = planner.Plan
	PlannerStats = planner.Stats
	PlannerOptions = planner.Options
)

// Agent runtime types (spec.md §4.6, §6).
type (
	Agent         = agent.Agent
	AgentOptions  = agent.Options
	AgentStatus   = agent.Status
	AgentResult   = agent.Result
	Event         = agent.Event
	EventKind     = agent.EventKind
	Sensor        = agent.Sensor
)

// Re-exported Agent status constants.
const (
	StatusIdle      = agent.StatusIdle
	StatusPlanning  = agent.StatusPlanning
	StatusExecuting = agent.StatusExecuting
	StatusWaiting   = agent.StatusWaiting
	StatusStopped   = agent.StatusStopped
)

// Re-exported event kind constants (spec.md §6's event taxonomy table).
const (
	EventStart                 = agent.EventStart
	EventFindPlan              = agent.EventFindPlan
	EventPlanFound             = agent.EventPlanFound
	EventPlanNotFound          = agent.EventPlanNotFound
	EventPlanTimeout           = agent.EventPlanTimeout
	EventActionNext            = agent.EventActionNext
	EventActionConditionFailed = agent.EventActionConditionFailed
	EventActionStart           = agent.EventActionStart
	EventActionSuccess         = agent.EventActionSuccess
	EventActionFailure         = agent.EventActionFailure
	EventPlanExecuted          = agent.EventPlanExecuted
	EventBackoff               = agent.EventBackoff
	EventSuccess               = agent.EventSuccess
	EventFailure               = agent.EventFailure
)

// NewAgent constructs an Agent over the given initial state and task
// library (spec.md §6 "Agent.from({initial, tasks | planner, opts})").
func NewAgent(initial Value, tasks []Task, opts AgentOptions) *Agent {
	return agent.New(initial, tasks, opts)
}

// DefaultAgentOptions mirrors agent.DefaultOptions.
func DefaultAgentOptions() AgentOptions { return agent.DefaultOptions() }

// DefaultPlannerOptions mirrors planner.DefaultOptions.
func DefaultPlannerOptions() PlannerOptions { return planner.DefaultOptions() }

// FindPlan runs the HTN planner directly, without an Agent, for callers
// that only need a one-shot plan (e.g. the `reconcile plan` CLI
// subcommand).
func FindPlan(ctx context.Context, s Value, t Target, tasks []Task, opts PlannerOptions) (*Plan, PlannerStats, error) {
	return planner.FindPlan(ctx, s, t, tasks, opts)
}

// Diff returns the leaf operations needed to reconcile s toward t
// (spec.md §4.2). The full ancestor-inclusive list the planner itself
// consumes (internal/state's DistanceFrom) is not exported here.
func Diff(s Value, t Target) []Operation {
	return state.Diff(s, t)
}

// Apply recursively merges t into s, honoring the DELETED sentinel.
func Apply(s Value, t Target) Value {
	return state.Apply(s, t)
}

// Serialize renders a Plan using the structural plan-serialization
// format of spec.md §6.
func Serialize(p *Plan) string {
	return planner.Serialize(p)
}

// NewActionTask constructs an ActionTask (spec.md §3 "Task").
func NewActionTask(l Lens, op OpKind, label string, cond ConditionFunc, effect EffectFunc, action ActionFunc) *ActionTask {
	return task.NewActionTask(l, op, label, cond, effect, action)
}

// NewMethodTask constructs a MethodTask (spec.md §3 "Task").
func NewMethodTask(l Lens, op OpKind, label string, cond ConditionFunc, method MethodFunc) *MethodTask {
	return task.NewMethodTask(l, op, label, cond, method)
}

// ParseLens parses a Lens template (spec.md §3 "Lens").
func ParseLens(s string) (Lens, error) { return lens.Parse(s) }

// MustParseLens parses a Lens template, panicking on error; intended for
// Lens literals in task definitions.
func MustParseLens(s string) Lens { return lens.MustParse(s) }

// DecodeValue parses a YAML document into a Value.
func DecodeValue(doc []byte) (Value, error) { return state.DecodeValue(doc) }

// DecodeTarget parses a YAML target document into a Target.
func DecodeTarget(doc []byte) (Target, error) { return state.DecodeTarget(doc) }
