// Package agent implements the supervised execution loop of spec.md
// §4.6: a state machine over {idle, planning, executing, waiting,
// stopped} that runs a Plan, observes live state via Sensors, retries
// failed actions with exponential backoff, and re-plans on deviation.
// Grounded on pkg/graft/engine.go/engine_v2_impl.go's engine struct
// (config + mutable state + registries behind a functional-option
// constructor), generalized from "merge YAML documents once" into "keep
// driving state toward target, indefinitely".
package agent

import (
	"github.com/wayneeseguin/reconcile/internal/planner"
	"github.com/wayneeseguin/reconcile/internal/task"
)

// EventKind enumerates the event taxonomy of spec.md §6.
type EventKind int

const (
	EventStart EventKind = iota
	EventFindPlan
	EventPlanFound
	EventPlanNotFound
	EventPlanTimeout
	EventActionNext
	EventActionConditionFailed
	EventActionStart
	EventActionSuccess
	EventActionFailure
	EventPlanExecuted
	EventBackoff
	EventSuccess
	EventFailure
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventFindPlan:
		return "find-plan"
	case EventPlanFound:
		return "plan-found"
	case EventPlanNotFound:
		return "plan-not-found"
	case EventPlanTimeout:
		return "plan-timeout"
	case EventActionNext:
		return "action-next"
	case EventActionConditionFailed:
		return "action-condition-failed"
	case EventActionStart:
		return "action-start"
	case EventActionSuccess:
		return "action-success"
	case EventActionFailure:
		return "action-failure"
	case EventPlanExecuted:
		return "plan-executed"
	case EventBackoff:
		return "backoff"
	case EventSuccess:
		return "success"
	case EventFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Event is a single emission of spec.md §6's event stream. Payload
// fields are populated according to Kind; zero-valued fields the event
// kind does not use are simply unset.
type Event struct {
	Kind EventKind

	// action-next / action-condition-failed / action-start / action-
	// success / action-failure events.
	Instruction *task.Instruction

	// plan-found / plan-not-found / plan-timeout events.
	Stats planner.Stats

	// plan-not-found / action-failure / failure events.
	Cause error

	// backoff events.
	Tries   int
	DelayMs int64
}
