package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wayneeseguin/reconcile/internal/observable"
	"github.com/wayneeseguin/reconcile/internal/planner"
	"github.com/wayneeseguin/reconcile/internal/state"
	"github.com/wayneeseguin/reconcile/internal/task"
)

// Status enumerates the agent's state-machine states (spec.md §4.6).
type Status int

const (
	StatusIdle Status = iota
	StatusPlanning
	StatusExecuting
	StatusWaiting
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPlanning:
		return "planning"
	case StatusExecuting:
		return "executing"
	case StatusWaiting:
		return "waiting"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options configures an Agent (spec.md §6 "Agent API": opts includes
// minWaitMs, maxRetries, backoffFactor, maxBackoffMs, logger, sensors,
// follow). Shaped after execution_planner.go's ExecutionConfig and the
// teacher's functional EngineConfig-struct convention.
type Options struct {
	// MinWaitMs is the backoff base delay, in milliseconds.
	MinWaitMs int
	// MaxRetries bounds both action-level retries after backoff and
	// plan-level re-plan attempts when the state still misses the
	// target after a full plan execution (spec.md §4.6).
	MaxRetries int
	// BackoffFactor is the exponential backoff multiplier.
	BackoffFactor float64
	// MaxBackoffMs caps the backoff delay.
	MaxBackoffMs int
	// Sensors feed live state updates into the agent (spec.md §4.6).
	Sensors []Sensor
	// Follow keeps the agent in StatusWaiting (rather than StatusIdle)
	// after a successful seek, ready to react to further target changes
	// or sensor-driven drift.
	Follow bool
	// Planner configures each FindPlan call.
	Planner planner.Options
}

// DefaultOptions mirrors the teacher's DefaultHTNConfig/DefaultEngine
// convention: sane, bounded defaults.
func DefaultOptions() Options {
	return Options{
		MinWaitMs:     200,
		MaxRetries:    5,
		BackoffFactor: 2.0,
		MaxBackoffMs:  30_000,
		Planner:       planner.DefaultOptions(),
	}
}

// Result is the outcome of a completed seek cycle (spec.md §6
// "wait(ms?) -> Promise<{success, state} | {success:false, cause}>").
type Result struct {
	Success bool
	State   state.Value
	Cause   error
}

// Agent is the supervised runtime of spec.md §4.6, tying state, planner,
// sensors, and execution together. Grounded on pkg/graft/engine.go's
// DefaultEngine (config + mutable state behind a struct, guarded
// sub-registries) generalized into a long-lived reconciliation loop.
type Agent struct {
	mu     sync.Mutex
	state  state.Value
	tasks  []task.Task
	opts   Options
	status Status

	target    state.Target
	hasTarget bool

	lastResult Result
	hasResult  bool

	events        *observable.Subject[Event]
	resultSubject *observable.Subject[Result]

	seekCh  chan state.Target
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}

	sensorCh chan sensorUpdate
}

// New constructs an Agent over the given initial state and task library
// and starts its supervised loop and any configured Sensors.
func New(initial state.Value, tasks []task.Task, opts Options) *Agent {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Agent{
		state:         initial,
		tasks:         tasks,
		opts:          opts,
		status:        StatusIdle,
		events:        observable.NewSubject[Event](),
		resultSubject: observable.NewSubject[Result](),
		seekCh:        make(chan state.Target, 1),
		ctx:           ctx,
		cancel:        cancel,
		stopped:       make(chan struct{}),
		sensorCh:      make(chan sensorUpdate, 64),
	}
	for _, sensor := range opts.Sensors {
		a.startSensor(sensor)
	}
	go a.loop()
	return a
}

// State returns an immutable snapshot of the agent's current state.
func (a *Agent) State() state.Value {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Status reports the agent's current state-machine status.
func (a *Agent) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// On subscribes to the agent's event stream, returning a receive channel
// and an unsubscribe function (spec.md §6 "on(event, handler)").
func (a *Agent) On() (<-chan Event, func()) {
	return a.events.Subscribe()
}

// Seek sets a new target, waking the agent's loop if it is idle or
// waiting. Idempotent if the target is structurally equal to the last
// one sought and the agent is not stopped, whatever the outcome of the
// cycle for that target.
func (a *Agent) Seek(target state.Target) {
	a.mu.Lock()
	if a.hasTarget && a.target.Equal(target) && a.status != StatusStopped {
		a.mu.Unlock()
		return
	}
	a.target = target
	a.hasTarget = true
	a.hasResult = false
	if a.status == StatusIdle || a.status == StatusWaiting {
		a.status = StatusPlanning
	}
	a.mu.Unlock()

	a.events.Publish(Event{Kind: EventStart})

	select {
	case a.seekCh <- target:
	default:
		select {
		case <-a.seekCh:
		default:
		}
		select {
		case a.seekCh <- target:
		default:
		}
	}
}

// Stop cancels the agent's loop and any in-flight action, cooperatively,
// and blocks until cleanup completes (spec.md §6 "stop() ->
// Promise<void>; resolves after cleanup").
func (a *Agent) Stop() error {
	a.cancel()
	<-a.stopped
	a.mu.Lock()
	a.status = StatusStopped
	a.mu.Unlock()
	return nil
}

// Wait blocks until the agent's current (or next) seek cycle produces a
// terminal Result, or ctx is done.
func (a *Agent) Wait(ctx context.Context) (Result, error) {
	a.mu.Lock()
	if a.hasResult {
		res := a.lastResult
		a.mu.Unlock()
		return res, nil
	}
	a.mu.Unlock()

	ch, unsubscribe := a.resultSubject.Subscribe()
	defer unsubscribe()
	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-a.stopped:
		return Result{}, fmt.Errorf("agent: stopped while waiting")
	}
}

func (a *Agent) setStatus(s Status) {
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
}

func (a *Agent) setState(s state.Value) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *Agent) finish(res Result) {
	a.mu.Lock()
	a.lastResult = res
	a.hasResult = true
	a.mu.Unlock()
	a.resultSubject.Publish(res)
}

func (a *Agent) publish(kind EventKind, inst *task.Instruction) {
	a.events.Publish(Event{Kind: kind, Instruction: inst})
}

func (a *Agent) publishFailure(kind EventKind, inst *task.Instruction, cause error) {
	a.events.Publish(Event{Kind: kind, Instruction: inst, Cause: cause})
}

// loop is the agent's single-owner event loop (spec.md §5: "serialise
// access to the world-state reference through a single logical owner").
// It interleaves seek requests, plan/execute cycles, and shutdown.
func (a *Agent) loop() {
	defer close(a.stopped)
	for {
		select {
		case <-a.ctx.Done():
			return
		case target, ok := <-a.seekCh:
			if !ok {
				return
			}
			a.runCycle(a.ctx, target)
		}
	}
}

func backoffOptionsFrom(opts Options) (base time.Duration, factor float64, maxDelay time.Duration) {
	return time.Duration(opts.MinWaitMs) * time.Millisecond, opts.BackoffFactor, time.Duration(opts.MaxBackoffMs) * time.Millisecond
}
