package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wayneeseguin/reconcile/internal/errs"
	"github.com/wayneeseguin/reconcile/internal/path"
	"github.com/wayneeseguin/reconcile/internal/planner"
	"github.com/wayneeseguin/reconcile/internal/state"
	"github.com/wayneeseguin/reconcile/internal/task"
	"github.com/wayneeseguin/reconcile/internal/view"
)

// sensorUpdate is a single value pushed by a Sensor, destined to be
// applied at its bound Path as an update operation.
type sensorUpdate struct {
	path  path.Path
	value state.Value
}

// startSensor subscribes to s and forwards every emitted value onto the
// agent's shared sensorCh, where the executing goroutine applies it
// (spec.md §4.6 "Sensors").
func (a *Agent) startSensor(s Sensor) {
	ch, err := s.Subscribe(a.ctx)
	if err != nil {
		a.events.Publish(Event{Kind: EventFailure, Cause: err})
		return
	}
	go func() {
		for {
			select {
			case v, ok := <-ch:
				if !ok {
					return
				}
				select {
				case a.sensorCh <- sensorUpdate{path: s.Path(), value: v}:
				case <-a.ctx.Done():
					return
				}
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

// drainSensorUpdates applies every currently-pending sensor value to s
// and to the agent's canonical state reference, non-blockingly. Per
// spec.md §5, a sensor update is applied atomically with respect to
// action-effect commits: it is only ever drained between plan steps,
// never while a tracked scope is open.
func (a *Agent) drainSensorUpdates(s state.Value) state.Value {
	for {
		select {
		case u := <-a.sensorCh:
			root, err := path.Assign(s.ToInterface(), u.path, u.value.ToInterface())
			if err != nil {
				continue
			}
			s = state.ValueFromInterface(root)
			a.setState(s)
		default:
			return s
		}
	}
}

// runCycle drives one seek to completion: plan, execute, and — if the
// target is not yet met, or an action's condition was invalidated by a
// sensor update — re-plan (spec.md §4.6). Re-plans after a failed search
// or an unmet target count against opts.MaxRetries; re-plans after an
// invalidated condition do not.
func (a *Agent) runCycle(ctx context.Context, target state.Target) {
	retries := 0
	for {
		a.setStatus(StatusPlanning)
		cur := a.State()
		a.events.Publish(Event{Kind: EventFindPlan})

		plan, stats, err := planner.FindPlan(ctx, cur, target, a.tasks, a.opts.Planner)
		if err != nil {
			kind := EventPlanNotFound
			if errs.Is(err, errs.PlanTimeout) {
				kind = EventPlanTimeout
			}
			a.events.Publish(Event{Kind: kind, Stats: stats, Cause: err})
			if !a.bumpRetries(&retries) {
				a.fail(cur, err)
				return
			}
			continue
		}
		a.events.Publish(Event{Kind: EventPlanFound, Stats: stats})

		a.setStatus(StatusExecuting)
		finalState, execErr := a.executeNode(ctx, plan.Start, cur)
		a.setState(finalState)
		a.events.Publish(Event{Kind: EventPlanExecuted})

		if execErr != nil {
			if errs.Is(execErr, errs.ConditionFailed) {
				// A sensor update (or a stale precondition) invalidated
				// the current step; re-plan against the now-current
				// state without counting it as a hard failure.
				continue
			}
			a.fail(finalState, execErr)
			return
		}

		remaining := state.Diff(finalState, target)
		if len(remaining) == 0 {
			a.events.Publish(Event{Kind: EventSuccess})
			a.finish(Result{Success: true, State: finalState})
			if a.opts.Follow {
				a.setStatus(StatusWaiting)
			} else {
				a.setStatus(StatusIdle)
			}
			return
		}

		if !a.bumpRetries(&retries) {
			a.fail(finalState, errs.New(errs.PlanNotFound, "state still diverges from target after max retries"))
			return
		}
	}
}

func (a *Agent) bumpRetries(retries *int) bool {
	*retries++
	return *retries <= a.opts.MaxRetries
}

func (a *Agent) fail(s state.Value, cause error) {
	a.events.Publish(Event{Kind: EventFailure, Cause: cause})
	a.finish(Result{Success: false, State: s, Cause: cause})
	a.setStatus(StatusIdle)
}

// executeNode walks the plan DAG, running each action in order and
// merging fork branches' disjoint effects once they all settle (spec.md
// §4.5, §5 "Parallel branches").
func (a *Agent) executeNode(ctx context.Context, node planner.PlanNode, s state.Value) (state.Value, error) {
	switch n := node.(type) {
	case planner.Terminal:
		return s, nil

	case planner.ActionNode:
		s2, err := a.executeAction(ctx, n.Instruction, s)
		if err != nil {
			return s2, err
		}
		return a.executeNode(ctx, n.Next, s2)

	case planner.ForkNode:
		combined, err := a.executeFork(ctx, n.Branches, s)
		if err != nil {
			return combined, err
		}
		return a.executeNode(ctx, n.Next, combined)

	default:
		return s, fmt.Errorf("agent: unknown plan node %T", node)
	}
}

type branchOutcome struct {
	changes []view.Change
	err     error
}

// executeFork runs every branch concurrently against independent copies
// of s (spec.md §5: "Branches execute concurrently but operate on
// disjoint sub-trees of the state by construction"), then merges their
// recorded Change sets onto s in index order once all have settled. On
// branch failure the fork fails only once every branch has settled; the
// surfaced cause is the first one encountered (spec.md §5).
func (a *Agent) executeFork(ctx context.Context, branches []planner.PlanNode, s state.Value) (state.Value, error) {
	outcomes := make([]branchOutcome, len(branches))
	var wg sync.WaitGroup
	forkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i, branch := range branches {
		wg.Add(1)
		go func(i int, branch planner.PlanNode) {
			defer wg.Done()
			root := s.ToInterface()
			changes, err := view.Track(&root, func() error {
				out, execErr := a.executeNode(forkCtx, branch, state.ValueFromInterface(root))
				if execErr != nil {
					return execErr
				}
				root = out.ToInterface()
				return nil
			})
			outcomes[i] = branchOutcome{changes: changes, err: err}
		}(i, branch)
	}
	wg.Wait()

	var multi errs.MultiError
	combined := s
	for _, o := range outcomes {
		if o.err != nil {
			multi.Append(o.err)
			continue
		}
		combined = applyBranchChanges(combined, o.changes)
	}
	if multi.HasAny() {
		cancel()
		return s, multi.Errors[0]
	}
	return combined, nil
}

// applyBranchChanges replays a fork branch's recorded Change set onto an
// independent base state (spec.md §4.5 step 3: branch effects commute by
// construction, so replaying them in any order onto the shared base
// yields the same result).
func applyBranchChanges(base state.Value, changes []view.Change) state.Value {
	root := base.ToInterface()
	for _, c := range changes {
		switch c.Kind {
		case view.ChangeDelete:
			if out, err := path.Remove(root, c.Path); err == nil {
				root = out
			}
		default:
			if out, err := path.Assign(root, c.Path, c.Value); err == nil {
				root = out
			}
		}
	}
	return state.ValueFromInterface(root)
}

// executeAction runs the execution protocol of spec.md §4.4: re-check
// the condition, run Action inside a tracked scope, and on failure
// retry with exponential backoff up to opts.MaxRetries before surfacing
// ActionFailed.
func (a *Agent) executeAction(ctx context.Context, inst task.Instruction, s state.Value) (state.Value, error) {
	at, ok := inst.Task.(*task.ActionTask)
	if !ok {
		return s, fmt.Errorf("agent: plan contains non-action instruction %s", inst.TaskID)
	}
	args := task.Args{Binding: inst.Binding, Target: inst.Target}
	a.publish(EventActionNext, &inst)

	base, factor, maxDelay := backoffOptionsFrom(a.opts)
	attempt := 0
	for {
		s = a.drainSensorUpdates(s)
		if !task.ConditionHoldsWithTarget(at, s, inst.Path, inst.Binding, inst.Target) {
			a.publish(EventActionConditionFailed, &inst)
			return s, errs.New(errs.ConditionFailed, "action condition no longer holds")
		}

		a.publish(EventActionStart, &inst)
		actionCtx, cancelAction := context.WithCancel(ctx)
		root := s.ToInterface()
		_, runErr := view.Track(&root, func() error {
			v := view.At(&root, inst.Path)
			if err := at.Action(actionCtx, v, args); err != nil {
				return err
			}
			if at.Op() == task.Delete {
				if _, readErr := v.Read(); readErr == nil {
					return v.Delete()
				}
			}
			return nil
		})
		cancelAction()

		if runErr == nil {
			s2 := state.ValueFromInterface(root)
			a.publish(EventActionSuccess, &inst)
			return s2, nil
		}

		kind := errs.ActionFailed
		if ctx.Err() != nil {
			kind = errs.ActionCancelled
		}
		cause := errs.Wrap(kind, inst.Path.String(), "action failed", runErr)
		a.publishFailure(EventActionFailure, &inst, cause)

		if kind == errs.ActionCancelled {
			return s, cause
		}
		if attempt >= a.opts.MaxRetries {
			return s, cause
		}

		delay := backoffDelay(base, factor, attempt, maxDelay)
		a.events.Publish(Event{Kind: EventBackoff, Tries: attempt + 1, DelayMs: delay.Milliseconds()})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return s, errs.New(errs.ActionCancelled, "stopped during backoff")
		}
		attempt++
	}
}
