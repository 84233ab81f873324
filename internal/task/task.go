// Package task implements the declarative task model of spec.md §3/§4.4:
// immutable descriptors of state-changing units (action tasks and method
// tasks), grounding of a task against a concrete Path and binding into
// an Instruction, and the implicit condition/effect rules attached to
// each operation kind. Grounded directly on pkg/graft's Operator
// interface (Setup/Run/Dependencies/Phase) and Opcall, generalized from
// "YAML merge operator" to "HTN task".
package task

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/wayneeseguin/reconcile/internal/lens"
	"github.com/wayneeseguin/reconcile/internal/path"
	"github.com/wayneeseguin/reconcile/internal/state"
	"github.com/wayneeseguin/reconcile/internal/view"
)

// OpKind is the operation kind a task's lens is registered against.
type OpKind int

const (
	Create OpKind = iota
	Update
	Delete
	Any
)

func (k OpKind) String() string {
	switch k {
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	case Any:
		return "*"
	default:
		return "unknown"
	}
}

// Matches reports whether a task registered for OpKind k applies to an
// operation of kind stateOp.
func (k OpKind) Matches(stateOp state.OpKind) bool {
	if k == Any {
		return true
	}
	switch stateOp {
	case state.OpCreate:
		return k == Create
	case state.OpUpdate:
		return k == Update
	case state.OpDelete:
		return k == Delete
	}
	return false
}

// Args is the task-author surface exposed to Condition/Effect/Action/
// Method callbacks (spec.md §6 "Task-author API"): bindings.<name>
// extracted from the Lens at grounding, plus bindings.target — the
// requested value for create/update instructions.
type Args struct {
	lens.Binding
	// Target is the requested value, present for create/update
	// instructions; nil for delete and for "*"-op instructions with no
	// value.
	Target *state.Value
}

// ConditionFunc is a user-supplied guard, AND-ed with the implicit
// condition derived from the task's OpKind. The state.Value parameter is
// bindings.system: an immutable snapshot of the whole current state.
type ConditionFunc func(system state.Value, a Args) bool

// DescriptionFunc renders a human-readable description of a grounded
// task for plan serialization and event payloads.
type DescriptionFunc func(a Args) string

// Task is the common shape of ActionTask and MethodTask.
type Task interface {
	Lens() lens.Lens
	Op() OpKind
	Condition(system state.Value, a Args) bool
	Description(a Args) string
	ID() string
}

// base holds the fields common to every task kind.
type base struct {
	lens        lens.Lens
	op          OpKind
	label       string
	condition   ConditionFunc
	description DescriptionFunc
	idOverride  string
}

func (b *base) Lens() lens.Lens { return b.lens }
func (b *base) Op() OpKind      { return b.op }

func (b *base) Condition(system state.Value, a Args) bool {
	if b.condition == nil {
		return true
	}
	return b.condition(system, a)
}

func (b *base) Description(a Args) string {
	if b.description != nil {
		return b.description(a)
	}
	return b.label
}

func (b *base) ID() string {
	if b.idOverride != "" {
		return b.idOverride
	}
	// Hash the stable fields only (op, lens, label) — deliberately NOT
	// the condition/effect/action closures' code, which have no stable
	// string form in Go. Documented divergence from the source system,
	// which hashes a structural serialization including function bodies
	// (spec.md §9 "Task id derivation").
	h := sha256.New()
	h.Write([]byte(b.op.String()))
	h.Write([]byte{0})
	h.Write([]byte(b.lens.String()))
	h.Write([]byte{0})
	h.Write([]byte(b.label))
	return hex.EncodeToString(h.Sum(nil))
}

// ImplicitConditionHolds checks the op-derived precondition of spec.md
// §4.4: create requires absence, delete/update require presence, "*" has
// no implicit precondition.
func ImplicitConditionHolds(op OpKind, s state.Value, p path.Path) bool {
	_, err := path.Resolve(s.ToInterface(), p)
	exists := err == nil
	switch op {
	case Create:
		return !exists
	case Delete, Update:
		return exists
	default:
		return true
	}
}

// EffectFunc is a synchronous, pure projection used during planning: it
// mutates the tracked view to reflect what the task would do, without
// performing I/O.
type EffectFunc func(v view.View, a Args) error

// ActionFunc performs the task's actual I/O at execution time.
type ActionFunc func(ctx context.Context, v view.View, a Args) error

// ActionTask is a task whose grounded instruction is a single concrete
// action: a pure Effect for planning plus an optional I/O-bearing
// Action for execution.
type ActionTask struct {
	base
	EffectFunc EffectFunc
	ActionFunc ActionFunc // nil means the effect alone is the action
}

// NewActionTask constructs an ActionTask.
func NewActionTask(l lens.Lens, op OpKind, label string, cond ConditionFunc, effect EffectFunc, action ActionFunc) *ActionTask {
	return &ActionTask{
		base: base{
			lens:      l,
			op:        op,
			label:     label,
			condition: cond,
		},
		EffectFunc: effect,
		ActionFunc: action,
	}
}

// WithDescription overrides the description function.
func (t *ActionTask) WithDescription(fn DescriptionFunc) *ActionTask {
	t.description = fn
	return t
}

// WithID overrides the derived ID with an explicit stable value.
func (t *ActionTask) WithID(id string) *ActionTask {
	t.idOverride = id
	return t
}

// Effect runs the task's pure planning-time projection.
func (t *ActionTask) Effect(v view.View, a Args) error {
	if t.EffectFunc == nil {
		return nil
	}
	return t.EffectFunc(v, a)
}

// HasAction reports whether the task has a distinct I/O Action, as
// opposed to being satisfied by Effect alone.
func (t *ActionTask) HasAction() bool { return t.ActionFunc != nil }

// Action performs the task's I/O at execution time. If no ActionFunc was
// supplied, it falls back to running Effect.
func (t *ActionTask) Action(ctx context.Context, v view.View, a Args) error {
	if t.ActionFunc != nil {
		return t.ActionFunc(ctx, v, a)
	}
	return t.Effect(v, a)
}

// ExpansionMode controls how a MethodTask's returned instructions are
// planned (spec.md §4.4).
type ExpansionMode int

const (
	// Sequential treats returned instructions as a linear chain.
	Sequential ExpansionMode = iota
	// Detect attempts parallel expansion, falling back to Sequential if
	// conflicts are found between branches.
	Detect
)

// MethodFunc decomposes a grounded method call into zero or more further
// instructions. An empty, nil-error return means "not applicable here"
// (spec.md §9 "Method return ambiguity" — preserved exactly, not treated
// as an error).
type MethodFunc func(system state.Value, a Args) ([]Instruction, error)

// MethodTask is a task that decomposes into further instructions rather
// than acting directly.
type MethodTask struct {
	base
	MethodFunc MethodFunc
	Mode       ExpansionMode
}

// NewMethodTask constructs a MethodTask with Detect expansion by default.
func NewMethodTask(l lens.Lens, op OpKind, label string, cond ConditionFunc, method MethodFunc) *MethodTask {
	return &MethodTask{
		base: base{
			lens:      l,
			op:        op,
			label:     label,
			condition: cond,
		},
		MethodFunc: method,
		Mode:       Detect,
	}
}

// WithMode sets the expansion mode.
func (t *MethodTask) WithMode(mode ExpansionMode) *MethodTask {
	t.Mode = mode
	return t
}

// WithDescription overrides the description function.
func (t *MethodTask) WithDescription(fn DescriptionFunc) *MethodTask {
	t.description = fn
	return t
}

// WithID overrides the derived ID with an explicit stable value.
func (t *MethodTask) WithID(id string) *MethodTask {
	t.idOverride = id
	return t
}

// Method decomposes the grounded method call.
func (t *MethodTask) Method(system state.Value, a Args) ([]Instruction, error) {
	return t.MethodFunc(system, a)
}

// Expansion returns the task's expansion mode.
func (t *MethodTask) Expansion() ExpansionMode { return t.Mode }
