package task

import (
	"github.com/wayneeseguin/reconcile/internal/lens"
	"github.com/wayneeseguin/reconcile/internal/path"
	"github.com/wayneeseguin/reconcile/internal/state"
)

// InstructionKind distinguishes an Action instruction from a Method
// instruction.
type InstructionKind int

const (
	InstructionAction InstructionKind = iota
	InstructionMethod
)

// Instruction is a task grounded to a specific Path and argument binding
// (spec.md §3). Two instructions are equal iff their task ID, grounded
// Path, and Target value (if any) are equal.
type Instruction struct {
	Kind    InstructionKind
	TaskID  string
	Task    Task
	Path    path.Path
	Binding lens.Binding
	// Target is the requested value for create/update instructions; nil
	// for delete and for "*"-op instructions with no value.
	Target *state.Value
}

// Equal implements the equality spec.md §3 defines for instructions.
func (i Instruction) Equal(o Instruction) bool {
	if i.TaskID != o.TaskID || !i.Path.Equal(o.Path) {
		return false
	}
	if (i.Target == nil) != (o.Target == nil) {
		return false
	}
	if i.Target != nil && !i.Target.Equal(*o.Target) {
		return false
	}
	return true
}

// Ground substitutes the Lens placeholders in t with the values in b,
// yielding a concrete Path, and packages the result as an Instruction.
// It returns false if the binding does not cover every placeholder.
func Ground(t Task, b lens.Binding, target *state.Value) (Instruction, bool) {
	p, ok := t.Lens().Ground(b)
	if !ok {
		return Instruction{}, false
	}
	kind := InstructionAction
	if _, isMethod := t.(*MethodTask); isMethod {
		kind = InstructionMethod
	}
	return Instruction{
		Kind:    kind,
		TaskID:  t.ID(),
		Task:    t,
		Path:    p,
		Binding: b.Copy(),
		Target:  target,
	}, true
}

// ConditionHolds combines the task's implicit op-derived precondition
// with its user-supplied Condition (spec.md §4.4: "the user condition is
// AND-ed with the implicit one").
func ConditionHolds(t Task, s state.Value, p path.Path, b lens.Binding) bool {
	return ConditionHoldsWithTarget(t, s, p, b, nil)
}

// ConditionHoldsWithTarget is ConditionHolds for a binding already paired
// with a known target value (used once an instruction has been
// grounded, so bindings.target is available to the user Condition).
func ConditionHoldsWithTarget(t Task, s state.Value, p path.Path, b lens.Binding, target *state.Value) bool {
	if !ImplicitConditionHolds(t.Op(), s, p) {
		return false
	}
	return t.Condition(s, Args{Binding: b, Target: target})
}
