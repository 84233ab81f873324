// Package errs defines the engine's error taxonomy (spec.md §7): a single
// tagged error type plus a multi-error aggregator, grounded on the
// teacher's GraftError/MultiError pattern in pkg/graft/errors.go.
package errs

import (
	"fmt"
	"strings"
)

// Kind enumerates the error kinds of spec.md §7.
type Kind int

const (
	// PathInvalid reports a malformed Path; thrown at construction.
	PathInvalid Kind = iota
	// PointerNotFound reports resolving to a nonexistent location from a
	// context that requires presence.
	PointerNotFound
	// ConditionFailed reports an action precondition false at execution
	// time; recovered locally by the agent (skip action, re-plan).
	ConditionFailed
	// ActionFailed wraps a cause thrown by an action; recovered by
	// backoff+retry up to MaxRetries, then surfaced as failure.
	ActionFailed
	// ActionCancelled reports cooperative cancellation; treated like
	// ActionFailed but does not count toward retries.
	ActionCancelled
	// PlanNotFound reports that the planner exhausted search.
	PlanNotFound
	// PlanTimeout reports that the planner's deadline was hit.
	PlanTimeout
	// NoProgress reports an action that neither shrank the diff nor
	// changed the state; the branch is abandoned silently by the planner.
	NoProgress
)

func (k Kind) String() string {
	switch k {
	case PathInvalid:
		return "PathInvalid"
	case PointerNotFound:
		return "PointerNotFound"
	case ConditionFailed:
		return "ConditionFailed"
	case ActionFailed:
		return "ActionFailed"
	case ActionCancelled:
		return "ActionCancelled"
	case PlanNotFound:
		return "PlanNotFound"
	case PlanTimeout:
		return "PlanTimeout"
	case NoProgress:
		return "NoProgress"
	default:
		return "Unknown"
	}
}

// ReconcileError is the engine's single tagged error type.
type ReconcileError struct {
	Kind    Kind
	Message string
	Path    string
	Cause   error
}

func (e *ReconcileError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %s", e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *ReconcileError) Unwrap() error { return e.Cause }

// New constructs a ReconcileError with no path or cause.
func New(kind Kind, message string) *ReconcileError {
	return &ReconcileError{Kind: kind, Message: message}
}

// Wrap constructs a ReconcileError carrying a cause.
func Wrap(kind Kind, path, message string, cause error) *ReconcileError {
	return &ReconcileError{Kind: kind, Path: path, Message: message, Cause: cause}
}

// Is reports whether err is a ReconcileError of the given Kind.
func Is(err error, kind Kind) bool {
	var re *ReconcileError
	if !asReconcile(err, &re) {
		return false
	}
	return re.Kind == kind
}

func asReconcile(err error, target **ReconcileError) bool {
	for err != nil {
		if re, ok := err.(*ReconcileError); ok {
			*target = re
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// MultiError aggregates several errors encountered while processing
// independent items (e.g. fork branches settling), grounded on
// pkg/graft/errors.go's MultiError.
type MultiError struct {
	Errors []error
}

func (m *MultiError) Append(err error) {
	if err == nil {
		return
	}
	m.Errors = append(m.Errors, err)
}

func (m *MultiError) HasAny() bool { return len(m.Errors) > 0 }

func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	parts := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("%d errors occurred:\n\t- %s", len(m.Errors), strings.Join(parts, "\n\t- "))
}

// OrNil returns m if it has any errors, otherwise nil — useful for
// returning an error from a function that accumulated into a MultiError.
func (m *MultiError) OrNil() error {
	if m == nil || !m.HasAny() {
		return nil
	}
	return m
}
