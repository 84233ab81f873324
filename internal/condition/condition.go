// Package condition offers an optional string-expression alternative to
// writing a Go closure for a task's Condition, backed by
// github.com/Knetic/govaluate — grounded on pkg/graft/operators/
// op_calc.go's use of govaluate.NewEvaluableExpressionWithFunctions for
// the "(( calc ))" operator. Core tasks still take a plain Go func; this
// is sugar for authoring guards declaratively.
package condition

import (
	"github.com/Knetic/govaluate"

	"github.com/wayneeseguin/reconcile/internal/state"
	"github.com/wayneeseguin/reconcile/internal/task"
)

// Expr compiles src (a govaluate boolean expression, e.g. "state < target")
// into a task.ConditionFunc. The parameter "state" is bound to the state
// value the condition receives (the whole state) when that value is a
// number; the task's grounded path is not resolved, so "state" is unbound
// for any non-numeric root. "target" is bound from bindings.target when it
// is a number; any other bare name is looked up in the binding map.
func Expr(src string) (task.ConditionFunc, error) {
	expression, err := govaluate.NewEvaluableExpressionWithFunctions(src, supportedFunctions())
	if err != nil {
		return nil, err
	}
	return func(s state.Value, a task.Args) bool {
		params := map[string]interface{}{}
		if s.Kind() == state.KindNum {
			params["state"] = s.AsNum()
		}
		if a.Target != nil && a.Target.Kind() == state.KindNum {
			params["target"] = a.Target.AsNum()
		}
		for k, v := range a.Binding {
			if n, ok := a.Binding.Int(k); ok {
				params[k] = n
			} else {
				params[k] = v
			}
		}
		result, evalErr := expression.Evaluate(params)
		if evalErr != nil {
			return false
		}
		truth, ok := result.(bool)
		return ok && truth
	}, nil
}

// supportedFunctions mirrors op_calc.go's pattern of exposing a small
// fixed function table to expressions (min/max here; the teacher's
// (( calc )) operator exposes a larger arithmetic/string set we don't
// need for boolean guards).
func supportedFunctions() map[string]govaluate.ExpressionFunction {
	return map[string]govaluate.ExpressionFunction{
		"min": func(args ...interface{}) (interface{}, error) {
			return minFloat(args), nil
		},
		"max": func(args ...interface{}) (interface{}, error) {
			return maxFloat(args), nil
		},
	}
}

func minFloat(args []interface{}) float64 {
	var m float64
	for i, a := range args {
		f, _ := a.(float64)
		if i == 0 || f < m {
			m = f
		}
	}
	return m
}

func maxFloat(args []interface{}) float64 {
	var m float64
	for i, a := range args {
		f, _ := a.(float64)
		if i == 0 || f > m {
			m = f
		}
	}
	return m
}
