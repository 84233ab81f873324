package planner

import "time"

// Options configures a single FindPlan call. Shaped after the retrieved
// HTNConfig{MaxDepth, MaxPlanLength, Timeout, ProgressInterval} from
// other_examples' jinterlante1206/AleutianLocal HTN planner and the
// teacher's execution_planner.go ExecutionConfig{PlanningTimeout,...}.
type Options struct {
	// MaxDepth bounds the depth of the depth-first search.
	MaxDepth int
	// Timeout bounds the wall-clock time spent searching; zero means no
	// additional timeout beyond ctx's own deadline.
	Timeout time.Duration
}

// DefaultOptions mirrors the teacher's DefaultHTNConfig-style
// constructor: sane defaults for a bounded, terminating search.
func DefaultOptions() Options {
	return Options{
		MaxDepth: 256,
		Timeout:  30 * time.Second,
	}
}

// Stats tracks planner effort, per spec.md §4.5 "Stats": tasks
// considered, method expansions, branch backtracks, max depth, elapsed
// ms — deliberately no cost estimation, since spec.md disclaims plan
// optimality.
type Stats struct {
	TasksConsidered  int
	MethodExpansions int
	BranchBacktracks int
	MaxDepthReached  int
	ElapsedMs        int64
}
