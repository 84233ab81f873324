// Package planner implements the HTN search of spec.md §4.5: a
// depth-first, memoized search over outstanding diff operations and a
// task library, producing either a linear plan or a parallel DAG.
// Grounded on pkg/graft/evaluator.go's DataFlow (dependency-graph build
// plus Kahn topological sort via repeated free-node "wave" extraction)
// generalized from "evaluate operators in dependency order" to "search
// for a task sequence/DAG that satisfies outstanding diff operations",
// and on the teacher's root-level execution-planning cluster
// (dependency_graph.go, execution_planner.go) for the parallel-fork,
// conflict-detection, and timeout machinery.
package planner

import (
	"strings"

	"github.com/wayneeseguin/reconcile/internal/task"
)

// PlanNode is one node of the plan DAG: ActionNode, ForkNode, or
// Terminal (spec.md §3).
type PlanNode interface {
	isPlanNode()
}

// ActionNode is a linear link: run Instruction, then Next.
type ActionNode struct {
	Instruction task.Instruction
	Next        PlanNode
}

func (ActionNode) isPlanNode() {}

// ForkNode is a parallel composition whose Branches must be independent
// by construction (spec.md §4.5 conflict detection); Next runs after
// every branch settles.
type ForkNode struct {
	Branches []PlanNode
	Next     PlanNode
}

func (ForkNode) isPlanNode() {}

// Terminal marks the end of a plan (or of a branch).
type Terminal struct{}

func (Terminal) isPlanNode() {}

// Plan is a successful planning result: a DAG rooted at Start.
type Plan struct {
	Start PlanNode
}

// Serialize renders a Plan using the structural format of spec.md §6:
// "- description" for an action, a "+"/"~" block per fork branch,
// indentation by two spaces per depth.
func Serialize(p *Plan) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	serializeNode(&b, p.Start, 0)
	return b.String()
}

func serializeNode(b *strings.Builder, n PlanNode, depth int) {
	indent := strings.Repeat("  ", depth)
	switch node := n.(type) {
	case ActionNode:
		b.WriteString(indent)
		b.WriteString("- ")
		b.WriteString(node.Instruction.Task.Description(task.Args{Binding: node.Instruction.Binding, Target: node.Instruction.Target}))
		b.WriteString("\n")
		serializeNode(b, node.Next, depth)
	case ForkNode:
		b.WriteString(indent)
		b.WriteString("+\n")
		for _, branch := range node.Branches {
			b.WriteString(indent)
			b.WriteString("~\n")
			serializeNode(b, branch, depth+1)
		}
		serializeNode(b, node.Next, depth)
	case Terminal:
		// end of plan/branch; nothing to render
	}
}
