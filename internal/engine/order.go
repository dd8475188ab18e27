package engine

import (
	"fmt"
	"sort"

	"github.com/meowstack/agentflow/internal/model"
)

// LoopbackEdge identifies one step-graph edge the ordering algorithm
// determined is a legal CONDITION loopback rather than a cycle: a
// CONDITION step whose successor closes a cycle back to an
// already-ordered step. The Orchestrator treats the second and later
// traversals of such an edge as fresh logical steps, counted against the
// workflow's loop bound.
type LoopbackEdge struct {
	FromStepID string
	ToStepID   string
}

// OrderResult is the outcome of Engine.Order.
type OrderResult struct {
	Sequence  []string
	Loopbacks []LoopbackEdge
}

type edge struct {
	from, to        string
	fromIsCondition bool
}

// Order performs a topological sort over the step graph's edge set,
// tie-breaking by authoring order (spec.md §4.1 Ordering). A cycle is
// rejected unless every back-edge closing it originates from a CONDITION
// step, in which case those edges are reported as Loopbacks instead of an
// error: the graph is ordered using only its non-loopback edges, and the
// Orchestrator is responsible for re-traversing a loopback at runtime up
// to the workflow's loop bound.
func (e *Engine) Order(workflow *model.Workflow) (OrderResult, error) {
	authorIndex := make(map[string]int, len(workflow.Steps))
	for i, s := range workflow.Steps {
		authorIndex[s.ID] = i
	}

	var edges []edge
	for _, s := range workflow.Steps {
		for _, target := range s.Successors.Targets() {
			edges = append(edges, edge{from: s.ID, to: target, fromIsCondition: s.Kind == model.StepCondition})
		}
	}

	// First attempt: the full graph. If it's acyclic, there are no
	// loopbacks to report at all.
	if order, ok := kahn(workflow, edges, authorIndex); ok {
		return OrderResult{Sequence: order}, nil
	}

	// Second attempt: drop CONDITION-origin edges from the dependency
	// computation (they're allowed to be back-edges) and order the rest.
	var nonConditionEdges []edge
	var conditionEdges []edge
	for _, ed := range edges {
		if ed.fromIsCondition {
			conditionEdges = append(conditionEdges, ed)
		} else {
			nonConditionEdges = append(nonConditionEdges, ed)
		}
	}

	order, ok := kahn(workflow, nonConditionEdges, authorIndex)
	if !ok {
		return OrderResult{}, fmt.Errorf("engine: cycle detected with no CONDITION-origin back-edge to explain it")
	}

	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}

	// A CONDITION-origin edge is a genuine loopback only if it points to a
	// step ordered at or before its origin; otherwise it's an ordinary
	// forward branch and needs no special handling.
	var loopbacks []LoopbackEdge
	for _, ed := range conditionEdges {
		if position[ed.to] <= position[ed.from] {
			loopbacks = append(loopbacks, LoopbackEdge{FromStepID: ed.from, ToStepID: ed.to})
		}
	}

	return OrderResult{Sequence: order, Loopbacks: loopbacks}, nil
}

// kahn runs Kahn's algorithm over the given edge subset, tie-breaking
// ready nodes by authoring order. ok is false if a cycle remains.
func kahn(workflow *model.Workflow, edges []edge, authorIndex map[string]int) ([]string, bool) {
	inDegree := make(map[string]int, len(workflow.Steps))
	dependents := make(map[string][]string)
	for _, s := range workflow.Steps {
		inDegree[s.ID] = 0
	}
	for _, ed := range edges {
		inDegree[ed.to]++
		dependents[ed.from] = append(dependents[ed.from], ed.to)
	}

	var queue []string
	for _, s := range workflow.Steps {
		if inDegree[s.ID] == 0 {
			queue = append(queue, s.ID)
		}
	}

	var order []string
	for len(queue) > 0 {
		sort.Slice(queue, func(i, j int) bool { return authorIndex[queue[i]] < authorIndex[queue[j]] })
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		deps := append([]string(nil), dependents[id]...)
		sort.Slice(deps, func(i, j int) bool { return authorIndex[deps[i]] < authorIndex[deps[j]] })
		for _, dep := range deps {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	return order, len(order) == len(workflow.Steps)
}
