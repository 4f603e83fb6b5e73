package engine

import (
	"fmt"
	"strings"
)

// ExecutionPlan is the display form of a graph: resources grouped by depth.
type ExecutionPlan struct {
	Levels []ExecutionLevel
}

// ExecutionLevel lists resources whose dependencies all live in earlier levels.
type ExecutionLevel struct {
	ResourceIDs []string
}

// GeneratePlan converts a sorted DAG into an execution plan grouped by level.
func GeneratePlan(graph *Graph) (*ExecutionPlan, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph cannot be nil")
	}

	levels := make([]ExecutionLevel, 0, len(graph.Levels))
	for _, ids := range graph.Levels {
		levels = append(levels, ExecutionLevel{ResourceIDs: append([]string(nil), ids...)})
	}

	return &ExecutionPlan{Levels: levels}, nil
}

// String renders a human readable summary of the plan.
func (p *ExecutionPlan) String() string {
	if p == nil {
		return ""
	}

	var b strings.Builder
	for i, level := range p.Levels {
		fmt.Fprintf(&b, "Level %d (%d resources): %s\n", i, len(level.ResourceIDs), strings.Join(level.ResourceIDs, ", "))
	}
	return b.String()
}
