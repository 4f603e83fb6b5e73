package engine

import (
	"fmt"
	"sort"

	"github.com/alexisbeaulieu97/vpsctl/internal/resource"
	vpserrors "github.com/alexisbeaulieu97/vpsctl/pkg/errors"
)

// Node represents a vertex in the resource DAG.
type Node struct {
	ID         string
	Index      int
	Resource   resource.Resource
	DependsOn  []*Node
	Dependents []*Node
}

// Graph holds the dependency DAG, its execution order and display levels.
type Graph struct {
	Nodes  map[string]*Node
	Order  []string
	Levels [][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// AddNode inserts a resource as a vertex in the graph.
func (g *Graph) AddNode(res resource.Resource) (*Node, error) {
	if res == nil {
		return nil, vpserrors.NewValidationError("resources", "resource cannot be nil", nil)
	}

	if g.Nodes == nil {
		g.Nodes = make(map[string]*Node)
	}

	if res.ID() == "" {
		return nil, vpserrors.NewValidationError("resources", "resource id cannot be empty", nil)
	}

	if _, exists := g.Nodes[res.ID()]; exists {
		return nil, vpserrors.NewValidationError("resources", fmt.Sprintf("duplicate resource id %q", res.ID()), nil)
	}

	node := &Node{ID: res.ID(), Index: len(g.Nodes), Resource: res}
	g.Nodes[res.ID()] = node
	return node, nil
}

// AddEdge records that to depends on from.
func (g *Graph) AddEdge(from, to string) error {
	source, ok := g.Nodes[from]
	if !ok {
		return vpserrors.NewValidationError("resources", fmt.Sprintf("unknown dependency %q", from), nil)
	}

	target, ok := g.Nodes[to]
	if !ok {
		return vpserrors.NewValidationError("resources", fmt.Sprintf("unknown dependency target %q", to), nil)
	}

	source.Dependents = append(source.Dependents, target)
	target.DependsOn = append(target.DependsOn, source)
	return nil
}

// TopologicalSort computes the execution order using Kahn's algorithm. Among
// ready nodes the one declared first wins, so the order is deterministic and
// follows the catalog wherever dependencies allow.
func (g *Graph) TopologicalSort() error {
	indegree := make(map[string]int, len(g.Nodes))
	depth := make(map[string]int, len(g.Nodes))
	for id, node := range g.Nodes {
		indegree[id] = len(node.DependsOn)
	}

	var ready []*Node
	for id, degree := range indegree {
		if degree == 0 {
			ready = append(ready, g.Nodes[id])
		}
	}

	order := make([]string, 0, len(g.Nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].Index < ready[j].Index })
		node := ready[0]
		ready = ready[1:]
		order = append(order, node.ID)

		for _, dependent := range node.Dependents {
			if depth[node.ID]+1 > depth[dependent.ID] {
				depth[dependent.ID] = depth[node.ID] + 1
			}
			indegree[dependent.ID]--
			if indegree[dependent.ID] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		return vpserrors.NewCyclicDependencyError(g.findCycle())
	}

	var levels [][]string
	for _, id := range order {
		d := depth[id]
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], id)
	}

	g.Order = order
	g.Levels = levels
	return nil
}

// findCycle returns one cycle as a closed path (first id repeated at the end).
func (g *Graph) findCycle() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return g.Nodes[ids[i]].Index < g.Nodes[ids[j]].Index })

	visiting := make(map[string]bool, len(ids))
	visited := make(map[string]bool, len(ids))
	var stack []string
	var cycle []string

	var dfs func(string) bool
	dfs = func(id string) bool {
		visiting[id] = true
		stack = append(stack, id)

		for _, dep := range g.Nodes[id].DependsOn {
			if visited[dep.ID] {
				continue
			}
			if visiting[dep.ID] {
				for i, v := range stack {
					if v == dep.ID {
						cycle = append(append([]string{}, stack[i:]...), dep.ID)
						break
					}
				}
				return true
			}
			if dfs(dep.ID) {
				return true
			}
		}

		visiting[id] = false
		visited[id] = true
		stack = stack[:len(stack)-1]
		return false
	}

	for _, id := range ids {
		if !visited[id] && dfs(id) {
			break
		}
	}
	return cycle
}

// BuildDAG constructs and sorts the graph for the given resources.
func BuildDAG(resources []resource.Resource) (*Graph, error) {
	graph := NewGraph()
	for _, res := range resources {
		if _, err := graph.AddNode(res); err != nil {
			return nil, err
		}
	}

	for _, res := range resources {
		for _, dependency := range res.DependsOn() {
			if _, ok := graph.Nodes[dependency]; !ok {
				return nil, vpserrors.NewValidationError("resources", fmt.Sprintf("resource %q depends on unknown resource %q", res.ID(), dependency), nil)
			}
			if err := graph.AddEdge(dependency, res.ID()); err != nil {
				return nil, err
			}
		}
	}

	if err := graph.TopologicalSort(); err != nil {
		return nil, err
	}
	return graph, nil
}
