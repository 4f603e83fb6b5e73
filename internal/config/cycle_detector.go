package config

import "slices"

// detectCycle returns a closed path through a dependency cycle among enabled
// resources, or nil if none exists. Resources are visited in declaration order.
func detectCycle(resources []Resource) []string {
	enabled := make(map[string]bool, len(resources))
	for _, res := range resources {
		if res.Enabled {
			enabled[res.ID] = true
		}
	}

	graph := make(map[string][]string, len(enabled))
	for _, res := range resources {
		if !enabled[res.ID] {
			continue
		}
		deps := make([]string, 0, len(res.DependsOn))
		for _, dep := range res.DependsOn {
			if enabled[dep] {
				deps = append(deps, dep)
			}
		}
		graph[res.ID] = deps
	}

	visiting := make(map[string]bool, len(enabled))
	visited := make(map[string]bool, len(enabled))
	var stack []string

	var cycle []string
	var dfs func(string) bool
	dfs = func(node string) bool {
		visiting[node] = true
		stack = append(stack, node)

		for _, dep := range graph[node] {
			if visited[dep] {
				continue
			}
			if visiting[dep] {
				if idx := slices.Index(stack, dep); idx >= 0 {
					cycle = append([]string{}, stack[idx:]...)
					cycle = append(cycle, dep)
				}
				return true
			}
			if dfs(dep) {
				return true
			}
		}

		visiting[node] = false
		visited[node] = true
		stack = stack[:len(stack)-1]
		return false
	}

	for _, res := range resources {
		if !enabled[res.ID] || visited[res.ID] {
			continue
		}
		if dfs(res.ID) {
			break
		}
	}

	return cycle
}
