// Package graph provides cycle-aware topological sorting and ancestor
// resolution over registry snapshots.
//
// Both operations work on plain adjacency maps (identifier to referenced
// identifiers) so they can be tested without a registry and never hold the
// registry lock themselves; callers pass in a snapshot taken under the lock.
package graph

import "sort"

// SortResult is the outcome of a topological sort.
type SortResult struct {
	// Order lists every node with dependencies before dependents.
	Order []string
	// HasCycle reports whether any back edge was found. The order is still
	// a best-effort total order over all nodes; cyclic edges are simply not
	// re-traversed.
	HasCycle bool
}

// visit marks for the three-state DFS.
type visitMark int

const (
	unvisited visitMark = iota
	inProgress
	done
)

// TopoSort produces a deterministic topological ordering of all nodes in the
// adjacency map. Roots are visited in lexicographic order and each node's
// dependency list is sorted before recursion, so the ordering depends only on
// the graph shape, not on file content order or map iteration.
//
// Encountering an in-progress node flags a cycle and skips the edge; the sort
// never fails. Dependency targets absent from the graph are skipped here and
// reported by callers that require completeness (see Ancestors).
func TopoSort(adjacency map[string][]string) SortResult {
	roots := make([]string, 0, len(adjacency))
	for name := range adjacency {
		roots = append(roots, name)
	}
	sort.Strings(roots)

	result := SortResult{Order: make([]string, 0, len(adjacency))}
	marks := make(map[string]visitMark, len(adjacency))

	var visit func(name string)
	visit = func(name string) {
		switch marks[name] {
		case done:
			return
		case inProgress:
			result.HasCycle = true
			return
		}
		marks[name] = inProgress

		deps := make([]string, len(adjacency[name]))
		copy(deps, adjacency[name])
		sort.Strings(deps)

		for _, dep := range deps {
			if _, exists := adjacency[dep]; !exists {
				continue
			}
			visit(dep)
		}

		marks[name] = done
		result.Order = append(result.Order, name)
	}

	for _, root := range roots {
		visit(root)
	}
	return result
}

// DetectCycles returns every distinct cycle found by DFS, each as the node
// path that closes the loop. Used for reporting; the sorter itself only needs
// the presence flag.
func DetectCycles(adjacency map[string][]string) [][]string {
	var cycles [][]string

	roots := make([]string, 0, len(adjacency))
	for name := range adjacency {
		roots = append(roots, name)
	}
	sort.Strings(roots)

	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var visit func(name string, path []string) []string
	visit = func(name string, path []string) []string {
		visited[name] = true
		recStack[name] = true
		path = append(path, name)

		deps := make([]string, len(adjacency[name]))
		copy(deps, adjacency[name])
		sort.Strings(deps)

		for _, dep := range deps {
			if _, exists := adjacency[dep]; !exists {
				continue
			}
			if !visited[dep] {
				if cycle := visit(dep, path); cycle != nil {
					return cycle
				}
			} else if recStack[dep] {
				// Found a back edge - extract the cycle from the path.
				cycleStart := -1
				for i, p := range path {
					if p == dep {
						cycleStart = i
						break
					}
				}
				if cycleStart >= 0 {
					cycle := make([]string, len(path)-cycleStart+1)
					copy(cycle, path[cycleStart:])
					cycle[len(cycle)-1] = dep
					return cycle
				}
			}
		}

		recStack[name] = false
		return nil
	}

	for _, root := range roots {
		if !visited[root] {
			if cycle := visit(root, nil); cycle != nil {
				cycles = append(cycles, cycle)
			}
		}
	}
	return cycles
}

// MissingTargets returns, per node, the dependency identifiers that do not
// resolve to a node in the graph. Sorted by node for stable reporting.
func MissingTargets(adjacency map[string][]string) map[string][]string {
	missing := make(map[string][]string)
	for name, deps := range adjacency {
		for _, dep := range deps {
			if _, exists := adjacency[dep]; !exists {
				missing[name] = append(missing[name], dep)
			}
		}
	}
	for name := range missing {
		sort.Strings(missing[name])
	}
	return missing
}
