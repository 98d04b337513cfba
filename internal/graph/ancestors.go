package graph

import "github.com/refnlabs/refbuild/internal/errors"

// Ancestors computes the set of nodes whose build output depends, directly or
// transitively, on any of the start identifiers: the must-rebuild closure.
//
// Unlike TopoSort, this operation requires valid inputs: any start identifier
// absent from the graph is an UnknownIdentifier error, because callers seed it
// with files they just confirmed to exist.
//
// The returned sequence is the full topological order restricted to the
// closure, so every ancestor's own in-closure dependencies appear before it.
// With includeStarts false the start identifiers are excluded from the result
// even though they root the traversal; with true they appear at their correct
// topological position.
func Ancestors(adjacency map[string][]string, starts []string, includeStarts bool) ([]string, *errors.FileError) {
	for _, start := range starts {
		if _, exists := adjacency[start]; !exists {
			return nil, errors.NewUnknownIdentifier(start)
		}
	}

	reverse := reverseAdjacency(adjacency)

	// BFS backward over dependency edges from the start set.
	closure := make(map[string]bool, len(starts))
	queue := make([]string, 0, len(starts))
	for _, start := range starts {
		if !closure[start] {
			closure[start] = true
			queue = append(queue, start)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dependent := range reverse[current] {
			if !closure[dependent] {
				closure[dependent] = true
				queue = append(queue, dependent)
			}
		}
	}

	startSet := make(map[string]bool, len(starts))
	for _, start := range starts {
		startSet[start] = true
	}

	// Restrict the full sort to the closure rather than re-sorting the
	// subset, so subset order always agrees with full-plan order.
	full := TopoSort(adjacency)
	result := make([]string, 0, len(closure))
	for _, name := range full.Order {
		if !closure[name] {
			continue
		}
		if !includeStarts && startSet[name] {
			continue
		}
		result = append(result, name)
	}
	return result, nil
}

// reverseAdjacency derives the reverse edge map from the forward one.
// Repeated edges collapse to a single reverse entry.
func reverseAdjacency(adjacency map[string][]string) map[string][]string {
	reverse := make(map[string][]string, len(adjacency))
	for name := range adjacency {
		reverse[name] = []string{}
	}
	for name, deps := range adjacency {
		seen := make(map[string]bool, len(deps))
		for _, dep := range deps {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			if _, exists := reverse[dep]; exists {
				reverse[dep] = append(reverse[dep], name)
			}
		}
	}
	return reverse
}
