package graph

import (
	"fmt"
	"strings"
)

// CircularDependencyError is returned when no valid order exists.
type CircularDependencyError struct {
	// Entities holds the entities left unplaced, in input order.
	Entities []string
}

// Error implements the error interface.
func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("tabula: circular dependency between: %s", strings.Join(e.Entities, ", "))
}

// Sort returns nodes ordered so that each node follows its dependencies,
// as reported by deps. Self-references and dependencies outside nodes are
// ignored, and duplicate dependencies count once. Nodes are expected to be
// unique; repeated nodes are kept once, at their first position.
func Sort[K ~string](nodes []K, deps func(K) []K) ([]K, error) {
	index := make(map[K]int, len(nodes))
	uniq := make([]K, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := index[n]; ok {
			continue
		}
		index[n] = len(uniq)
		uniq = append(uniq, n)
	}
	var (
		indegree   = make([]int, len(uniq))
		dependents = make([][]int, len(uniq))
	)
	for i, n := range uniq {
		seen := make(map[int]bool)
		for _, d := range deps(n) {
			j, ok := index[d]
			if !ok || j == i || seen[j] {
				continue
			}
			seen[j] = true
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}
	var (
		sorted = make([]K, 0, len(uniq))
		placed = make([]bool, len(uniq))
	)
	// Ties are broken by input order: each pass takes the first ready node.
	for len(sorted) < len(uniq) {
		next := -1
		for i := range uniq {
			if !placed[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}
		placed[next] = true
		sorted = append(sorted, uniq[next])
		for _, j := range dependents[next] {
			indegree[j]--
		}
	}
	if len(sorted) < len(uniq) {
		err := &CircularDependencyError{}
		for i, n := range uniq {
			if !placed[i] {
				err.Entities = append(err.Entities, string(n))
			}
		}
		return nil, err
	}
	return sorted, nil
}
