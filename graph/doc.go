// Package graph orders named entities so that every entity comes after the
// entities it depends on.
//
// Tables are ordered by their foreign keys before their CREATE statements
// are emitted:
//
//	order, err := graph.Sort(s.Names(), func(name string) []string {
//		t, _ := s.Table(name)
//		return t.References()
//	})
//
// Sort is deterministic: among entities whose dependencies are all
// satisfied, the one given first in the input comes first. A dependency
// cycle is reported as a *CircularDependencyError naming the entities that
// could not be placed.
package graph
