// Package graph builds the save-order dependency graph over entity
// types. Relationship declarations and their delete behaviors induce
// directed edges between types; a topological sort of the (required
// acyclic) graph fixes the order in which a save pass may finalize
// each type.
package graph

import (
	"fmt"
	"strings"

	"github.com/burrowdb/burrow/schema"
	"github.com/burrowdb/burrow/schema/edge"
)

// CycleError reports that the relationship declarations close a
// dependency loop. Path holds the full cycle, first type repeated at
// the end.
type CycleError struct {
	Path []string
}

// Error returns the error string with the complete cycle path.
func (e *CycleError) Error() string {
	return fmt.Sprintf("burrow: dependency cycle: %s", strings.Join(e.Path, " → "))
}

// Graph is a directed graph over entity types. An edge from → to means
// "to must be finalized before from".
type Graph struct {
	nodes []*schema.Type
	out   map[*schema.Type][]*schema.Type
}

// Build derives the dependency graph from all relationship
// declarations in the registry:
//
//   - M2O: the declaring side depends on the referenced type.
//   - O2M: the related ("many") side depends on the declaring type.
//   - O2O with Cascade or SetNull: the related side depends on the
//     declaring (owning) side.
//   - O2O with Orphan: no edge, the orphan sweep handles cleanup.
//   - M2M with Cascade: the related side depends on the declaring side.
//   - M2M with NoAction: no edge, junction rows are order independent.
func Build(reg *schema.Registry) *Graph {
	g := &Graph{
		nodes: reg.Types(),
		out:   make(map[*schema.Type][]*schema.Type),
	}
	for _, t := range reg.Types() {
		for _, rel := range t.Edges {
			switch rel.Rel {
			case edge.M2O:
				g.addEdge(t, rel.Type)
			case edge.O2M:
				g.addEdge(rel.Type, t)
			case edge.O2O:
				if rel.OnDelete == edge.Cascade || rel.OnDelete == edge.SetNull {
					g.addEdge(rel.Type, t)
				}
			case edge.M2M:
				if rel.OnDelete == edge.Cascade {
					g.addEdge(rel.Type, t)
				}
			}
		}
	}
	return g
}

func (g *Graph) addEdge(from, to *schema.Type) {
	if from == to {
		return
	}
	for _, existing := range g.out[from] {
		if existing == to {
			return
		}
	}
	g.out[from] = append(g.out[from], to)
}

type color int

const (
	white color = iota // unvisited
	grey               // on the current DFS stack
	black              // done
)

// Sort returns the types in dependency-first order: whenever an edge
// from → to exists, to precedes from. A cycle yields a *CycleError
// carrying the full path.
func (g *Graph) Sort() ([]*schema.Type, error) {
	state := make(map[*schema.Type]color, len(g.nodes))
	var order []*schema.Type
	var stack []*schema.Type

	var visit func(t *schema.Type) error
	visit = func(t *schema.Type) error {
		switch state[t] {
		case black:
			return nil
		case grey:
			return cycleError(stack, t)
		}
		state[t] = grey
		stack = append(stack, t)
		for _, dep := range g.out[t] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[t] = black
		order = append(order, t)
		return nil
	}

	for _, t := range g.nodes {
		if err := visit(t); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func cycleError(stack []*schema.Type, repeat *schema.Type) *CycleError {
	start := 0
	for i, t := range stack {
		if t == repeat {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	for _, t := range stack[start:] {
		path = append(path, t.Name)
	}
	path = append(path, repeat.Name)
	return &CycleError{Path: path}
}
