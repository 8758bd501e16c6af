// Package graph turns a workflow's flat node and edge lists into a
// validated, traversable structure with a deterministic execution order.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hookline/hookline/pkg/models"
)

var (
	ErrNoTrigger        = errors.New("workflow has no trigger node")
	ErrMultipleTriggers = errors.New("workflow has more than one trigger node")
	ErrUnknownEndpoint  = errors.New("edge references a node not present in the workflow")
	ErrCycle            = errors.New("workflow edges form a cycle reachable from the trigger")
)

// InvalidGraphError reports why a node/edge list cannot be executed. It is
// raised before any dispatch is attempted.
type InvalidGraphError struct {
	Reason string
	Err    error
}

func (e *InvalidGraphError) Error() string {
	return fmt.Sprintf("invalid workflow graph: %s", e.Reason)
}

func (e *InvalidGraphError) Unwrap() error {
	return e.Err
}

// IsInvalidGraph checks whether err originated from graph validation.
func IsInvalidGraph(err error) bool {
	var target *InvalidGraphError

	return errors.As(err, &target)
}

// Graph is an immutable, validated view of a workflow. All traversal
// results are computed at build time; methods have no side effects.
type Graph struct {
	trigger  *models.Node
	actions  []*models.Node
	warnings []string
}

// Build validates nodes and edges and computes the execution order. It
// fails if there is no trigger node, more than one trigger node, an edge
// references a missing node, a reachable action node's metadata is
// incomplete for its kind, or the reachable edges form a cycle.
//
// Action nodes unreachable from the trigger are excluded from the order
// and reported as warnings, not errors.
func Build(nodes []*models.Node, edges []*models.Edge) (*Graph, error) {
	byID := make(map[string]*models.Node, len(nodes))

	var trigger *models.Node

	for _, node := range nodes {
		byID[node.ID] = node

		if node.IsTrigger() {
			if trigger != nil {
				return nil, &InvalidGraphError{
					Reason: fmt.Sprintf("trigger nodes %q and %q conflict", trigger.ID, node.ID),
					Err:    ErrMultipleTriggers,
				}
			}

			trigger = node
		}
	}

	if trigger == nil {
		return nil, &InvalidGraphError{Reason: "no trigger node", Err: ErrNoTrigger}
	}

	successors := make(map[string][]string, len(nodes))

	for _, edge := range edges {
		if _, ok := byID[edge.Source]; !ok {
			return nil, &InvalidGraphError{
				Reason: fmt.Sprintf("edge %q source %q does not exist", edge.ID, edge.Source),
				Err:    ErrUnknownEndpoint,
			}
		}

		if _, ok := byID[edge.Target]; !ok {
			return nil, &InvalidGraphError{
				Reason: fmt.Sprintf("edge %q target %q does not exist", edge.ID, edge.Target),
				Err:    ErrUnknownEndpoint,
			}
		}

		successors[edge.Source] = append(successors[edge.Source], edge.Target)
	}

	reachable := reachableFrom(trigger.ID, successors)

	ordered, err := topologicalOrder(trigger.ID, reachable, successors)
	if err != nil {
		return nil, err
	}

	graph := &Graph{trigger: trigger}

	for _, id := range ordered {
		node := byID[id]
		if node.IsTrigger() {
			continue
		}

		if metaErr := node.Metadata.ValidateForKind(node.Kind); metaErr != nil {
			return nil, &InvalidGraphError{
				Reason: fmt.Sprintf("node %q: %v", node.ID, metaErr),
				Err:    metaErr,
			}
		}

		graph.actions = append(graph.actions, node)
	}

	for _, node := range nodes {
		if node.IsTrigger() || reachable[node.ID] {
			continue
		}

		graph.warnings = append(graph.warnings,
			fmt.Sprintf("node %q is not reachable from the trigger and will not execute", node.ID))
	}

	sort.Strings(graph.warnings)

	return graph, nil
}

// Trigger returns the single trigger node.
func (g *Graph) Trigger() *models.Node {
	return g.trigger
}

// OrderedActionNodes returns all reachable action nodes in an order
// consistent with edge causality. Siblings with no ordering constraint
// are sorted by ascending node ID so repeated loads of the same input
// produce identical sequences.
func (g *Graph) OrderedActionNodes() []*models.Node {
	return g.actions
}

// Warnings lists non-fatal findings from the build, such as unreachable
// nodes.
func (g *Graph) Warnings() []string {
	return g.warnings
}

// CredentialKinds returns the distinct credential kinds required by the
// ordered action nodes, sorted for determinism.
func (g *Graph) CredentialKinds() []models.CredentialKind {
	seen := make(map[models.CredentialKind]bool)

	var kinds []models.CredentialKind

	for _, node := range g.actions {
		kind, ok := models.CredentialKindFor(node.Kind)
		if !ok || seen[kind] {
			continue
		}

		seen[kind] = true

		kinds = append(kinds, kind)
	}

	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	return kinds
}

func reachableFrom(start string, successors map[string][]string) map[string]bool {
	reachable := map[string]bool{start: true}
	frontier := []string{start}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		for _, next := range successors[current] {
			if reachable[next] {
				continue
			}

			reachable[next] = true

			frontier = append(frontier, next)
		}
	}

	return reachable
}

// topologicalOrder runs Kahn's algorithm over the reachable subgraph,
// always popping the smallest ready node ID.
func topologicalOrder(start string, reachable map[string]bool, successors map[string][]string) ([]string, error) {
	indegree := make(map[string]int, len(reachable))
	for id := range reachable {
		indegree[id] = 0
	}

	for source, targets := range successors {
		if !reachable[source] {
			continue
		}

		for _, target := range targets {
			if reachable[target] {
				indegree[target]++
			}
		}
	}

	var ready []string

	for id, degree := range indegree {
		if degree == 0 {
			ready = append(ready, id)
		}
	}

	sort.Strings(ready)

	ordered := make([]string, 0, len(reachable))

	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		ordered = append(ordered, current)

		inserted := false

		for _, next := range successors[current] {
			if !reachable[next] {
				continue
			}

			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
				inserted = true
			}
		}

		if inserted {
			sort.Strings(ready)
		}
	}

	if len(ordered) != len(reachable) {
		return nil, &InvalidGraphError{
			Reason: fmt.Sprintf("%d node(s) reachable from %q are part of a cycle", len(reachable)-len(ordered), start),
			Err:    ErrCycle,
		}
	}

	return ordered, nil
}
