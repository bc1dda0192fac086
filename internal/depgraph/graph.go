// Package depgraph models prerequisite relationships between document
// types. A Graph is validated once at construction (acyclic, no dangling
// edges) and is immutable afterwards, so it can be shared freely across
// concurrent requests.
package depgraph

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
)

// Node is a document type the orchestrator can be asked to generate.
type Node struct {
	Code                  string `json:"code" yaml:"code"`
	Name                  string `json:"name,omitempty" yaml:"name,omitempty"`
	RequiresEvaluation    bool   `json:"requiresEvaluation" yaml:"requiresEvaluation"`
	RequiresQuestionnaire bool   `json:"requiresQuestionnaire" yaml:"requiresQuestionnaire"`
	IsAvailable           bool   `json:"isAvailable" yaml:"isAvailable"`
}

// Edge declares that DocumentType depends on DependsOn. Edges with
// Required=false are advisory and never block generation.
type Edge struct {
	DocumentType string `json:"documentType" yaml:"documentType"`
	DependsOn    string `json:"dependsOn" yaml:"dependsOn"`
	Required     bool   `json:"required" yaml:"required"`
}

// Result is the outcome of a prerequisite check.
type Result struct {
	Satisfied       bool     `json:"satisfied"`
	MissingRequired []string `json:"missingRequired,omitempty"`
	// Advisory lists soft prerequisites that are not available yet.
	Advisory []string `json:"advisory,omitempty"`
}

// Graph is an immutable, validated DAG over document types.
type Graph struct {
	nodes map[string]Node
	deps  map[string][]Edge // outgoing edges, sorted by DependsOn
	order []string
}

// New builds and validates a Graph. It rejects empty or duplicate codes,
// edges that reference unknown nodes, self loops, duplicate edges and any
// cycle; a cycle is reported as *CycleError.
func New(nodes []Node, edges []Edge) (*Graph, error) {
	g := &Graph{
		nodes: make(map[string]Node, len(nodes)),
		deps:  make(map[string][]Edge, len(nodes)),
	}

	for _, n := range nodes {
		n.Code = strings.TrimSpace(n.Code)
		if n.Code == "" {
			return nil, fmt.Errorf("depgraph: document type code is required")
		}
		if _, dup := g.nodes[n.Code]; dup {
			return nil, fmt.Errorf("depgraph: duplicate document type %q", n.Code)
		}
		g.nodes[n.Code] = n
	}

	type pair struct{ from, to string }
	seen := make(map[pair]bool, len(edges))
	for _, e := range edges {
		e.DocumentType = strings.TrimSpace(e.DocumentType)
		e.DependsOn = strings.TrimSpace(e.DependsOn)
		if _, ok := g.nodes[e.DocumentType]; !ok {
			return nil, fmt.Errorf("depgraph: edge references unknown document type %q", e.DocumentType)
		}
		if _, ok := g.nodes[e.DependsOn]; !ok {
			return nil, fmt.Errorf("depgraph: edge %q -> %q references unknown document type %q",
				e.DocumentType, e.DependsOn, e.DependsOn)
		}
		if e.DocumentType == e.DependsOn {
			return nil, &CycleError{Nodes: []string{e.DocumentType}}
		}
		p := pair{e.DocumentType, e.DependsOn}
		if seen[p] {
			return nil, fmt.Errorf("depgraph: duplicate edge %q -> %q", e.DocumentType, e.DependsOn)
		}
		seen[p] = true
		g.deps[e.DocumentType] = append(g.deps[e.DocumentType], e)
	}
	for code := range g.deps {
		es := g.deps[code]
		sort.Slice(es, func(i, j int) bool { return es[i].DependsOn < es[j].DependsOn })
	}

	order, err := g.topoSort()
	if err != nil {
		return nil, err
	}
	g.order = order
	return g, nil
}

// topoSort runs Kahn's algorithm over the dependency edges so that every
// prerequisite comes before its dependents. Ties are broken by code for a
// deterministic order. Nodes that never reach in-degree zero sit on a cycle.
func (g *Graph) topoSort() ([]string, error) {
	// indeg counts unsatisfied prerequisites per node.
	indeg := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for code := range g.nodes {
		indeg[code] = 0
	}
	for code, es := range g.deps {
		for _, e := range es {
			indeg[code]++
			dependents[e.DependsOn] = append(dependents[e.DependsOn], code)
		}
	}

	var ready []string
	for code, d := range indeg {
		if d == 0 {
			ready = append(ready, code)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		order = append(order, cur)

		var unlocked []string
		for _, dep := range dependents[cur] {
			indeg[dep]--
			if indeg[dep] == 0 {
				unlocked = append(unlocked, dep)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			sort.Strings(ready)
		}
	}

	if len(order) != len(g.nodes) {
		return nil, &CycleError{Nodes: g.cycleMembers(indeg, dependents)}
	}
	return order, nil
}

// cycleMembers narrows the nodes Kahn's algorithm left behind to those on a
// cycle. A leftover node that no other leftover depends on only hangs off a
// cycle; peeling such nodes until none remain leaves the cycles themselves.
func (g *Graph) cycleMembers(indeg map[string]int, dependents map[string][]string) []string {
	left := make(map[string]bool)
	for code, d := range indeg {
		if d > 0 {
			left[code] = true
		}
	}
	// outdeg counts leftover dependents per leftover node.
	outdeg := make(map[string]int, len(left))
	for code := range left {
		for _, dep := range dependents[code] {
			if left[dep] {
				outdeg[code]++
			}
		}
	}

	var leaves []string
	for code := range left {
		if outdeg[code] == 0 {
			leaves = append(leaves, code)
		}
	}
	for len(leaves) > 0 {
		cur := leaves[len(leaves)-1]
		leaves = leaves[:len(leaves)-1]
		delete(left, cur)
		for _, e := range g.deps[cur] {
			if !left[e.DependsOn] {
				continue
			}
			outdeg[e.DependsOn]--
			if outdeg[e.DependsOn] == 0 {
				leaves = append(leaves, e.DependsOn)
			}
		}
	}

	cyclic := make([]string, 0, len(left))
	for code := range left {
		cyclic = append(cyclic, code)
	}
	sort.Strings(cyclic)
	return cyclic
}

// Node returns the node for code.
func (g *Graph) Node(code string) (Node, bool) {
	n, ok := g.nodes[strings.TrimSpace(code)]
	return n, ok
}

// Dependencies returns the outgoing edges of code.
func (g *Graph) Dependencies(code string) []Edge {
	return append([]Edge(nil), g.deps[strings.TrimSpace(code)]...)
}

// TopologicalOrder returns all codes with prerequisites first.
func (g *Graph) TopologicalOrder() []string {
	return append([]string(nil), g.order...)
}

// Len returns the number of document types in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// CheckPrerequisites reports which required prerequisites of documentType
// are absent from available. Only required edges affect Satisfied; missing
// soft prerequisites are listed in Advisory. Prerequisites are direct edges
// only: each document type is expected to have been checked when it was
// itself generated.
func (g *Graph) CheckPrerequisites(documentType string, available map[string]bool) Result {
	res := Result{}
	for _, e := range g.deps[strings.TrimSpace(documentType)] {
		if available[e.DependsOn] {
			continue
		}
		if e.Required {
			res.MissingRequired = append(res.MissingRequired, e.DependsOn)
		} else {
			res.Advisory = append(res.Advisory, e.DependsOn)
		}
	}
	res.Satisfied = len(res.MissingRequired) == 0
	return res
}

// CycleError reports a dependency cycle. It is a configuration error.
type CycleError struct {
	Nodes []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("depgraph: dependency cycle among document types: %s", strings.Join(e.Nodes, ", "))
}

// Holder publishes the current graph to concurrent readers. Swap replaces
// the whole graph at once.
type Holder struct {
	g atomic.Pointer[Graph]
}

// NewHolder returns a Holder publishing g.
func NewHolder(g *Graph) *Holder {
	h := &Holder{}
	h.g.Store(g)
	return h
}

// Graph returns the currently published graph, or nil.
func (h *Holder) Graph() *Graph {
	return h.g.Load()
}

// Swap publishes g.
func (h *Holder) Swap(g *Graph) {
	h.g.Store(g)
}
