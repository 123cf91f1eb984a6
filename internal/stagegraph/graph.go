package stagegraph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alexanderramin/scanflow/internal/domain"
)

// Graph is an immutable, validated stage topology. It is safe for concurrent use.
type Graph struct {
	order []domain.Stage
	nodes map[domain.Stage]Node
}

// New validates def and builds a Graph from it.
func New(def Definition) (*Graph, error) {
	norm, err := def.Normalized()
	if err != nil {
		return nil, err
	}
	g := &Graph{nodes: make(map[domain.Stage]Node, len(norm.Stages))}
	for _, n := range norm.Stages {
		g.order = append(g.order, n.Stage)
		g.nodes[n.Stage] = n
	}
	return g, nil
}

// Default returns the built-in topology.
func Default() *Graph {
	g, err := New(DefaultDefinition())
	if err != nil {
		panic(fmt.Sprintf("stagegraph: default definition invalid: %v", err))
	}
	return g
}

// Stages returns all stages in declaration order.
func (g *Graph) Stages() []domain.Stage {
	return slices.Clone(g.order)
}

// Has reports whether s is declared in the graph.
func (g *Graph) Has(s domain.Stage) bool {
	_, ok := g.nodes[s]
	return ok
}

// EntryStages returns the stages a pipeline may start from.
func (g *Graph) EntryStages() []domain.Stage {
	var out []domain.Stage
	for _, s := range g.order {
		if g.nodes[s].Entry {
			out = append(out, s)
		}
	}
	return out
}

// EntryForks returns the stages instantiated when a chapter enters the
// pipeline at s: s itself followed by its forks. ok is false when s is not
// an entry stage.
func (g *Graph) EntryForks(s domain.Stage) (stages []domain.Stage, ok bool) {
	n, found := g.nodes[s]
	if !found || !n.Entry {
		return nil, false
	}
	return append([]domain.Stage{s}, n.Forks...), true
}

// SuccessorOf returns the stage created when s completes.
func (g *Graph) SuccessorOf(s domain.Stage) (domain.Stage, bool) {
	n, ok := g.nodes[s]
	if !ok || n.Terminal {
		return "", false
	}
	return n.Next, true
}

// JoinPartner returns the stage that must also be done before the shared
// successor of s is created.
func (g *Graph) JoinPartner(s domain.Stage) (domain.Stage, bool) {
	n, ok := g.nodes[s]
	if !ok || n.JoinWith == "" {
		return "", false
	}
	return n.JoinWith, true
}

// IsTerminal reports whether completing s archives the chapter instead of
// creating a task.
func (g *Graph) IsTerminal(s domain.Stage) bool {
	return g.nodes[s].Terminal
}

// Label returns the display name of s, falling back to the key.
func (g *Graph) Label(s domain.Stage) string {
	if n, ok := g.nodes[s]; ok && n.Label != "" {
		return n.Label
	}
	return string(s)
}

// Lookup resolves user input to a stage by key or label, case-insensitively.
func (g *Graph) Lookup(input string) (domain.Stage, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}
	for _, s := range g.order {
		if strings.EqualFold(string(s), input) || strings.EqualFold(g.nodes[s].Label, input) {
			return s, true
		}
	}
	return "", false
}

// Definition returns the serialisable form of the graph.
func (g *Graph) Definition() Definition {
	def := Definition{Stages: make([]Node, 0, len(g.order))}
	for _, s := range g.order {
		n := g.nodes[s]
		n.Forks = slices.Clone(n.Forks)
		def.Stages = append(def.Stages, n)
	}
	return def
}

// WithLabels returns a copy of g whose labels are overridden by labels,
// keyed by stage key. Unknown keys are an error.
func (g *Graph) WithLabels(labels map[string]string) (*Graph, error) {
	if len(labels) == 0 {
		return g, nil
	}
	def := g.Definition()
	for key, label := range labels {
		idx := slices.Index(g.order, domain.Stage(key))
		if idx < 0 {
			return nil, fmt.Errorf("stagegraph: label for unknown stage %q", key)
		}
		def.Stages[idx].Label = label
	}
	return New(def)
}
