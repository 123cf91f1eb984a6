// Package stagegraph describes the chapter pipeline topology: which stages
// may start a pipeline, which stages they fork into, the linear successor of
// each stage, join pairs, and the terminal stage.
package stagegraph

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/alexanderramin/scanflow/internal/domain"
)

var stageKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Node declares one stage and its outgoing edges.
type Node struct {
	Stage domain.Stage `yaml:"stage"`
	Label string       `yaml:"label,omitempty"`
	// Entry marks a stage that may be chosen when registering chapters.
	Entry bool `yaml:"entry,omitempty"`
	// Forks are created alongside an entry stage at intake.
	Forks []domain.Stage `yaml:"forks,omitempty"`
	// Next is the successor created when this stage completes. For join
	// stages it is the shared successor.
	Next domain.Stage `yaml:"next,omitempty"`
	// JoinWith names the partner that must also be done before Next is created.
	JoinWith domain.Stage `yaml:"join_with,omitempty"`
	Terminal bool         `yaml:"terminal,omitempty"`
}

// Definition is the serialisable form of a Graph.
type Definition struct {
	Stages []Node `yaml:"stages"`
}

// DefaultDefinition returns the built-in topology:
//
//	translate --(fork)--> clean
//	translate --> edit
//	clean + edit --(join)--> typeset --> review (terminal)
func DefaultDefinition() Definition {
	return Definition{Stages: []Node{
		{Stage: domain.StageTranslate, Label: "Translate", Entry: true, Forks: []domain.Stage{domain.StageClean}, Next: domain.StageEdit},
		{Stage: domain.StageClean, Label: "Clean", Entry: true, JoinWith: domain.StageEdit, Next: domain.StageTypeset},
		{Stage: domain.StageEdit, Label: "Edit", JoinWith: domain.StageClean, Next: domain.StageTypeset},
		{Stage: domain.StageTypeset, Label: "Typeset", Next: domain.StageReview},
		{Stage: domain.StageReview, Label: "Review", Terminal: true},
	}}
}

// Normalized trims keys and labels and validates the result.
func (def Definition) Normalized() (Definition, error) {
	out := Definition{Stages: make([]Node, len(def.Stages))}
	for i, n := range def.Stages {
		n.Stage = domain.Stage(strings.TrimSpace(string(n.Stage)))
		n.Label = strings.TrimSpace(n.Label)
		n.Next = domain.Stage(strings.TrimSpace(string(n.Next)))
		n.JoinWith = domain.Stage(strings.TrimSpace(string(n.JoinWith)))
		if len(n.Forks) > 0 {
			forks := make([]domain.Stage, len(n.Forks))
			for j, f := range n.Forks {
				forks[j] = domain.Stage(strings.TrimSpace(string(f)))
			}
			n.Forks = forks
		}
		if n.Label == "" {
			n.Label = defaultLabel(n.Stage)
		}
		out.Stages[i] = n
	}
	if err := out.Validate(); err != nil {
		return Definition{}, err
	}
	return out, nil
}

// Validate ensures the definition describes a well-formed pipeline.
func (def Definition) Validate() error {
	if len(def.Stages) == 0 {
		return fmt.Errorf("stagegraph: at least one stage is required")
	}
	nodes := make(map[domain.Stage]Node, len(def.Stages))
	names := map[string]domain.Stage{}
	for idx, n := range def.Stages {
		if !stageKeyPattern.MatchString(string(n.Stage)) {
			return fmt.Errorf("stagegraph: stage[%d]: invalid key %q", idx, n.Stage)
		}
		if _, dup := nodes[n.Stage]; dup {
			return fmt.Errorf("stagegraph: duplicate stage %s", n.Stage)
		}
		nodes[n.Stage] = n
		for _, name := range []string{string(n.Stage), n.Label} {
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if other, taken := names[key]; taken && other != n.Stage {
				return fmt.Errorf("stagegraph: name %q is used by both %s and %s", name, other, n.Stage)
			}
			names[key] = n.Stage
		}
	}

	var entries, terminals int
	for _, n := range def.Stages {
		if err := n.validateEdges(nodes); err != nil {
			return fmt.Errorf("stagegraph: stage %s: %w", n.Stage, err)
		}
		if n.Entry {
			entries++
		}
		if n.Terminal {
			terminals++
		}
	}
	if entries == 0 {
		return fmt.Errorf("stagegraph: no entry stage declared")
	}
	if terminals == 0 {
		return fmt.Errorf("stagegraph: no terminal stage declared")
	}
	return detectCycle(def.Stages, nodes)
}

func (n Node) validateEdges(nodes map[domain.Stage]Node) error {
	if n.Terminal {
		if n.Next != "" || n.JoinWith != "" {
			return fmt.Errorf("terminal stage cannot have a successor or join partner")
		}
	} else {
		if n.Next == "" {
			return fmt.Errorf("non-terminal stage needs a next stage")
		}
		if n.Next == n.Stage {
			return fmt.Errorf("next stage points to itself")
		}
		if _, ok := nodes[n.Next]; !ok {
			return fmt.Errorf("unknown next stage %s", n.Next)
		}
	}

	if len(n.Forks) > 0 && !n.Entry {
		return fmt.Errorf("only entry stages may fork")
	}
	for i, f := range n.Forks {
		if f == n.Stage {
			return fmt.Errorf("stage forks into itself")
		}
		if _, ok := nodes[f]; !ok {
			return fmt.Errorf("unknown fork stage %s", f)
		}
		if slices.Contains(n.Forks[:i], f) {
			return fmt.Errorf("duplicate fork stage %s", f)
		}
	}

	if n.JoinWith != "" {
		if n.JoinWith == n.Stage {
			return fmt.Errorf("stage joins with itself")
		}
		partner, ok := nodes[n.JoinWith]
		if !ok {
			return fmt.Errorf("unknown join partner %s", n.JoinWith)
		}
		if partner.JoinWith != n.Stage {
			return fmt.Errorf("join with %s is not declared symmetrically", n.JoinWith)
		}
		if partner.Next != n.Next {
			return fmt.Errorf("join partners %s and %s must share the same next stage", n.Stage, partner.Stage)
		}
	}
	return nil
}

func detectCycle(order []Node, nodes map[domain.Stage]Node) error {
	for _, start := range order {
		seen := map[domain.Stage]bool{start.Stage: true}
		cur := start
		for cur.Next != "" {
			if seen[cur.Next] {
				return fmt.Errorf("stagegraph: cycle through %s", cur.Next)
			}
			seen[cur.Next] = true
			cur = nodes[cur.Next]
		}
	}
	return nil
}

func defaultLabel(s domain.Stage) string {
	key := string(s)
	if key == "" {
		return ""
	}
	return strings.ToUpper(key[:1]) + key[1:]
}
