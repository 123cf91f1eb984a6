package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/stagegraph"
)

// stageValue is a pflag.Value accepting a stage key or label.
type stageValue struct {
	graph *stagegraph.Graph
	stage *domain.Stage
}

var _ pflag.Value = (*stageValue)(nil)

func newStageValue(graph *stagegraph.Graph, target *domain.Stage, def domain.Stage) *stageValue {
	*target = def
	return &stageValue{graph: graph, stage: target}
}

func (v *stageValue) String() string {
	if v.stage == nil {
		return ""
	}
	return string(*v.stage)
}

func (v *stageValue) Set(s string) error {
	stage, ok := v.graph.Lookup(s)
	if !ok {
		keys := make([]string, 0)
		for _, st := range v.graph.Stages() {
			keys = append(keys, string(st))
		}
		return fmt.Errorf("unknown stage %q (valid: %s)", s, strings.Join(keys, ", "))
	}
	*v.stage = stage
	return nil
}

func (v *stageValue) Type() string { return "stage" }

// stageFlag registers --stage on flags.
func stageFlag(flags *pflag.FlagSet, graph *stagegraph.Graph, target *domain.Stage, def domain.Stage, usage string) {
	flags.VarP(newStageValue(graph, target, def), "stage", "s", usage)
}
