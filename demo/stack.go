package demo

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaionaro-go/rendercache/graph"
	"github.com/xaionaro-go/rendercache/logger"
	"github.com/xaionaro-go/rendercache/types"
)

// Stack merges multiple layers into one value table; a later layer
// shadows an earlier one of the same value type, so the topmost layer
// with content wins.
//
// Before evaluating anything itself, Stack announces every layer but
// the first as a sibling dependency. When the pipeline has idle
// workers they pick the layers up and warm them concurrently; the
// in-order evaluation below then finds them memoized.
type Stack struct {
	Layers []graph.Node
}

var _ graph.Node = (*Stack)(nil)

func NewStack(layers ...graph.Node) *Stack {
	return &Stack{Layers: layers}
}

func (s *Stack) String() string {
	names := make([]string, 0, len(s.Layers))
	for _, l := range s.Layers {
		names = append(names, l.String())
	}
	return fmt.Sprintf("Stack(%s)", strings.Join(names, ", "))
}

func (s *Stack) Value(
	ctx context.Context,
	r types.TimeRange,
) (_ret graph.ValueTable, _err error) {
	logger.Tracef(ctx, "Value: %s", r)
	defer func() { logger.Tracef(ctx, "/Value: %s: %v", r, _err) }()

	for _, layer := range s.Layers[1:] {
		graph.RequestSibling(ctx, graph.Dependency{Node: layer, Range: r})
	}

	tables := make([]graph.ValueTable, 0, len(s.Layers))
	for _, layer := range s.Layers {
		table, err := layer.Value(ctx, r)
		if err != nil {
			return graph.ValueTable{}, fmt.Errorf("unable to evaluate %s: %w", layer, err)
		}
		tables = append(tables, table)
	}
	return graph.Merge(tables...), nil
}
