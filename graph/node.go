// Package graph defines the dependency-evaluation interface the
// render core consumes. The actual node graph (decoders, effects,
// transforms) lives behind Node; the core only ever asks a node for
// its value over a time range.
package graph

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/rendercache/types"
)

// Node is a single evaluatable unit of the timeline graph.
//
// Value must be safe to call concurrently for independent requests.
// An empty table with a nil error means "no content at this time";
// it is not a failure.
type Node interface {
	fmt.Stringer
	Value(ctx context.Context, r types.TimeRange) (ValueTable, error)
}

// Dependency is a "evaluate this node over this range" request.
type Dependency struct {
	Node  Node
	Range types.TimeRange
}

func (d Dependency) String() string {
	if d.Node == nil {
		return fmt.Sprintf("Dependency<nil %s>", d.Range)
	}
	return fmt.Sprintf("Dependency<%s %s>", d.Node, d.Range)
}
