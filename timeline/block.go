// Package timeline models tracks and the blocks placed on them. A
// block is a unit of content with its own [In, Out) span on the
// track's time axis, independent of the media it plays.
package timeline

import (
	"fmt"

	"github.com/xaionaro-go/rendercache/graph"
	"github.com/xaionaro-go/rendercache/types"
)

// Block is a timeline-placed piece of content. Node is the graph
// entry point that decodes/renders the block's media.
//
// MediaLength is the nominal length of the underlying media; when it
// differs from the placed length (Out-In), the block plays at
// non-1x speed and Speed holds the playback rate.
type Block struct {
	Node        graph.Node
	In          types.Rational
	Out         types.Rational
	MediaLength types.Rational
	Speed       float64
	Reversed    bool
}

func NewBlock(node graph.Node, in, out types.Rational) *Block {
	return &Block{
		Node:        node,
		In:          in,
		Out:         out,
		MediaLength: out.Sub(in),
		Speed:       1,
	}
}

func (b *Block) Length() types.Rational {
	return b.Out.Sub(b.In)
}

func (b *Block) Range() types.TimeRange {
	return types.NewTimeRange(b.In, b.Out)
}

// GetObjectID identifies the block in logs; blocks have no names and
// one node may back several of them.
func (b *Block) GetObjectID() types.ObjectID {
	return types.GetObjectID(b)
}

func (b *Block) String() string {
	return fmt.Sprintf("Block<%X: %s @%s>", b.GetObjectID(), b.Node, b.Range())
}
