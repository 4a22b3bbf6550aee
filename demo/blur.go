package demo

import (
	"context"
	"fmt"

	"github.com/anthonynsimon/bild/blur"
	"github.com/xaionaro-go/rendercache/frame"
	"github.com/xaionaro-go/rendercache/graph"
	"github.com/xaionaro-go/rendercache/logger"
	"github.com/xaionaro-go/rendercache/texture"
	"github.com/xaionaro-go/rendercache/types"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

// Blur is a CPU gaussian-blur effect on top of another video node.
// The radius may be changed concurrently while renders are in flight;
// each evaluation just picks up the current value.
type Blur struct {
	Source graph.Node
	Radius atomic.Float64

	Locker      xsync.Mutex
	memoRange   types.TimeRange
	memoRadius  float64
	memoTexture *texture.Texture
}

var _ graph.Node = (*Blur)(nil)

func NewBlur(source graph.Node, radius float64) *Blur {
	b := &Blur{Source: source}
	b.Radius.Store(radius)
	return b
}

func (b *Blur) String() string {
	return fmt.Sprintf("Blur(%s)", b.Source)
}

func (b *Blur) Value(
	ctx context.Context,
	r types.TimeRange,
) (_ret graph.ValueTable, _err error) {
	logger.Tracef(ctx, "Value: %s", r)
	defer func() { logger.Tracef(ctx, "/Value: %s: %v", r, _err) }()

	radius := b.Radius.Load()
	return xsync.DoR2(ctx, &b.Locker, func() (graph.ValueTable, error) {
		var table graph.ValueTable

		if b.memoTexture != nil && b.memoRange == r && b.memoRadius == radius {
			table.Push(graph.ValueTypeTexture, b.memoTexture)
			return table, nil
		}

		upstream, err := b.Source.Value(ctx, r)
		if err != nil {
			return table, fmt.Errorf("unable to evaluate %s: %w", b.Source, err)
		}
		src, _ := upstream.Take(graph.ValueTypeTexture).(*texture.Texture)
		if src == nil {
			// no content upstream, no content here
			return graph.Merge(upstream, table), nil
		}

		instance := texture.InstanceFromCtx(ctx)
		if instance == nil {
			return table, nil
		}

		f := frame.Pool.Get()
		defer frame.Pool.Put(f)
		if err := src.Download(ctx, f); err != nil {
			return table, fmt.Errorf("unable to download the source texture: %w", err)
		}
		img, err := f.ToImage()
		if err != nil {
			return table, err
		}
		blurred := blur.Gaussian(img, radius)
		if err := f.FromImage(blurred, instance.Format); err != nil {
			return table, err
		}

		tex, err := instance.NewTexture(ctx)
		if err != nil {
			return table, fmt.Errorf("unable to allocate a texture: %w", err)
		}
		if err := tex.Upload(ctx, f.Data); err != nil {
			return table, err
		}

		b.memoRange = r
		b.memoRadius = radius
		b.memoTexture = tex
		table.Push(graph.ValueTypeTexture, tex)
		return graph.Merge(upstream, table), nil
	})
}
