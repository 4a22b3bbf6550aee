// Package demo contains small self-contained graph nodes used by the
// demo binary and the tests: a procedural video source, a CPU blur
// effect, a compositing stack and an audio tone source. They are not
// part of the render core; they exist to exercise it end to end.
package demo

import (
	"context"
	"fmt"
	"math"

	"github.com/xaionaro-go/rendercache/graph"
	"github.com/xaionaro-go/rendercache/logger"
	"github.com/xaionaro-go/rendercache/texture"
	"github.com/xaionaro-go/rendercache/types"
	"github.com/xaionaro-go/xsync"
)

// Gradient is a procedural video source: a vertical gradient whose
// phase advances with time, so every frame time produces a distinct
// image.
//
// The last rendered frame is memoized per time range, which makes a
// repeated evaluation (a follow-up value fetch, a sibling warm-up)
// free.
type Gradient struct {
	Locker xsync.Mutex

	memoRange   types.TimeRange
	memoTexture *texture.Texture
}

var _ graph.Node = (*Gradient)(nil)

func NewGradient() *Gradient {
	return &Gradient{}
}

func (g *Gradient) String() string {
	return "Gradient"
}

func (g *Gradient) Value(
	ctx context.Context,
	r types.TimeRange,
) (_ret graph.ValueTable, _err error) {
	logger.Tracef(ctx, "Value: %s", r)
	defer func() { logger.Tracef(ctx, "/Value: %s: %v", r, _err) }()

	return xsync.DoR2(ctx, &g.Locker, func() (graph.ValueTable, error) {
		var table graph.ValueTable

		if g.memoTexture != nil && g.memoRange == r {
			table.Push(graph.ValueTypeTexture, g.memoTexture)
			return table, nil
		}

		instance := texture.InstanceFromCtx(ctx)
		if instance == nil {
			// not on a render worker and nothing memoized
			return table, nil
		}

		tex, err := instance.NewTexture(ctx)
		if err != nil {
			return table, fmt.Errorf("unable to allocate a texture: %w", err)
		}
		if err := g.render(tex, instance, r.In.Float64()); err != nil {
			return table, err
		}

		g.memoRange = r
		g.memoTexture = tex
		table.Push(graph.ValueTypeTexture, tex)
		return table, nil
	})
}

func (g *Gradient) render(tex *texture.Texture, instance *texture.Instance, t float64) error {
	data := make([]byte, tex.Size())
	for y := 0; y < instance.Height; y++ {
		v := float64(y) / float64(max(instance.Height-1, 1))
		red := 0.5 + 0.5*math.Sin(2*math.Pi*(v+t))
		green := 0.5 + 0.5*math.Sin(2*math.Pi*(v+t)+2*math.Pi/3)
		blue := 0.5 + 0.5*math.Sin(2*math.Pi*(v+t)+4*math.Pi/3)
		for x := 0; x < instance.Width; x++ {
			switch instance.Format {
			case types.PixelFormatRGBA8:
				off := (y*instance.Width + x) * 4
				data[off+0] = uint8(red * 0xff)
				data[off+1] = uint8(green * 0xff)
				data[off+2] = uint8(blue * 0xff)
				data[off+3] = 0xff
			case types.PixelFormatRGBA16:
				off := (y*instance.Width + x) * 8
				putUint16BE(data[off+0:], uint16(red*0xffff))
				putUint16BE(data[off+2:], uint16(green*0xffff))
				putUint16BE(data[off+4:], uint16(blue*0xffff))
				putUint16BE(data[off+6:], 0xffff)
			}
		}
	}
	return tex.Upload(context.Background(), data)
}

func putUint16BE(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}
