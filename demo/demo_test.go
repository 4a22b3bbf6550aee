package demo

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/rendercache/audio"
	"github.com/xaionaro-go/rendercache/graph"
	"github.com/xaionaro-go/rendercache/texture"
	"github.com/xaionaro-go/rendercache/types"
)

func instanceCtx(format types.PixelFormat) context.Context {
	return texture.CtxWithInstance(context.Background(), &texture.Instance{
		GPU:    texture.NewSoftwareContext(),
		Width:  4,
		Height: 4,
		Format: format,
	})
}

func TestGradientRendersAndMemoizes(t *testing.T) {
	ctx := instanceCtx(types.PixelFormatRGBA8)
	g := NewGradient()
	r := types.TimeRangeAt(types.NewRational(1, 24))

	table, err := g.Value(ctx, r)
	require.NoError(t, err)
	tex, ok := table.Take(graph.ValueTypeTexture).(*texture.Texture)
	require.True(t, ok)

	// a repeated evaluation returns the very same texture
	table, err = g.Value(ctx, r)
	require.NoError(t, err)
	require.Same(t, tex, table.Take(graph.ValueTypeTexture))

	// the memo even serves evaluations without a render instance
	table, err = g.Value(context.Background(), r)
	require.NoError(t, err)
	require.Same(t, tex, table.Take(graph.ValueTypeTexture))

	// but an instance-less evaluation of an unrendered time has no content
	table, err = g.Value(context.Background(), types.TimeRangeAt(types.NewRational(2, 24)))
	require.NoError(t, err)
	require.True(t, table.IsEmpty())
}

func TestBlurProducesATexture(t *testing.T) {
	ctx := instanceCtx(types.PixelFormatRGBA8)
	b := NewBlur(NewGradient(), 2)
	r := types.TimeRangeAt(types.NewRational(0, 1))

	table, err := b.Value(ctx, r)
	require.NoError(t, err)
	tex, ok := table.Take(graph.ValueTypeTexture).(*texture.Texture)
	require.True(t, ok)
	require.Equal(t, 4, tex.Width)
	require.Equal(t, 4, tex.Height)
}

func TestStackTopLayerWins(t *testing.T) {
	ctx := instanceCtx(types.PixelFormatRGBA8)
	bottom := NewGradient()
	top := NewGradient()
	s := NewStack(bottom, top)
	r := types.TimeRangeAt(types.NewRational(0, 1))

	table, err := s.Value(ctx, r)
	require.NoError(t, err)
	tex := table.Take(graph.ValueTypeTexture)

	topTable, err := top.Value(ctx, r)
	require.NoError(t, err)
	require.Same(t, topTable.Take(graph.ValueTypeTexture), tex)
}

func TestToneIsAContinuousWave(t *testing.T) {
	params := audio.Params{
		SampleRate: 8000,
		Channels:   1,
		Format:     audio.SampleFormatS16,
	}
	tone := NewTone(params, 440)

	first, err := tone.Value(context.Background(), types.NewTimeRange(
		types.NewRational(0, 1), types.NewRational(1, 2),
	))
	require.NoError(t, err)
	second, err := tone.Value(context.Background(), types.NewTimeRange(
		types.NewRational(1, 2), types.NewRational(1, 1),
	))
	require.NoError(t, err)

	whole, err := tone.Value(context.Background(), types.NewTimeRange(
		types.NewRational(0, 1), types.NewRational(1, 1),
	))
	require.NoError(t, err)

	a := first.Take(graph.ValueTypeSamples).([]byte)
	b := second.Take(graph.ValueTypeSamples).([]byte)
	w := whole.Take(graph.ValueTypeSamples).([]byte)

	// rendering in two halves must equal rendering in one piece
	require.Equal(t, w, append(append([]byte{}, a...), b...))

	// and it is not silence
	silent := true
	for i := 0; i+1 < len(w); i += 2 {
		if int16(binary.LittleEndian.Uint16(w[i:])) != 0 {
			silent = false
			break
		}
	}
	require.False(t, silent)
}
