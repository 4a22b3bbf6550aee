package demo

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xaionaro-go/rendercache/audio"
	"github.com/xaionaro-go/rendercache/graph"
	"github.com/xaionaro-go/rendercache/logger"
	"github.com/xaionaro-go/rendercache/types"
)

// Tone is a procedural audio source: a sine wave of a fixed frequency,
// rendered as signed 16-bit interleaved sample frames.
type Tone struct {
	Params    audio.Params
	Frequency float64
	Amplitude float64
}

var _ graph.Node = (*Tone)(nil)

func NewTone(params audio.Params, frequency float64) *Tone {
	return &Tone{
		Params:    params,
		Frequency: frequency,
		Amplitude: 0.5,
	}
}

func (t *Tone) String() string {
	return fmt.Sprintf("Tone(%.0fHz)", t.Frequency)
}

func (t *Tone) Value(
	ctx context.Context,
	r types.TimeRange,
) (_ret graph.ValueTable, _err error) {
	logger.Tracef(ctx, "Value: %s", r)
	defer func() { logger.Tracef(ctx, "/Value: %s: %v", r, _err) }()

	var table graph.ValueTable
	if t.Params.Format != audio.SampleFormatS16 {
		return table, fmt.Errorf("unsupported sample format: %s", t.Params.Format)
	}

	sampleCount := t.Params.TimeToSamples(r.Length())
	firstSample := t.Params.TimeToSamples(r.In)
	buf := make([]byte, t.Params.SamplesToBytes(sampleCount))
	for i := 0; i < sampleCount; i++ {
		phase := 2 * math.Pi * t.Frequency *
			float64(firstSample+i) / float64(t.Params.SampleRate)
		v := int16(t.Amplitude * math.Sin(phase) * math.MaxInt16)
		for ch := 0; ch < t.Params.Channels; ch++ {
			off := (i*t.Params.Channels + ch) * 2
			binary.LittleEndian.PutUint16(buf[off:], uint16(v))
		}
	}

	table.Push(graph.ValueTypeSamples, buf)
	return table, nil
}
