package audio

import (
	"context"
	"math"

	"github.com/xaionaro-go/rendercache/graph"
	"github.com/xaionaro-go/rendercache/logger"
	"github.com/xaionaro-go/rendercache/timeline"
	"github.com/xaionaro-go/rendercache/types"
)

// Mixer renders a track's audio over a time range into one
// continuous sample buffer.
type Mixer struct {
	Params Params
}

func NewMixer(params Params) *Mixer {
	return &Mixer{Params: params}
}

// RenderBlock evaluates every block overlapping r, stretches and
// reverses each block's samples as the block demands, and copies the
// result into a single buffer at the block's offset. Gaps stay
// silent. The mixed buffer is pushed as the samples entry of the
// returned table; side-channel values from the blocks are merged in
// evaluation order.
func (m *Mixer) RenderBlock(
	ctx context.Context,
	track *timeline.Track,
	r types.TimeRange,
) (_ret graph.ValueTable, _err error) {
	logger.Tracef(ctx, "RenderBlock: %s %s", track, r)
	defer func() { logger.Tracef(ctx, "/RenderBlock: %s %s: %v", track, r, _err) }()

	activeBlocks := track.BlocksAtTimeRange(ctx, r)

	// All these blocks will output into one shared buffer:
	blockRangeBuffer := make([]byte, m.Params.TimeToBytes(r.Length()))

	var mergedTable graph.ValueTable

	for _, b := range activeBlocks {
		rangeForBlock := r.Intersect(b.Range())
		if !rangeForBlock.In.Less(rangeForBlock.Out) {
			// zero-length after clipping, contributes nothing
			continue
		}

		table, err := b.Node.Value(ctx, rangeForBlock)
		if err != nil {
			logger.Errorf(ctx, "unable to evaluate %s over %s: %v", b, rangeForBlock, err)
			continue
		}

		samplesFromThisBlock, _ := table.Take(graph.ValueTypeSamples).([]byte)
		destinationOffset := m.Params.TimeToBytes(rangeForBlock.In.Sub(r.In))
		maximumCopySize := m.Params.TimeToBytes(rangeForBlock.Length())
		copiedSize := 0

		if len(samplesFromThisBlock) > 0 {
			// a block built by struct literal carries no MediaLength
			// and a zero Speed; both mean "unstretched"
			if b.Speed > 0 && !b.MediaLength.IsNull() && !b.MediaLength.Equal(b.Length()) {
				samplesFromThisBlock = m.stretchSamples(samplesFromThisBlock, b.Speed)
			}

			if b.Reversed {
				m.reverseSampleFrames(samplesFromThisBlock)
			}

			copiedSize = copy(
				blockRangeBuffer[destinationOffset:destinationOffset+maximumCopySize],
				samplesFromThisBlock,
			)
		}

		if copiedSize < maximumCopySize {
			zeroFill(blockRangeBuffer[destinationOffset+copiedSize : destinationOffset+maximumCopySize])
		}

		mergedTable = graph.Merge(mergedTable, table)
	}

	mergedTable.Push(graph.ValueTypeSamples, blockRangeBuffer)
	return mergedTable, nil
}

// stretchSamples resamples by stepping a fractional source index by
// `speed` and flooring it each step: a nearest/decimation resampler.
// The exact formula is load-bearing, do not replace it with an
// interpolating one.
func (m *Mixer) stretchSamples(samples []byte, speed float64) []byte {
	if speed <= 0 {
		return samples
	}
	sampleCount := m.Params.BytesToSamples(len(samples))
	frameSize := m.Params.SamplesToBytes(1)

	speedAdjustedSamples := make([]byte, 0, len(samples))
	for i := 0.0; i < float64(sampleCount); i += speed {
		sampleIndex := int(math.Floor(i))
		byteIndex := m.Params.SamplesToBytes(sampleIndex)
		speedAdjustedSamples = append(
			speedAdjustedSamples,
			samples[byteIndex:byteIndex+frameSize]...,
		)
	}
	return speedAdjustedSamples
}

// reverseSampleFrames reverses the buffer in place at sample-frame
// granularity, preserving channel order within each frame.
func (m *Mixer) reverseSampleFrames(samples []byte) {
	frameSize := m.Params.SamplesToBytes(1)
	halfBufferSize := len(samples) / 2
	tempBuffer := make([]byte, frameSize)

	for srcIndex := 0; srcIndex < halfBufferSize; srcIndex += frameSize {
		dstIndex := len(samples) - frameSize - srcIndex
		copy(tempBuffer, samples[srcIndex:srcIndex+frameSize])
		copy(samples[srcIndex:srcIndex+frameSize], samples[dstIndex:dstIndex+frameSize])
		copy(samples[dstIndex:dstIndex+frameSize], tempBuffer)
	}
}

func zeroFill(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
