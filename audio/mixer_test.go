package audio

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/rendercache/graph"
	"github.com/xaionaro-go/rendercache/timeline"
	"github.com/xaionaro-go/rendercache/types"
)

type samplesNode struct {
	samples []byte
}

func (n *samplesNode) String() string { return "samplesNode" }
func (n *samplesNode) Value(context.Context, types.TimeRange) (graph.ValueTable, error) {
	var table graph.ValueTable
	table.Push(graph.ValueTypeSamples, n.samples)
	return table, nil
}

// 8 Hz mono makes one second exactly 8 sample frames
var testParams = Params{
	SampleRate: 8,
	Channels:   1,
	Format:     SampleFormatS16,
}

func sec(n int64) types.Rational {
	return types.NewRational(n, 1)
}

func s16(values ...int16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func TestMixerSilence(t *testing.T) {
	ctx := context.Background()
	mixer := NewMixer(testParams)
	track := timeline.NewTrack("empty")

	r := types.NewTimeRange(sec(0), sec(2))
	table, err := mixer.RenderBlock(ctx, track, r)
	require.NoError(t, err)

	buf, ok := table.Take(graph.ValueTypeSamples).([]byte)
	require.True(t, ok)
	require.Len(t, buf, testParams.TimeToBytes(r.Length()))
	require.Equal(t, make([]byte, len(buf)), buf, "an empty track renders as silence")
}

func TestMixerPlacesBlockAtItsOffset(t *testing.T) {
	ctx := context.Background()
	mixer := NewMixer(testParams)
	track := timeline.NewTrack("offset")

	// one second of content on the second second of a four-second range
	content := s16(1, 2, 3, 4, 5, 6, 7, 8)
	track.AddBlock(ctx, timeline.NewBlock(&samplesNode{samples: content}, sec(1), sec(2)))

	table, err := mixer.RenderBlock(ctx, track, types.NewTimeRange(sec(0), sec(4)))
	require.NoError(t, err)
	buf := table.Take(graph.ValueTypeSamples).([]byte)
	require.Len(t, buf, testParams.TimeToBytes(sec(4)))

	oneSecond := testParams.TimeToBytes(sec(1))
	require.Equal(t, make([]byte, oneSecond), buf[:oneSecond], "before the block: silence")
	require.Equal(t, content, buf[oneSecond:2*oneSecond])
	require.Equal(t, make([]byte, 2*oneSecond), buf[2*oneSecond:], "after the block: silence")
}

func TestMixerStretch(t *testing.T) {
	ctx := context.Background()
	mixer := NewMixer(testParams)
	track := timeline.NewTrack("stretch")

	// two seconds of media squeezed into one second of timeline
	media := s16(0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15)
	b := timeline.NewBlock(&samplesNode{samples: media}, sec(0), sec(1))
	b.MediaLength = sec(2)
	b.Speed = 2.0
	track.AddBlock(ctx, b)

	table, err := mixer.RenderBlock(ctx, track, types.NewTimeRange(sec(0), sec(1)))
	require.NoError(t, err)
	buf := table.Take(graph.ValueTypeSamples).([]byte)

	// decimation keeps every second sample frame
	require.Equal(t, s16(0, 2, 4, 6, 8, 10, 12, 14), buf)
}

func TestMixerLiteralBlock(t *testing.T) {
	ctx := context.Background()
	mixer := NewMixer(testParams)
	track := timeline.NewTrack("literal")

	// a block assembled without NewBlock: MediaLength and Speed stay
	// at their zero values, which must render unstretched instead of
	// panicking or spinning
	content := s16(1, 2, 3, 4, 5, 6, 7, 8)
	track.AddBlock(ctx, &timeline.Block{
		Node: &samplesNode{samples: content},
		In:   sec(0),
		Out:  sec(1),
	})

	table, err := mixer.RenderBlock(ctx, track, types.NewTimeRange(sec(0), sec(1)))
	require.NoError(t, err)
	buf := table.Take(graph.ValueTypeSamples).([]byte)
	require.Equal(t, content, buf)
}

func TestMixerZeroSpeedDoesNotStretch(t *testing.T) {
	ctx := context.Background()
	mixer := NewMixer(testParams)
	track := timeline.NewTrack("zero-speed")

	content := s16(1, 2, 3, 4, 5, 6, 7, 8)
	b := timeline.NewBlock(&samplesNode{samples: content}, sec(0), sec(1))
	b.MediaLength = sec(2)
	b.Speed = 0
	track.AddBlock(ctx, b)

	table, err := mixer.RenderBlock(ctx, track, types.NewTimeRange(sec(0), sec(1)))
	require.NoError(t, err)
	buf := table.Take(graph.ValueTypeSamples).([]byte)
	require.Equal(t, content, buf)
}

func TestMixerReverse(t *testing.T) {
	ctx := context.Background()
	stereo := Params{
		SampleRate: 2,
		Channels:   2,
		Format:     SampleFormatS16,
	}
	mixer := NewMixer(stereo)
	track := timeline.NewTrack("reverse")

	// two stereo sample frames: (1,2) then (3,4)
	b := timeline.NewBlock(&samplesNode{samples: s16(1, 2, 3, 4)}, sec(0), sec(1))
	b.Reversed = true
	track.AddBlock(ctx, b)

	table, err := mixer.RenderBlock(ctx, track, types.NewTimeRange(sec(0), sec(1)))
	require.NoError(t, err)
	buf := table.Take(graph.ValueTypeSamples).([]byte)

	// frame order flips, channels within a frame do not
	require.Equal(t, s16(3, 4, 1, 2), buf)
}

func TestParamsConversions(t *testing.T) {
	p := Params{SampleRate: 48000, Channels: 2, Format: SampleFormatS16}

	require.Equal(t, 4, p.BytesPerSampleFrame())
	require.Equal(t, 48000, p.TimeToSamples(sec(1)))
	require.Equal(t, 24000, p.TimeToSamples(types.NewRational(1, 2)))

	// exact even where floats would drift
	require.Equal(t, 1601, p.TimeToSamples(types.NewRational(1001, 30000)))

	require.Equal(t, p.TimeToBytes(sec(1)), p.SamplesToBytes(p.TimeToSamples(sec(1))))
	require.Equal(t, 48000, p.BytesToSamples(p.SamplesToBytes(48000)))
	require.True(t, p.SamplesToTime(48000).Equal(sec(1)))
}
