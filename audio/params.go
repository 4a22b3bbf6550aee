// Package audio implements the audio rendering parameters and the
// block mixer: it pulls decoded samples for every block overlapping a
// time range, applies per-block speed stretch and reversal, and
// merges everything into one continuous byte buffer.
package audio

import (
	"fmt"

	"github.com/xaionaro-go/rendercache/types"
)

// SampleFormat is the in-memory layout of a single mono sample.
type SampleFormat int

const (
	SampleFormatUndefined = SampleFormat(iota)
	SampleFormatS16
	SampleFormatS32
	SampleFormatF32
	EndOfSampleFormats
)

func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleFormatS16:
		return 2
	case SampleFormatS32, SampleFormatF32:
		return 4
	}
	return 0
}

func (f SampleFormat) String() string {
	switch f {
	case SampleFormatUndefined:
		return "undefined"
	case SampleFormatS16:
		return "s16"
	case SampleFormatS32:
		return "s32"
	case SampleFormatF32:
		return "f32"
	}
	return fmt.Sprintf("unexpected_sample_format_%d", int(f))
}

// Params describes the PCM stream the mixer produces: sample rate,
// channel count and sample format. All byte/sample/time conversions
// go through here so every component agrees on sizes.
type Params struct {
	SampleRate int
	Channels   int
	Format     SampleFormat
}

func (p Params) IsValid() bool {
	return p.SampleRate > 0 && p.Channels > 0 && p.Format.BytesPerSample() > 0
}

func (p Params) String() string {
	return fmt.Sprintf("%dHz %dch %s", p.SampleRate, p.Channels, p.Format)
}

// BytesPerSampleFrame is the size of one sample-frame: one sample for
// every channel.
func (p Params) BytesPerSampleFrame() int {
	return p.Channels * p.Format.BytesPerSample()
}

// TimeToSamples converts a duration to a whole number of
// sample-frames, rounding down. The math is exact integer
// arithmetic, no floating point drift.
func (p Params) TimeToSamples(t types.Rational) int {
	return int(t.Num * int64(p.SampleRate) / t.Den)
}

func (p Params) SamplesToBytes(samples int) int {
	return samples * p.BytesPerSampleFrame()
}

func (p Params) BytesToSamples(bytes int) int {
	return bytes / p.BytesPerSampleFrame()
}

func (p Params) TimeToBytes(t types.Rational) int {
	return p.SamplesToBytes(p.TimeToSamples(t))
}

func (p Params) SamplesToTime(samples int) types.Rational {
	return types.NewRational(int64(samples), int64(p.SampleRate))
}
