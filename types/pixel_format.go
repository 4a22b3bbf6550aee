package types

import (
	"fmt"
)

// PixelFormat enumerates the host-buffer pixel layouts the renderer
// can produce and the cache can round-trip losslessly.
type PixelFormat int

const (
	PixelFormatUndefined = PixelFormat(iota)
	PixelFormatRGBA8
	PixelFormatRGBA16
	EndOfPixelFormats
)

// BytesPerPixel returns the size of one RGBA pixel in this format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGBA8:
		return 4
	case PixelFormatRGBA16:
		return 8
	}
	return 0
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatUndefined:
		return "undefined"
	case PixelFormatRGBA8:
		return "rgba8"
	case PixelFormatRGBA16:
		return "rgba16"
	}
	return fmt.Sprintf("unexpected_pixel_format_%d", int(f))
}

func (f PixelFormat) IsValid() bool {
	return f > PixelFormatUndefined && f < EndOfPixelFormats
}
