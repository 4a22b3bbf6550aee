// Package frame provides host-memory pixel buffers shared between the
// render workers, the image codec and the texture download path.
package frame

import (
	"fmt"

	"github.com/xaionaro-go/rendercache/types"
)

// Video is a host-side pixel buffer. Data is laid out exactly like the
// Pix slice of the corresponding image.NRGBA/image.NRGBA64, so
// conversions to Go images are copy-free.
type Video struct {
	Width  int
	Height int
	Format types.PixelFormat
	Data   []byte
}

// Allocate resizes the buffer for the given dimensions and format,
// reusing the underlying storage when it is large enough.
func (f *Video) Allocate(width, height int, format types.PixelFormat) error {
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("unable to allocate a frame of pixel format %v", format)
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("unable to allocate a %dx%d frame", width, height)
	}
	size := width * height * bpp
	if cap(f.Data) < size {
		f.Data = make([]byte, size)
	} else {
		f.Data = f.Data[:size]
	}
	f.Width = width
	f.Height = height
	f.Format = format
	return nil
}

// Size returns the byte length of the pixel data.
func (f *Video) Size() int {
	return f.Width * f.Height * f.Format.BytesPerPixel()
}

func (f *Video) Reset() {
	f.Width = 0
	f.Height = 0
	f.Format = types.PixelFormatUndefined
	f.Data = f.Data[:0]
}

func (f *Video) String() string {
	return fmt.Sprintf("VideoFrame<%dx%d %s>", f.Width, f.Height, f.Format)
}
