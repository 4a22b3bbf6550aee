// image.go converts between Video buffers and Go's image types.

package frame

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/xaionaro-go/rendercache/types"
)

// ToImage wraps the frame's pixels into an image.Image without
// copying. The returned image shares memory with the frame.
func (f *Video) ToImage() (image.Image, error) {
	rect := image.Rect(0, 0, f.Width, f.Height)
	switch f.Format {
	case types.PixelFormatRGBA8:
		return &image.NRGBA{
			Pix:    f.Data,
			Stride: f.Width * 4,
			Rect:   rect,
		}, nil
	case types.PixelFormatRGBA16:
		return &image.NRGBA64{
			Pix:    f.Data,
			Stride: f.Width * 8,
			Rect:   rect,
		}, nil
	}
	return nil, fmt.Errorf("unable to represent pixel format %v as an image", f.Format)
}

// FromImage fills the frame from img, converting the color model if
// needed. The frame is reallocated to img's bounds.
func (f *Video) FromImage(img image.Image, format types.PixelFormat) error {
	bounds := img.Bounds()
	if err := f.Allocate(bounds.Dx(), bounds.Dy(), format); err != nil {
		return err
	}

	// a same-layout source is copied verbatim; going through draw.Draw
	// would premultiply and unpremultiply, which is lossy
	switch src := img.(type) {
	case *image.NRGBA:
		if format == types.PixelFormatRGBA8 && src.Stride == bounds.Dx()*4 {
			copy(f.Data, src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y):])
			return nil
		}
	case *image.NRGBA64:
		if format == types.PixelFormatRGBA16 && src.Stride == bounds.Dx()*8 {
			copy(f.Data, src.Pix[src.PixOffset(bounds.Min.X, bounds.Min.Y):])
			return nil
		}
	}

	dst, err := f.ToImage()
	if err != nil {
		return err
	}
	draw.Draw(dst.(draw.Image), dst.Bounds(), img, bounds.Min, draw.Src)
	return nil
}
