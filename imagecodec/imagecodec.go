// Package imagecodec serializes frames to the on-disk cache format.
// Cached frames are TIFF files: 8-bit and 16-bit RGBA both round-trip
// losslessly.
package imagecodec

import (
	"fmt"
	"io"

	"golang.org/x/image/tiff"

	"github.com/xaionaro-go/rendercache/frame"
	"github.com/xaionaro-go/rendercache/types"
)

// Extension is the file extension of cached frames, dot included.
const Extension = ".tiff"

func Encode(w io.Writer, f *frame.Video) error {
	img, err := f.ToImage()
	if err != nil {
		return fmt.Errorf("unable to represent the frame as an image: %w", err)
	}
	if err := tiff.Encode(w, img, &tiff.Options{
		Compression: tiff.Deflate,
		Predictor:   true,
	}); err != nil {
		return fmt.Errorf("unable to encode the frame: %w", err)
	}
	return nil
}

func Decode(r io.Reader, format types.PixelFormat, dst *frame.Video) error {
	img, err := tiff.Decode(r)
	if err != nil {
		return fmt.Errorf("unable to decode the image: %w", err)
	}
	if err := dst.FromImage(img, format); err != nil {
		return fmt.Errorf("unable to convert the image into a frame: %w", err)
	}
	return nil
}
