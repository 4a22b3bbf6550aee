// Package texture models the rendering-context capability the worker
// pool is constructed with, and the textures it owns. The context is
// an injected object, never ambient global state, so tests and the
// software renderer can provide their own.
package texture

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/rendercache/frame"
	"github.com/xaionaro-go/rendercache/types"
)

// Context is a provider of device-resident textures. One Context is
// shared by all workers of a pipeline.
type Context interface {
	fmt.Stringer
	NewTexture(ctx context.Context, width, height int, format types.PixelFormat) (*Texture, error)
}

// Texture is a device-resident image buffer of fixed dimensions and
// format. Upload moves pixels host->device, Download device->host.
type Texture struct {
	Width  int
	Height int
	Format types.PixelFormat

	data     []byte
	released bool
}

func (t *Texture) String() string {
	return fmt.Sprintf("Texture<%dx%d %s>", t.Width, t.Height, t.Format)
}

// Size returns the byte length of the texture's pixel storage.
func (t *Texture) Size() int {
	return t.Width * t.Height * t.Format.BytesPerPixel()
}

// Upload replaces the texture's pixels with data, which must be
// exactly Size() bytes in the texture's own format.
func (t *Texture) Upload(ctx context.Context, data []byte) error {
	if t.released {
		return fmt.Errorf("unable to upload to a released texture")
	}
	if len(data) != t.Size() {
		return fmt.Errorf("unable to upload %d bytes into %s (expected %d)", len(data), t, t.Size())
	}
	copy(t.data, data)
	return nil
}

// Download copies the texture's pixels into a host frame, allocating
// the frame for the texture's dimensions and format.
func (t *Texture) Download(ctx context.Context, dst *frame.Video) error {
	if t.released {
		return fmt.Errorf("unable to download from a released texture")
	}
	if err := dst.Allocate(t.Width, t.Height, t.Format); err != nil {
		return err
	}
	copy(dst.Data, t.data)
	return nil
}

// Release frees the device storage. Further Upload/Download calls
// fail.
func (t *Texture) Release(ctx context.Context) {
	t.released = true
	t.data = nil
}
