package texture

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/rendercache/logger"
	"github.com/xaionaro-go/rendercache/types"
)

// SoftwareContext is a Context backed by plain host memory. It is
// the default for headless rendering and for tests.
type SoftwareContext struct{}

var _ Context = (*SoftwareContext)(nil)

func NewSoftwareContext() *SoftwareContext {
	return &SoftwareContext{}
}

func (c *SoftwareContext) String() string {
	return "SoftwareContext"
}

func (c *SoftwareContext) NewTexture(
	ctx context.Context,
	width, height int,
	format types.PixelFormat,
) (_ret *Texture, _err error) {
	logger.Tracef(ctx, "NewTexture: %dx%d %s", width, height, format)
	defer func() { logger.Tracef(ctx, "/NewTexture: %v %v", _ret, _err) }()

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("unable to create a %dx%d texture", width, height)
	}
	if format.BytesPerPixel() == 0 {
		return nil, fmt.Errorf("unable to create a texture of pixel format %v", format)
	}
	return &Texture{
		Width:  width,
		Height: height,
		Format: format,
		data:   make([]byte, width*height*format.BytesPerPixel()),
	}, nil
}
