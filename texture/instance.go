// instance.go carries the per-worker render instance through the
// evaluation context: the rendering context plus the effective output
// dimensions/format the graph must produce.

package texture

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/rendercache/types"
)

// Instance is what a node sees of the worker evaluating it.
type Instance struct {
	GPU    Context
	Width  int
	Height int
	Format types.PixelFormat
	Mode   types.RenderMode
}

func (i *Instance) String() string {
	return fmt.Sprintf("Instance<%s %dx%d %s %s>", i.GPU, i.Width, i.Height, i.Format, i.Mode)
}

// NewTexture allocates a texture of the instance's output geometry.
func (i *Instance) NewTexture(ctx context.Context) (*Texture, error) {
	return i.GPU.NewTexture(ctx, i.Width, i.Height, i.Format)
}

type instanceCtxKey struct{}

func CtxWithInstance(ctx context.Context, i *Instance) context.Context {
	return context.WithValue(ctx, instanceCtxKey{}, i)
}

// InstanceFromCtx returns the render instance of the current worker,
// or nil when the evaluation is not running on a render worker.
func InstanceFromCtx(ctx context.Context) *Instance {
	i, _ := ctx.Value(instanceCtxKey{}).(*Instance)
	return i
}
