// pool.go implements a pool for reusing Video frame buffers.

package frame

import (
	"github.com/xaionaro-go/rendercache/pool"
)

var Pool = pool.NewPool(
	func() *Video { return &Video{} },
	func(f *Video) { f.Reset() },
)

// CloneData returns a pooled frame holding a copy of src's pixels.
func CloneData(src *Video) *Video {
	dst := Pool.Get()
	if err := dst.Allocate(src.Width, src.Height, src.Format); err != nil {
		panic(err)
	}
	copy(dst.Data, src.Data)
	return dst
}
