package rendercache

import (
	"fmt"

	"github.com/xaionaro-go/rendercache/types"
)

// Params is the render configuration shared by every worker of a
// pipeline. It is immutable while workers are running: any change
// goes through a full Stop().
type Params struct {
	Width   int
	Height  int
	Format  types.PixelFormat
	Mode    types.RenderMode
	Divider int

	effectiveWidth  int
	effectiveHeight int
}

// calculateEffectiveDimensions must run right after any change to
// Width, Height or Divider, before the cache fingerprint is
// regenerated.
func (p *Params) calculateEffectiveDimensions() {
	if p.Divider <= 0 {
		p.effectiveWidth = 0
		p.effectiveHeight = 0
		return
	}
	p.effectiveWidth = p.Width / p.Divider
	p.effectiveHeight = p.Height / p.Divider
}

func (p Params) EffectiveWidth() int {
	return p.effectiveWidth
}

func (p Params) EffectiveHeight() int {
	return p.effectiveHeight
}

func (p Params) String() string {
	return fmt.Sprintf(
		"Params<%dx%d/%d %s %s>",
		p.Width, p.Height, p.Divider, p.Format, p.Mode,
	)
}
