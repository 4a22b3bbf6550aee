package types

import (
	"fmt"
)

// RenderMode selects the quality/speed tradeoff the workers use.
type RenderMode int

const (
	RenderModeUndefined = RenderMode(iota)
	RenderModeOffline
	RenderModeOnline
	EndOfRenderModes
)

func (m RenderMode) String() string {
	switch m {
	case RenderModeUndefined:
		return "undefined"
	case RenderModeOffline:
		return "offline"
	case RenderModeOnline:
		return "online"
	}
	return fmt.Sprintf("unexpected_render_mode_%d", int(m))
}
