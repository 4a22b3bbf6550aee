package rendercache

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/rendercache/types"
)

func TestGenerateFingerprint(t *testing.T) {
	params := Params{
		Width:   1920,
		Height:  1080,
		Format:  types.PixelFormatRGBA8,
		Divider: 1,
	}
	params.calculateEffectiveDimensions()

	fp := generateFingerprint("project", 1000, params)
	require.NotEmpty(t, fp)
	require.Len(t, fp, 40) // hex-encoded SHA1

	// stable for the same inputs
	require.Equal(t, fp, generateFingerprint("project", 1000, params))

	// any input difference produces a different identity
	require.NotEqual(t, fp, generateFingerprint("other", 1000, params))
	require.NotEqual(t, fp, generateFingerprint("project", 1001, params))

	divided := params
	divided.Divider = 2
	divided.calculateEffectiveDimensions()
	require.NotEqual(t, fp, generateFingerprint("project", 1000, divided))
}

func TestGenerateFingerprintEmpty(t *testing.T) {
	params := Params{
		Width:   1920,
		Height:  1080,
		Format:  types.PixelFormatRGBA8,
		Divider: 1,
	}
	params.calculateEffectiveDimensions()

	// no name, no identity
	require.Empty(t, generateFingerprint("", 1000, params))

	// a divider larger than the frame collapses it to nothing
	collapsed := params
	collapsed.Divider = 4000
	collapsed.calculateEffectiveDimensions()
	require.Empty(t, generateFingerprint("project", 1000, collapsed))
}
