package rendercache

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/rendercache/types"
)

func TestCacheQueueDeduplicates(t *testing.T) {
	var q cacheQueue

	require.True(t, q.Append(types.NewRational(1, 24)))
	require.True(t, q.Append(types.NewRational(2, 24)))

	// the same time must not be queued twice, even spelled differently
	require.False(t, q.Append(types.NewRational(1, 24)))
	require.False(t, q.Append(types.NewRational(2, 48)))

	require.Equal(t, 2, q.Len())
}

func TestCacheQueueForgetsPoppedEntries(t *testing.T) {
	var q cacheQueue

	// an unreduced literal and the reduced form are one entry
	require.True(t, q.Append(types.Rational{Num: 2, Den: 48}))
	require.False(t, q.Append(types.NewRational(1, 24)))

	_, ok := q.PopFront()
	require.True(t, ok)

	// once consumed, the time may be invalidated and queued again
	require.True(t, q.Append(types.NewRational(1, 24)))
	require.Equal(t, 1, q.Len())
}

func TestCacheQueueIsFIFO(t *testing.T) {
	var q cacheQueue

	q.Append(types.NewRational(3, 24))
	q.Append(types.NewRational(1, 24))
	q.Append(types.NewRational(2, 24))

	expected := []types.Rational{
		types.NewRational(3, 24),
		types.NewRational(1, 24),
		types.NewRational(2, 24),
	}
	for _, e := range expected {
		got, ok := q.PopFront()
		require.True(t, ok)
		require.True(t, got.Equal(e), "expected %s, got %s", e, got)
	}

	_, ok := q.PopFront()
	require.False(t, ok)
	require.True(t, q.IsEmpty())
}
