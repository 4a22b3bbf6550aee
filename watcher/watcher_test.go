package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/rendercache/types"
)

type countingInvalidator struct {
	calls atomic.Int64
}

func (c *countingInvalidator) InvalidateCache(
	ctx context.Context,
	start, end types.Rational,
) {
	c.calls.Add(1)
}

func TestWatcherInvalidatesOnWrite(t *testing.T) {
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	inv := &countingInvalidator{}
	w, err := New(ctx, inv)
	require.NoError(t, err)
	defer w.Close(ctx)

	dir := t.TempDir()
	require.NoError(t, w.Add(ctx, dir))

	path := filepath.Join(dir, "footage.bin")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	require.Eventually(t, func() bool {
		return inv.calls.Load() > 0
	}, 10*time.Second, 10*time.Millisecond)
}

func TestWatcherRemove(t *testing.T) {
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	inv := &countingInvalidator{}
	w, err := New(ctx, inv)
	require.NoError(t, err)
	defer w.Close(ctx)

	dir := t.TempDir()
	require.NoError(t, w.Add(ctx, dir))
	require.NoError(t, w.Remove(ctx, dir))
	require.Error(t, w.Remove(ctx, dir), "removing an unwatched path must fail")
}
