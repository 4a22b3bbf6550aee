package rendercache

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/rendercache/frame"
	"github.com/xaionaro-go/rendercache/graph"
	"github.com/xaionaro-go/rendercache/texture"
	"github.com/xaionaro-go/rendercache/types"
)

// testSource renders each frame time as a solid byte pattern, so a
// frame read back from the cache identifies the time it was rendered
// for. It also records how many evaluations ran at once.
type testSource struct {
	evaluations   atomic.Int64
	concurrent    atomic.Int64
	maxConcurrent atomic.Int64
}

var _ graph.Node = (*testSource)(nil)

func (s *testSource) String() string { return "testSource" }

func fillByteForTime(t types.Rational) byte {
	return byte(t.Float64() * 4)
}

func (s *testSource) Value(
	ctx context.Context,
	r types.TimeRange,
) (graph.ValueTable, error) {
	cur := s.concurrent.Add(1)
	defer s.concurrent.Add(-1)
	for {
		max := s.maxConcurrent.Load()
		if cur <= max || s.maxConcurrent.CompareAndSwap(max, cur) {
			break
		}
	}
	s.evaluations.Add(1)

	var table graph.ValueTable
	instance := texture.InstanceFromCtx(ctx)
	if instance == nil {
		return table, nil
	}
	tex, err := instance.NewTexture(ctx)
	if err != nil {
		return table, err
	}
	data := bytes.Repeat([]byte{fillByteForTime(r.In)}, tex.Size())
	if err := tex.Upload(ctx, data); err != nil {
		return table, err
	}
	table.Push(graph.ValueTypeTexture, tex)
	return table, nil
}

func newTestPipeline(
	ctx context.Context,
	t *testing.T,
	input graph.Node,
) *Pipeline {
	t.Helper()
	p := New(ctx, Config{
		CacheRoot:   t.TempDir(),
		GPU:         texture.NewSoftwareContext(),
		WorkerCount: 2,
	})
	p.SetCacheName(ctx, t.Name())
	p.SetTimebase(ctx, types.NewRational(1, 4))
	p.SetParameters(ctx, 8, 8, types.PixelFormatRGBA8, types.RenderModeOffline, 1)
	p.SetInput(ctx, input)
	return p
}

func TestPipelineCachesInvalidatedRange(t *testing.T) {
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	src := &testSource{}
	p := newTestPipeline(ctx, t, src)
	defer p.Stop(ctx)

	go p.Serve(ctx, nil)

	// timebase 1/4, so [0s, 1s] is 5 frame times
	p.InvalidateCache(ctx, types.NewRational(0, 1), types.NewRational(1, 1))

	require.Eventually(t, func() bool {
		stats := p.GetStats()
		return stats.FramesRendered >= 5 && stats.CacheWrites >= 5 && stats.QueueLength == 0
	}, 10*time.Second, 10*time.Millisecond)

	// one cache file per frame time, under the fingerprint directory
	dir := filepath.Join(p.cfg.CacheRoot, p.GetFingerprint(ctx))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 5)

	// master renders never overlap
	require.Equal(t, int64(1), src.maxConcurrent.Load())
}

func TestPipelineQueryRoundTrip(t *testing.T) {
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	src := &testSource{}
	p := newTestPipeline(ctx, t, src)
	defer p.Stop(ctx)

	// nothing rendered yet: a miss, not an error
	tex, err := p.Query(ctx, types.NewRational(1, 4))
	require.NoError(t, err)
	require.Nil(t, tex)
	require.EqualValues(t, 1, p.GetStats().QueryMisses)

	go p.Serve(ctx, nil)
	p.InvalidateCache(ctx, types.NewRational(0, 1), types.NewRational(1, 1))
	require.Eventually(t, func() bool {
		stats := p.GetStats()
		return stats.CacheWrites >= 5 && stats.QueueLength == 0
	}, 10*time.Second, 10*time.Millisecond)

	queryTime := types.NewRational(3, 4)
	tex, err = p.Query(ctx, queryTime)
	require.NoError(t, err)
	require.NotNil(t, tex)

	var f frame.Video
	require.NoError(t, tex.Download(ctx, &f))
	expected := bytes.Repeat([]byte{fillByteForTime(queryTime)}, len(f.Data))
	require.Equal(t, expected, f.Data, "the cached frame must round-trip pixel-identical")
	require.EqualValues(t, 1, p.GetStats().QueryHits)
}

func TestPipelineRestartsAfterStop(t *testing.T) {
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	src := &testSource{}
	p := newTestPipeline(ctx, t, src)
	defer p.Stop(ctx)

	go p.Serve(ctx, nil)

	p.InvalidateCache(ctx, types.NewRational(0, 1), types.NewRational(5, 1))
	require.Eventually(t, func() bool {
		return p.GetStats().FramesRendered >= 1
	}, 10*time.Second, 10*time.Millisecond)

	// stopping mid-caching abandons the in-flight work...
	p.Stop(ctx)

	// ...but a later invalidation picks the schedule right back up
	p.InvalidateCache(ctx, types.NewRational(0, 1), types.NewRational(5, 1))
	require.Eventually(t, func() bool {
		return p.GetStats().QueueLength == 0
	}, 20*time.Second, 10*time.Millisecond)
}

func TestPipelineRecoversFromLostStopSignal(t *testing.T) {
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	src := &testSource{}
	p := newTestPipeline(ctx, t, src)
	defer p.Stop(ctx)

	// a Stop whose wake-up event got dropped leaves the loop believing
	// a master render of a long-gone worker set is still in flight;
	// the generation mismatch is what must unstick it
	p.caching = true
	p.cacheGeneration = p.generation.Load()
	p.generation.Add(1)

	go p.Serve(ctx, nil)

	p.InvalidateCache(ctx, types.NewRational(0, 1), types.NewRational(1, 1))
	require.Eventually(t, func() bool {
		stats := p.GetStats()
		return stats.FramesRendered >= 5 && stats.QueueLength == 0
	}, 10*time.Second, 10*time.Millisecond)
}

func TestPipelineSetParametersChangesFingerprint(t *testing.T) {
	ctx := context.Background()

	p := newTestPipeline(ctx, t, &testSource{})
	defer p.Stop(ctx)

	fp := p.GetFingerprint(ctx)
	require.NotEmpty(t, fp)

	p.SetDivider(ctx, 2)
	divided := p.GetFingerprint(ctx)
	require.NotEqual(t, fp, divided)

	params := p.GetParams(ctx)
	require.Equal(t, 4, params.EffectiveWidth())
	require.Equal(t, 4, params.EffectiveHeight())

	// same parameters, same identity
	p.SetDivider(ctx, 1)
	require.Equal(t, fp, p.GetFingerprint(ctx))
}

func TestPipelineCachePathNameIsStable(t *testing.T) {
	ctx := context.Background()

	p := newTestPipeline(ctx, t, &testSource{})
	defer p.Stop(ctx)

	a, err := p.CachePathName(ctx, types.NewRational(1, 4))
	require.NoError(t, err)
	b, err := p.CachePathName(ctx, types.NewRational(1, 4))
	require.NoError(t, err)
	require.Equal(t, a, b)

	other, err := p.CachePathName(ctx, types.NewRational(1, 2))
	require.NoError(t, err)
	require.NotEqual(t, a, other)
}

// fanOutSource asks for a sibling render of another node before
// rendering itself.
type fanOutSource struct {
	testSource
	sibling graph.Node
}

func (s *fanOutSource) String() string { return "fanOutSource" }

func (s *fanOutSource) Value(
	ctx context.Context,
	r types.TimeRange,
) (graph.ValueTable, error) {
	graph.RequestSibling(ctx, graph.Dependency{Node: s.sibling, Range: r})
	return s.testSource.Value(ctx, r)
}

func TestPipelineDispatchesSiblings(t *testing.T) {
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	src := &fanOutSource{sibling: &testSource{}}
	p := newTestPipeline(ctx, t, src)
	defer p.Stop(ctx)

	go p.Serve(ctx, nil)
	p.InvalidateCache(ctx, types.NewRational(0, 1), types.NewRational(1, 1))

	require.Eventually(t, func() bool {
		stats := p.GetStats()
		return stats.QueueLength == 0 &&
			stats.SiblingsDispatched+stats.SiblingsRejected > 0
	}, 10*time.Second, 10*time.Millisecond)
}
