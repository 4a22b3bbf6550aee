// Package rendercache implements a frame-accurate, multi-threaded
// render/cache pipeline for a timeline compositor: a pool of render
// workers evaluates the node graph into textures, a pool of download
// workers persists them into an on-disk frame cache keyed by a
// content/parameter fingerprint, and a single control loop serializes
// the cache schedule so at most one master render is ever in flight.
package rendercache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-ng/xatomic"
	"github.com/xaionaro-go/rendercache/frame"
	"github.com/xaionaro-go/rendercache/graph"
	"github.com/xaionaro-go/rendercache/imagecodec"
	"github.com/xaionaro-go/rendercache/logger"
	"github.com/xaionaro-go/rendercache/texture"
	"github.com/xaionaro-go/rendercache/types"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"
)

// Config is the static configuration of a Pipeline.
type Config struct {
	// CacheRoot is the directory that holds one subdirectory per
	// cache fingerprint.
	CacheRoot string

	// GPU is the rendering-context provider shared by all workers.
	GPU texture.Context

	// WorkerCount is the number of render workers; 0 means the
	// ideal thread count (one per CPU).
	WorkerCount int

	// DownloadWorkerCount is the number of download workers; 0
	// means WorkerCount.
	DownloadWorkerCount int
}

func (cfg Config) workerCount() int {
	if cfg.WorkerCount > 0 {
		return cfg.WorkerCount
	}
	return runtime.NumCPU()
}

func (cfg Config) downloadWorkerCount() int {
	if cfg.DownloadWorkerCount > 0 {
		return cfg.DownloadWorkerCount
	}
	return cfg.workerCount()
}

// Pipeline renders and caches frames for one upstream input node.
//
// Scheduler state (the queue, the caching flag, the frame being
// cached) is owned exclusively by the Serve loop: workers signal back
// through the event channel, never by direct calls, so no lock
// protects it. Configuration and worker lifecycle are guarded by
// Locker.
type Pipeline struct {
	Statistics

	Locker xsync.Mutex

	cfg       Config
	input     *graph.Node
	cacheName string
	cacheTime int64
	params    Params
	timebase  types.Rational
	length    types.Rational

	fingerprint string

	started         bool
	generation      atomic.Uint64
	workers         []*renderWorker
	downloadWorkers []*downloadWorker
	masterTexture   *texture.Texture
	workersCancelFn context.CancelFunc

	eventCh chan pipelineEvent

	// control-loop-owned state, only the Serve loop touches it:
	cacheQueue         cacheQueue
	caching            bool
	cacheGeneration    uint64
	cacheFrame         types.Rational
	lastDownloadWorker int
}

const eventQueueSize = 1024

func New(ctx context.Context, cfg Config) *Pipeline {
	logger.Debugf(ctx, "New: %+v", cfg)
	p := &Pipeline{
		cfg:     cfg,
		eventCh: make(chan pipelineEvent, eventQueueSize),
	}
	p.params.Divider = 1
	return p
}

func (p *Pipeline) String() string {
	return "RenderCachePipeline"
}

// GetInput returns the upstream node the pipeline renders, or nil
// when nothing is connected.
func (p *Pipeline) GetInput() graph.Node {
	ptr := xatomic.LoadPointer(&p.input)
	if ptr == nil {
		return nil
	}
	return *ptr
}

// SetInput connects (or, with nil, disconnects) the upstream node.
func (p *Pipeline) SetInput(ctx context.Context, input graph.Node) {
	logger.Debugf(ctx, "SetInput: %v", input)
	xatomic.StorePointer(&p.input, ptr(input))
}

// SetCacheName names the cache and stamps it with the current time;
// the fingerprint is regenerated immediately.
func (p *Pipeline) SetCacheName(ctx context.Context, name string) {
	logger.Debugf(ctx, "SetCacheName: '%s'", name)
	p.Locker.Do(ctx, func() {
		p.cacheName = name
		p.cacheTime = time.Now().UnixMilli()
		p.generateFingerprintLocked(ctx)
	})
}

// SetTimebase sets the rational frame duration that defines valid
// cache time granularity.
func (p *Pipeline) SetTimebase(ctx context.Context, timebase types.Rational) {
	logger.Debugf(ctx, "SetTimebase: %s", timebase)
	p.Locker.Do(ctx, func() {
		p.timebase = timebase
	})
}

func (p *Pipeline) GetTimebase(ctx context.Context) types.Rational {
	return xsync.DoR1(ctx, &p.Locker, func() types.Rational {
		return p.timebase
	})
}

// SetLength tells the pipeline how long the content is; an
// invalidation reaching past the end (e.g. "everything changed") is
// clamped to it.
func (p *Pipeline) SetLength(ctx context.Context, length types.Rational) {
	logger.Debugf(ctx, "SetLength: %s", length)
	p.Locker.Do(ctx, func() {
		p.length = length
	})
}

func (p *Pipeline) GetLength(ctx context.Context) types.Rational {
	return xsync.DoR1(ctx, &p.Locker, func() types.Rational {
		return p.length
	})
}

// SetParameters reconfigures the render output. All existing workers
// are invalid after this, so the pipeline is stopped first; it starts
// again the next time it has something to cache.
func (p *Pipeline) SetParameters(
	ctx context.Context,
	width, height int,
	format types.PixelFormat,
	mode types.RenderMode,
	divider int,
) {
	logger.Debugf(ctx, "SetParameters: %dx%d %s %s %d", width, height, format, mode, divider)
	p.Locker.Do(ctx, func() {
		p.stopLocked(ctx)

		p.params.Width = width
		p.params.Height = height
		p.params.Format = format
		p.params.Mode = mode

		// divider 0 means "not specified", keep the current one
		if divider > 0 {
			p.params.Divider = divider
		}

		p.params.calculateEffectiveDimensions()
		p.generateFingerprintLocked(ctx)
	})
}

// SetDivider changes only the resolution divider.
func (p *Pipeline) SetDivider(ctx context.Context, divider int) {
	logger.Debugf(ctx, "SetDivider: %d", divider)
	assert(ctx, divider > 0)
	p.Locker.Do(ctx, func() {
		p.stopLocked(ctx)

		p.params.Divider = divider

		p.params.calculateEffectiveDimensions()
		p.generateFingerprintLocked(ctx)
	})
}

func (p *Pipeline) GetParams(ctx context.Context) Params {
	return xsync.DoR1(ctx, &p.Locker, func() Params {
		return p.params
	})
}

// GetFingerprint returns the current cache fingerprint; it is empty
// until a cache name is set and the effective dimensions are nonzero.
func (p *Pipeline) GetFingerprint(ctx context.Context) string {
	return xsync.DoR1(ctx, &p.Locker, func() string {
		return p.fingerprint
	})
}

func (p *Pipeline) generateFingerprintLocked(ctx context.Context) {
	old := p.fingerprint
	p.fingerprint = generateFingerprint(p.cacheName, p.cacheTime, p.params)
	if p.fingerprint != old {
		logger.Debugf(ctx, "the cache fingerprint is now '%s'", p.fingerprint)
	}
}

// CachePathName maps a rational time to its cache file path,
// creating the fingerprint directory if needed. Every cached frame
// is addressed by its exact rational time, so re-querying the same
// time always resolves to the same path.
func (p *Pipeline) CachePathName(ctx context.Context, t types.Rational) (string, error) {
	return xsync.DoA2R2(ctx, &p.Locker, p.cachePathNameLocked, ctx, t)
}

func (p *Pipeline) cachePathNameLocked(ctx context.Context, t types.Rational) (string, error) {
	if p.fingerprint == "" {
		return "", fmt.Errorf("unable to resolve a cache path without a cache fingerprint")
	}
	dir := filepath.Join(p.cfg.CacheRoot, p.fingerprint)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("unable to create the cache directory '%s': %w", dir, err)
	}
	filename := fmt.Sprintf("%d.%d%s", t.Num, t.Den, imagecodec.Extension)
	return filepath.Join(dir, filename), nil
}

// Start provisions the render and download worker pools and the
// master texture. It is idempotent.
func (p *Pipeline) Start(ctx context.Context) error {
	return xsync.DoA1R1(ctx, &p.Locker, p.startLocked, ctx)
}

func (p *Pipeline) startLocked(ctx context.Context) (_err error) {
	if p.started {
		return nil
	}
	logger.Debugf(ctx, "startLocked")
	defer func() { logger.Debugf(ctx, "/startLocked: %v", _err) }()

	if p.cfg.GPU == nil {
		return fmt.Errorf("unable to start: no rendering context provider")
	}

	// The workers must not die with the caller's request context.
	workersCtx, cancelFn := context.WithCancel(xcontext.DetachDone(ctx))

	masterTexture, err := p.cfg.GPU.NewTexture(
		workersCtx,
		p.params.EffectiveWidth(), p.params.EffectiveHeight(),
		p.params.Format,
	)
	if err != nil {
		cancelFn()
		return fmt.Errorf("unable to create the master texture: %w", err)
	}

	generation := p.generation.Load()

	p.workers = make([]*renderWorker, p.cfg.workerCount())
	for i := range p.workers {
		p.workers[i] = newRenderWorker(i, generation, p.cfg.GPU, p.params, p.eventCh)
		p.workers[i].start(workersCtx)
	}

	p.downloadWorkers = make([]*downloadWorker, p.cfg.downloadWorkerCount())
	for i := range p.downloadWorkers {
		p.downloadWorkers[i] = newDownloadWorker(i, &p.Statistics)
		p.downloadWorkers[i].start(workersCtx)
	}

	p.masterTexture = masterTexture
	p.workersCancelFn = cancelFn
	p.started = true
	return nil
}

// Stop cancels every worker (render and download) and releases the
// master texture. It is safe to call at any scheduler state: work in
// flight is abandoned, and a later Start creates entirely new
// workers. Callers must re-invalidate if lost work needs redoing.
func (p *Pipeline) Stop(ctx context.Context) {
	p.Locker.Do(ctx, func() {
		p.stopLocked(ctx)
	})
}

func (p *Pipeline) stopLocked(ctx context.Context) {
	if !p.started {
		return
	}
	logger.Debugf(ctx, "stopLocked")
	defer func() { logger.Debugf(ctx, "/stopLocked") }()

	p.started = false
	newGeneration := p.generation.Add(1)

	p.workersCancelFn()
	p.workersCancelFn = nil
	p.workers = nil
	p.downloadWorkers = nil

	p.masterTexture.Release(ctx)
	p.masterTexture = nil

	// Lets the control loop reset its mid-caching state promptly.
	// Losing this event (queue full) is tolerated: the loop compares
	// the generation a render was started under against the current
	// one before skipping work, and that is also what drops events
	// from workers that were still in flight when we canceled them.
	select {
	case p.eventCh <- eventStopped{Generation: newGeneration}:
	default:
		logger.Warnf(ctx, "event queue is full, dropping the stop event")
	}
}

// Query is the synchronous read path: when a cache file exists for t,
// it is decoded into the resident master texture and returned;
// otherwise nil is returned. Query never triggers a render — caching
// is driven only by invalidation.
func (p *Pipeline) Query(ctx context.Context, t types.Rational) (*texture.Texture, error) {
	return xsync.DoA2R2(ctx, &p.Locker, p.queryLocked, ctx, t)
}

func (p *Pipeline) queryLocked(ctx context.Context, t types.Rational) (_ret *texture.Texture, _err error) {
	logger.Tracef(ctx, "queryLocked: %s", t)
	defer func() { logger.Tracef(ctx, "/queryLocked: %s: %v %v", t, _ret, _err) }()

	if p.GetInput() == nil {
		// nothing is connected, nothing to show
		return nil, nil
	}
	if p.fingerprint == "" {
		logger.Warnf(ctx, "the pipeline has no cache fingerprint")
		return nil, nil
	}
	if p.timebase.IsNull() {
		logger.Warnf(ctx, "the pipeline has no timebase")
		return nil, nil
	}

	fn, err := p.cachePathNameLocked(ctx, t)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(fn); err != nil {
		p.Statistics.QueryMisses.Add(1)
		return nil, nil
	}

	f := frame.Pool.Get()
	defer frame.Pool.Put(f)
	if err := imagecodec.ReadFile(ctx, fn, p.params.Format, f); err != nil {
		// an unreadable cache file is just a miss
		logger.Debugf(ctx, "unable to read the cache file '%s': %v", fn, err)
		p.Statistics.QueryMisses.Add(1)
		return nil, nil
	}

	if err := p.startLocked(ctx); err != nil {
		return nil, fmt.Errorf("unable to start the pipeline: %w", err)
	}

	if err := p.masterTexture.Upload(ctx, f.Data); err != nil {
		logger.Debugf(ctx, "unable to upload '%s' into the master texture: %v", fn, err)
		p.Statistics.QueryMisses.Add(1)
		return nil, nil
	}

	p.Statistics.QueryHits.Add(1)
	return p.masterTexture, nil
}

func (p *Pipeline) masterWorker(ctx context.Context) *renderWorker {
	return xsync.DoR1(ctx, &p.Locker, func() *renderWorker {
		if len(p.workers) == 0 {
			return nil
		}
		return p.workers[0]
	})
}

func (p *Pipeline) workersSnapshot(ctx context.Context) []*renderWorker {
	return xsync.DoR1(ctx, &p.Locker, func() []*renderWorker {
		return p.workers
	})
}

func (p *Pipeline) downloadWorkersSnapshot(ctx context.Context) []*downloadWorker {
	return xsync.DoR1(ctx, &p.Locker, func() []*downloadWorker {
		return p.downloadWorkers
	})
}
