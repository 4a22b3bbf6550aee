// pipeline_serve.go is the control loop. Workers never call back
// into the pipeline directly: every completion and sibling request is
// queued onto the event channel and handled here, so the scheduler's
// Idle/Caching transitions are observed and mutated by exactly one
// goroutine.

package rendercache

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/davecgh/go-spew/spew"
	"github.com/xaionaro-go/rendercache/graph"
	"github.com/xaionaro-go/rendercache/logger"
	"github.com/xaionaro-go/rendercache/texture"
	"github.com/xaionaro-go/rendercache/types"
)

// maxInvalidateFrames bounds a single invalidation when no content
// length is configured to clamp against.
const maxInvalidateFrames = 1 << 20

type pipelineEvent interface {
	pipelineEvent()
}

type eventInvalidate struct {
	Start types.Rational
	End   types.Rational
}

type eventRenderFinished struct {
	Generation  uint64
	WorkerIndex int
	Request     renderRequest
}

type eventSiblingRequested struct {
	Generation uint64
	Dep        graph.Dependency
}

type eventStopped struct {
	Generation uint64
}

func (eventInvalidate) pipelineEvent()       {}
func (eventRenderFinished) pipelineEvent()   {}
func (eventSiblingRequested) pipelineEvent() {}
func (eventStopped) pipelineEvent()          {}

// InvalidateCache marks [start, end] as stale: every timebase-aligned
// time in the range is queued for re-render (duplicates are not
// re-added) and the scheduler advances. Non-blocking; the work
// happens on the Serve loop.
func (p *Pipeline) InvalidateCache(ctx context.Context, start, end types.Rational) {
	logger.Debugf(ctx, "InvalidateCache: between %v and %v", start.Float64(), end.Float64())
	select {
	case p.eventCh <- eventInvalidate{Start: start, End: end}:
	default:
		logger.Errorf(ctx, "event queue is full, cannot invalidate [%s, %s]", start, end)
	}
}

// Serve runs the control loop until ctx is canceled. All scheduler
// state transitions happen here and only here.
func (p *Pipeline) Serve(ctx context.Context, errCh chan<- Error) {
	logger.Debugf(ctx, "Serve")
	defer func() { logger.Debugf(ctx, "/Serve") }()
	logger.Debugf(ctx, "config: %s", spew.Sdump(p.cfg))
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.Errorf(ctx, "got panic in the control loop: %v:\n%s\n", r, debug.Stack())
	}()

	sendErr := func(err error) {
		logger.Debugf(ctx, "Serve: sendErr(%v)", err)
		if errCh == nil {
			return
		}
		select {
		case errCh <- Error{Pipeline: p, Err: err}:
		default:
			logger.Errorf(ctx, "error queue is full, cannot send error: %v", err)
		}
	}

	defer p.Stop(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.eventCh:
			p.handleEvent(ctx, ev, sendErr)
		}
	}
}

func (p *Pipeline) handleEvent(
	ctx context.Context,
	ev pipelineEvent,
	sendErr func(error),
) {
	logger.Tracef(ctx, "handleEvent: %T", ev)
	defer func() { logger.Tracef(ctx, "/handleEvent: %T", ev) }()

	switch ev := ev.(type) {
	case eventInvalidate:
		p.handleInvalidate(ctx, ev, sendErr)
	case eventRenderFinished:
		p.handleRenderFinished(ctx, ev, sendErr)
	case eventSiblingRequested:
		p.handleSiblingRequested(ctx, ev)
	case eventStopped:
		p.handleStopped(ctx, ev)
	default:
		logger.Errorf(ctx, "unexpected event type %T", ev)
	}
}

func (p *Pipeline) handleInvalidate(
	ctx context.Context,
	ev eventInvalidate,
	sendErr func(error),
) {
	timebase := p.GetTimebase(ctx)
	if timebase.IsNull() {
		logger.Warnf(ctx, "the pipeline has no timebase, ignoring the invalidation")
		return
	}

	end := ev.End
	if length := p.GetLength(ctx); !length.IsNull() && length.Less(end) {
		end = length
	}

	// Snap the start down to the timebase, then enumerate every
	// timebase-aligned time in the range.
	trueStart := ev.Start.SnapDown(timebase)
	frameCount := 0
	for r := trueStart; r.LessOrEqual(end); r = r.Add(timebase) {
		if frameCount >= maxInvalidateFrames {
			logger.Warnf(ctx,
				"the invalidation [%s, %s] exceeds %d frames, truncating; set the content length to avoid this",
				ev.Start, ev.End, maxInvalidateFrames,
			)
			break
		}
		frameCount++
		p.cacheQueue.Append(r)
	}
	p.Statistics.QueueLength.Store(int64(p.cacheQueue.Len()))

	p.cacheNext(ctx, sendErr)
}

// cacheNext pops the next queued time and hands it to the master
// worker. No-op when there is nothing queued, nothing connected, or a
// master render is already in flight.
func (p *Pipeline) cacheNext(ctx context.Context, sendErr func(error)) {
	if p.caching && p.cacheGeneration != p.generation.Load() {
		// the render we were waiting for belongs to a stopped worker
		// set; its completion (and possibly the stop event itself)
		// is gone
		p.caching = false
	}
	input := p.GetInput()
	if p.cacheQueue.IsEmpty() || input == nil || p.caching {
		return
	}

	// make sure the workers are up
	if err := p.Start(ctx); err != nil {
		sendErr(err)
		return
	}

	cacheFrame, ok := p.cacheQueue.PopFront()
	if !ok {
		return
	}
	p.Statistics.QueueLength.Store(int64(p.cacheQueue.Len()))
	p.cacheFrame = cacheFrame

	logger.Debugf(ctx, "caching %v", cacheFrame.Float64())

	master := p.masterWorker(ctx)
	if master == nil {
		sendErr(errNoMasterWorker{})
		return
	}
	if !master.Queue(ctx, graph.Dependency{
		Node:  input,
		Range: types.TimeRangeAt(cacheFrame),
	}, true) {
		// only happens when ctx ended mid-send, we are shutting down
		return
	}

	p.cacheGeneration = p.generation.Load()
	p.caching = true
}

func (p *Pipeline) handleRenderFinished(
	ctx context.Context,
	ev eventRenderFinished,
	sendErr func(error),
) {
	if ev.Generation != p.generation.Load() {
		logger.Debugf(ctx, "dropping a render-finished event of generation %d", ev.Generation)
		return
	}
	// Only the master worker's master request advances the schedule;
	// sibling completions just warmed the graph.
	if !ev.Request.IsMaster || ev.WorkerIndex != 0 {
		return
	}

	p.caching = false
	p.Statistics.FramesRendered.Add(1)

	fn, err := p.CachePathName(ctx, p.cacheFrame)
	if err != nil {
		sendErr(err)
		p.cacheNext(ctx, sendErr)
		return
	}

	tex := p.evaluateTexture(ctx, p.cacheFrame)
	if tex == nil {
		// no content at this time: a stale cache file must go
		if _, err := os.Stat(fn); err == nil {
			if err := os.Remove(fn); err != nil {
				logger.Errorf(ctx, "unable to remove the stale cache file '%s': %v", fn, err)
			} else {
				p.Statistics.CacheDeletes.Add(1)
			}
		}
	} else {
		downloadWorkers := p.downloadWorkersSnapshot(ctx)
		if len(downloadWorkers) > 0 {
			downloadWorkers[p.lastDownloadWorker%len(downloadWorkers)].Queue(ctx, tex, fn)
			p.lastDownloadWorker++
		}
	}

	p.cacheNext(ctx, sendErr)
}

// evaluateTexture re-evaluates the input at t through the graph
// interface; the upstream node serves the just-rendered value. A nil
// result means the evaluation yielded no content.
func (p *Pipeline) evaluateTexture(ctx context.Context, t types.Rational) *texture.Texture {
	input := p.GetInput()
	if input == nil {
		return nil
	}
	params := p.GetParams(ctx)
	ctx = texture.CtxWithInstance(ctx, &texture.Instance{
		GPU:    p.cfg.GPU,
		Width:  params.EffectiveWidth(),
		Height: params.EffectiveHeight(),
		Format: params.Format,
		Mode:   params.Mode,
	})
	table, err := input.Value(ctx, types.TimeRangeAt(t))
	if err != nil {
		logger.Errorf(ctx, "unable to evaluate %s at %s: %v", input, t, err)
		return nil
	}
	tex, _ := table.Take(graph.ValueTypeTexture).(*texture.Texture)
	return tex
}

// handleSiblingRequested tries to queue the dependency on any worker
// with no pending work, so a graph fan-out is rendered in advance.
func (p *Pipeline) handleSiblingRequested(ctx context.Context, ev eventSiblingRequested) {
	if ev.Generation != p.generation.Load() {
		logger.Debugf(ctx, "dropping a sibling request of generation %d", ev.Generation)
		return
	}
	for _, w := range p.workersSnapshot(ctx) {
		if w.Queue(ctx, ev.Dep, false) {
			p.Statistics.SiblingsDispatched.Add(1)
			return
		}
	}
	p.Statistics.SiblingsRejected.Add(1)
	logger.Debugf(ctx, "all workers are busy, dropping the sibling request %s", ev.Dep)
}

// handleStopped resets mid-caching state after a Stop, so a later
// invalidation restarts the pipeline cleanly. Workers are not joined
// at Stop and may still trail events behind this one; the generation
// checks in the other handlers are what drop those.
func (p *Pipeline) handleStopped(ctx context.Context, ev eventStopped) {
	if ev.Generation != p.generation.Load() {
		return
	}
	p.caching = false
}

type errNoMasterWorker struct{}

func (errNoMasterWorker) Error() string {
	return "the pipeline has no master worker"
}
