// render_worker.go implements one video-render worker: a dedicated
// goroutine bound to the pipeline's rendering context, with a bounded
// task queue, evaluating graph dependencies into textures.

package rendercache

import (
	"context"
	"runtime/debug"
	"sync/atomic"

	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/rendercache/graph"
	"github.com/xaionaro-go/rendercache/logger"
	"github.com/xaionaro-go/rendercache/texture"
)

type renderRequest struct {
	Dep      graph.Dependency
	IsMaster bool
}

type renderWorker struct {
	index      int
	generation uint64
	gpu        texture.Context
	params     Params

	requests     chan renderRequest
	pendingCount atomic.Int32
	eventCh      chan<- pipelineEvent
}

var _ graph.SiblingRequester = (*renderWorker)(nil)

func newRenderWorker(
	index int,
	generation uint64,
	gpu texture.Context,
	params Params,
	eventCh chan<- pipelineEvent,
) *renderWorker {
	return &renderWorker{
		index:      index,
		generation: generation,
		gpu:        gpu,
		params:     params,
		requests:   make(chan renderRequest, renderWorkerQueueSize),
		eventCh:    eventCh,
	}
}

const renderWorkerQueueSize = 16

func (w *renderWorker) start(ctx context.Context) {
	observability.Go(ctx, func(ctx context.Context) {
		w.serve(ctx)
	})
}

// Queue hands a dependency to this worker. A non-master request is
// rejected when the worker already has pending work, so speculative
// load spreads across the pool; a master request waits for the queue
// slot (the control loop keeps at most one master in flight, so the
// wait is nominal) and fails only when ctx ends.
func (w *renderWorker) Queue(
	ctx context.Context,
	dep graph.Dependency,
	isMaster bool,
) bool {
	if !isMaster && w.pendingCount.Load() > 0 {
		return false
	}
	w.pendingCount.Add(1)
	req := renderRequest{Dep: dep, IsMaster: isMaster}
	if isMaster {
		select {
		case w.requests <- req:
			return true
		case <-ctx.Done():
			w.pendingCount.Add(-1)
			return false
		}
	}
	select {
	case w.requests <- req:
		return true
	default:
		w.pendingCount.Add(-1)
		logger.Errorf(ctx, "render worker %d: task queue is full", w.index)
		return false
	}
}

// RequestSibling forwards a fan-out dependency discovered during an
// evaluation to the control loop, which tries to place it on an idle
// worker. Never blocks.
func (w *renderWorker) RequestSibling(dep graph.Dependency) {
	select {
	case w.eventCh <- eventSiblingRequested{Generation: w.generation, Dep: dep}:
	default:
	}
}

func (w *renderWorker) serve(ctx context.Context) {
	ctx = belt.WithField(ctx, "render_worker", w.index)
	logger.Debugf(ctx, "serve")
	defer func() { logger.Debugf(ctx, "/serve") }()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.Errorf(ctx, "got panic in render worker %d: %v:\n%s\n", w.index, r, debug.Stack())
	}()

	evalCtx := graph.CtxWithSiblingRequester(ctx, w)
	evalCtx = texture.CtxWithInstance(evalCtx, &texture.Instance{
		GPU:    w.gpu,
		Width:  w.params.EffectiveWidth(),
		Height: w.params.EffectiveHeight(),
		Format: w.params.Format,
		Mode:   w.params.Mode,
	})
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.requests:
			w.process(evalCtx, req)
		}
	}
}

func (w *renderWorker) process(ctx context.Context, req renderRequest) {
	logger.Tracef(ctx, "process: %s (master: %t)", req.Dep, req.IsMaster)
	defer func() { logger.Tracef(ctx, "/process: %s", req.Dep) }()
	defer w.pendingCount.Add(-1)

	// An empty result means "no content at this time"; only real
	// evaluation failures are logged.
	if _, err := req.Dep.Node.Value(ctx, req.Dep.Range); err != nil {
		logger.Errorf(ctx, "unable to evaluate %s: %v", req.Dep, err)
	}

	select {
	case w.eventCh <- eventRenderFinished{
		Generation:  w.generation,
		WorkerIndex: w.index,
		Request:     req,
	}:
	case <-ctx.Done():
	}
}
