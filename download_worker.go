// download_worker.go implements the pool that pulls rendered
// textures back to host memory and persists them into the frame
// cache, asynchronously from render completion.

package rendercache

import (
	"context"
	"runtime/debug"

	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/rendercache/frame"
	"github.com/xaionaro-go/rendercache/imagecodec"
	"github.com/xaionaro-go/rendercache/logger"
	"github.com/xaionaro-go/rendercache/texture"
)

type downloadJob struct {
	Texture *texture.Texture
	Path    string
}

type downloadWorker struct {
	index int
	jobs  chan downloadJob
	stats *Statistics
}

const downloadWorkerQueueSize = 64

func newDownloadWorker(index int, stats *Statistics) *downloadWorker {
	return &downloadWorker{
		index: index,
		jobs:  make(chan downloadJob, downloadWorkerQueueSize),
		stats: stats,
	}
}

func (w *downloadWorker) start(ctx context.Context) {
	observability.Go(ctx, func(ctx context.Context) {
		w.serve(ctx)
	})
}

// Queue enqueues an asynchronous "download this texture and write it
// to path" job. Never blocks; an overflowing queue is counted as a
// failed write (the next read-query will just cache-miss).
func (w *downloadWorker) Queue(
	ctx context.Context,
	tex *texture.Texture,
	path string,
) {
	select {
	case w.jobs <- downloadJob{Texture: tex, Path: path}:
	default:
		logger.Errorf(ctx, "download worker %d: job queue is full, dropping '%s'", w.index, path)
		w.stats.CacheWriteErrors.Add(1)
	}
}

func (w *downloadWorker) serve(ctx context.Context) {
	ctx = belt.WithField(ctx, "download_worker", w.index)
	logger.Debugf(ctx, "serve")
	defer func() { logger.Debugf(ctx, "/serve") }()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.Errorf(ctx, "got panic in download worker %d: %v:\n%s\n", w.index, r, debug.Stack())
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-w.jobs:
			w.process(ctx, job)
		}
	}
}

// process downloads the texture and writes the cache file. Failures
// are logged but never surfaced to the scheduler: a failed write
// simply means the next query cache-misses, and a re-invalidation
// eventually re-renders the frame.
func (w *downloadWorker) process(ctx context.Context, job downloadJob) {
	logger.Tracef(ctx, "process: '%s'", job.Path)
	defer func() { logger.Tracef(ctx, "/process: '%s'", job.Path) }()

	f := frame.Pool.Get()
	defer frame.Pool.Put(f)

	if err := job.Texture.Download(ctx, f); err != nil {
		logger.Errorf(ctx, "unable to download %s: %v", job.Texture, err)
		w.stats.CacheWriteErrors.Add(1)
		return
	}

	if err := imagecodec.WriteFile(ctx, job.Path, f); err != nil {
		logger.Errorf(ctx, "unable to write '%s': %v", job.Path, err)
		w.stats.CacheWriteErrors.Add(1)
		return
	}
	w.stats.CacheWrites.Add(1)
}
