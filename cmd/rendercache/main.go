package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/rendercache"
	"github.com/xaionaro-go/rendercache/audio"
	"github.com/xaionaro-go/rendercache/demo"
	"github.com/xaionaro-go/rendercache/graph"
	"github.com/xaionaro-go/rendercache/monitor"
	"github.com/xaionaro-go/rendercache/texture"
	"github.com/xaionaro-go/rendercache/timeline"
	"github.com/xaionaro-go/rendercache/types"
	"github.com/xaionaro-go/rendercache/watcher"
)

func main() {
	// the environment file is optional
	_ = godotenv.Load()

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [flags] <cache-dir>\n", os.Args[0])
		pflag.PrintDefaults()
	}

	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	metricsAddr := pflag.String("metrics-listen-addr", "", "an address to serve Prometheus metrics on")
	width := pflag.Int("width", 1280, "output width")
	height := pflag.Int("height", 720, "output height")
	divider := pflag.Int("divider", 1, "resolution divider (preview quality)")
	workerCount := pflag.Int("workers", 0, "render worker count; 0 means one per CPU")
	fps := pflag.Int64("fps", 24, "timebase, frames per second")
	durationSecs := pflag.Int64("duration", 2, "how many seconds of timeline to cache")
	watchPaths := pflag.StringSlice("watch", nil, "files/directories whose changes invalidate the cache")

	pflag.Parse()
	if len(pflag.Args()) != 1 {
		pflag.Usage()
		os.Exit(1)
	}
	cacheDir := pflag.Arg(0)

	// init the context

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) {
			logger.Error(ctx, http.ListenAndServe(*netPprofAddr, nil))
		})
	}

	// the pipeline

	p := rendercache.New(ctx, rendercache.Config{
		CacheRoot:   cacheDir,
		GPU:         texture.NewSoftwareContext(),
		WorkerCount: *workerCount,
	})
	p.SetCacheName(ctx, "demo")
	p.SetTimebase(ctx, types.NewRational(1, *fps))
	p.SetParameters(ctx, *width, *height, types.PixelFormatRGBA8, types.RenderModeOffline, *divider)
	p.SetLength(ctx, types.NewRational(*durationSecs, 1))
	defer p.Stop(ctx)

	// the graph: a gradient background with a blurred gradient on top

	p.SetInput(ctx, demo.NewStack(
		demo.NewGradient(),
		demo.NewBlur(demo.NewGradient(), 4),
	))

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", monitor.New(p).Handler())
		observability.Go(ctx, func(ctx context.Context) {
			logger.Error(ctx, http.ListenAndServe(*metricsAddr, mux))
		})
	}

	if len(*watchPaths) > 0 {
		w, err := watcher.New(ctx, p)
		assert(ctx, err == nil, err)
		defer w.Close(ctx)
		for _, path := range *watchPaths {
			err := w.Add(ctx, path)
			assert(ctx, err == nil, err)
		}
	}

	errCh := make(chan rendercache.Error, 16)
	observability.Go(ctx, func(ctx context.Context) {
		for err := range errCh {
			logger.Errorf(ctx, "got a pipeline error: %v", err)
		}
	})
	observability.Go(ctx, func(ctx context.Context) {
		p.Serve(ctx, errCh)
	})

	// cache the whole requested range and wait for the queue to drain

	end := types.NewRational(*durationSecs, 1)
	p.InvalidateCache(ctx, types.NewRational(0, 1), end)

	expectedFrames := uint64(*durationSecs**fps + 1)
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for range t.C {
		stats := p.GetStats()
		if stats.FramesRendered >= expectedFrames && stats.QueueLength == 0 {
			break
		}
	}
	logger.Infof(ctx, "cached %d frames: %#+v", expectedFrames, *p.GetStats())

	// read one frame back through the cache

	tex, err := p.Query(ctx, types.NewRational(1, *fps))
	assert(ctx, err == nil, err)
	assert(ctx, tex != nil)
	logger.Infof(ctx, "queried one frame back from the cache: %s", tex)

	// and a bit of audio, for good measure

	audioParams := audio.Params{
		SampleRate: 48000,
		Channels:   2,
		Format:     audio.SampleFormatS16,
	}
	track := timeline.NewTrack("demo audio")
	track.AddBlock(ctx, timeline.NewBlock(
		demo.NewTone(audioParams, 440),
		types.NewRational(0, 1),
		end,
	))
	mixer := audio.NewMixer(audioParams)
	table, err := mixer.RenderBlock(ctx, track, types.TimeRange{
		In:  types.NewRational(0, 1),
		Out: end,
	})
	assert(ctx, err == nil, err)
	samples, _ := table.Take(graph.ValueTypeSamples).([]byte)
	logger.Infof(ctx, "mixed %d bytes of audio", len(samples))
}
