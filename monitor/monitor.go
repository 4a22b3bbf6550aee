// Package monitor exposes the statistics of a render/cache pipeline
// as Prometheus metrics over HTTP.
package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xaionaro-go/rendercache"
)

// Monitor holds a private Prometheus registry wired to one pipeline's
// counters. The metrics are pull-based: every scrape reads the current
// atomic counter values, so there is nothing to push and nothing to
// keep in sync.
type Monitor struct {
	registry *prometheus.Registry
}

func New(p *rendercache.Pipeline) *Monitor {
	registry := prometheus.NewRegistry()

	counter := func(name, help string, load func() uint64) {
		registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: name,
			Help: help,
		}, func() float64 {
			return float64(load())
		}))
	}

	counter(
		"rendercache_frames_rendered_total",
		"Total number of master frames rendered",
		p.Statistics.FramesRendered.Load,
	)
	counter(
		"rendercache_siblings_dispatched_total",
		"Total number of sibling render requests placed on an idle worker",
		p.Statistics.SiblingsDispatched.Load,
	)
	counter(
		"rendercache_siblings_rejected_total",
		"Total number of sibling render requests dropped because every worker was busy",
		p.Statistics.SiblingsRejected.Load,
	)
	counter(
		"rendercache_cache_writes_total",
		"Total number of frames written to the on-disk cache",
		p.Statistics.CacheWrites.Load,
	)
	counter(
		"rendercache_cache_write_errors_total",
		"Total number of failed cache writes",
		p.Statistics.CacheWriteErrors.Load,
	)
	counter(
		"rendercache_cache_deletes_total",
		"Total number of stale cache files deleted",
		p.Statistics.CacheDeletes.Load,
	)
	counter(
		"rendercache_query_hits_total",
		"Total number of cache queries answered from disk",
		p.Statistics.QueryHits.Load,
	)
	counter(
		"rendercache_query_misses_total",
		"Total number of cache queries with no usable cache file",
		p.Statistics.QueryMisses.Load,
	)
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "rendercache_queue_length",
		Help: "Number of frame times currently queued for caching",
	}, func() float64 {
		return float64(p.Statistics.QueueLength.Load())
	}))

	return &Monitor{registry: registry}
}

// Handler returns the HTTP handler serving the metrics.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
