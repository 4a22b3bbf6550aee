package rendercache

import (
	"sync/atomic"
)

// Statistics are the pipeline's atomic counters. They are written
// from worker threads and the control loop and may be read from
// anywhere.
type Statistics struct {
	FramesRendered     atomic.Uint64
	SiblingsDispatched atomic.Uint64
	SiblingsRejected   atomic.Uint64
	CacheWrites        atomic.Uint64
	CacheWriteErrors   atomic.Uint64
	CacheDeletes       atomic.Uint64
	QueryHits          atomic.Uint64
	QueryMisses        atomic.Uint64
	QueueLength        atomic.Int64
}

// StatisticsSnapshot is a plain-value copy of Statistics.
type StatisticsSnapshot struct {
	FramesRendered     uint64
	SiblingsDispatched uint64
	SiblingsRejected   uint64
	CacheWrites        uint64
	CacheWriteErrors   uint64
	CacheDeletes       uint64
	QueryHits          uint64
	QueryMisses        uint64
	QueueLength        int64
}

func (s *Statistics) Convert() StatisticsSnapshot {
	return StatisticsSnapshot{
		FramesRendered:     s.FramesRendered.Load(),
		SiblingsDispatched: s.SiblingsDispatched.Load(),
		SiblingsRejected:   s.SiblingsRejected.Load(),
		CacheWrites:        s.CacheWrites.Load(),
		CacheWriteErrors:   s.CacheWriteErrors.Load(),
		CacheDeletes:       s.CacheDeletes.Load(),
		QueryHits:          s.QueryHits.Load(),
		QueryMisses:        s.QueryMisses.Load(),
		QueueLength:        s.QueueLength.Load(),
	}
}

func (p *Pipeline) GetStats() *StatisticsSnapshot {
	return ptr(p.Statistics.Convert())
}
