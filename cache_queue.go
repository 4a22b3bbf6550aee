// cache_queue.go implements the queue of times pending render:
// strictly FIFO, with dedup on insert, consumed one entry at a time.

package rendercache

import (
	"github.com/xaionaro-go/rendercache/types"
)

// queued is keyed by the reduced fraction, so membership checks are
// O(1) and independent of how the time was spelled (2/48 == 1/24).
type cacheQueue struct {
	entries []types.Rational
	queued  map[types.Rational]struct{}
}

func (q *cacheQueue) Contains(t types.Rational) bool {
	_, ok := q.queued[t.Reduce()]
	return ok
}

// Append adds t to the back of the queue unless an equal time is
// already queued; it reports whether the queue grew.
func (q *cacheQueue) Append(t types.Rational) bool {
	key := t.Reduce()
	if _, ok := q.queued[key]; ok {
		return false
	}
	if q.queued == nil {
		q.queued = map[types.Rational]struct{}{}
	}
	q.queued[key] = struct{}{}
	q.entries = append(q.entries, t)
	return true
}

func (q *cacheQueue) PopFront() (types.Rational, bool) {
	if len(q.entries) == 0 {
		return types.Rational{}, false
	}
	t := q.entries[0]
	q.entries = q.entries[1:]
	delete(q.queued, t.Reduce())
	return t, true
}

func (q *cacheQueue) Len() int {
	return len(q.entries)
}

func (q *cacheQueue) IsEmpty() bool {
	return len(q.entries) == 0
}
