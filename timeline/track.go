package timeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/xaionaro-go/rendercache/logger"
	"github.com/xaionaro-go/rendercache/types"
	"github.com/xaionaro-go/xsync"
)

// Track is an ordered collection of blocks on one time axis. It is
// safe for concurrent use: the mixer queries it from worker threads
// while the editor mutates it.
type Track struct {
	Name   string
	Locker xsync.Mutex

	blocks []*Block
}

func NewTrack(name string) *Track {
	return &Track{Name: name}
}

func (t *Track) String() string {
	return fmt.Sprintf("Track<%s>", t.Name)
}

func (t *Track) AddBlock(ctx context.Context, b *Block) {
	logger.Tracef(ctx, "AddBlock: %s", b)
	defer func() { logger.Tracef(ctx, "/AddBlock: %s", b) }()
	t.Locker.Do(ctx, func() {
		t.blocks = append(t.blocks, b)
		sort.SliceStable(t.blocks, func(i, j int) bool {
			return t.blocks[i].In.Less(t.blocks[j].In)
		})
	})
}

func (t *Track) RemoveBlock(ctx context.Context, b *Block) {
	logger.Tracef(ctx, "RemoveBlock: %s", b)
	defer func() { logger.Tracef(ctx, "/RemoveBlock: %s", b) }()
	t.Locker.Do(ctx, func() {
		for i, cur := range t.blocks {
			if cur == b {
				t.blocks = append(t.blocks[:i], t.blocks[i+1:]...)
				return
			}
		}
	})
}

// BlocksAtTimeRange returns the blocks overlapping the half-open
// range r, ordered by their in-points.
func (t *Track) BlocksAtTimeRange(
	ctx context.Context,
	r types.TimeRange,
) []*Block {
	return xsync.DoR1(ctx, &t.Locker, func() []*Block {
		var result []*Block
		for _, b := range t.blocks {
			if b.Range().Overlaps(r) {
				result = append(result, b)
			}
		}
		return result
	})
}

func (t *Track) BlockCount(ctx context.Context) int {
	return xsync.DoR1(ctx, &t.Locker, func() int {
		return len(t.blocks)
	})
}
