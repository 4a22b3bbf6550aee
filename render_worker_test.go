package rendercache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/rendercache/graph"
)

func TestRenderWorkerMasterQueueWaits(t *testing.T) {
	ctx := context.Background()
	w := newRenderWorker(0, 0, nil, Params{}, make(chan pipelineEvent, 1))

	// saturate the task queue with speculative work
	for i := 0; i < renderWorkerQueueSize; i++ {
		w.requests <- renderRequest{}
	}

	// a sibling request bounces off a full queue
	require.False(t, w.Queue(ctx, graph.Dependency{Node: &testSource{}}, false))

	// a master request waits for a slot instead of being dropped
	done := make(chan bool)
	go func() { done <- w.Queue(ctx, graph.Dependency{Node: &testSource{}}, true) }()
	select {
	case <-done:
		t.Fatal("the master request must not fail while the queue is full")
	case <-time.After(50 * time.Millisecond):
	}
	<-w.requests
	require.True(t, <-done)

	// it gives up only when ctx ends
	canceledCtx, cancelFn := context.WithCancel(ctx)
	cancelFn()
	require.False(t, w.Queue(canceledCtx, graph.Dependency{Node: &testSource{}}, true))
	require.EqualValues(t, 1, w.pendingCount.Load(), "a failed queue attempt must roll its pending slot back")
}
