package worker

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AndrewDonelson/lyric-frame-studio/pkg/frame"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/storage"
)

// FrameTask is one frame of a batch
type FrameTask struct {
	Index   int
	Request frame.Request
	Key     string
}

// FrameResult is the outcome of one FrameTask
type FrameResult struct {
	Index int
	Key   string
	Lines int
	Err   error
}

// RenderBatch renders tasks on up to workers goroutines. Each frame gets its
// own font face and buffers, and a failed frame does not stop the others.
// onDone, if set, is called once per task with the number finished so far;
// calls are serialized.
func RenderBatch(ctx context.Context, c *frame.Compositor, sink storage.Sink, tasks []FrameTask, workers int, onDone func(done int, r FrameResult)) []FrameResult {
	if workers <= 0 {
		workers = 1
	}
	results := make([]FrameResult, len(tasks))

	var (
		mu   sync.Mutex
		done int
	)
	finish := func(i int, r FrameResult) {
		mu.Lock()
		defer mu.Unlock()
		results[i] = r
		done++
		if onDone != nil {
			onDone(done, r)
		}
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, task := range tasks {
		g.Go(func() error {
			r := FrameResult{Index: task.Index, Key: task.Key}
			if err := ctx.Err(); err != nil {
				r.Err = err
				finish(i, r)
				return nil
			}
			r.Lines, r.Err = renderOne(ctx, c, sink, task)
			finish(i, r)
			return nil
		})
	}
	g.Wait()
	return results
}

// renderOne renders a single task. A panic becomes that frame's error so
// one bad frame cannot take down the batch or the process.
func renderOne(ctx context.Context, c *frame.Compositor, sink storage.Sink, task FrameTask) (lines int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("frame %d panicked: %v", task.Index, p)
		}
	}()

	fr, err := c.RenderTo(ctx, task.Request, sink, task.Key)
	if err != nil {
		return 0, err
	}
	return len(fr.Lines), nil
}

// FirstError returns the failed result with the lowest index, if any
func FirstError(results []FrameResult) (FrameResult, bool) {
	for _, r := range results {
		if r.Err != nil {
			return r, true
		}
	}
	return FrameResult{}, false
}

// FailedCount returns how many results carry an error
func FailedCount(results []FrameResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
