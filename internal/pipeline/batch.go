package pipeline

import (
	"context"
	"time"
)

// collectWindow blocks for the first Task, then keeps draining ch for up
// to window beyond that first arrival, with no count cap — the
// batch-within-batchPeriod discipline of §3's invariant ("other stages
// batch within batchPeriod") for stages with no stated batch-size cap.
func collectWindow(ctx context.Context, ch <-chan Task, window time.Duration) []Task {
	return collectBatch(ctx, ch, -1, window)
}

// collectBatch blocks for the first Task, then keeps draining ch until
// either max items have been collected (max < 0 means unbounded) or window
// has elapsed since the first item arrived, whichever comes first.
func collectBatch(ctx context.Context, ch <-chan Task, max int, window time.Duration) []Task {
	var batch []Task
	select {
	case t := <-ch:
		batch = append(batch, t)
	case <-ctx.Done():
		return nil
	}

	timer := time.NewTimer(window)
	defer timer.Stop()
	for max < 0 || len(batch) < max {
		select {
		case t := <-ch:
			batch = append(batch, t)
		case <-timer.C:
			return batch
		case <-ctx.Done():
			return batch
		}
	}
	return batch
}
