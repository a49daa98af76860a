package pipeline

import (
	"context"
	"testing"
	"time"
)

func TestCollectBatchRespectsMax(t *testing.T) {
	ch := make(chan Task, 10)
	for i := 0; i < 5; i++ {
		ch <- Task{Target: string(rune('a' + i))}
	}
	ctx := context.Background()
	batch := collectBatch(ctx, ch, 3, 500*time.Millisecond)
	if len(batch) != 3 {
		t.Fatalf("len(batch) = %d, want 3", len(batch))
	}
}

func TestCollectBatchFlushesOnWindow(t *testing.T) {
	ch := make(chan Task, 10)
	ch <- Task{Target: "only"}
	ctx := context.Background()
	start := time.Now()
	batch := collectBatch(ctx, ch, -1, 50*time.Millisecond)
	if len(batch) != 1 {
		t.Fatalf("len(batch) = %d, want 1", len(batch))
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("returned before window elapsed: %v", elapsed)
	}
}

func TestCollectBatchCancelled(t *testing.T) {
	ch := make(chan Task)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if batch := collectBatch(ctx, ch, -1, time.Second); batch != nil {
		t.Errorf("expected nil batch on pre-cancelled context, got %v", batch)
	}
}
