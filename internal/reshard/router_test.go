package reshard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRouterMigratesEverySlot(t *testing.T) {
	table := Table{
		"m1": {1, 2, 3},
		"m2": {4, 5},
	}
	var count int32
	migrate := func(ctx context.Context, slot int, srcID, dstID string) error {
		atomic.AddInt32(&count, 1)
		return nil
	}
	r := NewRouter(time.Second)
	if err := r.Run(context.Background(), table, "target", migrate); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if count != 5 {
		t.Errorf("migrated %d slots, want 5", count)
	}
}

func TestRouterPropagatesFirstError(t *testing.T) {
	table := Table{"m1": {1, 2, 3}}
	boom := errors.New("boom")
	migrate := func(ctx context.Context, slot int, srcID, dstID string) error {
		if slot == 2 {
			return boom
		}
		return nil
	}
	r := NewRouter(time.Second)
	err := r.Run(context.Background(), table, "target", migrate)
	if err == nil {
		t.Fatal("expected an error to propagate")
	}
}

func TestRouterTimesOut(t *testing.T) {
	table := Table{"m1": {1, 2, 3, 4, 5, 6}}
	migrate := func(ctx context.Context, slot int, srcID, dstID string) error {
		<-ctx.Done()
		return ctx.Err()
	}
	r := NewRouter(20 * time.Millisecond)
	err := r.Run(context.Background(), table, "target", migrate)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	var timeoutErr *ReshardTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Errorf("expected *ReshardTimeoutError, got %T: %v", err, err)
	}
}
