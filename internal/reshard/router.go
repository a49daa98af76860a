package reshard

import (
	"context"
	"sync"
	"time"
)

// routerParallelism is fixed per spec.md §4.4: 5 concurrent slot
// migrations, matching the source's routing pool.
const routerParallelism = 5

// MigrateFunc performs one slot's migration. It is supplied by the caller
// so Router stays decoupled from Migrator for testing.
type MigrateFunc func(ctx context.Context, slot int, srcID, dstID string) error

// job is one scheduled slot migration.
type job struct {
	slot  int
	srcID string
}

// Router drives a full Table through a migrate function with a fixed
// parallelism of 5, request/response: it answers with a single error (or
// nil) only after every slot has settled. An error is aggregated only when
// a migration raises outside what §4.3's classification already absorbed
// (e.g. a connection-cache miss bubbling up as a plain error).
type Router struct {
	Timeout time.Duration
}

// NewRouter builds a Router with the given whole-reshard timeout.
func NewRouter(timeout time.Duration) *Router {
	return &Router{Timeout: timeout}
}

// Run drives table through migrate with 5-wide bounded parallelism,
// aggregating the first non-nil error. Ordering across slots is
// unconstrained (spec.md §5); within one slot, migrate is expected to
// serialize SETSLOT before MIGRATE itself (Migrator does this).
func (r *Router) Run(parent context.Context, table Table, targetID string, migrate MigrateFunc) error {
	ctx := parent
	var cancel context.CancelFunc
	if r.Timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, r.Timeout)
		defer cancel()
	}

	jobs := make(chan job)
	go func() {
		defer close(jobs)
		for srcID, slots := range table {
			for _, slot := range slots {
				select {
				case jobs <- job{slot: slot, srcID: srcID}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	errCh := make(chan error, routerParallelism)
	var wg sync.WaitGroup
	for i := 0; i < routerParallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := migrate(ctx, j.slot, j.srcID, targetID); err != nil {
					select {
					case errCh <- err:
					default:
					}
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		select {
		case err := <-errCh:
			return err
		default:
			return nil
		}
	case <-ctx.Done():
		if parent.Err() == nil {
			return &ReshardTimeoutError{Elapsed: r.Timeout.String()}
		}
		return ctx.Err()
	}
}
