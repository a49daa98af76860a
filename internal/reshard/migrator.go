package reshard

import (
	"context"
	"strings"
	"time"

	"rcshard/internal/logger"
	"rcshard/internal/redisclient"
)

// recoveryAction names how migrateSlot reacts to a classified MIGRATE
// error. Order matters: classify scans the table top-to-bottom and the
// first substring match wins — this is a contract, not an implementation
// detail (spec.md §4.3, §8.7).
type recoveryAction int

const (
	actionRetryReplace recoveryAction = iota
	actionReacquireAndRetry
	actionAbsorb
)

type classificationRow struct {
	substring string
	action    recoveryAction
}

// classificationTable is scanned in order; case-insensitive substring match.
var classificationTable = []classificationRow{
	{"BUSYKEY", actionRetryReplace},
	{"CLUSTERDOWN", actionReacquireAndRetry},
	{"MOVED", actionAbsorb},
}

// classify returns the recovery action for err's string form. An error
// matching none of the named rows is absorbed too (spec.md's "any other"
// row) — the distinction only matters for logging, not control flow.
func classify(err error) (recoveryAction, bool) {
	msg := strings.ToUpper(err.Error())
	for _, row := range classificationTable {
		if strings.Contains(msg, row.substring) {
			return row.action, true
		}
	}
	return actionAbsorb, false
}

// MigrateClient is the subset of *redisclient.Client the per-slot migration
// protocol drives. It exists as a seam so tests can stub MIGRATE's
// error-class-dependent recovery (BUSYKEY, CLUSTERDOWN, MOVED) without a
// live cluster — the same reason Router takes a MigrateFunc instead of a
// concrete type.
type MigrateClient interface {
	SetSlotImporting(ctx context.Context, addr string, slot int, srcID string) error
	SetSlotMigrating(ctx context.Context, addr string, slot int, dstID string) error
	CountKeysInSlot(ctx context.Context, addr string, slot int) (int64, error)
	GetKeysInSlot(ctx context.Context, addr string, slot, count int) ([]string, error)
	Migrate(ctx context.Context, addr, destAddr string, keys []string, replace bool, timeout time.Duration) error
	SetSlotNode(ctx context.Context, addr string, slot int, ownerID string) error
	DropConnection(addr string)
}

// Migrator executes the per-slot migration protocol end to end.
type Migrator struct {
	Client           MigrateClient
	MigrateTimeout   time.Duration
	importingBackoff time.Duration
}

// NewMigrator builds a Migrator with the given per-slot MIGRATE deadline.
func NewMigrator(client MigrateClient, migrateTimeout time.Duration) *Migrator {
	return &Migrator{
		Client:           client,
		MigrateTimeout:   migrateTimeout,
		importingBackoff: 200 * time.Millisecond,
	}
}

// MigrateSlot runs the four-step protocol of spec.md §4.3 for a single
// slot: set slot assignment, move keys, notify owners. masters is the live
// master set snapshot taken at reshard start; cache resolves node-ids to
// addresses. On CLUSTERDOWN recovery the source and destination
// connections are dropped from the client's pool and redialed by the
// retried MIGRATE; the cache itself is not rebuilt.
func (m *Migrator) MigrateSlot(ctx context.Context, slot int, srcID, dstID, dstURI string, masters []redisclient.NodeInfo, cache *ConnectionCache) error {
	if srcID == dstID {
		logger.Warn("reshard: slot %d already owned by target %s, skipping", slot, dstID)
		return nil
	}

	srcAddr, ok := cache.Addr(srcID)
	if !ok {
		return &SlotMigrationError{Slot: slot, Err: errNodeNotCached(srcID)}
	}
	dstAddr, ok := cache.Addr(dstID)
	if !ok {
		return &SlotMigrationError{Slot: slot, Err: errNodeNotCached(dstID)}
	}
	if dstURI == "" {
		dstURI = dstAddr
	}

	if err := m.setSlotAssignment(ctx, slot, srcID, dstID, srcAddr, dstAddr); err != nil {
		return &SlotMigrationError{Slot: slot, Err: err}
	}

	if err := m.moveKeys(ctx, slot, srcAddr, dstURI); err != nil {
		return err
	}

	if err := m.notifyOwners(ctx, slot, dstID, masters); err != nil {
		return &SlotMigrationError{Slot: slot, Err: err}
	}

	return nil
}

// setSlotAssignment sets IMPORTING on the destination and MIGRATING on the
// source. Per spec.md §4.3 step 2 this retries the pair indefinitely —
// nothing downstream can proceed without it — bounded only by ctx.
func (m *Migrator) setSlotAssignment(ctx context.Context, slot int, srcID, dstID, srcAddr, dstAddr string) error {
	for {
		importErr := m.Client.SetSlotImporting(ctx, dstAddr, slot, srcID)
		migrateErr := m.Client.SetSlotMigrating(ctx, srcAddr, slot, dstID)
		if importErr == nil && migrateErr == nil {
			return nil
		}
		logger.Warn("reshard: slot %d SETSLOT IMPORTING/MIGRATING retry (importErr=%v migrateErr=%v)", slot, importErr, migrateErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.importingBackoff):
		}
	}
}

// moveKeys performs §4.3 step 3 (COUNT, GETKEYS, MIGRATE) with
// error-class-dependent recovery.
func (m *Migrator) moveKeys(ctx context.Context, slot int, srcAddr, dstURI string) error {
	replace := false
	for {
		count, err := m.Client.CountKeysInSlot(ctx, srcAddr, slot)
		if err != nil {
			return &SlotMigrationError{Slot: slot, Err: err}
		}
		if count == 0 {
			return nil
		}
		keys, err := m.Client.GetKeysInSlot(ctx, srcAddr, slot, int(count))
		if err != nil {
			return &SlotMigrationError{Slot: slot, Err: err}
		}

		migrateCtx := ctx
		var cancel context.CancelFunc
		if m.MigrateTimeout > 0 {
			migrateCtx, cancel = context.WithTimeout(ctx, m.MigrateTimeout)
		}
		err = m.Client.Migrate(migrateCtx, srcAddr, dstURI, keys, replace, m.MigrateTimeout)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return nil
		}
		if migrateCtx.Err() == context.DeadlineExceeded {
			return &SlotMigrationError{Slot: slot, Err: migrateCtx.Err()}
		}

		action, matched := classify(err)
		if !matched {
			logger.Info("reshard: slot %d MIGRATE error %v absorbed (unclassified)", slot, err)
			return nil
		}
		switch action {
		case actionRetryReplace:
			logger.Warn("reshard: slot %d MIGRATE BUSYKEY, reissuing with REPLACE", slot)
			replace = true
			continue
		case actionReacquireAndRetry:
			logger.Warn("reshard: slot %d MIGRATE CLUSTERDOWN, reacquiring connections", slot)
			m.Client.DropConnection(srcAddr)
			m.Client.DropConnection(dstURI)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.importingBackoff):
			}
			continue
		case actionAbsorb:
			logger.Info("reshard: slot %d MIGRATE error %v absorbed (MOVED or non-fatal)", slot, err)
			return nil
		}
	}
}

// notifyOwners performs §4.3 step 4: tell every live master who owns the
// slot now.
func (m *Migrator) notifyOwners(ctx context.Context, slot int, dstID string, masters []redisclient.NodeInfo) error {
	for _, node := range masters {
		if err := m.Client.SetSlotNode(ctx, node.Addr, slot, dstID); err != nil {
			return err
		}
	}
	return nil
}

type nodeNotCachedError struct{ nodeID string }

func (e *nodeNotCachedError) Error() string {
	return "reshard: node " + e.nodeID + " has no cached connection"
}

func errNodeNotCached(nodeID string) error { return &nodeNotCachedError{nodeID: nodeID} }
