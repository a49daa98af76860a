package pipeline

import (
	"context"
	"sort"

	"rcshard/internal/logger"
	"rcshard/internal/redisclient"
	"rcshard/internal/reshard"
	"rcshard/internal/state"
)

// runReshard is stageReshard (§4.5): rate-limited to one per
// reshard.interval, it either drains a master being removed (DrainNodeID
// set) or rebalances slots toward a freshly added master (NewMasterURI
// set), then hands the computed table to the MigrationRouter.
func (p *Pipeline) runReshard(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-p.reshardCh:
			if err := p.reshardLimiter.Wait(ctx); err != nil {
				t.replyErr(err)
				return
			}
			if t.DrainNodeID != "" {
				p.handleDrainReshard(ctx, t)
			} else {
				p.handleAddReshard(ctx, t)
			}
		}
	}
}

func (p *Pipeline) handleAddReshard(ctx context.Context, t Task) {
	if p.store != nil {
		_ = p.store.UpdateReshard(t.NewMasterURI, t.NewMasterURI, 0, "planning", "")
		_ = p.store.RecordMetric(state.MetricReshardsInFlight, 1)
	}

	if err := p.waitClusterStateOK(ctx, t.NewMasterURI); err != nil {
		t.replyErr(err)
		p.recordFailure()
		return
	}

	topology, err := p.client.Topology(ctx)
	if err != nil {
		t.replyErr(err)
		p.recordFailure()
		return
	}
	target, ok := redisclient.ByURI(topology, t.NewMasterURI)
	if !ok {
		t.replyErr(&redisclient.NodeNotInCluster{URI: t.NewMasterURI})
		p.recordFailure()
		return
	}

	var sources []redisclient.NodeInfo
	for _, n := range redisclient.Masters(topology) {
		if n.ID != target.ID {
			sources = append(sources, n)
		}
	}

	table, err := p.planWithRetry(sources)
	if err != nil {
		t.replyErr(err)
		p.recordFailure()
		return
	}

	if err := p.runMigration(ctx, topology, table, target.ID, t.NewMasterURI); err != nil {
		t.replyErr(err)
		p.recordFailure()
		return
	}

	if p.store != nil {
		_ = p.store.UpdateReshard(t.NewMasterURI, t.NewMasterURI, table.TotalSlots(), "succeeded", "")
		_ = p.store.RecordSlotsMigrated(table.TotalSlots())
	}
	t.replyOK("master", t.NewMasterURI)
	p.recordSuccess()
}

func (p *Pipeline) handleDrainReshard(ctx context.Context, t Task) {
	topology, err := p.client.Topology(ctx)
	if err != nil {
		t.replyErr(err)
		p.recordFailure()
		return
	}
	removed, ok := redisclient.ByID(topology, t.DrainNodeID)
	if !ok {
		t.replyErr(&redisclient.NodeNotInCluster{URI: t.Target})
		p.recordFailure()
		return
	}

	var receivers []redisclient.NodeInfo
	for _, n := range redisclient.Masters(topology) {
		if n.ID != removed.ID {
			receivers = append(receivers, n)
		}
	}
	if len(receivers) == 0 {
		t.replyErr(&reshard.ReshardTableError{Reason: "no remaining master to receive drained slots"})
		p.recordFailure()
		return
	}
	sort.Slice(receivers, func(i, j int) bool { return receivers[i].SlotCount() < receivers[j].SlotCount() })
	receiver := receivers[0]

	owned := removed.OwnedSlots()
	if len(owned) > 0 {
		table := reshard.Table{removed.ID: owned}
		if err := p.runMigration(ctx, topology, table, receiver.ID, receiver.Addr); err != nil {
			t.replyErr(err)
			p.recordFailure()
			return
		}
		if p.store != nil {
			_ = p.store.RecordSlotsMigrated(table.TotalSlots())
		}
	}

	if err := p.forgetFanout(ctx, removed.ID, removed.Addr); err != nil {
		t.replyErr(err)
		p.recordFailure()
		return
	}

	if !sleepOrDone(ctx, p.cfg.RefreshTimeout()) {
		t.replyErr(ctx.Err())
		return
	}

	t.replyOK("master", t.Target)
	p.recordSuccess()
}

// planWithRetry re-invokes reshard.Plan on ReshardTableError, per §4.3/§9:
// the planner is deterministic, so a bounded number of retries guards
// against input that can never become valid instead of looping forever.
func (p *Pipeline) planWithRetry(sources []redisclient.NodeInfo) (reshard.Table, error) {
	var lastErr error
	for attempt := 0; attempt < maxReshardRetries; attempt++ {
		table, err := reshard.Plan(sources)
		if err == nil {
			return table, nil
		}
		lastErr = err
		logger.Warn("pipeline: reshard table planning failed (attempt %d): %v", attempt+1, err)
	}
	return nil, lastErr
}

func (p *Pipeline) runMigration(ctx context.Context, topology []redisclient.NodeInfo, table reshard.Table, targetID, targetURI string) error {
	cache, err := reshard.BuildConnectionCache(p.client, topology)
	if err != nil {
		return err
	}
	masters := redisclient.Masters(topology)
	migrate := func(ctx context.Context, slot int, srcID, dstID string) error {
		return p.migrator.MigrateSlot(ctx, slot, srcID, dstID, targetURI, masters, cache)
	}
	return p.router.Run(ctx, table, targetID, migrate)
}

// waitClusterStateOK polls CLUSTER INFO on addr every 100ms until
// cluster_state == ok, bounded by reshard.timeout (§4.5, §5).
func (p *Pipeline) waitClusterStateOK(ctx context.Context, addr string) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ReshardTimeout())
	defer cancel()
	for {
		info, err := p.client.ClusterInfo(ctx, addr)
		if err == nil && info["cluster_state"] == "ok" {
			return nil
		}
		if !sleepOrDone(ctx, clusterStatePoll) {
			return ctx.Err()
		}
	}
}
