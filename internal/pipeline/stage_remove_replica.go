package pipeline

import (
	"context"

	"rcshard/internal/logger"
	"rcshard/internal/redisclient"
)

// runRemoveReplica is stageRemoveReplica (§4.5): batches up to 100 removed
// replica ids within batchPeriod, resets each one hard and then asks every
// other live node to forget it, replies to each task individually, and
// then waits for topology to settle.
func (p *Pipeline) runRemoveReplica(ctx context.Context) {
	for {
		batch := collectBatch(ctx, p.removeReplicaCh, removeReplicaCap, p.cfg.BatchPeriod())
		if len(batch) == 0 {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		p.handleRemoveReplicaBatch(ctx, batch)
	}
}

func (p *Pipeline) handleRemoveReplicaBatch(ctx context.Context, batch []Task) {
	topology, err := p.client.Topology(ctx)
	if err != nil {
		for _, t := range batch {
			t.replyErr(err)
		}
		p.recordFailure()
		return
	}

	for _, t := range batch {
		node, ok := redisclient.ByURI(topology, t.Target)
		if !ok {
			t.replyErr(&redisclient.NodeNotInCluster{URI: t.Target})
			p.recordFailure()
			continue
		}
		if err := p.forgetFanout(ctx, node.ID, node.Addr); err != nil {
			logger.Error("pipeline: remove_replica forget fanout for %s failed: %v", node.Addr, err)
			t.replyErr(err)
			p.recordFailure()
			continue
		}
		t.replyOK("replica", t.Target)
		p.recordSuccess()
	}

	if !sleepOrDone(ctx, p.cfg.RefreshTimeout()) {
		return
	}
	if updated, err := p.client.Topology(ctx); err == nil {
		logger.Info("pipeline: remove_replica batch settled, topology now has %d nodes", len(updated))
	}
}
