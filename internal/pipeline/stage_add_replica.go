package pipeline

import (
	"context"

	"rcshard/internal/logger"
	"rcshard/internal/redisclient"
)

// runAddReplica is stageAddReplica (§4.5): collects a batch of new-replica
// targets within batchPeriod, meets every one of them to the current
// cluster, then assigns each as replica of the current-poorest master via
// round-robin over the poorest-N ranking.
func (p *Pipeline) runAddReplica(ctx context.Context) {
	for {
		batch := collectWindow(ctx, p.addReplicaCh, p.cfg.BatchPeriod())
		if len(batch) == 0 {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		p.handleAddReplicaBatch(ctx, batch)
	}
}

func (p *Pipeline) handleAddReplicaBatch(ctx context.Context, batch []Task) {
	canonical := make([]string, 0, len(batch))
	canonByTask := make(map[int]string, len(batch))
	for i, t := range batch {
		uri, err := p.client.Canonicalize(ctx, t.Target)
		if err != nil {
			logger.Error("pipeline: add_replica canonicalize %s failed: %v", t.Target, err)
			t.replyErr(err)
			p.recordFailure()
			continue
		}
		canonical = append(canonical, uri)
		canonByTask[i] = uri
	}
	if len(canonical) == 0 {
		return
	}

	if err := p.addNodesToCluster(ctx, canonical); err != nil {
		logger.Error("pipeline: add_replica meet aborted: %v", err)
		for _, t := range batch {
			t.replyErr(err)
		}
		p.recordFailure()
		return
	}

	if !sleepOrDone(ctx, p.cfg.RefreshTimeout()) {
		for _, t := range batch {
			t.replyErr(ctx.Err())
		}
		return
	}

	topology, err := p.client.Topology(ctx)
	if err != nil {
		for _, t := range batch {
			t.replyErr(err)
		}
		p.recordFailure()
		return
	}
	masters := redisclient.Masters(topology)
	if len(masters) == 0 {
		for i, t := range batch {
			uri := canonByTask[i]
			t.replyErr(&redisclient.NodeNotInCluster{URI: uri})
		}
		return
	}
	ranking := poorestMasters(masters, topology)

	i := 0
	for idx, t := range batch {
		uri, ok := canonByTask[idx]
		if !ok {
			continue
		}
		master := ranking[i%len(ranking)]
		i++
		if err := p.client.Replicate(ctx, uri, master.ID); err != nil {
			logger.Error("pipeline: CLUSTER REPLICATE %s -> %s failed: %v", uri, master.ID, err)
			t.replyErr(err)
			p.recordFailure()
			continue
		}
		t.replyOK("replica", uri)
		p.recordSuccess()
	}
}
