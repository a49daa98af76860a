package pipeline

import (
	"context"

	"rcshard/internal/logger"
	"rcshard/internal/state"
)

// runAddMaster is stageAddMaster (§4.5): batches up to 1 within
// batchPeriod — which, at a cap of 1, degenerates to handling each task as
// soon as it arrives — then meets the new node to every current member,
// waits for topology to settle, and re-injects a synthesized reshard task
// on the feedback edge.
func (p *Pipeline) runAddMaster(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-p.addMasterCh:
			p.handleAddMaster(ctx, t)
		}
	}
}

func (p *Pipeline) handleAddMaster(ctx context.Context, t Task) {
	canonical, err := p.client.Canonicalize(ctx, t.Target)
	if err != nil {
		logger.Error("pipeline: add_master canonicalize %s failed: %v", t.Target, err)
		t.replyErr(err)
		p.recordFailure()
		return
	}

	if err := p.addNodesToCluster(ctx, []string{canonical}); err != nil {
		logger.Error("pipeline: add_master meet for %s aborted: %v", canonical, err)
		t.replyErr(err)
		p.recordFailure()
		return
	}

	if !sleepOrDone(ctx, p.cfg.RefreshTimeout()) {
		t.replyErr(ctx.Err())
		return
	}

	logger.Info("pipeline: add_master %s meeted, re-injecting as reshard", canonical)
	reshardTask := Task{
		Op:           OpReshard,
		Target:       canonical,
		NewMasterURI: canonical,
		ReplyTo:      t.ReplyTo,
	}
	select {
	case p.feedback <- reshardTask:
	case <-ctx.Done():
	}
	if p.store != nil {
		_ = p.store.RecordMetric(state.MetricTasksAccepted, 1)
	}
}
