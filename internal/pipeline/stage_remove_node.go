package pipeline

import (
	"context"

	"rcshard/internal/logger"
	"rcshard/internal/redisclient"
)

// runRemoveNode is stageRemoveNode (§4.5): looks the target up in the
// topology and routes it onward according to its current role — a master
// re-enters as a reshard (drain) on the feedback edge, a replica forwards
// to stageRemoveReplica, and a node that is neither becomes unsupported.
// A target that is not in the topology is answered with NodeNotInCluster.
func (p *Pipeline) runRemoveNode(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-p.removeNodeCh:
			p.handleRemoveNode(ctx, t)
		}
	}
}

func (p *Pipeline) handleRemoveNode(ctx context.Context, t Task) {
	canonical, err := p.client.Canonicalize(ctx, t.Target)
	if err != nil {
		logger.Error("pipeline: remove_node canonicalize %s failed: %v", t.Target, err)
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

	node, ok := redisclient.ByURI(topology, canonical)
	if !ok {
		t.replyErr(&redisclient.NodeNotInCluster{URI: canonical})
		p.recordFailure()
		return
	}

	switch classifyRemoval(node.IsMaster(), node.IsReplica()) {
	case opRemoveMaster:
		logger.Info("pipeline: remove_node %s is a master, re-injecting as drain reshard", canonical)
		drain := Task{
			Op:          OpReshard,
			Target:      canonical,
			DrainNodeID: node.ID,
			ReplyTo:     t.ReplyTo,
		}
		select {
		case p.feedback <- drain:
		case <-ctx.Done():
		}
	case opRemoveReplica:
		forward := t
		forward.Target = canonical
		select {
		case p.removeReplicaCh <- forward:
		case <-ctx.Done():
		}
	default:
		forward := t
		forward.Op = OpUnsupported
		forward.rawOp = "remove_node(" + canonical + ")"
		select {
		case p.errorCh <- forward:
		case <-ctx.Done():
		}
	}
}
