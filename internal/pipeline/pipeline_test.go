package pipeline

import (
	"context"
	"testing"
	"time"
)

// newTestPipeline builds a Pipeline with only the channels and dispatch
// logic exercised — no Redis client, since classifierLoop/dispatch never
// touch it.
func newTestPipeline() *Pipeline {
	return &Pipeline{
		ingress:         make(chan Task, stageBufferSize),
		feedback:        make(chan Task, stageBufferSize),
		addMasterCh:     make(chan Task, stageBufferSize),
		addReplicaCh:    make(chan Task, stageBufferSize),
		removeNodeCh:    make(chan Task, stageBufferSize),
		removeReplicaCh: make(chan Task, stageBufferSize),
		reshardCh:       make(chan Task, stageBufferSize),
		errorCh:         make(chan Task, stageBufferSize),
	}
}

func TestDispatchRoutesByOp(t *testing.T) {
	p := newTestPipeline()
	ctx := context.Background()

	cases := []struct {
		op   Op
		dest chan Task
	}{
		{OpAddMaster, p.addMasterCh},
		{OpAddReplica, p.addReplicaCh},
		{OpRemoveNode, p.removeNodeCh},
		{OpReshard, p.reshardCh},
		{OpUnsupported, p.errorCh},
	}
	for _, c := range cases {
		p.dispatch(ctx, Task{Op: c.op})
		select {
		case <-c.dest:
		default:
			t.Errorf("dispatch(%v) did not deliver to expected channel", c.op)
		}
	}
}

// TestClassifierPrefersFeedback asserts the feedback channel is always
// drained before ingress is considered, even when both have pending work —
// the priority guarantee the streaming classifier relies on.
func TestClassifierPrefersFeedback(t *testing.T) {
	p := newTestPipeline()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p.ingress <- Task{Op: OpAddMaster}
	p.feedback <- Task{Op: OpReshard}

	go p.classifierLoop(ctx)

	select {
	case got := <-p.reshardCh:
		if got.Op != OpReshard {
			t.Fatalf("expected feedback task first, got %v", got.Op)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for feedback-routed task")
	}

	select {
	case got := <-p.addMasterCh:
		if got.Op != OpAddMaster {
			t.Fatalf("expected ingress task second, got %v", got.Op)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ingress-routed task")
	}
}
