package pipeline

import (
	"context"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"rcshard/internal/config"
	"rcshard/internal/logger"
	"rcshard/internal/phmin"
	"rcshard/internal/redisclient"
	"rcshard/internal/reshard"
	"rcshard/internal/state"
)

const (
	stageBufferSize   = 64
	addMasterBatchCap = 1
	removeReplicaCap  = 100
	clusterStatePoll  = 100 * time.Millisecond
	retryBackoff      = 500 * time.Millisecond
	maxReshardRetries = 5
)

// Pipeline is the staged flow of spec §4.5: ingress and feedback channels
// feed a classifier that fans out to one single-worker-per-stage channel
// each (mapAsync(1), per §5 and §9), with the feedback edge strictly
// preferred over ingress.
type Pipeline struct {
	cfg    *config.Config
	client *redisclient.Client
	store  *state.Store

	migrator *reshard.Migrator
	router   *reshard.Router

	reshardLimiter *rate.Limiter

	ingress  chan Task
	feedback chan Task

	addMasterCh    chan Task
	addReplicaCh   chan Task
	removeNodeCh   chan Task
	removeReplicaCh chan Task
	reshardCh      chan Task
	errorCh        chan Task

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New builds a Pipeline wired to client for topology/commands and store
// for status reporting. Call Start to begin processing.
func New(cfg *config.Config, client *redisclient.Client, store *state.Store) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		client:   client,
		store:    store,
		migrator: reshard.NewMigrator(client, cfg.MigrateSlotTimeout()),
		router:   reshard.NewRouter(cfg.ReshardTimeout()),

		reshardLimiter: rate.NewLimiter(rate.Every(cfg.ReshardInterval()), 1),

		ingress:  make(chan Task, stageBufferSize),
		feedback: make(chan Task, stageBufferSize),

		addMasterCh:     make(chan Task, stageBufferSize),
		addReplicaCh:    make(chan Task, stageBufferSize),
		removeNodeCh:    make(chan Task, stageBufferSize),
		removeReplicaCh: make(chan Task, stageBufferSize),
		reshardCh:       make(chan Task, stageBufferSize),
		errorCh:         make(chan Task, stageBufferSize),
	}
}

// Start launches the classifier and one worker goroutine per stage. It
// returns immediately; processing continues until Stop is called or ctx is
// cancelled.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	workers := []func(context.Context){
		p.classifierLoop,
		p.runAddMaster,
		p.runAddReplica,
		p.runRemoveNode,
		p.runRemoveReplica,
		p.runReshard,
		p.runErrorStage,
	}
	for _, w := range workers {
		p.wg.Add(1)
		go func(run func(context.Context)) {
			defer p.wg.Done()
			run(ctx)
		}(w)
	}
	if p.store != nil {
		_ = p.store.SetPipelineStatus("running", "pipeline started")
	}
}

// Stop cancels all stage goroutines and waits for them to exit.
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	if p.store != nil {
		_ = p.store.SetPipelineStatus("stopped", "pipeline stopped")
	}
}

// Submit classifies rawOp, builds a Task and queues it on the ingress
// channel. It blocks only as long as the ingress buffer is full — the
// bounded buffer is the pipeline's backpressure mechanism.
func (p *Pipeline) Submit(ctx context.Context, rawOp, target string, replyTo chan<- Reply) {
	t := Task{
		Op:      classify(rawOp),
		Target:  target,
		ReplyTo: replyTo,
	}
	if t.Op == OpUnsupported {
		t.rawOp = rawOp
	}
	select {
	case p.ingress <- t:
	case <-ctx.Done():
	}
}

// classifierLoop is the mergePreferred(feedback-preferred) → classify
// realization of §4.5: the feedback channel is checked first, non-blocking;
// only when it is empty does the loop fall back to a blocking multi-way
// select across both inputs. This gives the feedback edge strict priority
// (§5 ordering guarantee, §8.5 testable property).
func (p *Pipeline) classifierLoop(ctx context.Context) {
	for {
		var t Task
		select {
		case t = <-p.feedback:
		default:
			select {
			case t = <-p.feedback:
			case t = <-p.ingress:
			case <-ctx.Done():
				return
			}
		}
		p.dispatch(ctx, t)
	}
}

func (p *Pipeline) dispatch(ctx context.Context, t Task) {
	var target chan Task
	switch t.Op {
	case OpAddMaster:
		target = p.addMasterCh
	case OpAddReplica:
		target = p.addReplicaCh
	case OpRemoveNode:
		target = p.removeNodeCh
	case OpReshard:
		target = p.reshardCh
	default:
		target = p.errorCh
	}
	select {
	case target <- t:
	case <-ctx.Done():
	}
}

func (p *Pipeline) runErrorStage(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-p.errorCh:
			rawOp := t.rawOp
			if rawOp == "" {
				rawOp = string(t.Op)
			}
			t.replyErr(&IllegalOperationError{Op: rawOp, Target: t.Target})
			if p.store != nil {
				_ = p.store.RecordMetric(state.MetricTasksFailed, 1)
			}
		}
	}
}

// addNodesToCluster issues CLUSTER MEET from every currently live node
// toward every target URI, retrying indefinitely on ClusterClientError —
// per §4.5 the operator explicitly requested the add, so this step has no
// hard upper bound (§7 propagation policy).
func (p *Pipeline) addNodesToCluster(ctx context.Context, targets []string) error {
	for {
		topology, err := p.client.Topology(ctx)
		if err != nil {
			logger.Warn("pipeline: topology fetch failed during meet: %v", err)
			if !sleepOrDone(ctx, retryBackoff) {
				return ctx.Err()
			}
			continue
		}

		ok := true
		for _, node := range topology {
			for _, target := range targets {
				host, portStr, err := net.SplitHostPort(target)
				if err != nil {
					logger.Warn("pipeline: bad meet target %q: %v", target, err)
					ok = false
					continue
				}
				port, err := strconv.Atoi(portStr)
				if err != nil {
					logger.Warn("pipeline: bad meet target port %q: %v", target, err)
					ok = false
					continue
				}
				if err := p.client.Meet(ctx, node.Addr, host, port); err != nil {
					logger.Warn("pipeline: CLUSTER MEET %s -> %s failed: %v", node.Addr, target, err)
					ok = false
				}
			}
		}
		if ok {
			return nil
		}
		if !sleepOrDone(ctx, retryBackoff) {
			return ctx.Err()
		}
	}
}

// forgetFanout resets removedAddr hard and then asks every other live node
// to forget removedID — a node never forgets itself, and the reset always
// happens before any FORGET is issued so the removed node's own view is
// cleared first.
func (p *Pipeline) forgetFanout(ctx context.Context, removedID, removedAddr string) error {
	// Read the membership before the reset: a reset node reports only
	// itself, so a topology read from it would list no one to ask.
	topology, err := p.client.Topology(ctx)
	if err != nil {
		return err
	}
	if err := p.client.ResetHard(ctx, removedAddr); err != nil {
		logger.Warn("pipeline: CLUSTER RESET HARD on %s failed: %v", removedAddr, err)
	}
	for _, node := range topology {
		if node.ID == removedID || node.Addr == removedAddr {
			continue
		}
		if err := p.client.Forget(ctx, node.Addr, removedID); err != nil {
			logger.Warn("pipeline: CLUSTER FORGET %s on %s failed: %v", removedID, node.Addr, err)
		}
	}
	return nil
}

// poorestMasters ranks masters ascending by current replica count, using a
// bounded max-heap sized to hold every master (§4.5, §9: "poorest-N"
// generalizes cleanly to N == all masters when every master is a
// candidate). Replica counts are snapshotted once per batch and are not
// incremented for assignments made within the same batch (see DESIGN.md's
// record of Open Question 1).
func poorestMasters(masters []redisclient.NodeInfo, topology []redisclient.NodeInfo) []phmin.Entry {
	counts := make(map[string]int, len(masters))
	for _, n := range topology {
		if n.IsReplica() && n.SlaveOf != "" && n.SlaveOf != "-" {
			counts[n.SlaveOf]++
		}
	}
	h := phmin.New(len(masters))
	for _, m := range masters {
		h.Push(phmin.Entry{ID: m.ID, Count: counts[m.ID]})
	}
	entries := h.Entries()
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Count < entries[j].Count })
	return entries
}

func (p *Pipeline) recordFailure() {
	if p.store != nil {
		_ = p.store.RecordMetric(state.MetricTasksFailed, 1)
	}
}

func (p *Pipeline) recordSuccess() {
	if p.store != nil {
		_ = p.store.RecordMetric(state.MetricTasksSucceeded, 1)
		_ = p.store.RecordTaskCompletion()
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
