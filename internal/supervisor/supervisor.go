// Package supervisor wires the Redis client, the status store and the task
// pipeline together behind a single Submit entry point, which the ingress
// surfaces (wired in cmd/rcshard) call.
package supervisor

import (
	"context"

	"rcshard/internal/config"
	"rcshard/internal/logger"
	"rcshard/internal/pipeline"
	"rcshard/internal/redisclient"
	"rcshard/internal/state"
)

// Acknowledged is returned by Submit: the task has been classified and
// queued, not necessarily completed.
type Acknowledged struct {
	Op     string
	Target string
}

// Supervisor is the single owner of the pipeline's lifecycle.
type Supervisor struct {
	cfg      *config.Config
	client   *redisclient.Client
	store    *state.Store
	pipeline *pipeline.Pipeline
}

// New builds a Supervisor from a loaded config, creating the Redis client
// and state store and wiring a fresh Pipeline around them.
func New(cfg *config.Config) (*Supervisor, error) {
	seed := ""
	if len(cfg.Redis.Cluster.SeedServers) > 0 {
		seed = cfg.Redis.Cluster.SeedServers[0]
	}
	client := redisclient.New(seed, cfg.Redis.Cluster.ServerPort, cfg.Redis.Cluster.Password)
	store := state.NewStore(cfg.ResolvedStatusFile())
	p := pipeline.New(cfg, client, store)
	return &Supervisor{cfg: cfg, client: client, store: store, pipeline: p}, nil
}

// Store exposes the status store for the dashboard.
func (s *Supervisor) Store() *state.Store { return s.store }

// Start begins pipeline processing. It returns immediately.
func (s *Supervisor) Start(ctx context.Context) {
	logger.Info("supervisor: starting pipeline against seeds %v", s.cfg.Redis.Cluster.SeedServers)
	s.pipeline.Start(ctx)
}

// Stop cancels the pipeline and waits for its stage goroutines to exit;
// tasks still queued are not processed.
func (s *Supervisor) Stop() {
	logger.Info("supervisor: stopping pipeline")
	s.pipeline.Stop()
}

// Submit classifies and queues a task, returning immediately once it has
// been accepted onto the ingress channel (or ctx is cancelled first).
func (s *Supervisor) Submit(ctx context.Context, op, target string, replyTo chan<- pipeline.Reply) Acknowledged {
	s.pipeline.Submit(ctx, op, target, replyTo)
	return Acknowledged{Op: op, Target: target}
}
