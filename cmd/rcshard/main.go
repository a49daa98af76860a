package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rcshard/internal/config"
	"rcshard/internal/ingress"
	"rcshard/internal/logger"
	"rcshard/internal/pipeline"
	"rcshard/internal/supervisor"
	"rcshard/internal/web"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "serve":
		return runServe(args[1:])
	case "help", "-h", "--help":
		printUsage()
		return 0
	case "version", "--version", "-v":
		fmt.Println("rcshard 0.1.0-dev")
		return 0
	default:
		log.Printf("Unknown subcommand: %s", args[0])
		printUsage()
		return 1
	}
}

// drainBus feeds every task a BusConsumer delivers into submit, replying
// nowhere: a bus-originated task has no caller waiting on a synchronous
// Reply, so its outcome only surfaces via the status store and logs.
func drainBus(ctx context.Context, bus ingress.BusConsumer, submit func(context.Context, string, string, chan<- pipeline.Reply)) {
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-bus.Messages():
			if !ok {
				return
			}
			submit(ctx, task.Op, task.Target, nil)
		}
	}
}

func printUsage() {
	fmt.Println("rcshard - Redis Cluster task-pipeline and resharding engine")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  rcshard serve --config <path>   start the controller")
	fmt.Println("  rcshard version                 print the version")
}

func runServe(args []string) int {
	configPath := "config.yaml"
	for i := 0; i < len(args); i++ {
		if args[i] == "--config" && i+1 < len(args) {
			configPath = args[i+1]
			i++
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("rcshard: failed to load config %s: %v", configPath, err)
		return 1
	}

	if err := logger.Init(cfg.ResolvedLogDir(), logger.INFO, "rcshard-controller"); err != nil {
		log.Printf("rcshard: failed to init logger: %v", err)
		return 1
	}
	defer logger.Close()

	if err := cfg.EnsureStateDir(); err != nil {
		logger.Error("rcshard: failed to prepare state dir: %v", err)
		return 1
	}

	logger.Console("rcshard controller starting (%s)", cfg.Summary())

	super, err := supervisor.New(cfg)
	if err != nil {
		logger.Error("rcshard: failed to build supervisor: %v", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	super.Start(ctx)

	submit := func(ctx context.Context, op, target string, replyTo chan<- pipeline.Reply) {
		super.Submit(ctx, op, target, replyTo)
	}

	httpSrv := ingress.NewServer(cfg.Ingress.ListenAddr, submit, cfg.IngressReplyWait())

	// bus is the pluggable message-bus entry point (§6): no broker client is
	// wired here, so it only ever carries what InMemoryBus.Publish is given
	// in-process, but draining it now means swapping in a real BusConsumer
	// later is a one-line change, not a new goroutine to write.
	bus := ingress.NewInMemoryBus(64)
	go drainBus(ctx, bus, submit)

	dash, err := web.New(web.Options{Addr: ":8081", Store: super.Store()})
	if err != nil {
		logger.Error("rcshard: failed to build dashboard: %v", err)
		return 1
	}

	errCh := make(chan error, 2)
	go func() { errCh <- httpSrv.Start() }()
	go func() { errCh <- dash.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("rcshard: server exited: %v", err)
	case sig := <-sigCh:
		logger.Console("rcshard: received %s, shutting down", sig)
	}

	cancel()
	super.Stop()

	// give in-flight goroutines a moment to observe cancellation
	time.Sleep(200 * time.Millisecond)
	return 0
}
