package supervisor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"rcshard/internal/config"
	"rcshard/internal/pipeline"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Redis.Cluster.SeedServers = []string{"127.0.0.1:7000"}
	cfg.Redis.Cluster.ServerPort = 7000
	cfg.Reshard.IntervalSeconds = 60
	cfg.Reshard.TimeoutSeconds = 300
	cfg.Reshard.MigrateSlotTimeoutSeconds = 60
	cfg.StatusFile = filepath.Join(t.TempDir(), "status.json")
	return cfg
}

func TestNewWiresStoreAndPipeline(t *testing.T) {
	super, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if super.Store() == nil {
		t.Fatal("Store() returned nil")
	}
}

func TestSubmitAcknowledgesImmediately(t *testing.T) {
	super, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	super.Start(ctx)
	defer super.Stop()

	reply := make(chan pipeline.Reply, 1)
	ack := super.Submit(ctx, "frobnicate", "x", reply)
	if ack.Op != "frobnicate" || ack.Target != "x" {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	select {
	case r := <-reply:
		if r.Err == "" {
			t.Fatal("expected an error reply for an unsupported op")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for unsupported-op reply")
	}
}
