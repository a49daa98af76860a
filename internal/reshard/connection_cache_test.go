package reshard

import (
	"testing"

	"rcshard/internal/redisclient"
)

func TestBuildConnectionCacheCoversEveryNode(t *testing.T) {
	client := redisclient.New("127.0.0.1:7000", 7000, "")
	topology := []redisclient.NodeInfo{
		{ID: "node-a", Addr: "127.0.0.1:7000"},
		{ID: "node-b", Addr: "127.0.0.1:7001"},
	}

	cache, err := BuildConnectionCache(client, topology)
	if err != nil {
		t.Fatalf("BuildConnectionCache: %v", err)
	}

	for _, n := range topology {
		if _, ok := cache.Conn(n.ID); !ok {
			t.Errorf("Conn(%s): missing", n.ID)
		}
		addr, ok := cache.Addr(n.ID)
		if !ok || addr != n.Addr {
			t.Errorf("Addr(%s) = %q, %v; want %q, true", n.ID, addr, ok, n.Addr)
		}
	}

	ids := cache.NodeIDs()
	if len(ids) != 2 {
		t.Fatalf("len(NodeIDs()) = %d, want 2", len(ids))
	}

	if _, ok := cache.Conn("node-unknown"); ok {
		t.Error("Conn(unknown) should report false: the cache never grows past reshard start")
	}
	if _, ok := cache.Addr("node-unknown"); ok {
		t.Error("Addr(unknown) should report false")
	}
}
