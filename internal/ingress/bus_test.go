package ingress

import "testing"

func TestInMemoryBusDeliversPublished(t *testing.T) {
	bus := NewInMemoryBus(1)
	bus.Publish(IngressTask{Op: "add_master", Target: "10.0.0.1:7000"})

	select {
	case got := <-bus.Messages():
		if got.Op != "add_master" || got.Target != "10.0.0.1:7000" {
			t.Errorf("unexpected task: %+v", got)
		}
	default:
		t.Fatal("expected a buffered message to be available")
	}
}
