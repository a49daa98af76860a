// Package ingress holds the external entry points into the task pipeline:
// an HTTP handler and a pluggable message-bus consumer, both translating
// external wire formats into supervisor.Submit calls.
package ingress

// IngressTask is the wire schema for a submitted task: an operation name
// and its target node URI.
type IngressTask struct {
	Op     string `json:"op"`
	Target string `json:"target"`
}

// BusConsumer delivers IngressTask values from an external message source.
// No message-bus client library (Kafka, NATS, AMQP, ...) is wired here;
// InMemoryBus exists for local wiring and tests, and cmd/rcshard always
// constructs an InMemoryBus; no other implementation can be selected.
type BusConsumer interface {
	Messages() <-chan IngressTask
}

// InMemoryBus is a channel-backed BusConsumer.
type InMemoryBus struct {
	ch chan IngressTask
}

// NewInMemoryBus returns a bus with the given buffer size.
func NewInMemoryBus(buffer int) *InMemoryBus {
	return &InMemoryBus{ch: make(chan IngressTask, buffer)}
}

// Messages implements BusConsumer.
func (b *InMemoryBus) Messages() <-chan IngressTask { return b.ch }

// Publish enqueues a task, blocking if the buffer is full.
func (b *InMemoryBus) Publish(t IngressTask) {
	b.ch <- t
}
