// Package memory provides an in-memory publisher recording every message,
// used in tests and broker-less deployments.
package memory

import (
	"context"
	"sync"
)

// Message is one recorded publication.
type Message struct {
	Topic string
	Data  []byte
}

// MemoryPublisher implements notification.Publisher by recording messages.
// A failure can be injected to exercise the unprocessed-notification path.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []Message
	failWith error
}

// NewMemoryPublisher creates an empty recording publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failWith != nil {
		return p.failWith
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	p.messages = append(p.messages, Message{Topic: topic, Data: copied})
	return nil
}

func (p *MemoryPublisher) Close() error { return nil }

// Messages returns a snapshot of everything published so far.
func (p *MemoryPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// FailWith makes every following publish return err. Pass nil to heal.
func (p *MemoryPublisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = err
}
