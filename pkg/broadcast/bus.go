package broadcast

import (
	"context"
	"sync"

	"github.com/luminoshop/cartsync/pkg/types"
)

// Handler consumes badge snapshots published by sibling clients.
type Handler func(types.LocalCartSnapshot)

// Bus is a same-profile fan-out channel for LocalCartSnapshot updates. It is
// a display hint transport only; subscribers must not treat payloads as
// authoritative cart state.
type Bus interface {
	Publish(ctx context.Context, snap types.LocalCartSnapshot) error
	Subscribe(handler Handler) (cancel func())
	Close() error
}

// MemoryBus is the in-process Bus used when no external transport is
// configured and in tests.
type MemoryBus struct {
	mu       sync.Mutex
	handlers map[int]Handler
	nextID   int
	closed   bool
}

// NewMemoryBus returns an empty in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: map[int]Handler{}}
}

// Publish delivers the snapshot to every subscriber synchronously.
func (b *MemoryBus) Publish(_ context.Context, snap types.LocalCartSnapshot) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	handlers := make([]Handler, 0, len(b.handlers))
	for _, handler := range b.handlers {
		handlers = append(handlers, handler)
	}
	b.mu.Unlock()

	for _, handler := range handlers {
		handler(snap)
	}
	return nil
}

// Subscribe registers a handler and returns its cancel func.
func (b *MemoryBus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers, id)
	}
}

// Close drops all subscribers.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = map[int]Handler{}
	return nil
}
