package broadcast

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/luminoshop/cartsync/pkg/logger"
	pkgredis "github.com/luminoshop/cartsync/pkg/redis"
	"github.com/luminoshop/cartsync/pkg/types"
	"github.com/redis/go-redis/v9"
)

// RedisBus fans snapshots out across processes of the same profile through a
// redis pub/sub channel. Payloads are the JSON form of LocalCartSnapshot.
type RedisBus struct {
	client  *pkgredis.Client
	channel string
	logg    *logger.Logger

	mu        sync.Mutex
	handlers  map[int]Handler
	nextID    int
	sub       *redis.PubSub
	done      chan struct{}
	closeOnce sync.Once
}

// NewRedisBus opens the subscription and starts the dispatch loop.
func NewRedisBus(ctx context.Context, client *pkgredis.Client, channel string, logg *logger.Logger) (*RedisBus, error) {
	sub, err := client.Subscribe(ctx, channel)
	if err != nil {
		return nil, err
	}

	b := &RedisBus{
		client:   client,
		channel:  channel,
		logg:     logg,
		handlers: map[int]Handler{},
		sub:      sub,
		done:     make(chan struct{}),
	}
	go b.dispatch(ctx)
	return b, nil
}

// Publish marshals the snapshot and sends it on the configured channel.
func (b *RedisBus) Publish(ctx context.Context, snap types.LocalCartSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload)
}

// Subscribe registers a handler and returns its cancel func.
func (b *RedisBus) Subscribe(handler Handler) func() {
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

// Close tears down the subscription and stops dispatching. Safe to call
// from multiple goroutines; only the first call closes the subscription.
func (b *RedisBus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		err = b.sub.Close()
	})
	return err
}

func (b *RedisBus) dispatch(ctx context.Context) {
	ch := b.sub.Channel()
	for {
		select {
		case <-b.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var snap types.LocalCartSnapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
				if b.logg != nil {
					b.logg.Warn(ctx, "broadcast: dropping malformed badge payload")
				}
				continue
			}
			b.mu.Lock()
			handlers := make([]Handler, 0, len(b.handlers))
			for _, handler := range b.handlers {
				handlers = append(handlers, handler)
			}
			b.mu.Unlock()
			for _, handler := range handlers {
				handler(snap)
			}
		}
	}
}
