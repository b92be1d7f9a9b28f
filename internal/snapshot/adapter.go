package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/luminoshop/cartsync/pkg/broadcast"
	"github.com/luminoshop/cartsync/pkg/logger"
	"github.com/luminoshop/cartsync/pkg/metrics"
	"github.com/luminoshop/cartsync/pkg/types"
)

// AdapterParams configures the persistence adapter.
type AdapterParams struct {
	Store          Store
	Bus            broadcast.Bus
	DebounceWindow time.Duration
	Logger         *logger.Logger
	Metrics        *metrics.EngineMetrics

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Adapter keeps the advisory badge mirror: it writes the snapshot to durable
// storage synchronously, then debounces a broadcast to sibling clients. On a
// storage failure it logs once and degrades to an in-memory store.
type Adapter struct {
	bus     broadcast.Bus
	deb     *broadcast.Debouncer
	logg    *logger.Logger
	metrics *metrics.EngineMetrics
	now     func() time.Time

	mu       sync.Mutex
	store    Store
	degraded bool
	last     int64
}

// NewAdapter wires the store and bus behind a debouncer.
func NewAdapter(params AdapterParams) *Adapter {
	store := params.Store
	if store == nil {
		store = NewMemoryStore()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	a := &Adapter{
		bus:     params.Bus,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
		store:   store,
	}
	a.deb = broadcast.NewDebouncer(params.DebounceWindow, a.emit)
	return a
}

// Bootstrap reads the last persisted snapshot for the instant badge paint.
// The value is advisory and is superseded once the authoritative cart loads.
func (a *Adapter) Bootstrap(ctx context.Context) (types.LocalCartSnapshot, bool) {
	a.mu.Lock()
	store := a.store
	a.mu.Unlock()

	snap, found, err := store.Load(ctx)
	if err != nil {
		a.degrade(ctx, err)
		return types.LocalCartSnapshot{}, false
	}
	return snap, found
}

// Update persists the new badge count synchronously, then schedules the
// debounced broadcast. Timestamps are strictly increasing per adapter even
// when updates land within the same millisecond.
func (a *Adapter) Update(ctx context.Context, totalItems int) types.LocalCartSnapshot {
	a.mu.Lock()
	ts := a.now().UnixMilli()
	if ts <= a.last {
		ts = a.last + 1
	}
	a.last = ts
	store := a.store
	a.mu.Unlock()

	snap := types.LocalCartSnapshot{TotalItems: totalItems, LastUpdated: ts}
	if err := store.Save(ctx, snap); err != nil {
		a.degrade(ctx, err)
		// Degraded store still records the value for this process.
		a.mu.Lock()
		store = a.store
		a.mu.Unlock()
		_ = store.Save(ctx, snap)
	}
	a.deb.Publish(snap)
	return snap
}

// Reset clears persisted state and immediately broadcasts an empty badge.
func (a *Adapter) Reset(ctx context.Context) {
	a.mu.Lock()
	ts := a.now().UnixMilli()
	if ts <= a.last {
		ts = a.last + 1
	}
	a.last = ts
	store := a.store
	a.mu.Unlock()

	if err := store.Clear(ctx); err != nil {
		a.degrade(ctx, err)
	}
	a.deb.Publish(types.LocalCartSnapshot{TotalItems: 0, LastUpdated: ts})
	a.deb.Flush()
}

// Watch subscribes to badge updates from sibling clients. The handler gets a
// display hint, never a reason to refetch the cart.
func (a *Adapter) Watch(handler broadcast.Handler) func() {
	if a.bus == nil {
		return func() {}
	}
	return a.bus.Subscribe(handler)
}

// Degraded reports whether durable storage has been abandoned for this run.
func (a *Adapter) Degraded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.degraded
}

// Close stops the debouncer; pending broadcasts are dropped.
func (a *Adapter) Close() error {
	a.deb.Stop()
	return nil
}

func (a *Adapter) emit(snap types.LocalCartSnapshot) {
	if a.bus == nil {
		return
	}
	if err := a.bus.Publish(context.Background(), snap); err != nil {
		if a.logg != nil {
			a.logg.Warn(context.Background(), "snapshot: badge broadcast failed")
		}
		return
	}
	a.metrics.IncBroadcast()
}

func (a *Adapter) degrade(ctx context.Context, err error) {
	a.mu.Lock()
	already := a.degraded
	if !already {
		a.degraded = true
		a.store = NewMemoryStore()
	}
	a.mu.Unlock()

	if !already && a.logg != nil {
		a.logg.Error(ctx, "snapshot: durable storage failed, falling back to memory", err)
	}
}
