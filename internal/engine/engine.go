package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/luminoshop/cartsync/internal/snapshot"
	"github.com/luminoshop/cartsync/internal/upstream"
	"github.com/luminoshop/cartsync/pkg/enums"
	pkgerrors "github.com/luminoshop/cartsync/pkg/errors"
	"github.com/luminoshop/cartsync/pkg/logger"
	"github.com/luminoshop/cartsync/pkg/metrics"
	"github.com/luminoshop/cartsync/pkg/types"
)

const defaultQueueSize = 64

var validate = validator.New()

// CartAPI is the authoritative cart surface the engine mutates through.
type CartAPI interface {
	FetchCart(ctx context.Context) (*types.Cart, error)
	AddItem(ctx context.Context, req upstream.AddItemRequest) (*types.Cart, error)
	UpdateItem(ctx context.Context, itemID string, quantity int) (*types.Cart, error)
	RemoveItem(ctx context.Context, itemID string) (*types.Cart, error)
	ApplyPromotions(ctx context.Context, codes []string) (*types.Cart, error)
	EmailCart(ctx context.Context, email string, share bool) error
}

// Params configures a sync engine instance.
type Params struct {
	API       CartAPI
	Mirror    *snapshot.Adapter
	Logger    *logger.Logger
	Metrics   *metrics.EngineMetrics
	QueueSize int
}

// Engine is the single mutable source of truth for the active cart. All
// cart-affecting operations funnel through one FIFO queue: operation N+1
// does not start its network call until operation N settled and local state
// was updated. Readers get deep copies, never engine-owned state.
type Engine struct {
	api         CartAPI
	mirror      *snapshot.Adapter
	logg        *logger.Logger
	metrics     *metrics.EngineMetrics
	ops         chan *operation
	done        chan struct{}
	workerDone  chan struct{}
	closeOnce   sync.Once
	cancelWatch func()

	mu         sync.RWMutex
	cart       *types.Cart
	confirmed  *types.Cart
	loaded     bool
	loadFailed bool
	badge      types.LocalCartSnapshot
	lastOp     enums.CartOp
	phase      enums.OpPhase
}

type operation struct {
	ctx    context.Context
	op     enums.CartOp
	run    func(ctx context.Context) error
	result chan error
}

// State is a read-only view of the engine handed to callers.
type State struct {
	Cart       *types.Cart
	Loaded     bool
	LoadFailed bool
	Pending    bool
	LastOp     enums.CartOp
	Phase      enums.OpPhase
}

// New builds and starts an engine. The caller owns the instance and must
// Close it; there is no package-level shared state.
func New(params Params) (*Engine, error) {
	if params.API == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart api is required")
	}
	mirror := params.Mirror
	if mirror == nil {
		mirror = snapshot.NewAdapter(snapshot.AdapterParams{})
	}
	queueSize := params.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	e := &Engine{
		api:        params.API,
		mirror:     mirror,
		logg:       params.Logger,
		metrics:    params.Metrics,
		ops:        make(chan *operation, queueSize),
		done:       make(chan struct{}),
		workerDone: make(chan struct{}),
		cart:       &types.Cart{},
		confirmed:  &types.Cart{},
		phase:      enums.OpPhaseIdle,
	}

	if snap, found := mirror.Bootstrap(context.Background()); found {
		e.badge = snap
	}
	e.cancelWatch = mirror.Watch(e.onPeerBadge)

	go e.worker()
	return e, nil
}

// Close stops the worker and releases the mirror. Queued operations that
// have not started fail with a closed-engine error.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.done)
		<-e.workerDone
		if e.cancelWatch != nil {
			e.cancelWatch()
		}
		err = e.mirror.Close()
	})
	return err
}

// Snapshot returns a deep copy of the current cart state. Safe to call from
// any goroutine at any time; derived computations run against this copy.
func (e *Engine) Snapshot() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return State{
		Cart:       e.cart.Clone(),
		Loaded:     e.loaded,
		LoadFailed: e.loadFailed,
		Pending:    e.phase == enums.OpPhasePending,
		LastOp:     e.lastOp,
		Phase:      e.phase,
	}
}

// Badge returns the current advisory badge count: the authoritative count
// once the cart has loaded, otherwise the last persisted or peer-broadcast
// hint.
func (e *Engine) Badge() types.LocalCartSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.loaded {
		return types.LocalCartSnapshot{TotalItems: e.cart.TotalItems(), LastUpdated: e.badge.LastUpdated}
	}
	return e.badge
}

// Initialize fetches the authoritative cart. On failure any previously
// loaded state is retained and a load-failed flag is set so an empty cart
// and a failed fetch stay distinguishable. A second call is a no-op unless
// forceRefresh is set.
func (e *Engine) Initialize(ctx context.Context, forceRefresh bool) error {
	return e.enqueue(ctx, enums.CartOpInitialize, func(ctx context.Context) error {
		e.mu.RLock()
		loaded := e.loaded
		e.mu.RUnlock()
		if loaded && !forceRefresh {
			return nil
		}

		cart, err := e.api.FetchCart(ctx)
		if err != nil {
			e.mu.Lock()
			e.loadFailed = true
			e.mu.Unlock()
			return err
		}
		e.adopt(ctx, cart)
		return nil
	})
}

// AddItem appends a provisional line optimistically, then reconciles the
// whole cart from the server response. The provisional line is discarded on
// failure.
func (e *Engine) AddItem(ctx context.Context, req upstream.AddItemRequest) error {
	if strings.TrimSpace(req.ProductID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if req.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	return e.enqueue(ctx, enums.CartOpAdd, func(ctx context.Context) error {
		provisionalID := "pending-" + uuid.NewString()
		e.mu.Lock()
		e.cart.Items = append(e.cart.Items, types.CartItem{
			ID:               provisionalID,
			ProductID:        req.ProductID,
			ProductVariantID: req.ProductVariantID,
			Quantity:         req.Quantity,
		})
		e.mu.Unlock()

		cart, err := e.api.AddItem(ctx, req)
		if err != nil {
			e.mu.Lock()
			if idx := e.cart.FindItem(provisionalID); idx >= 0 {
				e.cart.Items = append(e.cart.Items[:idx], e.cart.Items[idx+1:]...)
			}
			e.mu.Unlock()
			return err
		}
		e.adopt(ctx, cart)
		return nil
	})
}

// UpdateItem changes a line's quantity. The local line mutates immediately
// for responsiveness; a server rejection snaps it back to the last confirmed
// quantity with the rejection reason surfaced. Quantity zero removes the
// line.
func (e *Engine) UpdateItem(ctx context.Context, itemID string, quantity int) error {
	if quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if quantity == 0 {
		return e.RemoveItem(ctx, itemID)
	}

	return e.enqueue(ctx, enums.CartOpUpdateQuantity, func(ctx context.Context) error {
		e.mu.Lock()
		idx := e.cart.FindItem(itemID)
		if idx < 0 {
			e.mu.Unlock()
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		e.cart.Items[idx].Quantity = quantity
		e.mu.Unlock()

		cart, err := e.api.UpdateItem(ctx, itemID, quantity)
		if err != nil {
			e.rollbackQuantity(itemID)
			return err
		}
		e.adopt(ctx, cart)
		return nil
	})
}

// RemoveItem deletes a line optimistically; the line is restored at its
// original position if the server declines.
func (e *Engine) RemoveItem(ctx context.Context, itemID string) error {
	return e.enqueue(ctx, enums.CartOpRemove, func(ctx context.Context) error {
		e.mu.Lock()
		idx := e.cart.FindItem(itemID)
		if idx < 0 {
			e.mu.Unlock()
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		removed := e.cart.Items[idx].Clone()
		e.cart.Items = append(e.cart.Items[:idx], e.cart.Items[idx+1:]...)
		e.mu.Unlock()

		cart, err := e.api.RemoveItem(ctx, itemID)
		if err != nil {
			e.mu.Lock()
			if idx > len(e.cart.Items) {
				idx = len(e.cart.Items)
			}
			e.cart.Items = append(e.cart.Items[:idx], append([]types.CartItem{removed}, e.cart.Items[idx:]...)...)
			e.mu.Unlock()
			return err
		}
		e.adopt(ctx, cart)
		return nil
	})
}

// ApplyPromotions sends the code list to the server. There is no optimistic
// application: on success promotions and totals are replaced verbatim from
// the response, on failure the local promotion set is left untouched and the
// server's message is surfaced as-is.
func (e *Engine) ApplyPromotions(ctx context.Context, codes []string) error {
	cleaned := make([]string, 0, len(codes))
	for _, code := range codes {
		if trimmed := strings.TrimSpace(code); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one promotion code is required")
	}

	return e.enqueue(ctx, enums.CartOpApplyPromotion, func(ctx context.Context) error {
		cart, err := e.api.ApplyPromotions(ctx, cleaned)
		if err != nil {
			return err
		}
		e.adopt(ctx, cart)
		return nil
	})
}

// EmailCart forwards the send request. Side effect only: cart state is never
// touched. An invalid address fails locally without a network round trip.
func (e *Engine) EmailCart(ctx context.Context, email string, share bool) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
	}
	return e.enqueue(ctx, enums.CartOpEmailCart, func(ctx context.Context) error {
		return e.api.EmailCart(ctx, email, share)
	})
}

// Clear resets in-memory state and the durable snapshot to empty. Used on
// sign-out so the next session cannot see the previous session's cart.
func (e *Engine) Clear(ctx context.Context) error {
	return e.enqueue(ctx, enums.CartOpClear, func(ctx context.Context) error {
		e.mu.Lock()
		e.cart = &types.Cart{}
		e.confirmed = &types.Cart{}
		e.loaded = false
		e.loadFailed = false
		e.badge = types.LocalCartSnapshot{}
		e.mu.Unlock()
		e.mirror.Reset(ctx)
		return nil
	})
}

// adopt replaces local state wholesale with a server-confirmed cart and
// refreshes the durable badge mirror.
func (e *Engine) adopt(ctx context.Context, cart *types.Cart) {
	e.mu.Lock()
	e.cart = cart.Clone()
	e.confirmed = cart.Clone()
	e.loaded = true
	e.loadFailed = false
	e.mu.Unlock()

	snap := e.mirror.Update(ctx, cart.TotalItems())
	e.mu.Lock()
	if snap.Supersedes(e.badge) {
		e.badge = snap
	}
	e.mu.Unlock()
}

// rollbackQuantity snaps a line back to its last server-confirmed quantity.
// A line the server never confirmed disappears entirely.
func (e *Engine) rollbackQuantity(itemID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	idx := e.cart.FindItem(itemID)
	if idx < 0 {
		return
	}
	confirmedIdx := e.confirmed.FindItem(itemID)
	if confirmedIdx < 0 {
		e.cart.Items = append(e.cart.Items[:idx], e.cart.Items[idx+1:]...)
		return
	}
	e.cart.Items[idx].Quantity = e.confirmed.Items[confirmedIdx].Quantity
}

func (e *Engine) onPeerBadge(snap types.LocalCartSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// Display hint only: never triggers a refetch or a state merge.
	if snap.Supersedes(e.badge) {
		e.badge = snap
	}
}

func (e *Engine) enqueue(ctx context.Context, op enums.CartOp, run func(ctx context.Context) error) error {
	o := &operation{ctx: ctx, op: op, run: run, result: make(chan error, 1)}
	select {
	case e.ops <- o:
		e.metrics.SetQueueDepth(len(e.ops))
	case <-e.done:
		return pkgerrors.New(pkgerrors.CodeConflict, "engine is closed")
	case <-ctx.Done():
		return pkgerrors.Wrap(pkgerrors.CodeInternal, ctx.Err(), "enqueue cart operation")
	}

	select {
	case err := <-o.result:
		return err
	case <-e.done:
		return pkgerrors.New(pkgerrors.CodeConflict, "engine is closed")
	}
}

func (e *Engine) worker() {
	defer close(e.workerDone)
	for {
		select {
		case <-e.done:
			return
		case o := <-e.ops:
			e.execute(o)
			e.metrics.SetQueueDepth(len(e.ops))
		}
	}
}

func (e *Engine) execute(o *operation) {
	e.mu.Lock()
	e.lastOp = o.op
	e.phase = enums.OpPhasePending
	e.mu.Unlock()

	ctx := o.ctx
	if e.logg != nil {
		ctx = e.logg.WithOp(ctx, o.op.String())
	}

	start := time.Now()
	err := o.run(ctx)
	e.metrics.ObserveDuration(o.op.String(), time.Since(start))

	e.mu.Lock()
	if err != nil {
		e.phase = enums.OpPhaseFailed
	} else {
		e.phase = enums.OpPhaseSettled
	}
	cartID := e.cart.ID
	e.mu.Unlock()

	if err != nil {
		code := string(pkgerrors.As(err).Code())
		e.metrics.IncFailed(o.op.String(), code)
		if e.logg != nil {
			if cartID != "" {
				ctx = e.logg.WithCartID(ctx, cartID)
			}
			e.logg.Error(ctx, "cart operation failed", err)
		}
	} else {
		e.metrics.IncSettled(o.op.String())
		if e.logg != nil {
			if cartID != "" {
				ctx = e.logg.WithCartID(ctx, cartID)
			}
			e.logg.Info(ctx, "cart operation settled")
		}
	}

	o.result <- err
}
