package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminoshop/cartsync/internal/snapshot"
	"github.com/luminoshop/cartsync/internal/upstream"
	"github.com/luminoshop/cartsync/pkg/enums"
	pkgerrors "github.com/luminoshop/cartsync/pkg/errors"
	"github.com/luminoshop/cartsync/pkg/types"
)

type stubAPI struct {
	mu sync.Mutex

	fetchFn  func(ctx context.Context) (*types.Cart, error)
	addFn    func(ctx context.Context, req upstream.AddItemRequest) (*types.Cart, error)
	updateFn func(ctx context.Context, itemID string, quantity int) (*types.Cart, error)
	removeFn func(ctx context.Context, itemID string) (*types.Cart, error)
	promoFn  func(ctx context.Context, codes []string) (*types.Cart, error)
	emailFn  func(ctx context.Context, email string, share bool) error

	calls []string
}

func (s *stubAPI) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *stubAPI) FetchCart(ctx context.Context) (*types.Cart, error) {
	s.record("fetch")
	if s.fetchFn == nil {
		return &types.Cart{ID: "cart-1"}, nil
	}
	return s.fetchFn(ctx)
}

func (s *stubAPI) AddItem(ctx context.Context, req upstream.AddItemRequest) (*types.Cart, error) {
	s.record("add")
	return s.addFn(ctx, req)
}

func (s *stubAPI) UpdateItem(ctx context.Context, itemID string, quantity int) (*types.Cart, error) {
	s.record("update")
	return s.updateFn(ctx, itemID, quantity)
}

func (s *stubAPI) RemoveItem(ctx context.Context, itemID string) (*types.Cart, error) {
	s.record("remove")
	return s.removeFn(ctx, itemID)
}

func (s *stubAPI) ApplyPromotions(ctx context.Context, codes []string) (*types.Cart, error) {
	s.record("promo")
	return s.promoFn(ctx, codes)
}

func (s *stubAPI) EmailCart(ctx context.Context, email string, share bool) error {
	s.record("email")
	if s.emailFn == nil {
		return nil
	}
	return s.emailFn(ctx, email, share)
}

func newTestEngine(t *testing.T, api CartAPI) *Engine {
	t.Helper()
	eng, err := New(Params{
		API:    api,
		Mirror: snapshot.NewAdapter(snapshot.AdapterParams{}),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func serverCart(quantity int) *types.Cart {
	return &types.Cart{
		ID: "cart-1",
		Items: []types.CartItem{
			{
				ID:           "line-1",
				ProductID:    "prod-1",
				ProductName:  "Desk Lamp",
				Quantity:     quantity,
				CurrentPrice: decimal.NewFromInt(2500),
			},
		},
		Subtotal: decimal.NewFromInt(int64(quantity) * 2500),
		Total:    decimal.NewFromInt(int64(quantity) * 2500),
	}
}

func TestNewRequiresAPI(t *testing.T) {
	t.Parallel()

	_, err := New(Params{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestInitializeLoadsCart(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		fetchFn: func(ctx context.Context) (*types.Cart, error) {
			return serverCart(2), nil
		},
	}
	eng := newTestEngine(t, api)

	require.NoError(t, eng.Initialize(context.Background(), false))

	state := eng.Snapshot()
	assert.True(t, state.Loaded)
	assert.False(t, state.LoadFailed)
	assert.Equal(t, "cart-1", state.Cart.ID)
	assert.Equal(t, 2, state.Cart.TotalItems())
	assert.Equal(t, enums.OpPhaseSettled, state.Phase)
}

func TestInitializeSecondCallSkipsFetch(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		fetchFn: func(ctx context.Context) (*types.Cart, error) {
			return serverCart(1), nil
		},
	}
	eng := newTestEngine(t, api)

	require.NoError(t, eng.Initialize(context.Background(), false))
	require.NoError(t, eng.Initialize(context.Background(), false))
	assert.Equal(t, []string{"fetch"}, api.calls)

	require.NoError(t, eng.Initialize(context.Background(), true))
	assert.Equal(t, []string{"fetch", "fetch"}, api.calls)
}

func TestInitializeFailureKeepsStaleState(t *testing.T) {
	t.Parallel()

	fail := false
	api := &stubAPI{
		fetchFn: func(ctx context.Context) (*types.Cart, error) {
			if fail {
				return nil, pkgerrors.New(pkgerrors.CodeNetwork, "connection refused")
			}
			return serverCart(3), nil
		},
	}
	eng := newTestEngine(t, api)

	require.NoError(t, eng.Initialize(context.Background(), false))
	fail = true
	err := eng.Initialize(context.Background(), true)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNetwork))

	state := eng.Snapshot()
	assert.True(t, state.Loaded, "previously loaded state survives a failed refresh")
	assert.True(t, state.LoadFailed)
	assert.Equal(t, 3, state.Cart.TotalItems())
	assert.Equal(t, enums.OpPhaseFailed, state.Phase)
}

func TestAddItemFailureDropsProvisionalLine(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		addFn: func(ctx context.Context, req upstream.AddItemRequest) (*types.Cart, error) {
			return nil, pkgerrors.New(pkgerrors.CodeRejected, "out of stock")
		},
	}
	eng := newTestEngine(t, api)
	require.NoError(t, eng.Initialize(context.Background(), false))

	err := eng.AddItem(context.Background(), upstream.AddItemRequest{ProductID: "prod-9", Quantity: 1})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRejected))
	assert.Equal(t, 0, eng.Snapshot().Cart.TotalItems())
}

func TestAddItemAdoptsServerCart(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		addFn: func(ctx context.Context, req upstream.AddItemRequest) (*types.Cart, error) {
			return serverCart(1), nil
		},
	}
	eng := newTestEngine(t, api)
	require.NoError(t, eng.Initialize(context.Background(), false))

	require.NoError(t, eng.AddItem(context.Background(), upstream.AddItemRequest{ProductID: "prod-1", Quantity: 1}))

	state := eng.Snapshot()
	require.Len(t, state.Cart.Items, 1)
	assert.Equal(t, "line-1", state.Cart.Items[0].ID, "provisional id replaced by server id")
}

func TestAddItemValidatesInput(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, &stubAPI{})

	err := eng.AddItem(context.Background(), upstream.AddItemRequest{ProductID: "", Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = eng.AddItem(context.Background(), upstream.AddItemRequest{ProductID: "prod-1", Quantity: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateItemLastWriteWins(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		fetchFn: func(ctx context.Context) (*types.Cart, error) {
			return serverCart(1), nil
		},
		updateFn: func(ctx context.Context, itemID string, quantity int) (*types.Cart, error) {
			return serverCart(quantity), nil
		},
	}
	eng := newTestEngine(t, api)
	require.NoError(t, eng.Initialize(context.Background(), false))

	require.NoError(t, eng.UpdateItem(context.Background(), "line-1", 2))
	require.NoError(t, eng.UpdateItem(context.Background(), "line-1", 5))

	state := eng.Snapshot()
	assert.Equal(t, 5, state.Cart.Items[0].Quantity)
	assert.Equal(t, []string{"fetch", "update", "update"}, api.calls)
}

func TestUpdateItemWaitsForInFlightCall(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var mu sync.Mutex
	var quantities []int

	api := &stubAPI{
		fetchFn: func(ctx context.Context) (*types.Cart, error) {
			return serverCart(1), nil
		},
		updateFn: func(ctx context.Context, itemID string, quantity int) (*types.Cart, error) {
			mu.Lock()
			quantities = append(quantities, quantity)
			mu.Unlock()
			if quantity == 2 {
				<-release
			}
			return serverCart(quantity), nil
		},
	}
	eng := newTestEngine(t, api)
	require.NoError(t, eng.Initialize(context.Background(), false))

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- eng.UpdateItem(context.Background(), "line-1", 2)
	}()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(quantities) == 1
	}, time.Second, 2*time.Millisecond, "first update never reached the server")

	secondDone := make(chan error, 1)
	go func() {
		secondDone <- eng.UpdateItem(context.Background(), "line-1", 5)
	}()

	// The first call is still held open; the second must not have started.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, []int{2}, quantities, "second network call started while the first was in flight")
	mu.Unlock()

	close(release)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)

	mu.Lock()
	assert.Equal(t, []int{2, 5}, quantities)
	mu.Unlock()
	assert.Equal(t, 5, eng.Snapshot().Cart.Items[0].Quantity)
}

func TestUpdateItemRollsBackOnRejection(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		fetchFn: func(ctx context.Context) (*types.Cart, error) {
			return serverCart(2), nil
		},
		updateFn: func(ctx context.Context, itemID string, quantity int) (*types.Cart, error) {
			return nil, pkgerrors.New(pkgerrors.CodeRejected, "insufficient stock")
		},
	}
	eng := newTestEngine(t, api)
	require.NoError(t, eng.Initialize(context.Background(), false))

	err := eng.UpdateItem(context.Background(), "line-1", 50)
	require.Error(t, err)
	assert.Equal(t, "insufficient stock", pkgerrors.As(err).Message())
	assert.Equal(t, 2, eng.Snapshot().Cart.Items[0].Quantity, "quantity reverted to last confirmed value")
}

func TestUpdateItemZeroQuantityRemoves(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		fetchFn: func(ctx context.Context) (*types.Cart, error) {
			return serverCart(1), nil
		},
		removeFn: func(ctx context.Context, itemID string) (*types.Cart, error) {
			return &types.Cart{ID: "cart-1"}, nil
		},
	}
	eng := newTestEngine(t, api)
	require.NoError(t, eng.Initialize(context.Background(), false))

	require.NoError(t, eng.UpdateItem(context.Background(), "line-1", 0))
	assert.Contains(t, api.calls, "remove")
	assert.NotContains(t, api.calls, "update")
	assert.True(t, eng.Snapshot().Cart.IsEmpty())
}

func TestUpdateItemUnknownLine(t *testing.T) {
	t.Parallel()

	api := &stubAPI{}
	eng := newTestEngine(t, api)
	require.NoError(t, eng.Initialize(context.Background(), false))

	err := eng.UpdateItem(context.Background(), "no-such-line", 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.NotContains(t, api.calls, "update", "unknown lines never reach the server")
}

func TestRemoveItemRestoresPositionOnFailure(t *testing.T) {
	t.Parallel()

	threeLines := &types.Cart{
		ID: "cart-1",
		Items: []types.CartItem{
			{ID: "line-1", ProductID: "prod-1", Quantity: 1},
			{ID: "line-2", ProductID: "prod-2", Quantity: 1},
			{ID: "line-3", ProductID: "prod-3", Quantity: 1},
		},
	}
	api := &stubAPI{
		fetchFn: func(ctx context.Context) (*types.Cart, error) {
			return threeLines.Clone(), nil
		},
		removeFn: func(ctx context.Context, itemID string) (*types.Cart, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNetwork, "gateway timeout")
		},
	}
	eng := newTestEngine(t, api)
	require.NoError(t, eng.Initialize(context.Background(), false))

	err := eng.RemoveItem(context.Background(), "line-2")
	require.Error(t, err)

	state := eng.Snapshot()
	require.Len(t, state.Cart.Items, 3)
	assert.Equal(t, "line-2", state.Cart.Items[1].ID, "line restored at its original position")
}

func TestApplyPromotionsFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		fetchFn: func(ctx context.Context) (*types.Cart, error) {
			return serverCart(1), nil
		},
		promoFn: func(ctx context.Context, codes []string) (*types.Cart, error) {
			return nil, pkgerrors.New(pkgerrors.CodeRejected, "promotion code expired")
		},
	}
	eng := newTestEngine(t, api)
	require.NoError(t, eng.Initialize(context.Background(), false))

	err := eng.ApplyPromotions(context.Background(), []string{"EXPIRED1"})
	require.Error(t, err)
	assert.Equal(t, "promotion code expired", pkgerrors.As(err).Message())

	state := eng.Snapshot()
	assert.Empty(t, state.Cart.Promotions)
	assert.Equal(t, 1, state.Cart.TotalItems())
}

func TestApplyPromotionsAdoptsServerTotals(t *testing.T) {
	t.Parallel()

	discounted := serverCart(2)
	discounted.Promotions = []types.Promotion{{Code: "SAVE10", DiscountType: enums.DiscountTypePercentage, DiscountValue: decimal.NewFromInt(10)}}
	discounted.DiscountTotal = decimal.NewFromInt(500)
	discounted.Total = decimal.NewFromInt(4500)

	api := &stubAPI{
		promoFn: func(ctx context.Context, codes []string) (*types.Cart, error) {
			return discounted, nil
		},
	}
	eng := newTestEngine(t, api)
	require.NoError(t, eng.Initialize(context.Background(), false))

	require.NoError(t, eng.ApplyPromotions(context.Background(), []string{"  SAVE10  "}))

	state := eng.Snapshot()
	require.Len(t, state.Cart.Promotions, 1)
	assert.True(t, state.Cart.Total.Equal(decimal.NewFromInt(4500)))
}

func TestApplyPromotionsRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, &stubAPI{})

	err := eng.ApplyPromotions(context.Background(), []string{"  ", ""})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestEmailCartNeverMutatesState(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		fetchFn: func(ctx context.Context) (*types.Cart, error) {
			return serverCart(2), nil
		},
	}
	eng := newTestEngine(t, api)
	require.NoError(t, eng.Initialize(context.Background(), false))

	before := eng.Snapshot()
	require.NoError(t, eng.EmailCart(context.Background(), "shopper@example.com", true))
	after := eng.Snapshot()

	assert.Equal(t, before.Cart.Items, after.Cart.Items)
	assert.Equal(t, before.Cart.Total, after.Cart.Total)
}

func TestEmailCartValidatesAddress(t *testing.T) {
	t.Parallel()

	api := &stubAPI{}
	eng := newTestEngine(t, api)

	err := eng.EmailCart(context.Background(), "not-an-address", false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, api.calls, "invalid addresses never hit the network")
}

func TestClearResetsEverything(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		fetchFn: func(ctx context.Context) (*types.Cart, error) {
			return serverCart(4), nil
		},
	}
	eng := newTestEngine(t, api)
	require.NoError(t, eng.Initialize(context.Background(), false))
	require.Equal(t, 4, eng.Badge().TotalItems)

	require.NoError(t, eng.Clear(context.Background()))

	state := eng.Snapshot()
	assert.True(t, state.Cart.IsEmpty())
	assert.False(t, state.Loaded)
	assert.Equal(t, 0, eng.Badge().TotalItems)
}

func TestSnapshotReturnsDeepCopy(t *testing.T) {
	t.Parallel()

	api := &stubAPI{
		fetchFn: func(ctx context.Context) (*types.Cart, error) {
			return serverCart(1), nil
		},
	}
	eng := newTestEngine(t, api)
	require.NoError(t, eng.Initialize(context.Background(), false))

	state := eng.Snapshot()
	state.Cart.Items[0].Quantity = 99

	assert.Equal(t, 1, eng.Snapshot().Cart.Items[0].Quantity)
}

func TestCloseRejectsFurtherOperations(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(t, &stubAPI{})
	require.NoError(t, eng.Close())

	err := eng.Initialize(context.Background(), false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}
