package trade

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petcycle/internal/domain/entity"
)

// fakeMarket keeps listing state the way the server does and hands out per-user views.
type fakeMarket struct {
	mu       sync.Mutex
	products map[string]*entity.Product
	open     map[string]map[string]bool
	admins   map[string]bool

	registerCalls int
	markSoldCalls int
	confirmCalls  int
	activeCalls   int

	failRegister error
	failConfirm  error
	failActive   error
	markSoldGate chan struct{}
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		products: map[string]*entity.Product{
			"42": {ID: "42", SellerID: "seller", Title: "Cat tower", Price: 15000, Status: entity.ProductSelling},
		},
		open:   map[string]map[string]bool{},
		admins: map[string]bool{"root": true},
	}
}

func (m *fakeMarket) as(uid string) *fakeAPI { return &fakeAPI{m: m, uid: uid} }

type fakeAPI struct {
	m   *fakeMarket
	uid string
}

var errConflict = errors.New("conflict")

func (a *fakeAPI) GetProduct(_ context.Context, id string) (*entity.Product, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	p, ok := a.m.products[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *p
	return &cp, nil
}

func (a *fakeAPI) HasActiveTransaction(_ context.Context, id string) (bool, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	a.m.activeCalls++
	if a.m.failActive != nil {
		return false, a.m.failActive
	}
	return a.m.open[id][a.uid], nil
}

func (a *fakeAPI) RegisterTransaction(_ context.Context, id string, price int64) (*entity.Transaction, bool, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	a.m.registerCalls++
	if a.m.failRegister != nil {
		return nil, false, a.m.failRegister
	}
	tx := &entity.Transaction{ProductID: id, BuyerID: a.uid, FinalPrice: price}
	if a.m.open[id][a.uid] {
		return tx, false, nil
	}
	p := a.m.products[id]
	if p.Status != entity.ProductSelling {
		return nil, false, errConflict
	}
	p.Status = entity.ProductReserved
	if a.m.open[id] == nil {
		a.m.open[id] = map[string]bool{}
	}
	a.m.open[id][a.uid] = true
	return tx, true, nil
}

func (a *fakeAPI) MarkSold(_ context.Context, id string) (*entity.Product, error) {
	if gate := a.m.markSoldGate; gate != nil {
		<-gate
	}
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	a.m.markSoldCalls++
	p := a.m.products[id]
	if p.SellerID != a.uid && !a.m.admins[a.uid] {
		return nil, errors.New("forbidden")
	}
	if p.Status == entity.ProductSold || p.SellerConfirmedAt != nil {
		return nil, errConflict
	}
	now := time.Now()
	p.SellerConfirmedAt = &now
	p.CompleteIfConfirmed(now)
	cp := *p
	return &cp, nil
}

func (a *fakeAPI) ConfirmPurchase(_ context.Context, id string) (*entity.Product, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	a.m.confirmCalls++
	if a.m.failConfirm != nil {
		return nil, a.m.failConfirm
	}
	p := a.m.products[id]
	if !a.m.open[id][a.uid] {
		return nil, errors.New("forbidden")
	}
	if (p.BuyerID != "" && p.BuyerID != a.uid) || p.BuyerConfirmedAt != nil {
		return nil, errConflict
	}
	now := time.Now()
	p.BuyerID = a.uid
	p.BuyerConfirmedAt = &now
	p.CompleteIfConfirmed(now)
	cp := *p
	return &cp, nil
}

type fakeLikes struct {
	err    error
	status entity.LikeStatus
	calls  int
}

func (f *fakeLikes) ToggleLike(_ context.Context, id string) (*entity.LikeStatus, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	st := f.status
	st.ProductID = id
	return &st, nil
}

func TestMachineTransitions(t *testing.T) {
	m := NewMachine("")
	assert.Equal(t, OpenNone, m.Current())

	require.Error(t, m.Transition(Completed))
	require.NoError(t, m.Transition(OpenBuyerOnly))
	require.NoError(t, m.Transition(OpenBuyerOnly))
	require.Error(t, m.Transition(OpenSellerOnly))
	require.NoError(t, m.Transition(Completed))

	err := m.Transition(OpenNone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid transition from COMPLETED to OPEN_NONE")
}

func TestDerive(t *testing.T) {
	now := time.Now()
	assert.Equal(t, OpenNone, Derive(nil))
	assert.Equal(t, OpenNone, Derive(&entity.Product{Status: entity.ProductReserved}))
	assert.Equal(t, OpenSellerOnly, Derive(&entity.Product{SellerConfirmedAt: &now}))
	assert.Equal(t, OpenBuyerOnly, Derive(&entity.Product{BuyerConfirmedAt: &now}))
	assert.Equal(t, Completed, Derive(&entity.Product{Status: entity.ProductSold}))
}

func TestDealCompletesAfterBothConfirm(t *testing.T) {
	ctx := context.Background()
	market := newFakeMarket()
	buyer := NewCoordinator(Viewer{ID: "buyer"}, market.as("buyer"), nil)
	seller := NewCoordinator(Viewer{ID: "seller"}, market.as("seller"), nil)
	like := NewLikeToggle(&fakeLikes{}, "42", entity.LikeStatus{Liked: true, LikeCount: 3})
	buyer.TrackLike("42", like)

	state, err := buyer.Load(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, OpenNone, state)
	assert.False(t, buyer.Controls("42").ShowBuyer)

	deal, err := buyer.InitiateDeal(ctx, "42", 14000)
	require.NoError(t, err)
	assert.Equal(t, DealResult{PeerID: "seller", Registered: true}, deal)
	assert.Equal(t, Controls{ShowBuyer: true}, buyer.Controls("42"))

	_, err = seller.Load(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, Controls{ShowSeller: true}, seller.Controls("42"))

	state, err = seller.SellerConfirm(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, OpenSellerOnly, state)
	assert.Equal(t, Controls{ShowSeller: true, SellerWaiting: true}, seller.Controls("42"))

	_, err = buyer.Load(ctx, "42")
	require.NoError(t, err)
	state, err = buyer.BuyerConfirm(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, Completed, state)
	assert.Equal(t, Controls{}, buyer.Controls("42"))
	assert.Equal(t, entity.LikeStatus{ProductID: "42"}, like.Status())

	state, err = seller.Load(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, Completed, state)
	assert.False(t, seller.Controls("42").ShowSeller)

	p, ok := buyer.Product("42")
	require.True(t, ok)
	assert.Equal(t, "buyer", p.BuyerID)
	assert.Equal(t, entity.ProductSold, p.Status)
}

func TestSellerConfirmTwiceMakesOneCall(t *testing.T) {
	ctx := context.Background()
	market := newFakeMarket()
	seller := NewCoordinator(Viewer{ID: "seller"}, market.as("seller"), nil)
	_, err := seller.Load(ctx, "42")
	require.NoError(t, err)

	_, err = seller.SellerConfirm(ctx, "42")
	require.NoError(t, err)
	state, err := seller.SellerConfirm(ctx, "42")
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
	assert.Equal(t, OpenSellerOnly, state)
	assert.Equal(t, 1, market.markSoldCalls)
}

func TestConfirmInFlightBlocksSecondSubmit(t *testing.T) {
	ctx := context.Background()
	market := newFakeMarket()
	market.markSoldGate = make(chan struct{})
	seller := NewCoordinator(Viewer{ID: "seller"}, market.as("seller"), nil)
	_, err := seller.Load(ctx, "42")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := seller.SellerConfirm(ctx, "42")
		done <- err
	}()
	require.Eventually(t, func() bool { return seller.Controls("42").InFlight }, time.Second, 5*time.Millisecond)

	_, err = seller.SellerConfirm(ctx, "42")
	assert.ErrorIs(t, err, ErrInFlight)

	close(market.markSoldGate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, market.markSoldCalls)
	assert.False(t, seller.Controls("42").InFlight)
}

func TestInitiateDealTwiceRegistersOnce(t *testing.T) {
	ctx := context.Background()
	market := newFakeMarket()
	buyer := NewCoordinator(Viewer{ID: "buyer"}, market.as("buyer"), nil)

	first, err := buyer.InitiateDeal(ctx, "42", 15000)
	require.NoError(t, err)
	assert.True(t, first.Registered)

	second, err := buyer.InitiateDeal(ctx, "42", 15000)
	require.NoError(t, err)
	assert.Equal(t, DealResult{PeerID: "seller", Existing: true}, second)
	assert.Equal(t, 1, market.registerCalls)
}

func TestInitiateDealFailureKeepsChatTarget(t *testing.T) {
	ctx := context.Background()

	t.Run("registry hit after failed create", func(t *testing.T) {
		market := newFakeMarket()
		buyer := NewCoordinator(Viewer{ID: "buyer"}, market.as("buyer"), nil)
		_, err := buyer.Load(ctx, "42")
		require.NoError(t, err)

		// Another tab registered between the first check and the create.
		market.failRegister = errConflict
		checks := 0
		buyer.registry = NewRegistry("buyer", activeFunc(func(ctx context.Context, id string) (bool, error) {
			checks++
			if checks == 1 {
				return false, nil
			}
			return true, nil
		}), nil)

		deal, err := buyer.InitiateDeal(ctx, "42", 15000)
		require.NoError(t, err)
		assert.Equal(t, "seller", deal.PeerID)
		assert.True(t, deal.Existing)
		assert.ErrorIs(t, deal.Err, errConflict)
		assert.True(t, buyer.Controls("42").ShowBuyer)
	})

	t.Run("no transaction at all", func(t *testing.T) {
		market := newFakeMarket()
		market.failRegister = errors.New("unavailable")
		buyer := NewCoordinator(Viewer{ID: "buyer"}, market.as("buyer"), nil)

		deal, err := buyer.InitiateDeal(ctx, "42", 15000)
		require.NoError(t, err)
		assert.Equal(t, "seller", deal.PeerID)
		assert.False(t, deal.Existing)
		assert.False(t, deal.Registered)
		assert.False(t, buyer.Controls("42").ShowBuyer)
	})
}

func TestInitiateDealOnOwnListing(t *testing.T) {
	market := newFakeMarket()
	seller := NewCoordinator(Viewer{ID: "seller"}, market.as("seller"), nil)

	_, err := seller.InitiateDeal(context.Background(), "42", 15000)
	assert.ErrorIs(t, err, ErrOwnListing)
	assert.Zero(t, market.registerCalls)
}

func TestBuyerConfirmFailureLeavesControls(t *testing.T) {
	ctx := context.Background()
	market := newFakeMarket()
	buyer := NewCoordinator(Viewer{ID: "buyer"}, market.as("buyer"), nil)
	_, err := buyer.InitiateDeal(ctx, "42", 15000)
	require.NoError(t, err)

	market.failConfirm = errors.New("network down")
	state, err := buyer.BuyerConfirm(ctx, "42")
	require.Error(t, err)
	assert.Equal(t, OpenNone, state)
	assert.Equal(t, Controls{ShowBuyer: true}, buyer.Controls("42"))

	market.failConfirm = nil
	state, err = buyer.BuyerConfirm(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, OpenBuyerOnly, state)
	assert.Equal(t, Controls{ShowBuyer: true, BuyerWaiting: true}, buyer.Controls("42"))
}

func TestControlsByRole(t *testing.T) {
	ctx := context.Background()
	market := newFakeMarket()
	now := time.Now()
	market.products["42"].BuyerID = "someone-else"
	market.products["42"].BuyerConfirmedAt = &now
	market.open["42"] = map[string]bool{"buyer": true, "someone-else": true}

	admin := NewCoordinator(Viewer{ID: "root", Admin: true}, market.as("root"), nil)
	_, err := admin.Load(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, Controls{ShowSeller: true}, admin.Controls("42"))

	buyer := NewCoordinator(Viewer{ID: "buyer"}, market.as("buyer"), nil)
	_, err = buyer.Load(ctx, "42")
	require.NoError(t, err)
	assert.False(t, buyer.Controls("42").ShowBuyer)
	_, err = buyer.BuyerConfirm(ctx, "42")
	assert.ErrorIs(t, err, ErrNotAllowed)

	stranger := NewCoordinator(Viewer{ID: "stranger"}, market.as("stranger"), nil)
	_, err = stranger.Load(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, Controls{}, stranger.Controls("42"))

	_, err = NewCoordinator(Viewer{ID: "x"}, market.as("x"), nil).SellerConfirm(ctx, "42")
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.Zero(t, market.markSoldCalls)
	assert.Zero(t, market.confirmCalls)
}

type activeFunc func(ctx context.Context, id string) (bool, error)

func (f activeFunc) HasActiveTransaction(ctx context.Context, id string) (bool, error) {
	return f(ctx, id)
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	calls := 0
	reg := NewRegistry("buyer", activeFunc(func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	}), nil)

	assert.True(t, reg.HasOpenTransaction(ctx, "42", "buyer"))
	assert.False(t, reg.HasOpenTransaction(ctx, "42", "someone-else"))
	assert.False(t, reg.HasOpenTransaction(ctx, "", "buyer"))
	assert.Equal(t, 1, calls)

	failing := NewRegistry("buyer", activeFunc(func(context.Context, string) (bool, error) {
		return true, errors.New("boom")
	}), nil)
	assert.False(t, failing.HasOpenTransaction(ctx, "42", "buyer"))
}

func TestLikeToggle(t *testing.T) {
	ctx := context.Background()

	t.Run("adopts server value", func(t *testing.T) {
		api := &fakeLikes{status: entity.LikeStatus{Liked: true, LikeCount: 7}}
		l := NewLikeToggle(api, "42", entity.LikeStatus{LikeCount: 5})

		st, err := l.Toggle(ctx)
		require.NoError(t, err)
		assert.Equal(t, entity.LikeStatus{ProductID: "42", Liked: true, LikeCount: 7}, st)
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		api := &fakeLikes{err: errors.New("offline")}
		l := NewLikeToggle(api, "42", entity.LikeStatus{Liked: true, LikeCount: 2})

		st, err := l.Toggle(ctx)
		require.Error(t, err)
		assert.Equal(t, entity.LikeStatus{ProductID: "42", Liked: true, LikeCount: 2}, st)
		assert.Equal(t, 1, api.calls)
	})

	t.Run("clear wins over a late failure", func(t *testing.T) {
		l := NewLikeToggle(nil, "42", entity.LikeStatus{Liked: true, LikeCount: 2})
		l.api = likeFunc(func() (*entity.LikeStatus, error) {
			l.ClearLiked()
			return nil, errors.New("listing sold")
		})

		st, err := l.Toggle(ctx)
		require.Error(t, err)
		assert.Equal(t, entity.LikeStatus{ProductID: "42"}, st)
	})
}

type likeFunc func() (*entity.LikeStatus, error)

func (f likeFunc) ToggleLike(context.Context, string) (*entity.LikeStatus, error) { return f() }
