package trade

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"petcycle/internal/domain/entity"
)

var (
	ErrNotLoaded        = errors.New("listing not loaded")
	ErrNotAllowed       = errors.New("confirmation not available to this user")
	ErrAlreadyConfirmed = errors.New("already confirmed, waiting for the other party")
	ErrInFlight         = errors.New("confirmation already in flight")
	ErrOwnListing       = errors.New("cannot open a deal on your own listing")
)

// ListingAPI is the server surface the coordinator drives. *apiclient.Client satisfies it.
type ListingAPI interface {
	ActiveChecker
	GetProduct(ctx context.Context, productID string) (*entity.Product, error)
	RegisterTransaction(ctx context.Context, productID string, finalPrice int64) (*entity.Transaction, bool, error)
	MarkSold(ctx context.Context, productID string) (*entity.Product, error)
	ConfirmPurchase(ctx context.Context, productID string) (*entity.Product, error)
}

// LikeMarker is the slice of LikeToggle the coordinator touches.
type LikeMarker interface {
	ClearLiked()
}

type Viewer struct {
	ID    string
	Admin bool
}

type DealResult struct {
	// PeerID is the chat target. Always the seller.
	PeerID     string
	Registered bool
	Existing   bool
	// Err holds a registration failure. The chat stays usable.
	Err error
}

type Controls struct {
	ShowSeller    bool
	SellerWaiting bool
	ShowBuyer     bool
	BuyerWaiting  bool
	InFlight      bool
}

type listingView struct {
	product     entity.Product
	machine     *Machine
	loaded      bool
	hasActiveTx bool
	inFlight    bool
	like        LikeMarker
}

// Coordinator holds the viewer's read of each listing it loaded. It never completes a deal
// locally: every state change comes from a server read.
type Coordinator struct {
	viewer   Viewer
	api      ListingAPI
	registry *Registry
	log      *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	listings map[string]*listingView
}

func NewCoordinator(viewer Viewer, api ListingAPI, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		viewer:   viewer,
		api:      api,
		registry: NewRegistry(viewer.ID, api, log),
		log:      log.Named("trade"),
		now:      time.Now,
		listings: make(map[string]*listingView),
	}
}

func (c *Coordinator) Registry() *Registry { return c.registry }

// TrackLike attaches the like marker cleared when the listing completes.
func (c *Coordinator) TrackLike(listingID string, m LikeMarker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view(listingID).like = m
}

// Load fetches the listing and whether the viewer holds an open transaction on it.
func (c *Coordinator) Load(ctx context.Context, listingID string) (State, error) {
	p, err := c.api.GetProduct(ctx, listingID)
	if err != nil {
		return OpenNone, err
	}
	active := false
	if p.SellerID != c.viewer.ID {
		active = c.registry.HasOpenTransaction(ctx, listingID, c.viewer.ID)
	}

	c.mu.Lock()
	v := c.view(listingID)
	v.product = *p
	v.loaded = true
	v.hasActiveTx = active
	v.machine.Reset(Derive(p))
	state := v.machine.Current()
	like := v.like
	c.mu.Unlock()

	if state == Completed && like != nil {
		like.ClearLiked()
	}
	return state, nil
}

func (c *Coordinator) State(listingID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.listings[listingID]; ok {
		return v.machine.Current()
	}
	return OpenNone
}

// Product returns the last server read of the listing.
func (c *Coordinator) Product(listingID string) (entity.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.listings[listingID]
	if !ok || !v.loaded {
		return entity.Product{}, false
	}
	return v.product, true
}

// InitiateDeal registers the viewer as prospective buyer, at most once per listing, and
// returns the seller to chat with.
func (c *Coordinator) InitiateDeal(ctx context.Context, listingID string, price int64) (DealResult, error) {
	p, ok := c.Product(listingID)
	if !ok {
		if _, err := c.Load(ctx, listingID); err != nil {
			return DealResult{}, err
		}
		p, _ = c.Product(listingID)
	}
	if p.SellerID == c.viewer.ID {
		return DealResult{}, ErrOwnListing
	}
	res := DealResult{PeerID: p.SellerID}

	if c.registry.HasOpenTransaction(ctx, listingID, c.viewer.ID) {
		res.Existing = true
		c.setActive(listingID, true)
		return res, nil
	}

	_, created, err := c.api.RegisterTransaction(ctx, listingID, price)
	if err != nil {
		c.log.Warn("register transaction failed", zap.String("listing", listingID), zap.Error(err))
		res.Err = err
		res.Existing = c.registry.HasOpenTransaction(ctx, listingID, c.viewer.ID)
		c.setActive(listingID, res.Existing)
		return res, nil
	}
	res.Registered = created
	res.Existing = !created
	c.setActive(listingID, true)
	return res, nil
}

func (c *Coordinator) Controls(listingID string) Controls {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.listings[listingID]
	if !ok || !v.loaded {
		return Controls{}
	}
	return c.controls(v)
}

func (c *Coordinator) controls(v *listingView) Controls {
	p := &v.product
	owner := p.SellerID == c.viewer.ID
	canManage := owner || c.viewer.Admin
	completed := v.machine.Current() == Completed

	ctl := Controls{InFlight: v.inFlight}
	ctl.ShowSeller = canManage && !completed
	ctl.SellerWaiting = ctl.ShowSeller && p.SellerConfirmedAt != nil
	ctl.ShowBuyer = !owner && !completed && v.hasActiveTx && (p.BuyerID == "" || p.BuyerID == c.viewer.ID)
	ctl.BuyerWaiting = ctl.ShowBuyer && p.BuyerConfirmedAt != nil
	return ctl
}

func (c *Coordinator) SellerConfirm(ctx context.Context, listingID string) (State, error) {
	return c.confirm(ctx, listingID, true)
}

func (c *Coordinator) BuyerConfirm(ctx context.Context, listingID string) (State, error) {
	return c.confirm(ctx, listingID, false)
}

func (c *Coordinator) confirm(ctx context.Context, listingID string, seller bool) (State, error) {
	c.mu.Lock()
	v, ok := c.listings[listingID]
	if !ok || !v.loaded {
		c.mu.Unlock()
		return OpenNone, ErrNotLoaded
	}
	ctl := c.controls(v)
	shown, waiting := ctl.ShowBuyer, ctl.BuyerWaiting
	if seller {
		shown, waiting = ctl.ShowSeller, ctl.SellerWaiting
	}
	switch {
	case !shown:
		c.mu.Unlock()
		return v.machine.Current(), ErrNotAllowed
	case waiting:
		c.mu.Unlock()
		return v.machine.Current(), ErrAlreadyConfirmed
	case v.inFlight:
		c.mu.Unlock()
		return v.machine.Current(), ErrInFlight
	}
	v.inFlight = true
	c.mu.Unlock()

	var err error
	if seller {
		_, err = c.api.MarkSold(ctx, listingID)
	} else {
		_, err = c.api.ConfirmPurchase(ctx, listingID)
	}
	if err != nil {
		c.mu.Lock()
		v.inFlight = false
		state := v.machine.Current()
		c.mu.Unlock()
		return state, err
	}

	fresh, ferr := c.api.GetProduct(ctx, listingID)

	c.mu.Lock()
	v.inFlight = false
	if ferr != nil {
		// The confirmation landed; keep the control disabled until the next read.
		c.log.Warn("listing refetch failed", zap.String("listing", listingID), zap.Error(ferr))
		now := c.now()
		if seller {
			v.product.SellerConfirmedAt = &now
		} else {
			v.product.BuyerConfirmedAt = &now
			v.product.BuyerID = c.viewer.ID
		}
	} else {
		v.product = *fresh
		next := Derive(fresh)
		if terr := v.machine.Transition(next); terr != nil {
			c.log.Debug("deal state jumped", zap.String("listing", listingID), zap.Error(terr))
			v.machine.Reset(next)
		}
	}
	state := v.machine.Current()
	like := v.like
	c.mu.Unlock()

	if state == Completed && like != nil {
		like.ClearLiked()
	}
	return state, nil
}

func (c *Coordinator) setActive(listingID string, active bool) {
	c.mu.Lock()
	c.view(listingID).hasActiveTx = active
	c.mu.Unlock()
}

// view must be called with mu held.
func (c *Coordinator) view(listingID string) *listingView {
	v, ok := c.listings[listingID]
	if !ok {
		v = &listingView{product: entity.Product{ID: listingID}, machine: NewMachine(OpenNone)}
		c.listings[listingID] = v
	}
	return v
}
