// Package trade is the client side of the dual-confirmation sale: it derives the deal state
// from server-reported listing fields and decides which confirmation controls to show.
package trade

import (
	"fmt"
	"slices"
	"sync"

	"petcycle/internal/domain/entity"
)

// State represents where a deal stands between the two confirmations.
type State string

const (
	OpenNone       State = "OPEN_NONE"
	OpenSellerOnly State = "OPEN_SELLER_ONLY"
	OpenBuyerOnly  State = "OPEN_BUYER_ONLY"
	Completed      State = "COMPLETED"
)

// validTransitions defines allowed state transitions. Completed is terminal.
var validTransitions = map[State][]State{
	OpenNone:       {OpenSellerOnly, OpenBuyerOnly},
	OpenSellerOnly: {Completed},
	OpenBuyerOnly:  {Completed},
	Completed:      {},
}

// Derive maps a listing to its deal state.
func Derive(p *entity.Product) State {
	switch {
	case p == nil:
		return OpenNone
	case p.Status == entity.ProductSold || p.BothConfirmed():
		return Completed
	case p.SellerConfirmedAt != nil:
		return OpenSellerOnly
	case p.BuyerConfirmedAt != nil:
		return OpenBuyerOnly
	default:
		return OpenNone
	}
}

// Machine tracks and enforces deal state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
}

func NewMachine(initial State) *Machine {
	if initial == "" {
		initial = OpenNone
	}
	return &Machine{current: initial}
}

func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition moves to a new state. Staying in the current state is allowed.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if to == m.current {
		return nil
	}
	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	m.current = to
	return nil
}

// Reset adopts to without validation. Used when a fresh server read replaces local knowledge.
func (m *Machine) Reset(to State) {
	m.mu.Lock()
	m.current = to
	m.mu.Unlock()
}
