// Package oracle supplies the USD price of the tracked underlying,
// scaled by 10^18. Two implementations sit behind one read contract:
// a manually settable oracle for bootstrap and tests, and a pull
// oracle refreshed with externally verified, paid updates. Consumers
// are wired against PriceOracle and never know which variant they got.
package oracle

import (
	"errors"
	"math/big"
	"sync"
)

var (
	// ErrUninitialized is returned while no price has ever been stored.
	ErrUninitialized = errors.New("oracle: price not initialized")

	// ErrStalePrice is returned when the last verified price has aged
	// past the feed's freshness window.
	ErrStalePrice = errors.New("oracle: price is stale")

	// ErrInsufficientFee is returned when the fee offered for a pull
	// update is below the feed's required amount.
	ErrInsufficientFee = errors.New("oracle: insufficient update fee")

	// ErrInvalidUpdate is returned when the external verifier rejects
	// an update payload.
	ErrInvalidUpdate = errors.New("oracle: invalid or stale update")

	// ErrNonPositivePrice is returned for zero or negative prices.
	ErrNonPositivePrice = errors.New("oracle: price must be positive")
)

// PriceOracle resolves the current price of one synthetic-asset unit
// in USD, scaled by 10^18.
type PriceOracle interface {
	GetPrice() (*big.Int, error)
}

// ManualOracle stores whatever price it is handed. Setter is
// deliberately unrestricted; it exists for local deployments and
// tests, never production.
type ManualOracle struct {
	mu    sync.RWMutex
	price *big.Int
}

// NewManualOracle creates an oracle with no price set. Reads fail with
// ErrUninitialized until the first SetPrice.
func NewManualOracle() *ManualOracle {
	return &ManualOracle{}
}

// SetPrice stores p unconditionally.
func (o *ManualOracle) SetPrice(p *big.Int) error {
	if p == nil || p.Sign() <= 0 {
		return ErrNonPositivePrice
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.price = new(big.Int).Set(p)
	return nil
}

// GetPrice returns the last stored price.
func (o *ManualOracle) GetPrice() (*big.Int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.price == nil {
		return nil, ErrUninitialized
	}
	return new(big.Int).Set(o.price), nil
}
