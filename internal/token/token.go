// Package token defines the collateral-token boundary consumed by the
// vault and pool, plus an in-process stable token that stands in for
// the external USD-pegged coin in development and tests.
package token

import (
	"errors"
	"math/big"
	"sync"
)

var (
	// ErrInsufficientBalance is returned when a transfer exceeds the
	// sender's balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")

	// ErrInsufficientAllowance is returned when a transfer-from exceeds
	// the spender's approved allowance.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")

	// ErrNonPositiveAmount is returned for zero or negative amounts.
	ErrNonPositiveAmount = errors.New("token: amount must be positive")
)

// Token is the fungible-balance contract the engine consumes. Callers
// are identified by opaque account strings; amounts are raw units in
// the token's native precision.
type Token interface {
	Symbol() string
	Decimals() int
	BalanceOf(account string) *big.Int
	Allowance(owner, spender string) *big.Int
	Approve(caller, spender string, amount *big.Int) error
	Transfer(caller, to string, amount *big.Int) error
	TransferFrom(caller, from, to string, amount *big.Int) error
}

// Stable is an in-memory fungible token with a fixed decimal precision
// and an open faucet mint. It mirrors the mock USD stablecoin the
// system is deployed against (6 decimals observed; never assumed).
type Stable struct {
	symbol   string
	decimals int

	mu         sync.RWMutex
	balances   map[string]*big.Int
	allowances map[string]map[string]*big.Int
	supply     *big.Int
}

// NewStable creates a stable token with the given symbol and precision.
func NewStable(symbol string, decimals int) *Stable {
	return &Stable{
		symbol:     symbol,
		decimals:   decimals,
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]map[string]*big.Int),
		supply:     new(big.Int),
	}
}

func (t *Stable) Symbol() string { return t.symbol }

func (t *Stable) Decimals() int { return t.decimals }

func (t *Stable) BalanceOf(account string) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if b, ok := t.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// TotalSupply returns the total minted supply.
func (t *Stable) TotalSupply() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.supply)
}

func (t *Stable) Allowance(owner, spender string) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if m, ok := t.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return new(big.Int)
}

func (t *Stable) Approve(caller, spender string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNonPositiveAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.allowances[caller]
	if !ok {
		m = make(map[string]*big.Int)
		t.allowances[caller] = m
	}
	m[spender] = new(big.Int).Set(amount)
	return nil
}

func (t *Stable) Transfer(caller, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrNonPositiveAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(caller, to, amount)
}

func (t *Stable) TransferFrom(caller, from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrNonPositiveAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	allowance := new(big.Int)
	if m, ok := t.allowances[from]; ok {
		if a, ok := m[caller]; ok {
			allowance = a
		}
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := t.move(from, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

// Mint credits freshly created units to an account. Unrestricted: the
// stand-in stablecoin doubles as a faucet.
func (t *Stable) Mint(to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrNonPositiveAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.credit(to, amount)
	t.supply.Add(t.supply, amount)
	return nil
}

// move debits from and credits to. Caller must hold the lock.
func (t *Stable) move(from, to string, amount *big.Int) error {
	b, ok := t.balances[from]
	if !ok || b.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	b.Sub(b, amount)
	t.credit(to, amount)
	return nil
}

func (t *Stable) credit(to string, amount *big.Int) {
	b, ok := t.balances[to]
	if !ok {
		b = new(big.Int)
		t.balances[to] = b
	}
	b.Add(b, amount)
}
