// Package asset implements the synthetic-asset ledger: an 18-decimal
// fungible balance book whose mint and burn entry points are gated on
// a single bound controller (the vault).
package asset

import (
	"errors"
	"math/big"
	"sync"

	"github.com/equiblock/engine/internal/model"
	"github.com/equiblock/engine/internal/token"
)

var (
	// ErrUnauthorized is returned when mint or burn is attempted by any
	// caller other than the bound controller.
	ErrUnauthorized = errors.New("asset: caller is not the controller")

	// ErrAlreadyBound is returned on a second controller bind. Binding
	// is one-shot; rebinding a live ledger would let a new controller
	// inflate supply against collateral it does not hold.
	ErrAlreadyBound = errors.New("asset: controller already bound")

	// ErrNoController is returned when mint or burn runs before any
	// controller has been bound.
	ErrNoController = errors.New("asset: no controller bound")
)

// BalanceChange describes one supply or balance mutation, delivered to
// the optional notification subscriber.
type BalanceChange struct {
	Kind   string // "mint", "burn", "transfer"
	From   string
	To     string
	Amount *big.Int
}

// Ledger is the synthetic-asset balance book. It satisfies token.Token
// so the pool can hold and move the asset through the same boundary it
// uses for the collateral token.
type Ledger struct {
	symbol string

	mu         sync.RWMutex
	controller string
	bound      bool
	balances   map[string]*big.Int
	allowances map[string]map[string]*big.Int
	supply     *big.Int

	notify func(BalanceChange)
}

var _ token.Token = (*Ledger)(nil)

// NewLedger creates an empty ledger for the given asset symbol.
func NewLedger(symbol string) *Ledger {
	return &Ledger{
		symbol:     symbol,
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]map[string]*big.Int),
		supply:     new(big.Int),
	}
}

// SetNotify registers a subscriber for balance-change events. The
// callback runs after the mutation commits, outside the ledger lock.
func (l *Ledger) SetNotify(fn func(BalanceChange)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notify = fn
}

// BindController binds the one address allowed to mint and burn.
// One-shot: subsequent calls fail with ErrAlreadyBound.
func (l *Ledger) BindController(controller string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bound {
		return ErrAlreadyBound
	}
	l.controller = controller
	l.bound = true
	return nil
}

// Controller returns the bound controller, or "" if none is bound.
func (l *Ledger) Controller() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.controller
}

func (l *Ledger) Symbol() string { return l.symbol }

func (l *Ledger) Decimals() int { return model.AssetDecimals }

func (l *Ledger) BalanceOf(account string) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// TotalSupply returns the outstanding synthetic supply.
func (l *Ledger) TotalSupply() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.supply)
}

func (l *Ledger) Allowance(owner, spender string) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if m, ok := l.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return new(big.Int)
}

func (l *Ledger) Approve(caller, spender string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return token.ErrNonPositiveAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.allowances[caller]
	if !ok {
		m = make(map[string]*big.Int)
		l.allowances[caller] = m
	}
	m[spender] = new(big.Int).Set(amount)
	return nil
}

func (l *Ledger) Transfer(caller, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return token.ErrNonPositiveAmount
	}
	l.mu.Lock()
	if err := l.move(caller, to, amount); err != nil {
		l.mu.Unlock()
		return err
	}
	fn := l.notify
	l.mu.Unlock()

	if fn != nil {
		fn(BalanceChange{Kind: "transfer", From: caller, To: to, Amount: new(big.Int).Set(amount)})
	}
	return nil
}

func (l *Ledger) TransferFrom(caller, from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return token.ErrNonPositiveAmount
	}
	l.mu.Lock()
	allowance := new(big.Int)
	if m, ok := l.allowances[from]; ok {
		if a, ok := m[caller]; ok {
			allowance = a
		}
	}
	if allowance.Cmp(amount) < 0 {
		l.mu.Unlock()
		return token.ErrInsufficientAllowance
	}
	if err := l.move(from, to, amount); err != nil {
		l.mu.Unlock()
		return err
	}
	allowance.Sub(allowance, amount)
	fn := l.notify
	l.mu.Unlock()

	if fn != nil {
		fn(BalanceChange{Kind: "transfer", From: from, To: to, Amount: new(big.Int).Set(amount)})
	}
	return nil
}

// Mint creates amount units for to. Caller must be the bound
// controller.
func (l *Ledger) Mint(caller, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return token.ErrNonPositiveAmount
	}
	l.mu.Lock()
	if !l.bound {
		l.mu.Unlock()
		return ErrNoController
	}
	if caller != l.controller {
		l.mu.Unlock()
		return ErrUnauthorized
	}
	l.credit(to, amount)
	l.supply.Add(l.supply, amount)
	fn := l.notify
	l.mu.Unlock()

	if fn != nil {
		fn(BalanceChange{Kind: "mint", To: to, Amount: new(big.Int).Set(amount)})
	}
	return nil
}

// Burn destroys amount units held by from. Caller must be the bound
// controller.
func (l *Ledger) Burn(caller, from string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return token.ErrNonPositiveAmount
	}
	l.mu.Lock()
	if !l.bound {
		l.mu.Unlock()
		return ErrNoController
	}
	if caller != l.controller {
		l.mu.Unlock()
		return ErrUnauthorized
	}
	b, ok := l.balances[from]
	if !ok || b.Cmp(amount) < 0 {
		l.mu.Unlock()
		return token.ErrInsufficientBalance
	}
	b.Sub(b, amount)
	l.supply.Sub(l.supply, amount)
	fn := l.notify
	l.mu.Unlock()

	if fn != nil {
		fn(BalanceChange{Kind: "burn", From: from, Amount: new(big.Int).Set(amount)})
	}
	return nil
}

// move debits from and credits to. Caller must hold the lock.
func (l *Ledger) move(from, to string, amount *big.Int) error {
	b, ok := l.balances[from]
	if !ok || b.Cmp(amount) < 0 {
		return token.ErrInsufficientBalance
	}
	b.Sub(b, amount)
	l.credit(to, amount)
	return nil
}

func (l *Ledger) credit(to string, amount *big.Int) {
	b, ok := l.balances[to]
	if !ok {
		b = new(big.Int)
		l.balances[to] = b
	}
	b.Add(b, amount)
}
