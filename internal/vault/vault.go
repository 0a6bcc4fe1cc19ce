// Package vault implements the collateral vault: per-account
// collateral/debt bookkeeping, mint and burn gating against the oracle
// price, and collateral-ratio / liquidation computation.
//
// All arithmetic is exact big-integer fixed point. Collateral arrives
// in the token's native precision and is normalized to 18 decimals on
// deposit; every multiplication happens before any division and
// integer division truncates toward zero.
package vault

import (
	"errors"
	"math/big"

	"github.com/equiblock/engine/internal/guard"
	"github.com/equiblock/engine/internal/model"
	"github.com/equiblock/engine/internal/oracle"
	"github.com/equiblock/engine/internal/token"
)

const (
	// InitialRatioPct is the minimum collateral ratio, in percent,
	// required immediately after a mint.
	InitialRatioPct = 500

	// LiquidationRatioPct is the ratio, in percent, below which a
	// position becomes eligible for liquidation.
	LiquidationRatioPct = 150
)

var (
	// ErrInsufficientCollateral is returned when a mint would leave the
	// position below the 500% initial ratio.
	ErrInsufficientCollateral = errors.New("vault: not enough collateral")

	// ErrInsufficientDebt is returned when a burn exceeds the account's
	// outstanding debt.
	ErrInsufficientDebt = errors.New("vault: burn exceeds outstanding debt")

	// ErrAlreadyBound is returned on a second synthetic-asset bind.
	ErrAlreadyBound = errors.New("vault: synthetic asset already bound")

	// ErrNoAsset is returned when minting or burning before the
	// synthetic asset has been bound.
	ErrNoAsset = errors.New("vault: no synthetic asset bound")

	// ErrReentrantCall is returned when a callee (token, oracle,
	// ledger) re-enters a vault operation that is still in flight.
	ErrReentrantCall = errors.New("vault: reentrant call")
)

// SyntheticAsset is the controller-gated mint/burn surface the vault
// drives. Satisfied by *asset.Ledger.
type SyntheticAsset interface {
	Mint(caller, to string, amount *big.Int) error
	Burn(caller, from string, amount *big.Int) error
}

// Position holds one account's normalized collateral and synthetic
// debt, both in 18-decimal raw units. Records are created zero-valued
// on first deposit and never deleted.
type Position struct {
	Collateral *big.Int
	Debt       *big.Int
}

// UserPosition is the read-only composite returned by GetUserPosition.
type UserPosition struct {
	Collateral     *big.Int
	Debt           *big.Int
	Ratio          *big.Int
	IsLiquidatable bool
}

// Vault owns the position map; callers reach it only through the
// operations below. Operations are serialized by gate and guarded
// against reentrancy: a callee calling back into the vault mid-update
// fails with ErrReentrantCall instead of observing or corrupting
// partial state, while independent goroutines simply queue.
type Vault struct {
	account    string
	collateral token.Token
	oracle     oracle.PriceOracle
	normFactor *big.Int // 10^(18 - collateral decimals)

	gate  guard.Mutex
	asset SyntheticAsset
	bound bool

	positions map[string]*Position
}

// New creates a vault holding collateral through the given token under
// the given account identity, pricing debt through the given oracle.
// The synthetic asset is bound separately, once, via
// BindSyntheticAsset.
func New(account string, collateral token.Token, o oracle.PriceOracle) *Vault {
	return &Vault{
		account:    account,
		collateral: collateral,
		oracle:     o,
		normFactor: model.Pow10(model.AssetDecimals - collateral.Decimals()),
		positions:  make(map[string]*Position),
	}
}

// Account returns the vault's identity at the token/ledger boundary.
func (v *Vault) Account() string { return v.account }

// CollateralDecimals returns the collateral token's native precision.
func (v *Vault) CollateralDecimals() int { return v.collateral.Decimals() }

// BindSyntheticAsset wires the ledger the vault mints and burns
// through. One-shot: rebinding fails with ErrAlreadyBound.
func (v *Vault) BindSyntheticAsset(a SyntheticAsset) error {
	if err := v.begin(); err != nil {
		return err
	}
	defer v.end()
	if v.bound {
		return ErrAlreadyBound
	}
	v.asset = a
	v.bound = true
	return nil
}

// begin acquires the vault for one atomic operation. Independent
// goroutines queue; only a nested call from the goroutine that
// already holds the vault is rejected.
func (v *Vault) begin() error {
	if err := v.gate.Acquire(); err != nil {
		return ErrReentrantCall
	}
	return nil
}

func (v *Vault) end() {
	v.gate.Release()
}

// DepositCollateral pulls amount (native precision) from caller and
// credits the normalized value to the caller's position. Token-side
// failures (balance, allowance) propagate unchanged and leave the
// position untouched.
func (v *Vault) DepositCollateral(caller string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return token.ErrNonPositiveAmount
	}
	if err := v.begin(); err != nil {
		return err
	}
	defer v.end()

	if err := v.collateral.TransferFrom(v.account, caller, v.account, amount); err != nil {
		return err
	}

	pos := v.position(caller)
	normalized := new(big.Int).Mul(amount, v.normFactor)
	pos.Collateral.Add(pos.Collateral, normalized)
	return nil
}

// MintEquiAsset mints amount (18-decimal units) of synthetic debt to
// the caller, provided the position stays at or above the 500% initial
// ratio at the current oracle price. The ratio check, the ledger mint,
// and the debt increment commit as one step; a failed mint leaves the
// debt unchanged.
func (v *Vault) MintEquiAsset(caller string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return token.ErrNonPositiveAmount
	}
	if err := v.begin(); err != nil {
		return err
	}
	defer v.end()

	if !v.bound {
		return ErrNoAsset
	}
	price, err := v.oracle.GetPrice()
	if err != nil {
		return err
	}

	pos := v.position(caller)
	newDebt := new(big.Int).Add(pos.Debt, amount)

	// debtValueUsd = newDebt * price / SCALE; the collateral token is
	// USD-pegged so collateral is already the USD value.
	debtValue := new(big.Int).Mul(newDebt, price)
	debtValue.Quo(debtValue, model.Scale())

	lhs := new(big.Int).Mul(pos.Collateral, big.NewInt(100))
	rhs := new(big.Int).Mul(debtValue, big.NewInt(InitialRatioPct))
	if lhs.Cmp(rhs) < 0 {
		return ErrInsufficientCollateral
	}

	if err := v.asset.Mint(v.account, caller, amount); err != nil {
		return err
	}
	pos.Debt.Set(newDebt)
	return nil
}

// BurnEquiAsset burns amount of the caller's synthetic balance and
// retires the same amount of debt. Collateral is left untouched;
// burning only reduces debt.
func (v *Vault) BurnEquiAsset(caller string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return token.ErrNonPositiveAmount
	}
	if err := v.begin(); err != nil {
		return err
	}
	defer v.end()

	if !v.bound {
		return ErrNoAsset
	}
	pos := v.position(caller)
	if pos.Debt.Cmp(amount) < 0 {
		return ErrInsufficientDebt
	}

	if err := v.asset.Burn(v.account, caller, amount); err != nil {
		return err
	}
	pos.Debt.Sub(pos.Debt, amount)
	return nil
}

// GetCollateralRatio returns the account's collateral ratio in the
// percent-times-SCALE convention: 100·10^18 means exactly 100%.
// Debt-free positions report the sentinel maximum instead of dividing
// by zero.
func (v *Vault) GetCollateralRatio(account string) (*big.Int, error) {
	if err := v.begin(); err != nil {
		return nil, err
	}
	defer v.end()

	price, err := v.oracle.GetPrice()
	if err != nil {
		return nil, err
	}
	return v.ratio(v.position(account), price), nil
}

// IsLiquidatable reports whether the account holds debt and its ratio
// has dropped below the 150% liquidation threshold.
func (v *Vault) IsLiquidatable(account string) (bool, error) {
	if err := v.begin(); err != nil {
		return false, err
	}
	defer v.end()

	price, err := v.oracle.GetPrice()
	if err != nil {
		return false, err
	}
	return v.liquidatable(v.position(account), price), nil
}

// GetUserPosition returns the account's collateral, debt, ratio, and
// liquidation flag in one consistent read.
func (v *Vault) GetUserPosition(account string) (UserPosition, error) {
	if err := v.begin(); err != nil {
		return UserPosition{}, err
	}
	defer v.end()

	price, err := v.oracle.GetPrice()
	if err != nil {
		return UserPosition{}, err
	}
	pos := v.position(account)
	return UserPosition{
		Collateral:     new(big.Int).Set(pos.Collateral),
		Debt:           new(big.Int).Set(pos.Debt),
		Ratio:          v.ratio(pos, price),
		IsLiquidatable: v.liquidatable(pos, price),
	}, nil
}

// position returns the account's record, creating a zero-valued one on
// first touch. Caller must hold the lock.
func (v *Vault) position(account string) *Position {
	pos, ok := v.positions[account]
	if !ok {
		pos = &Position{Collateral: new(big.Int), Debt: new(big.Int)}
		v.positions[account] = pos
	}
	return pos
}

// ratio computes collateral * SCALE * 100 / (debt * price / SCALE).
// Caller must hold the lock.
func (v *Vault) ratio(pos *Position, price *big.Int) *big.Int {
	if pos.Debt.Sign() == 0 {
		return model.MaxRatio()
	}
	debtValue := new(big.Int).Mul(pos.Debt, price)
	debtValue.Quo(debtValue, model.Scale())
	if debtValue.Sign() == 0 {
		return model.MaxRatio()
	}
	r := new(big.Int).Mul(pos.Collateral, model.Scale())
	r.Mul(r, big.NewInt(100))
	return r.Quo(r, debtValue)
}

func (v *Vault) liquidatable(pos *Position, price *big.Int) bool {
	if pos.Debt.Sign() == 0 {
		return false
	}
	threshold := new(big.Int).Mul(big.NewInt(LiquidationRatioPct), model.Scale())
	return v.ratio(pos, price).Cmp(threshold) < 0
}
