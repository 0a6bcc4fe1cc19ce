// Package model defines the domain types shared across the engine.
// Core balances are raw *big.Int units in each asset's native
// precision; decimal strings appear only at the API and journal
// boundaries.
package model

import (
	"errors"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// AssetDecimals is the fixed precision of the synthetic asset and of
// every normalized collateral amount inside the vault.
const AssetDecimals = 18

// Journal event kinds.
const (
	KindFaucet       = "faucet"
	KindDeposit      = "deposit"
	KindMint         = "mint"
	KindBurn         = "burn"
	KindAddLiquidity = "add_liquidity"
	KindSwapIn       = "swap_collateral_for_asset"
	KindSwapOut      = "swap_asset_for_collateral"
	KindPriceUpdate  = "price_update"
)

// Event is an immutable record of one state-changing operation.
// Once appended to the journal these are never modified or deleted.
type Event struct {
	ID        string          `json:"id" db:"id"`
	Kind      string          `json:"kind" db:"kind"`
	Account   string          `json:"account" db:"account"`
	Asset     string          `json:"asset" db:"asset"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	AssetOut  string          `json:"asset_out,omitempty" db:"asset_out"`
	AmountOut decimal.Decimal `json:"amount_out" db:"amount_out"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// PositionView is the read-only composite returned for a vault account.
type PositionView struct {
	Account        string `json:"account"`
	Collateral     string `json:"collateral"`
	Debt           string `json:"debt"`
	Ratio          string `json:"ratio"`
	IsLiquidatable bool   `json:"is_liquidatable"`
}

// ReservesView is the read-only snapshot of the pool reserves.
type ReservesView struct {
	ReserveCollateral string `json:"reserve_collateral"`
	ReserveAsset      string `json:"reserve_asset"`
	OraclePrice       string `json:"oracle_price"`
}

// ErrBadAmount is returned for amounts that are negative, not a
// number, or carry more fractional digits than the asset supports.
var ErrBadAmount = errors.New("model: invalid amount")

// Pow10 returns 10^n as a fresh big integer.
func Pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// Scale returns the engine's fixed-point scale, 10^18.
func Scale() *big.Int {
	return Pow10(AssetDecimals)
}

// MaxRatio returns the sentinel collateral ratio reported for
// debt-free positions: the largest 256-bit unsigned value.
func MaxRatio() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return max.Sub(max, big.NewInt(1))
}

// ParseAmount converts a human decimal string ("100", "0.1") into raw
// units at the given precision. The conversion must be exact: excess
// fractional digits are rejected rather than rounded.
func ParseAmount(s string, decimals int) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, ErrBadAmount
	}
	if d.Sign() < 0 {
		return nil, ErrBadAmount
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return nil, ErrBadAmount
	}
	return shifted.BigInt(), nil
}

// FormatAmount renders raw units at the given precision as a human
// decimal string.
func FormatAmount(v *big.Int, decimals int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}

// DecimalFromRaw converts raw units into a decimal for journal rows.
func DecimalFromRaw(v *big.Int, decimals int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -int32(decimals))
}
