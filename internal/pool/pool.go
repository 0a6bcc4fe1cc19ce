// Package pool implements the oracle-priced liquidity pool. Swaps are
// zero-fee and priced entirely by the oracle; reserves act only as a
// liquidity ceiling, never as a pricing curve.
package pool

import (
	"errors"
	"math/big"

	"github.com/equiblock/engine/internal/guard"
	"github.com/equiblock/engine/internal/model"
	"github.com/equiblock/engine/internal/oracle"
	"github.com/equiblock/engine/internal/token"
)

var (
	// ErrInsufficientLiquidity is returned when a swap's computed
	// output exceeds the pool's reserve of the output asset.
	ErrInsufficientLiquidity = errors.New("pool: insufficient liquidity")

	// ErrReentrantCall is returned when a callee re-enters a pool
	// operation that is still in flight.
	ErrReentrantCall = errors.New("pool: reentrant call")
)

// Pool holds pooled reserves of the collateral token (native
// precision) and the synthetic asset (18 decimals). Reserves are
// increased by liquidity contributions and by the "in" side of every
// swap, decreased by the "out" side. Liquidity adds are deliberately
// unshared: no ratio enforcement, no share receipts, no redemption.
type Pool struct {
	account    string
	collateral token.Token
	asset      token.Token
	oracle     oracle.PriceOracle
	normFactor *big.Int // 10^(18 - collateral decimals)

	gate guard.Mutex

	reserveCollateral *big.Int
	reserveAsset      *big.Int
}

// New creates an empty pool trading the collateral token against the
// synthetic asset at the oracle price, holding its reserves under the
// given account identity.
func New(account string, collateral, synthetic token.Token, o oracle.PriceOracle) *Pool {
	return &Pool{
		account:           account,
		collateral:        collateral,
		asset:             synthetic,
		oracle:            o,
		normFactor:        model.Pow10(model.AssetDecimals - collateral.Decimals()),
		reserveCollateral: new(big.Int),
		reserveAsset:      new(big.Int),
	}
}

// Account returns the pool's identity at the token boundary.
func (p *Pool) Account() string { return p.account }

// begin acquires the pool for one atomic operation. Independent
// goroutines queue; only a nested call from the goroutine that
// already holds the pool is rejected.
func (p *Pool) begin() error {
	if err := p.gate.Acquire(); err != nil {
		return ErrReentrantCall
	}
	return nil
}

func (p *Pool) end() {
	p.gate.Release()
}

// AddLiquidity pulls both amounts from the caller into the reserves.
// Either amount may be zero; there is no proportionality requirement.
// If the second pull fails the first is returned, so a failed add
// leaves both reserves and the caller's balances unchanged.
func (p *Pool) AddLiquidity(caller string, collateralAmount, assetAmount *big.Int) error {
	if collateralAmount == nil || collateralAmount.Sign() < 0 ||
		assetAmount == nil || assetAmount.Sign() < 0 {
		return token.ErrNonPositiveAmount
	}
	if collateralAmount.Sign() == 0 && assetAmount.Sign() == 0 {
		return token.ErrNonPositiveAmount
	}
	if err := p.begin(); err != nil {
		return err
	}
	defer p.end()

	if collateralAmount.Sign() > 0 {
		if err := p.collateral.TransferFrom(p.account, caller, p.account, collateralAmount); err != nil {
			return err
		}
	}
	if assetAmount.Sign() > 0 {
		if err := p.asset.TransferFrom(p.account, caller, p.account, assetAmount); err != nil {
			if collateralAmount.Sign() > 0 {
				// Unwind the collateral pull; the add is all-or-nothing.
				_ = p.collateral.Transfer(p.account, caller, collateralAmount)
			}
			return err
		}
	}

	p.reserveCollateral.Add(p.reserveCollateral, collateralAmount)
	p.reserveAsset.Add(p.reserveAsset, assetAmount)
	return nil
}

// SwapCollateralForAsset exchanges collateralIn (native precision) for
// synthetic units at the oracle price:
//
//	assetOut = normalize(collateralIn) * SCALE / price
//
// Fails with ErrInsufficientLiquidity when assetOut exceeds the asset
// reserve. Returns the amount paid out.
func (p *Pool) SwapCollateralForAsset(caller string, collateralIn *big.Int) (*big.Int, error) {
	if collateralIn == nil || collateralIn.Sign() <= 0 {
		return nil, token.ErrNonPositiveAmount
	}
	if err := p.begin(); err != nil {
		return nil, err
	}
	defer p.end()

	price, err := p.oracle.GetPrice()
	if err != nil {
		return nil, err
	}

	normalizedIn := new(big.Int).Mul(collateralIn, p.normFactor)
	assetOut := new(big.Int).Mul(normalizedIn, model.Scale())
	assetOut.Quo(assetOut, price)
	if assetOut.Sign() <= 0 {
		return nil, token.ErrNonPositiveAmount
	}
	if assetOut.Cmp(p.reserveAsset) > 0 {
		return nil, ErrInsufficientLiquidity
	}

	if err := p.collateral.TransferFrom(p.account, caller, p.account, collateralIn); err != nil {
		return nil, err
	}
	if err := p.asset.Transfer(p.account, caller, assetOut); err != nil {
		_ = p.collateral.Transfer(p.account, caller, collateralIn)
		return nil, err
	}

	p.reserveCollateral.Add(p.reserveCollateral, collateralIn)
	p.reserveAsset.Sub(p.reserveAsset, assetOut)
	return assetOut, nil
}

// SwapAssetForCollateral exchanges assetIn (18 decimals) for the
// collateral token at the oracle price:
//
//	collateralOut = denormalize(assetIn * price / SCALE)
//
// Fails with ErrInsufficientLiquidity when the output exceeds the
// collateral reserve. Returns the amount paid out.
func (p *Pool) SwapAssetForCollateral(caller string, assetIn *big.Int) (*big.Int, error) {
	if assetIn == nil || assetIn.Sign() <= 0 {
		return nil, token.ErrNonPositiveAmount
	}
	if err := p.begin(); err != nil {
		return nil, err
	}
	defer p.end()

	price, err := p.oracle.GetPrice()
	if err != nil {
		return nil, err
	}

	outNormalized := new(big.Int).Mul(assetIn, price)
	outNormalized.Quo(outNormalized, model.Scale())
	collateralOut := new(big.Int).Quo(outNormalized, p.normFactor)
	if collateralOut.Sign() <= 0 {
		return nil, token.ErrNonPositiveAmount
	}
	if collateralOut.Cmp(p.reserveCollateral) > 0 {
		return nil, ErrInsufficientLiquidity
	}

	if err := p.asset.TransferFrom(p.account, caller, p.account, assetIn); err != nil {
		return nil, err
	}
	if err := p.collateral.Transfer(p.account, caller, collateralOut); err != nil {
		_ = p.asset.Transfer(p.account, caller, assetIn)
		return nil, err
	}

	p.reserveAsset.Add(p.reserveAsset, assetIn)
	p.reserveCollateral.Sub(p.reserveCollateral, collateralOut)
	return collateralOut, nil
}

// GetReserves returns the current collateral (native precision) and
// asset (18-decimal) reserves. A callee reading the reserves back
// mid-swap fails with ErrReentrantCall like any other operation.
func (p *Pool) GetReserves() (*big.Int, *big.Int, error) {
	if err := p.begin(); err != nil {
		return nil, nil, err
	}
	defer p.end()
	return new(big.Int).Set(p.reserveCollateral), new(big.Int).Set(p.reserveAsset), nil
}

// GetOraclePrice returns the oracle price the pool would quote now.
func (p *Pool) GetOraclePrice() (*big.Int, error) {
	return p.oracle.GetPrice()
}
