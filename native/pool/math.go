package pool

import (
	"fmt"

	"bondswap/core/types"
)

var (
	swapNumerator   = types.NewUint128(997)
	swapDenominator = types.NewUint128(FeeScale)
	one             = types.NewUint128(1)
	two             = types.NewUint128(2)
)

// GetInputPrice is the constant-product output for selling input against the
// given reserves, with the 0.3% skim folded into the price. The result is
// truncated toward zero.
func GetInputPrice(input, inputReserve, outputReserve types.Uint128) (types.Uint128, error) {
	if inputReserve.IsZero() || outputReserve.IsZero() {
		return types.Uint128{}, ErrNoLiquidity
	}
	inputWithFee, err := input.CheckedMul(swapNumerator)
	if err != nil {
		return types.Uint128{}, err
	}
	numerator, err := inputWithFee.CheckedMul(outputReserve)
	if err != nil {
		return types.Uint128{}, err
	}
	scaled, err := inputReserve.CheckedMul(swapDenominator)
	if err != nil {
		return types.Uint128{}, err
	}
	denominator, err := scaled.CheckedAdd(inputWithFee)
	if err != nil {
		return types.Uint128{}, err
	}
	return numerator.CheckedDiv(denominator)
}

// LiquidityToMint returns the LP amount minted for a token1 deposit. The first
// deposit mints one LP unit per token1 unit.
func LiquidityToMint(token1Amount, lpSupply, token1Reserve types.Uint128) (types.Uint128, error) {
	if lpSupply.IsZero() {
		return token1Amount, nil
	}
	return token1Amount.MulDiv(lpSupply, token1Reserve)
}

// Token2Required is the token2 leg of a deposit. After the first deposit it
// is the proportional amount plus one, which keeps the pool from being
// under-collateralised by truncation.
func Token2Required(maxToken2, token1Amount, lpSupply, token2Reserve, token1Reserve types.Uint128) (types.Uint128, error) {
	if lpSupply.IsZero() {
		return maxToken2, nil
	}
	amount, err := token1Amount.MulDiv(token2Reserve, token1Reserve)
	if err != nil {
		return types.Uint128{}, err
	}
	return amount.CheckedAdd(one)
}

// ShareOf is amount/supply of reserve, truncated.
func ShareOf(amount, reserve, supply types.Uint128) (types.Uint128, error) {
	return amount.MulDiv(reserve, supply)
}

// FeeFor is amount*rate/1000.
func FeeFor(amount types.Uint128, rate uint64) (types.Uint128, error) {
	return amount.MulDiv(types.NewUint128(rate), swapDenominator)
}

// LiquidityFee is the minimum fee on a deposit: twice the per-mille rate on
// the token1 leg.
func LiquidityFee(token1Amount types.Uint128, rate uint64) (types.Uint128, error) {
	scaled, err := token1Amount.CheckedMul(types.NewUint128(rate))
	if err != nil {
		return types.Uint128{}, err
	}
	doubled, err := scaled.CheckedMul(two)
	if err != nil {
		return types.Uint128{}, err
	}
	return doubled.CheckedDiv(swapDenominator)
}

func requireFee(provided, required types.Uint128) error {
	if provided.Lt(required) {
		return fmt.Errorf("%w: required %s, provided %s", ErrInsufficientFee, required, provided)
	}
	return nil
}
