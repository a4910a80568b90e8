// Package bridge issues read-only price queries against a reserve pool.
package bridge

import (
	"errors"
	"fmt"

	"bondswap/core/host"
	"bondswap/core/types"
	"bondswap/crypto"
)

// RateScale is the fixed-point unit the exchange rate is quoted in.
const RateScale = 1_000_000

var ErrPoolNotConfigured = errors.New("bridge: pool address not configured")

// Query tags understood by the pool.
const (
	QueryToken1ForToken2 = "token1_for_token2_price"
	QueryToken2ForToken1 = "token2_for_token1_price"
)

type token1ForToken2Query struct {
	Token1Amount types.Uint128 `json:"token1_amount"`
}

type token2ForToken1Query struct {
	Token2Amount types.Uint128 `json:"token2_amount"`
}

// Token1ForToken2Response answers QueryToken1ForToken2.
type Token1ForToken2Response struct {
	Token2Amount types.Uint128 `json:"token2_amount"`
}

// Token2ForToken1Response answers QueryToken2ForToken1.
type Token2ForToken1Response struct {
	Token1Amount types.Uint128 `json:"token1_amount"`
}

// Bridge quotes prices from a single pool.
type Bridge struct {
	querier host.Querier
	pool    crypto.Address
}

// New binds a bridge to pool through querier.
func New(querier host.Querier, pool crypto.Address) *Bridge {
	return &Bridge{querier: querier, pool: pool}
}

// Token1ForToken2 returns how much token2 the pool pays for amount of token1.
func (b *Bridge) Token1ForToken2(amount types.Uint128) (types.Uint128, error) {
	if b.pool.IsZero() {
		return types.Uint128{}, ErrPoolNotConfigured
	}
	var resp Token1ForToken2Response
	req := map[string]token1ForToken2Query{QueryToken1ForToken2: {Token1Amount: amount}}
	if err := host.QuerySmart(b.querier, b.pool, req, &resp); err != nil {
		return types.Uint128{}, fmt.Errorf("bridge: quote token1 for token2: %w", err)
	}
	return resp.Token2Amount, nil
}

// Token2ForToken1 returns how much token1 the pool pays for amount of token2.
func (b *Bridge) Token2ForToken1(amount types.Uint128) (types.Uint128, error) {
	if b.pool.IsZero() {
		return types.Uint128{}, ErrPoolNotConfigured
	}
	var resp Token2ForToken1Response
	req := map[string]token2ForToken1Query{QueryToken2ForToken1: {Token2Amount: amount}}
	if err := host.QuerySmart(b.querier, b.pool, req, &resp); err != nil {
		return types.Uint128{}, fmt.Errorf("bridge: quote token2 for token1: %w", err)
	}
	return resp.Token1Amount, nil
}

// ExchangeRate is the token1 value of RateScale units of token2.
func (b *Bridge) ExchangeRate() (types.Uint128, error) {
	return b.Token2ForToken1(types.NewUint128(RateScale))
}
