package events

import (
	"bondswap/core/types"
	"bondswap/crypto"
)

const (
	TypePoolLiquidityAdded   = "pool.liquidity.added"
	TypePoolLiquidityRemoved = "pool.liquidity.removed"
	TypePoolSwapped          = "pool.swap"
	TypePoolTokenAdded       = "pool.token.added"
	TypePoolConfigUpdated    = "pool.config.updated"
	TypePoolLPTokenLinked    = "pool.lp_token.linked"
	TypePoolBondingLinked    = "pool.bonding.linked"
	TypePoolLPBondFailed     = "pool.lp_bond.failed"
)

type PoolLiquidityAdded struct {
	Pool              crypto.Address
	Provider          crypto.Address
	Token1Amount      types.Uint128
	Token2Amount      types.Uint128
	LiquidityReceived types.Uint128
	Fee               types.Uint128
}

func (PoolLiquidityAdded) EventType() string { return TypePoolLiquidityAdded }

func (e PoolLiquidityAdded) Event() *types.Event {
	return &types.Event{
		Type: TypePoolLiquidityAdded,
		Attributes: map[string]string{
			"pool":               e.Pool.String(),
			"provider":           e.Provider.String(),
			"token1_amount":      e.Token1Amount.String(),
			"token2_amount":      e.Token2Amount.String(),
			"liquidity_received": e.LiquidityReceived.String(),
			"fee_amount":         e.Fee.String(),
		},
	}
}

type PoolLiquidityRemoved struct {
	Pool            crypto.Address
	Provider        crypto.Address
	LiquidityBurned types.Uint128
	Token1Returned  types.Uint128
	Token2Returned  types.Uint128
}

func (PoolLiquidityRemoved) EventType() string { return TypePoolLiquidityRemoved }

func (e PoolLiquidityRemoved) Event() *types.Event {
	return &types.Event{
		Type: TypePoolLiquidityRemoved,
		Attributes: map[string]string{
			"pool":             e.Pool.String(),
			"provider":         e.Provider.String(),
			"liquidity_burned": e.LiquidityBurned.String(),
			"token1_returned":  e.Token1Returned.String(),
			"token2_returned":  e.Token2Returned.String(),
		},
	}
}

type PoolSwapped struct {
	Pool      crypto.Address
	Sender    crypto.Address
	Recipient crypto.Address
	Input     string
	Sold      types.Uint128
	Bought    types.Uint128
	Fee       types.Uint128
}

func (PoolSwapped) EventType() string { return TypePoolSwapped }

func (e PoolSwapped) Event() *types.Event {
	return &types.Event{
		Type: TypePoolSwapped,
		Attributes: map[string]string{
			"pool":         e.Pool.String(),
			"sender":       e.Sender.String(),
			"recipient":    e.Recipient.String(),
			"input_token":  e.Input,
			"token_sold":   e.Sold.String(),
			"token_bought": e.Bought.String(),
			"fee_amount":   e.Fee.String(),
		},
	}
}

type PoolTokenAdded struct {
	Pool   crypto.Address
	Token  string
	Amount types.Uint128
}

func (PoolTokenAdded) EventType() string { return TypePoolTokenAdded }

func (e PoolTokenAdded) Event() *types.Event {
	return &types.Event{
		Type: TypePoolTokenAdded,
		Attributes: map[string]string{
			"pool":   e.Pool.String(),
			"token":  e.Token,
			"amount": e.Amount.String(),
		},
	}
}

type PoolConfigUpdated struct {
	Pool     crypto.Address
	Owner    crypto.Address
	Bonding  crypto.Address
	Treasury crypto.Address
}

func (PoolConfigUpdated) EventType() string { return TypePoolConfigUpdated }

func (e PoolConfigUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypePoolConfigUpdated,
		Attributes: map[string]string{
			"pool":     e.Pool.String(),
			"owner":    e.Owner.String(),
			"bonding":  e.Bonding.String(),
			"treasury": e.Treasury.String(),
		},
	}
}

type PoolLPTokenLinked struct {
	Pool    crypto.Address
	LPToken crypto.Address
}

func (PoolLPTokenLinked) EventType() string { return TypePoolLPTokenLinked }

func (e PoolLPTokenLinked) Event() *types.Event {
	return &types.Event{
		Type: TypePoolLPTokenLinked,
		Attributes: map[string]string{
			"pool":     e.Pool.String(),
			"lp_token": e.LPToken.String(),
		},
	}
}

type PoolBondingLinked struct {
	Pool    crypto.Address
	Bonding crypto.Address
}

func (PoolBondingLinked) EventType() string { return TypePoolBondingLinked }

func (e PoolBondingLinked) Event() *types.Event {
	return &types.Event{
		Type: TypePoolBondingLinked,
		Attributes: map[string]string{
			"pool":    e.Pool.String(),
			"bonding": e.Bonding.String(),
		},
	}
}

// PoolLPBondFailed records a vesting follow-up that was rejected downstream.
// The liquidity deposit itself stays committed.
type PoolLPBondFailed struct {
	Pool   crypto.Address
	Reason string
}

func (PoolLPBondFailed) EventType() string { return TypePoolLPBondFailed }

func (e PoolLPBondFailed) Event() *types.Event {
	return &types.Event{
		Type: TypePoolLPBondFailed,
		Attributes: map[string]string{
			"pool":   e.Pool.String(),
			"reason": e.Reason,
		},
	}
}
