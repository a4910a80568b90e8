package events

import (
	"strconv"

	"bondswap/core/types"
	"bondswap/crypto"
)

const (
	TypeBondingBonded        = "bonding.bonded"
	TypeBondingLPBonded      = "bonding.lp_bonded"
	TypeBondingUnbonded      = "bonding.unbonded"
	TypeBondingWithdrawn     = "bonding.withdrawn"
	TypeBondingConfigUpdated = "bonding.config.updated"
	TypeBondingDayRolled     = "bonding.day.rolled"
)

type BondingBonded struct {
	Ledger    crypto.Address
	Address   crypto.Address
	Deposit   types.Uint128
	Quoted    types.Uint128
	Receiving types.Uint128
	UnlockAt  uint64
}

func (BondingBonded) EventType() string { return TypeBondingBonded }

func (e BondingBonded) Event() *types.Event {
	return &types.Event{
		Type: TypeBondingBonded,
		Attributes: map[string]string{
			"ledger":           e.Ledger.String(),
			"address":          e.Address.String(),
			"bond_amount":      e.Deposit.String(),
			"quoted_amount":    e.Quoted.String(),
			"receiving_amount": e.Receiving.String(),
			"unlock_timestamp": strconv.FormatUint(e.UnlockAt, 10),
		},
	}
}

type BondingLPBonded struct {
	Ledger    crypto.Address
	Address   crypto.Address
	Amount    types.Uint128
	Receiving types.Uint128
	UnlockAt  uint64
}

func (BondingLPBonded) EventType() string { return TypeBondingLPBonded }

func (e BondingLPBonded) Event() *types.Event {
	return &types.Event{
		Type: TypeBondingLPBonded,
		Attributes: map[string]string{
			"ledger":           e.Ledger.String(),
			"address":          e.Address.String(),
			"lp_amount":        e.Amount.String(),
			"receiving_amount": e.Receiving.String(),
			"unlock_timestamp": strconv.FormatUint(e.UnlockAt, 10),
		},
	}
}

type BondingUnbonded struct {
	Ledger    crypto.Address
	Address   crypto.Address
	Amount    types.Uint128
	Fee       types.Uint128
	Remaining int
}

func (BondingUnbonded) EventType() string { return TypeBondingUnbonded }

func (e BondingUnbonded) Event() *types.Event {
	return &types.Event{
		Type: TypeBondingUnbonded,
		Attributes: map[string]string{
			"ledger":           e.Ledger.String(),
			"address":          e.Address.String(),
			"unbond_amount":    e.Amount.String(),
			"fee_amount":       e.Fee.String(),
			"remaining_grants": strconv.Itoa(e.Remaining),
		},
	}
}

type BondingWithdrawn struct {
	Ledger crypto.Address
	Owner  crypto.Address
	Amount types.Uint128
}

func (BondingWithdrawn) EventType() string { return TypeBondingWithdrawn }

func (e BondingWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeBondingWithdrawn,
		Attributes: map[string]string{
			"ledger": e.Ledger.String(),
			"owner":  e.Owner.String(),
			"amount": e.Amount.String(),
		},
	}
}

// BondingConfigUpdated is emitted by every owner-only mutation. Field names
// the setting that changed.
type BondingConfigUpdated struct {
	Ledger crypto.Address
	Field  string
	Value  string
}

func (BondingConfigUpdated) EventType() string { return TypeBondingConfigUpdated }

func (e BondingConfigUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeBondingConfigUpdated,
		Attributes: map[string]string{
			"ledger": e.Ledger.String(),
			"field":  e.Field,
			"value":  e.Value,
		},
	}
}

type BondingDayRolled struct {
	Ledger    crypto.Address
	Day       uint64
	Credited  types.Uint128
	Cumulated types.Uint128
}

func (BondingDayRolled) EventType() string { return TypeBondingDayRolled }

func (e BondingDayRolled) Event() *types.Event {
	return &types.Event{
		Type: TypeBondingDayRolled,
		Attributes: map[string]string{
			"ledger":           e.Ledger.String(),
			"day":              strconv.FormatUint(e.Day, 10),
			"credited":         e.Credited.String(),
			"cumulated_amount": e.Cumulated.String(),
		},
	}
}
