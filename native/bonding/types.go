package bonding

import (
	"bondswap/core/types"
	"bondswap/crypto"
)

const (
	ContractName    = "bondswap-bonding"
	ContractVersion = "0.1.0"

	// FeeScale is the denominator of every per-mille rate in Config.
	FeeScale = 1000

	DefaultPageLimit = 10
	MaxPageLimit     = 30
)

// Execute actions.
const (
	ActionUpdateOwner   = "update_owner"
	ActionUpdateEnabled = "update_enabled"
	ActionUpdateConfig  = "update_config"
	ActionBond          = "bond"
	ActionLPBond        = "lp_bond"
	ActionUnbond        = "unbond"
	ActionWithdraw      = "withdraw"
)

// Query tags.
const (
	QueryConfig       = "config"
	QueryBondState    = "bond_state"
	QueryAllBondState = "all_bond_state"
)

// Config is the single configuration record of a vesting ledger. The daily
// cap counters live here as well so one read gives a handler everything it
// needs.
type Config struct {
	Owner                  crypto.Address `json:"owner"`
	Pool                   crypto.Address `json:"pool_address"`
	Treasury               crypto.Address `json:"treasury_address"`
	PayoutToken            crypto.Address `json:"payout_token_address"`
	LockSeconds            uint64         `json:"lock_seconds"`
	Discount               uint64         `json:"discount"`
	SettlementDenom        string         `json:"settlement_denom"`
	NativeBonding          bool           `json:"native_bonding"`
	TxFee                  uint64         `json:"tx_fee"`
	PlatformFee            uint64         `json:"platform_fee"`
	Enabled                bool           `json:"enabled"`
	DailyVestingAmount     types.Uint128  `json:"daily_vesting_amount"`
	CumulatedAmount        types.Uint128  `json:"cumulated_amount"`
	DailyCurrentBondAmount types.Uint128  `json:"daily_current_bond_amount"`
	LastTimestamp          uint64         `json:"last_timestamp"`
}

// FeeRate is the combined per-mille fee.
func (c *Config) FeeRate() uint64 { return c.TxFee + c.PlatformFee }

// Grant is a single vesting entry. It becomes claimable once the block time
// reaches UnlockTimestamp.
type Grant struct {
	Amount          types.Uint128 `json:"amount"`
	UnlockTimestamp uint64        `json:"unlock_timestamp"`
}

// Matured reports whether the grant can be claimed at now.
func (g Grant) Matured(now uint64) bool { return g.UnlockTimestamp <= now }

// InstantiateMsg creates a ledger. Pools instantiate theirs with
// NativeBonding=false.
type InstantiateMsg struct {
	Owner              crypto.Address `json:"owner"`
	Pool               crypto.Address `json:"pool_address"`
	Treasury           crypto.Address `json:"treasury_address"`
	PayoutToken        crypto.Address `json:"payout_token_address"`
	SettlementDenom    string         `json:"settlement_denom"`
	LockSeconds        uint64         `json:"lock_seconds"`
	Discount           uint64         `json:"discount"`
	TxFee              uint64         `json:"tx_fee"`
	PlatformFee        uint64         `json:"platform_fee"`
	DailyVestingAmount types.Uint128  `json:"daily_vesting_amount"`
	NativeBonding      bool           `json:"native_bonding"`
}

type UpdateOwnerMsg struct {
	Owner crypto.Address `json:"owner"`
}

type UpdateEnabledMsg struct {
	Enabled bool `json:"enabled"`
}

type UpdateConfigMsg struct {
	Treasury           crypto.Address `json:"treasury_address"`
	LockSeconds        uint64         `json:"lock_seconds"`
	Discount           uint64         `json:"discount"`
	TxFee              uint64         `json:"tx_fee"`
	PlatformFee        uint64         `json:"platform_fee"`
	DailyVestingAmount types.Uint128  `json:"daily_vesting_amount"`
}

type BondMsg struct {
	Amount types.Uint128 `json:"amount"`
}

// LPBondMsg is sent by the paired pool after a liquidity deposit.
type LPBondMsg struct {
	Address crypto.Address `json:"address"`
	Amount  types.Uint128  `json:"amount"`
}

type UnbondMsg struct{}

type WithdrawMsg struct {
	Amount types.Uint128 `json:"amount"`
}

type BondStateQuery struct {
	Address crypto.Address `json:"address"`
}

type AllBondStateQuery struct {
	StartAfter *crypto.Address `json:"start_after,omitempty"`
	Limit      *uint32         `json:"limit,omitempty"`
}

// BondState is the read-only projection of one beneficiary.
type BondState struct {
	Address      crypto.Address `json:"address"`
	List         []Grant        `json:"list"`
	UnbondAmount types.Uint128  `json:"unbond_amount"`
	FeeAmount    types.Uint128  `json:"fee_amount"`
}

type AllBondStateResponse struct {
	List []BondState `json:"list"`
}
