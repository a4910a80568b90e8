package pool

import (
	"encoding/json"
	"fmt"

	"bondswap/core/types"
	"bondswap/crypto"
)

const (
	ContractName    = "bondswap-pool"
	ContractVersion = "0.1.0"

	// FeeScale is the denominator of the per-mille fee rates.
	FeeScale = 1000

	LPTokenName     = "BondSwap_Liquidity_Token"
	LPTokenSymbol   = "bslpt"
	LPTokenDecimals = 6
	LPTokenLabel    = "bondswap-lp-token"
	BondingLabel    = "BondSwap_LP_Bonding"
)

// Execute actions.
const (
	ActionUpdateConfig    = "update_config"
	ActionAddLiquidity    = "add_liquidity"
	ActionRemoveLiquidity = "remove_liquidity"
	ActionSwap            = "swap"
	ActionAddToken        = "add_token"
)

// Query tags. The two price queries share their wire names with the bridge.
const (
	QueryConfig          = "config"
	QueryBalance         = "balance"
	QueryInfo            = "info"
	QueryToken1ForToken2 = "token1_for_token2_price"
	QueryToken2ForToken1 = "token2_for_token1_price"
)

// ReplyID correlates a sub-message with the reply it triggers. The id alone
// identifies what the pool was waiting for.
type ReplyID uint64

const (
	ReplyInstantiateLPToken ReplyID = iota
	ReplyInstantiateBonding
	ReplyLPBond
)

func (id ReplyID) String() string {
	switch id {
	case ReplyInstantiateLPToken:
		return "instantiate_lp_token"
	case ReplyInstantiateBonding:
		return "instantiate_bonding"
	case ReplyLPBond:
		return "lp_bond"
	default:
		return fmt.Sprintf("reply(%d)", uint64(id))
	}
}

// TokenSelect picks one side of the pool.
type TokenSelect string

const (
	Token1 TokenSelect = "token1"
	Token2 TokenSelect = "token2"
)

func (s TokenSelect) Valid() bool { return s == Token1 || s == Token2 }

// Other returns the opposite side.
func (s TokenSelect) Other() TokenSelect {
	if s == Token1 {
		return Token2
	}
	return Token1
}

func (s *TokenSelect) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	sel := TokenSelect(raw)
	if !sel.Valid() {
		return fmt.Errorf("pool: unknown token selector %q", raw)
	}
	*s = sel
	return nil
}

// Config is the pool configuration record.
type Config struct {
	Owner              crypto.Address `json:"owner"`
	BondingCodeID      uint64         `json:"bonding_code_id"`
	BondingContract    crypto.Address `json:"bonding_contract_address"`
	PayoutToken        crypto.Address `json:"payout_token_address"`
	Treasury           crypto.Address `json:"treasury_address"`
	SettlementDenom    string         `json:"settlement_denom"`
	TxFee              uint64         `json:"tx_fee"`
	PlatformFee        uint64         `json:"platform_fee"`
	LockSeconds        uint64         `json:"lock_seconds"`
	Discount           uint64         `json:"discount"`
	DailyVestingAmount types.Uint128  `json:"daily_vesting_amount"`
}

// FeeRate is the combined per-mille fee.
func (c *Config) FeeRate() uint64 { return c.TxFee + c.PlatformFee }

// Token is one side of the pool.
type Token struct {
	Denom   types.Denom   `json:"denom"`
	Reserve types.Uint128 `json:"reserve"`
}

// Expiration bounds how long a signed request stays valid. At most one field
// is set; an empty value never expires.
type Expiration struct {
	AtHeight *uint64 `json:"at_height,omitempty"`
	AtTime   *uint64 `json:"at_time,omitempty"`
}

// IsExpired reports whether block is at or past the expiration point.
func (e *Expiration) IsExpired(block types.BlockInfo) bool {
	if e == nil {
		return false
	}
	if e.AtHeight != nil && block.Height >= *e.AtHeight {
		return true
	}
	return e.AtTime != nil && block.Time >= *e.AtTime
}

type InstantiateMsg struct {
	LPTokenCodeID      uint64         `json:"lp_token_code_id"`
	BondingCodeID      uint64         `json:"bonding_code_id"`
	Owner              crypto.Address `json:"owner"`
	Treasury           crypto.Address `json:"treasury_address"`
	PayoutToken        crypto.Address `json:"payout_token_address"`
	SettlementDenom    string         `json:"settlement_denom"`
	LockSeconds        uint64         `json:"lock_seconds"`
	Discount           uint64         `json:"discount"`
	TxFee              uint64         `json:"tx_fee"`
	PlatformFee        uint64         `json:"platform_fee"`
	DailyVestingAmount types.Uint128  `json:"daily_vesting_amount"`
}

type UpdateConfigMsg struct {
	Owner           crypto.Address `json:"owner"`
	BondingContract crypto.Address `json:"bonding_contract_address"`
	Treasury        crypto.Address `json:"treasury_address"`
}

type AddLiquidityMsg struct {
	Token1Amount types.Uint128 `json:"token1_amount"`
	MinLiquidity types.Uint128 `json:"min_liquidity"`
	MaxToken2    types.Uint128 `json:"max_token2"`
	FeeAmount    types.Uint128 `json:"fee_amount"`
	Expiration   *Expiration   `json:"expiration,omitempty"`
}

type RemoveLiquidityMsg struct {
	Amount     types.Uint128 `json:"amount"`
	MinToken1  types.Uint128 `json:"min_token1"`
	MinToken2  types.Uint128 `json:"min_token2"`
	Expiration *Expiration   `json:"expiration,omitempty"`
}

type SwapMsg struct {
	InputToken  TokenSelect   `json:"input_token"`
	InputAmount types.Uint128 `json:"input_amount"`
	MinOutput   types.Uint128 `json:"min_output"`
	FeeAmount   types.Uint128 `json:"fee_amount"`
	Expiration  *Expiration   `json:"expiration,omitempty"`
}

type AddTokenMsg struct {
	InputToken TokenSelect   `json:"input_token"`
	Amount     types.Uint128 `json:"amount"`
}

type BalanceQuery struct {
	Address crypto.Address `json:"address"`
}

type Token1ForToken2Query struct {
	Token1Amount types.Uint128 `json:"token1_amount"`
}

type Token2ForToken1Query struct {
	Token2Amount types.Uint128 `json:"token2_amount"`
}

type InfoResponse struct {
	Token1Reserve  types.Uint128 `json:"token1_reserve"`
	Token1Denom    types.Denom   `json:"token1_denom"`
	Token2Reserve  types.Uint128 `json:"token2_reserve"`
	Token2Denom    types.Denom   `json:"token2_denom"`
	LPTokenSupply  types.Uint128 `json:"lp_token_supply"`
	LPTokenAddress string        `json:"lp_token_address"`
}
