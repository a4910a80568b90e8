package token

import (
	"bondswap/core/types"
	"bondswap/crypto"
)

const (
	ContractName    = "bondswap-token"
	ContractVersion = "0.1.0"
)

// Info is the persisted token metadata.
type Info struct {
	Name        string
	Symbol      string
	Decimals    uint8
	TotalSupply types.Uint128
	Minter      crypto.Address
	Cap         types.Uint128 // zero means uncapped
}

// InitialBalance seeds an account at instantiation.
type InitialBalance struct {
	Address crypto.Address `json:"address"`
	Amount  types.Uint128  `json:"amount"`
}

// MinterConfig grants minting rights.
type MinterConfig struct {
	Minter crypto.Address `json:"minter"`
	Cap    *types.Uint128 `json:"cap,omitempty"`
}

// InstantiateMsg creates a token.
type InstantiateMsg struct {
	Name            string           `json:"name"`
	Symbol          string           `json:"symbol"`
	Decimals        uint8            `json:"decimals"`
	InitialBalances []InitialBalance `json:"initial_balances"`
	Mint            *MinterConfig    `json:"mint,omitempty"`
}

type TransferMsg struct {
	Recipient crypto.Address `json:"recipient"`
	Amount    types.Uint128  `json:"amount"`
}

type TransferFromMsg struct {
	Owner     crypto.Address `json:"owner"`
	Recipient crypto.Address `json:"recipient"`
	Amount    types.Uint128  `json:"amount"`
}

type AllowanceMsg struct {
	Spender crypto.Address `json:"spender"`
	Amount  types.Uint128  `json:"amount"`
}

type BurnMsg struct {
	Amount types.Uint128 `json:"amount"`
}

type BurnFromMsg struct {
	Owner  crypto.Address `json:"owner"`
	Amount types.Uint128  `json:"amount"`
}

type MintMsg struct {
	Recipient crypto.Address `json:"recipient"`
	Amount    types.Uint128  `json:"amount"`
}

// Execute variant tags.
const (
	ActionTransfer          = "transfer"
	ActionTransferFrom      = "transfer_from"
	ActionIncreaseAllowance = "increase_allowance"
	ActionDecreaseAllowance = "decrease_allowance"
	ActionBurn              = "burn"
	ActionBurnFrom          = "burn_from"
	ActionMint              = "mint"
)

// Query variant tags.
const (
	QueryBalance   = "balance"
	QueryTokenInfo = "token_info"
	QueryMinter    = "minter"
	QueryAllowance = "allowance"
)

type BalanceQuery struct {
	Address crypto.Address `json:"address"`
}

type AllowanceQuery struct {
	Owner   crypto.Address `json:"owner"`
	Spender crypto.Address `json:"spender"`
}

type BalanceResponse struct {
	Balance types.Uint128 `json:"balance"`
}

type TokenInfoResponse struct {
	Name        string        `json:"name"`
	Symbol      string        `json:"symbol"`
	Decimals    uint8         `json:"decimals"`
	TotalSupply types.Uint128 `json:"total_supply"`
}

type MinterResponse struct {
	Minter crypto.Address `json:"minter"`
	Cap    *types.Uint128 `json:"cap,omitempty"`
}

type AllowanceResponse struct {
	Allowance types.Uint128 `json:"allowance"`
}
