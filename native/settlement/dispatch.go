// Package settlement builds the outbound instructions that move value: bank
// sends for native denominations and token-contract calls for token
// denominations. It never touches state; the host carries the instructions
// out after the emitting handler succeeds.
package settlement

import (
	"errors"
	"fmt"

	"bondswap/core/host"
	"bondswap/core/types"
	"bondswap/crypto"
	"bondswap/native/token"
)

var ErrMissingRecipient = errors.New("settlement: recipient must be set")

// Transfer moves amount of denom from the emitting contract to recipient.
func Transfer(denom types.Denom, amount types.Uint128, recipient crypto.Address) (types.Message, error) {
	if recipient.IsZero() {
		return types.Message{}, ErrMissingRecipient
	}
	if err := denom.Validate(); err != nil {
		return types.Message{}, err
	}
	if denom.IsNative() {
		return NativeSend(denom.Native, amount, recipient), nil
	}
	return execute(denom.Token, token.ActionTransfer, token.TransferMsg{Recipient: recipient, Amount: amount})
}

// NativeSend is a bank send of a single coin.
func NativeSend(denom string, amount types.Uint128, recipient crypto.Address) types.Message {
	return types.Message{Bank: &types.BankSend{
		ToAddress: recipient,
		Amount:    types.Coins{{Denom: denom, Amount: amount}},
	}}
}

// NativeSendAll forwards every attached coin to recipient.
func NativeSendAll(coins types.Coins, recipient crypto.Address) types.Message {
	return types.Message{Bank: &types.BankSend{ToAddress: recipient, Amount: append(types.Coins(nil), coins...)}}
}

// TransferFrom pulls amount of a token from owner to recipient using the
// emitting contract's allowance.
func TransferFrom(tokenAddr, owner, recipient crypto.Address, amount types.Uint128) (types.Message, error) {
	return execute(tokenAddr, token.ActionTransferFrom, token.TransferFromMsg{Owner: owner, Recipient: recipient, Amount: amount})
}

// Mint creates amount of a token for recipient. The emitting contract must be
// the token's minter.
func Mint(tokenAddr, recipient crypto.Address, amount types.Uint128) (types.Message, error) {
	return execute(tokenAddr, token.ActionMint, token.MintMsg{Recipient: recipient, Amount: amount})
}

// BurnFrom destroys amount of owner's tokens using the emitting contract's
// allowance.
func BurnFrom(tokenAddr, owner crypto.Address, amount types.Uint128) (types.Message, error) {
	return execute(tokenAddr, token.ActionBurnFrom, token.BurnFromMsg{Owner: owner, Amount: amount})
}

// Execute builds a contract call with no attached funds.
func Execute(contract crypto.Address, action string, body any) (types.Message, error) {
	return execute(contract, action, body)
}

func execute(contract crypto.Address, action string, body any) (types.Message, error) {
	if contract.IsZero() {
		return types.Message{}, fmt.Errorf("settlement: %s target contract must be set", action)
	}
	msg, err := host.EncodeVariant(action, body)
	if err != nil {
		return types.Message{}, err
	}
	return types.Message{Execute: &types.ContractExecute{Contract: contract, Msg: msg}}, nil
}
