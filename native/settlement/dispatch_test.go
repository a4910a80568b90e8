package settlement

import (
	"encoding/json"
	"errors"
	"testing"

	"bondswap/core/types"
	"bondswap/crypto"
	"bondswap/native/token"
)

func TestTransferNative(t *testing.T) {
	to := crypto.AddressFromLabel("treasury")
	msg, err := Transfer(types.NativeDenom("uusdc"), types.NewUint128(13), to)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if msg.Bank == nil || msg.Execute != nil {
		t.Fatalf("expected bank send, got %s", msg.Kind())
	}
	if msg.Bank.ToAddress != to || !msg.Bank.Amount.AmountOf("uusdc").Eq(types.NewUint128(13)) {
		t.Fatalf("unexpected bank send: %+v", msg.Bank)
	}
}

func TestTransferToken(t *testing.T) {
	tokenAddr := crypto.ContractAddress(1, 1)
	to := crypto.AddressFromLabel("alice")
	msg, err := Transfer(types.TokenDenom(tokenAddr), types.NewUint128(949), to)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if msg.Execute == nil || msg.Execute.Contract != tokenAddr {
		t.Fatalf("expected token execute, got %+v", msg)
	}
	var decoded map[string]token.TransferMsg
	if err := json.Unmarshal(msg.Execute.Msg, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	body, ok := decoded[token.ActionTransfer]
	if !ok || body.Recipient != to || !body.Amount.Eq(types.NewUint128(949)) {
		t.Fatalf("unexpected body: %s", msg.Execute.Msg)
	}
}

func TestTransferRejectsMissingRecipient(t *testing.T) {
	if _, err := Transfer(types.NativeDenom("uusdc"), types.NewUint128(1), crypto.Address{}); !errors.Is(err, ErrMissingRecipient) {
		t.Fatalf("expected ErrMissingRecipient, got %v", err)
	}
	if _, err := Transfer(types.Denom{}, types.NewUint128(1), crypto.AddressFromLabel("x")); err == nil {
		t.Fatalf("expected invalid denom error")
	}
}

func TestBurnFromTargetsToken(t *testing.T) {
	lp := crypto.ContractAddress(2, 7)
	owner := crypto.AddressFromLabel("owner")
	msg, err := BurnFrom(lp, owner, types.NewUint128(50))
	if err != nil {
		t.Fatalf("burn from: %v", err)
	}
	var decoded map[string]token.BurnFromMsg
	if err := json.Unmarshal(msg.Execute.Msg, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded[token.ActionBurnFrom].Owner != owner {
		t.Fatalf("unexpected body: %s", msg.Execute.Msg)
	}
}
