package host

import (
	"strings"

	"bondswap/core/state"
	"bondswap/core/types"
	"bondswap/crypto"
)

func balanceKey(addr crypto.Address, denom string) []byte {
	raw := addr.Raw()
	key := make([]byte, 0, 5+len(raw)+1+len(denom))
	key = append(key, "bank/"...)
	key = append(key, raw[:]...)
	key = append(key, '/')
	return append(key, denom...)
}

func readBalance(st *state.Manager, addr crypto.Address, denom string) (types.Uint128, error) {
	var amount types.Uint128
	if _, err := st.KVGet(balanceKey(addr, strings.TrimSpace(denom)), &amount); err != nil {
		return types.Uint128{}, err
	}
	return amount, nil
}

func credit(st *state.Manager, addr crypto.Address, denom string, amount types.Uint128) error {
	if amount.IsZero() {
		return nil
	}
	current, err := readBalance(st, addr, denom)
	if err != nil {
		return err
	}
	next, err := current.CheckedAdd(amount)
	if err != nil {
		return err
	}
	return st.KVPut(balanceKey(addr, denom), next)
}

func debit(st *state.Manager, addr crypto.Address, denom string, amount types.Uint128) error {
	if amount.IsZero() {
		return nil
	}
	current, err := readBalance(st, addr, denom)
	if err != nil {
		return err
	}
	if current.Lt(amount) {
		return &InsufficientBalanceError{Address: addr, Denom: denom, Available: current, Required: amount}
	}
	next, err := current.CheckedSub(amount)
	if err != nil {
		return err
	}
	return st.KVPut(balanceKey(addr, denom), next)
}

// transfer moves coins between accounts inside the state view st.
func transfer(st *state.Manager, from, to crypto.Address, coins types.Coins) error {
	for _, coin := range coins {
		if err := debit(st, from, coin.Denom, coin.Amount); err != nil {
			return err
		}
		if err := credit(st, to, coin.Denom, coin.Amount); err != nil {
			return err
		}
	}
	return nil
}

func transferEvent(from, to crypto.Address, coins types.Coins) *types.Event {
	return &types.Event{
		Type: "bank.transfer",
		Attributes: map[string]string{
			"sender":    from.String(),
			"recipient": to.String(),
			"amount":    coins.String(),
		},
	}
}
