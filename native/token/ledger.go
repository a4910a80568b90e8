package token

import (
	"errors"
	"fmt"

	"bondswap/core/state"
	"bondswap/core/types"
	"bondswap/crypto"
)

var (
	errNotInitialised      = errors.New("token: not initialised")
	ErrUnauthorized        = errors.New("token: unauthorized")
	ErrInvalidZeroAmount   = errors.New("token: invalid zero amount")
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrNoAllowance         = errors.New("token: no allowance for this account")
	ErrCapExceeded         = errors.New("token: minting cannot exceed the cap")
	ErrInvalidInstantiate  = errors.New("token: invalid instantiate message")
)

var infoKey = []byte("token_info")

func balanceKey(addr crypto.Address) []byte {
	raw := addr.Raw()
	return append([]byte("balance/"), raw[:]...)
}

func allowanceKey(owner, spender crypto.Address) []byte {
	o, s := owner.Raw(), spender.Raw()
	key := append([]byte("allowance/"), o[:]...)
	return append(key, s[:]...)
}

// ledger wraps the contract namespace with typed accessors.
type ledger struct {
	store *state.Manager
}

func (l ledger) info() (*Info, error) {
	info := new(Info)
	ok, err := l.store.KVGet(infoKey, info)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotInitialised
	}
	return info, nil
}

func (l ledger) putInfo(info *Info) error { return l.store.KVPut(infoKey, info) }

func (l ledger) balance(addr crypto.Address) (types.Uint128, error) {
	var amount types.Uint128
	_, err := l.store.KVGet(balanceKey(addr), &amount)
	return amount, err
}

func (l ledger) putBalance(addr crypto.Address, amount types.Uint128) error {
	if amount.IsZero() {
		return l.store.KVDelete(balanceKey(addr))
	}
	return l.store.KVPut(balanceKey(addr), amount)
}

func (l ledger) allowance(owner, spender crypto.Address) (types.Uint128, error) {
	var amount types.Uint128
	_, err := l.store.KVGet(allowanceKey(owner, spender), &amount)
	return amount, err
}

func (l ledger) putAllowance(owner, spender crypto.Address, amount types.Uint128) error {
	if amount.IsZero() {
		return l.store.KVDelete(allowanceKey(owner, spender))
	}
	return l.store.KVPut(allowanceKey(owner, spender), amount)
}

func (l ledger) add(addr crypto.Address, amount types.Uint128) error {
	current, err := l.balance(addr)
	if err != nil {
		return err
	}
	next, err := current.CheckedAdd(amount)
	if err != nil {
		return err
	}
	return l.putBalance(addr, next)
}

func (l ledger) sub(addr crypto.Address, amount types.Uint128) error {
	current, err := l.balance(addr)
	if err != nil {
		return err
	}
	if current.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, addr, current, amount)
	}
	next, err := current.CheckedSub(amount)
	if err != nil {
		return err
	}
	return l.putBalance(addr, next)
}

func (l ledger) move(from, to crypto.Address, amount types.Uint128) error {
	if amount.IsZero() {
		return ErrInvalidZeroAmount
	}
	if err := l.sub(from, amount); err != nil {
		return err
	}
	return l.add(to, amount)
}

func (l ledger) spendAllowance(owner, spender crypto.Address, amount types.Uint128) error {
	current, err := l.allowance(owner, spender)
	if err != nil {
		return err
	}
	if current.Lt(amount) {
		return fmt.Errorf("%w: %s may spend %s of %s, needs %s", ErrNoAllowance, spender, current, owner, amount)
	}
	next, err := current.CheckedSub(amount)
	if err != nil {
		return err
	}
	return l.putAllowance(owner, spender, next)
}

func (l ledger) adjustSupply(delta types.Uint128, increase bool) error {
	info, err := l.info()
	if err != nil {
		return err
	}
	if increase {
		next, err := info.TotalSupply.CheckedAdd(delta)
		if err != nil {
			return err
		}
		if !info.Cap.IsZero() && next.Gt(info.Cap) {
			return ErrCapExceeded
		}
		info.TotalSupply = next
	} else {
		next, err := info.TotalSupply.CheckedSub(delta)
		if err != nil {
			return err
		}
		info.TotalSupply = next
	}
	return l.putInfo(info)
}
