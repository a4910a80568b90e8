package host

import (
	"errors"
	"fmt"

	"bondswap/core/types"
	"bondswap/crypto"
)

var (
	ErrUnknownCode         = errors.New("host: unknown code id")
	ErrUnknownContract     = errors.New("host: unknown contract")
	ErrInvalidMessage      = errors.New("host: invalid message")
	ErrInsufficientBalance = errors.New("host: insufficient balance")
	ErrUnauthorized        = errors.New("host: unauthorized")
	ErrCallDepth           = errors.New("host: call depth exceeded")
)

// InsufficientBalanceError reports a bank transfer the sender cannot cover.
type InsufficientBalanceError struct {
	Address   crypto.Address
	Denom     string
	Available types.Uint128
	Required  types.Uint128
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%s: %s holds %s%s, needs %s%s", ErrInsufficientBalance, e.Address, e.Available, e.Denom, e.Required, e.Denom)
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }
