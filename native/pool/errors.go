package pool

import (
	"errors"
	"fmt"

	"bondswap/core/types"
)

var (
	ErrUnauthorized          = errors.New("pool: unauthorized")
	ErrInsufficientFunds     = errors.New("pool: insufficient funds sent")
	ErrIncorrectNativeDenom  = errors.New("pool: incorrect native denom")
	ErrNoLiquidity           = errors.New("pool: no liquidity")
	ErrInsufficientFee       = errors.New("pool: insufficient fee")
	ErrMsgExpired            = errors.New("pool: message has expired")
	ErrMinLiquidity          = errors.New("pool: liquidity below minimum")
	ErrMaxToken              = errors.New("pool: token2 required exceeds maximum")
	ErrMinToken1             = errors.New("pool: token1 returned below minimum")
	ErrMinToken2             = errors.New("pool: token2 returned below minimum")
	ErrSwapMin               = errors.New("pool: swap output below minimum")
	ErrInsufficientLiquidity = errors.New("pool: insufficient liquidity balance")
	ErrUnknownReplyID        = errors.New("pool: unknown reply id")
	ErrCannotMigrate         = errors.New("pool: cannot migrate from a different contract")
	ErrLPTokenNotSet         = errors.New("pool: liquidity token not instantiated")
	ErrInvalidConfig         = errors.New("pool: invalid configuration")
)

type InsufficientFundsError struct {
	Denom    string
	Required types.Uint128
	Provided types.Uint128
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s: %s requires %s, provided %s", ErrInsufficientFunds, e.Denom, e.Required, e.Provided)
}

func (e *InsufficientFundsError) Is(target error) bool { return target == ErrInsufficientFunds }

type IncorrectNativeDenomError struct {
	Provided string
	Required string
}

func (e *IncorrectNativeDenomError) Error() string {
	return fmt.Sprintf("%s: provided %q, required %q", ErrIncorrectNativeDenom, e.Provided, e.Required)
}

func (e *IncorrectNativeDenomError) Is(target error) bool { return target == ErrIncorrectNativeDenom }

type MinLiquidityError struct {
	Min       types.Uint128
	Available types.Uint128
}

func (e *MinLiquidityError) Error() string {
	return fmt.Sprintf("%s: min %s, available %s", ErrMinLiquidity, e.Min, e.Available)
}

func (e *MinLiquidityError) Is(target error) bool { return target == ErrMinLiquidity }

type MaxTokenError struct {
	Max      types.Uint128
	Required types.Uint128
}

func (e *MaxTokenError) Error() string {
	return fmt.Sprintf("%s: max %s, required %s", ErrMaxToken, e.Max, e.Required)
}

func (e *MaxTokenError) Is(target error) bool { return target == ErrMaxToken }

type MinToken1Error struct {
	Requested types.Uint128
	Available types.Uint128
}

func (e *MinToken1Error) Error() string {
	return fmt.Sprintf("%s: requested %s, available %s", ErrMinToken1, e.Requested, e.Available)
}

func (e *MinToken1Error) Is(target error) bool { return target == ErrMinToken1 }

type MinToken2Error struct {
	Requested types.Uint128
	Available types.Uint128
}

func (e *MinToken2Error) Error() string {
	return fmt.Sprintf("%s: requested %s, available %s", ErrMinToken2, e.Requested, e.Available)
}

func (e *MinToken2Error) Is(target error) bool { return target == ErrMinToken2 }

type SwapMinError struct {
	Min       types.Uint128
	Available types.Uint128
}

func (e *SwapMinError) Error() string {
	return fmt.Sprintf("%s: min %s, available %s", ErrSwapMin, e.Min, e.Available)
}

func (e *SwapMinError) Is(target error) bool { return target == ErrSwapMin }

type InsufficientLiquidityError struct {
	Requested types.Uint128
	Available types.Uint128
}

func (e *InsufficientLiquidityError) Error() string {
	return fmt.Sprintf("%s: requested %s, available %s", ErrInsufficientLiquidity, e.Requested, e.Available)
}

func (e *InsufficientLiquidityError) Is(target error) bool { return target == ErrInsufficientLiquidity }

type UnknownReplyIDError struct {
	ID uint64
}

func (e *UnknownReplyIDError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnknownReplyID, e.ID)
}

func (e *UnknownReplyIDError) Is(target error) bool { return target == ErrUnknownReplyID }

type CannotMigrateError struct {
	PreviousContract string
}

func (e *CannotMigrateError) Error() string {
	return fmt.Sprintf("%s: %q", ErrCannotMigrate, e.PreviousContract)
}

func (e *CannotMigrateError) Is(target error) bool { return target == ErrCannotMigrate }
