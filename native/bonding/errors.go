package bonding

import (
	"errors"
	"fmt"

	"bondswap/native/common"
)

var (
	ErrUnauthorized          = errors.New("bonding: unauthorized")
	ErrDisabled              = errors.New("bonding: disabled")
	ErrBondingModeNotAllowed = errors.New("bonding: bonding mode not allowed")
	ErrNativeInputZero       = errors.New("bonding: no settlement funds attached")
	ErrInvalidAmount         = errors.New("bonding: amount must be positive")
	ErrInsufficientFee       = errors.New("bonding: insufficient fee")
	ErrNothingToUnbond       = errors.New("bonding: nothing to unbond")
	ErrInsufficientPayout    = errors.New("bonding: insufficient payout balance")
	ErrInvalidConfig         = errors.New("bonding: invalid configuration")
	ErrCannotMigrate         = errors.New("bonding: cannot migrate from a different contract")

	// ErrMaxBondingExceeded matches every rejection of the daily admission
	// check.
	ErrMaxBondingExceeded = common.ErrDailyCapExceeded
)

// MaxBondingExceededError carries the rejected amount and the capacity still
// left today.
type MaxBondingExceededError = common.DailyCapExceededError

type CannotMigrateError struct {
	PreviousContract string
}

func (e *CannotMigrateError) Error() string {
	return fmt.Sprintf("%s: %q", ErrCannotMigrate, e.PreviousContract)
}

func (e *CannotMigrateError) Is(target error) bool { return target == ErrCannotMigrate }
