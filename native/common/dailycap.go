package common

import (
	"errors"
	"fmt"

	"bondswap/core/types"
)

// SecondsPerDay is the length of a cap bucket.
const SecondsPerDay = 86400

var ErrDailyCapExceeded = errors.New("daily cap exceeded")

// DailyCapExceededError carries the rejected amount and the capacity that was
// still available in the current bucket.
type DailyCapExceededError struct {
	Requested types.Uint128
	Remaining types.Uint128
}

func (e *DailyCapExceededError) Error() string {
	return fmt.Sprintf("%s: requested %s, remaining %s", ErrDailyCapExceeded, e.Requested, e.Remaining)
}

func (e *DailyCapExceededError) Is(target error) bool { return target == ErrDailyCapExceeded }

// DailyCapNow captures issuance counters for the current day bucket.
type DailyCapNow struct {
	Cumulated     types.Uint128
	Current       types.Uint128
	LastTimestamp uint64
}

// Day returns the bucket index of ts.
func Day(ts uint64) uint64 { return ts / SecondsPerDay }

// RollDay applies the day-boundary bookkeeping without admitting anything.
// Unused capacity of the previous bucket is added to Cumulated; the credit is
// never decayed or capped. The second return value is the credit applied.
func RollDay(daily types.Uint128, now uint64, prev DailyCapNow) (DailyCapNow, types.Uint128, error) {
	next := prev
	credited := types.ZeroUint128()
	if Day(now) == Day(prev.LastTimestamp) {
		return next, credited, nil
	}
	if prev.Current.Lte(daily) {
		unused, err := daily.CheckedSub(prev.Current)
		if err != nil {
			return prev, credited, err
		}
		cumulated, err := prev.Cumulated.CheckedAdd(unused)
		if err != nil {
			return prev, credited, err
		}
		next.Cumulated = cumulated
		credited = unused
	}
	next.Current = types.ZeroUint128()
	return next, credited, nil
}

// CheckDailyCap admits amount against the bucket for now. The returned
// counters reflect the admission; on error prev is returned unchanged.
func CheckDailyCap(daily types.Uint128, now uint64, prev DailyCapNow, amount types.Uint128) (DailyCapNow, error) {
	next, _, err := RollDay(daily, now, prev)
	if err != nil {
		return prev, err
	}
	capacity, err := daily.CheckedAdd(next.Cumulated)
	if err != nil {
		return prev, err
	}
	issued, err := next.Current.CheckedAdd(amount)
	if err != nil {
		return prev, err
	}
	if issued.Gt(capacity) {
		remaining := types.ZeroUint128()
		if next.Current.Lt(capacity) {
			remaining, _ = capacity.CheckedSub(next.Current)
		}
		return prev, &DailyCapExceededError{Requested: amount, Remaining: remaining}
	}
	next.Current = issued
	next.LastTimestamp = now
	return next, nil
}
