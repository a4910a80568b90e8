package types

import (
	"fmt"
	"sort"
	"strings"
)

// Coin is an amount of a native denomination.
type Coin struct {
	Denom  string  `json:"denom"`
	Amount Uint128 `json:"amount"`
}

func NewCoin(denom string, amount uint64) Coin {
	return Coin{Denom: denom, Amount: NewUint128(amount)}
}

func (c Coin) String() string { return c.Amount.String() + c.Denom }

// Coins is a list of native funds attached to a request.
type Coins []Coin

// AmountOf sums every entry for the denomination.
func (cs Coins) AmountOf(denom string) Uint128 {
	total := ZeroUint128()
	for _, c := range cs {
		if c.Denom != denom {
			continue
		}
		next, err := total.CheckedAdd(c.Amount)
		if err != nil {
			return total
		}
		total = next
	}
	return total
}

// IsZero reports whether no non-zero amount is attached.
func (cs Coins) IsZero() bool {
	for _, c := range cs {
		if !c.Amount.IsZero() {
			return false
		}
	}
	return true
}

// Normalize merges duplicate denominations, drops zero amounts and sorts by
// denomination.
func (cs Coins) Normalize() (Coins, error) {
	merged := make(map[string]Uint128, len(cs))
	for _, c := range cs {
		denom := strings.TrimSpace(c.Denom)
		if denom == "" {
			return nil, fmt.Errorf("coins: empty denomination")
		}
		sum, err := merged[denom].CheckedAdd(c.Amount)
		if err != nil {
			return nil, fmt.Errorf("coins: %s: %w", denom, err)
		}
		merged[denom] = sum
	}
	out := make(Coins, 0, len(merged))
	for denom, amount := range merged {
		if amount.IsZero() {
			continue
		}
		out = append(out, Coin{Denom: denom, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	return out, nil
}

func (cs Coins) String() string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}
