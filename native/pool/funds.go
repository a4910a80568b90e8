package pool

import (
	"strings"

	"bondswap/core/types"
)

// nativeDue collects the native amounts a request has to attach. Token legs
// are pulled with transfer_from instead and never show up here.
type nativeDue struct {
	order   []string
	amounts map[string]types.Uint128
}

func (d *nativeDue) add(denom types.Denom, amount types.Uint128) error {
	if !denom.IsNative() || amount.IsZero() {
		return nil
	}
	if d.amounts == nil {
		d.amounts = make(map[string]types.Uint128)
	}
	current, seen := d.amounts[denom.Native]
	next, err := current.CheckedAdd(amount)
	if err != nil {
		return err
	}
	if !seen {
		d.order = append(d.order, denom.Native)
	}
	d.amounts[denom.Native] = next
	return nil
}

// settle checks funds against every due amount and returns what has to be
// refunded to the sender.
func (d *nativeDue) settle(funds types.Coins) (types.Coins, error) {
	var refunds types.Coins
	for _, denom := range d.order {
		required := d.amounts[denom]
		attached := funds.AmountOf(denom)
		if attached.IsZero() {
			return nil, &IncorrectNativeDenomError{Provided: attachedDenoms(funds), Required: denom}
		}
		if attached.Lt(required) {
			return nil, &InsufficientFundsError{Denom: denom, Required: required, Provided: attached}
		}
		excess, err := attached.CheckedSub(required)
		if err != nil {
			return nil, err
		}
		if !excess.IsZero() {
			refunds = append(refunds, types.Coin{Denom: denom, Amount: excess})
		}
	}
	return refunds, nil
}

func attachedDenoms(funds types.Coins) string {
	names := make([]string, 0, len(funds))
	for _, c := range funds {
		if !c.Amount.IsZero() {
			names = append(names, c.Denom)
		}
	}
	return strings.Join(names, ",")
}
