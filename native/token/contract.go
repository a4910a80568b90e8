package token

import (
	"encoding/json"
	"fmt"
	"strings"

	"bondswap/core/host"
	"bondswap/core/state"
	"bondswap/core/types"
	"bondswap/crypto"
)

// Contract is a minimal fungible token with allowances and a single minter.
// The pool uses it for LP shares and the vesting ledger pays out with it.
type Contract struct{}

// New returns a token contract value.
func New() host.Contract { return Contract{} }

func (Contract) Instantiate(ctx *host.Context, raw json.RawMessage) (*types.Response, error) {
	var msg InstantiateMsg
	if err := host.DecodeBody(raw, &msg); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(msg.Name)
	symbol := strings.TrimSpace(msg.Symbol)
	if name == "" || symbol == "" {
		return nil, fmt.Errorf("%w: name and symbol are required", ErrInvalidInstantiate)
	}
	if msg.Decimals > 18 {
		return nil, fmt.Errorf("%w: decimals must not exceed 18", ErrInvalidInstantiate)
	}
	l := ledger{store: ctx.Store}
	supply := types.ZeroUint128()
	for _, bal := range msg.InitialBalances {
		if bal.Address.IsZero() {
			return nil, fmt.Errorf("%w: initial balance without address", ErrInvalidInstantiate)
		}
		if err := l.add(bal.Address, bal.Amount); err != nil {
			return nil, err
		}
		next, err := supply.CheckedAdd(bal.Amount)
		if err != nil {
			return nil, err
		}
		supply = next
	}
	info := &Info{Name: name, Symbol: symbol, Decimals: msg.Decimals, TotalSupply: supply}
	if msg.Mint != nil {
		info.Minter = msg.Mint.Minter
		if msg.Mint.Cap != nil {
			if supply.Gt(*msg.Mint.Cap) {
				return nil, ErrCapExceeded
			}
			info.Cap = *msg.Mint.Cap
		}
	}
	if err := l.putInfo(info); err != nil {
		return nil, err
	}
	if err := state.SetContractVersion(ctx.Store, ContractName, ContractVersion); err != nil {
		return nil, err
	}
	return types.NewResponse().
		AddAttribute("action", "instantiate").
		AddAttribute("symbol", symbol).
		AddAttribute("total_supply", supply.String()), nil
}

func (Contract) Execute(ctx *host.Context, raw json.RawMessage) (*types.Response, error) {
	action, body, err := host.DecodeVariant(raw)
	if err != nil {
		return nil, err
	}
	l := ledger{store: ctx.Store}
	sender := ctx.Info.Sender
	resp := types.NewResponse().AddAttribute("action", action)

	switch action {
	case ActionTransfer:
		var msg TransferMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		if err := l.move(sender, msg.Recipient, msg.Amount); err != nil {
			return nil, err
		}
		return resp.AddAttribute("from", sender.String()).
			AddAttribute("to", msg.Recipient.String()).
			AddAttribute("amount", msg.Amount.String()), nil

	case ActionTransferFrom:
		var msg TransferFromMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		if msg.Amount.IsZero() {
			return nil, ErrInvalidZeroAmount
		}
		if err := l.spendAllowance(msg.Owner, sender, msg.Amount); err != nil {
			return nil, err
		}
		if err := l.move(msg.Owner, msg.Recipient, msg.Amount); err != nil {
			return nil, err
		}
		return resp.AddAttribute("from", msg.Owner.String()).
			AddAttribute("to", msg.Recipient.String()).
			AddAttribute("by", sender.String()).
			AddAttribute("amount", msg.Amount.String()), nil

	case ActionIncreaseAllowance, ActionDecreaseAllowance:
		var msg AllowanceMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		if msg.Spender.Equal(sender) {
			return nil, fmt.Errorf("%w: cannot set allowance to own account", ErrUnauthorized)
		}
		current, err := l.allowance(sender, msg.Spender)
		if err != nil {
			return nil, err
		}
		next := types.ZeroUint128()
		if action == ActionIncreaseAllowance {
			if next, err = current.CheckedAdd(msg.Amount); err != nil {
				return nil, err
			}
		} else if current.Gt(msg.Amount) {
			next, _ = current.CheckedSub(msg.Amount)
		}
		if err := l.putAllowance(sender, msg.Spender, next); err != nil {
			return nil, err
		}
		return resp.AddAttribute("owner", sender.String()).
			AddAttribute("spender", msg.Spender.String()).
			AddAttribute("amount", msg.Amount.String()), nil

	case ActionBurn:
		var msg BurnMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		if err := burn(l, sender, msg.Amount); err != nil {
			return nil, err
		}
		return resp.AddAttribute("from", sender.String()).AddAttribute("amount", msg.Amount.String()), nil

	case ActionBurnFrom:
		var msg BurnFromMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		if msg.Amount.IsZero() {
			return nil, ErrInvalidZeroAmount
		}
		if err := l.spendAllowance(msg.Owner, sender, msg.Amount); err != nil {
			return nil, err
		}
		if err := burn(l, msg.Owner, msg.Amount); err != nil {
			return nil, err
		}
		return resp.AddAttribute("from", msg.Owner.String()).
			AddAttribute("by", sender.String()).
			AddAttribute("amount", msg.Amount.String()), nil

	case ActionMint:
		var msg MintMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		info, err := l.info()
		if err != nil {
			return nil, err
		}
		if info.Minter.IsZero() || !info.Minter.Equal(sender) {
			return nil, fmt.Errorf("%w: only the minter may mint", ErrUnauthorized)
		}
		if msg.Amount.IsZero() {
			return nil, ErrInvalidZeroAmount
		}
		if err := l.adjustSupply(msg.Amount, true); err != nil {
			return nil, err
		}
		if err := l.add(msg.Recipient, msg.Amount); err != nil {
			return nil, err
		}
		return resp.AddAttribute("to", msg.Recipient.String()).AddAttribute("amount", msg.Amount.String()), nil
	}
	return nil, fmt.Errorf("%w: unknown token action %q", host.ErrInvalidMessage, action)
}

func burn(l ledger, owner crypto.Address, amount types.Uint128) error {
	if amount.IsZero() {
		return ErrInvalidZeroAmount
	}
	if err := l.sub(owner, amount); err != nil {
		return err
	}
	return l.adjustSupply(amount, false)
}

func (Contract) Query(ctx *host.QueryContext, raw json.RawMessage) (json.RawMessage, error) {
	action, body, err := host.DecodeVariant(raw)
	if err != nil {
		return nil, err
	}
	l := ledger{store: ctx.Store}
	switch action {
	case QueryBalance:
		var q BalanceQuery
		if err := host.DecodeBody(body, &q); err != nil {
			return nil, err
		}
		bal, err := l.balance(q.Address)
		if err != nil {
			return nil, err
		}
		return json.Marshal(BalanceResponse{Balance: bal})
	case QueryTokenInfo:
		info, err := l.info()
		if err != nil {
			return nil, err
		}
		return json.Marshal(TokenInfoResponse{
			Name:        info.Name,
			Symbol:      info.Symbol,
			Decimals:    info.Decimals,
			TotalSupply: info.TotalSupply,
		})
	case QueryMinter:
		info, err := l.info()
		if err != nil {
			return nil, err
		}
		out := MinterResponse{Minter: info.Minter}
		if !info.Cap.IsZero() {
			capacity := info.Cap
			out.Cap = &capacity
		}
		return json.Marshal(out)
	case QueryAllowance:
		var q AllowanceQuery
		if err := host.DecodeBody(body, &q); err != nil {
			return nil, err
		}
		amount, err := l.allowance(q.Owner, q.Spender)
		if err != nil {
			return nil, err
		}
		return json.Marshal(AllowanceResponse{Allowance: amount})
	}
	return nil, fmt.Errorf("%w: unknown token query %q", host.ErrInvalidMessage, action)
}

func (Contract) Reply(*host.Context, types.Reply) (*types.Response, error) {
	return nil, fmt.Errorf("%w: token contract does not emit sub-messages", host.ErrInvalidMessage)
}

func (Contract) Migrate(ctx *host.Context, _ json.RawMessage) (*types.Response, error) {
	version, err := state.GetContractVersion(ctx.Store)
	if err != nil {
		return nil, err
	}
	if version.Contract != ContractName {
		return nil, fmt.Errorf("token: cannot migrate from %q", version.Contract)
	}
	if err := state.SetContractVersion(ctx.Store, ContractName, ContractVersion); err != nil {
		return nil, err
	}
	return types.NewResponse().AddAttribute("action", "migrate"), nil
}
