package bonding

import (
	"encoding/json"
	"fmt"
	"strings"

	"bondswap/core/events"
	"bondswap/core/host"
	"bondswap/core/state"
	"bondswap/core/types"
	"bondswap/crypto"
	"bondswap/native/bridge"
)

// Contract adapts the vesting engine to the host entry points.
type Contract struct{}

// New returns a vesting ledger contract value.
func New() host.Contract { return Contract{} }

func engineFor(store *state.Manager, q host.Querier, emitter events.Emitter) *Engine {
	e := NewEngine()
	e.SetState(newStore(store))
	e.SetQuoter(func(pool crypto.Address) poolQuotes { return bridge.New(q, pool) })
	e.SetPayoutView(queryPayout{q: q})
	e.SetEmitter(emitter)
	return e
}

func callOf(ctx *host.Context) Call {
	return Call{
		Block:  ctx.Env.Block,
		Self:   ctx.Env.Contract,
		Sender: ctx.Info.Sender,
		Funds:  ctx.Info.Funds,
	}
}

func (m InstantiateMsg) validate() error {
	switch {
	case m.Owner.IsZero() || m.Treasury.IsZero():
		return fmt.Errorf("%w: owner and treasury are required", ErrInvalidConfig)
	case m.Pool.IsZero() || m.PayoutToken.IsZero():
		return fmt.Errorf("%w: pool and payout token are required", ErrInvalidConfig)
	case strings.TrimSpace(m.SettlementDenom) == "":
		return fmt.Errorf("%w: settlement denom is required", ErrInvalidConfig)
	}
	return validateRates(m.Discount, m.TxFee, m.PlatformFee)
}

// Instantiate stores an enabled ledger whose day bucket starts at the
// current block.
func (Contract) Instantiate(ctx *host.Context, raw json.RawMessage) (*types.Response, error) {
	var msg InstantiateMsg
	if err := host.DecodeBody(raw, &msg); err != nil {
		return nil, err
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}
	cfg := &Config{
		Owner:                  msg.Owner,
		Pool:                   msg.Pool,
		Treasury:               msg.Treasury,
		PayoutToken:            msg.PayoutToken,
		LockSeconds:            msg.LockSeconds,
		Discount:               msg.Discount,
		SettlementDenom:        msg.SettlementDenom,
		NativeBonding:          msg.NativeBonding,
		TxFee:                  msg.TxFee,
		PlatformFee:            msg.PlatformFee,
		Enabled:                true,
		DailyVestingAmount:     msg.DailyVestingAmount,
		CumulatedAmount:        types.ZeroUint128(),
		DailyCurrentBondAmount: types.ZeroUint128(),
		LastTimestamp:          ctx.Env.Block.Time,
	}
	if err := newStore(ctx.Store).PutConfig(cfg); err != nil {
		return nil, err
	}
	if err := state.SetContractVersion(ctx.Store, ContractName, ContractVersion); err != nil {
		return nil, err
	}
	return types.NewResponse().
		AddAttribute("action", "instantiate").
		AddAttribute("owner", msg.Owner.String()).
		AddAttribute("pool_address", msg.Pool.String()), nil
}

func (Contract) Execute(ctx *host.Context, raw json.RawMessage) (*types.Response, error) {
	action, body, err := host.DecodeVariant(raw)
	if err != nil {
		return nil, err
	}
	engine := engineFor(ctx.Store, ctx.Querier, ctx.Emitter)
	cfg, err := engine.Config()
	if err != nil {
		return nil, err
	}
	call := callOf(ctx)

	switch action {
	case ActionUpdateOwner:
		var msg UpdateOwnerMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		return engine.UpdateOwner(cfg, call, msg)
	case ActionUpdateEnabled:
		var msg UpdateEnabledMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		return engine.UpdateEnabled(cfg, call, msg)
	case ActionUpdateConfig:
		var msg UpdateConfigMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		return engine.UpdateConfig(cfg, call, msg)
	case ActionBond:
		var msg BondMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		return engine.Bond(cfg, call, msg)
	case ActionLPBond:
		var msg LPBondMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		return engine.LPBond(cfg, call, msg)
	case ActionUnbond:
		return engine.Unbond(cfg, call, UnbondMsg{})
	case ActionWithdraw:
		var msg WithdrawMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		return engine.Withdraw(cfg, call, msg)
	}
	return nil, fmt.Errorf("%w: unknown bonding action %q", host.ErrInvalidMessage, action)
}

func (Contract) Query(ctx *host.QueryContext, raw json.RawMessage) (json.RawMessage, error) {
	action, body, err := host.DecodeVariant(raw)
	if err != nil {
		return nil, err
	}
	engine := engineFor(ctx.Store, ctx.Querier, nil)
	cfg, err := engine.Config()
	if err != nil {
		return nil, err
	}
	now := ctx.Env.Block.Time

	switch action {
	case QueryConfig:
		return json.Marshal(cfg)
	case QueryBondState:
		var q BondStateQuery
		if err := host.DecodeBody(body, &q); err != nil {
			return nil, err
		}
		st, err := engine.BondState(cfg, now, q.Address)
		if err != nil {
			return nil, err
		}
		return json.Marshal(st)
	case QueryAllBondState:
		var q AllBondStateQuery
		if err := host.DecodeBody(body, &q); err != nil {
			return nil, err
		}
		all, err := engine.AllBondStates(cfg, now, q.StartAfter, q.Limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(all)
	}
	return nil, fmt.Errorf("%w: unknown bonding query %q", host.ErrInvalidMessage, action)
}

// Reply is never scheduled by the ledger.
func (Contract) Reply(_ *host.Context, reply types.Reply) (*types.Response, error) {
	return nil, fmt.Errorf("bonding: unexpected reply %d", reply.ID)
}

func (Contract) Migrate(ctx *host.Context, _ json.RawMessage) (*types.Response, error) {
	version, err := state.GetContractVersion(ctx.Store)
	if err != nil {
		return nil, err
	}
	if version.Contract != ContractName {
		return nil, &CannotMigrateError{PreviousContract: version.Contract}
	}
	if err := state.SetContractVersion(ctx.Store, ContractName, ContractVersion); err != nil {
		return nil, err
	}
	return types.NewResponse().AddAttribute("action", "migrate"), nil
}
