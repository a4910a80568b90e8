package pool

import (
	"encoding/json"
	"fmt"
	"strings"

	"bondswap/core/events"
	"bondswap/core/host"
	"bondswap/core/state"
	"bondswap/core/types"
	"bondswap/crypto"
	"bondswap/native/bonding"
	"bondswap/native/bridge"
	"bondswap/native/token"
)

// Contract adapts the engine to the host entry points.
type Contract struct{}

// New returns a pool contract value.
func New() host.Contract { return Contract{} }

func engineFor(store *state.Manager, q host.Querier, emitter events.Emitter) *Engine {
	e := NewEngine()
	e.SetState(newStore(store))
	e.SetLPLedger(queryLedger{q: q})
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
	case m.LPTokenCodeID == 0 || m.BondingCodeID == 0:
		return fmt.Errorf("%w: code ids are required", ErrInvalidConfig)
	case m.Owner.IsZero() || m.Treasury.IsZero():
		return fmt.Errorf("%w: owner and treasury are required", ErrInvalidConfig)
	case m.PayoutToken.IsZero():
		return fmt.Errorf("%w: payout token is required", ErrInvalidConfig)
	case strings.TrimSpace(m.SettlementDenom) == "":
		return fmt.Errorf("%w: settlement denom is required", ErrInvalidConfig)
	case m.Discount >= FeeScale:
		return fmt.Errorf("%w: discount must be below %d", ErrInvalidConfig, FeeScale)
	case m.TxFee+m.PlatformFee > FeeScale:
		return fmt.Errorf("%w: fees exceed %d", ErrInvalidConfig, FeeScale)
	}
	return nil
}

// Instantiate stores the configuration and both reserves, then starts the
// bootstrap chain by instantiating the LP token.
func (Contract) Instantiate(ctx *host.Context, raw json.RawMessage) (*types.Response, error) {
	var msg InstantiateMsg
	if err := host.DecodeBody(raw, &msg); err != nil {
		return nil, err
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}
	cfg := &Config{
		Owner:              msg.Owner,
		BondingCodeID:      msg.BondingCodeID,
		PayoutToken:        msg.PayoutToken,
		Treasury:           msg.Treasury,
		SettlementDenom:    msg.SettlementDenom,
		TxFee:              msg.TxFee,
		PlatformFee:        msg.PlatformFee,
		LockSeconds:        msg.LockSeconds,
		Discount:           msg.Discount,
		DailyVestingAmount: msg.DailyVestingAmount,
	}
	st := newStore(ctx.Store)
	if err := st.PutConfig(cfg); err != nil {
		return nil, err
	}
	if err := st.PutToken(Token1, &Token{Denom: types.NativeDenom(msg.SettlementDenom)}); err != nil {
		return nil, err
	}
	if err := st.PutToken(Token2, &Token{Denom: types.TokenDenom(msg.PayoutToken)}); err != nil {
		return nil, err
	}
	if err := state.SetContractVersion(ctx.Store, ContractName, ContractVersion); err != nil {
		return nil, err
	}

	lpMsg, err := json.Marshal(token.InstantiateMsg{
		Name:     LPTokenName,
		Symbol:   LPTokenSymbol,
		Decimals: LPTokenDecimals,
		Mint:     &token.MinterConfig{Minter: ctx.Env.Contract},
	})
	if err != nil {
		return nil, err
	}
	admin := msg.Owner
	return types.NewResponse().
		AddSubMessage(types.SubMsg{
			ID: uint64(ReplyInstantiateLPToken),
			Msg: types.Message{Instantiate: &types.ContractInstantiate{
				CodeID: msg.LPTokenCodeID,
				Msg:    lpMsg,
				Label:  LPTokenLabel,
				Admin:  &admin,
			}},
			ReplyOn: types.ReplySuccess,
		}).
		AddAttribute("action", "instantiate").
		AddAttribute("owner", msg.Owner.String()), nil
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
	case ActionUpdateConfig:
		var msg UpdateConfigMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		return engine.UpdateConfig(cfg, call, msg)
	case ActionAddLiquidity:
		var msg AddLiquidityMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		return engine.AddLiquidity(cfg, call, msg)
	case ActionRemoveLiquidity:
		var msg RemoveLiquidityMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		return engine.RemoveLiquidity(cfg, call, msg)
	case ActionSwap:
		var msg SwapMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		return engine.Swap(cfg, call, msg)
	case ActionAddToken:
		var msg AddTokenMsg
		if err := host.DecodeBody(body, &msg); err != nil {
			return nil, err
		}
		return engine.AddToken(cfg, call, msg)
	}
	return nil, fmt.Errorf("%w: unknown pool action %q", host.ErrInvalidMessage, action)
}

func (Contract) Query(ctx *host.QueryContext, raw json.RawMessage) (json.RawMessage, error) {
	action, body, err := host.DecodeVariant(raw)
	if err != nil {
		return nil, err
	}
	engine := engineFor(ctx.Store, ctx.Querier, nil)
	switch action {
	case QueryConfig:
		cfg, err := engine.Config()
		if err != nil {
			return nil, err
		}
		return json.Marshal(cfg)
	case QueryBalance:
		var q BalanceQuery
		if err := host.DecodeBody(body, &q); err != nil {
			return nil, err
		}
		bal, err := engine.LPBalance(q.Address)
		if err != nil {
			return nil, err
		}
		return json.Marshal(token.BalanceResponse{Balance: bal})
	case QueryInfo:
		info, err := engine.Info()
		if err != nil {
			return nil, err
		}
		return json.Marshal(info)
	case QueryToken1ForToken2:
		var q Token1ForToken2Query
		if err := host.DecodeBody(body, &q); err != nil {
			return nil, err
		}
		amount, err := engine.Price(Token1, q.Token1Amount)
		if err != nil {
			return nil, err
		}
		return json.Marshal(bridge.Token1ForToken2Response{Token2Amount: amount})
	case QueryToken2ForToken1:
		var q Token2ForToken1Query
		if err := host.DecodeBody(body, &q); err != nil {
			return nil, err
		}
		amount, err := engine.Price(Token2, q.Token2Amount)
		if err != nil {
			return nil, err
		}
		return json.Marshal(bridge.Token2ForToken1Response{Token1Amount: amount})
	}
	return nil, fmt.Errorf("%w: unknown pool query %q", host.ErrInvalidMessage, action)
}

func addressFromReply(reply types.Reply) (crypto.Address, error) {
	if !reply.Result.IsOK() {
		return crypto.Address{}, fmt.Errorf("pool: %s failed: %s", ReplyID(reply.ID), reply.Result.Err)
	}
	addr, err := crypto.DecodeAddress(string(reply.Result.Data))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("pool: %s: %w", ReplyID(reply.ID), err)
	}
	return addr, nil
}

// Reply resumes the step identified by the reply id.
func (Contract) Reply(ctx *host.Context, reply types.Reply) (*types.Response, error) {
	st := newStore(ctx.Store)
	self := ctx.Env.Contract

	switch ReplyID(reply.ID) {
	case ReplyInstantiateLPToken:
		lp, err := addressFromReply(reply)
		if err != nil {
			return nil, err
		}
		if err := st.PutLPToken(lp); err != nil {
			return nil, err
		}
		cfg, err := st.GetConfig()
		if err != nil {
			return nil, err
		}
		bondMsg, err := json.Marshal(bonding.InstantiateMsg{
			Owner:              cfg.Owner,
			Pool:               self,
			Treasury:           cfg.Treasury,
			PayoutToken:        cfg.PayoutToken,
			SettlementDenom:    cfg.SettlementDenom,
			LockSeconds:        cfg.LockSeconds,
			Discount:           cfg.Discount,
			TxFee:              cfg.TxFee,
			PlatformFee:        cfg.PlatformFee,
			DailyVestingAmount: cfg.DailyVestingAmount,
			NativeBonding:      false,
		})
		if err != nil {
			return nil, err
		}
		admin := cfg.Owner
		ctx.Emitter.Emit(events.PoolLPTokenLinked{Pool: self, LPToken: lp})
		return types.NewResponse().
			AddSubMessage(types.SubMsg{
				ID: uint64(ReplyInstantiateBonding),
				Msg: types.Message{Instantiate: &types.ContractInstantiate{
					CodeID: cfg.BondingCodeID,
					Msg:    bondMsg,
					Label:  BondingLabel,
					Admin:  &admin,
				}},
				ReplyOn: types.ReplySuccess,
			}).
			AddAttribute("liquidity_token_addr", lp.String()), nil

	case ReplyInstantiateBonding:
		ledger, err := addressFromReply(reply)
		if err != nil {
			return nil, err
		}
		cfg, err := st.GetConfig()
		if err != nil {
			return nil, err
		}
		cfg.BondingContract = ledger
		if err := st.PutConfig(cfg); err != nil {
			return nil, err
		}
		ctx.Emitter.Emit(events.PoolBondingLinked{Pool: self, Bonding: ledger})
		return types.NewResponse().AddAttribute("bonding_contract_addr", ledger.String()), nil

	case ReplyLPBond:
		if reply.Result.IsOK() {
			return types.NewResponse(), nil
		}
		ctx.Logger.Warn("lp bond follow-up failed", "error", reply.Result.Err)
		ctx.Emitter.Emit(events.PoolLPBondFailed{Pool: self, Reason: reply.Result.Err})
		return types.NewResponse().AddAttribute("lp_bond_error", reply.Result.Err), nil
	}
	return nil, &UnknownReplyIDError{ID: reply.ID}
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
