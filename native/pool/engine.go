package pool

import (
	"errors"
	"fmt"

	"bondswap/core/events"
	"bondswap/core/types"
	"bondswap/crypto"
	"bondswap/native/bonding"
	"bondswap/native/settlement"
)

var errNilState = errors.New("pool engine: state not configured")

type engineState interface {
	GetConfig() (*Config, error)
	PutConfig(cfg *Config) error
	GetToken(sel TokenSelect) (*Token, error)
	PutToken(sel TokenSelect, token *Token) error
	GetLPToken() (crypto.Address, error)
	PutLPToken(addr crypto.Address) error
}

// lpLedger reads the liquidity token. The contract backs it with smart
// queries against the LP token contract.
type lpLedger interface {
	TotalSupply(lp crypto.Address) (types.Uint128, error)
	BalanceOf(lp, owner crypto.Address) (types.Uint128, error)
}

// Call describes the request being handled.
type Call struct {
	Block  types.BlockInfo
	Self   crypto.Address
	Sender crypto.Address
	Funds  types.Coins
}

// Engine holds the reserve and liquidity logic of a pool. Every operation
// receives the configuration explicitly and returns the response whose
// messages the host executes afterwards.
type Engine struct {
	state   engineState
	lp      lpLedger
	emitter events.Emitter
}

// NewEngine returns an engine that discards events until an emitter is set.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLPLedger wires the liquidity-token view.
func (e *Engine) SetLPLedger(lp lpLedger) { e.lp = lp }

// SetEmitter configures the event sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// Config loads the stored configuration.
func (e *Engine) Config() (*Config, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.state.GetConfig()
}

func (e *Engine) tokens() (*Token, *Token, error) {
	if e.state == nil {
		return nil, nil, errNilState
	}
	t1, err := e.state.GetToken(Token1)
	if err != nil {
		return nil, nil, err
	}
	t2, err := e.state.GetToken(Token2)
	if err != nil {
		return nil, nil, err
	}
	return t1, t2, nil
}

func (e *Engine) lpToken() (crypto.Address, error) {
	if e.state == nil {
		return crypto.Address{}, errNilState
	}
	addr, err := e.state.GetLPToken()
	if err != nil {
		return crypto.Address{}, err
	}
	if addr.IsZero() {
		return crypto.Address{}, ErrLPTokenNotSet
	}
	return addr, nil
}

func checkExpiration(exp *Expiration, block types.BlockInfo) error {
	if exp.IsExpired(block) {
		return ErrMsgExpired
	}
	return nil
}

// pullOrDue routes one inbound leg: token legs become transfer_from messages,
// native legs are added to the funds the caller must attach.
func pullOrDue(resp *types.Response, due *nativeDue, denom types.Denom, amount types.Uint128, call Call) error {
	if amount.IsZero() {
		return nil
	}
	if denom.IsToken() {
		msg, err := settlement.TransferFrom(denom.Token, call.Sender, call.Self, amount)
		if err != nil {
			return err
		}
		resp.AddMessage(msg)
		return nil
	}
	return due.add(denom, amount)
}

func pay(resp *types.Response, denom types.Denom, amount types.Uint128, recipient crypto.Address) error {
	if amount.IsZero() {
		return nil
	}
	msg, err := settlement.Transfer(denom, amount, recipient)
	if err != nil {
		return err
	}
	resp.AddMessage(msg)
	return nil
}

func refund(resp *types.Response, refunds types.Coins, recipient crypto.Address) {
	if len(refunds) == 0 {
		return
	}
	resp.AddMessage(settlement.NativeSendAll(refunds, recipient))
}

// AddLiquidity deposits token1Amount plus the matching token2 leg, mints LP
// tokens to the owner and, for outside depositors, schedules an lp_bond on
// the vesting ledger.
func (e *Engine) AddLiquidity(cfg *Config, call Call, msg AddLiquidityMsg) (*types.Response, error) {
	if err := checkExpiration(msg.Expiration, call.Block); err != nil {
		return nil, err
	}
	t1, t2, err := e.tokens()
	if err != nil {
		return nil, err
	}
	lp, err := e.lpToken()
	if err != nil {
		return nil, err
	}
	supply, err := e.lp.TotalSupply(lp)
	if err != nil {
		return nil, err
	}
	liquidity, err := LiquidityToMint(msg.Token1Amount, supply, t1.Reserve)
	if err != nil {
		return nil, err
	}
	token2Amount, err := Token2Required(msg.MaxToken2, msg.Token1Amount, supply, t2.Reserve, t1.Reserve)
	if err != nil {
		return nil, err
	}
	if liquidity.Lt(msg.MinLiquidity) {
		return nil, &MinLiquidityError{Min: msg.MinLiquidity, Available: liquidity}
	}
	if token2Amount.Gt(msg.MaxToken2) {
		return nil, &MaxTokenError{Max: msg.MaxToken2, Required: token2Amount}
	}
	minFee, err := LiquidityFee(msg.Token1Amount, cfg.FeeRate())
	if err != nil {
		return nil, err
	}
	if err := requireFee(msg.FeeAmount, minFee); err != nil {
		return nil, err
	}

	resp := types.NewResponse()
	var due nativeDue
	if err := pullOrDue(resp, &due, t1.Denom, msg.Token1Amount, call); err != nil {
		return nil, err
	}
	if t1.Denom.IsNative() {
		if err := due.add(t1.Denom, msg.FeeAmount); err != nil {
			return nil, err
		}
	}
	if err := pullOrDue(resp, &due, t2.Denom, token2Amount, call); err != nil {
		return nil, err
	}
	refunds, err := due.settle(call.Funds)
	if err != nil {
		return nil, err
	}
	refund(resp, refunds, call.Sender)

	if t1.Reserve, err = t1.Reserve.CheckedAdd(msg.Token1Amount); err != nil {
		return nil, err
	}
	if t2.Reserve, err = t2.Reserve.CheckedAdd(token2Amount); err != nil {
		return nil, err
	}
	if err := e.state.PutToken(Token1, t1); err != nil {
		return nil, err
	}
	if err := e.state.PutToken(Token2, t2); err != nil {
		return nil, err
	}

	mint, err := settlement.Mint(lp, cfg.Owner, liquidity)
	if err != nil {
		return nil, err
	}
	resp.AddMessage(mint)
	if err := pay(resp, t1.Denom, msg.FeeAmount, cfg.Treasury); err != nil {
		return nil, err
	}

	if !call.Sender.Equal(cfg.Owner) && !call.Sender.Equal(cfg.Treasury) {
		reward, err := token2Amount.CheckedMul(two)
		if err != nil {
			return nil, err
		}
		bond, err := settlement.Execute(cfg.BondingContract, bonding.ActionLPBond, bonding.LPBondMsg{
			Address: call.Sender,
			Amount:  reward,
		})
		if err != nil {
			return nil, fmt.Errorf("pool: lp bond: %w", err)
		}
		resp.AddSubMessage(types.SubMsg{ID: uint64(ReplyLPBond), Msg: bond, ReplyOn: types.ReplyError})
	}

	e.emitter.Emit(events.PoolLiquidityAdded{
		Pool:              call.Self,
		Provider:          call.Sender,
		Token1Amount:      msg.Token1Amount,
		Token2Amount:      token2Amount,
		LiquidityReceived: liquidity,
		Fee:               msg.FeeAmount,
	})
	return resp.
		AddAttribute("action", ActionAddLiquidity).
		AddAttribute("token1_amount", msg.Token1Amount.String()).
		AddAttribute("token2_amount", token2Amount.String()).
		AddAttribute("liquidity_received", liquidity.String()), nil
}

// RemoveLiquidity burns amount of the caller's LP tokens and pays out the
// proportional share of both reserves.
func (e *Engine) RemoveLiquidity(cfg *Config, call Call, msg RemoveLiquidityMsg) (*types.Response, error) {
	if err := checkExpiration(msg.Expiration, call.Block); err != nil {
		return nil, err
	}
	lp, err := e.lpToken()
	if err != nil {
		return nil, err
	}
	balance, err := e.lp.BalanceOf(lp, call.Sender)
	if err != nil {
		return nil, err
	}
	if msg.Amount.Gt(balance) {
		return nil, &InsufficientLiquidityError{Requested: msg.Amount, Available: balance}
	}
	t1, t2, err := e.tokens()
	if err != nil {
		return nil, err
	}
	supply, err := e.lp.TotalSupply(lp)
	if err != nil {
		return nil, err
	}
	token1Amount, err := ShareOf(msg.Amount, t1.Reserve, supply)
	if err != nil {
		return nil, err
	}
	if token1Amount.Lt(msg.MinToken1) {
		return nil, &MinToken1Error{Requested: msg.MinToken1, Available: token1Amount}
	}
	token2Amount, err := ShareOf(msg.Amount, t2.Reserve, supply)
	if err != nil {
		return nil, err
	}
	if token2Amount.Lt(msg.MinToken2) {
		return nil, &MinToken2Error{Requested: msg.MinToken2, Available: token2Amount}
	}

	if t1.Reserve, err = t1.Reserve.CheckedSub(token1Amount); err != nil {
		return nil, err
	}
	if t2.Reserve, err = t2.Reserve.CheckedSub(token2Amount); err != nil {
		return nil, err
	}
	if err := e.state.PutToken(Token1, t1); err != nil {
		return nil, err
	}
	if err := e.state.PutToken(Token2, t2); err != nil {
		return nil, err
	}

	resp := types.NewResponse()
	if err := pay(resp, t1.Denom, token1Amount, call.Sender); err != nil {
		return nil, err
	}
	if err := pay(resp, t2.Denom, token2Amount, call.Sender); err != nil {
		return nil, err
	}
	burn, err := settlement.BurnFrom(lp, call.Sender, msg.Amount)
	if err != nil {
		return nil, err
	}
	resp.AddMessage(burn)

	e.emitter.Emit(events.PoolLiquidityRemoved{
		Pool:            call.Self,
		Provider:        call.Sender,
		LiquidityBurned: msg.Amount,
		Token1Returned:  token1Amount,
		Token2Returned:  token2Amount,
	})
	return resp.
		AddAttribute("action", ActionRemoveLiquidity).
		AddAttribute("liquidity_burned", msg.Amount.String()).
		AddAttribute("token1_returned", token1Amount.String()).
		AddAttribute("token2_returned", token2Amount.String()), nil
}

// Swap sells InputAmount of one side for the other. The output goes to the
// sender and the fee to the treasury in the settlement denom. The minimum
// fee is taken from the input when selling token1 and from the output when
// selling token2.
func (e *Engine) Swap(cfg *Config, call Call, msg SwapMsg) (*types.Response, error) {
	if err := checkExpiration(msg.Expiration, call.Block); err != nil {
		return nil, err
	}
	if !msg.InputToken.Valid() {
		return nil, fmt.Errorf("pool: unknown token selector %q", msg.InputToken)
	}
	if e.state == nil {
		return nil, errNilState
	}
	in, err := e.state.GetToken(msg.InputToken)
	if err != nil {
		return nil, err
	}
	out, err := e.state.GetToken(msg.InputToken.Other())
	if err != nil {
		return nil, err
	}
	bought, err := GetInputPrice(msg.InputAmount, in.Reserve, out.Reserve)
	if err != nil {
		return nil, err
	}
	if bought.Lt(msg.MinOutput) {
		return nil, &SwapMinError{Min: msg.MinOutput, Available: bought}
	}
	feeBase := msg.InputAmount
	if msg.InputToken == Token2 {
		feeBase = bought
	}
	minFee, err := FeeFor(feeBase, cfg.FeeRate())
	if err != nil {
		return nil, err
	}
	if err := requireFee(msg.FeeAmount, minFee); err != nil {
		return nil, err
	}

	feeDenom := types.NativeDenom(cfg.SettlementDenom)
	resp := types.NewResponse()
	var due nativeDue
	if err := pullOrDue(resp, &due, in.Denom, msg.InputAmount, call); err != nil {
		return nil, err
	}
	if err := due.add(feeDenom, msg.FeeAmount); err != nil {
		return nil, err
	}
	refunds, err := due.settle(call.Funds)
	if err != nil {
		return nil, err
	}
	refund(resp, refunds, call.Sender)

	if in.Reserve, err = in.Reserve.CheckedAdd(msg.InputAmount); err != nil {
		return nil, err
	}
	if out.Reserve, err = out.Reserve.CheckedSub(bought); err != nil {
		return nil, err
	}
	if err := e.state.PutToken(msg.InputToken, in); err != nil {
		return nil, err
	}
	if err := e.state.PutToken(msg.InputToken.Other(), out); err != nil {
		return nil, err
	}

	if err := pay(resp, out.Denom, bought, call.Sender); err != nil {
		return nil, err
	}
	if err := pay(resp, feeDenom, msg.FeeAmount, cfg.Treasury); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.PoolSwapped{
		Pool:      call.Self,
		Sender:    call.Sender,
		Recipient: call.Sender,
		Input:     string(msg.InputToken),
		Sold:      msg.InputAmount,
		Bought:    bought,
		Fee:       msg.FeeAmount,
	})
	return resp.
		AddAttribute("action", ActionSwap).
		AddAttribute("native_sold", msg.InputAmount.String()).
		AddAttribute("token_bought", bought.String()), nil
}

// AddToken tops up one reserve without touching LP supply. Owner only.
func (e *Engine) AddToken(cfg *Config, call Call, msg AddTokenMsg) (*types.Response, error) {
	if !call.Sender.Equal(cfg.Owner) {
		return nil, ErrUnauthorized
	}
	if !msg.InputToken.Valid() {
		return nil, fmt.Errorf("pool: unknown token selector %q", msg.InputToken)
	}
	if e.state == nil {
		return nil, errNilState
	}
	tok, err := e.state.GetToken(msg.InputToken)
	if err != nil {
		return nil, err
	}
	resp := types.NewResponse()
	var due nativeDue
	if err := pullOrDue(resp, &due, tok.Denom, msg.Amount, call); err != nil {
		return nil, err
	}
	refunds, err := due.settle(call.Funds)
	if err != nil {
		return nil, err
	}
	refund(resp, refunds, call.Sender)
	if tok.Reserve, err = tok.Reserve.CheckedAdd(msg.Amount); err != nil {
		return nil, err
	}
	if err := e.state.PutToken(msg.InputToken, tok); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.PoolTokenAdded{Pool: call.Self, Token: string(msg.InputToken), Amount: msg.Amount})
	return resp.
		AddAttribute("action", ActionAddToken).
		AddAttribute("add_token", msg.Amount.String()), nil
}

// UpdateConfig replaces the owner, bonding ledger and treasury. Owner only.
func (e *Engine) UpdateConfig(cfg *Config, call Call, msg UpdateConfigMsg) (*types.Response, error) {
	if !call.Sender.Equal(cfg.Owner) {
		return nil, ErrUnauthorized
	}
	if msg.Owner.IsZero() || msg.Treasury.IsZero() {
		return nil, fmt.Errorf("%w: owner and treasury are required", ErrInvalidConfig)
	}
	if e.state == nil {
		return nil, errNilState
	}
	next := *cfg
	next.Owner = msg.Owner
	next.BondingContract = msg.BondingContract
	next.Treasury = msg.Treasury
	if err := e.state.PutConfig(&next); err != nil {
		return nil, err
	}
	*cfg = next
	e.emitter.Emit(events.PoolConfigUpdated{
		Pool:     call.Self,
		Owner:    next.Owner,
		Bonding:  next.BondingContract,
		Treasury: next.Treasury,
	})
	return types.NewResponse().
		AddAttribute("action", ActionUpdateConfig).
		AddAttribute("owner", next.Owner.String()).
		AddAttribute("bonding_contract_address", next.BondingContract.String()).
		AddAttribute("treasury_address", next.Treasury.String()), nil
}

// Info reports reserves, denominations and LP supply.
func (e *Engine) Info() (*InfoResponse, error) {
	t1, t2, err := e.tokens()
	if err != nil {
		return nil, err
	}
	out := &InfoResponse{
		Token1Reserve: t1.Reserve,
		Token1Denom:   t1.Denom,
		Token2Reserve: t2.Reserve,
		Token2Denom:   t2.Denom,
		LPTokenSupply: types.ZeroUint128(),
	}
	lp, err := e.state.GetLPToken()
	if err != nil {
		return nil, err
	}
	if lp.IsZero() {
		return out, nil
	}
	supply, err := e.lp.TotalSupply(lp)
	if err != nil {
		return nil, err
	}
	out.LPTokenSupply = supply
	out.LPTokenAddress = lp.String()
	return out, nil
}

// Price quotes selling amount of sel without mutating anything.
func (e *Engine) Price(sel TokenSelect, amount types.Uint128) (types.Uint128, error) {
	t1, t2, err := e.tokens()
	if err != nil {
		return types.Uint128{}, err
	}
	if sel == Token2 {
		return GetInputPrice(amount, t2.Reserve, t1.Reserve)
	}
	return GetInputPrice(amount, t1.Reserve, t2.Reserve)
}

// LPBalance is the liquidity-token balance of addr.
func (e *Engine) LPBalance(addr crypto.Address) (types.Uint128, error) {
	if e.state == nil {
		return types.Uint128{}, errNilState
	}
	lp, err := e.lpToken()
	if err != nil {
		return types.Uint128{}, err
	}
	return e.lp.BalanceOf(lp, addr)
}
