package bonding

import (
	"errors"
	"fmt"
	"strconv"

	"bondswap/core/events"
	"bondswap/core/types"
	"bondswap/crypto"
	"bondswap/native/bridge"
	"bondswap/native/common"
	"bondswap/native/settlement"
)

var (
	errNilState   = errors.New("bonding engine: state not configured")
	errNilQuoter  = errors.New("bonding engine: price source not configured")
	errNilBalance = errors.New("bonding engine: payout view not configured")
)

var (
	feeScale  = types.NewUint128(FeeScale)
	rateScale = types.NewUint128(bridge.RateScale)
)

type engineState interface {
	GetConfig() (*Config, error)
	PutConfig(cfg *Config) error
	GetGrants(addr crypto.Address) ([]Grant, error)
	PutGrants(addr crypto.Address, grants []Grant) error
	Beneficiaries() ([]crypto.Address, error)
}

// Call describes the request being handled.
type Call struct {
	Block  types.BlockInfo
	Self   crypto.Address
	Sender crypto.Address
	Funds  types.Coins
}

// Engine implements the vesting ledger. The configuration is loaded once by
// the caller and handed to every operation; operations that change it write
// it back through the state.
type Engine struct {
	state   engineState
	quoter  func(pool crypto.Address) poolQuotes
	payout  payoutView
	emitter events.Emitter
}

// NewEngine returns an engine that discards events until an emitter is set.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState wires the engine to the persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetQuoter configures how prices are obtained from a pool.
func (e *Engine) SetQuoter(quoter func(pool crypto.Address) poolQuotes) { e.quoter = quoter }

// SetPayoutView configures the payout-token balance reader.
func (e *Engine) SetPayoutView(view payoutView) { e.payout = view }

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

func (e *Engine) quotes(cfg *Config) (poolQuotes, error) {
	if e.quoter == nil {
		return nil, errNilQuoter
	}
	return e.quoter(cfg.Pool), nil
}

func (e *Engine) payoutBalance(cfg *Config, self crypto.Address) (types.Uint128, error) {
	if e.payout == nil {
		return types.Uint128{}, errNilBalance
	}
	return e.payout.PayoutBalance(cfg.PayoutToken, self)
}

func requireOwner(cfg *Config, sender crypto.Address) error {
	if !sender.Equal(cfg.Owner) {
		return ErrUnauthorized
	}
	return nil
}

func validateRates(discount, txFee, platformFee uint64) error {
	if discount >= FeeScale {
		return fmt.Errorf("%w: discount must be below %d", ErrInvalidConfig, FeeScale)
	}
	if txFee+platformFee > FeeScale {
		return fmt.Errorf("%w: fees exceed %d", ErrInvalidConfig, FeeScale)
	}
	return nil
}

// Discounted applies the bonding discount: amount*1000/(1000-discount),
// truncated.
func Discounted(amount types.Uint128, discount uint64) (types.Uint128, error) {
	if discount >= FeeScale {
		return types.Uint128{}, fmt.Errorf("%w: discount must be below %d", ErrInvalidConfig, FeeScale)
	}
	return amount.MulDiv(feeScale, types.NewUint128(FeeScale-discount))
}

// UnbondFee is rate*amount*feeRate/1000/RateScale where rate is the token1
// value of RateScale units of the payout token.
func UnbondFee(rate, amount types.Uint128, feeRate uint64) (types.Uint128, error) {
	value, err := rate.CheckedMul(amount)
	if err != nil {
		return types.Uint128{}, err
	}
	value, err = value.CheckedMul(types.NewUint128(feeRate))
	if err != nil {
		return types.Uint128{}, err
	}
	value, err = value.CheckedDiv(feeScale)
	if err != nil {
		return types.Uint128{}, err
	}
	return value.CheckedDiv(rateScale)
}

// admit runs the daily cap check for amount and stores the new counters in
// cfg. cfg is left untouched on rejection.
func (e *Engine) admit(cfg *Config, call Call, amount types.Uint128) error {
	now := call.Block.Time
	prev := common.DailyCapNow{
		Cumulated:     cfg.CumulatedAmount,
		Current:       cfg.DailyCurrentBondAmount,
		LastTimestamp: cfg.LastTimestamp,
	}
	_, credited, err := common.RollDay(cfg.DailyVestingAmount, now, prev)
	if err != nil {
		return err
	}
	next, err := common.CheckDailyCap(cfg.DailyVestingAmount, now, prev, amount)
	if err != nil {
		return err
	}
	if common.Day(now) != common.Day(prev.LastTimestamp) {
		e.emitter.Emit(events.BondingDayRolled{
			Ledger:    call.Self,
			Day:       common.Day(now),
			Credited:  credited,
			Cumulated: next.Cumulated,
		})
	}
	cfg.CumulatedAmount = next.Cumulated
	cfg.DailyCurrentBondAmount = next.Current
	cfg.LastTimestamp = next.LastTimestamp
	return nil
}

func (e *Engine) appendGrant(addr crypto.Address, grant Grant) error {
	grants, err := e.state.GetGrants(addr)
	if err != nil {
		return err
	}
	return e.state.PutGrants(addr, append(grants, grant))
}

// Bond takes settlement currency directly and grants the discounted payout
// quote. Direct-deposit ledgers only.
func (e *Engine) Bond(cfg *Config, call Call, msg BondMsg) (*types.Response, error) {
	if e.state == nil {
		return nil, errNilState
	}
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if !cfg.NativeBonding {
		return nil, ErrBondingModeNotAllowed
	}
	if msg.Amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	attached := call.Funds.AmountOf(cfg.SettlementDenom)
	if attached.IsZero() {
		return nil, ErrNativeInputZero
	}
	fee, err := msg.Amount.MulDiv(types.NewUint128(cfg.FeeRate()), feeScale)
	if err != nil {
		return nil, err
	}
	required, err := msg.Amount.CheckedAdd(fee)
	if err != nil {
		return nil, err
	}
	if attached.Lt(required) {
		return nil, fmt.Errorf("%w: required %s, attached %s", ErrInsufficientFee, required, attached)
	}
	quotes, err := e.quotes(cfg)
	if err != nil {
		return nil, err
	}
	quoted, err := quotes.Token1ForToken2(msg.Amount)
	if err != nil {
		return nil, err
	}
	receiving, err := Discounted(quoted, cfg.Discount)
	if err != nil {
		return nil, err
	}
	if err := e.admit(cfg, call, receiving); err != nil {
		return nil, err
	}
	unlock := call.Block.Time + cfg.LockSeconds
	if err := e.appendGrant(call.Sender, Grant{Amount: receiving, UnlockTimestamp: unlock}); err != nil {
		return nil, err
	}
	if err := e.state.PutConfig(cfg); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.BondingBonded{
		Ledger:    call.Self,
		Address:   call.Sender,
		Deposit:   msg.Amount,
		Quoted:    quoted,
		Receiving: receiving,
		UnlockAt:  unlock,
	})
	return types.NewResponse().
		AddMessage(settlement.NativeSend(cfg.SettlementDenom, attached, cfg.Treasury)).
		AddAttribute("action", ActionBond).
		AddAttribute("bond_amount", msg.Amount.String()).
		AddAttribute("receiving_amount", receiving.String()).
		AddAttribute("address", call.Sender.String()), nil
}

// LPBond records the reward for a liquidity deposit. Only the paired pool may
// call it and no funds move.
func (e *Engine) LPBond(cfg *Config, call Call, msg LPBondMsg) (*types.Response, error) {
	if e.state == nil {
		return nil, errNilState
	}
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if !call.Sender.Equal(cfg.Pool) {
		return nil, ErrUnauthorized
	}
	if msg.Amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	if cfg.NativeBonding {
		return nil, ErrBondingModeNotAllowed
	}
	if msg.Address.IsZero() {
		return nil, fmt.Errorf("%w: beneficiary address required", ErrInvalidAmount)
	}
	receiving, err := Discounted(msg.Amount, cfg.Discount)
	if err != nil {
		return nil, err
	}
	if err := e.admit(cfg, call, receiving); err != nil {
		return nil, err
	}
	unlock := call.Block.Time + cfg.LockSeconds
	if err := e.appendGrant(msg.Address, Grant{Amount: receiving, UnlockTimestamp: unlock}); err != nil {
		return nil, err
	}
	if err := e.state.PutConfig(cfg); err != nil {
		return nil, err
	}

	e.emitter.Emit(events.BondingLPBonded{
		Ledger:    call.Self,
		Address:   msg.Address,
		Amount:    msg.Amount,
		Receiving: receiving,
		UnlockAt:  unlock,
	})
	return types.NewResponse().
		AddAttribute("action", ActionLPBond).
		AddAttribute("bond_amount", msg.Amount.String()).
		AddAttribute("receiving_amount", receiving.String()).
		AddAttribute("address", msg.Address.String()), nil
}

// project computes the claimable amount and its fee as of now. The exchange
// rate is only queried when something is claimable.
func (e *Engine) project(cfg *Config, addr crypto.Address, grants []Grant, now uint64) (*BondState, error) {
	out := &BondState{
		Address:      addr,
		List:         grants,
		UnbondAmount: types.ZeroUint128(),
		FeeAmount:    types.ZeroUint128(),
	}
	if out.List == nil {
		out.List = []Grant{}
	}
	for _, g := range grants {
		if !g.Matured(now) {
			continue
		}
		sum, err := out.UnbondAmount.CheckedAdd(g.Amount)
		if err != nil {
			return nil, err
		}
		out.UnbondAmount = sum
	}
	if out.UnbondAmount.IsZero() {
		return out, nil
	}
	quotes, err := e.quotes(cfg)
	if err != nil {
		return nil, err
	}
	rate, err := quotes.ExchangeRate()
	if err != nil {
		return nil, err
	}
	fee, err := UnbondFee(rate, out.UnbondAmount, cfg.FeeRate())
	if err != nil {
		return nil, err
	}
	out.FeeAmount = fee
	return out, nil
}

// Unbond pays out every matured grant of the caller and keeps the rest.
func (e *Engine) Unbond(cfg *Config, call Call, _ UnbondMsg) (*types.Response, error) {
	if e.state == nil {
		return nil, errNilState
	}
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	now := call.Block.Time
	grants, err := e.state.GetGrants(call.Sender)
	if err != nil {
		return nil, err
	}
	projected, err := e.project(cfg, call.Sender, grants, now)
	if err != nil {
		return nil, err
	}
	if projected.UnbondAmount.IsZero() {
		return nil, ErrNothingToUnbond
	}
	attached := call.Funds.AmountOf(cfg.SettlementDenom)
	if attached.Lt(projected.FeeAmount) {
		return nil, fmt.Errorf("%w: required %s, attached %s", ErrInsufficientFee, projected.FeeAmount, attached)
	}
	balance, err := e.payoutBalance(cfg, call.Self)
	if err != nil {
		return nil, err
	}
	if balance.Lt(projected.UnbondAmount) {
		return nil, fmt.Errorf("%w: need %s, hold %s", ErrInsufficientPayout, projected.UnbondAmount, balance)
	}

	remaining := make([]Grant, 0, len(grants))
	for _, g := range grants {
		if !g.Matured(now) {
			remaining = append(remaining, g)
		}
	}
	if err := e.state.PutGrants(call.Sender, remaining); err != nil {
		return nil, err
	}

	payout, err := settlement.Transfer(types.TokenDenom(cfg.PayoutToken), projected.UnbondAmount, call.Sender)
	if err != nil {
		return nil, err
	}
	resp := types.NewResponse().AddMessage(payout)
	if !attached.IsZero() {
		resp.AddMessage(settlement.NativeSend(cfg.SettlementDenom, attached, cfg.Treasury))
	}
	e.emitter.Emit(events.BondingUnbonded{
		Ledger:    call.Self,
		Address:   call.Sender,
		Amount:    projected.UnbondAmount,
		Fee:       projected.FeeAmount,
		Remaining: len(remaining),
	})
	return resp.
		AddAttribute("action", ActionUnbond).
		AddAttribute("receiving_amount", projected.UnbondAmount.String()).
		AddAttribute("fee_amount", projected.FeeAmount.String()).
		AddAttribute("address", call.Sender.String()), nil
}

// Withdraw moves payout tokens held by the ledger to the owner.
func (e *Engine) Withdraw(cfg *Config, call Call, msg WithdrawMsg) (*types.Response, error) {
	if err := requireOwner(cfg, call.Sender); err != nil {
		return nil, err
	}
	if msg.Amount.IsZero() {
		return nil, ErrInvalidAmount
	}
	balance, err := e.payoutBalance(cfg, call.Self)
	if err != nil {
		return nil, err
	}
	if balance.Lt(msg.Amount) {
		return nil, fmt.Errorf("%w: need %s, hold %s", ErrInsufficientPayout, msg.Amount, balance)
	}
	payout, err := settlement.Transfer(types.TokenDenom(cfg.PayoutToken), msg.Amount, call.Sender)
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(events.BondingWithdrawn{Ledger: call.Self, Owner: call.Sender, Amount: msg.Amount})
	return types.NewResponse().
		AddMessage(payout).
		AddAttribute("action", ActionWithdraw).
		AddAttribute("receiving_amount", msg.Amount.String()).
		AddAttribute("address", call.Sender.String()), nil
}

func (e *Engine) saveConfig(cfg *Config, call Call, field, value string) error {
	if e.state == nil {
		return errNilState
	}
	if err := e.state.PutConfig(cfg); err != nil {
		return err
	}
	e.emitter.Emit(events.BondingConfigUpdated{Ledger: call.Self, Field: field, Value: value})
	return nil
}

func (e *Engine) UpdateOwner(cfg *Config, call Call, msg UpdateOwnerMsg) (*types.Response, error) {
	if err := requireOwner(cfg, call.Sender); err != nil {
		return nil, err
	}
	if msg.Owner.IsZero() {
		return nil, fmt.Errorf("%w: owner required", ErrInvalidConfig)
	}
	cfg.Owner = msg.Owner
	if err := e.saveConfig(cfg, call, "owner", msg.Owner.String()); err != nil {
		return nil, err
	}
	return types.NewResponse().
		AddAttribute("action", ActionUpdateOwner).
		AddAttribute("owner", msg.Owner.String()), nil
}

func (e *Engine) UpdateEnabled(cfg *Config, call Call, msg UpdateEnabledMsg) (*types.Response, error) {
	if err := requireOwner(cfg, call.Sender); err != nil {
		return nil, err
	}
	cfg.Enabled = msg.Enabled
	value := strconv.FormatBool(msg.Enabled)
	if err := e.saveConfig(cfg, call, "enabled", value); err != nil {
		return nil, err
	}
	return types.NewResponse().
		AddAttribute("action", ActionUpdateEnabled).
		AddAttribute("enabled", value), nil
}

// UpdateConfig replaces the economic parameters. Changing the daily amount
// keeps the accumulated carry-over.
func (e *Engine) UpdateConfig(cfg *Config, call Call, msg UpdateConfigMsg) (*types.Response, error) {
	if err := requireOwner(cfg, call.Sender); err != nil {
		return nil, err
	}
	if msg.Treasury.IsZero() {
		return nil, fmt.Errorf("%w: treasury required", ErrInvalidConfig)
	}
	if err := validateRates(msg.Discount, msg.TxFee, msg.PlatformFee); err != nil {
		return nil, err
	}
	cfg.Treasury = msg.Treasury
	cfg.LockSeconds = msg.LockSeconds
	cfg.Discount = msg.Discount
	cfg.TxFee = msg.TxFee
	cfg.PlatformFee = msg.PlatformFee
	cfg.DailyVestingAmount = msg.DailyVestingAmount
	if err := e.saveConfig(cfg, call, "config", msg.DailyVestingAmount.String()); err != nil {
		return nil, err
	}
	return types.NewResponse().
		AddAttribute("action", ActionUpdateConfig).
		AddAttribute("treasury_address", msg.Treasury.String()).
		AddAttribute("lock_seconds", strconv.FormatUint(msg.LockSeconds, 10)).
		AddAttribute("discount", strconv.FormatUint(msg.Discount, 10)).
		AddAttribute("tx_fee", strconv.FormatUint(msg.TxFee, 10)).
		AddAttribute("platform_fee", strconv.FormatUint(msg.PlatformFee, 10)).
		AddAttribute("daily_vesting_amount", msg.DailyVestingAmount.String()), nil
}

// BondState projects one beneficiary. Unknown addresses yield an empty list.
func (e *Engine) BondState(cfg *Config, now uint64, addr crypto.Address) (*BondState, error) {
	if e.state == nil {
		return nil, errNilState
	}
	grants, err := e.state.GetGrants(addr)
	if err != nil {
		return nil, err
	}
	return e.project(cfg, addr, grants, now)
}

// AllBondStates pages through beneficiaries in ascending address order,
// starting after startAfter.
func (e *Engine) AllBondStates(cfg *Config, now uint64, startAfter *crypto.Address, limit *uint32) (*AllBondStateResponse, error) {
	if e.state == nil {
		return nil, errNilState
	}
	size := DefaultPageLimit
	if limit != nil {
		size = int(*limit)
	}
	if size > MaxPageLimit {
		size = MaxPageLimit
	}
	addrs, err := e.state.Beneficiaries()
	if err != nil {
		return nil, err
	}
	out := &AllBondStateResponse{List: []BondState{}}
	for _, addr := range addrs {
		if len(out.List) >= size {
			break
		}
		if startAfter != nil && addr.String() <= startAfter.String() {
			continue
		}
		st, err := e.BondState(cfg, now, addr)
		if err != nil {
			return nil, err
		}
		out.List = append(out.List, *st)
	}
	return out, nil
}
