package host

import (
	"encoding/json"
	"fmt"
	"strconv"

	"bondswap/core/events"
	"bondswap/core/state"
	"bondswap/core/types"
	"bondswap/crypto"
	"bondswap/native/common"
	"bondswap/observability"
	"bondswap/storage"
)

// frame is one rollback scope. Sub-messages run in child frames whose cache
// is flushed into the parent only when they succeed.
type frame struct {
	host   *Host
	cache  *storage.CacheDB
	depth  int
	events []*types.Event
}

func (h *Host) newFrame(cache *storage.CacheDB, depth int) *frame {
	return &frame{host: h, cache: cache, depth: depth}
}

func (f *frame) child() (*frame, error) {
	if f.depth+1 > f.host.maxDepth {
		return nil, fmt.Errorf("%w: %d", ErrCallDepth, f.host.maxDepth)
	}
	return f.host.newFrame(storage.NewCacheDB(f.cache), f.depth+1), nil
}

func (f *frame) hostState() *state.Manager { return f.host.hostState(f.cache) }

func (f *frame) contractState(addr crypto.Address) *state.Manager {
	return state.NewManager(f.cache, contractNamespace(addr))
}

func (f *frame) env(contract crypto.Address) types.Env {
	return types.Env{Block: f.host.block, Contract: contract}
}

func (f *frame) code(contract crypto.Address) (*instanceRecord, Code, error) {
	rec, err := loadInstance(f.hostState(), contract)
	if err != nil {
		return nil, Code{}, err
	}
	code, ok := f.host.codes[rec.CodeID]
	if !ok {
		return nil, Code{}, fmt.Errorf("%w: %d", ErrUnknownCode, rec.CodeID)
	}
	return rec, code, nil
}

func (f *frame) context(contract, sender crypto.Address, funds types.Coins, code Code, recorder *events.Recorder) *Context {
	return &Context{
		Env:     f.env(contract),
		Info:    types.MessageInfo{Sender: sender, Funds: funds},
		Store:   f.contractState(contract),
		Querier: f,
		Emitter: recorder,
		Logger:  f.host.logger.With("contract", contract.String(), "code", code.Name),
	}
}

func (f *frame) nextSeq() (uint64, error) {
	st := f.hostState()
	var seq uint64
	if _, err := st.KVGet(seqKey, &seq); err != nil {
		return 0, err
	}
	seq++
	if err := st.KVPut(seqKey, seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func (f *frame) moveFunds(from, to crypto.Address, funds types.Coins) (types.Coins, error) {
	normalized, err := funds.Normalize()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if len(normalized) == 0 {
		return normalized, nil
	}
	if err := transfer(f.hostState(), from, to, normalized); err != nil {
		return nil, err
	}
	f.events = append(f.events, transferEvent(from, to, normalized))
	return normalized, nil
}

func (f *frame) instantiate(creator crypto.Address, codeID uint64, msg json.RawMessage, funds types.Coins, label string, admin *crypto.Address) (crypto.Address, error) {
	code, ok := f.host.codes[codeID]
	if !ok {
		return crypto.Address{}, fmt.Errorf("%w: %d", ErrUnknownCode, codeID)
	}
	if err := common.Guard(f.host.pauses, code.Name); err != nil {
		return crypto.Address{}, err
	}
	seq, err := f.nextSeq()
	if err != nil {
		return crypto.Address{}, err
	}
	addr := crypto.ContractAddress(codeID, seq)
	rec := &instanceRecord{CodeID: codeID, Label: label, Creator: creator}
	if admin != nil {
		rec.Admin = *admin
	}
	st := f.hostState()
	if err := st.KVPut(instanceKey(addr), rec); err != nil {
		return crypto.Address{}, err
	}
	raw := addr.Raw()
	if err := st.KVAppend(instanceIndex, raw[:]); err != nil {
		return crypto.Address{}, err
	}
	attached, err := f.moveFunds(creator, addr, funds)
	if err != nil {
		return crypto.Address{}, err
	}
	f.events = append(f.events, &types.Event{
		Type: "instantiate",
		Attributes: map[string]string{
			"_contract_address": addr.String(),
			"code_id":           strconv.FormatUint(codeID, 10),
			"label":             label,
		},
	})

	recorder := &events.Recorder{}
	resp, err := code.New().Instantiate(f.context(addr, creator, attached, code, recorder), msg)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%s instantiate: %w", code.Name, err)
	}
	if err := f.handleResponse(addr, code, resp, recorder); err != nil {
		return crypto.Address{}, err
	}
	return addr, nil
}

func (f *frame) execute(sender, contract crypto.Address, msg json.RawMessage, funds types.Coins) (*types.Response, error) {
	_, code, err := f.code(contract)
	if err != nil {
		return nil, err
	}
	if err := common.Guard(f.host.pauses, code.Name); err != nil {
		return nil, err
	}
	attached, err := f.moveFunds(sender, contract, funds)
	if err != nil {
		return nil, err
	}
	recorder := &events.Recorder{}
	resp, err := code.New().Execute(f.context(contract, sender, attached, code, recorder), msg)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", code.Name, actionOf(msg), err)
	}
	if err := f.handleResponse(contract, code, resp, recorder); err != nil {
		return nil, err
	}
	return resp, nil
}

func (f *frame) migrate(sender, contract crypto.Address, codeID uint64, msg json.RawMessage) ([]byte, error) {
	rec, _, err := f.code(contract)
	if err != nil {
		return nil, err
	}
	if rec.Admin.IsZero() || !rec.Admin.Equal(sender) {
		return nil, fmt.Errorf("%w: only the admin may migrate %s", ErrUnauthorized, contract)
	}
	code, ok := f.host.codes[codeID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCode, codeID)
	}
	rec.CodeID = codeID
	if err := f.hostState().KVPut(instanceKey(contract), rec); err != nil {
		return nil, err
	}
	recorder := &events.Recorder{}
	resp, err := code.New().Migrate(f.context(contract, sender, nil, code, recorder), msg)
	if err != nil {
		return nil, fmt.Errorf("%s migrate: %w", code.Name, err)
	}
	if err := f.handleResponse(contract, code, resp, recorder); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (f *frame) handleResponse(contract crypto.Address, code Code, resp *types.Response, recorder *events.Recorder) error {
	if resp == nil {
		resp = types.NewResponse()
	}
	f.events = append(f.events, recorder.Typed()...)
	f.events = append(f.events, resp.Events...)
	if len(resp.Attributes) > 0 {
		attrs := make(map[string]string, len(resp.Attributes)+1)
		attrs["_contract_address"] = contract.String()
		for _, attr := range resp.Attributes {
			attrs[attr.Key] = attr.Value
		}
		f.events = append(f.events, &types.Event{Type: "wasm", Attributes: attrs})
	}
	for _, sub := range resp.Messages {
		if err := f.dispatchSub(contract, code, sub); err != nil {
			return err
		}
	}
	return nil
}

func (f *frame) dispatchSub(contract crypto.Address, code Code, sub types.SubMsg) error {
	if err := sub.Msg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	metrics := observability.ContractMetrics()
	child, err := f.child()
	if err != nil {
		return err
	}
	data, err := child.dispatch(contract, sub.Msg)
	if err != nil {
		if !sub.ReplyOn.OnError() {
			metrics.RecordSubMessage(sub.Msg.Kind(), "error")
			return err
		}
		metrics.RecordSubMessage(sub.Msg.Kind(), "replied_error")
		child.cache.Discard()
		return f.reply(contract, code, types.Reply{ID: sub.ID, Result: types.SubMsgResult{Err: err.Error()}})
	}
	metrics.RecordSubMessage(sub.Msg.Kind(), "success")
	if err := child.cache.Write(); err != nil {
		return err
	}
	f.events = append(f.events, child.events...)
	if !sub.ReplyOn.OnSuccess() {
		return nil
	}
	return f.reply(contract, code, types.Reply{ID: sub.ID, Result: types.SubMsgResult{Events: child.events, Data: data}})
}

func (f *frame) reply(contract crypto.Address, code Code, reply types.Reply) error {
	if f.depth+1 > f.host.maxDepth {
		return fmt.Errorf("%w: %d", ErrCallDepth, f.host.maxDepth)
	}
	recorder := &events.Recorder{}
	resp, err := code.New().Reply(f.context(contract, contract, nil, code, recorder), reply)
	if err != nil {
		return fmt.Errorf("%s reply %d: %w", code.Name, reply.ID, err)
	}
	return f.handleResponse(contract, code, resp, recorder)
}

func (f *frame) dispatch(sender crypto.Address, msg types.Message) ([]byte, error) {
	switch {
	case msg.Bank != nil:
		if msg.Bank.ToAddress.IsZero() {
			return nil, fmt.Errorf("%w: bank send without recipient", ErrInvalidMessage)
		}
		_, err := f.moveFunds(sender, msg.Bank.ToAddress, msg.Bank.Amount)
		return nil, err
	case msg.Execute != nil:
		resp, err := f.execute(sender, msg.Execute.Contract, msg.Execute.Msg, msg.Execute.Funds)
		if err != nil {
			return nil, err
		}
		return resp.Data, nil
	case msg.Instantiate != nil:
		in := msg.Instantiate
		addr, err := f.instantiate(sender, in.CodeID, in.Msg, in.Funds, in.Label, in.Admin)
		if err != nil {
			return nil, err
		}
		return []byte(addr.String()), nil
	default:
		return nil, ErrInvalidMessage
	}
}

// QueryContract implements Querier.
func (f *frame) QueryContract(contract crypto.Address, msg json.RawMessage) (json.RawMessage, error) {
	_, code, err := f.code(contract)
	if err != nil {
		return nil, err
	}
	view := storage.NewCacheDB(f.cache)
	ctx := &QueryContext{
		Env:     f.env(contract),
		Store:   state.NewManager(view, contractNamespace(contract)),
		Querier: f,
	}
	out, err := code.New().Query(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("%s query %s: %w", code.Name, actionOf(msg), err)
	}
	return out, nil
}

// BankBalance implements Querier.
func (f *frame) BankBalance(addr crypto.Address, denom string) (types.Uint128, error) {
	return readBalance(f.hostState(), addr, denom)
}
