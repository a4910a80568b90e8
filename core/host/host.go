package host

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bondswap/core/events"
	"bondswap/core/state"
	"bondswap/core/types"
	"bondswap/crypto"
	"bondswap/native/common"
	"bondswap/observability"
	"bondswap/observability/logging"
	"bondswap/storage"
)

const defaultMaxDepth = 16

var (
	hostNamespace = []byte("h/")
	seqKey        = []byte("seq")
	instanceIndex = []byte("instances")
)

// Journal receives one entry per top-level request after it has been
// committed or rolled back.
type Journal interface {
	Record(ctx context.Context, entry JournalEntry) error
}

// JournalEntry summarises a top-level request.
type JournalEntry struct {
	ID       uuid.UUID
	Kind     string
	Contract crypto.Address
	Code     string
	Action   string
	Sender   crypto.Address
	Height   uint64
	Time     uint64
	Err      error
	Events   []*types.Event
}

type instanceRecord struct {
	CodeID  uint64
	Label   string
	Admin   crypto.Address
	Creator crypto.Address
}

// Result is returned for a committed request.
type Result struct {
	RequestID uuid.UUID
	Contract  crypto.Address
	Events    []*types.Event
	Data      []byte
}

// Host executes contract requests against a key-value store. Each top-level
// request runs inside a write cache that is flushed only when the handler and
// every sub-message it emitted succeed. The host is not safe for concurrent
// use.
type Host struct {
	mu       sync.Mutex
	db       storage.Database
	codes    map[uint64]Code
	nextCode uint64
	block    types.BlockInfo
	maxDepth int
	pauses   common.PauseView
	emitter  events.Emitter
	journal  Journal
	logger   *slog.Logger
}

// New constructs a host over db with default dependencies.
func New(db storage.Database) *Host {
	return &Host{
		db:       db,
		codes:    make(map[uint64]Code),
		nextCode: 1,
		maxDepth: defaultMaxDepth,
		emitter:  events.NoopEmitter{},
		logger:   logging.Discard(),
	}
}

// SetLogger configures the logger.
func (h *Host) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.Discard()
	}
	h.logger = logger
}

// SetEmitter configures where committed events are published.
func (h *Host) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		h.emitter = events.NoopEmitter{}
		return
	}
	h.emitter = emitter
}

// SetJournal configures the request journal.
func (h *Host) SetJournal(j Journal) { h.journal = j }

// SetPauses configures the pause switchboard consulted before execution.
func (h *Host) SetPauses(p common.PauseView) { h.pauses = p }

// SetMaxDepth bounds nested message dispatch.
func (h *Host) SetMaxDepth(depth int) {
	if depth <= 0 {
		depth = defaultMaxDepth
	}
	h.maxDepth = depth
}

// StoreCode registers a contract implementation and returns its code id.
func (h *Host) StoreCode(name string, factory Factory) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextCode
	h.nextCode++
	h.codes[id] = Code{ID: id, Name: strings.TrimSpace(name), New: factory}
	return id
}

// CodeByName returns the registered code with the name.
func (h *Host) CodeByName(name string) (Code, bool) {
	for _, code := range h.codes {
		if code.Name == name {
			return code, true
		}
	}
	return Code{}, false
}

// Block returns the current block.
func (h *Host) Block() types.BlockInfo { return h.block }

// SetBlock positions the host at a block.
func (h *Host) SetBlock(block types.BlockInfo) { h.block = block }

// AdvanceBlock moves to the next height, seconds later.
func (h *Host) AdvanceBlock(seconds uint64) types.BlockInfo {
	h.block.Height++
	h.block.Time += seconds
	return h.block
}

// Instantiate creates a contract instance from a code id.
func (h *Host) Instantiate(ctx context.Context, sender crypto.Address, codeID uint64, msg json.RawMessage, funds types.Coins, label string, admin *crypto.Address) (*Result, error) {
	code, ok := h.codes[codeID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCode, codeID)
	}
	var addr crypto.Address
	return h.run(ctx, "instantiate", code.Name, "instantiate", sender, func(f *frame) ([]byte, error) {
		var err error
		addr, err = f.instantiate(sender, codeID, msg, funds, label, admin)
		if err != nil {
			return nil, err
		}
		return []byte(addr.String()), nil
	}, &addr)
}

// Execute calls a contract's Execute entry point.
func (h *Host) Execute(ctx context.Context, sender, contract crypto.Address, msg json.RawMessage, funds types.Coins) (*Result, error) {
	name := h.codeName(contract)
	return h.run(ctx, "execute", name, actionOf(msg), sender, func(f *frame) ([]byte, error) {
		resp, err := f.execute(sender, contract, msg, funds)
		if err != nil {
			return nil, err
		}
		return resp.Data, nil
	}, &contract)
}

// Migrate switches a contract to a new code id and runs its Migrate entry
// point. Only the instance admin may migrate.
func (h *Host) Migrate(ctx context.Context, sender, contract crypto.Address, codeID uint64, msg json.RawMessage) (*Result, error) {
	name := h.codeName(contract)
	return h.run(ctx, "migrate", name, "migrate", sender, func(f *frame) ([]byte, error) {
		return f.migrate(sender, contract, codeID, msg)
	}, &contract)
}

// Query runs a read-only query. Writes made by the contract are discarded.
func (h *Host) Query(contract crypto.Address, msg json.RawMessage) (json.RawMessage, error) {
	f := h.newFrame(storage.NewCacheDB(h.db), 0)
	return f.QueryContract(contract, msg)
}

// QuerySmart is the JSON convenience form of Query.
func (h *Host) QuerySmart(contract crypto.Address, req any, out any) error {
	f := h.newFrame(storage.NewCacheDB(h.db), 0)
	return QuerySmart(f, contract, req, out)
}

// Balance returns the bank balance of addr.
func (h *Host) Balance(addr crypto.Address, denom string) (types.Uint128, error) {
	return readBalance(h.hostState(h.db), addr, denom)
}

// Fund credits native funds to an account outside of any request. It is used
// by genesis and tests.
func (h *Host) Fund(addr crypto.Address, coins types.Coins) error {
	cache := storage.NewCacheDB(h.db)
	st := h.hostState(cache)
	for _, coin := range coins {
		if err := credit(st, addr, coin.Denom, coin.Amount); err != nil {
			return err
		}
	}
	return cache.Write()
}

// Instances lists every contract address in creation order.
func (h *Host) Instances() ([]crypto.Address, error) {
	var raw [][]byte
	if err := h.hostState(h.db).KVGetList(instanceIndex, &raw); err != nil {
		return nil, err
	}
	out := make([]crypto.Address, 0, len(raw))
	for _, b := range raw {
		out = append(out, crypto.NewAddress(crypto.AccountPrefix, b))
	}
	return out, nil
}

// ContractCode returns the code registered for a contract instance.
func (h *Host) ContractCode(contract crypto.Address) (Code, error) {
	rec, err := loadInstance(h.hostState(h.db), contract)
	if err != nil {
		return Code{}, err
	}
	code, ok := h.codes[rec.CodeID]
	if !ok {
		return Code{}, fmt.Errorf("%w: %d", ErrUnknownCode, rec.CodeID)
	}
	return code, nil
}

func (h *Host) codeName(contract crypto.Address) string {
	code, err := h.ContractCode(contract)
	if err != nil {
		return "unknown"
	}
	return code.Name
}

func (h *Host) hostState(db storage.Database) *state.Manager {
	return state.NewManager(db, hostNamespace)
}

func (h *Host) run(ctx context.Context, kind, codeName, action string, sender crypto.Address, body func(*frame) ([]byte, error), contract *crypto.Address) (*Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	id := uuid.New()
	cache := storage.NewCacheDB(h.db)
	f := h.newFrame(cache, 0)

	data, err := body(f)
	if err == nil {
		err = cache.Write()
	}
	elapsed := time.Since(start)
	observability.ContractMetrics().Observe(codeName, action, err, elapsed)

	entry := JournalEntry{
		ID:       id,
		Kind:     kind,
		Contract: *contract,
		Code:     codeName,
		Action:   action,
		Sender:   sender,
		Height:   h.block.Height,
		Time:     h.block.Time,
		Err:      err,
	}
	if err != nil {
		h.logger.Warn("request aborted",
			"request_id", id.String(),
			"kind", kind,
			"contract", contract.String(),
			"code", codeName,
			"action", action,
			"sender", sender.String(),
			"error", err.Error())
		h.record(ctx, entry)
		return nil, err
	}

	entry.Events = f.events
	for _, evt := range f.events {
		observability.ContractMetrics().RecordEvent(evt.Type)
		recordIssuance(evt)
		h.emitter.Emit(events.Raw{Evt: evt})
	}
	h.logger.Info("request executed",
		"request_id", id.String(),
		"kind", kind,
		"contract", contract.String(),
		"code", codeName,
		"action", action,
		"sender", sender.String(),
		"events", len(f.events),
		"duration", elapsed)
	h.record(ctx, entry)
	return &Result{RequestID: id, Contract: *contract, Events: f.events, Data: data}, nil
}

func (h *Host) record(ctx context.Context, entry JournalEntry) {
	if h.journal == nil {
		return
	}
	if err := h.journal.Record(ctx, entry); err != nil {
		h.logger.Error("journal write failed", "request_id", entry.ID.String(), "error", err.Error())
	}
}

func contractNamespace(addr crypto.Address) []byte {
	raw := addr.Raw()
	ns := make([]byte, 0, 2+len(raw)+1)
	ns = append(ns, 'c', '/')
	ns = append(ns, raw[:]...)
	return append(ns, '/')
}

func instanceKey(addr crypto.Address) []byte {
	raw := addr.Raw()
	return append([]byte("instance/"), raw[:]...)
}

func loadInstance(st *state.Manager, addr crypto.Address) (*instanceRecord, error) {
	rec := new(instanceRecord)
	ok, err := st.KVGet(instanceKey(addr), rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, addr)
	}
	return rec, nil
}

// EventsOfType filters events by type.
func EventsOfType(evts []*types.Event, eventType string) []*types.Event {
	out := make([]*types.Event, 0)
	for _, evt := range evts {
		if evt != nil && evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

func recordIssuance(evt *types.Event) {
	var kind string
	switch evt.Type {
	case events.TypeBondingBonded:
		kind = "bond"
	case events.TypeBondingLPBonded:
		kind = "lp_bond"
	default:
		return
	}
	amount, err := types.ParseUint128(evt.Attributes["receiving_amount"])
	if err != nil {
		return
	}
	f, _ := new(big.Float).SetInt(amount.Big()).Float64()
	observability.ContractMetrics().RecordIssuance(kind, f)
}
