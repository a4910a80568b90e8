package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"bondswap/core/genesis"
	"bondswap/core/host"
	"bondswap/core/state"
	"bondswap/core/types"
	"bondswap/crypto"
	"bondswap/native/bonding"
	"bondswap/native/pool"
	"bondswap/native/token"
	"bondswap/observability/logging"
	"bondswap/storage"
)

// Labels given to the genesis instances.
const (
	PayoutTokenLabel  = "bondswap-payout-token"
	PoolLabel         = "bondswap-pool"
	NativeLedgerLabel = "bondswap-native-bonding"
)

var (
	nodeNamespace = []byte("n/")
	deploymentKey = []byte("deployment")
	blockKey      = []byte("block")
)

var (
	ErrAlreadyBootstrapped = errors.New("node: genesis already applied")
	ErrNotBootstrapped     = errors.New("node: genesis not applied")
)

// Codes are the code ids registered by NewNode. Registration order is fixed so
// ids are stable across restarts.
type Codes struct {
	Token   uint64
	Pool    uint64
	Bonding uint64
}

// Deployment records the addresses created at genesis.
type Deployment struct {
	PayoutToken  crypto.Address `json:"payout_token"`
	Pool         crypto.Address `json:"pool"`
	LPToken      crypto.Address `json:"lp_token"`
	PoolLedger   crypto.Address `json:"pool_ledger"`
	NativeLedger crypto.Address `json:"native_ledger,omitempty"`
}

type deploymentRecord struct {
	PayoutToken  crypto.Address
	Pool         crypto.Address
	LPToken      crypto.Address
	PoolLedger   crypto.Address
	NativeLedger crypto.Address
	HasNative    bool
}

type blockRecord struct {
	Height uint64
	Time   uint64
}

// Node wires the contract host to a database and the registered contract
// codes.
type Node struct {
	db     storage.Database
	host   *host.Host
	codes  Codes
	logger *slog.Logger
}

// NewNode registers the token, pool and vesting ledger codes on a host backed
// by db and restores the last block position.
func NewNode(db storage.Database, logger *slog.Logger) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database must not be nil")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	h := host.New(db)
	h.SetLogger(logger)
	n := &Node{
		db:     db,
		host:   h,
		logger: logger,
		codes: Codes{
			Token:   h.StoreCode(token.ContractName, token.New),
			Pool:    h.StoreCode(pool.ContractName, pool.New),
			Bonding: h.StoreCode(bonding.ContractName, bonding.New),
		},
	}
	var block blockRecord
	ok, err := n.state().KVGet(blockKey, &block)
	if err != nil {
		return nil, fmt.Errorf("node: load block: %w", err)
	}
	if ok {
		h.SetBlock(types.BlockInfo{Height: block.Height, Time: block.Time})
	}
	return n, nil
}

func (n *Node) state() *state.Manager { return state.NewManager(n.db, nodeNamespace) }

// Host exposes the underlying contract host.
func (n *Node) Host() *host.Host { return n.host }

// Codes returns the registered code ids.
func (n *Node) Codes() Codes { return n.codes }

// Deployment returns the genesis addresses or ErrNotBootstrapped.
func (n *Node) Deployment() (*Deployment, error) {
	var rec deploymentRecord
	ok, err := n.state().KVGet(deploymentKey, &rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotBootstrapped
	}
	out := &Deployment{
		PayoutToken: rec.PayoutToken,
		Pool:        rec.Pool,
		LPToken:     rec.LPToken,
		PoolLedger:  rec.PoolLedger,
	}
	if rec.HasNative {
		out.NativeLedger = rec.NativeLedger
	}
	return out, nil
}

// SetBlock moves the host to block and persists the position.
func (n *Node) SetBlock(block types.BlockInfo) error {
	n.host.SetBlock(block)
	return n.state().KVPut(blockKey, blockRecord{Height: block.Height, Time: block.Time})
}

// AdvanceBlock moves to the next height, seconds later.
func (n *Node) AdvanceBlock(seconds uint64) (types.BlockInfo, error) {
	block := n.host.Block()
	block.Height++
	block.Time += seconds
	return block, n.SetBlock(block)
}

// Bootstrap applies a validated genesis spec: native allocations, the payout
// token with its whole supply credited to the owner, the pool (which creates
// its LP token and vesting ledger through replies) and optionally a
// direct-deposit ledger funded from the owner's payout balance.
func (n *Node) Bootstrap(ctx context.Context, spec *genesis.GenesisSpec) (*Deployment, error) {
	if spec == nil {
		return nil, fmt.Errorf("node: genesis spec must not be nil")
	}
	if _, err := n.Deployment(); err == nil {
		return nil, ErrAlreadyBootstrapped
	} else if !errors.Is(err, ErrNotBootstrapped) {
		return nil, err
	}

	ts := spec.GenesisTimestamp()
	if err := n.SetBlock(types.BlockInfo{Height: 1, Time: uint64(ts.Unix())}); err != nil {
		return nil, err
	}
	for _, acct := range spec.Accounts() {
		if err := n.host.Fund(acct.Address, acct.Coins); err != nil {
			return nil, fmt.Errorf("genesis alloc %s: %w", acct.Address, err)
		}
	}

	owner := spec.OwnerAddress()
	treasury := spec.TreasuryAddress()
	dep := &Deployment{}

	payout, err := n.instantiate(ctx, owner, n.codes.Token, token.InstantiateMsg{
		Name:     spec.PayoutToken.Name,
		Symbol:   spec.PayoutToken.Symbol,
		Decimals: spec.PayoutToken.Decimals,
		InitialBalances: []token.InitialBalance{
			{Address: owner, Amount: spec.PayoutSupply()},
		},
	}, PayoutTokenLabel)
	if err != nil {
		return nil, fmt.Errorf("genesis payout token: %w", err)
	}
	dep.PayoutToken = payout

	poolAddr, err := n.instantiate(ctx, owner, n.codes.Pool, pool.InstantiateMsg{
		LPTokenCodeID:      n.codes.Token,
		BondingCodeID:      n.codes.Bonding,
		Owner:              owner,
		Treasury:           treasury,
		PayoutToken:        payout,
		SettlementDenom:    spec.SettlementDenom,
		LockSeconds:        spec.Pool.LockSeconds,
		Discount:           spec.Pool.Discount,
		TxFee:              spec.Pool.TxFee,
		PlatformFee:        spec.Pool.PlatformFee,
		DailyVestingAmount: spec.Pool.Daily(),
	}, PoolLabel)
	if err != nil {
		return nil, fmt.Errorf("genesis pool: %w", err)
	}
	dep.Pool = poolAddr

	var cfg pool.Config
	if err := n.host.QuerySmart(poolAddr, map[string]struct{}{pool.QueryConfig: {}}, &cfg); err != nil {
		return nil, fmt.Errorf("genesis pool config: %w", err)
	}
	var info pool.InfoResponse
	if err := n.host.QuerySmart(poolAddr, map[string]struct{}{pool.QueryInfo: {}}, &info); err != nil {
		return nil, fmt.Errorf("genesis pool info: %w", err)
	}
	lp, err := crypto.DecodeAddress(info.LPTokenAddress)
	if err != nil {
		return nil, fmt.Errorf("genesis lp token: %w", err)
	}
	dep.LPToken = lp
	dep.PoolLedger = cfg.BondingContract

	rec := deploymentRecord{
		PayoutToken: dep.PayoutToken,
		Pool:        dep.Pool,
		LPToken:     dep.LPToken,
		PoolLedger:  dep.PoolLedger,
	}
	if native := spec.NativeLedger; native != nil {
		ledger, err := n.instantiate(ctx, owner, n.codes.Bonding, bonding.InstantiateMsg{
			Owner:              owner,
			Pool:               poolAddr,
			Treasury:           treasury,
			PayoutToken:        payout,
			SettlementDenom:    spec.SettlementDenom,
			LockSeconds:        native.LockSeconds,
			Discount:           native.Discount,
			TxFee:              native.TxFee,
			PlatformFee:        native.PlatformFee,
			DailyVestingAmount: native.Daily(),
			NativeBonding:      true,
		}, NativeLedgerLabel)
		if err != nil {
			return nil, fmt.Errorf("genesis native ledger: %w", err)
		}
		if funding := native.FundingAmount(); !funding.IsZero() {
			msg := host.MustEncodeVariant(token.ActionTransfer, token.TransferMsg{Recipient: ledger, Amount: funding})
			if _, err := n.host.Execute(ctx, owner, payout, msg, nil); err != nil {
				return nil, fmt.Errorf("genesis native ledger funding: %w", err)
			}
		}
		dep.NativeLedger = ledger
		rec.NativeLedger = ledger
		rec.HasNative = true
	}

	if err := n.state().KVPut(deploymentKey, rec); err != nil {
		return nil, err
	}
	n.logger.Info("genesis applied",
		"payout_token", dep.PayoutToken.String(),
		"pool", dep.Pool.String(),
		"lp_token", dep.LPToken.String(),
		"pool_ledger", dep.PoolLedger.String(),
		"native_ledger", dep.NativeLedger.String())
	return dep, nil
}

func (n *Node) instantiate(ctx context.Context, sender crypto.Address, codeID uint64, msg any, label string) (crypto.Address, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return crypto.Address{}, err
	}
	admin := sender
	res, err := n.host.Instantiate(ctx, sender, codeID, raw, nil, label, &admin)
	if err != nil {
		return crypto.Address{}, err
	}
	return res.Contract, nil
}
