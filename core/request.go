package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"bondswap/core/host"
	"bondswap/core/types"
	"bondswap/crypto"
)

// Request kinds accepted by Apply.
const (
	RequestExecute = "execute"
	RequestMigrate = "migrate"
	RequestFund    = "fund"
	RequestAdvance = "advance"
)

// Request is one line of a replay stream. Contract may name a genesis
// contract ("pool", "pool_ledger", "native_ledger", "payout_token",
// "lp_token") instead of an address.
type Request struct {
	Kind     string          `json:"kind"`
	Sender   crypto.Address  `json:"sender,omitempty"`
	Contract string          `json:"contract,omitempty"`
	Msg      json.RawMessage `json:"msg,omitempty"`
	Funds    types.Coins     `json:"funds,omitempty"`
	CodeID   uint64          `json:"code_id,omitempty"`
	Seconds  uint64          `json:"seconds,omitempty"`
}

// Apply runs a single request. Execute and migrate requests are preceded by
// a block advance when Seconds is set.
func (n *Node) Apply(ctx context.Context, req Request) (*host.Result, error) {
	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if kind == "" {
		kind = RequestExecute
	}
	switch kind {
	case RequestAdvance:
		_, err := n.AdvanceBlock(req.Seconds)
		return &host.Result{}, err
	case RequestFund:
		if req.Sender.IsZero() {
			return nil, fmt.Errorf("%w: fund requires sender", host.ErrInvalidMessage)
		}
		return &host.Result{}, n.host.Fund(req.Sender, req.Funds)
	}

	if req.Seconds > 0 {
		if _, err := n.AdvanceBlock(req.Seconds); err != nil {
			return nil, err
		}
	}
	contract, err := n.resolve(req.Contract)
	if err != nil {
		return nil, err
	}
	switch kind {
	case RequestExecute:
		return n.host.Execute(ctx, req.Sender, contract, req.Msg, req.Funds)
	case RequestMigrate:
		return n.host.Migrate(ctx, req.Sender, contract, req.CodeID, req.Msg)
	}
	return nil, fmt.Errorf("%w: unknown request kind %q", host.ErrInvalidMessage, req.Kind)
}

// Resolve maps a genesis contract name or a bech32 address to an address.
func (n *Node) Resolve(name string) (crypto.Address, error) { return n.resolve(name) }

func (n *Node) resolve(name string) (crypto.Address, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return crypto.Address{}, fmt.Errorf("%w: contract required", host.ErrInvalidMessage)
	}
	if addr, err := crypto.DecodeAddress(name); err == nil {
		return addr, nil
	}
	dep, err := n.Deployment()
	if err != nil {
		return crypto.Address{}, err
	}
	var addr crypto.Address
	switch name {
	case "pool":
		addr = dep.Pool
	case "pool_ledger":
		addr = dep.PoolLedger
	case "native_ledger":
		addr = dep.NativeLedger
	case "payout_token":
		addr = dep.PayoutToken
	case "lp_token":
		addr = dep.LPToken
	}
	if addr.IsZero() {
		return crypto.Address{}, fmt.Errorf("%w: unknown contract %q", host.ErrUnknownContract, name)
	}
	return addr, nil
}
