package host

import (
	"encoding/json"
	"log/slog"

	"bondswap/core/events"
	"bondswap/core/state"
	"bondswap/core/types"
	"bondswap/crypto"
)

// Contract is the entry-point surface implemented by every contract. A fresh
// value is constructed for each call; contracts keep nothing in memory between
// requests.
type Contract interface {
	Instantiate(ctx *Context, msg json.RawMessage) (*types.Response, error)
	Execute(ctx *Context, msg json.RawMessage) (*types.Response, error)
	Query(ctx *QueryContext, msg json.RawMessage) (json.RawMessage, error)
	Reply(ctx *Context, reply types.Reply) (*types.Response, error)
	Migrate(ctx *Context, msg json.RawMessage) (*types.Response, error)
}

// Factory builds a contract value.
type Factory func() Contract

// Code is a registered contract implementation.
type Code struct {
	ID   uint64
	Name string
	New  Factory
}

// Querier is the read-only view a contract has of other contracts and of the
// bank. Queries observe every write made earlier in the same request.
type Querier interface {
	QueryContract(contract crypto.Address, msg json.RawMessage) (json.RawMessage, error)
	BankBalance(addr crypto.Address, denom string) (types.Uint128, error)
}

// Context is handed to state-changing entry points.
type Context struct {
	Env     types.Env
	Info    types.MessageInfo
	Store   *state.Manager
	Querier Querier
	Emitter events.Emitter
	Logger  *slog.Logger
}

// QueryContext is handed to Query. Writes made through Store are discarded.
type QueryContext struct {
	Env     types.Env
	Store   *state.Manager
	Querier Querier
}

// QuerySmart marshals req, queries contract and decodes the answer into out.
func QuerySmart(q Querier, contract crypto.Address, req any, out any) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return err
	}
	res, err := q.QueryContract(contract, raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(res, out)
}
