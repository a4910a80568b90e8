package token

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"bondswap/core/host"
	"bondswap/core/types"
	"bondswap/crypto"
	"bondswap/storage"
)

var (
	owner   = crypto.AddressFromLabel("owner")
	bob     = crypto.AddressFromLabel("bob")
	spender = crypto.AddressFromLabel("spender")
)

type tokenEnv struct {
	t     *testing.T
	h     *host.Host
	token crypto.Address
}

func newTokenEnv(t *testing.T, msg InstantiateMsg) *tokenEnv {
	t.Helper()
	h := host.New(storage.NewMemDB())
	code := h.StoreCode(ContractName, New)
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	res, err := h.Instantiate(context.Background(), owner, code, raw, nil, "token", nil)
	require.NoError(t, err)
	return &tokenEnv{t: t, h: h, token: res.Contract}
}

func defaultToken(t *testing.T) *tokenEnv {
	return newTokenEnv(t, InstantiateMsg{
		Name:            "Bond Payout",
		Symbol:          "BPT",
		Decimals:        6,
		InitialBalances: []InitialBalance{{Address: owner, Amount: types.NewUint128(1000)}},
		Mint:            &MinterConfig{Minter: owner, Cap: uint128Ptr(1500)},
	})
}

func uint128Ptr(v uint64) *types.Uint128 {
	u := types.NewUint128(v)
	return &u
}

func (e *tokenEnv) exec(sender crypto.Address, action string, body any) error {
	e.t.Helper()
	_, err := e.h.Execute(context.Background(), sender, e.token, host.MustEncodeVariant(action, body), nil)
	return err
}

func (e *tokenEnv) balance(addr crypto.Address) string {
	e.t.Helper()
	var resp BalanceResponse
	require.NoError(e.t, e.h.QuerySmart(e.token, map[string]BalanceQuery{QueryBalance: {Address: addr}}, &resp))
	return resp.Balance.String()
}

func (e *tokenEnv) supply() string {
	e.t.Helper()
	var info TokenInfoResponse
	require.NoError(e.t, e.h.QuerySmart(e.token, map[string]struct{}{QueryTokenInfo: {}}, &info))
	return info.TotalSupply.String()
}

func TestInstantiateValidation(t *testing.T) {
	h := host.New(storage.NewMemDB())
	code := h.StoreCode(ContractName, New)
	cases := []InstantiateMsg{
		{Name: "", Symbol: "BPT"},
		{Name: "Bond", Symbol: "BPT", Decimals: 19},
		{Name: "Bond", Symbol: "BPT", InitialBalances: []InitialBalance{{Amount: types.NewUint128(1)}}},
		{Name: "Bond", Symbol: "BPT", InitialBalances: []InitialBalance{{Address: owner, Amount: types.NewUint128(10)}},
			Mint: &MinterConfig{Minter: owner, Cap: uint128Ptr(5)}},
	}
	for i, msg := range cases {
		raw, err := json.Marshal(msg)
		require.NoError(t, err)
		_, err = h.Instantiate(context.Background(), owner, code, raw, nil, "token", nil)
		require.Error(t, err, "case %d", i)
	}
}

func TestTransfer(t *testing.T) {
	env := defaultToken(t)
	require.NoError(t, env.exec(owner, ActionTransfer, TransferMsg{Recipient: bob, Amount: types.NewUint128(300)}))
	require.Equal(t, "700", env.balance(owner))
	require.Equal(t, "300", env.balance(bob))

	err := env.exec(bob, ActionTransfer, TransferMsg{Recipient: owner, Amount: types.NewUint128(301)})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	err = env.exec(bob, ActionTransfer, TransferMsg{Recipient: owner, Amount: types.ZeroUint128()})
	require.ErrorIs(t, err, ErrInvalidZeroAmount)
	require.Equal(t, "300", env.balance(bob))
}

func TestAllowanceFlow(t *testing.T) {
	env := defaultToken(t)
	require.NoError(t, env.exec(owner, ActionIncreaseAllowance, AllowanceMsg{Spender: spender, Amount: types.NewUint128(100)}))

	err := env.exec(spender, ActionTransferFrom, TransferFromMsg{Owner: owner, Recipient: bob, Amount: types.NewUint128(101)})
	require.ErrorIs(t, err, ErrNoAllowance)

	require.NoError(t, env.exec(spender, ActionTransferFrom, TransferFromMsg{Owner: owner, Recipient: bob, Amount: types.NewUint128(60)}))
	require.Equal(t, "60", env.balance(bob))

	var allowance AllowanceResponse
	req := map[string]AllowanceQuery{QueryAllowance: {Owner: owner, Spender: spender}}
	require.NoError(t, env.h.QuerySmart(env.token, req, &allowance))
	require.Equal(t, "40", allowance.Allowance.String())

	require.NoError(t, env.exec(owner, ActionDecreaseAllowance, AllowanceMsg{Spender: spender, Amount: types.NewUint128(100)}))
	require.NoError(t, env.h.QuerySmart(env.token, req, &allowance))
	require.True(t, allowance.Allowance.IsZero())

	err = env.exec(owner, ActionIncreaseAllowance, AllowanceMsg{Spender: owner, Amount: types.NewUint128(1)})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestBurnAndBurnFrom(t *testing.T) {
	env := defaultToken(t)
	require.NoError(t, env.exec(owner, ActionBurn, BurnMsg{Amount: types.NewUint128(100)}))
	require.Equal(t, "900", env.supply())

	require.NoError(t, env.exec(owner, ActionIncreaseAllowance, AllowanceMsg{Spender: spender, Amount: types.NewUint128(50)}))
	require.NoError(t, env.exec(spender, ActionBurnFrom, BurnFromMsg{Owner: owner, Amount: types.NewUint128(50)}))
	require.Equal(t, "850", env.supply())
	require.Equal(t, "850", env.balance(owner))
}

func TestMintRespectsMinterAndCap(t *testing.T) {
	env := defaultToken(t)
	err := env.exec(bob, ActionMint, MintMsg{Recipient: bob, Amount: types.NewUint128(1)})
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, env.exec(owner, ActionMint, MintMsg{Recipient: bob, Amount: types.NewUint128(500)}))
	require.Equal(t, "1500", env.supply())

	err = env.exec(owner, ActionMint, MintMsg{Recipient: bob, Amount: types.NewUint128(1)})
	require.ErrorIs(t, err, ErrCapExceeded)

	var minter MinterResponse
	require.NoError(t, env.h.QuerySmart(env.token, map[string]struct{}{QueryMinter: {}}, &minter))
	require.True(t, minter.Minter.Equal(owner))
	require.Equal(t, "1500", minter.Cap.String())
}
