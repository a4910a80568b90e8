package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"bondswap/core/events"
	"bondswap/core/genesis"
	"bondswap/core/host"
	"bondswap/core/types"
	"bondswap/crypto"
	"bondswap/native/bonding"
	"bondswap/native/pool"
	"bondswap/native/token"
	"bondswap/storage"
)

const usdc = "uusdc"

var (
	ownerAddr    = crypto.AddressFromLabel("owner")
	treasuryAddr = crypto.AddressFromLabel("treasury")
	aliceAddr    = crypto.AddressFromLabel("alice")
)

type testNet struct {
	t    *testing.T
	node *Node
	dep  *Deployment
}

func testSpec() *genesis.GenesisSpec {
	return &genesis.GenesisSpec{
		GenesisTime:     "2025-01-01T00:00:00Z",
		Owner:           ownerAddr.String(),
		Treasury:        treasuryAddr.String(),
		SettlementDenom: usdc,
		PayoutToken: genesis.PayoutTokenSpec{
			Name:     "Bond Payout",
			Symbol:   "BPT",
			Decimals: 6,
			Supply:   "10000000",
		},
		Alloc: map[string]map[string]string{
			ownerAddr.String(): {usdc: "1000000"},
			aliceAddr.String(): {usdc: "1000000"},
		},
		Pool: genesis.LedgerSpec{
			LockSeconds:        86400,
			Discount:           5,
			TxFee:              3,
			PlatformFee:        10,
			DailyVestingAmount: "1000000",
		},
		NativeLedger: &genesis.NativeLedgerSpec{
			LedgerSpec: genesis.LedgerSpec{
				LockSeconds:        3600,
				Discount:           7,
				TxFee:              3,
				PlatformFee:        10,
				DailyVestingAmount: "10000",
			},
			Funding: "500000",
		},
	}
}

func newTestNet(t *testing.T, mutate func(*genesis.GenesisSpec)) *testNet {
	t.Helper()
	spec := testSpec()
	if mutate != nil {
		mutate(spec)
	}
	require.NoError(t, spec.Validate())
	node, err := NewNode(storage.NewMemDB(), nil)
	require.NoError(t, err)
	dep, err := node.Bootstrap(context.Background(), spec)
	require.NoError(t, err)
	return &testNet{t: t, node: node, dep: dep}
}

func (n *testNet) exec(sender, contract crypto.Address, action string, body any, funds ...types.Coin) (*host.Result, error) {
	n.t.Helper()
	msg, err := host.EncodeVariant(action, body)
	require.NoError(n.t, err)
	return n.node.Host().Execute(context.Background(), sender, contract, msg, types.Coins(funds))
}

func (n *testNet) mustExec(sender, contract crypto.Address, action string, body any, funds ...types.Coin) *host.Result {
	n.t.Helper()
	res, err := n.exec(sender, contract, action, body, funds...)
	require.NoError(n.t, err)
	return res
}

func (n *testNet) query(contract crypto.Address, tag string, body any, out any) {
	n.t.Helper()
	require.NoError(n.t, n.node.Host().QuerySmart(contract, map[string]any{tag: body}, out))
}

func (n *testNet) tokenBalance(tokenAddr, holder crypto.Address) types.Uint128 {
	n.t.Helper()
	var resp token.BalanceResponse
	n.query(tokenAddr, token.QueryBalance, token.BalanceQuery{Address: holder}, &resp)
	return resp.Balance
}

func (n *testNet) bankBalance(addr crypto.Address) types.Uint128 {
	n.t.Helper()
	bal, err := n.node.Host().Balance(addr, usdc)
	require.NoError(n.t, err)
	return bal
}

func (n *testNet) poolInfo() pool.InfoResponse {
	n.t.Helper()
	var info pool.InfoResponse
	n.query(n.dep.Pool, pool.QueryInfo, struct{}{}, &info)
	return info
}

func (n *testNet) bondState(ledger, addr crypto.Address) bonding.BondState {
	n.t.Helper()
	var st bonding.BondState
	n.query(ledger, bonding.QueryBondState, bonding.BondStateQuery{Address: addr}, &st)
	return st
}

// addLiquidity approves the pool for token2 and deposits equal amounts.
func (n *testNet) addLiquidity(sender crypto.Address, amount, fee uint64) *host.Result {
	n.t.Helper()
	n.mustExec(sender, n.dep.PayoutToken, token.ActionIncreaseAllowance, token.AllowanceMsg{Spender: n.dep.Pool, Amount: types.NewUint128(amount)})
	return n.mustExec(sender, n.dep.Pool, pool.ActionAddLiquidity, pool.AddLiquidityMsg{
		Token1Amount: types.NewUint128(amount),
		MaxToken2:    types.NewUint128(amount),
		FeeAmount:    types.NewUint128(fee),
	}, types.NewCoin(usdc, amount+fee))
}

func u(v uint64) types.Uint128 { return types.NewUint128(v) }

func TestBootstrapLinksContracts(t *testing.T) {
	net := newTestNet(t, nil)

	var poolCfg pool.Config
	net.query(net.dep.Pool, pool.QueryConfig, struct{}{}, &poolCfg)
	require.Equal(t, net.dep.PoolLedger, poolCfg.BondingContract)
	require.False(t, net.dep.LPToken.IsZero())

	var ledgerCfg bonding.Config
	net.query(net.dep.PoolLedger, bonding.QueryConfig, struct{}{}, &ledgerCfg)
	require.Equal(t, net.dep.Pool, ledgerCfg.Pool)
	require.False(t, ledgerCfg.NativeBonding)
	require.True(t, ledgerCfg.Enabled)

	var nativeCfg bonding.Config
	net.query(net.dep.NativeLedger, bonding.QueryConfig, struct{}{}, &nativeCfg)
	require.True(t, nativeCfg.NativeBonding)
	require.Equal(t, u(500000), net.tokenBalance(net.dep.PayoutToken, net.dep.NativeLedger))

	stored, err := net.node.Deployment()
	require.NoError(t, err)
	require.Equal(t, *net.dep, *stored)

	_, err = net.node.Bootstrap(context.Background(), testSpec())
	require.ErrorIs(t, err, ErrAlreadyBootstrapped)
}

func TestOutsiderLiquidityEarnsGrant(t *testing.T) {
	net := newTestNet(t, nil)
	net.mustExec(ownerAddr, net.dep.PayoutToken, token.ActionTransfer, token.TransferMsg{Recipient: aliceAddr, Amount: u(100000)})

	res := net.addLiquidity(aliceAddr, 100000, 2600)

	info := net.poolInfo()
	require.Equal(t, u(100000), info.Token1Reserve)
	require.Equal(t, u(100000), info.Token2Reserve)
	require.Equal(t, u(100000), info.LPTokenSupply)
	require.Equal(t, u(100000), net.tokenBalance(net.dep.LPToken, ownerAddr))
	require.Equal(t, u(2600), net.bankBalance(treasuryAddr))
	require.Equal(t, u(1000000-102600), net.bankBalance(aliceAddr))

	st := net.bondState(net.dep.PoolLedger, aliceAddr)
	require.Len(t, st.List, 1)
	require.Equal(t, u(201005), st.List[0].Amount)
	require.Equal(t, net.node.Host().Block().Time+86400, st.List[0].UnlockTimestamp)
	require.Len(t, host.EventsOfType(res.Events, events.TypeBondingLPBonded), 1)
}

func TestOperatorLiquidityEarnsNothing(t *testing.T) {
	net := newTestNet(t, nil)
	net.addLiquidity(ownerAddr, 20000, 520)

	var all bonding.AllBondStateResponse
	net.query(net.dep.PoolLedger, bonding.QueryAllBondState, bonding.AllBondStateQuery{}, &all)
	require.Empty(t, all.List)
}

func TestLPBondFailureKeepsDeposit(t *testing.T) {
	net := newTestNet(t, func(s *genesis.GenesisSpec) { s.Pool.DailyVestingAmount = "1" })
	net.mustExec(ownerAddr, net.dep.PayoutToken, token.ActionTransfer, token.TransferMsg{Recipient: aliceAddr, Amount: u(100000)})

	res := net.addLiquidity(aliceAddr, 100000, 2600)

	require.Equal(t, u(100000), net.poolInfo().Token1Reserve)
	require.Empty(t, net.bondState(net.dep.PoolLedger, aliceAddr).List)
	require.Len(t, host.EventsOfType(res.Events, events.TypePoolLPBondFailed), 1)
	var found bool
	for _, evt := range host.EventsOfType(res.Events, "wasm") {
		if _, ok := evt.Attributes["lp_bond_error"]; ok {
			found = true
		}
	}
	require.True(t, found, "lp_bond_error attribute missing")
}

func TestDirectBondAndUnbond(t *testing.T) {
	net := newTestNet(t, nil)
	net.addLiquidity(ownerAddr, 100000, 2600)
	treasuryBefore := net.bankBalance(treasuryAddr)

	net.mustExec(aliceAddr, net.dep.NativeLedger, bonding.ActionBond, bonding.BondMsg{Amount: u(10000)}, types.NewCoin(usdc, 10130))
	require.Equal(t, u(10130), sub(t, net.bankBalance(treasuryAddr), treasuryBefore))

	st := net.bondState(net.dep.NativeLedger, aliceAddr)
	require.Len(t, st.List, 1)
	require.Equal(t, u(9129), st.List[0].Amount)
	require.True(t, st.UnbondAmount.IsZero())

	_, err := net.exec(aliceAddr, net.dep.NativeLedger, bonding.ActionUnbond, bonding.UnbondMsg{})
	require.ErrorIs(t, err, bonding.ErrNothingToUnbond)

	_, err = net.node.AdvanceBlock(3600)
	require.NoError(t, err)
	st = net.bondState(net.dep.NativeLedger, aliceAddr)
	require.Equal(t, u(9129), st.UnbondAmount)
	require.Equal(t, u(10), st.FeeAmount)

	_, err = net.exec(aliceAddr, net.dep.NativeLedger, bonding.ActionUnbond, bonding.UnbondMsg{}, types.NewCoin(usdc, 9))
	require.ErrorIs(t, err, bonding.ErrInsufficientFee)

	net.mustExec(aliceAddr, net.dep.NativeLedger, bonding.ActionUnbond, bonding.UnbondMsg{}, types.NewCoin(usdc, 10))
	require.Equal(t, u(9129), net.tokenBalance(net.dep.PayoutToken, aliceAddr))
	require.Equal(t, u(500000-9129), net.tokenBalance(net.dep.PayoutToken, net.dep.NativeLedger))
	require.Empty(t, net.bondState(net.dep.NativeLedger, aliceAddr).List)
}

func TestDailyCapRejectionRollsBack(t *testing.T) {
	net := newTestNet(t, nil)
	net.addLiquidity(ownerAddr, 100000, 2600)
	net.mustExec(aliceAddr, net.dep.NativeLedger, bonding.ActionBond, bonding.BondMsg{Amount: u(10000)}, types.NewCoin(usdc, 10130))
	before := net.bankBalance(aliceAddr)

	_, err := net.exec(aliceAddr, net.dep.NativeLedger, bonding.ActionBond, bonding.BondMsg{Amount: u(10000)}, types.NewCoin(usdc, 10130))
	require.ErrorIs(t, err, bonding.ErrMaxBondingExceeded)
	require.Equal(t, before, net.bankBalance(aliceAddr))
	require.Len(t, net.bondState(net.dep.NativeLedger, aliceAddr).List, 1)

	var cfg bonding.Config
	net.query(net.dep.NativeLedger, bonding.QueryConfig, struct{}{}, &cfg)
	require.Equal(t, u(9129), cfg.DailyCurrentBondAmount)
}

func TestSwapSequenceAndWithdrawal(t *testing.T) {
	net := newTestNet(t, nil)
	net.addLiquidity(ownerAddr, 20000, 520)

	swap := func(amount, fee uint64) {
		net.mustExec(aliceAddr, net.dep.Pool, pool.ActionSwap, pool.SwapMsg{
			InputToken:  pool.Token1,
			InputAmount: u(amount),
			FeeAmount:   u(fee),
		}, types.NewCoin(usdc, amount+fee))
	}
	swap(1000, 13)
	info := net.poolInfo()
	require.Equal(t, u(21000), info.Token1Reserve)
	require.Equal(t, u(19051), info.Token2Reserve)

	swap(5000, 65)
	info = net.poolInfo()
	require.Equal(t, u(26000), info.Token1Reserve)
	require.Equal(t, u(15397), info.Token2Reserve)
	require.Equal(t, u(949+3654), net.tokenBalance(net.dep.PayoutToken, aliceAddr))

	_, err := net.exec(aliceAddr, net.dep.Pool, pool.ActionSwap, pool.SwapMsg{
		InputToken:  pool.Token1,
		InputAmount: u(1000),
		MinOutput:   u(1000),
		FeeAmount:   u(13),
	}, types.NewCoin(usdc, 1013))
	require.ErrorIs(t, err, pool.ErrSwapMin)

	ownerUSDC := net.bankBalance(ownerAddr)
	ownerPayout := net.tokenBalance(net.dep.PayoutToken, ownerAddr)
	net.mustExec(ownerAddr, net.dep.LPToken, token.ActionIncreaseAllowance, token.AllowanceMsg{Spender: net.dep.Pool, Amount: u(20000)})
	net.mustExec(ownerAddr, net.dep.Pool, pool.ActionRemoveLiquidity, pool.RemoveLiquidityMsg{Amount: u(20000)})

	info = net.poolInfo()
	require.True(t, info.Token1Reserve.IsZero())
	require.True(t, info.Token2Reserve.IsZero())
	require.True(t, info.LPTokenSupply.IsZero())
	require.Equal(t, u(26000), sub(t, net.bankBalance(ownerAddr), ownerUSDC))
	require.Equal(t, u(15397), sub(t, net.tokenBalance(net.dep.PayoutToken, ownerAddr), ownerPayout))
}

func TestMigrateRejectsForeignContract(t *testing.T) {
	net := newTestNet(t, nil)
	ctx := context.Background()

	_, err := net.node.Host().Migrate(ctx, ownerAddr, net.dep.Pool, net.node.Codes().Bonding, []byte(`{}`))
	require.ErrorIs(t, err, bonding.ErrCannotMigrate)

	_, err = net.node.Host().Migrate(ctx, ownerAddr, net.dep.Pool, net.node.Codes().Pool, []byte(`{}`))
	require.NoError(t, err)

	_, err = net.node.Host().Migrate(ctx, aliceAddr, net.dep.Pool, net.node.Codes().Pool, []byte(`{}`))
	require.ErrorIs(t, err, host.ErrUnauthorized)
}

func TestApplyReplayRequests(t *testing.T) {
	net := newTestNet(t, nil)
	ctx := context.Background()
	start := net.node.Host().Block()

	_, err := net.node.Apply(ctx, Request{Kind: RequestAdvance, Seconds: 60})
	require.NoError(t, err)
	require.Equal(t, start.Time+60, net.node.Host().Block().Time)

	_, err = net.node.Apply(ctx, Request{Kind: RequestFund, Sender: aliceAddr, Funds: types.Coins{types.NewCoin(usdc, 5)}})
	require.NoError(t, err)
	require.Equal(t, u(1000005), net.bankBalance(aliceAddr))

	msg := host.MustEncodeVariant(bonding.ActionUpdateEnabled, bonding.UpdateEnabledMsg{Enabled: false})
	_, err = net.node.Apply(ctx, Request{Sender: ownerAddr, Contract: "native_ledger", Msg: msg})
	require.NoError(t, err)

	var cfg bonding.Config
	net.query(net.dep.NativeLedger, bonding.QueryConfig, struct{}{}, &cfg)
	require.False(t, cfg.Enabled)

	_, err = net.node.Apply(ctx, Request{Sender: ownerAddr, Contract: "nowhere", Msg: msg})
	require.ErrorIs(t, err, host.ErrUnknownContract)
}

func TestNodeRestoresBlock(t *testing.T) {
	db := storage.NewMemDB()
	node, err := NewNode(db, nil)
	require.NoError(t, err)
	require.NoError(t, node.SetBlock(types.BlockInfo{Height: 7, Time: 1234}))

	reopened, err := NewNode(db, nil)
	require.NoError(t, err)
	require.Equal(t, types.BlockInfo{Height: 7, Time: 1234}, reopened.Host().Block())
	_, err = reopened.Deployment()
	require.ErrorIs(t, err, ErrNotBootstrapped)
}

func sub(t *testing.T, a, b types.Uint128) types.Uint128 {
	t.Helper()
	out, err := a.CheckedSub(b)
	require.NoError(t, err)
	return out
}
