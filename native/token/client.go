package token

import (
	"bondswap/core/host"
	"bondswap/core/types"
	"bondswap/crypto"
)

// Balance queries the token balance of addr.
func Balance(q host.Querier, token, addr crypto.Address) (types.Uint128, error) {
	var resp BalanceResponse
	req := map[string]BalanceQuery{QueryBalance: {Address: addr}}
	if err := host.QuerySmart(q, token, req, &resp); err != nil {
		return types.Uint128{}, err
	}
	return resp.Balance, nil
}

// TokenInfo queries the metadata and total supply.
func TokenInfo(q host.Querier, token crypto.Address) (TokenInfoResponse, error) {
	var resp TokenInfoResponse
	req := map[string]struct{}{QueryTokenInfo: {}}
	err := host.QuerySmart(q, token, req, &resp)
	return resp, err
}
