package pool

import (
	"errors"
	"fmt"

	"bondswap/core/host"
	"bondswap/core/state"
	"bondswap/core/types"
	"bondswap/crypto"
	"bondswap/native/token"
)

var (
	configKey  = []byte("config")
	token1Key  = []byte("token1")
	token2Key  = []byte("token2")
	lpTokenKey = []byte("lp_token_address")
)

var errConfigMissing = errors.New("pool: config not initialised")

// store persists the pool records in the contract namespace.
type store struct {
	m *state.Manager
}

func newStore(m *state.Manager) *store { return &store{m: m} }

func (s *store) GetConfig() (*Config, error) {
	var cfg Config
	ok, err := s.m.KVGet(configKey, &cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errConfigMissing
	}
	return &cfg, nil
}

func (s *store) PutConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("pool: nil config")
	}
	return s.m.KVPut(configKey, cfg)
}

func tokenKey(sel TokenSelect) ([]byte, error) {
	switch sel {
	case Token1:
		return token1Key, nil
	case Token2:
		return token2Key, nil
	default:
		return nil, fmt.Errorf("pool: unknown token selector %q", sel)
	}
}

func (s *store) GetToken(sel TokenSelect) (*Token, error) {
	key, err := tokenKey(sel)
	if err != nil {
		return nil, err
	}
	var tok Token
	ok, err := s.m.KVGet(key, &tok)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("pool: %s not initialised", sel)
	}
	return &tok, nil
}

func (s *store) PutToken(sel TokenSelect, tok *Token) error {
	key, err := tokenKey(sel)
	if err != nil {
		return err
	}
	return s.m.KVPut(key, tok)
}

func (s *store) GetLPToken() (crypto.Address, error) {
	var addr crypto.Address
	if _, err := s.m.KVGet(lpTokenKey, &addr); err != nil {
		return crypto.Address{}, err
	}
	return addr, nil
}

func (s *store) PutLPToken(addr crypto.Address) error {
	return s.m.KVPut(lpTokenKey, addr)
}

// queryLedger reads the LP token through smart queries.
type queryLedger struct {
	q host.Querier
}

func (l queryLedger) TotalSupply(lp crypto.Address) (types.Uint128, error) {
	info, err := token.TokenInfo(l.q, lp)
	if err != nil {
		return types.Uint128{}, err
	}
	return info.TotalSupply, nil
}

func (l queryLedger) BalanceOf(lp, owner crypto.Address) (types.Uint128, error) {
	return token.Balance(l.q, lp, owner)
}
