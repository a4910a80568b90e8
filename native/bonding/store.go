package bonding

import (
	"errors"
	"fmt"
	"sort"

	"bondswap/core/host"
	"bondswap/core/state"
	"bondswap/core/types"
	"bondswap/crypto"
	"bondswap/native/token"
)

var (
	configKey        = []byte("config")
	beneficiariesKey = []byte("beneficiaries")
)

var errConfigMissing = errors.New("bonding: config not initialised")

func grantsKey(addr crypto.Address) []byte {
	raw := addr.Raw()
	return append([]byte("bonding/"), raw[:]...)
}

// store keeps the config, one grant list per beneficiary and an index of
// beneficiaries for ordered iteration.
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
		return fmt.Errorf("bonding: nil config")
	}
	return s.m.KVPut(configKey, cfg)
}

func (s *store) GetGrants(addr crypto.Address) ([]Grant, error) {
	var grants []Grant
	if err := s.m.KVGetList(grantsKey(addr), &grants); err != nil {
		return nil, err
	}
	return grants, nil
}

// PutGrants stores the list and indexes the beneficiary. An emptied list
// stays indexed so the address keeps showing up in listings.
func (s *store) PutGrants(addr crypto.Address, grants []Grant) error {
	if grants == nil {
		grants = []Grant{}
	}
	if err := s.m.KVPut(grantsKey(addr), grants); err != nil {
		return err
	}
	raw := addr.Raw()
	return s.m.KVAppend(beneficiariesKey, raw[:])
}

// Beneficiaries returns every indexed address in ascending text order.
func (s *store) Beneficiaries() ([]crypto.Address, error) {
	var raws [][]byte
	if err := s.m.KVGetList(beneficiariesKey, &raws); err != nil {
		return nil, err
	}
	out := make([]crypto.Address, 0, len(raws))
	for _, raw := range raws {
		if len(raw) != 20 {
			return nil, fmt.Errorf("bonding: corrupt beneficiary index entry")
		}
		out = append(out, crypto.NewAddress(crypto.AccountPrefix, raw))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// poolQuotes prices through the bridge.
type poolQuotes interface {
	Token1ForToken2(amount types.Uint128) (types.Uint128, error)
	ExchangeRate() (types.Uint128, error)
}

// payoutView reads the ledger's payout-token balance.
type payoutView interface {
	PayoutBalance(tokenAddr, holder crypto.Address) (types.Uint128, error)
}

type queryPayout struct {
	q host.Querier
}

func (p queryPayout) PayoutBalance(tokenAddr, holder crypto.Address) (types.Uint128, error) {
	return token.Balance(p.q, tokenAddr, holder)
}
