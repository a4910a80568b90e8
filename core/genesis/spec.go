// core/genesis/spec.go
package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"bondswap/core/types"
	"bondswap/crypto"
)

// FeeScale is the denominator of every per-mille rate in a spec.
const FeeScale = 1000

// GenesisSpec describes the contracts and balances a fresh store starts with.
type GenesisSpec struct {
	GenesisTime     string                       `json:"genesisTime"`
	Owner           string                       `json:"owner"`
	Treasury        string                       `json:"treasury"`
	SettlementDenom string                       `json:"settlementDenom"`
	PayoutToken     PayoutTokenSpec              `json:"payoutToken"`
	Alloc           map[string]map[string]string `json:"alloc"` // addr -> denom -> amount
	Pool            LedgerSpec                   `json:"pool"`
	NativeLedger    *NativeLedgerSpec            `json:"nativeLedger,omitempty"`

	genesisTimestamp time.Time
	owner            crypto.Address
	treasury         crypto.Address
	supply           types.Uint128
	accounts         []Account
}

type PayoutTokenSpec struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	Supply   string `json:"supply"`
}

// LedgerSpec carries the economic parameters of a vesting ledger. The pool
// forwards its copy to the ledger it creates.
type LedgerSpec struct {
	LockSeconds        uint64 `json:"lockSeconds"`
	Discount           uint64 `json:"discount"`
	TxFee              uint64 `json:"txFee"`
	PlatformFee        uint64 `json:"platformFee"`
	DailyVestingAmount string `json:"dailyVestingAmount"`

	daily types.Uint128
}

// NativeLedgerSpec adds a direct-deposit ledger priced against the genesis
// pool. Funding is moved from the owner's payout balance into the ledger.
type NativeLedgerSpec struct {
	LedgerSpec
	Funding string `json:"funding,omitempty"`

	funding types.Uint128
}

// Account is a resolved native allocation.
type Account struct {
	Address crypto.Address
	Coins   types.Coins
}

// LoadGenesisSpec reads a JSON spec, or a YAML one when the file ends in .yaml
// or .yml. YAML specs use the same keys and quote amounts the same way.
func LoadGenesisSpec(path string) (*GenesisSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if raw, err = yamlToJSON(raw); err != nil {
			return nil, fmt.Errorf("genesis spec %q: %w", path, err)
		}
	}
	spec, err := ParseGenesisSpec(raw)
	if err != nil {
		return nil, fmt.Errorf("genesis spec %q: %w", path, err)
	}
	return spec, nil
}

// ParseGenesisSpec decodes and validates a JSON spec. Unknown fields are
// rejected.
func ParseGenesisSpec(raw []byte) (*GenesisSpec, error) {
	var spec GenesisSpec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &spec, nil
}

func yamlToJSON(raw []byte) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return json.Marshal(doc)
}

// GenesisTimestamp is the parsed genesis time. Valid after Validate.
func (s *GenesisSpec) GenesisTimestamp() time.Time {
	return s.genesisTimestamp
}

func (s *GenesisSpec) OwnerAddress() crypto.Address {
	return s.owner
}

func (s *GenesisSpec) TreasuryAddress() crypto.Address {
	return s.treasury
}

// PayoutSupply is the parsed payout token supply.
func (s *GenesisSpec) PayoutSupply() types.Uint128 {
	return s.supply
}

// Accounts returns the native allocations sorted by address.
func (s *GenesisSpec) Accounts() []Account { return append([]Account(nil), s.accounts...) }

// Daily returns the parsed daily vesting amount.
func (l *LedgerSpec) Daily() types.Uint128 { return l.daily }

// FundingAmount returns the parsed funding amount, zero when unset.
func (n *NativeLedgerSpec) FundingAmount() types.Uint128 { return n.funding }

// Validate parses every textual field and checks the rates. It is called by
// the loaders and must be called on specs built in code.
func (s *GenesisSpec) Validate() error {
	ts, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return err
	}
	s.genesisTimestamp = ts

	if s.owner, err = parseAccount("owner", s.Owner); err != nil {
		return err
	}
	if s.treasury, err = parseAccount("treasury", s.Treasury); err != nil {
		return err
	}
	if strings.TrimSpace(s.SettlementDenom) == "" {
		return fmt.Errorf("settlementDenom must be provided")
	}
	if err := s.PayoutToken.validate(); err != nil {
		return fmt.Errorf("payoutToken: %w", err)
	}
	if s.supply, err = parseAmountString(s.PayoutToken.Supply); err != nil {
		return fmt.Errorf("payoutToken.supply: %w", err)
	}
	if err := s.Pool.validate(); err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	if s.NativeLedger != nil {
		if err := s.NativeLedger.validate(); err != nil {
			return fmt.Errorf("nativeLedger: %w", err)
		}
		if s.NativeLedger.funding.Gt(s.supply) {
			return fmt.Errorf("nativeLedger.funding exceeds payout supply")
		}
	}

	s.accounts = s.accounts[:0]
	for addrStr, balances := range s.Alloc {
		addr, err := parseAccount("alloc", addrStr)
		if err != nil {
			return err
		}
		acct := Account{Address: addr}
		for denom, value := range balances {
			if strings.TrimSpace(denom) == "" {
				return fmt.Errorf("alloc %s: empty denom", addrStr)
			}
			amount, err := parseAmountString(value)
			if err != nil {
				return fmt.Errorf("alloc %s %s: %w", addrStr, denom, err)
			}
			acct.Coins = append(acct.Coins, types.Coin{Denom: denom, Amount: amount})
		}
		coins, err := acct.Coins.Normalize()
		if err != nil {
			return fmt.Errorf("alloc %s: %w", addrStr, err)
		}
		acct.Coins = coins
		s.accounts = append(s.accounts, acct)
	}
	sort.Slice(s.accounts, func(i, j int) bool {
		return s.accounts[i].Address.String() < s.accounts[j].Address.String()
	})
	return nil
}

func (t *PayoutTokenSpec) validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("name must be provided")
	}
	if len(strings.TrimSpace(t.Symbol)) < 3 {
		return fmt.Errorf("symbol must be at least 3 characters")
	}
	if t.Decimals > 18 {
		return fmt.Errorf("decimals must be <= 18")
	}
	return nil
}

func (l *LedgerSpec) validate() error {
	if l.Discount >= FeeScale {
		return fmt.Errorf("discount must be < %d", FeeScale)
	}
	if l.TxFee+l.PlatformFee > FeeScale {
		return fmt.Errorf("txFee + platformFee must be <= %d", FeeScale)
	}
	daily, err := parseAmountString(l.DailyVestingAmount)
	if err != nil {
		return fmt.Errorf("dailyVestingAmount: %w", err)
	}
	l.daily = daily
	return nil
}

func (n *NativeLedgerSpec) validate() error {
	if err := n.LedgerSpec.validate(); err != nil {
		return err
	}
	n.funding = types.ZeroUint128()
	if strings.TrimSpace(n.Funding) == "" {
		return nil
	}
	funding, err := parseAmountString(n.Funding)
	if err != nil {
		return fmt.Errorf("funding: %w", err)
	}
	n.funding = funding
	return nil
}

func parseAccount(field, value string) (crypto.Address, error) {
	if strings.TrimSpace(value) == "" {
		return crypto.Address{}, fmt.Errorf("%s must be provided", field)
	}
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("%s: %w", field, err)
	}
	return addr, nil
}

func parseAmountString(value string) (types.Uint128, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return types.ZeroUint128(), nil
	}
	return types.ParseUint128(trimmed)
}

func parseGenesisTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("genesisTime must be provided")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid genesisTime %q", value)
}
