// core/genesis/spec_test.go
package genesis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bondswap/crypto"
)

func sampleSpec() GenesisSpec {
	return GenesisSpec{
		GenesisTime:     "2024-01-01T00:00:00Z",
		Owner:           crypto.AddressFromLabel("owner").String(),
		Treasury:        crypto.AddressFromLabel("treasury").String(),
		SettlementDenom: "uusdc",
		PayoutToken:     PayoutTokenSpec{Name: "Bond Payout", Symbol: "BPT", Decimals: 6, Supply: "1000000"},
		Alloc: map[string]map[string]string{
			crypto.AddressFromLabel("b").String(): {"uusdc": "20", "uatom": "0"},
			crypto.AddressFromLabel("a").String(): {"uusdc": "10"},
		},
		Pool: LedgerSpec{LockSeconds: 60, Discount: 5, TxFee: 3, PlatformFee: 10, DailyVestingAmount: "5000"},
		NativeLedger: &NativeLedgerSpec{
			LedgerSpec: LedgerSpec{Discount: 7, TxFee: 3, PlatformFee: 10, DailyVestingAmount: "100"},
			Funding:    "1000",
		},
	}
}

func TestLoadGenesisSpec(t *testing.T) {
	spec := sampleSpec()
	raw, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := LoadGenesisSpec(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.GenesisTimestamp().Unix() != 1704067200 {
		t.Fatalf("unexpected genesis time %v", loaded.GenesisTimestamp())
	}
	if loaded.OwnerAddress() != crypto.AddressFromLabel("owner") {
		t.Fatalf("owner not resolved")
	}
	if got := loaded.PayoutSupply().String(); got != "1000000" {
		t.Fatalf("supply %s", got)
	}
	if got := loaded.Pool.Daily().String(); got != "5000" {
		t.Fatalf("pool daily %s", got)
	}
	if got := loaded.NativeLedger.FundingAmount().String(); got != "1000" {
		t.Fatalf("funding %s", got)
	}

	accounts := loaded.Accounts()
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].Address.String() > accounts[1].Address.String() {
		t.Fatalf("accounts not sorted")
	}
	for _, acct := range accounts {
		for _, coin := range acct.Coins {
			if coin.Amount.IsZero() {
				t.Fatalf("zero allocation kept for %s", acct.Address)
			}
		}
	}
}

func TestGenesisSpecRejectsUnknownFields(t *testing.T) {
	_, err := ParseGenesisSpec([]byte(`{"genesisTime":"2024-01-01T00:00:00Z","validators":[]}`))
	if err == nil || !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestGenesisSpecValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*GenesisSpec)
		want   string
	}{
		{"missing time", func(s *GenesisSpec) { s.GenesisTime = "" }, "genesisTime"},
		{"bad owner", func(s *GenesisSpec) { s.Owner = "nhb1xyz" }, "owner"},
		{"no denom", func(s *GenesisSpec) { s.SettlementDenom = " " }, "settlementDenom"},
		{"short symbol", func(s *GenesisSpec) { s.PayoutToken.Symbol = "B" }, "symbol"},
		{"discount", func(s *GenesisSpec) { s.Pool.Discount = 1000 }, "discount"},
		{"fees", func(s *GenesisSpec) { s.Pool.TxFee = 999 }, "txFee"},
		{"bad amount", func(s *GenesisSpec) { s.Pool.DailyVestingAmount = "-1" }, "dailyVestingAmount"},
		{"overfunded", func(s *GenesisSpec) { s.NativeLedger.Funding = "1000001" }, "funding"},
	}
	for _, tc := range cases {
		spec := sampleSpec()
		tc.mutate(&spec)
		err := spec.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error mentioning %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestLoadGenesisSpecYAML(t *testing.T) {
	owner := crypto.AddressFromLabel("owner").String()
	doc := `genesisTime: "2024-01-01T00:00:00Z"
owner: ` + owner + `
treasury: ` + crypto.AddressFromLabel("treasury").String() + `
settlementDenom: uusdc
payoutToken:
  name: Bond Payout
  symbol: BPT
  decimals: 6
  supply: "1000000"
alloc:
  ` + owner + `:
    uusdc: "50"
pool:
  lockSeconds: 60
  discount: 5
  txFee: 3
  platformFee: 10
  dailyVestingAmount: "5000"
`
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	spec, err := LoadGenesisSpec(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if spec.NativeLedger != nil || spec.Pool.Discount != 5 {
		t.Fatalf("unexpected spec %+v", spec)
	}
	if accts := spec.Accounts(); len(accts) != 1 || accts[0].Coins.String() != "50uusdc" {
		t.Fatalf("unexpected accounts %+v", accts)
	}

	bad := filepath.Join(t.TempDir(), "genesis.yml")
	if err := os.WriteFile(bad, []byte("pool: [unclosed"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadGenesisSpec(bad); err == nil || !strings.Contains(err.Error(), "yaml") {
		t.Fatalf("expected yaml error, got %v", err)
	}
}
