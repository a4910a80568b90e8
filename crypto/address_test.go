package crypto

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/rlp"
)

func TestAddressStringRoundTrip(t *testing.T) {
	addr := AddressFromLabel("alice")
	s := addr.String()
	if !strings.HasPrefix(s, "bsw1") {
		t.Fatalf("unexpected encoding %q", s)
	}
	back, err := DecodeAddress(s)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !back.Equal(addr) {
		t.Fatalf("round trip mismatch: %s != %s", back, addr)
	}
}

func TestDecodeAddressRejectsForeignPrefix(t *testing.T) {
	raw := AddressFromLabel("alice").Raw()
	conv, err := bech32.ConvertBits(raw[:], 8, 5, true)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	foreign, err := bech32.Encode("cosmos", conv)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeAddress(foreign); err == nil || !strings.Contains(err.Error(), "prefix") {
		t.Fatalf("expected prefix error, got %v", err)
	}
	if _, err := DecodeAddress("not-an-address"); err == nil {
		t.Fatalf("expected bech32 error")
	}
}

func TestZeroAddress(t *testing.T) {
	var zero Address
	if !zero.IsZero() || zero.String() != "" {
		t.Fatalf("zero address should render empty")
	}
	var decoded Address
	if err := json.Unmarshal([]byte(`""`), &decoded); err != nil || !decoded.IsZero() {
		t.Fatalf("empty JSON string should decode to zero: %v", err)
	}
	enc, err := rlp.EncodeToBytes(zero)
	if err != nil {
		t.Fatalf("rlp encode: %v", err)
	}
	var back Address
	if err := rlp.DecodeBytes(enc, &back); err != nil || !back.IsZero() {
		t.Fatalf("rlp zero round trip: %v", err)
	}
}

func TestContractAddressesDistinct(t *testing.T) {
	a := ContractAddress(1, 1)
	b := ContractAddress(1, 2)
	c := ContractAddress(2, 1)
	if a.Equal(b) || a.Equal(c) || b.Equal(c) {
		t.Fatalf("contract addresses collide")
	}
	if !ContractAddress(1, 1).Equal(a) {
		t.Fatalf("contract address not deterministic")
	}
}
