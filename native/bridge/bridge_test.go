package bridge

import (
	"encoding/json"
	"errors"
	"testing"

	"bondswap/core/host"
	"bondswap/core/types"
	"bondswap/crypto"
)

type stubQuerier struct {
	calls []string
	price uint64
}

func (s *stubQuerier) QueryContract(_ crypto.Address, msg json.RawMessage) (json.RawMessage, error) {
	tag, body, err := host.DecodeVariant(msg)
	if err != nil {
		return nil, err
	}
	s.calls = append(s.calls, tag)
	switch tag {
	case QueryToken1ForToken2:
		var q token1ForToken2Query
		if err := json.Unmarshal(body, &q); err != nil {
			return nil, err
		}
		return json.Marshal(Token1ForToken2Response{Token2Amount: types.NewUint128(s.price)})
	case QueryToken2ForToken1:
		return json.Marshal(Token2ForToken1Response{Token1Amount: types.NewUint128(s.price)})
	}
	return nil, errors.New("unexpected query")
}

func (s *stubQuerier) BankBalance(crypto.Address, string) (types.Uint128, error) {
	return types.Uint128{}, nil
}

func TestBridgeQuotes(t *testing.T) {
	q := &stubQuerier{price: 9066}
	b := New(q, crypto.ContractAddress(2, 1))

	got, err := b.Token1ForToken2(types.NewUint128(10000))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !got.Eq(types.NewUint128(9066)) {
		t.Fatalf("unexpected quote %s", got)
	}
	if _, err := b.ExchangeRate(); err != nil {
		t.Fatalf("rate: %v", err)
	}
	if len(q.calls) != 2 || q.calls[1] != QueryToken2ForToken1 {
		t.Fatalf("unexpected calls %v", q.calls)
	}
}

func TestBridgeRequiresPool(t *testing.T) {
	b := New(&stubQuerier{}, crypto.Address{})
	if _, err := b.Token1ForToken2(types.NewUint128(1)); !errors.Is(err, ErrPoolNotConfigured) {
		t.Fatalf("expected ErrPoolNotConfigured, got %v", err)
	}
}
