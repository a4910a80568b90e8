package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bondswap/crypto"
)

// DenomKind discriminates the two ways a token can be held.
type DenomKind uint8

const (
	// DenomNative is a bank-level denomination moved with bank sends.
	DenomNative DenomKind = iota + 1
	// DenomToken is a fungible token contract moved with contract calls.
	DenomToken
)

var errInvalidDenom = errors.New("denom: exactly one of native or token must be set")

// Denom identifies a currency: either a native denomination or the address of
// a token contract.
type Denom struct {
	Kind   DenomKind
	Native string
	Token  crypto.Address
}

func NativeDenom(denom string) Denom { return Denom{Kind: DenomNative, Native: denom} }

func TokenDenom(addr crypto.Address) Denom { return Denom{Kind: DenomToken, Token: addr} }

func (d Denom) IsNative() bool { return d.Kind == DenomNative }

func (d Denom) IsToken() bool { return d.Kind == DenomToken }

func (d Denom) String() string {
	switch d.Kind {
	case DenomNative:
		return "native:" + d.Native
	case DenomToken:
		return "token:" + d.Token.String()
	default:
		return "unknown"
	}
}

// Validate checks that the variant is populated.
func (d Denom) Validate() error {
	switch d.Kind {
	case DenomNative:
		if strings.TrimSpace(d.Native) == "" {
			return fmt.Errorf("denom: native denomination must not be empty")
		}
	case DenomToken:
		if d.Token.IsZero() {
			return fmt.Errorf("denom: token address must not be empty")
		}
	default:
		return errInvalidDenom
	}
	return nil
}

type denomJSON struct {
	Native *string         `json:"native,omitempty"`
	Token  *crypto.Address `json:"token,omitempty"`
}

func (d Denom) MarshalJSON() ([]byte, error) {
	switch d.Kind {
	case DenomNative:
		return json.Marshal(denomJSON{Native: &d.Native})
	case DenomToken:
		return json.Marshal(denomJSON{Token: &d.Token})
	default:
		return nil, errInvalidDenom
	}
}

func (d *Denom) UnmarshalJSON(data []byte) error {
	var raw denomJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Native != nil && raw.Token == nil:
		*d = NativeDenom(*raw.Native)
	case raw.Token != nil && raw.Native == nil:
		*d = TokenDenom(*raw.Token)
	default:
		return errInvalidDenom
	}
	return d.Validate()
}
