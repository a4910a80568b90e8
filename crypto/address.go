package crypto

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// AddressPrefix defines the human-readable part of a bech32 address.
type AddressPrefix string

const (
	// AccountPrefix is used for every account and contract address.
	AccountPrefix AddressPrefix = "bsw"

	addressLength = 20
)

// Address is a 20-byte ledger address. Addresses are comparable and may be
// used as map keys.
type Address struct {
	prefix AddressPrefix
	bytes  [addressLength]byte
}

func NewAddress(prefix AddressPrefix, b []byte) Address {
	if len(b) != addressLength {
		panic("address must be 20 bytes long")
	}
	addr := Address{prefix: prefix}
	copy(addr.bytes[:], b)
	return addr
}

// AddressFromLabel derives a deterministic account address from a label. It is
// used for well-known accounts in genesis files and tests.
func AddressFromLabel(label string) Address {
	sum := crypto.Keccak256([]byte("account:" + label))
	return NewAddress(AccountPrefix, sum[len(sum)-addressLength:])
}

// ContractAddress derives the address of the seq-th instance of a code id.
func ContractAddress(codeID, seq uint64) Address {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], codeID)
	binary.BigEndian.PutUint64(buf[8:], seq)
	sum := crypto.Keccak256([]byte("contract:"), buf[:])
	return NewAddress(AccountPrefix, sum[len(sum)-addressLength:])
}

func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	out := make([]byte, addressLength)
	copy(out, a.bytes[:])
	return out
}

// Raw returns the fixed-size byte representation.
func (a Address) Raw() [20]byte { return a.bytes }

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool { return a.prefix == "" && a.bytes == [addressLength]byte{} }

// Equal compares the underlying bytes, ignoring the prefix.
func (a Address) Equal(other Address) bool { return a.bytes == other.bytes }

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(strings.TrimSpace(addrStr))
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != addressLength {
		return Address{}, fmt.Errorf("invalid address length %d", len(conv))
	}
	if AddressPrefix(prefix) != AccountPrefix {
		return Address{}, fmt.Errorf("unexpected address prefix %q", prefix)
	}
	return NewAddress(AddressPrefix(prefix), conv), nil
}

// MustDecodeAddress panics when the string is not a valid address.
func MustDecodeAddress(addrStr string) Address {
	addr, err := DecodeAddress(addrStr)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*a = Address{}
		return nil
	}
	decoded, err := DecodeAddress(string(text))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// EncodeRLP stores the raw bytes, or an empty string for the zero address.
func (a Address) EncodeRLP(w io.Writer) error {
	if a.IsZero() {
		return rlp.Encode(w, []byte{})
	}
	return rlp.Encode(w, a.bytes[:])
}

func (a *Address) DecodeRLP(s *rlp.Stream) error {
	raw, err := s.Bytes()
	if err != nil {
		return err
	}
	switch len(raw) {
	case 0:
		*a = Address{}
	case addressLength:
		*a = NewAddress(AccountPrefix, raw)
	default:
		return fmt.Errorf("rlp: invalid address length %d", len(raw))
	}
	return nil
}
