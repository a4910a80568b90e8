package types

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

var (
	ErrOverflow      = errors.New("uint128: overflow")
	ErrUnderflow     = errors.New("uint128: underflow")
	ErrDivideByZero  = errors.New("uint128: divide by zero")
	ErrInvalidAmount = errors.New("uint128: invalid amount")
)

const uint128Bits = 128

// Uint128 is an unsigned 128-bit integer. All arithmetic is checked: a result
// that does not fit in 128 bits is reported as an error instead of wrapping.
type Uint128 struct {
	v uint256.Int
}

// ZeroUint128 returns the zero value.
func ZeroUint128() Uint128 { return Uint128{} }

// NewUint128 converts a uint64 into a Uint128.
func NewUint128(x uint64) Uint128 {
	var u Uint128
	u.v.SetUint64(x)
	return u
}

// ParseUint128 parses a base-10 string.
func ParseUint128(s string) (Uint128, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Uint128{}, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	parsed, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return Uint128{}, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	if parsed.BitLen() > uint128Bits {
		return Uint128{}, fmt.Errorf("%w: %q exceeds 128 bits", ErrOverflow, s)
	}
	return Uint128{v: *parsed}, nil
}

// MustParseUint128 is ParseUint128 for constants and tests.
func MustParseUint128(s string) Uint128 {
	u, err := ParseUint128(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Uint128FromBig converts a non-negative big.Int that fits in 128 bits.
func Uint128FromBig(b *big.Int) (Uint128, error) {
	if b == nil {
		return Uint128{}, nil
	}
	if b.Sign() < 0 {
		return Uint128{}, ErrUnderflow
	}
	if b.BitLen() > uint128Bits {
		return Uint128{}, ErrOverflow
	}
	var u Uint128
	u.v.SetFromBig(b)
	return u, nil
}

func bounded(v *uint256.Int, overflow bool) (Uint128, error) {
	if overflow || v.BitLen() > uint128Bits {
		return Uint128{}, ErrOverflow
	}
	return Uint128{v: *v}, nil
}

// CheckedAdd returns u + x.
func (u Uint128) CheckedAdd(x Uint128) (Uint128, error) {
	var out uint256.Int
	_, overflow := out.AddOverflow(&u.v, &x.v)
	return bounded(&out, overflow)
}

// CheckedSub returns u - x.
func (u Uint128) CheckedSub(x Uint128) (Uint128, error) {
	var out uint256.Int
	if _, underflow := out.SubOverflow(&u.v, &x.v); underflow {
		return Uint128{}, ErrUnderflow
	}
	return Uint128{v: out}, nil
}

// CheckedMul returns u * x. Intermediate products wider than 128 bits fail,
// matching the behaviour of fixed-width ledger arithmetic.
func (u Uint128) CheckedMul(x Uint128) (Uint128, error) {
	var out uint256.Int
	_, overflow := out.MulOverflow(&u.v, &x.v)
	return bounded(&out, overflow)
}

// CheckedDiv returns u / x truncated toward zero.
func (u Uint128) CheckedDiv(x Uint128) (Uint128, error) {
	if x.v.IsZero() {
		return Uint128{}, ErrDivideByZero
	}
	var out uint256.Int
	out.Div(&u.v, &x.v)
	return Uint128{v: out}, nil
}

// MulDiv returns u * x / y with checked intermediate arithmetic.
func (u Uint128) MulDiv(x, y Uint128) (Uint128, error) {
	product, err := u.CheckedMul(x)
	if err != nil {
		return Uint128{}, err
	}
	return product.CheckedDiv(y)
}

func (u Uint128) IsZero() bool { return u.v.IsZero() }

// Cmp returns -1, 0 or +1.
func (u Uint128) Cmp(x Uint128) int { return u.v.Cmp(&x.v) }

func (u Uint128) Lt(x Uint128) bool  { return u.v.Lt(&x.v) }
func (u Uint128) Gt(x Uint128) bool  { return u.v.Gt(&x.v) }
func (u Uint128) Eq(x Uint128) bool  { return u.v.Eq(&x.v) }
func (u Uint128) Lte(x Uint128) bool { return !u.v.Gt(&x.v) }
func (u Uint128) Gte(x Uint128) bool { return !u.v.Lt(&x.v) }

// Min returns the smaller of u and x.
func (u Uint128) Min(x Uint128) Uint128 {
	if u.Lt(x) {
		return u
	}
	return x
}

// Uint64 returns the low 64 bits and whether the value fit.
func (u Uint128) Uint64() (uint64, bool) {
	return u.v.Uint64(), u.v.IsUint64()
}

// Big returns a big.Int copy of the value.
func (u Uint128) Big() *big.Int { return u.v.ToBig() }

func (u Uint128) String() string { return u.v.Dec() }

// MarshalText encodes the value as a base-10 string so JSON and TOML carry
// amounts without precision loss.
func (u Uint128) MarshalText() ([]byte, error) { return []byte(u.v.Dec()), nil }

// UnmarshalText accepts a base-10 string.
func (u *Uint128) UnmarshalText(text []byte) error {
	parsed, err := ParseUint128(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// UnmarshalJSON accepts both quoted strings and bare JSON numbers.
func (u *Uint128) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if trimmed == "null" {
		*u = Uint128{}
		return nil
	}
	return u.UnmarshalText([]byte(trimmed))
}

// EncodeRLP implements rlp.Encoder.
func (u Uint128) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &u.v)
}

// DecodeRLP implements rlp.Decoder.
func (u *Uint128) DecodeRLP(s *rlp.Stream) error {
	var v uint256.Int
	if err := s.ReadUint256(&v); err != nil {
		return err
	}
	if v.BitLen() > uint128Bits {
		return ErrOverflow
	}
	u.v = v
	return nil
}
