package number

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// WadDecimals number of decimal places carried by a Decimal
const WadDecimals = 18

var (
	// ErrMathOverflow checked arithmetic exceeded the representable range
	ErrMathOverflow = errors.New("math operation overflow")
	// ErrMathUnderflow checked arithmetic produced a negative result
	ErrMathUnderflow = errors.New("math operation underflow")
)

var (
	wad        = uint256.NewInt(1_000_000_000_000_000_000)
	percentWad = uint256.NewInt(10_000_000_000_000_000)
	wadMinus1  = uint256.NewInt(999_999_999_999_999_999)
)

// Decimal non-negative fixed point number scaled by 10^18 (WAD).
//
// All arithmetic is checked and truncates toward zero. The zero value is 0.
type Decimal struct {
	v uint256.Int
}

// Zero 0
func Zero() Decimal {
	return Decimal{}
}

// One 1
func One() Decimal {
	return Decimal{v: *wad}
}

// NewFromUint64 integer to decimal
func NewFromUint64(n uint64) Decimal {
	var d Decimal
	// u64 * 10^18 always fits in 256 bits
	d.v.Mul(uint256.NewInt(n), wad)
	return d
}

// NewFromPercent percentage (0-255) to decimal, 50 => 0.5
func NewFromPercent(p uint8) Decimal {
	var d Decimal
	d.v.Mul(uint256.NewInt(uint64(p)), percentWad)
	return d
}

// NewFromScaled wraps an integer already scaled by WAD
func NewFromScaled(scaled *uint256.Int) Decimal {
	var d Decimal
	d.v.Set(scaled)
	return d
}

// NewFromScaledUint64 wraps a u64 already scaled by WAD
func NewFromScaledUint64(scaled uint64) Decimal {
	var d Decimal
	d.v.SetUint64(scaled)
	return d
}

// NewFromDecimal converts a shopspring decimal, digits past 18 places are truncated
func NewFromDecimal(d decimal.Decimal) (Decimal, error) {
	if d.IsNegative() {
		return Decimal{}, ErrMathUnderflow
	}

	scaled, overflow := uint256.FromBig(d.Shift(WadDecimals).Truncate(0).BigInt())
	if overflow {
		return Decimal{}, ErrMathOverflow
	}

	return Decimal{v: *scaled}, nil
}

// NewFromString parse a decimal string such as "12.5"
func NewFromString(s string) (Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Decimal{}, fmt.Errorf("parse decimal %q: %w", s, err)
	}

	return NewFromDecimal(d)
}

// MustFromString like NewFromString but panics on error
func MustFromString(s string) Decimal {
	d, err := NewFromString(s)
	if err != nil {
		panic(err)
	}

	return d
}

func (d Decimal) Add(o Decimal) (Decimal, error) {
	var r Decimal
	if _, overflow := r.v.AddOverflow(&d.v, &o.v); overflow {
		return Decimal{}, ErrMathOverflow
	}

	return r, nil
}

func (d Decimal) Sub(o Decimal) (Decimal, error) {
	var r Decimal
	if _, underflow := r.v.SubOverflow(&d.v, &o.v); underflow {
		return Decimal{}, ErrMathUnderflow
	}

	return r, nil
}

// Mul d * o, the WAD^2 product is rescaled with truncation
func (d Decimal) Mul(o Decimal) (Decimal, error) {
	var r Decimal
	if _, overflow := r.v.MulDivOverflow(&d.v, &o.v, wad); overflow {
		return Decimal{}, ErrMathOverflow
	}

	return r, nil
}

// MulDiv a * b / c with a single truncation
func MulDiv(a, b, c Decimal) (Decimal, error) {
	if c.v.IsZero() {
		return Decimal{}, ErrMathOverflow
	}

	var r Decimal
	if _, overflow := r.v.MulDivOverflow(&a.v, &b.v, &c.v); overflow {
		return Decimal{}, ErrMathOverflow
	}

	return r, nil
}

// MulUint64 d * n
func (d Decimal) MulUint64(n uint64) (Decimal, error) {
	var r Decimal
	if _, overflow := r.v.MulOverflow(&d.v, uint256.NewInt(n)); overflow {
		return Decimal{}, ErrMathOverflow
	}

	return r, nil
}

// Div d / o with truncation, dividing by zero is an overflow
func (d Decimal) Div(o Decimal) (Decimal, error) {
	if o.v.IsZero() {
		return Decimal{}, ErrMathOverflow
	}

	var r Decimal
	if _, overflow := r.v.MulDivOverflow(&d.v, wad, &o.v); overflow {
		return Decimal{}, ErrMathOverflow
	}

	return r, nil
}

// DivUint64 d / n with truncation
func (d Decimal) DivUint64(n uint64) (Decimal, error) {
	if n == 0 {
		return Decimal{}, ErrMathOverflow
	}

	var r Decimal
	r.v.Div(&d.v, uint256.NewInt(n))
	return r, nil
}

// Pow d^exp by squaring, each step truncates
func (d Decimal) Pow(exp uint64) (Decimal, error) {
	result := One()
	if exp%2 != 0 {
		result = d
	}

	base := d
	var err error
	for exp >>= 1; exp > 0; exp >>= 1 {
		if base, err = base.Mul(base); err != nil {
			return Decimal{}, err
		}

		if exp%2 != 0 {
			if result, err = result.Mul(base); err != nil {
				return Decimal{}, err
			}
		}
	}

	return result, nil
}

// Floor integer part as u64
func (d Decimal) Floor() (uint64, error) {
	var r uint256.Int
	r.Div(&d.v, wad)
	if !r.IsUint64() {
		return 0, ErrMathOverflow
	}

	return r.Uint64(), nil
}

// Ceil smallest u64 not less than d
func (d Decimal) Ceil() (uint64, error) {
	var r uint256.Int
	if _, overflow := r.AddOverflow(&d.v, wadMinus1); overflow {
		return 0, ErrMathOverflow
	}

	r.Div(&r, wad)
	if !r.IsUint64() {
		return 0, ErrMathOverflow
	}

	return r.Uint64(), nil
}

func (d Decimal) Cmp(o Decimal) int {
	return d.v.Cmp(&o.v)
}

func (d Decimal) Equal(o Decimal) bool {
	return d.v.Eq(&o.v)
}

func (d Decimal) LessThan(o Decimal) bool {
	return d.v.Lt(&o.v)
}

func (d Decimal) GreaterThan(o Decimal) bool {
	return d.v.Gt(&o.v)
}

func (d Decimal) IsZero() bool {
	return d.v.IsZero()
}

// MaxUint64 u64::MAX as a decimal
func MaxUint64() Decimal {
	return NewFromUint64(math.MaxUint64)
}

// ToDecimal exact shopspring representation, for display and reporting
func (d Decimal) ToDecimal() decimal.Decimal {
	return decimal.NewFromBigInt(d.v.ToBig(), -WadDecimals)
}

func (d Decimal) String() string {
	return d.ToDecimal().String()
}

// json encoding

func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Decimal) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Decimal{}
		return nil
	}

	v, err := NewFromString(s)
	if err != nil {
		return err
	}

	*d = v
	return nil
}

// sql

func (d Decimal) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Decimal) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Decimal{}
		return nil
	case string:
		return d.UnmarshalJSON([]byte(v))
	case []byte:
		return d.UnmarshalJSON(v)
	default:
		return fmt.Errorf("number: cannot scan %T into Decimal", src)
	}
}
