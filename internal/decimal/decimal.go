// Package decimal implements fixed-scale decimal arithmetic for monetary
// sums without floating-point precision loss: a mantissa paired with a
// base-10 scale, exactly as the upstream node reports transaction values.
package decimal

import (
	"fmt"
	"math/big"
)

// maxMantissa is the largest value a 128-bit unsigned mantissa can hold:
// 2^128 - 1. The mantissa is modeled with math/big.Int (Go has no native
// u128) but is never allowed to exceed this bound — doing so is treated as
// the same fatal overflow the underlying format cannot represent.
var maxMantissa = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Decimal is a decimal number represented as mantissa * 10^-scale.
// The zero value is the decimal zero at scale 0.
type Decimal struct {
	Mantissa *big.Int
	Scale    uint8
}

// Zero returns the decimal zero at the given scale.
func Zero(scale uint8) Decimal {
	return Decimal{Mantissa: big.NewInt(0), Scale: scale}
}

// New constructs a Decimal from an integer mantissa and a scale.
func New(mantissa uint64, scale uint8) Decimal {
	return Decimal{Mantissa: new(big.Int).SetUint64(mantissa), Scale: scale}
}

// IsZero reports whether the decimal value is zero, regardless of scale.
func (d Decimal) IsZero() bool {
	return d.Mantissa == nil || d.Mantissa.Sign() == 0
}

// mantissaOrZero returns d.Mantissa, substituting a fresh zero if the
// Decimal was never initialized (the zero value of Decimal has a nil
// *big.Int, which callers should never need to special-case).
func (d Decimal) mantissaOrZero() *big.Int {
	if d.Mantissa == nil {
		return big.NewInt(0)
	}
	return d.Mantissa
}

// rescale multiplies m by 10^delta and returns the result, erroring if the
// product would exceed the 128-bit mantissa range. A mantissa overflowing
// at any realistic monetary scale means corrupt upstream data, so the
// error surfaces instead of wrapping silently.
func rescale(m *big.Int, delta uint8) (*big.Int, error) {
	if delta == 0 {
		return new(big.Int).Set(m), nil
	}
	factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(delta)), nil)
	out := new(big.Int).Mul(m, factor)
	if out.Cmp(maxMantissa) > 0 {
		return nil, fmt.Errorf("decimal: mantissa overflow rescaling by 10^%d", delta)
	}
	return out, nil
}

// align brings a and b to the common scale max(a.Scale, b.Scale), returning
// their rescaled mantissas and the common scale.
func align(a, b Decimal) (*big.Int, *big.Int, uint8, error) {
	scale := a.Scale
	if b.Scale > scale {
		scale = b.Scale
	}

	am := a.mantissaOrZero()
	if a.Scale < scale {
		var err error
		am, err = rescale(am, scale-a.Scale)
		if err != nil {
			return nil, nil, 0, err
		}
	}

	bm := b.mantissaOrZero()
	if b.Scale < scale {
		var err error
		bm, err = rescale(bm, scale-b.Scale)
		if err != nil {
			return nil, nil, 0, err
		}
	}

	return am, bm, scale, nil
}

// Add returns a + b, rescaled to max(a.Scale, b.Scale). Returns an error if
// rescaling would overflow the 128-bit mantissa range.
func Add(a, b Decimal) (Decimal, error) {
	am, bm, scale, err := align(a, b)
	if err != nil {
		return Decimal{}, err
	}
	sum := new(big.Int).Add(am, bm)
	if sum.Cmp(maxMantissa) > 0 || sum.Sign() < 0 {
		return Decimal{}, fmt.Errorf("decimal: mantissa overflow on add")
	}
	return Decimal{Mantissa: sum, Scale: scale}, nil
}

// Sub returns a - b, rescaled to max(a.Scale, b.Scale). Returns an error if
// rescaling would overflow the 128-bit mantissa range or the result would
// go negative (mantissas are unsigned, matching the upstream u128).
func Sub(a, b Decimal) (Decimal, error) {
	am, bm, scale, err := align(a, b)
	if err != nil {
		return Decimal{}, err
	}
	diff := new(big.Int).Sub(am, bm)
	if diff.Sign() < 0 {
		return Decimal{}, fmt.Errorf("decimal: subtraction underflow (mantissa is unsigned)")
	}
	if diff.Cmp(maxMantissa) > 0 {
		return Decimal{}, fmt.Errorf("decimal: mantissa overflow on sub")
	}
	return Decimal{Mantissa: diff, Scale: scale}, nil
}

// String renders the decimal in fixed-point form, e.g. "4999.99999999".
func (d Decimal) String() string {
	m := new(big.Int).Set(d.mantissaOrZero())
	if d.Scale == 0 {
		return m.String()
	}
	factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.Scale)), nil)
	intPart := new(big.Int).Div(m, factor)
	fracPart := new(big.Int).Mod(m, factor)
	fracStr := fracPart.String()
	for len(fracStr) < int(d.Scale) {
		fracStr = "0" + fracStr
	}
	return fmt.Sprintf("%s.%s", intPart.String(), fracStr)
}

// Float64 returns the decimal value as a float64. Precision beyond float64's
// mantissa is not preserved; this is acceptable for display only, never for
// internal bookkeeping. MarshalJSON does not use it: JSON output is the
// exact String form.
func (d Decimal) Float64() float64 {
	f := new(big.Float).SetInt(d.mantissaOrZero())
	scaleFactor := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.Scale)), nil))
	f.Quo(f, scaleFactor)
	out, _ := f.Float64()
	return out
}

// MarshalJSON encodes the decimal as a bare JSON number, matching the
// upstream RPC's own `value`/`amount` encoding.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON decodes a bare JSON number into a Decimal, inferring the
// scale from the number of digits after the decimal point in the literal —
// exactly how the upstream node's own `value`/`amount` fields are read, so
// that "321.12345678" becomes mantissa=32112345678, scale=8 without any
// float64 rounding in between.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseDecimalString(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDecimalString parses a fixed-point literal such as "4999.99999999"
// or "50" into a Decimal, with the scale set to the number of digits after
// the decimal point (zero if there is none).
func ParseDecimalString(s string) (Decimal, error) {
	if s == "" {
		return Decimal{}, fmt.Errorf("decimal: empty literal")
	}
	intPart, fracPart, hasFrac := s, "", false
	for i, c := range s {
		if c == '.' {
			intPart, fracPart = s[:i], s[i+1:]
			hasFrac = true
			break
		}
	}
	digits := intPart + fracPart
	if digits == "" {
		return Decimal{}, fmt.Errorf("decimal: invalid literal %q", s)
	}
	m, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return Decimal{}, fmt.Errorf("decimal: invalid literal %q", s)
	}
	if m.Sign() < 0 {
		return Decimal{}, fmt.Errorf("decimal: negative literal %q not representable", s)
	}
	if m.Cmp(maxMantissa) > 0 {
		return Decimal{}, fmt.Errorf("decimal: literal %q overflows mantissa", s)
	}
	scale := 0
	if hasFrac {
		scale = len(fracPart)
	}
	if scale > 255 {
		return Decimal{}, fmt.Errorf("decimal: scale %d exceeds a byte", scale)
	}
	return Decimal{Mantissa: m, Scale: uint8(scale)}, nil
}
