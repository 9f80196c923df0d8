package fixed

import "math"

// #region scalar
// Scalar is a signed Q16.16 fixed-point value: the real number Scalar / 2^16.
type Scalar int32

const (
	// Frac is the number of fractional bits.
	Frac = 16

	One  Scalar = 1 << Frac
	Half Scalar = 1 << (Frac - 1)
	Max  Scalar = math.MaxInt32
	Min  Scalar = math.MinInt32
)

// #endregion scalar

// #region clamp
// Clamp narrows a 64-bit intermediate into the Scalar range.
func Clamp(v int64) Scalar {
	if v > int64(Max) {
		return Max
	}
	if v < int64(Min) {
		return Min
	}
	return Scalar(v)
}

// #endregion clamp

// #region arithmetic
// Mul multiplies through a 64-bit product and truncates back to 32 bits.
// It wraps on overflow; only use it where the caller bounds the inputs.
func Mul(a, b Scalar) Scalar {
	return Scalar((int64(a) * int64(b)) >> Frac)
}

// MulSat is Mul with the 64-bit product clamped before truncation.
func MulSat(a, b Scalar) Scalar {
	return Clamp((int64(a) * int64(b)) >> Frac)
}

// AddSat adds in 64 bits and clamps.
func AddSat(a, b Scalar) Scalar {
	return Clamp(int64(a) + int64(b))
}

// SubSat subtracts in 64 bits and clamps.
func SubSat(a, b Scalar) Scalar {
	return Clamp(int64(a) - int64(b))
}

// NegSat negates, mapping Min to Max.
func NegSat(a Scalar) Scalar {
	return Clamp(-int64(a))
}

// Shift rescales by 2^n: arithmetic left shift for n >= 0, arithmetic right
// shift otherwise. Left shifts wrap; callers bound n and x.
func Shift(x Scalar, n int) Scalar {
	if n >= 0 {
		return x << n
	}
	return x >> -n
}

// #endregion arithmetic

// #region conversions
// FromInt converts a whole number, saturating outside [-32768, 32767].
func FromInt(i int64) Scalar {
	if i > int64(Max>>Frac) {
		return Max
	}
	if i < int64(Min>>Frac) {
		return Min
	}
	return Scalar(i << Frac)
}

// FromNanosToMillis converts a duration in nanoseconds into whole
// milliseconds in Q16.16. The sub-millisecond remainder is dropped.
func FromNanosToMillis(ns uint64) Scalar {
	ms := ns / 1_000_000
	if ms > uint64(Max>>Frac) {
		return Max
	}
	return Scalar(ms << Frac)
}

// Int returns the integer part, rounded toward negative infinity.
func (s Scalar) Int() int32 {
	return int32(s) >> Frac
}

// #endregion conversions
