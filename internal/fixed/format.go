package fixed

import "strconv"

// #region decimal
// AppendDecimal appends s as a decimal with exactly four fractional digits.
// The fraction is truncated, not rounded.
func AppendDecimal(dst []byte, s Scalar) []byte {
	v := int64(s)
	if v < 0 {
		dst = append(dst, '-')
		v = -v
	}
	dst = strconv.AppendInt(dst, v>>Frac, 10)
	dst = append(dst, '.')

	frac := ((v & (int64(One) - 1)) * 10000) >> Frac
	for div := int64(1000); div > 0; div /= 10 {
		dst = append(dst, byte('0'+frac/div%10))
	}
	return dst
}

// String renders s with four fractional digits, e.g. "-0.5000".
func (s Scalar) String() string {
	var buf [24]byte
	return string(AppendDecimal(buf[:0], s))
}

// #endregion decimal
