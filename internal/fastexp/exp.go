// Package fastexp approximates exp(x) in Q16.16 and builds a numerically
// stable softmax on top of it.
package fastexp

import "github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"

// #region constants
const (
	invLn2 fixed.Scalar = 94603 // 1/ln(2)

	// Taylor coefficients of 2^f around 0: ln2^n / n!.
	c1 fixed.Scalar = 45426
	c2 fixed.Scalar = 15739
	c3 fixed.Scalar = 3640
	c4 fixed.Scalar = 630

	// Exponent range accepted by Exp2 after base-2 reduction.
	yLimit fixed.Scalar = 30 << fixed.Frac
)

// #endregion constants

// #region exp2
// exp2Frac evaluates 2^f for f in [0, 1) with a degree-4 Horner polynomial.
// The result lies in [1, 2).
func exp2Frac(f fixed.Scalar) fixed.Scalar {
	t := fixed.Mul(c4, f)
	t = fixed.Mul(t+c3, f)
	t = fixed.Mul(t+c2, f)
	t = fixed.Mul(t+c1, f)
	return t + fixed.One
}

// Exp2 approximates 2^y. Results too small to represent are 0, results too
// large saturate to fixed.Max.
func Exp2(y fixed.Scalar) fixed.Scalar {
	k := int32(y) >> fixed.Frac
	f := y - fixed.Scalar(k<<fixed.Frac)
	if f < 0 {
		f += fixed.One
		k--
	}
	if k <= -31 {
		return 0
	}
	if k >= 31 {
		return fixed.Max
	}

	frac := exp2Frac(f)
	if k > 0 && frac > fixed.Max>>k {
		return fixed.Max
	}
	return fixed.Shift(frac, int(k))
}

// #endregion exp2

// #region exp
// Exp approximates e^x by rewriting it as 2^(x/ln2).
func Exp(x fixed.Scalar) fixed.Scalar {
	y := fixed.MulSat(x, invLn2)
	if y < -yLimit {
		y = -yLimit
	}
	if y > yLimit {
		y = yLimit
	}
	return Exp2(y)
}

// #endregion exp
