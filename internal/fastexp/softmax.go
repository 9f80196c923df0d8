package fastexp

import "github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"

// Shifted logits below this floor underflow to zero probability anyway.
const logitFloor = -16 << fixed.Frac

// #region softmax
// Softmax writes the normalized distribution of logits into dst. dst may
// alias logits. It does nothing when logits is empty or dst is too short.
//
// Entries are rounded down independently, so the sum can fall a few units
// short of fixed.One.
func Softmax(dst, logits []fixed.Scalar) {
	n := len(logits)
	if n == 0 || len(dst) < n {
		return
	}
	dst = dst[:n]

	m := logits[0]
	for _, v := range logits[1:] {
		if v > m {
			m = v
		}
	}

	var sum uint64
	for i, v := range logits {
		d := int64(v) - int64(m)
		if d < logitFloor {
			d = logitFloor
		}
		e := Exp(fixed.Scalar(d))
		dst[i] = e
		sum += uint64(uint32(e))
	}
	normalize(dst, sum)
}

// normalize turns the exponentials held in p into probabilities. A zero sum
// means every term underflowed; the distribution falls back to uniform.
func normalize(p []fixed.Scalar, sum uint64) {
	if sum == 0 {
		u := fixed.One / fixed.Scalar(len(p))
		for i := range p {
			p[i] = u
		}
		return
	}
	for i, e := range p {
		p[i] = fixed.Scalar((uint64(uint32(e)) << fixed.Frac) / sum)
	}
}

// #endregion softmax
