package fastexp

import (
	"math"
	"testing"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
)

func toFloat(s fixed.Scalar) float64 {
	return float64(s) / float64(fixed.One)
}

// #region exp-tests
func TestExpZeroIsOne(t *testing.T) {
	if got := Exp(0); got != fixed.One {
		t.Fatalf("Exp(0) = %d, want %d", got, fixed.One)
	}
}

func TestExpAccuracy(t *testing.T) {
	for x := -8 * fixed.One; x <= 8*fixed.One; x += fixed.One / 4 {
		got := Exp(x)
		want := math.Exp(toFloat(x)) * float64(fixed.One)
		tol := want*0.005 + 4
		if math.Abs(float64(got)-want) > tol {
			t.Fatalf("Exp(%s) = %d, want %.1f (tol %.1f)", x, got, want, tol)
		}
	}
}

func TestExpMonotonic(t *testing.T) {
	prev := Exp(-16 * fixed.One)
	for x := -16*fixed.One + fixed.One/8; x <= 10*fixed.One; x += fixed.One / 8 {
		cur := Exp(x)
		if cur < prev {
			t.Fatalf("Exp not monotonic at %s: %d < %d", x, cur, prev)
		}
		prev = cur
	}
}

func TestExpSaturates(t *testing.T) {
	if got := Exp(20 * fixed.One); got != fixed.Max {
		t.Fatalf("Exp(20) = %d, want Max", got)
	}
	if got := Exp(fixed.Max); got != fixed.Max {
		t.Fatalf("Exp(Max) = %d, want Max", got)
	}
	if got := Exp(-30 * fixed.One); got != 0 {
		t.Fatalf("Exp(-30) = %d, want 0", got)
	}
	if got := Exp(fixed.Min); got != 0 {
		t.Fatalf("Exp(Min) = %d, want 0", got)
	}
}

func TestExp2Edges(t *testing.T) {
	if got := Exp2(-31 * fixed.One); got != 0 {
		t.Fatalf("Exp2(-31) = %d, want 0", got)
	}
	if got := Exp2(31 * fixed.One); got != fixed.Max {
		t.Fatalf("Exp2(31) = %d, want Max", got)
	}
	if got := Exp2(3 * fixed.One); got != 8*fixed.One {
		t.Fatalf("Exp2(3) = %d, want %d", got, 8*fixed.One)
	}
	if got := Exp2(-fixed.One); got != fixed.Half {
		t.Fatalf("Exp2(-1) = %d, want %d", got, fixed.Half)
	}
	// 2^15 * 2^0.99 does not fit in Q16.16.
	if got := Exp2(15*fixed.One + 64880); got != fixed.Max {
		t.Fatalf("Exp2(15.99) = %d, want Max", got)
	}
}

func TestExp2FracRange(t *testing.T) {
	for f := fixed.Scalar(0); f < fixed.One; f += 97 {
		v := exp2Frac(f)
		if v < fixed.One || v >= 2*fixed.One {
			t.Fatalf("exp2Frac(%d) = %d, outside [1, 2)", f, v)
		}
	}
}

// #endregion exp-tests
