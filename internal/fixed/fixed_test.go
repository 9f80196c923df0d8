package fixed

import (
	"math"
	"testing"
)

// #region saturation-tests
var edgeValues = []Scalar{
	Min, Min + 1, -One * 1000, -One, -Half, -1, 0, 1, Half, One, One * 1000, Max - 1, Max,
}

func TestMulSatStaysInRange(t *testing.T) {
	for _, a := range edgeValues {
		for _, b := range edgeValues {
			want := (int64(a) * int64(b)) >> Frac
			got := MulSat(a, b)
			switch {
			case want > math.MaxInt32:
				if got != Max {
					t.Fatalf("MulSat(%d, %d) = %d, want Max", a, b, got)
				}
			case want < math.MinInt32:
				if got != Min {
					t.Fatalf("MulSat(%d, %d) = %d, want Min", a, b, got)
				}
			default:
				if int64(got) != want {
					t.Fatalf("MulSat(%d, %d) = %d, want %d", a, b, got, want)
				}
			}
		}
	}
}

func TestAddSatStaysInRange(t *testing.T) {
	for _, a := range edgeValues {
		for _, b := range edgeValues {
			want := int64(a) + int64(b)
			got := AddSat(a, b)
			switch {
			case want > math.MaxInt32:
				if got != Max {
					t.Fatalf("AddSat(%d, %d) = %d, want Max", a, b, got)
				}
			case want < math.MinInt32:
				if got != Min {
					t.Fatalf("AddSat(%d, %d) = %d, want Min", a, b, got)
				}
			default:
				if int64(got) != want {
					t.Fatalf("AddSat(%d, %d) = %d, want %d", a, b, got, want)
				}
			}
		}
	}
}

func TestSubAndNegSat(t *testing.T) {
	if got := SubSat(Min, One); got != Min {
		t.Fatalf("SubSat(Min, One) = %d, want Min", got)
	}
	if got := SubSat(Max, -One); got != Max {
		t.Fatalf("SubSat(Max, -One) = %d, want Max", got)
	}
	if got := SubSat(3*One, One); got != 2*One {
		t.Fatalf("SubSat(3, 1) = %d, want %d", got, 2*One)
	}
	if got := NegSat(Min); got != Max {
		t.Fatalf("NegSat(Min) = %d, want Max", got)
	}
	if got := NegSat(One); got != -One {
		t.Fatalf("NegSat(One) = %d, want -One", got)
	}
}

// #endregion saturation-tests

// #region mul-tests
func TestMulExact(t *testing.T) {
	cases := []struct {
		a, b, want Scalar
	}{
		{One, One, One},
		{2 * One, 3 * One, 6 * One},
		{Half, Half, One / 4},
		{-Half, 2 * One, -One},
		{3 * One, 0, 0},
	}
	for _, c := range cases {
		if got := Mul(c.a, c.b); got != c.want {
			t.Errorf("Mul(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
		if got := MulSat(c.a, c.b); got != c.want {
			t.Errorf("MulSat(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestMulWraps(t *testing.T) {
	// 256 * 256 = 65536.0 is exactly 2^32 raw; the low 32 bits are zero.
	a := Scalar(256 << Frac)
	if got := Mul(a, a); got != 0 {
		t.Fatalf("Mul wrap = %d, want 0", got)
	}
	if got := MulSat(a, a); got != Max {
		t.Fatalf("MulSat = %d, want Max", got)
	}
}

// #endregion mul-tests

// #region shift-tests
func TestShift(t *testing.T) {
	if got := Shift(One, 3); got != 8*One {
		t.Fatalf("Shift(One, 3) = %d", got)
	}
	if got := Shift(One, -2); got != One/4 {
		t.Fatalf("Shift(One, -2) = %d", got)
	}
	if got := Shift(-One, -1); got != -Half {
		t.Fatalf("Shift(-One, -1) = %d", got)
	}
	if got := Shift(-1, -5); got != -1 {
		t.Fatalf("arithmetic shift of -1 should stay -1, got %d", got)
	}
}

// #endregion shift-tests

// #region conversion-tests
func TestFromInt(t *testing.T) {
	if got := FromInt(5); got != 5*One {
		t.Fatalf("FromInt(5) = %d", got)
	}
	if got := FromInt(-7); got != -7*One {
		t.Fatalf("FromInt(-7) = %d", got)
	}
	if got := FromInt(40000); got != Max {
		t.Fatalf("FromInt(40000) = %d, want Max", got)
	}
	if got := FromInt(-40000); got != Min {
		t.Fatalf("FromInt(-40000) = %d, want Min", got)
	}
}

func TestFromNanosToMillis(t *testing.T) {
	cases := []struct {
		ns   uint64
		want Scalar
	}{
		{0, 0},
		{999_999, 0},
		{1_000_000, One},
		{3_500_000, 3 * One},
		{32_767_000_000, 32767 * One},
		{32_768_000_000, Max},
		{math.MaxUint64, Max},
	}
	for _, c := range cases {
		if got := FromNanosToMillis(c.ns); got != c.want {
			t.Errorf("FromNanosToMillis(%d) = %d, want %d", c.ns, got, c.want)
		}
	}
}

func TestString(t *testing.T) {
	cases := []struct {
		in   Scalar
		want string
	}{
		{0, "0.0000"},
		{One, "1.0000"},
		{-Half, "-0.5000"},
		{One + One/4, "1.2500"},
		{-3 * One, "-3.0000"},
		{66, "0.0010"},
		{Max, "32767.9999"},
		{Min, "-32768.0000"},
	}
	for _, c := range cases {
		if got := c.in.String(); got != c.want {
			t.Errorf("Scalar(%d).String() = %q, want %q", int32(c.in), got, c.want)
		}
	}
}

// #endregion conversion-tests
