package policy

import (
	"io"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/network"
)

// #region dump
// WriteTo renders the snapshot as text, one matrix row or bias vector per
// line, values with four fractional digits:
//
//	W1[0]: 0.0000 0.0000
//	...
//	B2: 0.0000 ... 0.0000
//	baseline: 0.0000
func (s Snapshot) WriteTo(w io.Writer) (int64, error) {
	var buf []byte
	for r := 0; r < network.Hidden; r++ {
		buf = appendRow(buf, "W1", r, s.Params.W1[r*network.Inputs:(r+1)*network.Inputs])
	}
	buf = appendRow(buf, "B1", -1, s.Params.B1[:])
	for r := 0; r < network.Outputs; r++ {
		buf = appendRow(buf, "W2", r, s.Params.W2[r*network.Hidden:(r+1)*network.Hidden])
	}
	buf = appendRow(buf, "B2", -1, s.Params.B2[:])
	buf = append(buf, "baseline: "...)
	buf = fixed.AppendDecimal(buf, s.Baseline)
	buf = append(buf, '\n')

	n, err := w.Write(buf)
	return int64(n), err
}

// String returns the WriteTo rendering.
func (s Snapshot) String() string {
	var sb strings.Builder
	s.WriteTo(&sb)
	return sb.String()
}

func appendRow(buf []byte, name string, row int, vals []fixed.Scalar) []byte {
	buf = append(buf, name...)
	if row >= 0 {
		buf = append(buf, '[')
		buf = strconv.AppendInt(buf, int64(row), 10)
		buf = append(buf, ']')
	}
	buf = append(buf, ':')
	for _, v := range vals {
		buf = append(buf, ' ')
		buf = fixed.AppendDecimal(buf, v)
	}
	return append(buf, '\n')
}

// #endregion dump
