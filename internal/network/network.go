// Package network implements the fixed 2-15-11 perceptron that scores
// niceness actions.
package network

import (
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fastexp"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
)

// #region network
// Network is the parameter set plus the activations left by the last forward
// pass. The zero value is an untrained network with all parameters at 0.
//
// Network is not safe for concurrent use.
type Network struct {
	Params

	hidden [Hidden]fixed.Scalar // post-ReLU
	logits [Outputs]fixed.Scalar
	probs  Probabilities
}

// New returns a network initialised from p.
func New(p Params) *Network {
	return &Network{Params: p}
}

// #endregion network

// #region forward
// Forward runs the input through both layers and the softmax, and keeps the
// hidden activations and probabilities for a later backward pass.
func (n *Network) Forward(x State) Probabilities {
	dense(n.hidden[:], x[:], n.W1[:], n.B1[:])
	relu(n.hidden[:])
	dense(n.logits[:], n.hidden[:], n.W2[:], n.B2[:])
	fastexp.Softmax(n.probs[:], n.logits[:])
	return n.probs
}

// #endregion forward

// #region snapshot
// Hidden returns the post-ReLU hidden activations of the last forward pass.
func (n *Network) Hidden() [Hidden]fixed.Scalar { return n.hidden }

// Logits returns the raw output-layer values of the last forward pass.
func (n *Network) Logits() [Outputs]fixed.Scalar { return n.logits }

// Probabilities returns the output of the last forward pass.
func (n *Network) Probabilities() Probabilities { return n.probs }

// #endregion snapshot

// #region layers
// dense computes z = b + W·x with one 64-bit accumulator per row, clamped
// once at the end. len(z) is the row count, len(x) the column count.
func dense(z, x, w, b []fixed.Scalar) {
	cols := len(x)
	for r := range z {
		acc := int64(b[r])
		row := w[r*cols : (r+1)*cols]
		for c, wv := range row {
			acc += (int64(wv) * int64(x[c])) >> fixed.Frac
		}
		z[r] = fixed.Clamp(acc)
	}
}

func relu(v []fixed.Scalar) {
	for i, x := range v {
		if x < 0 {
			v[i] = 0
		}
	}
}

// #endregion layers
