package network

import "github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"

// #region topology
const (
	Inputs  = 2
	Hidden  = 15
	Outputs = 11
)

// #endregion topology

// #region vectors
// State is the network input: two process-state measurements.
type State [Inputs]fixed.Scalar

// Probabilities is the softmax output, one entry per action.
type Probabilities [Outputs]fixed.Scalar

// #endregion vectors

// #region params
// Params holds every learned value. Matrices are row-major: W1 has one row of
// Inputs weights per hidden unit, W2 one row of Hidden weights per output.
type Params struct {
	W1 [Hidden * Inputs]fixed.Scalar
	B1 [Hidden]fixed.Scalar
	W2 [Outputs * Hidden]fixed.Scalar
	B2 [Outputs]fixed.Scalar
}

// #endregion params
