// Package update implements REINFORCE with a moving-average baseline over the
// fixed-point network.
package update

import (
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/network"
)

// #region learner
// Learner owns the reward baseline and applies gradient steps to a network.
// It is not safe for concurrent use; callers serialise it with the network.
type Learner struct {
	config   UpdateConfig
	baseline fixed.Scalar
}

// NewLearner creates a learner with a zero baseline.
func NewLearner(config UpdateConfig) *Learner {
	return &Learner{config: config}
}

// Baseline returns the current moving average of rewards.
func (l *Learner) Baseline() fixed.Scalar {
	return l.baseline
}

// Config returns the constants the learner was built with.
func (l *Learner) Config() UpdateConfig {
	return l.config
}

// #endregion learner

// #region apply
// Apply blends reward into the baseline and moves every parameter of net so
// that action becomes more likely when the reward beat the baseline and less
// likely when it fell short.
//
// The gradient is taken against the hidden activations and probabilities of
// net's most recent Forward call, not against x. If another state went
// through the network since the rewarded decision, the step is computed on
// those newer activations. x only feeds the first-layer weight step.
//
// action must be in [0, network.Outputs); an out-of-range action trains
// every output as if it had not been taken.
func (l *Learner) Apply(net *network.Network, x network.State, action int, reward fixed.Scalar) UpdateResult {
	// Both products floor, so under a constant reward the baseline settles a
	// few units below it when positive and a few units past it when negative.
	l.baseline = fixed.AddSat(
		fixed.MulSat(l.baseline, l.config.BaselineDecay),
		fixed.MulSat(reward, l.config.BaselineGain),
	)
	advantage := fixed.SubSat(reward, l.baseline)

	probs := net.Probabilities()
	hidden := net.Hidden()

	// dLoss/dLogit for cross-entropy against the taken action, scaled by advantage.
	var gradOut [network.Outputs]fixed.Scalar
	for i, p := range probs {
		g := p
		if i == action {
			g -= fixed.One
		}
		gradOut[i] = fixed.MulSat(g, advantage)
	}

	var gradHidden [network.Hidden]fixed.Scalar
	for h := range gradHidden {
		// ReLU passes no gradient where the unit was off.
		if hidden[h] <= 0 {
			continue
		}
		var acc int64
		for o, g := range gradOut {
			acc += (int64(net.W2[o*network.Hidden+h]) * int64(g)) >> fixed.Frac
		}
		gradHidden[h] = fixed.Clamp(acc)
	}

	lr := l.config.LearningRate
	stepBias(net.B2[:], gradOut[:], lr)
	stepWeights(net.W2[:], gradOut[:], hidden[:], lr)
	stepBias(net.B1[:], gradHidden[:], lr)
	stepWeights(net.W1[:], gradHidden[:], x[:], lr)

	return UpdateResult{
		Reward:    reward,
		Baseline:  l.baseline,
		Advantage: advantage,
	}
}

// #endregion apply

// #region steps
// stepBias descends: grad is dLoss/dParam, so the step is param - lr*grad.
func stepBias(b, grad []fixed.Scalar, lr fixed.Scalar) {
	for i, g := range grad {
		b[i] = fixed.SubSat(b[i], fixed.MulSat(lr, g))
	}
}

// stepWeights descends a row-major weight matrix; row r, column c moves by
// lr * grad[r] * input[c].
func stepWeights(w, grad, input []fixed.Scalar, lr fixed.Scalar) {
	cols := len(input)
	for r, g := range grad {
		row := w[r*cols : (r+1)*cols]
		for c, in := range input {
			row[c] = fixed.SubSat(row[c], fixed.MulSat(lr, fixed.MulSat(g, in)))
		}
	}
}

// #endregion steps
