package update

import "github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"

// #region update-config
// UpdateConfig holds the constants of the policy-gradient step.
type UpdateConfig struct {
	LearningRate  fixed.Scalar // step size (default ~0.001)
	BaselineDecay fixed.Scalar // share of the old baseline kept per reward (default ~0.9)
	BaselineGain  fixed.Scalar // share of the new reward blended in (default ~0.1)
}

// DefaultUpdateConfig returns the constants the scheduler hook ships with.
func DefaultUpdateConfig() UpdateConfig {
	return UpdateConfig{
		LearningRate:  66,
		BaselineDecay: 58982,
		BaselineGain:  6554,
	}
}

// #endregion update-config

// #region update-result
// UpdateResult reports the reinforcement signal of one Apply call.
type UpdateResult struct {
	Reward    fixed.Scalar
	Baseline  fixed.Scalar // after this reward was blended in
	Advantage fixed.Scalar // Reward - Baseline
}

// #endregion update-result
