// Package policy maps process state to a niceness offset and learns from the
// scheduling outcome of each decision.
package policy

import (
	"sync"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/network"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/update"
)

// #region nice-table
var niceValues = [network.Outputs]int{-5, -4, -3, -2, -1, 0, 1, 2, 3, 4, 5}

// NicenessFor returns the niceness offset of an action index.
func NicenessFor(action int) (int, bool) {
	if action < 0 || action >= network.Outputs {
		return 0, false
	}
	return niceValues[action], true
}

// ActionFor is the inverse of NicenessFor.
func ActionFor(niceness int) (int, bool) {
	action := niceness - niceValues[0]
	if action < 0 || action >= network.Outputs {
		return 0, false
	}
	return action, true
}

// #endregion nice-table

// #region policy
// Policy is one scheduling domain's network, baseline and lock. All methods
// are safe for concurrent use; each holds the lock only for a fixed amount of
// arithmetic and never blocks inside it.
type Policy struct {
	config Config

	mu        sync.Mutex
	net       network.Network
	learner   *update.Learner
	decisions uint64
	rewards   uint64
	seq       uint64 // bumped by every applied Decide and Reward
}

// New returns an untrained policy: every parameter and the baseline are 0.
func New(config Config) *Policy {
	return NewFromParams(config, network.Params{})
}

// NewFromParams starts from the given parameters instead of zeros.
func NewFromParams(config Config, params network.Params) *Policy {
	return &Policy{
		config:  config,
		net:     network.Network{Params: params},
		learner: update.NewLearner(config.Update),
	}
}

// Config returns the configuration the policy was built with.
func (p *Policy) Config() Config {
	return p.config
}

// #endregion policy

// #region decide
// Decide runs the network on (s0, s1) and returns the most probable action.
// The activations it leaves behind are what a later Reward trains on unless
// the policy re-runs the forward pass.
func (p *Policy) Decide(s0, s1 fixed.Scalar) Decision {
	p.mu.Lock()
	probs := p.net.Forward(network.State{s0, s1})
	p.decisions++
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	action := Argmax(probs)
	return Decision{Seq: seq, Action: action, Niceness: niceValues[action], Probabilities: probs}
}

// Evaluate runs the forward pass and returns the whole distribution. Like
// Decide, it replaces the stored activations.
func (p *Policy) Evaluate(s0, s1 fixed.Scalar) network.Probabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.net.Forward(network.State{s0, s1})
}

// Argmax returns the index of the largest probability; ties go to the lowest
// index.
func Argmax(probs network.Probabilities) int {
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return best
}

// #endregion decide

// #region reward
// ComputeReward turns observed timings into a cost and the reward -cost.
// Durations are truncated to whole milliseconds.
func ComputeReward(config Config, waitNs, runNs, turnaroundNs uint64) (cost, reward fixed.Scalar) {
	cost = fixed.MulSat(fixed.FromNanosToMillis(waitNs), config.WaitWeight)
	cost = fixed.AddSat(cost, fixed.MulSat(fixed.FromNanosToMillis(runNs), config.RunWeight))
	cost = fixed.AddSat(cost, fixed.MulSat(fixed.FromNanosToMillis(turnaroundNs), config.TurnaroundWeight))
	return cost, fixed.NegSat(cost)
}

// Reward scores the outcome of action taken in state (s0, s1) and applies
// one policy-gradient step. It returns ErrInvalidAction without touching any
// state when action is outside [0, 10].
func (p *Policy) Reward(s0, s1 fixed.Scalar, action int, waitNs, runNs, turnaroundNs uint64) (RewardResult, error) {
	if action < 0 || action >= network.Outputs {
		return RewardResult{}, ErrInvalidAction
	}
	cost, reward := ComputeReward(p.config, waitNs, runNs, turnaroundNs)
	x := network.State{s0, s1}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.Staleness == StalenessReforward {
		p.net.Forward(x)
	}
	res := p.learner.Apply(&p.net, x, action, reward)
	p.rewards++
	p.seq++

	return RewardResult{
		Seq:       p.seq,
		Cost:      cost,
		Reward:    res.Reward,
		Baseline:  res.Baseline,
		Advantage: res.Advantage,
	}, nil
}

// #endregion reward

// #region snapshot
// Snapshot copies the parameters and baseline under the lock, so no row is
// ever observed half-updated.
func (p *Policy) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		Params:    p.net.Params,
		Baseline:  p.learner.Baseline(),
		Decisions: p.decisions,
		Rewards:   p.rewards,
	}
}

// #endregion snapshot
