package policy

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/network"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/update"
)

// #region errors
// ErrInvalidAction is returned by Reward for an action index outside [0, 10].
var ErrInvalidAction = errors.New("policy: action index out of range")

// #endregion errors

// #region staleness
// Staleness selects which activations the backward pass of Reward sees.
type Staleness int

const (
	// StalenessLastSnapshot reuses whatever the most recent forward pass left
	// behind. Cheapest; wrong if other decisions ran since the rewarded one.
	StalenessLastSnapshot Staleness = iota
	// StalenessReforward re-runs the forward pass on the rewarded state inside
	// the same critical section, so the gradient always matches that state
	// under the current parameters.
	StalenessReforward
)

func (s Staleness) String() string {
	switch s {
	case StalenessLastSnapshot:
		return "snapshot"
	case StalenessReforward:
		return "reforward"
	default:
		return fmt.Sprintf("staleness(%d)", int(s))
	}
}

// ParseStaleness accepts the names produced by Staleness.String.
func ParseStaleness(s string) (Staleness, error) {
	switch s {
	case "snapshot", "":
		return StalenessLastSnapshot, nil
	case "reforward":
		return StalenessReforward, nil
	default:
		return 0, fmt.Errorf("unknown staleness policy %q", s)
	}
}

// #endregion staleness

// #region config
// Config holds the reward weights, the staleness policy and the learning
// constants.
type Config struct {
	Staleness Staleness

	// Cost weights per millisecond. Reward is the negated cost.
	WaitWeight       fixed.Scalar
	RunWeight        fixed.Scalar
	TurnaroundWeight fixed.Scalar

	Update update.UpdateConfig
}

// DefaultConfig penalises waiting and turnaround and credits run time.
func DefaultConfig() Config {
	return Config{
		Staleness:        StalenessLastSnapshot,
		WaitWeight:       3 * fixed.One,
		RunWeight:        -fixed.One,
		TurnaroundWeight: 2 * fixed.One,
		Update:           update.DefaultUpdateConfig(),
	}
}

// #endregion config

// #region decision
// Decision is the action picked for one state, its niceness offset and the
// distribution it was picked from. Seq is the position of the call in the
// order the policy applied decisions and rewards.
type Decision struct {
	Seq           uint64
	Action        int
	Niceness      int
	Probabilities network.Probabilities
}

// RewardResult reports what one Reward call fed into the learner. Seq shares
// the counter with Decision.Seq.
type RewardResult struct {
	Seq       uint64
	Cost      fixed.Scalar
	Reward    fixed.Scalar
	Baseline  fixed.Scalar
	Advantage fixed.Scalar
}

// #endregion decision

// #region snapshot
// Snapshot is a consistent copy of the learned state.
type Snapshot struct {
	Params    network.Params
	Baseline  fixed.Scalar
	Decisions uint64
	Rewards   uint64
}

// #endregion snapshot
