package logging

import (
	"time"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/network"
)

// #region decision-entry
// DecisionEntry is a single row in the decision_log table. Seq orders it
// against rewards the way the policy applied them.
type DecisionEntry struct {
	DecisionID    string
	Seq           uint64
	S0, S1        fixed.Scalar
	Action        int
	Niceness      int
	Probabilities network.Probabilities
	CreatedAt     time.Time
}

// #endregion decision-entry

// #region reward-entry
// RewardEntry is a single row in the reward_log table. DecisionID is empty
// when the caller did not say which decision earned the reward.
type RewardEntry struct {
	DecisionID   string
	Seq          uint64
	S0, S1       fixed.Scalar
	Action       int
	WaitNs       uint64
	RunNs        uint64
	TurnaroundNs uint64
	Cost         fixed.Scalar
	Reward       fixed.Scalar
	Baseline     fixed.Scalar
	Advantage    fixed.Scalar
	CreatedAt    time.Time
}

// #endregion reward-entry

// #region history-entry
// HistoryEntry is one decision or reward in the order the policy applied
// them. Niceness is set for decisions; the timings, reward and baseline for
// rewards.
type HistoryEntry struct {
	Kind         string // "decide" | "reward"
	DecisionID   string
	Seq          uint64
	S0, S1       fixed.Scalar
	Action       int
	Niceness     int
	WaitNs       uint64
	RunNs        uint64
	TurnaroundNs uint64
	Reward       fixed.Scalar
	Baseline     fixed.Scalar
	CreatedAt    time.Time
}

// #endregion history-entry
