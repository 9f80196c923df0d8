package state

import (
	"time"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/network"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/policy"
)

// #region snapshot-record
// SnapshotRecord is a stored copy of a running policy's parameters. Records
// are written for inspection only; a policy never starts from one.
type SnapshotRecord struct {
	SnapshotID  string
	Params      network.Params
	Baseline    fixed.Scalar
	Decisions   uint64
	Rewards     uint64
	CreatedAt   time.Time
	MetricsJSON string
}

// PolicySnapshot converts the record back into the form policy renders.
func (r SnapshotRecord) PolicySnapshot() policy.Snapshot {
	return policy.Snapshot{
		Params:    r.Params,
		Baseline:  r.Baseline,
		Decisions: r.Decisions,
		Rewards:   r.Rewards,
	}
}

// #endregion snapshot-record
