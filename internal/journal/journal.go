// Package journal records what the transports did to the policy: provenance
// rows, Prometheus counters and periodic parameter snapshots.
package journal

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/codec"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/eval"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/logging"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/metrics"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/policy"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/state"
)

// #region config
// Config controls snapshot cadence and the health checks run on each one.
type Config struct {
	SnapshotEvery int // rewards between snapshots; 0 disables automatic snapshots
	Eval          eval.EvalConfig
}

// DefaultConfig snapshots every 1000 rewards.
func DefaultConfig() Config {
	return Config{
		SnapshotEvery: 1000,
		Eval:          eval.DefaultEvalConfig(),
	}
}

// #endregion config

// #region journal-struct
// Journal implements codec.Observer. Failures are logged, never returned to
// the transport: a broken journal must not stop the policy from serving.
type Journal struct {
	config  Config
	policy  *policy.Policy
	store   *state.Store
	metrics *metrics.Metrics
	harness *eval.EvalHarness
	seqBase uint64 // highest seq logged before this process started

	mu           sync.Mutex
	sinceCommit  int
	lastSnapshot string
}

var _ codec.Observer = (*Journal)(nil)

// New wires a journal. m may be nil when metrics are not exported. Sequence
// numbers continue after the highest one already in the store, so rows from
// earlier runs stay ahead of this one.
func New(config Config, p *policy.Policy, store *state.Store, m *metrics.Metrics) (*Journal, error) {
	base, err := logging.MaxSeq(store.DB())
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &Journal{
		config:  config,
		policy:  p,
		store:   store,
		metrics: m,
		harness: eval.NewEvalHarness(config.Eval),
		seqBase: base,
	}, nil
}

// #endregion journal-struct

// #region observe
// ObserveDecision logs one decision.
func (j *Journal) ObserveDecision(id string, req codec.DecideRequest, d policy.Decision) {
	if j.metrics != nil {
		j.metrics.ObserveDecision(d)
	}
	err := logging.LogDecision(j.store.DB(), logging.DecisionEntry{
		DecisionID:    id,
		Seq:           j.seqBase + d.Seq,
		S0:            req.S0,
		S1:            req.S1,
		Action:        d.Action,
		Niceness:      d.Niceness,
		Probabilities: d.Probabilities,
	})
	if err != nil {
		log.Printf("[JOURNAL] %v", err)
	}
}

// ObserveReward logs one applied reward and snapshots when the cadence is
// reached.
func (j *Journal) ObserveReward(req codec.RewardRequest, res policy.RewardResult) {
	if j.metrics != nil {
		j.metrics.ObserveReward(res)
	}
	err := logging.LogReward(j.store.DB(), logging.RewardEntry{
		DecisionID:   req.DecisionID,
		Seq:          j.seqBase + res.Seq,
		S0:           req.S0,
		S1:           req.S1,
		Action:       req.Action,
		WaitNs:       req.WaitNs,
		RunNs:        req.RunNs,
		TurnaroundNs: req.TurnaroundNs,
		Cost:         res.Cost,
		Reward:       res.Reward,
		Baseline:     res.Baseline,
		Advantage:    res.Advantage,
	})
	if err != nil {
		log.Printf("[JOURNAL] %v", err)
	}

	if j.config.SnapshotEvery <= 0 {
		return
	}
	j.mu.Lock()
	j.sinceCommit++
	due := j.sinceCommit >= j.config.SnapshotEvery
	if due {
		j.sinceCommit = 0
	}
	j.mu.Unlock()

	if due {
		if _, err := j.Checkpoint(); err != nil {
			log.Printf("[JOURNAL] %v", err)
		}
	}
}

// ObserveRejected counts a reward the policy refused.
func (j *Journal) ObserveRejected(req codec.RewardRequest, err error) {
	if j.metrics != nil {
		j.metrics.ObserveRejected()
	}
	log.Printf("[JOURNAL] rejected reward: decision=%q action=%d: %v", req.DecisionID, req.Action, err)
}

// #endregion observe

// #region checkpoint
// Checkpoint evaluates the current parameters and stores them with the eval
// result attached.
func (j *Journal) Checkpoint() (state.SnapshotRecord, error) {
	snap := j.policy.Snapshot()
	res := j.harness.Run(snap)

	metricsJSON, err := json.Marshal(res)
	if err != nil {
		return state.SnapshotRecord{}, fmt.Errorf("marshal eval: %w", err)
	}
	rec, err := j.store.CommitSnapshot(snap, string(metricsJSON))
	if err != nil {
		return state.SnapshotRecord{}, fmt.Errorf("checkpoint: %w", err)
	}
	if j.metrics != nil {
		j.metrics.ObserveSnapshot(res.Passed)
	}

	j.mu.Lock()
	j.lastSnapshot = rec.SnapshotID
	j.mu.Unlock()

	if res.Passed {
		log.Printf("[JOURNAL] snapshot %s: %d decisions, %d rewards, baseline %s",
			rec.SnapshotID, rec.Decisions, rec.Rewards, rec.Baseline)
	} else {
		log.Printf("[JOURNAL] snapshot %s failed eval: %s", rec.SnapshotID, res.Reason)
	}
	return rec, nil
}

// LastSnapshot returns the ID of the most recent checkpoint, or "".
func (j *Journal) LastSnapshot() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastSnapshot
}

// #endregion checkpoint
