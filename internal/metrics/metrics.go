// Package metrics exports policy activity as Prometheus collectors.
package metrics

import (
	"strconv"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/policy"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nicepolicy"

// #region metrics
// Metrics groups the collectors updated by the controller.
type Metrics struct {
	Decisions       *prometheus.CounterVec
	Rewards         prometheus.Counter
	RejectedRewards prometheus.Counter
	LastReward      prometheus.Gauge
	Baseline        prometheus.Gauge
	Advantage       prometheus.Histogram
	Snapshots       prometheus.Counter
	EvalFailures    prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Decisions served, by niceness offset.",
		}, []string{"niceness"}),
		Rewards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_total",
			Help:      "Rewards applied to the policy.",
		}),
		RejectedRewards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_rejected_total",
			Help:      "Rewards rejected before reaching the learner.",
		}),
		LastReward: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_reward",
			Help:      "Most recent reward.",
		}),
		Baseline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reward_baseline",
			Help:      "Moving average of rewards.",
		}),
		Advantage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "advantage",
			Help:      "Reward minus baseline per update.",
			Buckets:   []float64{-100, -10, -1, -0.1, 0, 0.1, 1, 10, 100},
		}),
		Snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Parameter snapshots written to the store.",
		}),
		EvalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eval_failures_total",
			Help:      "Snapshots that failed the parameter health checks.",
		}),
	}
	reg.MustRegister(
		m.Decisions, m.Rewards, m.RejectedRewards, m.LastReward,
		m.Baseline, m.Advantage, m.Snapshots, m.EvalFailures,
	)
	return m
}

// #endregion metrics

// #region observe
// ObserveDecision counts one decision.
func (m *Metrics) ObserveDecision(d policy.Decision) {
	m.Decisions.WithLabelValues(strconv.Itoa(d.Niceness)).Inc()
}

// ObserveReward records one applied reward.
func (m *Metrics) ObserveReward(r policy.RewardResult) {
	m.Rewards.Inc()
	m.LastReward.Set(toFloat(r.Reward))
	m.Baseline.Set(toFloat(r.Baseline))
	m.Advantage.Observe(toFloat(r.Advantage))
}

// ObserveRejected counts a reward that never reached the learner.
func (m *Metrics) ObserveRejected() {
	m.RejectedRewards.Inc()
}

// ObserveSnapshot counts a stored snapshot and whether it passed eval.
func (m *Metrics) ObserveSnapshot(passed bool) {
	m.Snapshots.Inc()
	if !passed {
		m.EvalFailures.Inc()
	}
}

func toFloat(s fixed.Scalar) float64 {
	return float64(s) / float64(fixed.One)
}

// #endregion observe
