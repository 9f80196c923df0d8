package eval

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/policy"
)

// #region eval-harness
// EvalHarness checks a policy snapshot for parameters that have run away or
// pinned at the fixed-point limits.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks every layer's largest magnitude and counts saturated values.
func (h *EvalHarness) Run(snap policy.Snapshot) EvalResult {
	var metrics []EvalMetric
	var failReasons []string

	layers := []struct {
		name string
		vals []fixed.Scalar
	}{
		{"w1", snap.Params.W1[:]},
		{"b1", snap.Params.B1[:]},
		{"w2", snap.Params.W2[:]},
		{"b2", snap.Params.B2[:]},
	}

	saturated := 0
	for _, l := range layers {
		maxAbs := maxAbs(l.vals)
		pass := maxAbs <= int64(h.config.MaxAbsWeight)
		metrics = append(metrics, EvalMetric{
			Name:  l.name + "_max_abs",
			Value: maxAbs,
			Pass:  pass,
		})
		if !pass {
			failReasons = append(failReasons, fmt.Sprintf("%s max |value| %s exceeds %s",
				l.name, fixed.Clamp(maxAbs), h.config.MaxAbsWeight))
		}
		saturated += countSaturated(l.vals)
	}

	satPass := saturated <= h.config.MaxSaturated
	metrics = append(metrics, EvalMetric{
		Name:  "saturated_params",
		Value: int64(saturated),
		Pass:  satPass,
	})
	if !satPass {
		failReasons = append(failReasons, fmt.Sprintf("%d parameters saturated (max %d)", saturated, h.config.MaxSaturated))
	}

	// Informational only.
	metrics = append(metrics, EvalMetric{
		Name:  "baseline",
		Value: int64(snap.Baseline),
		Pass:  true,
	})

	reason := "all checks passed"
	if len(failReasons) == 1 {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
	} else if len(failReasons) > 1 {
		reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
	}

	return EvalResult{
		Passed:  len(failReasons) == 0,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region helpers
func maxAbs(vals []fixed.Scalar) int64 {
	var m int64
	for _, v := range vals {
		a := int64(v)
		if a < 0 {
			a = -a
		}
		if a > m {
			m = a
		}
	}
	return m
}

func countSaturated(vals []fixed.Scalar) int {
	n := 0
	for _, v := range vals {
		if v == fixed.Max || v == fixed.Min {
			n++
		}
	}
	return n
}

// #endregion helpers
