package eval

import "github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"

// #region eval-config
// EvalConfig holds thresholds for parameter health checks.
type EvalConfig struct {
	MaxAbsWeight fixed.Scalar // fail if any parameter magnitude exceeds this
	MaxSaturated int          // fail if more parameters than this sit at Min or Max
}

// DefaultEvalConfig returns thresholds that flag runaway training.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MaxAbsWeight: 1024 * fixed.One,
		MaxSaturated: 0,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single check result. Value is a magnitude in Q16.16
// or a plain count, depending on the metric.
type EvalMetric struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
	Pass  bool   `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the outcome of checking one snapshot.
type EvalResult struct {
	Passed  bool         `json:"passed"`
	Metrics []EvalMetric `json:"metrics"`
	Reason  string       `json:"reason"`
}

// #endregion eval-result
