package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/network"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/policy"
)

var errUnknownEventKind = errors.New("unknown event kind")

func errUnknownKind(kind string) error {
	return fmt.Errorf("%w %q", errUnknownEventKind, kind)
}

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	StartParams     *FixtureParams          `json:"start_params,omitempty"`
	Events          []FixtureEvent          `json:"events"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureConfig overrides policy.DefaultConfig. Zero values keep the default.
type FixtureConfig struct {
	Staleness     string `json:"staleness"`
	LearningRate  int32  `json:"learning_rate,omitempty"`
	BaselineDecay int32  `json:"baseline_decay,omitempty"`
	BaselineGain  int32  `json:"baseline_gain,omitempty"`
}

// FixtureParams holds raw Q16.16 starting parameters. A missing layer is
// all zeros; a present one must have the exact length.
type FixtureParams struct {
	W1 []int32 `json:"w1,omitempty"`
	B1 []int32 `json:"b1,omitempty"`
	W2 []int32 `json:"w2,omitempty"`
	B2 []int32 `json:"b2,omitempty"`
}

// FixtureEvent mirrors Event with JSON tags. State values are raw Q16.16.
type FixtureEvent struct {
	ID              string `json:"id"`
	Kind            string `json:"kind"`
	S0              int32  `json:"s0"`
	S1              int32  `json:"s1"`
	Action          int    `json:"action,omitempty"`
	UseLastDecision bool   `json:"use_last_decision,omitempty"`
	WaitNs          uint64 `json:"wait_ns,omitempty"`
	RunNs           uint64 `json:"run_ns,omitempty"`
	TurnaroundNs    uint64 `json:"turnaround_ns,omitempty"`
	Repeat          int    `json:"repeat,omitempty"`
}

// FixtureExpectedResult pins a decide's niceness or a reward's reward and
// baseline. Absent fields are not checked.
type FixtureExpectedResult struct {
	ID       string `json:"id"`
	Niceness *int   `json:"niceness,omitempty"`
	Reward   *int32 `json:"reward,omitempty"`
	Baseline *int32 `json:"baseline,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToPolicyConfig converts a FixtureConfig to a policy.Config.
func (fc *FixtureConfig) ToPolicyConfig() (policy.Config, error) {
	cfg := policy.DefaultConfig()
	st, err := policy.ParseStaleness(fc.Staleness)
	if err != nil {
		return policy.Config{}, err
	}
	cfg.Staleness = st
	if fc.LearningRate != 0 {
		cfg.Update.LearningRate = fixed.Scalar(fc.LearningRate)
	}
	if fc.BaselineDecay != 0 {
		cfg.Update.BaselineDecay = fixed.Scalar(fc.BaselineDecay)
	}
	if fc.BaselineGain != 0 {
		cfg.Update.BaselineGain = fixed.Scalar(fc.BaselineGain)
	}
	return cfg, nil
}

// ToParams converts FixtureParams to network.Params.
func (fp *FixtureParams) ToParams() (network.Params, error) {
	var p network.Params
	if fp == nil {
		return p, nil
	}
	layers := []struct {
		name string
		src  []int32
		dst  []fixed.Scalar
	}{
		{"w1", fp.W1, p.W1[:]},
		{"b1", fp.B1, p.B1[:]},
		{"w2", fp.W2, p.W2[:]},
		{"b2", fp.B2, p.B2[:]},
	}
	for _, l := range layers {
		if len(l.src) == 0 {
			continue
		}
		if len(l.src) != len(l.dst) {
			return network.Params{}, fmt.Errorf("start_params.%s has %d values, want %d", l.name, len(l.src), len(l.dst))
		}
		for i, v := range l.src {
			l.dst[i] = fixed.Scalar(v)
		}
	}
	return p, nil
}

// ToEvent converts a FixtureEvent to a domain Event.
func (fe *FixtureEvent) ToEvent() Event {
	return Event{
		ID:              fe.ID,
		Kind:            fe.Kind,
		S0:              fixed.Scalar(fe.S0),
		S1:              fixed.Scalar(fe.S1),
		Action:          fe.Action,
		UseLastDecision: fe.UseLastDecision,
		WaitNs:          fe.WaitNs,
		RunNs:           fe.RunNs,
		TurnaroundNs:    fe.TurnaroundNs,
		Repeat:          fe.Repeat,
	}
}

// NewPolicy builds the policy the fixture starts from.
func (f *Fixture) NewPolicy() (*policy.Policy, error) {
	cfg, err := f.Config.ToPolicyConfig()
	if err != nil {
		return nil, fmt.Errorf("fixture config: %w", err)
	}
	params, err := f.StartParams.ToParams()
	if err != nil {
		return nil, fmt.Errorf("fixture params: %w", err)
	}
	return policy.NewFromParams(cfg, params), nil
}

// DomainEvents converts every fixture event.
func (f *Fixture) DomainEvents() []Event {
	events := make([]Event, len(f.Events))
	for i := range f.Events {
		events[i] = f.Events[i].ToEvent()
	}
	return events
}

// #endregion fixture-loader

// #region fixture-check

// Comparison is one expected value next to what the replay produced.
type Comparison struct {
	ID    string
	Field string // "niceness" | "reward" | "baseline" | "missing"
	Want  int64
	Got   int64
	Match bool
}

func (c Comparison) String() string {
	if c.Field == "missing" {
		return fmt.Sprintf("%s: no successful result", c.ID)
	}
	return fmt.Sprintf("%s: %s = %d, want %d", c.ID, c.Field, c.Got, c.Want)
}

// Compare lines up every expected value with the replayed one, matched by
// event ID. An expected ID with no successful result yields a "missing" row.
func (f *Fixture) Compare(results []ReplayResult) []Comparison {
	byID := make(map[string]ReplayResult, len(results))
	for _, r := range results {
		byID[r.EventID] = r
	}

	var out []Comparison
	add := func(id, field string, want, got int64) {
		out = append(out, Comparison{ID: id, Field: field, Want: want, Got: got, Match: want == got})
	}
	for _, exp := range f.ExpectedResults {
		r, ok := byID[exp.ID]
		if !ok || r.Err != nil {
			out = append(out, Comparison{ID: exp.ID, Field: "missing"})
			continue
		}
		if exp.Niceness != nil {
			add(exp.ID, "niceness", int64(*exp.Niceness), int64(r.Niceness))
		}
		if exp.Reward != nil {
			add(exp.ID, "reward", int64(*exp.Reward), int64(r.Reward))
		}
		if exp.Baseline != nil {
			add(exp.ID, "baseline", int64(*exp.Baseline), int64(r.Baseline))
		}
	}
	return out
}

// Check returns only the comparisons that did not match.
func (f *Fixture) Check(results []ReplayResult) []Comparison {
	var out []Comparison
	for _, c := range f.Compare(results) {
		if !c.Match {
			out = append(out, c)
		}
	}
	return out
}

// #endregion fixture-check
