package replay

import (
	"fmt"
	"strconv"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/logging"
)

// #region from-history

// FixtureFromHistory turns a logged journal into a fixture that expects
// every decision's niceness and every reward's reward and baseline to come
// out the same. The fixture starts untrained, as every controller does.
func FixtureFromHistory(history []logging.HistoryEntry, staleness string) Fixture {
	f := Fixture{
		Description: fmt.Sprintf("Journal export: %d entries", len(history)),
		Config:      FixtureConfig{Staleness: staleness},
		Events:      make([]FixtureEvent, 0, len(history)),
	}

	for i, h := range history {
		ev := FixtureEvent{
			Kind: h.Kind,
			S0:   int32(h.S0),
			S1:   int32(h.S1),
		}
		exp := FixtureExpectedResult{}

		switch h.Kind {
		case KindDecide:
			ev.ID = h.DecisionID
			if ev.ID == "" {
				ev.ID = "decide-" + strconv.Itoa(i)
			}
			nice := h.Niceness
			exp.Niceness = &nice
		default:
			ev.ID = "reward-" + strconv.Itoa(i)
			ev.Action = h.Action
			ev.WaitNs, ev.RunNs, ev.TurnaroundNs = h.WaitNs, h.RunNs, h.TurnaroundNs
			reward, baseline := int32(h.Reward), int32(h.Baseline)
			exp.Reward, exp.Baseline = &reward, &baseline
		}

		exp.ID = ev.ID
		f.Events = append(f.Events, ev)
		f.ExpectedResults = append(f.ExpectedResults, exp)
	}
	return f
}

// #endregion from-history
