// Package replay drives a policy through a recorded sequence of decide and
// reward events, entirely in memory, so learning drift shows up as changed
// decisions.
package replay

import (
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/network"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/policy"
)

// #region types
// Event kinds.
const (
	KindDecide = "decide"
	KindReward = "reward"
)

// Event is one recorded host call.
type Event struct {
	ID     string
	Kind   string
	S0, S1 fixed.Scalar

	// Reward only.
	Action          int
	UseLastDecision bool // reward whatever the previous decide picked
	WaitNs          uint64
	RunNs           uint64
	TurnaroundNs    uint64
	Repeat          int // apply the same reward this many times; <1 means once
}

// ReplayResult is the outcome of one event. For a repeated reward it holds
// the last application.
type ReplayResult struct {
	EventID  string
	Kind     string
	Action   int
	Niceness int

	Reward    fixed.Scalar
	Baseline  fixed.Scalar
	Advantage fixed.Scalar

	Err error
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalEvents int
	Decisions   int
	Rewards     int // applications, counting repeats
	Rejected    int
	ByAction    [network.Outputs]int
	Final       policy.Snapshot
}

// #endregion types

// #region replay
// Replay feeds events to p in order. A reward with UseLastDecision before any
// decide rewards action 0.
func Replay(p *policy.Policy, events []Event) []ReplayResult {
	results := make([]ReplayResult, 0, len(events))
	last := 0

	for _, ev := range events {
		switch ev.Kind {
		case KindDecide:
			d := p.Decide(ev.S0, ev.S1)
			last = d.Action
			results = append(results, ReplayResult{
				EventID:  ev.ID,
				Kind:     ev.Kind,
				Action:   d.Action,
				Niceness: d.Niceness,
			})

		case KindReward:
			action := ev.Action
			if ev.UseLastDecision {
				action = last
			}
			r := ReplayResult{EventID: ev.ID, Kind: ev.Kind, Action: action}
			if n, ok := policy.NicenessFor(action); ok {
				r.Niceness = n
			}
			times := ev.Repeat
			if times < 1 {
				times = 1
			}
			for i := 0; i < times; i++ {
				res, err := p.Reward(ev.S0, ev.S1, action, ev.WaitNs, ev.RunNs, ev.TurnaroundNs)
				if err != nil {
					r.Err = err
					break
				}
				r.Reward, r.Baseline, r.Advantage = res.Reward, res.Baseline, res.Advantage
			}
			results = append(results, r)

		default:
			results = append(results, ReplayResult{
				EventID: ev.ID,
				Kind:    ev.Kind,
				Err:     errUnknownKind(ev.Kind),
			})
		}
	}

	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, events []Event, final policy.Snapshot) ReplaySummary {
	s := ReplaySummary{TotalEvents: len(results), Final: final}
	for i, r := range results {
		if r.Err != nil {
			s.Rejected++
			continue
		}
		switch r.Kind {
		case KindDecide:
			s.Decisions++
			s.ByAction[r.Action]++
		case KindReward:
			n := 1
			if i < len(events) && events[i].Repeat > 1 {
				n = events[i].Repeat
			}
			s.Rewards += n
		}
	}
	return s
}

// #endregion replay
