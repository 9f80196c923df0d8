package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/eval"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/logging"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to nice_policy.db")
	last := flag.Int("last", 20, "show N most recent snapshots")
	snapshot := flag.String("snapshot", "", "show single snapshot detail (\"latest\" for the newest)")
	rewards := flag.Int("rewards", 0, "show N most recent rewards instead of snapshots")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/nice_policy.db [--last N] [--snapshot id|latest] [--rewards N] [--json]")
		os.Exit(2)
	}

	store, err := state.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *snapshot != "":
		err = runDetailMode(store, *snapshot, *jsonOut)
	case *rewards > 0:
		err = runRewardsMode(store, *rewards, *jsonOut)
	default:
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	SnapshotID string `json:"snapshot_id"`
	Decisions  uint64 `json:"decisions"`
	Rewards    uint64 `json:"rewards"`
	Baseline   string `json:"baseline"`
	Passed     *bool  `json:"eval_passed,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func runListMode(store *state.Store, last int, jsonOut bool) error {
	recs, err := store.ListSnapshots(last)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(os.Stderr, "no snapshots found")
		return nil
	}

	// Store returns newest first; print chronologically.
	rows := make([]listRow, len(recs))
	for i, rec := range recs {
		row := listRow{
			SnapshotID: rec.SnapshotID,
			Decisions:  rec.Decisions,
			Rewards:    rec.Rewards,
			Baseline:   rec.Baseline.String(),
			CreatedAt:  rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if res := parseEval(rec.MetricsJSON); res != nil {
			row.Passed = &res.Passed
		}
		rows[len(recs)-1-i] = row
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-12s  %10s  %10s  %12s  %-6s  %s\n",
		"Snapshot", "Decisions", "Rewards", "Baseline", "Eval", "Time")
	fmt.Printf("%-12s+-%10s+-%10s+-%12s+-%-6s+-%s\n",
		"------------", "----------", "----------", "------------", "------", "--------------------")
	for _, r := range rows {
		ev := "-"
		if r.Passed != nil {
			ev = "fail"
			if *r.Passed {
				ev = "pass"
			}
		}
		fmt.Printf("%-12s  %10d  %10d  %12s  %-6s  %s\n",
			shortID(r.SnapshotID), r.Decisions, r.Rewards, r.Baseline, ev, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	SnapshotID string             `json:"snapshot_id"`
	CreatedAt  string             `json:"created_at"`
	Decisions  uint64             `json:"decisions"`
	Rewards    uint64             `json:"rewards"`
	Baseline   string             `json:"baseline"`
	Eval       *eval.EvalResult   `json:"eval,omitempty"`
	Params     map[string][]int32 `json:"params"`
}

func runDetailMode(store *state.Store, id string, jsonOut bool) error {
	var rec state.SnapshotRecord
	var err error
	if id == "latest" {
		rec, err = store.LatestSnapshot()
	} else {
		rec, err = store.GetSnapshot(id)
	}
	if err != nil {
		return err
	}
	res := parseEval(rec.MetricsJSON)

	if jsonOut {
		return printJSON(detailOutput{
			SnapshotID: rec.SnapshotID,
			CreatedAt:  rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
			Decisions:  rec.Decisions,
			Rewards:    rec.Rewards,
			Baseline:   rec.Baseline.String(),
			Eval:       res,
			Params: map[string][]int32{
				"w1": raw(rec.Params.W1[:]),
				"b1": raw(rec.Params.B1[:]),
				"w2": raw(rec.Params.W2[:]),
				"b2": raw(rec.Params.B2[:]),
			},
		})
	}

	fmt.Printf("Snapshot:   %s\n", rec.SnapshotID)
	fmt.Printf("Created:    %s\n", rec.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Decisions:  %d\n", rec.Decisions)
	fmt.Printf("Rewards:    %d\n", rec.Rewards)
	if res != nil {
		fmt.Printf("Eval:       passed=%v %s\n", res.Passed, res.Reason)
		for _, m := range res.Metrics {
			fmt.Printf("  %-18s %12d  %v\n", m.Name, m.Value, m.Pass)
		}
	}
	fmt.Printf("\nParameters:\n")
	_, err = rec.PolicySnapshot().WriteTo(os.Stdout)
	return err
}

// #endregion detail-mode

// #region rewards-mode

type rewardRow struct {
	DecisionID string `json:"decision_id,omitempty"`
	Action     int    `json:"action"`
	WaitNs     uint64 `json:"wait_ns"`
	RunNs      uint64 `json:"run_ns"`
	TurnNs     uint64 `json:"turnaround_ns"`
	Reward     string `json:"reward"`
	Baseline   string `json:"baseline"`
	Advantage  string `json:"advantage"`
	CreatedAt  string `json:"created_at"`
}

func runRewardsMode(store *state.Store, n int, jsonOut bool) error {
	entries, err := logging.RecentRewards(store.DB(), n)
	if err != nil {
		return err
	}
	rows := make([]rewardRow, len(entries))
	for i, e := range entries {
		rows[len(entries)-1-i] = rewardRow{
			DecisionID: e.DecisionID,
			Action:     e.Action,
			WaitNs:     e.WaitNs,
			RunNs:      e.RunNs,
			TurnNs:     e.TurnaroundNs,
			Reward:     e.Reward.String(),
			Baseline:   e.Baseline.String(),
			Advantage:  e.Advantage.String(),
			CreatedAt:  e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	if jsonOut {
		return printJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no rewards found")
		return nil
	}

	fmt.Printf("%-12s  %6s  %12s  %12s  %12s  %s\n",
		"Decision", "Action", "Reward", "Baseline", "Advantage", "Time")
	for _, r := range rows {
		id := shortID(r.DecisionID)
		if id == "" {
			id = "-"
		}
		fmt.Printf("%-12s  %6d  %12s  %12s  %12s  %s\n",
			id, r.Action, r.Reward, r.Baseline, r.Advantage, r.CreatedAt)
	}
	return nil
}

// #endregion rewards-mode

// #region output

func parseEval(metricsJSON string) *eval.EvalResult {
	if metricsJSON == "" {
		return nil
	}
	var res eval.EvalResult
	if err := json.Unmarshal([]byte(metricsJSON), &res); err != nil {
		return nil
	}
	return &res
}

func raw[T ~int32](vals []T) []int32 {
	out := make([]int32, len(vals))
	for i, v := range vals {
		out[i] = int32(v)
	}
	return out
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
