package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/logging"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/policy"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/replay"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/state"
)

// #region main
func main() {
	dbPath := flag.String("db", "", "path to nice_policy.db (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	staleness := flag.String("staleness", "snapshot", "staleness policy for DB mode: snapshot|reforward")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/nice_policy.db [--staleness snapshot|reforward]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *staleness)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-mode

// runDBMode replays the journal from an untrained policy, the state every
// controller starts in, and compares each replayed decision and reward with
// the logged one. A journal spanning several controller runs diverges after
// the first restart.
func runDBMode(dbPath, staleness string) int {
	store, err := state.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	history, err := logging.History(store.DB())
	if err != nil {
		fmt.Fprintf(os.Stderr, "read journal: %v\n", err)
		return 2
	}
	if len(history) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions or rewards found in journal")
		return 2
	}

	f := replay.FixtureFromHistory(history, staleness)
	return runFixture(&f)
}

// #endregion db-mode

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	if f.Description != "" {
		fmt.Printf("%s\n\n", f.Description)
	}
	return runFixture(f)
}

func runFixture(f *replay.Fixture) int {
	p, err := f.NewPolicy()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}
	events := f.DomainEvents()
	results := replay.Replay(p, events)

	printSummary(replay.Summarize(results, events, p.Snapshot()))
	return printComparison(f.Compare(results))
}

// #endregion fixture-mode

// #region output

func printSummary(s replay.ReplaySummary) {
	fmt.Printf("Events: %d | decisions: %d | rewards: %d | rejected: %d | final baseline: %s\n",
		s.TotalEvents, s.Decisions, s.Rewards, s.Rejected, s.Final.Baseline)
	fmt.Printf("Actions:")
	for a, n := range s.ByAction {
		nice, _ := policy.NicenessFor(a)
		fmt.Printf(" %+d:%d", nice, n)
	}
	fmt.Printf("\n\n")
}

// printComparison outputs a comparison table and returns the exit code.
func printComparison(rows []replay.Comparison) int {
	fmt.Printf("%-38s| %-10s| %-12s| %-12s| %s\n", "Event", "Field", "Expected", "Replayed", "Match")
	fmt.Printf("%-38s+%-11s+%-13s+%-13s+%s\n",
		"--------------------------------------", "-----------", "-------------", "-------------", "------")

	matches := 0
	for _, r := range rows {
		match := "DIFF"
		if r.Match {
			match = "OK"
			matches++
		}
		got := strconv.FormatInt(r.Got, 10)
		if r.Field == "missing" {
			got = "-"
		}
		fmt.Printf("%-38s| %-10s| %-12d| %-12s| %s\n", r.ID, r.Field, r.Want, got, match)
	}

	diverge := len(rows) - matches
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", len(rows), matches, diverge)

	if diverge > 0 {
		return 1
	}
	return 0
}

// #endregion output
