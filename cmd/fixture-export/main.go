package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/logging"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/policy"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/replay"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to nice_policy.db")
	first := flag.Int("first", 0, "export only the first N journal entries (0 = all)")
	staleness := flag.String("staleness", "snapshot", "staleness policy the controller ran with")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --out path/to/fixture.json [--first N] [--staleness snapshot|reforward]")
		os.Exit(2)
	}

	if err := run(*dbPath, *first, *staleness, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

// run exports from the start of the journal: the policy starts untrained, so
// a suffix of the journal could not be replayed on its own.
func run(dbPath string, first int, staleness, outPath string) error {
	if _, err := policy.ParseStaleness(staleness); err != nil {
		return err
	}

	store, err := state.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	history, err := logging.History(store.DB())
	if err != nil {
		return err
	}
	if first > 0 && first < len(history) {
		history = history[:first]
	}
	if len(history) == 0 {
		return fmt.Errorf("no decisions or rewards found in %s", dbPath)
	}

	fmt.Printf("Found %d journal entries\n", len(history))

	fixture := replay.FixtureFromHistory(history, staleness)
	fixture.Description = fmt.Sprintf("Journal export from %s: %d entries, %s staleness", dbPath, len(history), staleness)
	return writeFixture(fixture, outPath)
}

// #endregion extract

// #region output

func writeFixture(fixture replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote fixture to %s (%d bytes, %d events)\n", outPath, len(data), len(fixture.Events))
	return nil
}

// #endregion output
