package logging

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/network"
)

// timeLayout matches state.TimeLayout: fixed-width so rows sort by time.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region log-decision
// LogDecision writes one decision to the decision_log table.
func LogDecision(db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (decision_id, seq, s0, s1, action, niceness, probabilities, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.DecisionID,
		clampNanos(entry.Seq),
		int64(entry.S0),
		int64(entry.S1),
		entry.Action,
		entry.Niceness,
		encodeProbabilities(entry.Probabilities),
		entry.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region log-reward
// LogReward writes one reward to the reward_log table.
func LogReward(db *sql.DB, entry RewardEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO reward_log (decision_id, seq, s0, s1, action, wait_ns, run_ns, turnaround_ns, cost, reward, baseline, advantage, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(entry.DecisionID),
		clampNanos(entry.Seq),
		int64(entry.S0),
		int64(entry.S1),
		entry.Action,
		clampNanos(entry.WaitNs),
		clampNanos(entry.RunNs),
		clampNanos(entry.TurnaroundNs),
		int64(entry.Cost),
		int64(entry.Reward),
		int64(entry.Baseline),
		int64(entry.Advantage),
		entry.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("log reward: %w", err)
	}
	return nil
}

// #endregion log-reward

// #region queries
// RecentRewards returns the latest reward rows, newest first.
func RecentRewards(db *sql.DB, limit int) ([]RewardEntry, error) {
	rows, err := db.Query(
		`SELECT decision_id, seq, s0, s1, action, wait_ns, run_ns, turnaround_ns, cost, reward, baseline, advantage, created_at
		 FROM reward_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent rewards: %w", err)
	}
	defer rows.Close()

	var entries []RewardEntry
	for rows.Next() {
		var e RewardEntry
		var decisionID sql.NullString
		var seq, s0, s1 int64
		var wait, run, turnaround int64
		var cost, reward, baseline, advantage int64
		var createdStr string
		if err := rows.Scan(&decisionID, &seq, &s0, &s1, &e.Action, &wait, &run, &turnaround,
			&cost, &reward, &baseline, &advantage, &createdStr); err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		if decisionID.Valid {
			e.DecisionID = decisionID.String
		}
		e.Seq = uint64(seq)
		e.S0, e.S1 = fixed.Clamp(s0), fixed.Clamp(s1)
		e.WaitNs, e.RunNs, e.TurnaroundNs = uint64(wait), uint64(run), uint64(turnaround)
		e.Cost = fixed.Clamp(cost)
		e.Reward = fixed.Clamp(reward)
		e.Baseline = fixed.Clamp(baseline)
		e.Advantage = fixed.Clamp(advantage)
		e.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountEntries returns how many decisions and rewards have been logged.
func CountEntries(db *sql.DB) (decisions, rewards int, err error) {
	if err := db.QueryRow(`SELECT COUNT(*) FROM decision_log`).Scan(&decisions); err != nil {
		return 0, 0, fmt.Errorf("count decisions: %w", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM reward_log`).Scan(&rewards); err != nil {
		return 0, 0, fmt.Errorf("count rewards: %w", err)
	}
	return decisions, rewards, nil
}

// MaxSeq returns the largest sequence number in either log, or 0 for an
// empty journal.
func MaxSeq(db *sql.DB) (uint64, error) {
	var seq int64
	err := db.QueryRow(
		`SELECT MAX(COALESCE((SELECT MAX(seq) FROM decision_log), 0),
		            COALESCE((SELECT MAX(seq) FROM reward_log), 0))`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return uint64(seq), nil
}

// History returns every logged decision and reward in the order the policy
// applied them. Write time only breaks ties between rows without a sequence
// number.
func History(db *sql.DB) ([]HistoryEntry, error) {
	rows, err := db.Query(
		`SELECT kind, decision_id, seq, s0, s1, action, niceness, wait_ns, run_ns, turnaround_ns, reward, baseline, created_at FROM (
		   SELECT 'decide' AS kind, 0 AS ord, decision_id, seq, s0, s1, action, niceness,
		          0 AS wait_ns, 0 AS run_ns, 0 AS turnaround_ns, 0 AS reward, 0 AS baseline, created_at, rowid AS row_seq
		   FROM decision_log
		   UNION ALL
		   SELECT 'reward', 1, decision_id, seq, s0, s1, action, 0,
		          wait_ns, run_ns, turnaround_ns, reward, baseline, created_at, id
		   FROM reward_log
		 ) ORDER BY seq ASC, created_at ASC, ord ASC, row_seq ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var decisionID sql.NullString
		var seq, s0, s1, wait, run, turnaround, reward, baseline int64
		var createdStr string
		if err := rows.Scan(&e.Kind, &decisionID, &seq, &s0, &s1, &e.Action, &e.Niceness,
			&wait, &run, &turnaround, &reward, &baseline, &createdStr); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if decisionID.Valid {
			e.DecisionID = decisionID.String
		}
		e.Seq = uint64(seq)
		e.S0, e.S1 = fixed.Clamp(s0), fixed.Clamp(s1)
		e.WaitNs, e.RunNs, e.TurnaroundNs = uint64(wait), uint64(run), uint64(turnaround)
		e.Reward, e.Baseline = fixed.Clamp(reward), fixed.Clamp(baseline)
		e.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion queries

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// clampNanos keeps durations and sequence numbers inside SQLite's signed
// 64-bit integers.
func clampNanos(ns uint64) int64 {
	if ns > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(ns)
}

func encodeProbabilities(p network.Probabilities) []byte {
	buf := make([]byte, 0, len(p)*4)
	for _, v := range p {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
	}
	return buf
}

// #endregion helpers
