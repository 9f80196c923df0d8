package state

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/network"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/policy"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS param_snapshots (
	snapshot_id   TEXT PRIMARY KEY,
	params        BLOB NOT NULL,
	baseline      INTEGER NOT NULL,
	decisions     INTEGER NOT NULL,
	rewards       INTEGER NOT NULL,
	created_at    TEXT NOT NULL,
	metrics_json  TEXT
);

CREATE TABLE IF NOT EXISTS decision_log (
	decision_id   TEXT PRIMARY KEY,
	seq           INTEGER NOT NULL DEFAULT 0,
	s0            INTEGER NOT NULL,
	s1            INTEGER NOT NULL,
	action        INTEGER NOT NULL,
	niceness      INTEGER NOT NULL,
	probabilities BLOB,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reward_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	decision_id   TEXT,
	seq           INTEGER NOT NULL DEFAULT 0,
	s0            INTEGER NOT NULL DEFAULT 0,
	s1            INTEGER NOT NULL DEFAULT 0,
	action        INTEGER NOT NULL,
	wait_ns       INTEGER NOT NULL,
	run_ns        INTEGER NOT NULL,
	turnaround_ns INTEGER NOT NULL,
	cost          INTEGER NOT NULL,
	reward        INTEGER NOT NULL,
	baseline      INTEGER NOT NULL,
	advantage     INTEGER NOT NULL,
	created_at    TEXT NOT NULL
);
`

// #endregion schema

// #region time-layout
// TimeLayout is RFC 3339 with fixed-width nanoseconds, so created_at sorts
// lexically in time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #endregion time-layout

// #region store-struct
// Store keeps parameter snapshots and the decision/reward journal in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region commit-snapshot
// CommitSnapshot stores a policy snapshot under a fresh ID and returns the
// record as written.
func (s *Store) CommitSnapshot(snap policy.Snapshot, metricsJSON string) (SnapshotRecord, error) {
	rec := SnapshotRecord{
		SnapshotID:  uuid.New().String(),
		Params:      snap.Params,
		Baseline:    snap.Baseline,
		Decisions:   snap.Decisions,
		Rewards:     snap.Rewards,
		CreatedAt:   time.Now().UTC(),
		MetricsJSON: metricsJSON,
	}

	var metricsPtr interface{}
	if rec.MetricsJSON != "" {
		metricsPtr = rec.MetricsJSON
	}

	_, err := s.db.Exec(
		`INSERT INTO param_snapshots (snapshot_id, params, baseline, decisions, rewards, created_at, metrics_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SnapshotID, encodeParams(rec.Params), int64(rec.Baseline),
		clampCount(rec.Decisions), clampCount(rec.Rewards),
		rec.CreatedAt.Format(TimeLayout), metricsPtr,
	)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("insert snapshot: %w", err)
	}
	return rec, nil
}

// #endregion commit-snapshot

// #region get-snapshot
// GetSnapshot retrieves a snapshot by ID.
func (s *Store) GetSnapshot(id string) (SnapshotRecord, error) {
	row := s.db.QueryRow(
		`SELECT snapshot_id, params, baseline, decisions, rewards, created_at, metrics_json
		 FROM param_snapshots WHERE snapshot_id = ?`, id,
	)
	rec, err := scanSnapshot(row)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	return rec, nil
}

// LatestSnapshot retrieves the most recently written snapshot.
func (s *Store) LatestSnapshot() (SnapshotRecord, error) {
	row := s.db.QueryRow(
		`SELECT snapshot_id, params, baseline, decisions, rewards, created_at, metrics_json
		 FROM param_snapshots ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	)
	rec, err := scanSnapshot(row)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("latest snapshot: %w", err)
	}
	return rec, nil
}

// #endregion get-snapshot

// #region list-snapshots
// ListSnapshots returns the most recent snapshots, newest first.
func (s *Store) ListSnapshots(limit int) ([]SnapshotRecord, error) {
	rows, err := s.db.Query(
		`SELECT snapshot_id, params, baseline, decisions, rewards, created_at, metrics_json
		 FROM param_snapshots ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-snapshots

// #region scan
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (SnapshotRecord, error) {
	var rec SnapshotRecord
	var blob []byte
	var baseline, decisions, rewards int64
	var createdStr string
	var metricsJSON sql.NullString

	if err := row.Scan(&rec.SnapshotID, &blob, &baseline, &decisions, &rewards, &createdStr, &metricsJSON); err != nil {
		return SnapshotRecord{}, err
	}
	params, err := decodeParams(blob)
	if err != nil {
		return SnapshotRecord{}, err
	}
	rec.Params = params
	rec.Baseline = fixed.Clamp(baseline)
	rec.Decisions = uint64(decisions)
	rec.Rewards = uint64(rewards)
	rec.CreatedAt, _ = time.Parse(TimeLayout, createdStr)
	if metricsJSON.Valid {
		rec.MetricsJSON = metricsJSON.String
	}
	return rec, nil
}

func clampCount(n uint64) int64 {
	if n > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(n)
}

// #endregion scan

// #region params-encoding
const paramCount = network.Hidden*network.Inputs + network.Hidden +
	network.Outputs*network.Hidden + network.Outputs

// encodeParams lays out W1, B1, W2, B2 as little-endian int32s.
func encodeParams(p network.Params) []byte {
	buf := make([]byte, 0, paramCount*4)
	for _, part := range [][]fixed.Scalar{p.W1[:], p.B1[:], p.W2[:], p.B2[:]} {
		for _, v := range part {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
		}
	}
	return buf
}

func decodeParams(b []byte) (network.Params, error) {
	var p network.Params
	if len(b) != paramCount*4 {
		return p, fmt.Errorf("params blob: %d bytes, want %d", len(b), paramCount*4)
	}
	for _, part := range [][]fixed.Scalar{p.W1[:], p.B1[:], p.W2[:], p.B2[:]} {
		for i := range part {
			part[i] = fixed.Scalar(int32(binary.LittleEndian.Uint32(b)))
			b = b[4:]
		}
	}
	return p, nil
}

// #endregion params-encoding
