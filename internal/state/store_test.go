package state

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/network"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/policy"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func trainedSnapshot() policy.Snapshot {
	p := policy.New(policy.DefaultConfig())
	for i := 0; i < 5; i++ {
		d := p.Decide(fixed.One, fixed.Half)
		p.Reward(fixed.One, fixed.Half, d.Action, 2_000_000, 9_000_000, 1_000_000)
	}
	return p.Snapshot()
}

func TestCommitAndGetSnapshot(t *testing.T) {
	s := tempDB(t)
	snap := trainedSnapshot()
	snap.Params.W1[3] = fixed.Min
	snap.Params.B2[10] = fixed.Max

	rec, err := s.CommitSnapshot(snap, `{"passed":true}`)
	if err != nil {
		t.Fatalf("CommitSnapshot: %v", err)
	}
	if rec.SnapshotID == "" {
		t.Fatal("expected non-empty snapshot ID")
	}

	got, err := s.GetSnapshot(rec.SnapshotID)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if got.PolicySnapshot() != snap {
		t.Fatal("snapshot did not survive the round trip")
	}
	if got.MetricsJSON != `{"passed":true}` {
		t.Fatalf("metrics_json = %q", got.MetricsJSON)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}
}

func TestGetSnapshotMissing(t *testing.T) {
	s := tempDB(t)
	if _, err := s.GetSnapshot("nope"); err == nil {
		t.Fatal("expected error for missing snapshot")
	}
	if _, err := s.LatestSnapshot(); err == nil {
		t.Fatal("expected error on empty store")
	}
}

func TestListAndLatestSnapshots(t *testing.T) {
	s := tempDB(t)
	var ids []string
	for i := 0; i < 4; i++ {
		snap := policy.Snapshot{Rewards: uint64(i)}
		rec, err := s.CommitSnapshot(snap, "")
		if err != nil {
			t.Fatalf("CommitSnapshot: %v", err)
		}
		ids = append(ids, rec.SnapshotID)
	}

	recs, err := s.ListSnapshots(3)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].SnapshotID != ids[3] || recs[2].SnapshotID != ids[1] {
		t.Fatalf("records not newest first: %s, %s", recs[0].SnapshotID, recs[2].SnapshotID)
	}
	if recs[0].MetricsJSON != "" {
		t.Fatalf("expected empty metrics_json, got %q", recs[0].MetricsJSON)
	}

	latest, err := s.LatestSnapshot()
	if err != nil {
		t.Fatalf("LatestSnapshot: %v", err)
	}
	if latest.SnapshotID != ids[3] || latest.Rewards != 3 {
		t.Fatalf("latest = %s (%d rewards)", latest.SnapshotID, latest.Rewards)
	}
}

func TestParamsEncodingLayout(t *testing.T) {
	var p network.Params
	p.W1[0] = -1
	p.B2[network.Outputs-1] = fixed.One

	b := encodeParams(p)
	if len(b) != paramCount*4 {
		t.Fatalf("encoded %d bytes, want %d", len(b), paramCount*4)
	}
	if got := int32(binary.LittleEndian.Uint32(b)); got != -1 {
		t.Fatalf("first value = %d, want -1", got)
	}
	if got := binary.LittleEndian.Uint32(b[len(b)-4:]); got != uint32(fixed.One) {
		t.Fatalf("last value = %d, want %d", got, fixed.One)
	}

	back, err := decodeParams(b)
	if err != nil {
		t.Fatalf("decodeParams: %v", err)
	}
	if back != p {
		t.Fatal("decode(encode(p)) != p")
	}
	if _, err := decodeParams(b[:len(b)-1]); err == nil {
		t.Fatal("expected error for truncated blob")
	}
}
