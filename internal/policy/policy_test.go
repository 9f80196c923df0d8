package policy

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/network"
)

// #region helpers
// slopedParams makes hidden unit 0 follow s0 and gives every output a logit
// proportional to it, so different states leave different activations.
func slopedParams() network.Params {
	var p network.Params
	p.W1[0] = fixed.One
	for o := 0; o < network.Outputs; o++ {
		p.W2[o*network.Hidden+0] = fixed.Scalar(o-5) * fixed.One / 4
	}
	return p
}

// #endregion helpers

// #region decide-tests
func TestDecideUntrainedPicksFirstAction(t *testing.T) {
	p := New(DefaultConfig())
	d := p.Decide(0, 0)
	if d.Action != 0 || d.Niceness != -5 {
		t.Fatalf("expected action 0 / niceness -5, got %+v", d)
	}

	probs := p.Evaluate(0, 0)
	for i, v := range probs {
		if v != fixed.One/network.Outputs {
			t.Fatalf("p[%d] = %d, want uniform %d", i, v, fixed.One/network.Outputs)
		}
	}
}

func TestArgmaxTieBreaksLow(t *testing.T) {
	var probs network.Probabilities
	probs[2] = 9000
	probs[7] = 9000
	probs[9] = 8999
	if got := Argmax(probs); got != 2 {
		t.Fatalf("Argmax = %d, want 2", got)
	}
}

func TestDecideFollowsState(t *testing.T) {
	p := NewFromParams(DefaultConfig(), slopedParams())
	if d := p.Decide(2*fixed.One, 0); d.Niceness != 5 {
		t.Fatalf("positive s0: niceness %d, want 5", d.Niceness)
	}
	if d := p.Decide(-fixed.One, 0); d.Niceness != -5 {
		t.Fatalf("negative s0: niceness %d, want -5", d.Niceness)
	}
}

func TestNiceTable(t *testing.T) {
	for a := 0; a < network.Outputs; a++ {
		n, ok := NicenessFor(a)
		if !ok || n != a-5 {
			t.Fatalf("NicenessFor(%d) = %d, %v", a, n, ok)
		}
		back, ok := ActionFor(n)
		if !ok || back != a {
			t.Fatalf("ActionFor(%d) = %d, %v", n, back, ok)
		}
	}
	if _, ok := NicenessFor(11); ok {
		t.Fatal("NicenessFor(11) should fail")
	}
	if _, ok := ActionFor(-6); ok {
		t.Fatal("ActionFor(-6) should fail")
	}
}

func TestDecideDoesNotAllocate(t *testing.T) {
	p := NewFromParams(DefaultConfig(), slopedParams())
	allocs := testing.AllocsPerRun(100, func() {
		p.Decide(fixed.One, fixed.Half)
	})
	if allocs != 0 {
		t.Fatalf("Decide allocated %.1f times per run", allocs)
	}
}

// #endregion decide-tests

// #region reward-tests
func TestComputeRewardPinned(t *testing.T) {
	cost, reward := ComputeReward(DefaultConfig(), 3_000_000, 1_000_000, 0)
	if cost != 8*fixed.One {
		t.Fatalf("cost = %d, want %d", cost, 8*fixed.One)
	}
	if reward != -524288 {
		t.Fatalf("reward = %d, want -524288", reward)
	}
}

func TestComputeRewardSaturates(t *testing.T) {
	_, reward := ComputeReward(DefaultConfig(), 1<<62, 0, 1<<62)
	if reward != fixed.Min+1 {
		// cost saturates at Max; its negation is Min+1.
		t.Fatalf("reward = %d, want %d", reward, fixed.Min+1)
	}
	_, reward = ComputeReward(DefaultConfig(), 0, 1<<62, 0)
	if reward != fixed.Max {
		t.Fatalf("reward = %d, want Max", reward)
	}
}

func TestRewardPinned(t *testing.T) {
	p := New(DefaultConfig())
	p.Decide(0, 0)
	res, err := p.Reward(0, 0, 0, 3_000_000, 1_000_000, 0)
	if err != nil {
		t.Fatalf("Reward: %v", err)
	}
	if res.Reward != -524288 || res.Cost != 524288 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Baseline != fixed.MulSat(-524288, DefaultConfig().Update.BaselineGain) {
		t.Fatalf("baseline = %d", res.Baseline)
	}
	if res.Advantage != res.Reward-res.Baseline {
		t.Fatalf("advantage = %d, want %d", res.Advantage, res.Reward-res.Baseline)
	}
}

func TestRewardRejectsInvalidAction(t *testing.T) {
	p := New(DefaultConfig())
	p.Decide(0, 0)
	before := p.Snapshot()

	for _, a := range []int{-1, 11, 1000} {
		_, err := p.Reward(0, 0, a, 0, 100_000_000, 0)
		if !errors.Is(err, ErrInvalidAction) {
			t.Fatalf("action %d: expected ErrInvalidAction, got %v", a, err)
		}
	}
	if after := p.Snapshot(); after != before {
		t.Fatal("rejected reward mutated the policy")
	}
}

func TestRewardShiftsMassToRewardedAction(t *testing.T) {
	p := New(DefaultConfig())
	s0, s1 := fixed.One, fixed.Half
	start := p.Evaluate(s0, s1)[5]

	for i := 0; i < 200; i++ {
		p.Decide(s0, s1)
		// Long run, no waiting: large positive reward for niceness 0.
		if _, err := p.Reward(s0, s1, 5, 0, 100_000_000, 0); err != nil {
			t.Fatalf("Reward: %v", err)
		}
	}

	end := p.Evaluate(s0, s1)
	if end[5] <= start {
		t.Fatalf("p[5] did not grow: %d -> %d", start, end[5])
	}
	if got := p.Decide(s0, s1); got.Niceness != 0 {
		t.Fatalf("trained policy picks niceness %d, want 0", got.Niceness)
	}
	if snap := p.Snapshot(); snap.Rewards != 200 || snap.Decisions != 201 {
		t.Fatalf("counters = %d decisions / %d rewards", snap.Decisions, snap.Rewards)
	}
}

// #endregion reward-tests

// #region staleness-tests
func TestStalenessPolicies(t *testing.T) {
	a0, b0 := 2*fixed.One, -fixed.One

	ref := NewFromParams(DefaultConfig(), slopedParams())
	ref.Decide(a0, 0)
	if _, err := ref.Reward(a0, 0, 10, 0, 20_000_000, 0); err != nil {
		t.Fatalf("Reward: %v", err)
	}
	want := ref.Snapshot()

	run := func(s Staleness) Snapshot {
		cfg := DefaultConfig()
		cfg.Staleness = s
		p := NewFromParams(cfg, slopedParams())
		p.Decide(a0, 0)
		p.Decide(b0, 0) // interleaved decision for another task
		if _, err := p.Reward(a0, 0, 10, 0, 20_000_000, 0); err != nil {
			t.Fatalf("Reward: %v", err)
		}
		return p.Snapshot()
	}

	if got := run(StalenessReforward); got.Params != want.Params || got.Baseline != want.Baseline {
		t.Fatal("reforward should train exactly as if no other decision intervened")
	}
	if got := run(StalenessLastSnapshot); got.Params == want.Params {
		t.Fatal("snapshot mode should train on the interleaved decision's activations")
	}
}

func TestParseStaleness(t *testing.T) {
	for _, s := range []Staleness{StalenessLastSnapshot, StalenessReforward} {
		got, err := ParseStaleness(s.String())
		if err != nil || got != s {
			t.Fatalf("ParseStaleness(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseStaleness("eventually"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

// #endregion staleness-tests

// #region concurrency-tests
func TestConcurrentDecideAndReward(t *testing.T) {
	p := New(DefaultConfig())

	const workers, rounds = 8, 200
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			s0 := fixed.Scalar(w) * fixed.Half
			for i := 0; i < rounds; i++ {
				d := p.Decide(s0, fixed.One)
				if _, err := p.Reward(s0, fixed.One, d.Action, uint64(i)*1_000_000, 5_000_000, 0); err != nil {
					t.Errorf("Reward: %v", err)
					return
				}
				if i%50 == 0 {
					_ = p.Snapshot().String()
				}
			}
		}(w)
	}
	wg.Wait()

	snap := p.Snapshot()
	if snap.Decisions != workers*rounds || snap.Rewards != workers*rounds {
		t.Fatalf("counters = %d / %d, want %d", snap.Decisions, snap.Rewards, workers*rounds)
	}
}

func TestSequenceFollowsApplyOrder(t *testing.T) {
	p := New(DefaultConfig())
	d1 := p.Decide(0, 0)
	r1, err := p.Reward(0, 0, d1.Action, 0, 1_000_000, 0)
	if err != nil {
		t.Fatalf("Reward: %v", err)
	}
	if _, err := p.Reward(0, 0, 11, 0, 1_000_000, 0); err == nil {
		t.Fatal("expected ErrInvalidAction")
	}
	d2 := p.Decide(fixed.One, 0)
	if d1.Seq != 1 || r1.Seq != 2 || d2.Seq != 3 {
		t.Fatalf("seq = %d, %d, %d; want 1, 2, 3", d1.Seq, r1.Seq, d2.Seq)
	}
}

func TestSequenceUniqueUnderConcurrency(t *testing.T) {
	p := New(DefaultConfig())

	const workers, rounds = 8, 100
	seqs := make(chan uint64, 2*workers*rounds)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				d := p.Decide(fixed.One, 0)
				seqs <- d.Seq
				res, err := p.Reward(fixed.One, 0, d.Action, 0, 2_000_000, 0)
				if err != nil {
					t.Errorf("Reward: %v", err)
					return
				}
				seqs <- res.Seq
			}
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[uint64]bool)
	for s := range seqs {
		if s == 0 || s > 2*workers*rounds || seen[s] {
			t.Fatalf("bad or repeated seq %d", s)
		}
		seen[s] = true
	}
	if len(seen) != 2*workers*rounds {
		t.Fatalf("got %d distinct seqs", len(seen))
	}
}

// #endregion concurrency-tests

// #region dump-tests
func TestSnapshotWriteTo(t *testing.T) {
	p := New(DefaultConfig())
	var sb strings.Builder
	n, err := p.Snapshot().WriteTo(&sb)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	out := sb.String()
	if int(n) != len(out) {
		t.Fatalf("WriteTo reported %d bytes, wrote %d", n, len(out))
	}

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != network.Hidden+1+network.Outputs+1+1 {
		t.Fatalf("expected %d lines, got %d", network.Hidden+network.Outputs+3, len(lines))
	}
	if lines[0] != "W1[0]: 0.0000 0.0000" {
		t.Fatalf("first line = %q", lines[0])
	}
	if lines[network.Hidden] != "B1:"+strings.Repeat(" 0.0000", network.Hidden) {
		t.Fatalf("B1 line = %q", lines[network.Hidden])
	}
	if got := lines[len(lines)-1]; got != "baseline: 0.0000" {
		t.Fatalf("last line = %q", got)
	}
}

func TestSnapshotStringShowsLearnedValues(t *testing.T) {
	var params network.Params
	params.B2[10] = -fixed.Half
	p := NewFromParams(DefaultConfig(), params)
	out := p.Snapshot().String()
	if !strings.Contains(out, "B2: 0.0000 0.0000 0.0000 0.0000 0.0000 0.0000 0.0000 0.0000 0.0000 0.0000 -0.5000\n") {
		t.Fatalf("unexpected dump:\n%s", out)
	}
}

// #endregion dump-tests
