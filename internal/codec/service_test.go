package codec

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/policy"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// #region harness
type recordingObserver struct {
	mu        sync.Mutex
	decisions []string
	rewards   []RewardRequest
	rejected  []error
}

func (o *recordingObserver) ObserveDecision(id string, _ DecideRequest, _ policy.Decision) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.decisions = append(o.decisions, id)
}

func (o *recordingObserver) ObserveReward(req RewardRequest, _ policy.RewardResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rewards = append(o.rewards, req)
}

func (o *recordingObserver) ObserveRejected(_ RewardRequest, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, err)
}

func startServer(t *testing.T, obs Observer) (*Client, *policy.Policy) {
	t.Helper()
	p := policy.New(policy.DefaultConfig())

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	Register(srv, NewServer(p, obs))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	client, err := NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, p
}

// #endregion harness

// #region rpc-tests
func TestDecideOverGRPC(t *testing.T) {
	obs := &recordingObserver{}
	client, _ := startServer(t, obs)

	resp, err := client.Decide(context.Background(), DecideRequest{S0: 0, S1: 0})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if resp.Action != 0 || resp.Niceness != -5 {
		t.Fatalf("untrained decide = %+v, want action 0 niceness -5", resp)
	}
	if len(resp.DecisionID) != 36 {
		t.Fatalf("decision id %q is not a uuid", resp.DecisionID)
	}
	if len(obs.decisions) != 1 || obs.decisions[0] != resp.DecisionID {
		t.Fatalf("observer saw %v", obs.decisions)
	}
}

func TestRewardOverGRPC(t *testing.T) {
	obs := &recordingObserver{}
	client, p := startServer(t, obs)
	ctx := context.Background()

	d, err := client.Decide(ctx, DecideRequest{})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	resp, err := client.Reward(ctx, RewardRequest{
		DecisionID: d.DecisionID,
		Action:     d.Action,
		WaitNs:     3_000_000,
		RunNs:      1_000_000,
	})
	if err != nil {
		t.Fatalf("Reward: %v", err)
	}
	if resp.Reward != -524288 || resp.Cost != 8*fixed.One {
		t.Fatalf("reward response %+v", resp)
	}
	if got := p.Snapshot().Baseline; got != resp.Baseline {
		t.Fatalf("server baseline %d, response %d", got, resp.Baseline)
	}
	if len(obs.rewards) != 1 || obs.rewards[0].DecisionID != d.DecisionID {
		t.Fatalf("observer saw %+v", obs.rewards)
	}
}

func TestRewardInvalidAction(t *testing.T) {
	obs := &recordingObserver{}
	client, p := startServer(t, obs)
	before := p.Snapshot()

	_, err := client.Reward(context.Background(), RewardRequest{Action: 11, RunNs: 1})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if p.Snapshot() != before {
		t.Fatal("rejected reward changed the policy")
	}
	if len(obs.rejected) != 1 || len(obs.rewards) != 0 {
		t.Fatalf("observer saw %d rejected, %d rewards", len(obs.rejected), len(obs.rewards))
	}
}

func TestOversizedDecisionIDRejected(t *testing.T) {
	obs := &recordingObserver{}
	client, p := startServer(t, obs)
	before := p.Snapshot()

	// Built by hand: the client refuses to send this.
	in := dynamicpb.NewMessage(rewardRequestDesc)
	set(in, "decision_id", protoreflect.ValueOfString(strings.Repeat("x", maxDecisionID+1)))
	set(in, "action", protoreflect.ValueOfInt32(0))
	out := dynamicpb.NewMessage(rewardResponseDesc)
	err := client.cc.Invoke(context.Background(), rewardMethod, in, out)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	if p.Snapshot() != before || len(obs.rewards) != 0 {
		t.Fatal("oversized request reached the policy")
	}

	if _, err := client.Reward(context.Background(), RewardRequest{DecisionID: strings.Repeat("x", maxDecisionID+1)}); err == nil {
		t.Fatal("client sent an oversized decision id")
	}
}

func TestDumpOverGRPC(t *testing.T) {
	client, _ := startServer(t, nil)
	out, err := client.Dump(context.Background())
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if !strings.HasPrefix(out, "W1[0]: 0.0000 0.0000\n") || !strings.HasSuffix(out, "baseline: 0.0000\n") {
		t.Fatalf("unexpected dump:\n%s", out)
	}
}

// #endregion rpc-tests

// #region constructor-tests
func TestNewClientLazyDial(t *testing.T) {
	client, err := NewClient("localhost:0")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	defer client.Close()
}

func TestNewClientWithConnClose(t *testing.T) {
	if err := NewClientWithConn(nil).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// #endregion constructor-tests
