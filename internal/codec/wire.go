package codec

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/fixed"
	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/policy"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

const maxDecisionID = 64

var marshalOpts = proto.MarshalOptions{Deterministic: true}

// #region decide-messages
// DecideRequest carries the two-feature state of one process.
type DecideRequest struct {
	S0, S1 fixed.Scalar
}

// DecideResponse is the chosen action and the ID the caller quotes when it
// reports the reward.
type DecideResponse struct {
	DecisionID string
	Action     int
	Niceness   int
}

func (r DecideRequest) message() *dynamicpb.Message {
	m := dynamicpb.NewMessage(decideRequestDesc)
	set(m, "s0", protoreflect.ValueOfInt32(int32(r.S0)))
	set(m, "s1", protoreflect.ValueOfInt32(int32(r.S1)))
	return m
}

func (r *DecideRequest) fromMessage(m protoreflect.Message) error {
	if err := checkType(m, decideRequestDesc); err != nil {
		return err
	}
	r.S0 = fixed.Scalar(get(m, "s0").Int())
	r.S1 = fixed.Scalar(get(m, "s1").Int())
	return nil
}

func (r DecideResponse) message() (*dynamicpb.Message, error) {
	if err := checkDecisionID(r.DecisionID); err != nil {
		return nil, err
	}
	m := dynamicpb.NewMessage(decideResponseDesc)
	set(m, "decision_id", protoreflect.ValueOfString(r.DecisionID))
	set(m, "action", protoreflect.ValueOfInt32(int32(r.Action)))
	set(m, "niceness", protoreflect.ValueOfInt32(int32(r.Niceness)))
	return m, nil
}

func (r *DecideResponse) fromMessage(m protoreflect.Message) error {
	if err := checkType(m, decideResponseDesc); err != nil {
		return err
	}
	r.DecisionID = get(m, "decision_id").String()
	r.Action = int(get(m, "action").Int())
	r.Niceness = int(get(m, "niceness").Int())
	return nil
}

// MarshalBinary encodes the request as a nicepolicy.v1.DecideRequest.
func (r DecideRequest) MarshalBinary() ([]byte, error) {
	return marshalOpts.Marshal(r.message())
}

// UnmarshalBinary decodes a nicepolicy.v1.DecideRequest.
func (r *DecideRequest) UnmarshalBinary(b []byte) error {
	m := dynamicpb.NewMessage(decideRequestDesc)
	if err := proto.Unmarshal(b, m); err != nil {
		return fmt.Errorf("decide request: %w", err)
	}
	return r.fromMessage(m)
}

// MarshalBinary encodes the response as a nicepolicy.v1.DecideResponse.
func (r DecideResponse) MarshalBinary() ([]byte, error) {
	m, err := r.message()
	if err != nil {
		return nil, err
	}
	return marshalOpts.Marshal(m)
}

// UnmarshalBinary decodes a nicepolicy.v1.DecideResponse.
func (r *DecideResponse) UnmarshalBinary(b []byte) error {
	m := dynamicpb.NewMessage(decideResponseDesc)
	if err := proto.Unmarshal(b, m); err != nil {
		return fmt.Errorf("decide response: %w", err)
	}
	return r.fromMessage(m)
}

// #endregion decide-messages

// #region reward-messages
// RewardRequest reports the timings observed after a decision was applied.
type RewardRequest struct {
	DecisionID   string
	S0, S1       fixed.Scalar
	Action       int
	WaitNs       uint64
	RunNs        uint64
	TurnaroundNs uint64
}

// RewardResponse mirrors policy.RewardResult.
type RewardResponse struct {
	Cost      fixed.Scalar
	Reward    fixed.Scalar
	Baseline  fixed.Scalar
	Advantage fixed.Scalar
}

func (r RewardRequest) message() (*dynamicpb.Message, error) {
	if err := checkDecisionID(r.DecisionID); err != nil {
		return nil, err
	}
	m := dynamicpb.NewMessage(rewardRequestDesc)
	set(m, "decision_id", protoreflect.ValueOfString(r.DecisionID))
	set(m, "s0", protoreflect.ValueOfInt32(int32(r.S0)))
	set(m, "s1", protoreflect.ValueOfInt32(int32(r.S1)))
	set(m, "action", protoreflect.ValueOfInt32(int32(r.Action)))
	set(m, "wait_ns", protoreflect.ValueOfUint64(r.WaitNs))
	set(m, "run_ns", protoreflect.ValueOfUint64(r.RunNs))
	set(m, "turnaround_ns", protoreflect.ValueOfUint64(r.TurnaroundNs))
	return m, nil
}

func (r *RewardRequest) fromMessage(m protoreflect.Message) error {
	if err := checkType(m, rewardRequestDesc); err != nil {
		return err
	}
	id := get(m, "decision_id").String()
	if err := checkDecisionID(id); err != nil {
		return err
	}
	r.DecisionID = id
	r.S0 = fixed.Scalar(get(m, "s0").Int())
	r.S1 = fixed.Scalar(get(m, "s1").Int())
	r.Action = int(get(m, "action").Int())
	r.WaitNs = get(m, "wait_ns").Uint()
	r.RunNs = get(m, "run_ns").Uint()
	r.TurnaroundNs = get(m, "turnaround_ns").Uint()
	return nil
}

func (r RewardResponse) message() *dynamicpb.Message {
	m := dynamicpb.NewMessage(rewardResponseDesc)
	set(m, "cost", protoreflect.ValueOfInt32(int32(r.Cost)))
	set(m, "reward", protoreflect.ValueOfInt32(int32(r.Reward)))
	set(m, "baseline", protoreflect.ValueOfInt32(int32(r.Baseline)))
	set(m, "advantage", protoreflect.ValueOfInt32(int32(r.Advantage)))
	return m
}

func (r *RewardResponse) fromMessage(m protoreflect.Message) error {
	if err := checkType(m, rewardResponseDesc); err != nil {
		return err
	}
	r.Cost = fixed.Scalar(get(m, "cost").Int())
	r.Reward = fixed.Scalar(get(m, "reward").Int())
	r.Baseline = fixed.Scalar(get(m, "baseline").Int())
	r.Advantage = fixed.Scalar(get(m, "advantage").Int())
	return nil
}

// MarshalBinary encodes the request as a nicepolicy.v1.RewardRequest.
func (r RewardRequest) MarshalBinary() ([]byte, error) {
	m, err := r.message()
	if err != nil {
		return nil, err
	}
	return marshalOpts.Marshal(m)
}

// UnmarshalBinary decodes a nicepolicy.v1.RewardRequest.
func (r *RewardRequest) UnmarshalBinary(b []byte) error {
	m := dynamicpb.NewMessage(rewardRequestDesc)
	if err := proto.Unmarshal(b, m); err != nil {
		return fmt.Errorf("reward request: %w", err)
	}
	return r.fromMessage(m)
}

// MarshalBinary encodes the response as a nicepolicy.v1.RewardResponse.
func (r RewardResponse) MarshalBinary() ([]byte, error) {
	return marshalOpts.Marshal(r.message())
}

// UnmarshalBinary decodes a nicepolicy.v1.RewardResponse.
func (r *RewardResponse) UnmarshalBinary(b []byte) error {
	m := dynamicpb.NewMessage(rewardResponseDesc)
	if err := proto.Unmarshal(b, m); err != nil {
		return fmt.Errorf("reward response: %w", err)
	}
	return r.fromMessage(m)
}

func rewardResponseFrom(res policy.RewardResult) RewardResponse {
	return RewardResponse{
		Cost:      res.Cost,
		Reward:    res.Reward,
		Baseline:  res.Baseline,
		Advantage: res.Advantage,
	}
}

// #endregion reward-messages

// #region helpers
func set(m *dynamicpb.Message, name protoreflect.Name, v protoreflect.Value) {
	m.Set(m.Descriptor().Fields().ByName(name), v)
}

func get(m protoreflect.Message, name protoreflect.Name) protoreflect.Value {
	return m.Get(m.Descriptor().Fields().ByName(name))
}

func checkType(m protoreflect.Message, want protoreflect.MessageDescriptor) error {
	if got := m.Descriptor().FullName(); got != want.FullName() {
		return fmt.Errorf("codec: got %s, want %s", got, want.FullName())
	}
	return nil
}

func checkDecisionID(id string) error {
	if len(id) > maxDecisionID {
		return fmt.Errorf("decision id %d bytes exceeds %d", len(id), maxDecisionID)
	}
	return nil
}

// #endregion helpers
