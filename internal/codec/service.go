// Package codec carries the policy over gRPC. The nicepolicy.v1 messages are
// built at runtime from a descriptor, so no generated stubs are needed on
// either side and any protoc-generated client of the same .proto interoperates.
package codec

import (
	"context"
	"errors"
	"strings"

	"github.com/danielpatrickdp/adaptive-nice/go-controller/internal/policy"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = protoPackage + ".PolicyService"

const (
	decideMethod = "/" + ServiceName + "/Decide"
	rewardMethod = "/" + ServiceName + "/Reward"
	dumpMethod   = "/" + ServiceName + "/Dump"
)

// #region observer
// Observer is told about every request the server handles. Calls happen after
// the policy lock is released.
type Observer interface {
	ObserveDecision(id string, req DecideRequest, d policy.Decision)
	ObserveReward(req RewardRequest, res policy.RewardResult)
	ObserveRejected(req RewardRequest, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveDecision(string, DecideRequest, policy.Decision) {}
func (nopObserver) ObserveReward(RewardRequest, policy.RewardResult)      {}
func (nopObserver) ObserveRejected(RewardRequest, error)                   {}

// #endregion observer

// #region server
// PolicyServiceServer is the server API for PolicyService.
type PolicyServiceServer interface {
	Decide(context.Context, DecideRequest) (DecideResponse, error)
	Reward(context.Context, RewardRequest) (RewardResponse, error)
	Dump(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
}

// Server implements PolicyServiceServer on top of a policy.Policy.
type Server struct {
	policy   *policy.Policy
	observer Observer
}

// NewServer wraps p. A nil observer discards notifications.
func NewServer(p *policy.Policy, observer Observer) *Server {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Server{policy: p, observer: observer}
}

// Decide runs one forward pass and returns the chosen action.
func (s *Server) Decide(_ context.Context, req DecideRequest) (DecideResponse, error) {
	d := s.policy.Decide(req.S0, req.S1)
	id := uuid.New().String()
	s.observer.ObserveDecision(id, req, d)
	return DecideResponse{DecisionID: id, Action: d.Action, Niceness: d.Niceness}, nil
}

// Reward applies one learning step.
func (s *Server) Reward(_ context.Context, req RewardRequest) (RewardResponse, error) {
	res, err := s.policy.Reward(req.S0, req.S1, req.Action, req.WaitNs, req.RunNs, req.TurnaroundNs)
	if err != nil {
		s.observer.ObserveRejected(req, err)
		if errors.Is(err, policy.ErrInvalidAction) {
			return RewardResponse{}, status.Error(codes.InvalidArgument, err.Error())
		}
		return RewardResponse{}, status.Error(codes.Internal, err.Error())
	}
	s.observer.ObserveReward(req, res)
	return rewardResponseFrom(res), nil
}

// Dump renders the current parameters in the text introspection format.
func (s *Server) Dump(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	var b strings.Builder
	if _, err := s.policy.Snapshot().WriteTo(&b); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.String(b.String()), nil
}

// #endregion server

// #region service-desc
// Register attaches srv to a gRPC server.
func Register(s grpc.ServiceRegistrar, srv PolicyServiceServer) {
	s.RegisterService(&PolicyService_ServiceDesc, srv)
}

func _PolicyService_Decide_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := dynamicpb.NewMessage(decideRequestDesc)
	if err := dec(in); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		var r DecideRequest
		if err := r.fromMessage(req.(proto.Message).ProtoReflect()); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		resp, err := srv.(PolicyServiceServer).Decide(ctx, r)
		if err != nil {
			return nil, err
		}
		out, err := resp.message()
		if err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		return out, nil
	}
	if interceptor == nil {
		return handler(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: decideMethod}
	return interceptor(ctx, in, info, handler)
}

func _PolicyService_Reward_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := dynamicpb.NewMessage(rewardRequestDesc)
	if err := dec(in); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		var r RewardRequest
		if err := r.fromMessage(req.(proto.Message).ProtoReflect()); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		resp, err := srv.(PolicyServiceServer).Reward(ctx, r)
		if err != nil {
			return nil, err
		}
		return resp.message(), nil
	}
	if interceptor == nil {
		return handler(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rewardMethod}
	return interceptor(ctx, in, info, handler)
}

func _PolicyService_Dump_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PolicyServiceServer).Dump(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: dumpMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PolicyServiceServer).Dump(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// PolicyService_ServiceDesc is the grpc.ServiceDesc for PolicyService.
var PolicyService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PolicyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Decide", Handler: _PolicyService_Decide_Handler},
		{MethodName: "Reward", Handler: _PolicyService_Reward_Handler},
		{MethodName: "Dump", Handler: _PolicyService_Dump_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: protoFile,
}

// #endregion service-desc
