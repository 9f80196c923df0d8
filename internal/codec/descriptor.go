package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	_ "google.golang.org/protobuf/types/known/emptypb"
	_ "google.golang.org/protobuf/types/known/wrapperspb"
)

// #region proto-file
// policyFileProto is nicepolicy/v1/policy.proto:
//
//	syntax = "proto3";
//	package nicepolicy.v1;
//
//	message DecideRequest  { sint32 s0 = 1; sint32 s1 = 2; }
//	message DecideResponse { string decision_id = 1; int32 action = 2; sint32 niceness = 3; }
//	message RewardRequest  {
//	  string decision_id = 1; sint32 s0 = 2; sint32 s1 = 3; int32 action = 4;
//	  uint64 wait_ns = 5; uint64 run_ns = 6; uint64 turnaround_ns = 7;
//	}
//	message RewardResponse { sint32 cost = 1; sint32 reward = 2; sint32 baseline = 3; sint32 advantage = 4; }
//
//	service PolicyService {
//	  rpc Decide(DecideRequest) returns (DecideResponse);
//	  rpc Reward(RewardRequest) returns (RewardResponse);
//	  rpc Dump(google.protobuf.Empty) returns (google.protobuf.StringValue);
//	}
//
// Fixed-point values travel as raw Q16.16 integers.
func policyFileProto() *descriptorpb.FileDescriptorProto {
	const (
		tSint32 = descriptorpb.FieldDescriptorProto_TYPE_SINT32
		tInt32  = descriptorpb.FieldDescriptorProto_TYPE_INT32
		tUint64 = descriptorpb.FieldDescriptorProto_TYPE_UINT64
		tString = descriptorpb.FieldDescriptorProto_TYPE_STRING
	)
	return &descriptorpb.FileDescriptorProto{
		Name:       proto.String(protoFile),
		Package:    proto.String(protoPackage),
		Syntax:     proto.String("proto3"),
		Dependency: []string{"google/protobuf/empty.proto", "google/protobuf/wrappers.proto"},
		MessageType: []*descriptorpb.DescriptorProto{
			message("DecideRequest",
				field("s0", 1, tSint32),
				field("s1", 2, tSint32)),
			message("DecideResponse",
				field("decision_id", 1, tString),
				field("action", 2, tInt32),
				field("niceness", 3, tSint32)),
			message("RewardRequest",
				field("decision_id", 1, tString),
				field("s0", 2, tSint32),
				field("s1", 3, tSint32),
				field("action", 4, tInt32),
				field("wait_ns", 5, tUint64),
				field("run_ns", 6, tUint64),
				field("turnaround_ns", 7, tUint64)),
			message("RewardResponse",
				field("cost", 1, tSint32),
				field("reward", 2, tSint32),
				field("baseline", 3, tSint32),
				field("advantage", 4, tSint32)),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("PolicyService"),
			Method: []*descriptorpb.MethodDescriptorProto{
				method("Decide", "."+protoPackage+".DecideRequest", "."+protoPackage+".DecideResponse"),
				method("Reward", "."+protoPackage+".RewardRequest", "."+protoPackage+".RewardResponse"),
				method("Dump", ".google.protobuf.Empty", ".google.protobuf.StringValue"),
			},
		}},
	}
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

func field(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func method(name, in, out string) *descriptorpb.MethodDescriptorProto {
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String(in),
		OutputType: proto.String(out),
	}
}

// #endregion proto-file

// #region descriptors
const (
	protoFile    = "nicepolicy/v1/policy.proto"
	protoPackage = "nicepolicy.v1"
)

// PolicyFile is the resolved descriptor of policy.proto. Empty and
// StringValue resolve from the global registry.
var PolicyFile = mustFile(policyFileProto())

var (
	decideRequestDesc  = PolicyFile.Messages().ByName("DecideRequest")
	decideResponseDesc = PolicyFile.Messages().ByName("DecideResponse")
	rewardRequestDesc  = PolicyFile.Messages().ByName("RewardRequest")
	rewardResponseDesc = PolicyFile.Messages().ByName("RewardResponse")
)

func mustFile(fdp *descriptorpb.FileDescriptorProto) protoreflect.FileDescriptor {
	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("codec: build %s: %v", fdp.GetName(), err))
	}
	return fd
}

// #endregion descriptors
