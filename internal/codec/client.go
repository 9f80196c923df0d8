package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region client-struct
// Client talks to a PolicyService over gRPC.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewClient connects to a PolicyService at addr.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn creates a Client over an existing connection. Close is a
// no-op for clients built this way.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region decide
// Decide asks the service for the niceness of one process state.
func (c *Client) Decide(ctx context.Context, req DecideRequest) (DecideResponse, error) {
	out := dynamicpb.NewMessage(decideResponseDesc)
	if err := c.cc.Invoke(ctx, decideMethod, req.message(), out); err != nil {
		return DecideResponse{}, fmt.Errorf("decide rpc: %w", err)
	}
	var resp DecideResponse
	if err := resp.fromMessage(out); err != nil {
		return DecideResponse{}, fmt.Errorf("decide rpc: %w", err)
	}
	return resp, nil
}

// #endregion decide

// #region reward
// Reward reports the timings observed after a decision.
func (c *Client) Reward(ctx context.Context, req RewardRequest) (RewardResponse, error) {
	in, err := req.message()
	if err != nil {
		return RewardResponse{}, fmt.Errorf("reward rpc: %w", err)
	}
	out := dynamicpb.NewMessage(rewardResponseDesc)
	if err := c.cc.Invoke(ctx, rewardMethod, in, out); err != nil {
		return RewardResponse{}, fmt.Errorf("reward rpc: %w", err)
	}
	var resp RewardResponse
	if err := resp.fromMessage(out); err != nil {
		return RewardResponse{}, fmt.Errorf("reward rpc: %w", err)
	}
	return resp, nil
}

// #endregion reward

// #region dump
// Dump fetches the text rendering of the current parameters.
func (c *Client) Dump(ctx context.Context) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, dumpMethod, &emptypb.Empty{}, out); err != nil {
		return "", fmt.Errorf("dump rpc: %w", err)
	}
	return out.GetValue(), nil
}

// #endregion dump
