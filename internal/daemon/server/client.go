package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

// BridgeClient is the client side of the Bridge service.
type BridgeClient struct {
	cc grpc.ClientConnInterface
}

// NewBridgeClient wraps a connection to the daemon.
func NewBridgeClient(cc grpc.ClientConnInterface) *BridgeClient {
	return &BridgeClient{cc: cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *BridgeClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, callOpts(opts)...)
}

// GetStatus returns the bridge status.
func (c *BridgeClient) GetStatus(ctx context.Context, in *Request, opts ...grpc.CallOption) (*StatusReply, error) {
	out := new(StatusReply)
	if err := c.invoke(ctx, "GetStatus", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// Share sends a share command to a device.
func (c *BridgeClient) Share(ctx context.Context, in *ShareRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.invoke(ctx, "Share", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// Reconnect drops and reopens the companion channel.
func (c *BridgeClient) Reconnect(ctx context.Context, in *Request, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.invoke(ctx, "Reconnect", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// Shutdown asks the daemon to exit.
func (c *BridgeClient) Shutdown(ctx context.Context, in *Request, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.invoke(ctx, "Shutdown", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// Bridge_WatchClient receives status updates.
type Bridge_WatchClient interface {
	Recv() (*StatusReply, error)
	grpc.ClientStream
}

type bridgeWatchClient struct {
	grpc.ClientStream
}

func (x *bridgeWatchClient) Recv() (*StatusReply, error) {
	m := new(StatusReply)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Watch streams the status now and after every roster change.
func (c *BridgeClient) Watch(ctx context.Context, in *Request, opts ...grpc.CallOption) (Bridge_WatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &bridgeServiceDesc.Streams[0], "/"+serviceName+"/Watch", callOpts(opts)...)
	if err != nil {
		return nil, err
	}
	x := &bridgeWatchClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
