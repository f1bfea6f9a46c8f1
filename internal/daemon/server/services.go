package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/devicelink/devicelink/internal/faults"
	"github.com/devicelink/devicelink/internal/models"
)

// ============================================================================
// Message Types
// ============================================================================

// RequestMeta contains metadata about the client making a request.
type RequestMeta struct {
	ClientID string `json:"clientId,omitempty"`
	Version  string `json:"version,omitempty"`
}

// Request is the request of calls that take no arguments.
type Request struct {
	Meta *RequestMeta `json:"meta,omitempty"`
}

// StatusReply is the bridge status plus the daemon's own details.
// Since and StartedAt are nil when unknown.
type StatusReply struct {
	Bridge    models.BridgeStatus    `json:"bridge"`
	Daemon    *models.DaemonInfo     `json:"daemon,omitempty"`
	Since     *timestamppb.Timestamp `json:"since,omitempty"`
	StartedAt *timestamppb.Timestamp `json:"startedAt,omitempty"`
}

// ShareRequest asks a device to open a URL or text/dial a number.
type ShareRequest struct {
	Meta   *RequestMeta `json:"meta,omitempty"`
	Device string       `json:"device"`
	URL    string       `json:"url"`
	Action string       `json:"action"`
}

// ============================================================================
// Service Definition
// ============================================================================

const serviceName = "devicelink.Bridge"

// BridgeServer is the server interface for the Bridge service.
type BridgeServer interface {
	GetStatus(context.Context, *Request) (*StatusReply, error)
	Share(context.Context, *ShareRequest) (*emptypb.Empty, error)
	Reconnect(context.Context, *Request) (*emptypb.Empty, error)
	Shutdown(context.Context, *Request) (*emptypb.Empty, error)
	Watch(*Request, Bridge_WatchServer) error
}

// Bridge_WatchServer is the server side of a Watch stream.
type Bridge_WatchServer interface {
	Send(*StatusReply) error
	grpc.ServerStream
}

type bridgeWatchServer struct {
	grpc.ServerStream
}

func (x *bridgeWatchServer) Send(m *StatusReply) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterBridgeServer registers the BridgeServer with the gRPC server.
func RegisterBridgeServer(s grpc.ServiceRegistrar, srv BridgeServer) {
	s.RegisterService(&bridgeServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(BridgeServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BridgeServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BridgeServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(Request)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(BridgeServer).Watch(in, &bridgeWatchServer{stream})
}

var bridgeServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*BridgeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: unaryHandler("GetStatus", BridgeServer.GetStatus)},
		{MethodName: "Share", Handler: unaryHandler("Share", BridgeServer.Share)},
		{MethodName: "Reconnect", Handler: unaryHandler("Reconnect", BridgeServer.Reconnect)},
		{MethodName: "Shutdown", Handler: unaryHandler("Shutdown", BridgeServer.Shutdown)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "devicelink/bridge",
}

// statusError maps a fault to the matching gRPC status.
func statusError(err error) error {
	if err == nil {
		return nil
	}
	code := codes.Internal
	switch faults.KindOf(err) {
	case faults.Untrusted:
		code = codes.PermissionDenied
	case faults.Malformed:
		code = codes.InvalidArgument
	case faults.NotConnected, faults.Disconnected, faults.Transport:
		code = codes.Unavailable
	case faults.Inspection:
		code = codes.FailedPrecondition
	}
	return status.Error(code, err.Error())
}
