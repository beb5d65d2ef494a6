package otpv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	OTPService_CreateOTPRequest_FullMethodName     = "/otprelay.v1.OTPService/CreateOTPRequest"
	OTPService_GetOTPRequest_FullMethodName        = "/otprelay.v1.OTPService/GetOTPRequest"
	OTPService_ValidateOTPRequest_FullMethodName   = "/otprelay.v1.OTPService/ValidateOTPRequest"
	OTPService_InvalidateOTPRequest_FullMethodName = "/otprelay.v1.OTPService/InvalidateOTPRequest"
	OTPService_RetryOTPRequest_FullMethodName      = "/otprelay.v1.OTPService/RetryOTPRequest"
)

// OTPServiceClient is the client API for OTPService. Calls are sent with the JSON codec.
type OTPServiceClient interface {
	CreateOTPRequest(ctx context.Context, in *CreateOTPRequestRequest, opts ...grpc.CallOption) (*CreateOTPRequestResponse, error)
	GetOTPRequest(ctx context.Context, in *GetOTPRequestRequest, opts ...grpc.CallOption) (*GetOTPRequestResponse, error)
	ValidateOTPRequest(ctx context.Context, in *ValidateOTPRequestRequest, opts ...grpc.CallOption) (*ValidateOTPRequestResponse, error)
	InvalidateOTPRequest(ctx context.Context, in *InvalidateOTPRequestRequest, opts ...grpc.CallOption) (*InvalidateOTPRequestResponse, error)
	RetryOTPRequest(ctx context.Context, in *RetryOTPRequestRequest, opts ...grpc.CallOption) (*RetryOTPRequestResponse, error)
}

type oTPServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOTPServiceClient(cc grpc.ClientConnInterface) OTPServiceClient {
	return &oTPServiceClient{cc}
}

func callOpts(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *oTPServiceClient) CreateOTPRequest(ctx context.Context, in *CreateOTPRequestRequest, opts ...grpc.CallOption) (*CreateOTPRequestResponse, error) {
	out := new(CreateOTPRequestResponse)
	if err := c.cc.Invoke(ctx, OTPService_CreateOTPRequest_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *oTPServiceClient) GetOTPRequest(ctx context.Context, in *GetOTPRequestRequest, opts ...grpc.CallOption) (*GetOTPRequestResponse, error) {
	out := new(GetOTPRequestResponse)
	if err := c.cc.Invoke(ctx, OTPService_GetOTPRequest_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *oTPServiceClient) ValidateOTPRequest(ctx context.Context, in *ValidateOTPRequestRequest, opts ...grpc.CallOption) (*ValidateOTPRequestResponse, error) {
	out := new(ValidateOTPRequestResponse)
	if err := c.cc.Invoke(ctx, OTPService_ValidateOTPRequest_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *oTPServiceClient) InvalidateOTPRequest(ctx context.Context, in *InvalidateOTPRequestRequest, opts ...grpc.CallOption) (*InvalidateOTPRequestResponse, error) {
	out := new(InvalidateOTPRequestResponse)
	if err := c.cc.Invoke(ctx, OTPService_InvalidateOTPRequest_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *oTPServiceClient) RetryOTPRequest(ctx context.Context, in *RetryOTPRequestRequest, opts ...grpc.CallOption) (*RetryOTPRequestResponse, error) {
	out := new(RetryOTPRequestResponse)
	if err := c.cc.Invoke(ctx, OTPService_RetryOTPRequest_FullMethodName, in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// OTPServiceServer is the server API for OTPService.
type OTPServiceServer interface {
	CreateOTPRequest(context.Context, *CreateOTPRequestRequest) (*CreateOTPRequestResponse, error)
	GetOTPRequest(context.Context, *GetOTPRequestRequest) (*GetOTPRequestResponse, error)
	ValidateOTPRequest(context.Context, *ValidateOTPRequestRequest) (*ValidateOTPRequestResponse, error)
	InvalidateOTPRequest(context.Context, *InvalidateOTPRequestRequest) (*InvalidateOTPRequestResponse, error)
	RetryOTPRequest(context.Context, *RetryOTPRequestRequest) (*RetryOTPRequestResponse, error)
	mustEmbedUnimplementedOTPServiceServer()
}

// UnimplementedOTPServiceServer must be embedded for forward compatibility.
type UnimplementedOTPServiceServer struct{}

func (UnimplementedOTPServiceServer) CreateOTPRequest(context.Context, *CreateOTPRequestRequest) (*CreateOTPRequestResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateOTPRequest not implemented")
}
func (UnimplementedOTPServiceServer) GetOTPRequest(context.Context, *GetOTPRequestRequest) (*GetOTPRequestResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOTPRequest not implemented")
}
func (UnimplementedOTPServiceServer) ValidateOTPRequest(context.Context, *ValidateOTPRequestRequest) (*ValidateOTPRequestResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ValidateOTPRequest not implemented")
}
func (UnimplementedOTPServiceServer) InvalidateOTPRequest(context.Context, *InvalidateOTPRequestRequest) (*InvalidateOTPRequestResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method InvalidateOTPRequest not implemented")
}
func (UnimplementedOTPServiceServer) RetryOTPRequest(context.Context, *RetryOTPRequestRequest) (*RetryOTPRequestResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RetryOTPRequest not implemented")
}
func (UnimplementedOTPServiceServer) mustEmbedUnimplementedOTPServiceServer() {}

func RegisterOTPServiceServer(s grpc.ServiceRegistrar, srv OTPServiceServer) {
	s.RegisterService(&OTPService_ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(OTPServiceServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OTPServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(OTPServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// OTPService_ServiceDesc is the grpc.ServiceDesc for OTPService.
var OTPService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "otprelay.v1.OTPService",
	HandlerType: (*OTPServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateOTPRequest",
			Handler:    unaryHandler(OTPService_CreateOTPRequest_FullMethodName, OTPServiceServer.CreateOTPRequest),
		},
		{
			MethodName: "GetOTPRequest",
			Handler:    unaryHandler(OTPService_GetOTPRequest_FullMethodName, OTPServiceServer.GetOTPRequest),
		},
		{
			MethodName: "ValidateOTPRequest",
			Handler:    unaryHandler(OTPService_ValidateOTPRequest_FullMethodName, OTPServiceServer.ValidateOTPRequest),
		},
		{
			MethodName: "InvalidateOTPRequest",
			Handler:    unaryHandler(OTPService_InvalidateOTPRequest_FullMethodName, OTPServiceServer.InvalidateOTPRequest),
		},
		{
			MethodName: "RetryOTPRequest",
			Handler:    unaryHandler(OTPService_RetryOTPRequest_FullMethodName, OTPServiceServer.RetryOTPRequest),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/otp/v1/otp.go",
}
