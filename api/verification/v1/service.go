package verificationv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Full method names for the VerificationService RPCs.
const (
	VerificationService_CreateSession_FullMethodName         = "/verification.v1.VerificationService/CreateSession"
	VerificationService_GetSessionMetadata_FullMethodName    = "/verification.v1.VerificationService/GetSessionMetadata"
	VerificationService_SendVerificationCode_FullMethodName  = "/verification.v1.VerificationService/SendVerificationCode"
	VerificationService_CheckVerificationCode_FullMethodName = "/verification.v1.VerificationService/CheckVerificationCode"
)

// VerificationServiceClient is the client API for VerificationService.
type VerificationServiceClient interface {
	CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*CreateSessionResponse, error)
	GetSessionMetadata(ctx context.Context, in *GetSessionMetadataRequest, opts ...grpc.CallOption) (*GetSessionMetadataResponse, error)
	SendVerificationCode(ctx context.Context, in *SendVerificationCodeRequest, opts ...grpc.CallOption) (*SendVerificationCodeResponse, error)
	CheckVerificationCode(ctx context.Context, in *CheckVerificationCodeRequest, opts ...grpc.CallOption) (*CheckVerificationCodeResponse, error)
}

type verificationServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewVerificationServiceClient creates a client over the given connection.
func NewVerificationServiceClient(cc grpc.ClientConnInterface) VerificationServiceClient {
	return &verificationServiceClient{cc}
}

func (c *verificationServiceClient) CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*CreateSessionResponse, error) {
	out := new(CreateSessionResponse)
	if err := c.cc.Invoke(ctx, VerificationService_CreateSession_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *verificationServiceClient) GetSessionMetadata(ctx context.Context, in *GetSessionMetadataRequest, opts ...grpc.CallOption) (*GetSessionMetadataResponse, error) {
	out := new(GetSessionMetadataResponse)
	if err := c.cc.Invoke(ctx, VerificationService_GetSessionMetadata_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *verificationServiceClient) SendVerificationCode(ctx context.Context, in *SendVerificationCodeRequest, opts ...grpc.CallOption) (*SendVerificationCodeResponse, error) {
	out := new(SendVerificationCodeResponse)
	if err := c.cc.Invoke(ctx, VerificationService_SendVerificationCode_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *verificationServiceClient) CheckVerificationCode(ctx context.Context, in *CheckVerificationCodeRequest, opts ...grpc.CallOption) (*CheckVerificationCodeResponse, error) {
	out := new(CheckVerificationCodeResponse)
	if err := c.cc.Invoke(ctx, VerificationService_CheckVerificationCode_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// VerificationServiceServer is the server API for VerificationService.
// Implementations must embed UnimplementedVerificationServiceServer for
// forward compatibility.
type VerificationServiceServer interface {
	CreateSession(context.Context, *CreateSessionRequest) (*CreateSessionResponse, error)
	GetSessionMetadata(context.Context, *GetSessionMetadataRequest) (*GetSessionMetadataResponse, error)
	SendVerificationCode(context.Context, *SendVerificationCodeRequest) (*SendVerificationCodeResponse, error)
	CheckVerificationCode(context.Context, *CheckVerificationCodeRequest) (*CheckVerificationCodeResponse, error)
	mustEmbedUnimplementedVerificationServiceServer()
}

// UnimplementedVerificationServiceServer must be embedded for forward
// compatible implementations.
type UnimplementedVerificationServiceServer struct{}

func (UnimplementedVerificationServiceServer) CreateSession(context.Context, *CreateSessionRequest) (*CreateSessionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CreateSession not implemented")
}

func (UnimplementedVerificationServiceServer) GetSessionMetadata(context.Context, *GetSessionMetadataRequest) (*GetSessionMetadataResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetSessionMetadata not implemented")
}

func (UnimplementedVerificationServiceServer) SendVerificationCode(context.Context, *SendVerificationCodeRequest) (*SendVerificationCodeResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SendVerificationCode not implemented")
}

func (UnimplementedVerificationServiceServer) CheckVerificationCode(context.Context, *CheckVerificationCodeRequest) (*CheckVerificationCodeResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CheckVerificationCode not implemented")
}

func (UnimplementedVerificationServiceServer) mustEmbedUnimplementedVerificationServiceServer() {}

// RegisterVerificationServiceServer registers the service implementation
// with the gRPC server.
func RegisterVerificationServiceServer(s grpc.ServiceRegistrar, srv VerificationServiceServer) {
	s.RegisterService(&VerificationService_ServiceDesc, srv)
}

func _VerificationService_CreateSession_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CreateSessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VerificationServiceServer).CreateSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: VerificationService_CreateSession_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VerificationServiceServer).CreateSession(ctx, req.(*CreateSessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _VerificationService_GetSessionMetadata_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetSessionMetadataRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VerificationServiceServer).GetSessionMetadata(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: VerificationService_GetSessionMetadata_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VerificationServiceServer).GetSessionMetadata(ctx, req.(*GetSessionMetadataRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _VerificationService_SendVerificationCode_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SendVerificationCodeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VerificationServiceServer).SendVerificationCode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: VerificationService_SendVerificationCode_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VerificationServiceServer).SendVerificationCode(ctx, req.(*SendVerificationCodeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _VerificationService_CheckVerificationCode_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CheckVerificationCodeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VerificationServiceServer).CheckVerificationCode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: VerificationService_CheckVerificationCode_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(VerificationServiceServer).CheckVerificationCode(ctx, req.(*CheckVerificationCodeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// VerificationService_ServiceDesc is the grpc.ServiceDesc for
// VerificationService. It should only be used with grpc.RegisterService.
var VerificationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "verification.v1.VerificationService",
	HandlerType: (*VerificationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateSession",
			Handler:    _VerificationService_CreateSession_Handler,
		},
		{
			MethodName: "GetSessionMetadata",
			Handler:    _VerificationService_GetSessionMetadata_Handler,
		},
		{
			MethodName: "SendVerificationCode",
			Handler:    _VerificationService_SendVerificationCode_Handler,
		},
		{
			MethodName: "CheckVerificationCode",
			Handler:    _VerificationService_CheckVerificationCode_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/verification/v1/verification.proto",
}
