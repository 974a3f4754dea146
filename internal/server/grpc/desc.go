package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "winotp.v1.OTPService"

// OTPServiceServer is the server API for the OTP service.
type OTPServiceServer interface {
	ListTokens(context.Context, *ListTokensRequest) (*ListTokensResponse, error)
	AddToken(context.Context, *AddTokenRequest) (*AddTokenResponse, error)
	UpdateToken(context.Context, *UpdateTokenRequest) (*Empty, error)
	DeleteToken(context.Context, *DeleteTokenRequest) (*Empty, error)
	ImportURI(context.Context, *ImportURIRequest) (*ImportURIResponse, error)
	Verify(context.Context, *CredentialRequest) (*SessionResponse, error)
	Logout(context.Context, *Empty) (*Empty, error)
	SetPIN(context.Context, *CredentialRequest) (*SessionResponse, error)
	SetPassword(context.Context, *CredentialRequest) (*SessionResponse, error)
	DisableProtection(context.Context, *CredentialRequest) (*Empty, error)
	SyncStatus(context.Context, *Empty) (*SyncStatusResponse, error)
	SyncNow(context.Context, *Empty) (*SyncStatusResponse, error)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary builds the method descriptor for one OTPServiceServer method.
func unary[Req, Resp any](name string, call func(OTPServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(OTPServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

// OTPServiceDesc describes the service for grpc.Server.RegisterService.
var OTPServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OTPServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListTokens", OTPServiceServer.ListTokens),
		unary("AddToken", OTPServiceServer.AddToken),
		unary("UpdateToken", OTPServiceServer.UpdateToken),
		unary("DeleteToken", OTPServiceServer.DeleteToken),
		unary("ImportURI", OTPServiceServer.ImportURI),
		unary("Verify", OTPServiceServer.Verify),
		unary("Logout", OTPServiceServer.Logout),
		unary("SetPIN", OTPServiceServer.SetPIN),
		unary("SetPassword", OTPServiceServer.SetPassword),
		unary("DisableProtection", OTPServiceServer.DisableProtection),
		unary("SyncStatus", OTPServiceServer.SyncStatus),
		unary("SyncNow", OTPServiceServer.SyncNow),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "winotp/v1/otp.json",
}

// RegisterOTPServiceServer registers srv on s.
func RegisterOTPServiceServer(s grpc.ServiceRegistrar, srv OTPServiceServer) {
	s.RegisterService(&OTPServiceDesc, srv)
}
