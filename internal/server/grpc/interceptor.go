package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
	"github.com/xBounceIT/WinOTP-sub000/internal/server/auth"
)

// methods reachable without a session token
var openMethods = map[string]bool{
	fullMethod("Verify"):     true,
	fullMethod("SyncStatus"): true,
	fullMethod("SyncNow"):    true,
}

// sessionInterceptor requires a valid session token on every non-open
// method while the store is protected. The token must belong to the
// keeper's current session: its iat has to match the keeper's auth time.
func (s *GRPCServer) sessionInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if openMethods[info.FullMethod] || !s.keeper.Protected() {
		return handler(ctx, req)
	}

	var sessionToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.SessionTokenHeaderName)
		if len(values) > 0 {
			sessionToken = values[0]
		}
	}
	if len(sessionToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	authTime, err := auth.ParseToken(sessionToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrSessionExpired) {
			return nil, status.Error(codes.Unauthenticated, common.ErrSessionExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidSession.Error())
	}

	if !s.keeper.IsAuthenticated() {
		return nil, status.Error(codes.Unauthenticated, common.ErrLocked.Error())
	}
	if authTime.Unix() != s.keeper.LastAuth().Unix() {
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidSession.Error())
	}

	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Warn(ctx, "request failed", "method", info.FullMethod, "code", status.Code(err).String(), logging.Duration("elapsed", time.Since(start)))
		return resp, err
	}
	s.logger.Debug(ctx, "request served", "method", info.FullMethod, logging.Duration("elapsed", time.Since(start)))
	return resp, nil
}
