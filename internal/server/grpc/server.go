// Package grpc exposes the keeper over gRPC for the winotpd daemon. Messages
// travel as JSON (content subtype "json"); the service descriptor is
// declared by hand in desc.go.
package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/xBounceIT/WinOTP-sub000/internal/keeper"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
	"github.com/xBounceIT/WinOTP-sub000/internal/models"
	"github.com/xBounceIT/WinOTP-sub000/internal/timesync"
)

// Keeper is the part of keeper.Keeper the service uses.
type Keeper interface {
	Protected() bool
	IsAuthenticated() bool
	LastAuth() time.Time
	TimeoutMinutes() int
	Unlock(ctx context.Context, credential string) error
	Logout(ctx context.Context)
	ListTokens(ctx context.Context) ([]keeper.TokenView, error)
	SearchTokens(ctx context.Context, query string) ([]keeper.TokenView, error)
	AddToken(ctx context.Context, t models.Token) (string, error)
	UpdateToken(ctx context.Context, id string, t models.Token) error
	DeleteToken(ctx context.Context, id string) error
	ImportURI(ctx context.Context, raw string) (keeper.ImportResult, error)
	SetPIN(ctx context.Context, pin string) error
	SetPassword(ctx context.Context, password string) error
	DisableProtection(ctx context.Context, credential string) error
}

// TimeSync is the part of timesync.Synchronizer the service uses.
type TimeSync interface {
	Status() timesync.Status
	Sync(ctx context.Context) (timesync.Status, error)
}

type GRPCServer struct {
	address   string
	keeper    Keeper
	sync      TimeSync
	logger    logging.Logger
	jwtSecret []byte
}

var _ OTPServiceServer = (*GRPCServer)(nil)

// NewGRPCServer builds the service. Session tokens are signed with
// secretKey.
func NewGRPCServer(address string, l logging.Logger, k Keeper, ts TimeSync, secretKey []byte) *GRPCServer {
	return &GRPCServer{
		address:   address,
		logger:    l.With("module", "grpc_server"),
		keeper:    k,
		sync:      ts,
		jwtSecret: secretKey,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.sessionInterceptor))

	RegisterOTPServiceServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
