package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/xBounceIT/WinOTP-sub000/internal/common"
	"github.com/xBounceIT/WinOTP-sub000/internal/logging"
	"github.com/xBounceIT/WinOTP-sub000/internal/models"
	"github.com/xBounceIT/WinOTP-sub000/internal/server/auth"
	"github.com/xBounceIT/WinOTP-sub000/internal/timesync"
)

// toStatus maps keeper errors onto gRPC status codes.
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, common.ErrLocked),
		errors.Is(err, common.ErrWrongCredential),
		errors.Is(err, common.ErrSessionExpired),
		errors.Is(err, common.ErrInvalidSession):
		code = codes.Unauthenticated
	case errors.Is(err, common.ErrInvalidSecret),
		errors.Is(err, common.ErrInvalidCredential),
		errors.Is(err, common.ErrMalformedMigrationPayload),
		errors.Is(err, common.ErrUnsupportedOTPType):
		code = codes.InvalidArgument
	case errors.Is(err, common.ErrDuplicateSecret):
		code = codes.AlreadyExists
	case errors.Is(err, common.ErrTokenNotFound):
		code = codes.NotFound
	case errors.Is(err, common.ErrCorruptStore):
		code = codes.DataLoss
	case errors.Is(err, common.ErrInconsistentState):
		code = codes.FailedPrecondition
	default:
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}

func (s *GRPCServer) ListTokens(ctx context.Context, req *ListTokensRequest) (*ListTokensResponse, error) {

	views, err := s.keeper.SearchTokens(ctx, req.Query)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &ListTokensResponse{Tokens: make([]Token, 0, len(views))}
	for _, v := range views {
		t := Token{
			ID:               v.ID,
			Issuer:           v.Issuer,
			Name:             v.Name,
			Code:             v.Code,
			NextCode:         v.NextCode,
			SecondsRemaining: v.SecondsRemaining,
		}
		if v.Err != nil {
			t.Error = v.Err.Error()
		}
		resp.Tokens = append(resp.Tokens, t)
	}
	return resp, nil
}

func (s *GRPCServer) AddToken(ctx context.Context, req *AddTokenRequest) (*AddTokenResponse, error) {

	id, err := s.keeper.AddToken(ctx, models.Token{Issuer: req.Issuer, Name: req.Name, Secret: req.Secret})
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "token added", "id", id)
	return &AddTokenResponse{ID: id}, nil
}

func (s *GRPCServer) UpdateToken(ctx context.Context, req *UpdateTokenRequest) (*Empty, error) {

	err := s.keeper.UpdateToken(ctx, req.ID, models.Token{Issuer: req.Issuer, Name: req.Name, Secret: req.Secret})
	if err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) DeleteToken(ctx context.Context, req *DeleteTokenRequest) (*Empty, error) {

	if err := s.keeper.DeleteToken(ctx, req.ID); err != nil {
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "token deleted", "id", req.ID)
	return &Empty{}, nil
}

func (s *GRPCServer) ImportURI(ctx context.Context, req *ImportURIRequest) (*ImportURIResponse, error) {

	res, err := s.keeper.ImportURI(ctx, req.URI)
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "import finished", logging.Count("added", res.Added), logging.Count("skipped", res.Skipped))
	return &ImportURIResponse{
		Added:      res.Added,
		Skipped:    res.Skipped,
		Duplicates: res.Duplicates,
		Invalid:    res.Invalid,
	}, nil
}

// Verify opens a session. On a protected store the response carries the
// session token later calls must present.
func (s *GRPCServer) Verify(ctx context.Context, req *CredentialRequest) (*SessionResponse, error) {

	if err := s.keeper.Unlock(ctx, req.Credential); err != nil {
		return nil, toStatus(err)
	}
	return s.session(ctx)
}

func (s *GRPCServer) Logout(ctx context.Context, _ *Empty) (*Empty, error) {
	s.keeper.Logout(ctx)
	return &Empty{}, nil
}

func (s *GRPCServer) SetPIN(ctx context.Context, req *CredentialRequest) (*SessionResponse, error) {

	if err := s.keeper.SetPIN(ctx, req.Credential); err != nil {
		return nil, toStatus(err)
	}
	return s.session(ctx)
}

func (s *GRPCServer) SetPassword(ctx context.Context, req *CredentialRequest) (*SessionResponse, error) {

	if err := s.keeper.SetPassword(ctx, req.Credential); err != nil {
		return nil, toStatus(err)
	}
	return s.session(ctx)
}

func (s *GRPCServer) DisableProtection(ctx context.Context, req *CredentialRequest) (*Empty, error) {

	if err := s.keeper.DisableProtection(ctx, req.Credential); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) SyncStatus(ctx context.Context, _ *Empty) (*SyncStatusResponse, error) {
	return syncResponse(s.sync.Status()), nil
}

// SyncNow runs one synchronization round. A round in which no server
// answered is reported in the response, not as an RPC error.
func (s *GRPCServer) SyncNow(ctx context.Context, _ *Empty) (*SyncStatusResponse, error) {

	st, err := s.sync.Sync(ctx)
	resp := syncResponse(st)
	if err != nil {
		s.logger.Warn(ctx, "manual time sync failed", logging.Err(err))
		resp.Error = err.Error()
	}
	return resp, nil
}

func syncResponse(st timesync.Status) *SyncStatusResponse {
	return &SyncStatusResponse{
		OffsetMS:        st.OffsetMS,
		LastSync:        st.LastSync,
		IntervalSeconds: int64(st.Interval / time.Second),
		Running:         st.Running,
		Synced:          st.Synced,
		Syncing:         st.Syncing,
	}
}

// session issues a token for the keeper's current session.
func (s *GRPCServer) session(ctx context.Context) (*SessionResponse, error) {

	if !s.keeper.Protected() {
		return &SessionResponse{Protected: false}, nil
	}

	validity := time.Duration(s.keeper.TimeoutMinutes()) * time.Minute
	token, err := auth.GenerateToken(s.jwtSecret, s.keeper.LastAuth(), validity)
	if err != nil {
		s.logger.Error(ctx, "issuing session token failed", logging.Err(err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &SessionResponse{Protected: true, SessionToken: token}, nil
}
