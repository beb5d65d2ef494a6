package handler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	otpv1 "otp-relay/api/otp/v1"
	"otp-relay/internal/otp/domain"
	"otp-relay/internal/otp/service"
	"otp-relay/internal/responder"
	"otp-relay/internal/server/interceptors"
)

// OTPService is the subset of *service.Service the handler calls.
type OTPService interface {
	Create(ctx context.Context, projectID string, info *domain.RequestInformation) (*domain.Request, error)
	Get(ctx context.Context, projectID, id string) (*domain.Request, error)
	Validate(ctx context.Context, projectID, id string) (*domain.Request, error)
	Invalidate(ctx context.Context, projectID, id string) (*domain.Request, error)
	Retry(ctx context.Context, projectID, id string) (*domain.Request, error)
}

// Server implements OTPService (gRPC server) for release pipelines.
// Every call is scoped to the project authenticated by the auth interceptor.
type Server struct {
	otpv1.UnimplementedOTPServiceServer
	svc    OTPService
	logger *zap.Logger
}

// NewServer returns a new OTP gRPC server. Pass nil svc for stub (Unimplemented).
func NewServer(svc OTPService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, logger: logger.Named("otp_grpc")}
}

// CreateOTPRequest creates a request and posts its card to the project's bound chat.
// A delivery failure is not an error: the request comes back in state created and may be retried.
func (s *Server) CreateOTPRequest(ctx context.Context, req *otpv1.CreateOTPRequestRequest) (*otpv1.CreateOTPRequestResponse, error) {
	projectID, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	var info *domain.RequestInformation
	if ri := req.RequestInformation; ri != nil && (ri.Description != "" || ri.Url != "") {
		info = &domain.RequestInformation{Description: ri.Description, URL: ri.Url}
	}
	r, err := s.svc.Create(ctx, projectID, info)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &otpv1.CreateOTPRequestResponse{Request: requestToWire(r)}, nil
}

// GetOTPRequest returns a request; the pipeline polls it until it is responded.
func (s *Server) GetOTPRequest(ctx context.Context, req *otpv1.GetOTPRequestRequest) (*otpv1.GetOTPRequestResponse, error) {
	r, err := s.byID(ctx, req.Id, OTPService.Get)
	if err != nil {
		return nil, err
	}
	return &otpv1.GetOTPRequestResponse{Request: r}, nil
}

// ValidateOTPRequest confirms the request is still wanted; answers are accepted only afterwards.
func (s *Server) ValidateOTPRequest(ctx context.Context, req *otpv1.ValidateOTPRequestRequest) (*otpv1.ValidateOTPRequestResponse, error) {
	r, err := s.byID(ctx, req.Id, OTPService.Validate)
	if err != nil {
		return nil, err
	}
	return &otpv1.ValidateOTPRequestResponse{Request: r}, nil
}

// InvalidateOTPRequest withdraws the request.
func (s *Server) InvalidateOTPRequest(ctx context.Context, req *otpv1.InvalidateOTPRequestRequest) (*otpv1.InvalidateOTPRequestResponse, error) {
	r, err := s.byID(ctx, req.Id, OTPService.Invalidate)
	if err != nil {
		return nil, err
	}
	return &otpv1.InvalidateOTPRequestResponse{Request: r}, nil
}

// RetryOTPRequest re-dispatches a request whose card was never delivered.
func (s *Server) RetryOTPRequest(ctx context.Context, req *otpv1.RetryOTPRequestRequest) (*otpv1.RetryOTPRequestResponse, error) {
	r, err := s.byID(ctx, req.Id, OTPService.Retry)
	if err != nil {
		return nil, err
	}
	return &otpv1.RetryOTPRequestResponse{Request: r}, nil
}

type byIDFunc func(svc OTPService, ctx context.Context, projectID, id string) (*domain.Request, error)

func (s *Server) byID(ctx context.Context, id string, call byIDFunc) (*otpv1.OTPRequest, error) {
	projectID, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	r, err := call(s.svc, ctx, projectID, id)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return requestToWire(r), nil
}

func (s *Server) scope(ctx context.Context) (string, error) {
	if s.svc == nil {
		return "", status.Error(codes.Unimplemented, "otp service not configured")
	}
	projectID, ok := interceptors.GetProjectID(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing project credentials")
	}
	return projectID, nil
}

// toStatus maps service errors to gRPC status codes.
func (s *Server) toStatus(err error) error {
	switch {
	case errors.Is(err, responder.ErrNotConfigured):
		return status.Error(codes.FailedPrecondition, "project has no responder configured; link a chat first")
	case errors.Is(err, service.ErrProjectNotFound), errors.Is(err, service.ErrRequestNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, service.ErrNotRetryable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrRequestExpired):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, service.ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	s.logger.Error("otp request call failed", zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}

func requestToWire(r *domain.Request) *otpv1.OTPRequest {
	if r == nil {
		return nil
	}
	out := &otpv1.OTPRequest{
		Id:                 r.ID,
		ProjectId:          r.ProjectID,
		State:              string(r.State),
		MessageId:          r.MessageID,
		ChannelId:          r.ChannelID,
		RequestDescription: r.RequestDescription,
		RequestUrl:         r.RequestURL,
		CreatedAt:          r.CreatedAt,
		ExpiresAt:          r.ExpiresAt,
	}
	// The answer only leaves the service once the request is responded.
	if r.State == domain.StateResponded {
		out.Response = r.Response
		out.UserThatResponded = r.UserThatResponded
		out.RespondedAt = r.RespondedAt
	}
	return out
}
