// Package server assembles the pipeline-facing gRPC server and the HTTP router for chat webhooks
// and the admin API.
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	otpv1 "otp-relay/api/otp/v1"
	"otp-relay/internal/audit"
	healthhandler "otp-relay/internal/health/handler"
	otphandler "otp-relay/internal/otp/handler"
	"otp-relay/internal/server/interceptors"
	"otp-relay/internal/telemetry"
)

// Deps holds the dependencies of the gRPC server. Only OTP is needed to serve requests; every
// other field switches on an optional layer.
type Deps struct {
	// OTP backs OTPService. If nil, its RPCs return Unimplemented.
	OTP otphandler.OTPService
	// Projects and Secrets authenticate pipelines by project id and secret. If Projects is nil, no
	// auth interceptor is installed and OTPService rejects every call as unauthenticated.
	Projects interceptors.ProjectGetter
	Secrets  interceptors.SecretComparer
	// Audit records every authenticated RPC. Optional.
	Audit audit.AuditLogger
	// Events receives one grpc_request event per RPC. Optional.
	Events telemetry.EventEmitter
	// HealthPinger is used by the health service for readiness (e.g. *sql.DB). Optional.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used by the health service for readiness (e.g. OPA evaluator). Optional.
	HealthPolicyChecker healthhandler.PolicyChecker
	Logger              *zap.Logger
}

// RegisterServices registers OTPService and grpc.health.v1.Health with s.
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	otpv1.RegisterOTPServiceServer(s, otphandler.NewServer(deps.OTP, deps.Logger))
	healthpb.RegisterHealthServer(s, healthhandler.NewServer(
		deps.HealthPinger, deps.HealthPolicyChecker, deps.Logger, otpv1.OTPService_ServiceDesc.ServiceName))
}

// NewGRPCServer builds a server with tracing, auth, audit and telemetry interceptors and all
// services registered. Health methods bypass the interceptors.
func NewGRPCServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	public := healthMethods()

	var chain []grpc.UnaryServerInterceptor
	if deps.Projects != nil {
		chain = append(chain, interceptors.AuthUnary(deps.Projects, deps.Secrets, public, logger))
	}
	if deps.Audit != nil {
		chain = append(chain, interceptors.AuditUnary(deps.Audit, public))
	}
	if deps.Events != nil {
		chain = append(chain, interceptors.TelemetryUnary(deps.Events, public, logger))
	}

	serverOpts := []grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}
	if len(chain) > 0 {
		serverOpts = append(serverOpts, grpc.ChainUnaryInterceptor(chain...))
	}
	s := grpc.NewServer(append(serverOpts, opts...)...)
	RegisterServices(s, deps)
	return s
}

// healthMethods returns the full method names of the health service.
func healthMethods() map[string]bool {
	desc := healthpb.Health_ServiceDesc
	out := make(map[string]bool, len(desc.Methods)+len(desc.Streams))
	for _, m := range desc.Methods {
		out["/"+desc.ServiceName+"/"+m.MethodName] = true
	}
	for _, st := range desc.Streams {
		out["/"+desc.ServiceName+"/"+st.StreamName] = true
	}
	return out
}
