package interceptors

import (
	"context"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"otp-relay/internal/audit"
)

// PipelineActor is the audit actor recorded for calls made with project credentials.
const PipelineActor = "pipeline"

// AuditUnary returns a unary server interceptor that records an audit log entry after each RPC.
// skipMethods is the set of full method names to not audit (e.g. health checks).
// Only writes when a project id is set (authenticated context). Best-effort via audit.AuditLogger.
func AuditUnary(auditLogger audit.AuditLogger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if auditLogger == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		projectID, ok := GetProjectID(ctx)
		if !ok {
			return resp, err
		}
		ar := audit.ParseFullMethod(info.FullMethod)
		auditLogger.LogEvent(ctx, projectID, PipelineActor, ar.Action, ar.Resource, "code="+status.Code(err).String())
		return resp, err
	}
}

// ClientIP returns the caller address for audit entries. An address stored by the HTTP
// middleware wins; then the first hop of x-forwarded-for, x-real-ip, and the transport peer.
func ClientIP(ctx context.Context) string {
	if ip, ok := audit.IPFromContext(ctx); ok {
		return ip
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		for _, key := range []string{"x-forwarded-for", "x-real-ip"} {
			if vals := md.Get(key); len(vals) > 0 {
				first, _, _ := strings.Cut(vals[0], ",")
				if s := strings.TrimSpace(first); s != "" {
					return s
				}
			}
		}
	}
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
