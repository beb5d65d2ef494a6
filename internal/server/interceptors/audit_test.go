package interceptors

import (
	"context"
	"net"
	"sync"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"otp-relay/internal/audit"
)

type auditEntry struct {
	projectID, actor, action, resource, metadata string
}

// auditRecorder implements audit.AuditLogger for interceptor tests.
type auditRecorder struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (r *auditRecorder) LogEvent(_ context.Context, projectID, actor, action, resource, metadata string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, auditEntry{projectID, actor, action, resource, metadata})
}

func okHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return "success", nil
}

func TestAuditUnary_SkipMethod(t *testing.T) {
	rec := &auditRecorder{}
	interceptor := AuditUnary(rec, map[string]bool{"/grpc.health.v1.Health/Check": true})

	ctx := WithProject(context.Background(), "p1")
	resp, err := interceptor(ctx, "request", &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, okHandler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if resp != "success" {
		t.Errorf("response = %v, want %q", resp, "success")
	}
	if len(rec.entries) != 0 {
		t.Errorf("audit entries = %d, want 0", len(rec.entries))
	}
}

func TestAuditUnary_AuthenticatedRequest(t *testing.T) {
	rec := &auditRecorder{}
	interceptor := AuditUnary(rec, nil)

	ctx := WithProject(context.Background(), "p1")
	if _, err := interceptor(ctx, "request", &grpc.UnaryServerInfo{FullMethod: "/otprelay.v1.OTPService/CreateOTPRequest"}, okHandler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(rec.entries))
	}
	want := auditEntry{"p1", PipelineActor, "create", "otp_request", "code=OK"}
	if rec.entries[0] != want {
		t.Errorf("entry = %+v, want %+v", rec.entries[0], want)
	}
}

func TestAuditUnary_UnauthenticatedRequest(t *testing.T) {
	rec := &auditRecorder{}
	interceptor := AuditUnary(rec, nil)

	if _, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{FullMethod: "/otprelay.v1.OTPService/GetOTPRequest"}, okHandler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if len(rec.entries) != 0 {
		t.Errorf("audit entries = %d, want 0 without a project", len(rec.entries))
	}
}

func TestAuditUnary_HandlerError(t *testing.T) {
	rec := &auditRecorder{}
	interceptor := AuditUnary(rec, nil)
	wantErr := status.Error(codes.FailedPrecondition, "no responder")
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, wantErr
	}

	ctx := WithProject(context.Background(), "p1")
	_, err := interceptor(ctx, "request", &grpc.UnaryServerInfo{FullMethod: "/otprelay.v1.OTPService/RetryOTPRequest"}, handler)
	if err != wantErr {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(rec.entries))
	}
	if got := rec.entries[0]; got.action != "retry" || got.metadata != "code=FailedPrecondition" {
		t.Errorf("entry = %+v", got)
	}
}

func TestAuditUnary_NilLogger(t *testing.T) {
	interceptor := AuditUnary(nil, nil)
	ctx := WithProject(context.Background(), "p1")
	if _, err := interceptor(ctx, "request", &grpc.UnaryServerInfo{FullMethod: "/otprelay.v1.OTPService/GetOTPRequest"}, okHandler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
}

func TestClientIP(t *testing.T) {
	md := func(kv ...string) context.Context {
		return metadata.NewIncomingContext(context.Background(), metadata.Pairs(kv...))
	}
	fromPeer := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP("192.168.1.3"), Port: 12345}})

	testCases := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"stored by http middleware", audit.ContextWithIP(md("x-forwarded-for", "10.9.9.9"), "172.16.0.4"), "172.16.0.4"},
		{"forwarded first hop", md("x-forwarded-for", " 192.168.1.1 , 10.0.0.1"), "192.168.1.1"},
		{"forwarded beats real ip", md("x-forwarded-for", "192.168.1.1", "x-real-ip", "192.168.1.2"), "192.168.1.1"},
		{"empty forwarded falls through", md("x-forwarded-for", " ", "x-real-ip", "192.168.1.2"), "192.168.1.2"},
		{"peer", fromPeer, "192.168.1.3"},
		{"nothing", context.Background(), "unknown"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClientIP(tc.ctx); got != tc.want {
				t.Errorf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}
