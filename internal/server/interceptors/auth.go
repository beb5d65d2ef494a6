package interceptors

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	projectdomain "otp-relay/internal/project/domain"
)

// Metadata keys carrying pipeline credentials.
const (
	ProjectIDHeader     = "x-project-id"
	ProjectSecretHeader = "x-project-secret"
)

// ProjectGetter loads projects by id.
type ProjectGetter interface {
	GetByID(ctx context.Context, id string) (*projectdomain.Project, error)
}

// SecretComparer checks a presented secret against its stored hash (e.g. *security.Hasher).
type SecretComparer interface {
	Compare(hash string, secret []byte) error
}

var errUnauthenticated = status.Error(codes.Unauthenticated, "missing or invalid project credentials")

// AuthUnary returns a unary server interceptor that authenticates the pipeline by its
// x-project-id / x-project-secret metadata pair and sets the project id in context.
// publicMethods is the set of full method names that need no credentials (health checks).
func AuthUnary(projects ProjectGetter, secrets SecretComparer, publicMethods map[string]bool, logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		projectID, secret := extractCredentials(ctx)
		if projectID == "" || secret == "" {
			return nil, errUnauthenticated
		}
		p, err := projects.GetByID(ctx, projectID)
		if err != nil {
			logger.Error("auth: load project", zap.String("project_id", projectID), zap.Error(err))
			return nil, status.Error(codes.Internal, "could not authenticate")
		}
		if p == nil || p.SecretHash == "" {
			return nil, errUnauthenticated
		}
		if err := secrets.Compare(p.SecretHash, []byte(secret)); err != nil {
			logger.Debug("auth: secret mismatch", zap.String("project_id", projectID))
			return nil, errUnauthenticated
		}
		return handler(WithProject(ctx, p.ID), req)
	}
}

// extractCredentials returns the project id and secret from ctx metadata, or "" when missing.
func extractCredentials(ctx context.Context) (projectID, secret string) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", ""
	}
	first := func(key string) string {
		if vals := md.Get(key); len(vals) > 0 {
			return strings.TrimSpace(vals[0])
		}
		return ""
	}
	return first(ProjectIDHeader), first(ProjectSecretHeader)
}
