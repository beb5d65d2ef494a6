package interceptors

import "context"

type contextKey struct{ name string }

var projectIDKey = contextKey{"project_id"}

// WithProject returns a context carrying the authenticated project id.
func WithProject(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, projectIDKey, projectID)
}

// GetProjectID returns the authenticated project id and true if set; otherwise "", false.
func GetProjectID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(projectIDKey).(string)
	return v, ok && v != ""
}
