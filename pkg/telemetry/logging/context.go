package logging

import "context"

type contextKey string

const (
	requestIDKey    contextKey = "request_id"
	resourceTypeKey contextKey = "resource_type"
)

// WithRequestID returns a context carrying a request id for log
// correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithResourceType returns a context carrying the resource type being
// operated on.
func WithResourceType(ctx context.Context, resourceType string) context.Context {
	return context.WithValue(ctx, resourceTypeKey, resourceType)
}

// extractContextFields pulls known request-scoped fields out of a context
// as alternating key/value log args.
func extractContextFields(ctx context.Context) []any {
	var fields []any
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		fields = append(fields, "request_id", v)
	}
	if v, ok := ctx.Value(resourceTypeKey).(string); ok && v != "" {
		fields = append(fields, "resource_type", v)
	}
	return fields
}
