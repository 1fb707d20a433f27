package middleware

import "context"

type contextKey string

const (
	ctxVisitorID contextKey = "visitor_id"
	ctxAdmin     contextKey = "admin"
)

// VisitorIDFromContext returns the visitor id attached by the Visitor middleware.
func VisitorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxVisitorID).(string); ok {
		return v
	}
	return ""
}

// WithVisitorID injects the visitor identifier into the context.
func WithVisitorID(ctx context.Context, visitorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxVisitorID, visitorID)
}

// IsAdmin reports whether the request passed AdminAuth.
func IsAdmin(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(ctxAdmin).(bool)
	return v
}

func withAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxAdmin, true)
}
