package session

import "context"

type contextKey struct{}

// WithID returns a context carrying the session id, for log correlation in
// collaborators that only see a context.
func WithID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, id)
}

// IDFrom returns the session id carried by ctx, or "".
func IDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(contextKey{}).(string)
	return s
}
