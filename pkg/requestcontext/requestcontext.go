// Package requestcontext provides typed accessors for request-scoped values.
// Middleware writes these once per request; handlers and services read them
// without knowing about HTTP headers.
package requestcontext

import "context"

type contextKey int

const (
	keyRequestID contextKey = iota
	keyActorID
	keyClientOS
	keyClientBrowser
)

// WithRequestID stores the request correlation ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// RequestID returns the request correlation ID, or empty string if unset.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}

// WithActorID stores the authenticated admin actor identifier.
func WithActorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyActorID, id)
}

// ActorID returns the admin actor identifier for audit attribution.
func ActorID(ctx context.Context) string {
	v, _ := ctx.Value(keyActorID).(string)
	return v
}

// WithClientMetadata stores parsed User-Agent labels.
func WithClientMetadata(ctx context.Context, os, browser string) context.Context {
	ctx = context.WithValue(ctx, keyClientOS, os)
	return context.WithValue(ctx, keyClientBrowser, browser)
}

// ClientOS returns the operating system label parsed from the User-Agent.
func ClientOS(ctx context.Context) string {
	v, _ := ctx.Value(keyClientOS).(string)
	return v
}

// ClientBrowser returns the browser label parsed from the User-Agent.
func ClientBrowser(ctx context.Context) string {
	v, _ := ctx.Value(keyClientBrowser).(string)
	return v
}
