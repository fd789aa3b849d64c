package ctxutil

import "context"

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	clientKey    ctxKey = "client"
)

// Client describes the caller of an HTTP request.
type Client struct {
	UserAgent  string
	RemoteAddr string
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromCtx extracts the request ID from the context.
// Returns an empty string if absent.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithClient stores caller details in the context.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey, c)
}

// ClientFromCtx extracts caller details from the context.
// Returns the zero Client if absent.
func ClientFromCtx(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey).(Client)
	return c
}
