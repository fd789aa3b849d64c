package middleware

import (
	"log/slog"
	"net/http"
	"slices"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain composes mws into one Middleware. The first argument is the
// outermost wrapper and sees the request first.
func Chain(mws ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for _, mw := range slices.Backward(mws) {
			h = mw(h)
		}
		return h
	}
}

// Stack is the middleware every backend request passes through, outermost
// first: request id, access log, panic recovery, client info, body limit.
// Recovery runs inside the access log, so a recovered panic is logged as a
// 500 with its request id.
func Stack(logger *slog.Logger, maxBodyBytes int64) Middleware {
	return Chain(
		RequestID(),
		Logger(logger),
		Recovery(logger),
		ClientInfo(),
		BodyLimit(maxBodyBytes),
	)
}
