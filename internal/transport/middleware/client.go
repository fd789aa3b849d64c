package middleware

import (
	"net/http"

	"github.com/heartmarshall/qrfactory/pkg/ctxutil"
)

// ClientInfo stores the caller's user agent and remote address in the context.
func ClientInfo() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := ctxutil.WithClient(r.Context(), ctxutil.Client{
				UserAgent:  r.UserAgent(),
				RemoteAddr: r.RemoteAddr,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BodyLimit caps request bodies at limit bytes. Reads past the limit fail
// with *http.MaxBytesError.
func BodyLimit(limit int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
