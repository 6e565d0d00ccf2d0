// Package requesttime pins a single "now" per HTTP request. Every expiry and
// deadline comparison during the request uses the same instant, which keeps
// audit timestamps and state transitions consistent.
package requesttime

import (
	"net/http"
	"time"

	"ctn/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request and
// stores it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
