package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"registrationportal/internal/ctxdata"
	"registrationportal/internal/errdefs"
)

// Reserver stores a key only if it is not already present.
type Reserver interface {
	Add(ctx context.Context, key string, data []byte, ttl time.Duration) bool
}

// RejectFunc writes the response for a request the middleware refused.
type RejectFunc func(w http.ResponseWriter, r *http.Request, err error)

// NewRateLimitMiddleware allows one POST per client IP per window. A zero
// window disables it. Refused requests get a Retry-After header and are handed
// to reject with errdefs.ErrRateLimited.
func NewRateLimitMiddleware(store Reserver, window time.Duration, reject RejectFunc) func(http.Handler) http.Handler {
	if reject == nil {
		reject = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		if window <= 0 || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip, ok := ctxdata.GetClientIP(ctx)
			if !ok {
				ip = ClientIP(r)
			}

			if !store.Add(ctx, "ratelimit:"+ip, []byte(time.Now().UTC().Format(time.RFC3339)), window) {
				w.Header().Set("Retry-After", formatSeconds(window))
				reject(w, r, errdefs.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func formatSeconds(d time.Duration) string {
	s := int(d.Seconds())
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}
