package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/asotbz/fuzzbin/internal/ratelimit"
)

// RateLimit applies a per-client token bucket to inbound requests.
// Buckets are keyed by client IP and created lazily; a client over its
// budget gets 429 without queueing.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	perMinute := limit
	if per != time.Minute && per > 0 {
		perMinute = int(float64(limit) * float64(time.Minute) / float64(per))
	}
	if perMinute < 1 {
		perMinute = 1
	}
	var mu sync.Mutex
	buckets := make(map[string]*ratelimit.Limiter)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIPForRateLimit(r)
			mu.Lock()
			lim, ok := buckets[ip]
			if !ok {
				var err error
				lim, err = ratelimit.NewLimiter(ratelimit.Config{PerMinute: float64(perMinute), Burst: float64(perMinute)})
				if err != nil {
					mu.Unlock()
					next.ServeHTTP(w, r)
					return
				}
				buckets[ip] = lim
			}
			mu.Unlock()
			if !lim.TryAcquire(1) {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIPForRateLimit(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if ip == "" {
				continue
			}
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	} else if net.ParseIP(r.RemoteAddr) != nil {
		return r.RemoteAddr
	}

	return r.RemoteAddr
}
