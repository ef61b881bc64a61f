package web

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// errRateLimited maps to RATE001.
var errRateLimited = errors.New("rate limit exceeded")

// visitorLimiter keeps one token bucket per client IP. Buckets idle for
// longer than idleTTL are evicted by a background loop.
type visitorLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor

	done chan struct{}
	once sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newVisitorLimiter starts the eviction loop when cleanup is positive.
func newVisitorLimiter(rps float64, burst int, cleanup time.Duration) *visitorLimiter {
	if burst < 1 {
		burst = 1
	}
	v := &visitorLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  2 * cleanup,
		now:      time.Now,
		visitors: make(map[string]*visitor),
		done:     make(chan struct{}),
	}
	if cleanup > 0 {
		go v.cleanupLoop(cleanup)
	}
	return v
}

func (v *visitorLimiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-v.done:
			return
		case <-ticker.C:
			v.evictIdle()
		}
	}
}

func (v *visitorLimiter) evictIdle() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	cutoff := v.now().Add(-v.idleTTL)
	n := 0
	for ip, vis := range v.visitors {
		if vis.lastSeen.Before(cutoff) {
			delete(v.visitors, ip)
			n++
		}
	}
	return n
}

func (v *visitorLimiter) stop() {
	v.once.Do(func() { close(v.done) })
}

// allow consumes a token from ip's bucket.
func (v *visitorLimiter) allow(ip string) bool {
	v.mu.Lock()
	vis, ok := v.visitors[ip]
	if !ok {
		vis = &visitor{limiter: rate.NewLimiter(v.limit, v.burst)}
		v.visitors[ip] = vis
	}
	vis.lastSeen = v.now()
	v.mu.Unlock()
	return vis.limiter.Allow()
}

func (v *visitorLimiter) size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.visitors)
}

// middleware rejects requests over the rate with 429. The health probe is
// never limited.
func (v *visitorLimiter) middleware(s *Server) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}
			if !v.allow(clientIP(r)) {
				retry := 1
				if v.limit > 0 {
					retry = max(1, int(1/float64(v.limit)))
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr, which TrustedRealIP has
// already rewritten for proxied requests.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
