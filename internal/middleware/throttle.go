package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"portfolio-be/pkg/errors"
	"portfolio-be/pkg/logger"
)

const (
	// clients idle this long lose their bucket
	throttleIdleTTL = 5 * time.Minute
	throttleSweep   = 3 * time.Minute
)

type throttleClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle is a per-connection-IP token bucket. It sheds request floods
// before they reach the store; the daily quota is enforced separately.
type Throttle struct {
	mu      sync.Mutex
	clients map[string]*throttleClient
	rps     rate.Limit
	burst   int
	logger  *logger.Logger
	now     func() time.Time
}

// NewThrottle allows rps requests per second per IP with the given burst.
// rps <= 0 disables throttling.
func NewThrottle(rps float64, burst int, logger *logger.Logger) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		clients: make(map[string]*throttleClient),
		rps:     rate.Limit(rps),
		burst:   burst,
		logger:  logger,
		now:     time.Now,
	}
}

// Allow reports whether a request from ip may proceed, and if not how long to wait
func (t *Throttle) Allow(ip string) (bool, time.Duration) {
	if t.rps <= 0 {
		return true, 0
	}

	now := t.now()
	t.mu.Lock()
	c, ok := t.clients[ip]
	if !ok {
		c = &throttleClient{limiter: rate.NewLimiter(t.rps, t.burst)}
		t.clients[ip] = c
	}
	c.lastSeen = now
	t.mu.Unlock()

	r := c.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Middleware rejects throttled requests with 429 and Retry-After
func (t *Throttle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		ok, wait := t.Allow(ip)
		if !ok {
			seconds := int(math.Ceil(wait.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeErrorResponse(w, r, errors.NewRateLimitError("Too many requests", map[string]interface{}{
				"retry_after": seconds,
			}), t.logger.WithField("ip", ip))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Sweep drops clients idle for longer than throttleIdleTTL and returns how many
func (t *Throttle) Sweep() int {
	cutoff := t.now().Add(-throttleIdleTTL)

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for ip, c := range t.clients {
		if c.lastSeen.Before(cutoff) {
			delete(t.clients, ip)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}

// Run sweeps idle clients until ctx is done
func (t *Throttle) Run(ctx context.Context) {
	ticker := time.NewTicker(throttleSweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				t.logger.WithField("removed", n).Debug("Throttle sweep")
			}
		}
	}
}

// clientIP returns the host part of RemoteAddr, which RealIP may have rewritten
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
