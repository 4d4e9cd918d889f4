package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Quota bounds request flow for one class of routes. Call mutations get
// a far tighter quota than reads: every accepted mutation occupies the
// single serialized call worker and a carrier channel, so letting one
// client flood /dial only builds queue depth ahead of driver reports.
type Quota struct {
	Rate  rate.Limit
	Burst int
}

var (
	// ReadQuota covers call snapshots and record listings.
	ReadQuota = Quota{Rate: 20, Burst: 40}

	// MutateQuota covers dial, answer, conference and the other call
	// mutations. A phone is not dialed twenty times a second.
	MutateQuota = Quota{Rate: 3, Burst: 6}

	// LoginQuota keeps credential guessing slow.
	LoginQuota = Quota{Rate: 1, Burst: 5}
)

// Idle visitors are swept so the map does not grow with every client
// that ever connected.
const (
	visitorSweepEvery = 3 * time.Minute
	visitorIdleAfter  = 10 * time.Minute
)

type visitor struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Throttle applies a per-client-IP token bucket to one traffic class.
// The name shows up in refusal logs so operators can tell a dial flood
// from a scraping loop.
type Throttle struct {
	name       string
	quota      Quota
	retryAfter string

	mu       sync.Mutex
	visitors map[string]*visitor

	done chan struct{}
}

// NewThrottle creates a throttle and starts its sweep goroutine. Close
// it when the server shuts down.
func NewThrottle(name string, q Quota) *Throttle {
	secs := int(math.Ceil(1 / float64(q.Rate)))
	if secs < 1 {
		secs = 1
	}
	t := &Throttle{
		name:       name,
		quota:      q,
		retryAfter: strconv.Itoa(secs),
		visitors:   make(map[string]*visitor),
		done:       make(chan struct{}),
	}
	go t.sweepLoop()
	return t
}

// Limit is the middleware. A refused request gets 429 with Retry-After
// set to one replenish interval of the class quota.
func (t *Throttle) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !t.allow(ip) {
			slog.Warn("request throttled",
				"class", t.name,
				"ip", ip,
				"method", r.Method,
				"path", r.URL.Path,
			)
			w.Header().Set("Retry-After", t.retryAfter)
			replyError(w, r, http.StatusTooManyRequests, "rate_limited",
				t.name+" rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *Throttle) allow(ip string) bool {
	t.mu.Lock()
	v, ok := t.visitors[ip]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(t.quota.Rate, t.quota.Burst)}
		t.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	t.mu.Unlock()

	return v.lim.Allow()
}

// Close stops the sweep goroutine.
func (t *Throttle) Close() {
	close(t.done)
}

func (t *Throttle) sweepLoop() {
	ticker := time.NewTicker(visitorSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.sweep(time.Now().Add(-visitorIdleAfter))
		case <-t.done:
			return
		}
	}
}

func (t *Throttle) sweep(cutoff time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ip, v := range t.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(t.visitors, ip)
		}
	}
}

// clientIP strips the port from RemoteAddr. Behind a reverse proxy the
// chi RealIP middleware must run first so RemoteAddr holds the real
// client address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
