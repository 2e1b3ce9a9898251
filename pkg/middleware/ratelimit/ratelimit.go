// Package ratelimit provides a per client token bucket middleware.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"
)

const defaultIdleTTL = 3 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks one token bucket per client address.
type Limiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	nowFunc func() time.Time
	header  string

	mu        sync.Mutex
	clients   map[string]*client
	lastEvict time.Time
}

type Option func(*Limiter)

// WithIdleTTL sets how long a client may stay silent before its bucket is dropped.
func WithIdleTTL(d time.Duration) Option {
	return func(l *Limiter) {
		l.idleTTL = d
	}
}

// WithClientIPHeader keys clients on the given request header, falling back to
// the remote address when it is absent. Only set it when a proxy in front of
// the service overwrites the header on every request.
func WithClientIPHeader(name string) Option {
	return func(l *Limiter) {
		l.header = name
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.nowFunc = now
	}
}

// New returns a limiter allowing rps requests per second per client with the given burst.
func New(rps float64, burst int, opts ...Option) *Limiter {
	l := &Limiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: defaultIdleTTL,
		nowFunc: time.Now,
		clients: make(map[string]*client),
	}

	for _, opt := range opts {
		opt(l)
	}

	l.lastEvict = l.nowFunc()

	return l
}

// Allow reports whether a request from key may proceed now.
func (l *Limiter) Allow(key string) bool {
	now := l.nowFunc()

	l.mu.Lock()
	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now

	if now.Sub(l.lastEvict) >= l.idleTTL {
		l.evict(now)
	}
	l.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

// evict drops idle clients. The caller must hold mu.
func (l *Limiter) evict(now time.Time) {
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idleTTL {
			delete(l.clients, key)
		}
	}
	l.lastEvict = now
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Middleware rejects requests over the limit with 429 Too Many Requests.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(l.clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, map[string]string{
				"status":  "error",
				"message": "too many requests",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the address requests are counted against. By default it is
// the host of r.RemoteAddr, which chi's RealIP middleware may already have set.
func (l *Limiter) clientIP(r *http.Request) string {
	if l.header != "" {
		if ip := r.Header.Get(l.header); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
