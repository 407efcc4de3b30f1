// Package steamweb provides HTTP transport helpers shared by steamapi and
// steamcommunity: a host-keyed rate limiter so a client talking to both
// api.steampowered.com and steamcommunity.com doesn't need two separate
// throttles, and doesn't trip either host's own abuse detection.
package steamweb

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter throttles outgoing requests per destination host using a
// token bucket per host, so a burst against one Steam host never eats
// into another's budget.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewLimiter creates a Limiter allowing requestsPerSecond sustained
// requests per host, with burst allowed to momentarily exceed it.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// LimiterCount reports how many distinct hosts currently have a bucket.
// Exposed for tests; not meaningful as an operational metric on its own.
func (l *Limiter) LimiterCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[host] = lim
	}
	return lim
}

// limitedTransport is an http.RoundTripper that blocks until the
// destination host's bucket has a token before delegating to base.
type limitedTransport struct {
	limiter *Limiter
	base    http.RoundTripper
}

// NewLimitedTransport wraps base with per-host rate limiting. If base is
// nil, http.DefaultTransport is used.
func NewLimitedTransport(limiter *Limiter, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &limitedTransport{limiter: limiter, base: base}
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.forHost(req.URL.Host).Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}
