package ratelimit

import (
	"context"
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Limiter spaces operations at a fixed interval, optionally stretched by a
// random jitter. The first call never waits. It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	jitter   float64 // 0.0 to 1.0
	next     time.Time
}

// NewLimiter creates a limiter allowing rps operations per second. Jitter is
// clamped to [0, 1] and adds up to jitter*interval to each gap.
// If rps is <= 0, the limiter does not block.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	l := &Limiter{jitter: jitter}
	if rps > 0 {
		l.interval = time.Duration(float64(time.Second) / rps)
	}
	return l
}

// Wait reserves the next slot and blocks until it arrives or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.interval == 0 {
		return nil
	}

	delay := l.reserve(time.Now())
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *Limiter) reserve(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot := l.next
	if slot.Before(now) {
		slot = now
	}

	gap := l.interval
	if l.jitter > 0 {
		gap += time.Duration(float64(l.interval) * l.jitter * rand.Float64())
	}
	l.next = slot.Add(gap)

	return slot.Sub(now)
}

// Hosts hands out one Limiter per host so that requests to different sites
// do not slow each other down.
type Hosts struct {
	mu       sync.Mutex
	rps      float64
	jitter   float64
	limiters map[string]*Limiter
}

// NewHosts creates a per-host limiter set with the given per-host rate.
func NewHosts(rps, jitter float64) *Hosts {
	return &Hosts{
		rps:      rps,
		jitter:   jitter,
		limiters: make(map[string]*Limiter),
	}
}

// Wait blocks until the host of rawURL may be contacted again.
func (h *Hosts) Wait(ctx context.Context, rawURL string) error {
	if h == nil || h.rps <= 0 {
		return nil
	}
	return h.For(hostOf(rawURL)).Wait(ctx)
}

// For returns the limiter for host, creating it on first use.
func (h *Hosts) For(host string) *Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	l, ok := h.limiters[host]
	if !ok {
		l = NewLimiter(h.rps, h.jitter)
		h.limiters[host] = l
	}
	return l
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.ToLower(u.Host)
}
