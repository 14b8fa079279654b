// Package proxy rotates outbound requests across a set of proxy endpoints and
// benches endpoints that keep failing.
package proxy

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

type endpoint struct {
	url       *url.URL
	failures  int
	benchedAt time.Time
}

// Pool is a round-robin proxy rotation with failure tracking.
type Pool struct {
	mu          sync.Mutex
	endpoints   []*endpoint
	cursor      int
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

// New builds a pool from raw proxy URLs. Entries without a scheme are
// treated as http. An endpoint is benched for cooldown after maxFailures
// consecutive failures; zero values default to 3 failures and 5 minutes.
func New(rawURLs []string, maxFailures int, cooldown time.Duration) (*Pool, error) {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}

	p := &Pool{maxFailures: maxFailures, cooldown: cooldown, now: time.Now}
	for _, raw := range rawURLs {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse proxy %q: %w", raw, err)
		}
		p.endpoints = append(p.endpoints, &endpoint{url: u})
	}
	return p, nil
}

// Len returns the number of configured endpoints.
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.endpoints)
}

// Next returns the next usable proxy, or nil when none is configured or all
// are benched.
func (p *Pool) Next() *url.URL {
	if p.Len() == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.endpoints {
		ep := p.endpoints[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.endpoints)

		if !ep.benchedAt.IsZero() {
			if now.Sub(ep.benchedAt) < p.cooldown {
				continue
			}
			ep.benchedAt = time.Time{}
			ep.failures = 0
		}
		return ep.url
	}
	return nil
}

// Report records the outcome of a request made through u.
func (p *Pool) Report(u *url.URL, ok bool) {
	if p.Len() == 0 || u == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := u.String()
	for _, ep := range p.endpoints {
		if ep.url.String() != key {
			continue
		}
		if ok {
			ep.failures = 0
			return
		}
		ep.failures++
		if ep.failures >= p.maxFailures {
			ep.benchedAt = p.now()
		}
		return
	}
}
