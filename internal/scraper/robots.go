package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

// RobotsTxtAuditor fetches and caches robots.txt per host. Concurrent
// lookups for the same host share one fetch.
type RobotsTxtAuditor struct {
	fetcher *Fetcher
	logger  *slog.Logger
	group   singleflight.Group
	mu      sync.RWMutex
	cache   map[string]*robotstxt.RobotsData // nil entry: allow everything
}

// NewRobotsTxtAuditor creates a new instance.
func NewRobotsTxtAuditor(fetcher *Fetcher, logger *slog.Logger) *RobotsTxtAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsTxtAuditor{
		fetcher: fetcher,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed reports whether userAgent may fetch targetURL. Hosts whose
// robots.txt is missing or unreachable allow everything. Only fetched or
// missing robots.txt files are cached.
func (r *RobotsTxtAuditor) IsAllowed(ctx context.Context, targetURL string, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}

	data := r.rules(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.FindGroup(userAgent).Test(path), nil
}

func (r *RobotsTxtAuditor) rules(ctx context.Context, host string) *robotstxt.RobotsData {
	r.mu.RLock()
	data, ok := r.cache[host]
	r.mu.RUnlock()
	if ok {
		return data
	}

	v, _, _ := r.group.Do(host, func() (any, error) {
		r.mu.RLock()
		cached, ok := r.cache[host]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}

		data, err := r.fetch(ctx, host)
		if err != nil {
			// Not cached; the next lookup retries.
			r.logger.Debug("robots.txt unavailable, defaulting to allow", "host", host, "error", err)
			return data, nil
		}
		r.mu.Lock()
		r.cache[host] = data
		r.mu.Unlock()
		return data, nil
	})
	return v.(*robotstxt.RobotsData)
}

func (r *RobotsTxtAuditor) fetch(ctx context.Context, host string) (*robotstxt.RobotsData, error) {
	page, err := r.fetcher.get(ctx, host+"/robots.txt")
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	if page.StatusCode >= 400 {
		return nil, nil
	}

	data, err := robotstxt.FromStatusAndBytes(page.StatusCode, page.Body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}
