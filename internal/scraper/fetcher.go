package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/salekh/genseo-workshop/internal/bypass"
	"github.com/salekh/genseo-workshop/internal/fingerprint"
	"github.com/salekh/genseo-workshop/internal/metrics"
	"github.com/salekh/genseo-workshop/pkg/httpclient"
	"github.com/salekh/genseo-workshop/pkg/proxy"
	"github.com/salekh/genseo-workshop/pkg/ratelimit"
	"github.com/salekh/genseo-workshop/pkg/useragent"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// FetchConfig configures how competitor pages are fetched.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	MaxBodyBytes int64
	UseCookieJar bool
	Proxies      *proxy.Pool
	UserAgents   *useragent.Pool
	Fingerprint  fingerprint.Profile
	Limiter      *ratelimit.Hosts
	// AcceptLanguage is sent with every request; empty uses a German-first default.
	AcceptLanguage string
	// InsecureSkipVerify disables certificate checks. Tests only.
	InsecureSkipVerify bool
}

// Page is the raw outcome of fetching one URL.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
	// BotWall names the bot-protection vendor that challenged the request.
	BotWall string
}

// OK reports whether the page is a genuine 2xx response.
func (p *Page) OK() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300 && p.BotWall == ""
}

// Fetcher performs single URL fetches with browser-like TLS and headers.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
}

// NewFetcher initializes a Fetcher. One client is held across requests so
// connections and cookies are reused for the Fetcher's lifetime.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = 5
	}
	if cfg.UserAgents == nil {
		cfg.UserAgents = useragent.NewPool(nil, useragent.RoundRobin)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = "de-DE,de;q=0.9,en;q=0.6"
	}

	// The pool's proxy is chosen per request and carried in the request
	// context; without one the environment decides.
	proxyFunc := func(req *http.Request) (*url.URL, error) {
		if u, ok := req.Context().Value(proxyKey).(*url.URL); ok {
			return u, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, fingerprint.Options{
		Proxy:              proxyFunc,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, fmt.Errorf("setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    transport,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Fetcher{config: cfg, client: client}, nil
}

// UserAgent returns the identity used for robots.txt matching.
func (f *Fetcher) UserAgent() string {
	return f.config.UserAgents.First()
}

// Fetch GETs targetURL. Transport failures are returned as errors; HTTP
// error statuses and bot walls are reported on the Page.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	if err := f.config.Limiter.Wait(ctx, targetURL); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	page := &Page{URL: targetURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	activeProxy := f.config.Proxies.Next()
	if activeProxy != nil {
		req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
	}

	req.Header.Set("User-Agent", f.config.UserAgents.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", f.config.AcceptLanguage)

	resp, err := f.client.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil {
			f.config.Proxies.Report(activeProxy, false)
			metrics.ProxyFailures.WithLabelValues(activeProxy.Redacted()).Inc()
		}
		metrics.RecordFetch(0, "", 0)
		return nil, err
	}
	if activeProxy != nil {
		f.config.Proxies.Report(activeProxy, true)
	}

	body, err := f.client.ReadBody(resp)
	page.StatusCode = resp.StatusCode
	page.Header = resp.Header
	page.Body = body
	page.FinalURL = resp.Request.URL.String()
	page.Duration = time.Since(start)
	if err != nil {
		metrics.RecordFetch(resp.StatusCode, "", len(body))
		return nil, err
	}

	page.BotWall = bypass.Analyze(bypass.Response{
		StatusCode: page.StatusCode,
		Header:     page.Header,
		Body:       page.Body,
	}, bypass.DefaultDetectors())

	metrics.RecordFetch(page.StatusCode, page.BotWall, len(page.Body))
	return page, nil
}

// get fetches a URL without limiter or proxy bookkeeping; used for
// robots.txt lookups.
func (f *Fetcher) get(ctx context.Context, targetURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent())

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	body, err := f.client.ReadBody(resp)
	if err != nil {
		return nil, err
	}
	return &Page{URL: targetURL, StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
