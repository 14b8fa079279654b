package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/salekh/genseo-workshop/internal/config"
	"github.com/salekh/genseo-workshop/internal/eventbus"
	"github.com/salekh/genseo-workshop/internal/extract"
	"github.com/salekh/genseo-workshop/internal/fingerprint"
	"github.com/salekh/genseo-workshop/internal/keywords"
	"github.com/salekh/genseo-workshop/internal/llm"
	"github.com/salekh/genseo-workshop/internal/mission"
	"github.com/salekh/genseo-workshop/internal/scraper"
	"github.com/salekh/genseo-workshop/internal/serp"
	"github.com/salekh/genseo-workshop/internal/storage"
	"github.com/salekh/genseo-workshop/internal/storage/jsonbackend"
	"github.com/salekh/genseo-workshop/internal/storage/postgres"
	"github.com/salekh/genseo-workshop/internal/storage/sqlite"
	"github.com/salekh/genseo-workshop/pkg/proxy"
	"github.com/salekh/genseo-workshop/pkg/ratelimit"
	"github.com/salekh/genseo-workshop/pkg/useragent"
)

// app holds the wired components shared by the run and serve commands.
type app struct {
	orchestrator *mission.Orchestrator
	store        storage.Backend
	closers      []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	kw, err := keywords.New(cfg.GoogleAds)
	if err != nil {
		return nil, fmt.Errorf("google ads: %w", err)
	}
	serpAPI, err := serp.NewSerpAPI(cfg.SerpAPI)
	if err != nil {
		return nil, fmt.Errorf("serpapi: %w", err)
	}
	customSearch, err := serp.NewCustomSearch(cfg.CustomSearch)
	if err != nil {
		return nil, fmt.Errorf("custom search: %w", err)
	}
	extractor, err := newExtractor(cfg.Extractor, logger)
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}
	model, err := llm.NewModel(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	logger.Debug("language model ready", "provider", cfg.LLM.Provider, "model", model.Name())

	a.store, err = openStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	if a.store != nil {
		a.closers = append(a.closers, a.store.Close)
	}

	sinks := []mission.Sink{mission.LogSink{Logger: logger}}
	if cfg.NATS.URL != "" {
		nc, err := eventbus.Connect(cfg.NATS.URL, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return nc.Drain() })
		sinks = append(sinks, eventbus.NewSink(nc, cfg.NATS.SubjectPrefix))
	}

	opts := mission.Options{
		Defaults:              mission.DefaultsFromConfig(cfg.Mission),
		MinWordCount:          cfg.Mission.MinWordCount,
		CallTimeout:           cfg.Mission.CallTimeout,
		MaxParallelExtraction: cfg.Mission.MaxParallelExtraction,
		Sinks:                 sinks,
		Logger:                logger,
	}
	if a.store != nil {
		opts.Store = a.store
	}

	a.orchestrator, err = mission.New(mission.Collaborators{
		Keywords:  kw,
		SearchA:   serpAPI,
		SearchB:   customSearch,
		Extractor: extractor,
		Analyzer:  llm.NewAnalyzer(model),
		Briefing:  llm.NewBriefingGenerator(model),
		Evaluator: llm.NewEvaluator(model),
	}, opts)
	if err != nil {
		return nil, err
	}

	ok = true
	return a, nil
}

// Close releases storage and bus connections.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// newExtractor builds the configured content extractor.
func newExtractor(cfg config.ExtractorConfig, logger *slog.Logger) (mission.ContentExtractor, error) {
	switch cfg.Mode {
	case config.ExtractorJina:
		return extract.NewJina(cfg)
	case config.ExtractorDirect:
		profile, err := fingerprint.ParseProfile(cfg.Fingerprint)
		if err != nil {
			return nil, err
		}
		fc := scraper.FetchConfig{
			Timeout:      cfg.Timeout,
			MaxBodyBytes: cfg.MaxBodyBytes,
			UseCookieJar: true,
			UserAgents:   useragent.NewPool(cfg.UserAgents, useragent.RoundRobin),
			Fingerprint:  profile,
		}
		if cfg.RPS > 0 {
			fc.Limiter = ratelimit.NewHosts(cfg.RPS, cfg.Jitter)
		}
		if len(cfg.Proxies) > 0 {
			fc.Proxies, err = proxy.New(cfg.Proxies, 3, time.Minute)
			if err != nil {
				return nil, fmt.Errorf("proxy pool: %w", err)
			}
		}
		fetcher, err := scraper.NewFetcher(fc)
		if err != nil {
			return nil, err
		}
		var robots *scraper.RobotsTxtAuditor
		if cfg.RespectRobot {
			robots = scraper.NewRobotsTxtAuditor(fetcher, logger)
		}
		return extract.NewDirect(fetcher, robots, logger), nil
	default:
		return nil, fmt.Errorf("unknown extractor mode %q", cfg.Mode)
	}
}

// openStorage opens the configured backend. The none driver returns nil.
func openStorage(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	var (
		backend storage.Backend
		err     error
	)
	switch cfg.Driver {
	case config.StorageNone, "":
		return nil, nil
	case config.StorageSQLite:
		backend, err = sqlite.New(cfg.DSN)
	case config.StoragePostgres:
		backend, err = postgres.New(ctx, cfg.DSN)
	case config.StorageJSON:
		backend, err = jsonbackend.New(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Driver, err)
	}
	return backend, nil
}
