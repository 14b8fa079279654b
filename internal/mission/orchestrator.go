// Package mission runs SEO missions: parallel keyword and competitor
// research, competitor content extraction, and the language-model stages
// that turn the material into a content briefing. Progress is streamed as
// events while a single report accumulates.
package mission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/salekh/genseo-workshop/internal/domain"
	"github.com/salekh/genseo-workshop/internal/metrics"
	"github.com/salekh/genseo-workshop/internal/storage"
	"github.com/salekh/genseo-workshop/pkg/taskgroup"
)

// KeywordProvider returns keyword ideas for a topic.
type KeywordProvider interface {
	Ideas(ctx context.Context, topic string) (domain.KeywordData, error)
}

// PrimarySearch is search provider A. Its results win duplicate links and it
// supplies the related searches.
type PrimarySearch interface {
	Search(ctx context.Context, query, location string) (domain.SearchResponse, error)
}

// SecondarySearch is search provider B.
type SecondarySearch interface {
	Search(ctx context.Context, query string, num int) ([]domain.SearchResult, error)
}

// ContentExtractor fetches the readable content of a page.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) (domain.ExtractedContent, error)
}

// SemanticAnalyzer analyses competitor content.
type SemanticAnalyzer interface {
	Analyze(ctx context.Context, contents []domain.ExtractedContent, keyword, language string) (domain.SemanticAnalysis, error)
}

// BriefingGenerator writes a content briefing from a report.
type BriefingGenerator interface {
	Generate(ctx context.Context, report domain.Report, language string) (string, error)
}

// BriefingEvaluator critiques a briefing.
type BriefingEvaluator interface {
	Evaluate(ctx context.Context, briefing string, report domain.Report) (string, error)
}

// Sink receives a copy of every event a mission emits.
type Sink interface {
	Publish(ctx context.Context, missionID string, ev Event) error
}

// Store records finished missions. storage.Backend satisfies it.
type Store interface {
	Save(ctx context.Context, record *storage.MissionRecord) error
}

// Collaborators are the external services a mission calls. All are required.
type Collaborators struct {
	Keywords  KeywordProvider
	SearchA   PrimarySearch
	SearchB   SecondarySearch
	Extractor ContentExtractor
	Analyzer  SemanticAnalyzer
	Briefing  BriefingGenerator
	Evaluator BriefingEvaluator
}

func (c Collaborators) validate() error {
	var missing []string
	if c.Keywords == nil {
		missing = append(missing, "keywords")
	}
	if c.SearchA == nil {
		missing = append(missing, "search A")
	}
	if c.SearchB == nil {
		missing = append(missing, "search B")
	}
	if c.Extractor == nil {
		missing = append(missing, "extractor")
	}
	if c.Analyzer == nil {
		missing = append(missing, "analyzer")
	}
	if c.Briefing == nil {
		missing = append(missing, "briefing")
	}
	if c.Evaluator == nil {
		missing = append(missing, "evaluator")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing collaborators: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Options tune an Orchestrator. The zero value is usable.
type Options struct {
	Defaults Defaults
	// MinWordCount is the exclusive lower bound for usable content; 0 means
	// DefaultMinWordCount.
	MinWordCount int
	// CallTimeout bounds each collaborator call; 0 disables it.
	CallTimeout time.Duration
	// MaxParallelExtraction caps concurrent extractions; 0 runs all at once.
	MaxParallelExtraction int
	Sinks                 []Sink
	Store                 Store
	Logger                *slog.Logger
}

// DefaultMinWordCount is the default content sufficiency threshold.
const DefaultMinWordCount = 50

// Orchestrator runs missions. It holds no per-mission state, so one
// Orchestrator can run any number of missions concurrently.
type Orchestrator struct {
	c            Collaborators
	defaults     Defaults
	minWords     int
	callTimeout  time.Duration
	maxParallel  int
	sinks        []Sink
	store        Store
	logger       *slog.Logger
	now          func() time.Time
	newID        func() string
	eventBufSize int
}

// New creates an Orchestrator.
func New(c Collaborators, opts Options) (*Orchestrator, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if opts.MinWordCount <= 0 {
		opts.MinWordCount = DefaultMinWordCount
	}
	if opts.Defaults.MaxCompetitors == 0 {
		opts.Defaults.MaxCompetitors = 10
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		c:            c,
		defaults:     opts.Defaults,
		minWords:     opts.MinWordCount,
		callTimeout:  opts.CallTimeout,
		maxParallel:  opts.MaxParallelExtraction,
		sinks:        opts.Sinks,
		store:        opts.Store,
		logger:       opts.Logger,
		now:          time.Now,
		newID:        uuid.NewString,
		eventBufSize: 16,
	}, nil
}

// Run starts a mission and returns its event stream. The channel is closed
// right after the single complete event. Collaborator calls are not bound to
// ctx: cancelling it only stops delivery, the mission itself still runs to
// completion and is stored.
func (o *Orchestrator) Run(ctx context.Context, req Request) <-chan Event {
	out := make(chan Event, o.eventBufSize)
	m := &run{
		o:      o,
		id:     o.newID(),
		caller: ctx,
		work:   context.WithoutCancel(ctx),
		out:    out,
		req:    req.WithDefaults(o.defaults),
		start:  o.now(),
	}
	m.logger = o.logger.With("mission_id", m.id)
	go func() {
		defer close(out)
		m.execute()
	}()
	return out
}

// Execute runs a mission to completion and returns its report along with
// every event it emitted.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (domain.Report, []Event) {
	var (
		report domain.Report
		events []Event
	)
	for ev := range o.Run(ctx, req) {
		events = append(events, ev)
		if ev.Type == EventComplete && ev.Report != nil {
			report = *ev.Report
		}
	}
	return report, events
}

// run is the state of one mission execution.
type run struct {
	o       *Orchestrator
	id      string
	caller  context.Context
	work    context.Context
	out     chan<- Event
	req     Request
	start   time.Time
	logger  *slog.Logger
	builder *reportBuilder
}

func (m *run) emit(ev Event) {
	for _, s := range m.o.sinks {
		if err := s.Publish(m.work, m.id, ev); err != nil {
			m.logger.Warn("event sink failed", "type", ev.Type, "error", err)
		}
	}

	if m.caller.Err() != nil {
		metrics.EventsDropped.Inc()
		return
	}
	select {
	case m.out <- ev:
	case <-m.caller.Done():
		metrics.EventsDropped.Inc()
	}
}

// call derives the context for one collaborator call.
func (m *run) call() (context.Context, context.CancelFunc) {
	if m.o.callTimeout > 0 {
		return context.WithTimeout(m.work, m.o.callTimeout)
	}
	return context.WithCancel(m.work)
}

func (m *run) execute() {
	m.builder = newReportBuilder(m.req)

	first := statusEvent(StepInit, fmt.Sprintf("Starting mission for '%s'...", m.req.Topic))
	first.MissionID = m.id
	m.emit(first)

	if err := m.req.Validate(); err != nil {
		m.logger.Warn("mission rejected", "error", err)
		m.emit(errorEvent(SourceMission, err.Error()))
		m.complete(false)
		return
	}
	m.logger.Info("mission started", "topic", m.req.Topic, "max_competitors", m.req.MaxCompetitors)

	m.research()
	if !m.extract() {
		m.logger.Info("no usable competitor content, skipping analysis")
		m.complete(true)
		return
	}
	m.analyze()
	m.brief()
	m.evaluate()
	m.complete(true)
}

func (m *run) research() {
	m.emit(statusEvent(StepResearch, "Running Keywords, SerpAPI & Custom Search in Parallel..."))

	var (
		keywords domain.KeywordData
		serp     domain.SearchResponse
		custom   []domain.SearchResult
	)
	errs := taskgroup.Join(
		func() error {
			return m.timed(string(SourceGoogleAds), func(ctx context.Context) (err error) {
				keywords, err = m.o.c.Keywords.Ideas(ctx, m.req.Topic)
				return err
			})
		},
		func() error {
			return m.timed(string(SourceSerpAPI), func(ctx context.Context) (err error) {
				serp, err = m.o.c.SearchA.Search(ctx, m.req.Topic, m.req.Location)
				return err
			})
		},
		func() error {
			return m.timed(string(SourceCustomSearch), func(ctx context.Context) (err error) {
				custom, err = m.o.c.SearchB.Search(ctx, m.req.Topic, m.req.MaxCompetitors)
				return err
			})
		},
	)
	kwErr, serpErr, customErr := errs[0], errs[1], errs[2]

	var delta researchDelta
	if kwErr != nil {
		delta.keywordData = domain.KeywordData{Error: kwErr.Error()}
		m.emit(errorEvent(SourceGoogleAds, kwErr.Error()))
	} else {
		delta.keywordData = keywords
		names := make([]string, 0, len(keywords.RelatedKeywords))
		for _, kw := range keywords.RelatedKeywords {
			names = append(names, kw.Keyword)
		}
		m.emit(dataEvent(KeyKeywords, names[:min(10, len(names))]))
		m.emit(logEvent(fmt.Sprintf("Found %d keywords. Top 5: %s...", len(names), strings.Join(names[:min(5, len(names))], ", "))))
	}

	var organic []domain.SearchResult
	if serpErr != nil {
		m.emit(errorEvent(SourceSerpAPI, serpErr.Error()))
	} else {
		organic = serp.Organic
		delta.relatedSearches = serp.Related()
	}

	if customErr != nil {
		m.emit(errorEvent(SourceCustomSearch, customErr.Error()))
		custom = nil
	}

	delta.candidates = MergeCompetitors(organic, custom, m.req.MaxCompetitors)
	m.builder.applyResearch(delta)

	m.emit(dataEvent(KeyCompetitors, delta.candidates))
	m.emit(logEvent(fmt.Sprintf("Found %d competitors and %d related searches.",
		len(delta.candidates), len(m.builder.report.RelatedSearches))))
}

// timed runs fn with a per-call context and records provider metrics.
func (m *run) timed(provider string, fn func(ctx context.Context) error) error {
	ctx, cancel := m.call()
	defer cancel()
	start := time.Now()
	err := fn(ctx)
	metrics.RecordProvider(provider, time.Since(start), err)
	if err != nil {
		m.logger.Warn("provider failed", "provider", provider, "error", err)
	}
	return err
}

// extract fetches every candidate's content and reports whether any of it
// is usable for analysis.
func (m *run) extract() bool {
	candidates := m.builder.candidates
	m.emit(statusEvent(StepParsing, fmt.Sprintf("Parsing %d URLs...", len(candidates))))

	tasks := make([]taskgroup.Task[domain.ExtractedContent], len(candidates))
	for i, c := range candidates {
		tasks[i] = func(context.Context) (domain.ExtractedContent, error) {
			ctx, cancel := m.call()
			defer cancel()
			return m.o.c.Extractor.Extract(ctx, c.Link)
		}
	}
	results := taskgroup.Run(m.work, m.o.maxParallel, tasks)

	var delta extractionDelta
	for i, res := range results {
		c := candidates[i]
		switch {
		case res.Err != nil:
			metrics.RecordExtraction(metrics.ExtractionFailed)
			m.emit(logEvent(fmt.Sprintf("[FAIL] %s: %v", c.Link, res.Err)))
		case res.Value.WordCount > m.o.minWords:
			metrics.RecordExtraction(metrics.ExtractionOK)
			m.emit(logEvent(fmt.Sprintf("[OK] %s (%d words)", c.Link, res.Value.WordCount)))
			delta.contents = append(delta.contents, res.Value)
			delta.competitors = append(delta.competitors, domain.Competitor{
				Title:     c.Title,
				Link:      c.Link,
				WordCount: res.Value.WordCount,
				Source:    c.Source,
			})
		default:
			metrics.RecordExtraction(metrics.ExtractionLowContent)
			m.emit(logEvent(fmt.Sprintf("[SKIP] %s (Low content)", c.Link)))
		}
	}
	m.builder.applyExtraction(delta)
	return len(m.builder.contents) > 0
}

// contextKeyword describes the mission for the analyzer.
func (m *run) contextKeyword() string {
	related := m.builder.report.RelatedSearches
	return fmt.Sprintf("%s (Type: %s, Target: %s, Related: %s)",
		m.req.Topic, m.req.ContentType, m.req.TargetGroup,
		strings.Join(related[:min(5, len(related))], ", "))
}

func (m *run) analyze() {
	m.emit(statusEvent(StepAnalysis, "Running Semantic Analysis..."))

	var analysis domain.SemanticAnalysis
	err := m.llmStage(SourceSemanticAnalysis, func(ctx context.Context) (err error) {
		analysis, err = m.o.c.Analyzer.Analyze(ctx, m.builder.contents, m.contextKeyword(), m.req.Language)
		return err
	})
	if err != nil {
		analysis = domain.SemanticAnalysis{Error: err.Error()}
	}
	m.builder.setAnalysis(analysis)
	m.emit(dataEvent(KeySemanticAnalysis, analysis))
}

func (m *run) brief() {
	m.emit(statusEvent(StepBriefing, "Generating Content Briefing..."))

	var briefing string
	err := m.llmStage(SourceBriefing, func(ctx context.Context) (err error) {
		briefing, err = m.o.c.Briefing.Generate(ctx, m.builder.Build(), m.req.Language)
		return err
	})
	if err != nil {
		briefing = "Error generating briefing: " + err.Error()
	}
	m.builder.setBriefing(briefing)
	m.emit(dataEvent(KeyBriefing, briefing))
}

func (m *run) evaluate() {
	m.emit(statusEvent(StepEvaluation, "Evaluating Briefing..."))

	var evaluation string
	err := m.llmStage(SourceEvaluation, func(ctx context.Context) (err error) {
		evaluation, err = m.o.c.Evaluator.Evaluate(ctx, m.builder.report.Briefing, m.builder.Build())
		return err
	})
	if err != nil {
		evaluation = "Error evaluating briefing: " + err.Error()
	}
	m.builder.setEvaluation(evaluation)
	m.emit(dataEvent(KeyEvaluation, evaluation))
}

// llmStage runs one language-model stage, emitting an error event when it
// fails.
func (m *run) llmStage(source Source, fn func(ctx context.Context) error) error {
	ctx, cancel := m.call()
	defer cancel()
	start := time.Now()
	err := fn(ctx)
	metrics.RecordLLM(string(source), time.Since(start), err)
	if err != nil {
		m.logger.Warn("stage failed", "stage", source, "error", err)
		m.emit(errorEvent(source, err.Error()))
	}
	return err
}

// complete persists the report when requested and emits the final event.
func (m *run) complete(persist bool) {
	report := m.builder.Build()
	elapsed := m.o.now().Sub(m.start)

	if persist {
		analyzed := !report.SemanticAnalysis.IsZero()
		metrics.RecordMission(analyzed, elapsed)
		if m.o.store != nil {
			if err := m.o.store.Save(m.work, storage.NewRecord(m.id, report, elapsed, m.start)); err != nil {
				m.logger.Error("failed to store mission", "error", err)
			}
		}
		m.logger.Info("mission complete",
			"competitors", len(report.Competitors),
			"analyzed", analyzed,
			"duration", elapsed)
	}

	ev := completeEvent(report)
	ev.MissionID = m.id
	m.emit(ev)
}

// IsInvalidRequest reports whether err came from Request validation.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}
