package mission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salekh/genseo-workshop/internal/domain"
	"github.com/salekh/genseo-workshop/internal/storage"
)

type keywordsFunc func(ctx context.Context, topic string) (domain.KeywordData, error)

func (f keywordsFunc) Ideas(ctx context.Context, topic string) (domain.KeywordData, error) {
	return f(ctx, topic)
}

type searchAFunc func(ctx context.Context, query, location string) (domain.SearchResponse, error)

func (f searchAFunc) Search(ctx context.Context, query, location string) (domain.SearchResponse, error) {
	return f(ctx, query, location)
}

type searchBFunc func(ctx context.Context, query string, num int) ([]domain.SearchResult, error)

func (f searchBFunc) Search(ctx context.Context, query string, num int) ([]domain.SearchResult, error) {
	return f(ctx, query, num)
}

type extractFunc func(ctx context.Context, url string) (domain.ExtractedContent, error)

func (f extractFunc) Extract(ctx context.Context, url string) (domain.ExtractedContent, error) {
	return f(ctx, url)
}

type analyzeFunc func(ctx context.Context, contents []domain.ExtractedContent, keyword, language string) (domain.SemanticAnalysis, error)

func (f analyzeFunc) Analyze(ctx context.Context, contents []domain.ExtractedContent, keyword, language string) (domain.SemanticAnalysis, error) {
	return f(ctx, contents, keyword, language)
}

type briefFunc func(ctx context.Context, report domain.Report, language string) (string, error)

func (f briefFunc) Generate(ctx context.Context, report domain.Report, language string) (string, error) {
	return f(ctx, report, language)
}

type evalFunc func(ctx context.Context, briefing string, report domain.Report) (string, error)

func (f evalFunc) Evaluate(ctx context.Context, briefing string, report domain.Report) (string, error) {
	return f(ctx, briefing, report)
}

type memoryStore struct {
	mu      sync.Mutex
	records []*storage.MissionRecord
	saved   chan struct{}
}

func newMemoryStore() *memoryStore {
	return &memoryStore{saved: make(chan struct{}, 1)}
}

func (s *memoryStore) Save(_ context.Context, r *storage.MissionRecord) error {
	s.mu.Lock()
	s.records = append(s.records, r)
	s.mu.Unlock()
	select {
	case s.saved <- struct{}{}:
	default:
	}
	return nil
}

func (s *memoryStore) all() []*storage.MissionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*storage.MissionRecord(nil), s.records...)
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	ids    map[string]bool
}

func (s *recordingSink) Publish(_ context.Context, missionID string, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids == nil {
		s.ids = map[string]bool{}
	}
	s.ids[missionID] = true
	s.events = append(s.events, ev)
	return nil
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("wort ", n))
}

// extractorWith maps links to the size of the content the extractor returns.
func extractorWith(counts map[string]int) extractFunc {
	return func(_ context.Context, url string) (domain.ExtractedContent, error) {
		n, ok := counts[url]
		if !ok {
			return domain.ExtractedContent{}, fmt.Errorf("unexpected url %s", url)
		}
		return domain.ExtractedContent{URL: url, Title: "Page " + url, WordCount: n, MainContent: words(n)}, nil
	}
}

func happyCollaborators() Collaborators {
	return Collaborators{
		Keywords: keywordsFunc(func(context.Context, string) (domain.KeywordData, error) {
			return domain.KeywordData{
				MainKeyword: &domain.Keyword{Keyword: "familienhotel mallorca", AvgSearches: 8100, Competition: "HIGH"},
				RelatedKeywords: []domain.Keyword{
					{Keyword: "kinderhotel mallorca", AvgSearches: 2400, Competition: "MEDIUM"},
					{Keyword: "mallorca mit kindern", AvgSearches: 1300, Competition: "LOW"},
				},
			}, nil
		}),
		SearchA: searchAFunc(func(context.Context, string, string) (domain.SearchResponse, error) {
			return domain.SearchResponse{
				Organic:            results("https://a1.example", "https://a2.example", "https://a3.example"),
				RelatedSearches:    []string{"familienhotel mallorca alcudia", "mallorca kinderclub"},
				HasRelatedSearches: true,
			}, nil
		}),
		SearchB: searchBFunc(func(context.Context, string, int) ([]domain.SearchResult, error) {
			return results("https://a2.example", "https://b1.example"), nil
		}),
		Extractor: extractorWith(map[string]int{
			"https://a1.example": 300,
			"https://a2.example": 200,
			"https://a3.example": 120,
			"https://b1.example": 80,
		}),
		Analyzer: analyzeFunc(func(_ context.Context, _ []domain.ExtractedContent, keyword, _ string) (domain.SemanticAnalysis, error) {
			return domain.SemanticAnalysis{Keyword: keyword, ContentGaps: []string{"Budget options"}}, nil
		}),
		Briefing: briefFunc(func(context.Context, domain.Report, string) (string, error) {
			return "# Briefing", nil
		}),
		Evaluator: evalFunc(func(context.Context, string, domain.Report) (string, error) {
			return "Solid", nil
		}),
	}
}

func newTestOrchestrator(t *testing.T, c Collaborators, opts Options) *Orchestrator {
	t.Helper()
	o, err := New(c, opts)
	require.NoError(t, err)
	o.newID = func() string { return "mission-1" }
	return o
}

func validRequest() Request {
	return Request{Topic: "Familienhotel Mallorca", ContentType: "Blog", TargetGroup: "Familien", Language: "German", MaxCompetitors: 10}
}

func ofType(events []Event, typ EventType) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func messages(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Message
	}
	return out
}

func steps(events []Event) []Step {
	var out []Step
	for _, ev := range ofType(events, EventStatus) {
		out = append(out, ev.Step)
	}
	return out
}

func TestNew_RequiresCollaborators(t *testing.T) {
	c := happyCollaborators()
	c.Evaluator = nil
	_, err := New(c, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluator")
}

func TestExecute_FullMission(t *testing.T) {
	store := newMemoryStore()
	var gotKeyword string
	c := happyCollaborators()
	c.Analyzer = analyzeFunc(func(_ context.Context, contents []domain.ExtractedContent, keyword, language string) (domain.SemanticAnalysis, error) {
		gotKeyword = keyword
		assert.Len(t, contents, 4)
		assert.Equal(t, "German", language)
		return domain.SemanticAnalysis{Keyword: keyword}, nil
	})
	o := newTestOrchestrator(t, c, Options{Store: store})

	report, events := o.Execute(context.Background(), validRequest())

	assert.Equal(t, []Step{StepInit, StepResearch, StepParsing, StepAnalysis, StepBriefing, StepEvaluation}, steps(events))
	assert.Equal(t, "mission-1", events[0].MissionID)
	assert.Equal(t, "Starting mission for 'Familienhotel Mallorca'...", events[0].Message)

	last := events[len(events)-1]
	require.Equal(t, EventComplete, last.Type)
	require.NotNil(t, last.Report)
	assert.Len(t, ofType(events, EventComplete), 1)
	assert.Empty(t, ofType(events, EventError))

	require.Len(t, report.Competitors, 4)
	assert.Equal(t, []string{"https://a1.example", "https://a2.example", "https://a3.example", "https://b1.example"},
		[]string{report.Competitors[0].Link, report.Competitors[1].Link, report.Competitors[2].Link, report.Competitors[3].Link})
	assert.Equal(t, domain.SourceSerpAPI, report.Competitors[1].Source)
	assert.Equal(t, domain.SourceCustomSearch, report.Competitors[3].Source)
	assert.Equal(t, "T https://a1.example", report.Competitors[0].Title)
	assert.Equal(t, 300, report.Competitors[0].WordCount)

	assert.Equal(t, []string{"familienhotel mallorca alcudia", "mallorca kinderclub"}, report.RelatedSearches)
	assert.Equal(t, "# Briefing", report.Briefing)
	assert.Equal(t, "Solid", report.Evaluation)
	assert.Equal(t,
		"Familienhotel Mallorca (Type: Blog, Target: Familien, Related: familienhotel mallorca alcudia, mallorca kinderclub)",
		gotKeyword)

	logs := messages(ofType(events, EventLog))
	assert.Equal(t, []string{
		"Found 2 keywords. Top 5: kinderhotel mallorca, mallorca mit kindern...",
		"Found 4 competitors and 2 related searches.",
		"[OK] https://a1.example (300 words)",
		"[OK] https://a2.example (200 words)",
		"[OK] https://a3.example (120 words)",
		"[OK] https://b1.example (80 words)",
	}, logs)

	data := ofType(events, EventData)
	keys := make([]string, len(data))
	for i, ev := range data {
		keys[i] = ev.Key
	}
	assert.Equal(t, []string{KeyKeywords, KeyCompetitors, KeySemanticAnalysis, KeyBriefing, KeyEvaluation}, keys)
	assert.Equal(t, []string{"kinderhotel mallorca", "mallorca mit kindern"}, data[0].Data)

	records := store.all()
	require.Len(t, records, 1)
	assert.Equal(t, "mission-1", records[0].ID)
	assert.Equal(t, "Familienhotel Mallorca", records[0].Topic)
}

func TestExecute_EventOrderWithinStages(t *testing.T) {
	o := newTestOrchestrator(t, happyCollaborators(), Options{})
	_, events := o.Execute(context.Background(), validRequest())

	var kinds []string
	for _, ev := range events {
		switch ev.Type {
		case EventStatus:
			kinds = append(kinds, "status:"+string(ev.Step))
		case EventData:
			kinds = append(kinds, "data:"+ev.Key)
		case EventLog:
			kinds = append(kinds, "log")
		default:
			kinds = append(kinds, string(ev.Type))
		}
	}
	assert.Equal(t, []string{
		"status:init",
		"status:research", "data:keywords", "log", "data:competitors", "log",
		"status:parsing", "log", "log", "log", "log",
		"status:analysis", "data:semantic_analysis",
		"status:briefing", "data:briefing",
		"status:evaluation", "data:evaluation",
		"complete",
	}, kinds)
}

func TestExecute_WordCountBoundary(t *testing.T) {
	c := happyCollaborators()
	c.SearchA = searchAFunc(func(context.Context, string, string) (domain.SearchResponse, error) {
		return domain.SearchResponse{Organic: results("https://fifty.example", "https://fiftyone.example")}, nil
	})
	c.SearchB = searchBFunc(func(context.Context, string, int) ([]domain.SearchResult, error) { return nil, nil })
	c.Extractor = extractorWith(map[string]int{"https://fifty.example": 50, "https://fiftyone.example": 51})

	report, events := newTestOrchestrator(t, c, Options{}).Execute(context.Background(), validRequest())

	require.Len(t, report.Competitors, 1)
	assert.Equal(t, "https://fiftyone.example", report.Competitors[0].Link)
	assert.Contains(t, messages(events), "[SKIP] https://fifty.example (Low content)")
}

func TestExecute_MixedContentSizes(t *testing.T) {
	c := happyCollaborators()
	c.SearchA = searchAFunc(func(context.Context, string, string) (domain.SearchResponse, error) {
		return domain.SearchResponse{Organic: results("https://x.example", "https://y.example", "https://z.example")}, nil
	})
	c.SearchB = searchBFunc(func(context.Context, string, int) ([]domain.SearchResult, error) { return nil, nil })
	c.Extractor = extractorWith(map[string]int{"https://x.example": 10, "https://y.example": 60, "https://z.example": 200})

	var analyzed int
	c.Analyzer = analyzeFunc(func(_ context.Context, contents []domain.ExtractedContent, keyword, _ string) (domain.SemanticAnalysis, error) {
		analyzed = len(contents)
		return domain.SemanticAnalysis{Keyword: keyword}, nil
	})

	report, events := newTestOrchestrator(t, c, Options{}).Execute(context.Background(), validRequest())

	assert.Len(t, report.Competitors, 2)
	assert.Equal(t, 2, analyzed)
	logs := messages(ofType(events, EventLog))
	var ok, skip int
	for _, l := range logs {
		switch {
		case strings.HasPrefix(l, "[OK]"):
			ok++
		case strings.HasPrefix(l, "[SKIP]"):
			skip++
		}
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, skip)
}

func TestExecute_NoUsableContentSkipsAnalysis(t *testing.T) {
	store := newMemoryStore()
	var llmCalls atomic.Int32
	c := happyCollaborators()
	c.Extractor = extractorWith(map[string]int{
		"https://a1.example": 5, "https://a2.example": 50, "https://a3.example": 0, "https://b1.example": 12,
	})
	c.Analyzer = analyzeFunc(func(context.Context, []domain.ExtractedContent, string, string) (domain.SemanticAnalysis, error) {
		llmCalls.Add(1)
		return domain.SemanticAnalysis{}, nil
	})
	c.Briefing = briefFunc(func(context.Context, domain.Report, string) (string, error) {
		llmCalls.Add(1)
		return "", nil
	})

	report, events := newTestOrchestrator(t, c, Options{Store: store}).Execute(context.Background(), validRequest())

	assert.Equal(t, int32(0), llmCalls.Load())
	assert.Equal(t, []Step{StepInit, StepResearch, StepParsing}, steps(events))
	assert.Equal(t, EventComplete, events[len(events)-1].Type)
	assert.Empty(t, report.Competitors)
	assert.NotNil(t, report.Competitors)
	assert.True(t, report.SemanticAnalysis.IsZero())
	assert.Empty(t, report.Briefing)
	assert.Len(t, store.all(), 1)
}

func TestExecute_ProviderBFailureKeepsProviderA(t *testing.T) {
	c := happyCollaborators()
	c.SearchB = searchBFunc(func(context.Context, string, int) ([]domain.SearchResult, error) {
		return nil, errors.New("quota exceeded")
	})

	report, events := newTestOrchestrator(t, c, Options{}).Execute(context.Background(), validRequest())

	errs := ofType(events, EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, SourceCustomSearch, errs[0].Source)
	assert.Equal(t, "quota exceeded", errs[0].Message)

	require.Len(t, report.Competitors, 3)
	for _, comp := range report.Competitors {
		assert.Equal(t, domain.SourceSerpAPI, comp.Source)
	}
	assert.Equal(t, "# Briefing", report.Briefing)
}

func TestExecute_ProviderAFailureKeepsProviderB(t *testing.T) {
	c := happyCollaborators()
	c.SearchA = searchAFunc(func(context.Context, string, string) (domain.SearchResponse, error) {
		return domain.SearchResponse{}, errors.New("serpapi: Invalid API key")
	})

	report, events := newTestOrchestrator(t, c, Options{}).Execute(context.Background(), validRequest())

	errs := ofType(events, EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, SourceSerpAPI, errs[0].Source)
	assert.Empty(t, report.RelatedSearches)
	assert.NotNil(t, report.RelatedSearches)
	require.Len(t, report.Competitors, 2)
	assert.Equal(t, domain.SourceCustomSearch, report.Competitors[0].Source)
	assert.Contains(t, messages(events), "Found 2 competitors and 0 related searches.")
}

func TestExecute_KeywordFailure(t *testing.T) {
	c := happyCollaborators()
	c.Keywords = keywordsFunc(func(context.Context, string) (domain.KeywordData, error) {
		return domain.KeywordData{}, errors.New("developer token not approved")
	})

	report, events := newTestOrchestrator(t, c, Options{}).Execute(context.Background(), validRequest())

	errs := ofType(events, EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, SourceGoogleAds, errs[0].Source)
	assert.Equal(t, "developer token not approved", report.KeywordData.Error)
	assert.Nil(t, report.KeywordData.MainKeyword)
	for _, ev := range ofType(events, EventData) {
		assert.NotEqual(t, KeyKeywords, ev.Key)
	}
	assert.Len(t, report.Competitors, 4)
}

func TestExecute_ExtractionFailureIsLogged(t *testing.T) {
	c := happyCollaborators()
	base := extractorWith(map[string]int{"https://a1.example": 300, "https://a3.example": 120, "https://b1.example": 80})
	c.Extractor = extractFunc(func(ctx context.Context, url string) (domain.ExtractedContent, error) {
		if url == "https://a2.example" {
			return domain.ExtractedContent{}, errors.New("HTTP 403")
		}
		return base(ctx, url)
	})

	report, events := newTestOrchestrator(t, c, Options{}).Execute(context.Background(), validRequest())

	assert.Contains(t, messages(events), "[FAIL] https://a2.example: HTTP 403")
	assert.Empty(t, ofType(events, EventError))
	assert.Len(t, report.Competitors, 3)
}

func TestExecute_CompetitorOrderIgnoresCompletionOrder(t *testing.T) {
	c := happyCollaborators()
	delays := map[string]time.Duration{
		"https://a1.example": 60 * time.Millisecond,
		"https://a2.example": 40 * time.Millisecond,
		"https://a3.example": 20 * time.Millisecond,
		"https://b1.example": 0,
	}
	base := c.Extractor.(extractFunc)
	c.Extractor = extractFunc(func(ctx context.Context, url string) (domain.ExtractedContent, error) {
		time.Sleep(delays[url])
		return base(ctx, url)
	})

	report, events := newTestOrchestrator(t, c, Options{}).Execute(context.Background(), validRequest())

	links := make([]string, len(report.Competitors))
	for i, comp := range report.Competitors {
		links[i] = comp.Link
	}
	assert.Equal(t, []string{"https://a1.example", "https://a2.example", "https://a3.example", "https://b1.example"}, links)

	var outcomes []string
	for _, l := range messages(ofType(events, EventLog)) {
		if strings.HasPrefix(l, "[") {
			outcomes = append(outcomes, l)
		}
	}
	require.Len(t, outcomes, 4)
	assert.True(t, strings.HasPrefix(outcomes[0], "[OK] https://a1.example"))
}

func TestExecute_ResearchRunsConcurrently(t *testing.T) {
	var arrived sync.WaitGroup
	arrived.Add(3)
	released := make(chan struct{})
	go func() {
		arrived.Wait()
		close(released)
	}()
	barrier := func() error {
		arrived.Done()
		select {
		case <-released:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("research calls did not overlap")
		}
	}

	c := happyCollaborators()
	kw, sa, sb := c.Keywords, c.SearchA, c.SearchB
	c.Keywords = keywordsFunc(func(ctx context.Context, topic string) (domain.KeywordData, error) {
		if err := barrier(); err != nil {
			return domain.KeywordData{}, err
		}
		return kw.Ideas(ctx, topic)
	})
	c.SearchA = searchAFunc(func(ctx context.Context, q, loc string) (domain.SearchResponse, error) {
		if err := barrier(); err != nil {
			return domain.SearchResponse{}, err
		}
		return sa.Search(ctx, q, loc)
	})
	c.SearchB = searchBFunc(func(ctx context.Context, q string, num int) ([]domain.SearchResult, error) {
		if err := barrier(); err != nil {
			return nil, err
		}
		return sb.Search(ctx, q, num)
	})

	_, events := newTestOrchestrator(t, c, Options{}).Execute(context.Background(), validRequest())
	assert.Empty(t, ofType(events, EventError))
}

func TestExecute_PassesMaxCompetitorsToProviderB(t *testing.T) {
	c := happyCollaborators()
	var gotNum int
	var gotLocation string
	c.SearchA = searchAFunc(func(_ context.Context, _, location string) (domain.SearchResponse, error) {
		gotLocation = location
		return domain.SearchResponse{Organic: results("https://a1.example", "https://a2.example", "https://a3.example")}, nil
	})
	c.SearchB = searchBFunc(func(_ context.Context, _ string, num int) ([]domain.SearchResult, error) {
		gotNum = num
		return results("https://b1.example"), nil
	})

	req := validRequest()
	req.MaxCompetitors = 2
	req.Location = "Germany"
	report, _ := newTestOrchestrator(t, c, Options{}).Execute(context.Background(), req)

	assert.Equal(t, 2, gotNum)
	assert.Equal(t, "Germany", gotLocation)
	assert.Len(t, report.Competitors, 2)
}

func TestExecute_StageFailuresAreDegraded(t *testing.T) {
	c := happyCollaborators()
	c.Analyzer = analyzeFunc(func(context.Context, []domain.ExtractedContent, string, string) (domain.SemanticAnalysis, error) {
		return domain.SemanticAnalysis{}, errors.New("bad json")
	})
	c.Briefing = briefFunc(func(context.Context, domain.Report, string) (string, error) {
		return "", errors.New("quota")
	})
	var evaluated string
	c.Evaluator = evalFunc(func(_ context.Context, briefing string, _ domain.Report) (string, error) {
		evaluated = briefing
		return "", errors.New("timeout")
	})

	report, events := newTestOrchestrator(t, c, Options{}).Execute(context.Background(), validRequest())

	assert.Equal(t, "bad json", report.SemanticAnalysis.Error)
	assert.Equal(t, "Error generating briefing: quota", report.Briefing)
	assert.Equal(t, "Error generating briefing: quota", evaluated)
	assert.Equal(t, "Error evaluating briefing: timeout", report.Evaluation)

	errs := ofType(events, EventError)
	require.Len(t, errs, 3)
	assert.Equal(t, []Source{SourceSemanticAnalysis, SourceBriefing, SourceEvaluation},
		[]Source{errs[0].Source, errs[1].Source, errs[2].Source})
	assert.Equal(t, EventComplete, events[len(events)-1].Type)
}

func TestExecute_InvalidRequest(t *testing.T) {
	store := newMemoryStore()
	var called atomic.Bool
	c := happyCollaborators()
	c.Keywords = keywordsFunc(func(context.Context, string) (domain.KeywordData, error) {
		called.Store(true)
		return domain.KeywordData{}, nil
	})

	_, events := newTestOrchestrator(t, c, Options{Store: store}).Execute(context.Background(), Request{Topic: "   "})

	require.Len(t, events, 3)
	assert.Equal(t, EventStatus, events[0].Type)
	assert.Equal(t, EventError, events[1].Type)
	assert.Equal(t, SourceMission, events[1].Source)
	assert.Contains(t, events[1].Message, "topic is required")
	assert.Equal(t, EventComplete, events[2].Type)
	assert.False(t, called.Load())
	assert.Empty(t, store.all())
}

func TestExecute_AppliesDefaults(t *testing.T) {
	var gotLanguage string
	c := happyCollaborators()
	c.Briefing = briefFunc(func(_ context.Context, r domain.Report, language string) (string, error) {
		gotLanguage = language
		return "ok", nil
	})
	o := newTestOrchestrator(t, c, Options{Defaults: Defaults{Language: "German", ContentType: "Blog", MaxCompetitors: 3}})

	report, _ := o.Execute(context.Background(), Request{Topic: "Familienhotel Mallorca"})

	assert.Equal(t, "German", gotLanguage)
	assert.Equal(t, "Blog", report.ContentType)
	assert.Len(t, report.Competitors, 3)
}

func TestRun_CallerCancelStillCompletesMission(t *testing.T) {
	store := newMemoryStore()
	release := make(chan struct{})
	c := happyCollaborators()
	base := c.Briefing
	c.Briefing = briefFunc(func(ctx context.Context, r domain.Report, lang string) (string, error) {
		<-release
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return base.Generate(ctx, r, lang)
	})

	ctx, cancel := context.WithCancel(context.Background())
	ch := newTestOrchestrator(t, c, Options{Store: store}).Run(ctx, validRequest())

	first := <-ch
	assert.Equal(t, StepInit, first.Step)
	cancel()
	close(release)

	select {
	case <-store.saved:
	case <-time.After(5 * time.Second):
		t.Fatal("mission was not stored after the caller went away")
	}
	records := store.all()
	require.Len(t, records, 1)
	assert.Equal(t, "# Briefing", records[0].Report.Briefing)

	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event channel was not closed")
	}
}

func TestRun_CallTimeoutDegradesStage(t *testing.T) {
	c := happyCollaborators()
	c.Analyzer = analyzeFunc(func(ctx context.Context, _ []domain.ExtractedContent, _, _ string) (domain.SemanticAnalysis, error) {
		<-ctx.Done()
		return domain.SemanticAnalysis{}, ctx.Err()
	})

	report, events := newTestOrchestrator(t, c, Options{CallTimeout: 50 * time.Millisecond}).
		Execute(context.Background(), validRequest())

	assert.Equal(t, context.DeadlineExceeded.Error(), report.SemanticAnalysis.Error)
	errs := ofType(events, EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, SourceSemanticAnalysis, errs[0].Source)
	assert.Equal(t, "# Briefing", report.Briefing)
}

func TestRun_SinksReceiveEveryEvent(t *testing.T) {
	sink := &recordingSink{}
	_, events := newTestOrchestrator(t, happyCollaborators(), Options{Sinks: []Sink{sink}}).
		Execute(context.Background(), validRequest())

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, events, sink.events)
	assert.Equal(t, map[string]bool{"mission-1": true}, sink.ids)
}

func TestRun_ChannelClosedAfterComplete(t *testing.T) {
	ch := newTestOrchestrator(t, happyCollaborators(), Options{}).Run(context.Background(), validRequest())

	var last Event
	for ev := range ch {
		last = ev
	}
	assert.Equal(t, EventComplete, last.Type)
	_, open := <-ch
	assert.False(t, open)
}

func TestRun_ExtractionParallelismLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	c := happyCollaborators()
	base := c.Extractor.(extractFunc)
	c.Extractor = extractFunc(func(ctx context.Context, url string) (domain.ExtractedContent, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return base(ctx, url)
	})

	report, _ := newTestOrchestrator(t, c, Options{MaxParallelExtraction: 1}).Execute(context.Background(), validRequest())

	assert.Len(t, report.Competitors, 4)
	assert.Equal(t, int32(1), peak.Load())
}

func TestLogSink(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	err := LogSink{Logger: logger}.Publish(context.Background(), "m1",
		Event{Type: EventError, Source: SourceSerpAPI, Message: "quota"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "mission_id=m1")
	assert.Contains(t, buf.String(), "source=serp_api")
	assert.Contains(t, buf.String(), "message=quota")
}
