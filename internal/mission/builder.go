package mission

import (
	"github.com/salekh/genseo-workshop/internal/domain"
)

// researchDelta is what the research stage contributes to the report.
type researchDelta struct {
	keywordData     domain.KeywordData
	relatedSearches []string
	candidates      []Candidate
}

// extractionDelta is what the content extraction stage contributes.
type extractionDelta struct {
	competitors []domain.Competitor
	contents    []domain.ExtractedContent
}

// reportBuilder accumulates one mission's report. It is owned by a single
// mission goroutine and only changed between joins.
type reportBuilder struct {
	report     domain.Report
	candidates []Candidate
	contents   []domain.ExtractedContent
}

func newReportBuilder(req Request) *reportBuilder {
	return &reportBuilder{report: domain.Report{
		Topic:           req.Topic,
		ContentType:     req.ContentType,
		TargetGroup:     req.TargetGroup,
		Location:        req.Location,
		Language:        req.Language,
		Competitors:     []domain.Competitor{},
		RelatedSearches: []string{},
	}}
}

func (b *reportBuilder) applyResearch(d researchDelta) {
	b.report.KeywordData = d.keywordData
	if d.relatedSearches != nil {
		b.report.RelatedSearches = d.relatedSearches
	}
	b.candidates = d.candidates
}

func (b *reportBuilder) applyExtraction(d extractionDelta) {
	b.report.Competitors = append(b.report.Competitors, d.competitors...)
	b.contents = append(b.contents, d.contents...)
}

func (b *reportBuilder) setAnalysis(a domain.SemanticAnalysis) { b.report.SemanticAnalysis = a }
func (b *reportBuilder) setBriefing(s string)                  { b.report.Briefing = s }
func (b *reportBuilder) setEvaluation(s string)                { b.report.Evaluation = s }

// Build returns a deep copy of the report assembled so far.
func (b *reportBuilder) Build() domain.Report {
	return b.report.Clone()
}
