package llm

import (
	"context"
	"fmt"

	"github.com/salekh/genseo-workshop/internal/domain"
)

const evaluatorSystem = `You are a senior SEO editor. You critique content briefings against the research they were built from.`

// Evaluator critiques a briefing against its report.
type Evaluator struct {
	gen Generator
}

// NewEvaluator returns an Evaluator backed by gen.
func NewEvaluator(gen Generator) *Evaluator {
	return &Evaluator{gen: gen}
}

// Evaluate returns a Markdown evaluation of briefing.
func (e *Evaluator) Evaluate(ctx context.Context, briefing string, report domain.Report) (string, error) {
	data, err := reportJSON(report)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf(`Evaluate the content briefing against the SEO data.

SEO DATA:
%s

CONTENT BRIEFING:
%s

Answer these questions:
1. Does it cover every content gap?
2. Does it use the proof keywords?
3. Is the structure logical?
4. Which opportunities are missing?

Return a concise evaluation report with specific recommendations.`, data, briefing)

	return e.gen.Generate(ctx, evaluatorSystem, prompt, false)
}
