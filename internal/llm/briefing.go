package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/salekh/genseo-workshop/internal/domain"
)

const briefingSystem = `You are an SEO content strategist. You write structured content briefings in Markdown for human writers.`

// BriefingGenerator turns a mission report into a content briefing.
type BriefingGenerator struct {
	gen Generator
}

// NewBriefingGenerator returns a generator backed by gen.
func NewBriefingGenerator(gen Generator) *BriefingGenerator {
	return &BriefingGenerator{gen: gen}
}

// Generate writes a Markdown briefing in language for report.
func (g *BriefingGenerator) Generate(ctx context.Context, report domain.Report, language string) (string, error) {
	data, err := reportJSON(report)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf(`Create a detailed content briefing from this SEO report.

SEO REPORT DATA:
%s

Write the briefing in %s. Include:
- formal information: main keyword with volume, secondary keywords, proof keywords, search intent, customer journey phase, target length
- an outline (H1, H2, H3) with short content notes, with dedicated sections for the content gaps
- SEO notes: meta title and meta description
Weave the entities and proof keywords into the outline notes.`, data, language)

	return g.gen.Generate(ctx, briefingSystem, prompt, false)
}

// reportJSON renders report as indented JSON without HTML escaping.
func reportJSON(report domain.Report) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	return buf.String(), nil
}
