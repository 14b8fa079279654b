package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/salekh/genseo-workshop/internal/domain"
)

// maxArticleChars bounds how much of each competitor article goes into the
// analysis prompt.
const maxArticleChars = 5000

const analyzerSystem = `You are an SEO expert. You analyse competitor articles for a target keyword and answer with JSON only.`

// Analyzer extracts entities, topic clusters and content gaps from
// competitor content.
type Analyzer struct {
	gen Generator
}

// NewAnalyzer returns an Analyzer backed by gen.
func NewAnalyzer(gen Generator) *Analyzer {
	return &Analyzer{gen: gen}
}

// Analyze runs the semantic analysis for keyword over contents.
func (a *Analyzer) Analyze(ctx context.Context, contents []domain.ExtractedContent, keyword, language string) (domain.SemanticAnalysis, error) {
	out, err := a.gen.Generate(ctx, analyzerSystem, analysisPrompt(contents, keyword, language), true)
	if err != nil {
		return domain.SemanticAnalysis{}, err
	}

	var analysis domain.SemanticAnalysis
	if err := json.Unmarshal([]byte(extractJSON(out)), &analysis); err != nil {
		return domain.SemanticAnalysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	if analysis.Keyword == "" {
		analysis.Keyword = keyword
	}
	return analysis, nil
}

func analysisPrompt(contents []domain.ExtractedContent, keyword, language string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Perform a semantic analysis for the keyword %q based on these competitor articles.\n\nCOMPETITOR CONTENT:\n", keyword)
	for i, c := range contents {
		title := c.Title
		if title == "" {
			title = "Unknown Title"
		}
		fmt.Fprintf(&b, "\n--- ARTICLE %d: %s ---\n%s\n", i+1, title, truncate(c.MainContent, maxArticleChars))
	}
	fmt.Fprintf(&b, `
Extract:
1. Frequent entities (places, brands, concepts).
2. Topic clusters: which topics are covered and by how many articles.
3. Content gaps: what is missing or under-represented.

Write the analysis in %s.

Answer with this JSON shape:
{"keyword": %q, "entities": {"places": [], "hotels": [], "concepts": []},
 "topic_clusters": [{"topic": "", "coverage": "X/Y articles", "status": "High|Medium|Low"}],
 "content_gaps": []}
`, language, keyword)
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// extractJSON strips Markdown code fences and any prose around the first
// JSON object in s.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
