package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportJSONFieldNames(t *testing.T) {
	r := Report{
		Topic:           "hotels berlin",
		KeywordData:     KeywordData{Error: "quota"},
		Competitors:     []Competitor{{Title: "A", Link: "https://a.example", WordCount: 60, Source: SourceSerpAPI}},
		RelatedSearches: []string{"cheap hotels"},
	}
	raw, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	for _, key := range []string{"topic", "content_type", "target_group", "location", "language",
		"keyword_data", "competitors", "related_searches", "semantic_analysis", "briefing", "evaluation"} {
		assert.Contains(t, m, key)
	}
	assert.Equal(t, map[string]any{"error": "quota"}, m["keyword_data"])
	comp := m["competitors"].([]any)[0].(map[string]any)
	assert.Equal(t, "SerpAPI", comp["source"])
	assert.EqualValues(t, 60, comp["word_count"])
}

func TestSemanticAnalysisIsZero(t *testing.T) {
	assert.True(t, SemanticAnalysis{}.IsZero())
	assert.False(t, SemanticAnalysis{Error: "x"}.IsZero())
	assert.False(t, SemanticAnalysis{ContentGaps: []string{"pricing"}}.IsZero())
}

func TestReportCloneIsDeep(t *testing.T) {
	r := Report{
		KeywordData:      KeywordData{MainKeyword: &Keyword{Keyword: "a"}},
		Competitors:      []Competitor{{Link: "x"}},
		SemanticAnalysis: SemanticAnalysis{Entities: map[string][]string{"places": {"Berlin"}}},
	}
	c := r.Clone()
	c.KeywordData.MainKeyword.Keyword = "b"
	c.Competitors[0].Link = "y"
	c.SemanticAnalysis.Entities["places"][0] = "Munich"

	assert.Equal(t, "a", r.KeywordData.MainKeyword.Keyword)
	assert.Equal(t, "x", r.Competitors[0].Link)
	assert.Equal(t, "Berlin", r.SemanticAnalysis.Entities["places"][0])
}

func TestSearchResponseRelated(t *testing.T) {
	both := SearchResponse{
		RelatedSearches: []string{"a"}, HasRelatedSearches: true,
		PeopleAlsoAsk: []string{"q?"}, HasPeopleAlsoAsk: true,
	}
	assert.Equal(t, []string{"a"}, both.Related())

	// present but empty still wins over people-also-ask
	emptyRelated := SearchResponse{HasRelatedSearches: true, PeopleAlsoAsk: []string{"q?"}, HasPeopleAlsoAsk: true}
	assert.Empty(t, emptyRelated.Related())

	paa := SearchResponse{PeopleAlsoAsk: []string{"q?"}, HasPeopleAlsoAsk: true}
	assert.Equal(t, []string{"q?"}, paa.Related())

	assert.NotNil(t, SearchResponse{}.Related())
}
