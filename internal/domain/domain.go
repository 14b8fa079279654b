// Package domain holds the data contracts shared between the mission
// orchestrator and its collaborators.
package domain

// Keyword is a single keyword idea with its search metrics.
type Keyword struct {
	Keyword     string `json:"keyword"`
	AvgSearches int64  `json:"avg_searches"`
	Competition string `json:"competition"`
}

// KeywordData is the keyword provider's output. When the provider fails,
// Error is set and the remaining fields are empty.
type KeywordData struct {
	MainKeyword     *Keyword  `json:"main_keyword,omitempty"`
	RelatedKeywords []Keyword `json:"related_keywords,omitempty"`
	ProofKeywords   []string  `json:"proof_keywords,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// SearchResult is one organic result returned by a search provider.
type SearchResult struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// SearchResponse is a search provider's page of organic results plus the
// query suggestions it returned. The Has flags record whether the provider
// sent the field at all, which differs from sending it empty.
type SearchResponse struct {
	Organic            []SearchResult
	RelatedSearches    []string
	HasRelatedSearches bool
	PeopleAlsoAsk      []string
	HasPeopleAlsoAsk   bool
}

// Related returns the related searches when present, else the
// people-also-ask questions.
func (r SearchResponse) Related() []string {
	if r.HasRelatedSearches {
		return append([]string{}, r.RelatedSearches...)
	}
	if r.HasPeopleAlsoAsk {
		return append([]string{}, r.PeopleAlsoAsk...)
	}
	return []string{}
}

// CompetitorSource labels which search provider first reported a competitor.
type CompetitorSource string

const (
	SourceSerpAPI      CompetitorSource = "SerpAPI"
	SourceCustomSearch CompetitorSource = "CustomSearch"
)

// Competitor is a ranking page that survived content extraction.
type Competitor struct {
	Title     string           `json:"title"`
	Link      string           `json:"link"`
	WordCount int              `json:"word_count"`
	Source    CompetitorSource `json:"source"`
}

// ExtractedContent is the readable body of a fetched page.
type ExtractedContent struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	WordCount   int    `json:"word_count"`
	MainContent string `json:"main_content"`
}

// TopicCluster groups related subtopics and how well competitors cover them.
type TopicCluster struct {
	Topic    string `json:"topic"`
	Coverage string `json:"coverage"`
	Status   string `json:"status"`
}

// SemanticAnalysis is the structured analysis of competitor content.
type SemanticAnalysis struct {
	Keyword       string              `json:"keyword,omitempty"`
	Entities      map[string][]string `json:"entities,omitempty"`
	TopicClusters []TopicCluster      `json:"topic_clusters,omitempty"`
	ContentGaps   []string            `json:"content_gaps,omitempty"`
	Error         string              `json:"error,omitempty"`
}

// IsZero reports whether the analysis was never produced.
func (s SemanticAnalysis) IsZero() bool {
	return s.Keyword == "" && len(s.Entities) == 0 && len(s.TopicClusters) == 0 &&
		len(s.ContentGaps) == 0 && s.Error == ""
}

// Report is the final mission deliverable.
type Report struct {
	Topic            string           `json:"topic"`
	ContentType      string           `json:"content_type"`
	TargetGroup      string           `json:"target_group"`
	Location         string           `json:"location"`
	Language         string           `json:"language"`
	KeywordData      KeywordData      `json:"keyword_data"`
	Competitors      []Competitor     `json:"competitors"`
	RelatedSearches  []string         `json:"related_searches"`
	SemanticAnalysis SemanticAnalysis `json:"semantic_analysis"`
	Briefing         string           `json:"briefing"`
	Evaluation       string           `json:"evaluation"`
}

// Clone returns a deep copy of r.
func (r Report) Clone() Report {
	out := r
	if r.KeywordData.MainKeyword != nil {
		mk := *r.KeywordData.MainKeyword
		out.KeywordData.MainKeyword = &mk
	}
	out.KeywordData.RelatedKeywords = append([]Keyword(nil), r.KeywordData.RelatedKeywords...)
	out.KeywordData.ProofKeywords = append([]string(nil), r.KeywordData.ProofKeywords...)
	out.Competitors = append([]Competitor{}, r.Competitors...)
	out.RelatedSearches = append([]string{}, r.RelatedSearches...)
	if r.SemanticAnalysis.Entities != nil {
		out.SemanticAnalysis.Entities = make(map[string][]string, len(r.SemanticAnalysis.Entities))
		for k, v := range r.SemanticAnalysis.Entities {
			out.SemanticAnalysis.Entities[k] = append([]string(nil), v...)
		}
	}
	out.SemanticAnalysis.TopicClusters = append([]TopicCluster(nil), r.SemanticAnalysis.TopicClusters...)
	out.SemanticAnalysis.ContentGaps = append([]string(nil), r.SemanticAnalysis.ContentGaps...)
	return out
}
