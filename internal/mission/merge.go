package mission

import (
	"net/url"
	"strings"

	"github.com/salekh/genseo-workshop/internal/domain"
)

// Candidate is a competitor before content extraction.
type Candidate struct {
	Title  string                  `json:"title"`
	Link   string                  `json:"link"`
	Source domain.CompetitorSource `json:"source"`
}

// NormalizeLink returns the identity key of a link: scheme and host are
// lowercased, the fragment is dropped and a single trailing slash is removed
// from non-root paths. Unparsable links are only trimmed.
func NormalizeLink(link string) string {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = ""
	}
	return u.String()
}

// MergeCompetitors merges the organic results of both providers. Provider A
// is processed first, so it wins duplicate links; each provider keeps its
// own ranking order. The result holds at most limit entries.
func MergeCompetitors(a, b []domain.SearchResult, limit int) []Candidate {
	seen := make(map[string]struct{}, len(a)+len(b))
	merged := make([]Candidate, 0, len(a)+len(b))

	add := func(results []domain.SearchResult, source domain.CompetitorSource) {
		for _, r := range results {
			link := strings.TrimSpace(r.Link)
			if link == "" {
				continue
			}
			key := NormalizeLink(link)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, Candidate{Title: r.Title, Link: link, Source: source})
		}
	}
	add(a, domain.SourceSerpAPI)
	add(b, domain.SourceCustomSearch)

	if limit >= 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
