package keywords

import (
	"cmp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/salekh/genseo-workshop/internal/domain"
)

const (
	maxRelated = 10
	maxProof   = 8
)

// Idea is one keyword idea as returned by the API.
type Idea struct {
	Text               string
	AvgMonthlySearches int64
	Competition        string
}

// Process splits ideas into the main keyword (the idea matching seed, case
// insensitive), the top related keywords by search volume and the most
// frequent proof words.
func Process(ideas []Idea, seed string) domain.KeywordData {
	lowerSeed := strings.ToLower(seed)

	var (
		out     domain.KeywordData
		related []domain.Keyword
		counts  = make(map[string]int)
		order   []string
	)
	for _, idea := range ideas {
		kw := domain.Keyword{Keyword: idea.Text, AvgSearches: idea.AvgMonthlySearches, Competition: idea.Competition}
		if strings.ToLower(idea.Text) == lowerSeed {
			out.MainKeyword = &kw
		} else {
			related = append(related, kw)
		}

		for _, word := range strings.Fields(idea.Text) {
			w := strings.Trim(strings.ToLower(word), ".,!?")
			if utf8.RuneCountInString(w) <= 3 || strings.Contains(lowerSeed, w) {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	slices.SortStableFunc(related, func(a, b domain.Keyword) int {
		return cmp.Compare(b.AvgSearches, a.AvgSearches)
	})
	if len(related) > maxRelated {
		related = related[:maxRelated]
	}
	out.RelatedKeywords = related

	slices.SortStableFunc(order, func(a, b string) int {
		return cmp.Compare(counts[b], counts[a])
	})
	if len(order) > maxProof {
		order = order[:maxProof]
	}
	out.ProofKeywords = order
	return out
}
