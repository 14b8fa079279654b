// Package serp queries the two search engines competitors are drawn from:
// SerpAPI (primary) and the Google Custom Search JSON API (secondary).
package serp

import (
	"errors"
	"strings"

	"github.com/salekh/genseo-workshop/internal/domain"
)

// errNoQuery is returned when a search is attempted with a blank query.
var errNoQuery = errors.New("empty search query")

func organic(title, link string) (domain.SearchResult, bool) {
	link = strings.TrimSpace(link)
	if link == "" {
		return domain.SearchResult{}, false
	}
	return domain.SearchResult{Title: strings.TrimSpace(title), Link: link}, true
}
