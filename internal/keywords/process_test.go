package keywords

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcess_MainAndRelated(t *testing.T) {
	ideas := []Idea{
		{Text: "seo tools", AvgMonthlySearches: 100},
		{Text: "SEO Agentur", AvgMonthlySearches: 5000, Competition: "HIGH"},
		{Text: "seo agentur berlin", AvgMonthlySearches: 900},
	}
	for i := 0; i < 12; i++ {
		ideas = append(ideas, Idea{Text: fmt.Sprintf("filler %d", i), AvgMonthlySearches: int64(i)})
	}

	data := Process(ideas, "seo agentur")
	require.NotNil(t, data.MainKeyword)
	assert.Equal(t, "SEO Agentur", data.MainKeyword.Keyword)
	assert.Len(t, data.RelatedKeywords, 10)
	assert.Equal(t, "seo agentur berlin", data.RelatedKeywords[0].Keyword)
	assert.Equal(t, "seo tools", data.RelatedKeywords[1].Keyword)
}

func TestProcess_NoMainKeyword(t *testing.T) {
	data := Process([]Idea{{Text: "something else"}}, "seo")
	assert.Nil(t, data.MainKeyword)
	assert.Len(t, data.RelatedKeywords, 1)
}

func TestProcess_ProofKeywords(t *testing.T) {
	ideas := []Idea{
		{Text: "familienhotel mallorca strand"},
		{Text: "familienhotel mallorca kinderclub!"},
		{Text: "mallorca kinderclub pool"},
		{Text: "mallorca all inclusive strand"},
		{Text: "mallorca strand"},
	}
	data := Process(ideas, "familienhotel mallorca")

	// seed words, substrings of the seed and words of three runes or fewer are excluded
	assert.NotContains(t, data.ProofKeywords, "mallorca")
	assert.NotContains(t, data.ProofKeywords, "familienhotel")
	assert.NotContains(t, data.ProofKeywords, "all")
	assert.Equal(t, []string{"strand", "kinderclub", "pool", "inclusive"}, data.ProofKeywords)
}

func TestProcess_ProofKeywordsCapped(t *testing.T) {
	var ideas []Idea
	for i := 0; i < 20; i++ {
		ideas = append(ideas, Idea{Text: fmt.Sprintf("word%02d", i)})
	}
	data := Process(ideas, "seed")
	assert.Len(t, data.ProofKeywords, 8)
	assert.Equal(t, "word00", data.ProofKeywords[0])
}
