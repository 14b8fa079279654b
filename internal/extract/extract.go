// Package extract turns competitor URLs into readable text for analysis.
package extract

import (
	"strings"
)

const noTitle = "No Title Found"

// WordCount returns the number of whitespace separated fields in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// markdownTitle returns the text of a leading "# " heading, if any.
func markdownTitle(content string) string {
	first, _, _ := strings.Cut(content, "\n")
	if strings.HasPrefix(first, "# ") {
		return strings.TrimSpace(first[2:])
	}
	return ""
}
