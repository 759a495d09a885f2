package util

import "strings"

// ContentFilter rejects relayed text containing any denylisted substring.
// Matching is case-insensitive and substring-based, so "SPAMMER" is caught
// by the word "spam".
type ContentFilter struct {
	words []string
}

func NewContentFilter(words []string) *ContentFilter {
	lowered := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			lowered = append(lowered, w)
		}
	}
	return &ContentFilter{words: lowered}
}

// Forbidden reports whether text contains a denylisted substring.
func (f *ContentFilter) Forbidden(text string) bool {
	lowered := strings.ToLower(text)
	for _, w := range f.words {
		if strings.Contains(lowered, w) {
			return true
		}
	}
	return false
}
