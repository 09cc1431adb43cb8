package wordcount

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const specialChars = "./?><,:';+=!@$%^&*()~`*{}_[]"

// DocumentStatistics is the persisted result of a run.
type DocumentStatistics struct {
	DocumentCount int            `json:"DocumentCount"`
	Documents     []string       `json:"Documents"`
	WordCounts    map[string]int `json:"WordCounts"`
}

// WordCount pairs a word with its frequency.
type WordCount struct {
	Word  string
	Count int
}

// NewDocumentStatistics returns empty statistics.
func NewDocumentStatistics() *DocumentStatistics {
	return &DocumentStatistics{
		Documents:  []string{},
		WordCounts: map[string]int{},
	}
}

// AddDocument records a document and its words.
func (s *DocumentStatistics) AddDocument(name string, words []string) {
	s.Documents = append(s.Documents, name)
	s.DocumentCount = len(s.Documents)
	s.CountWords(words)
}

// CountWords adds words to the tally, ignoring empty tokens.
func (s *DocumentStatistics) CountWords(words []string) {
	for _, word := range words {
		if word == "" {
			continue
		}
		s.WordCounts[word]++
	}
}

// Ranked returns the tally by descending count, ties in word order.
func (s *DocumentStatistics) Ranked() []WordCount {
	ranked := make([]WordCount, 0, len(s.WordCounts))
	for word, count := range s.WordCounts {
		ranked = append(ranked, WordCount{Word: word, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Word < ranked[j].Word
	})
	return ranked
}

var lower = cases.Lower(language.Und)

// Tokenize strips punctuation, splits on whitespace and lower-cases.
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0:
		case strings.ContainsRune(specialChars, r):
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Fields(lower.String(b.String()))
}
