package session

import (
	"regexp"
	"strings"
)

// FillerCounter counts filler phrases in a transcript: whole-word,
// case-insensitive, and phrase-aware ("you know" matches across any
// run of whitespace but never inside another word).
type FillerCounter struct {
	patterns []*regexp.Regexp
}

// NewFillerCounter compiles the phrase list once per session.
func NewFillerCounter(phrases []string) *FillerCounter {
	patterns := make([]*regexp.Regexp, 0, len(phrases))
	for _, phrase := range phrases {
		tokens := strings.Fields(strings.ToLower(phrase))
		if len(tokens) == 0 {
			continue
		}
		escaped := make([]string, len(tokens))
		for i, tok := range tokens {
			escaped[i] = regexp.QuoteMeta(tok)
		}
		patterns = append(patterns, regexp.MustCompile(`\b`+strings.Join(escaped, `\s+`)+`\b`))
	}
	return &FillerCounter{patterns: patterns}
}

// Count returns the total number of filler occurrences in text.
func (f *FillerCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	normalized := strings.ToLower(text)
	total := 0
	for _, p := range f.patterns {
		total += len(p.FindAllStringIndex(normalized, -1))
	}
	return total
}
