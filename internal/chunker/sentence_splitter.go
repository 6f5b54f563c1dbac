package chunker

import (
	"regexp"
	"strings"

	"resumatch/internal/tokenize"
)

const (
	// DefaultMaxSentences bounds how many sentences a single text contributes.
	DefaultMaxSentences = 200
	// DefaultFallbackChars is the length of the stand-in sentence used
	// when a text has no sentences of its own.
	DefaultFallbackChars = 512
)

// SentenceSplitter splits text into sentences on terminal punctuation,
// falling back to line breaks for text that has none.
type SentenceSplitter struct {
	maxSentences  int
	fallbackChars int
	boundary      *regexp.Regexp
}

func NewSentenceSplitter(maxSentences, fallbackChars int) *SentenceSplitter {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	if fallbackChars <= 0 {
		fallbackChars = DefaultFallbackChars
	}
	return &SentenceSplitter{
		maxSentences:  maxSentences,
		fallbackChars: fallbackChars,
		boundary:      regexp.MustCompile(`[.!?][\s\v\p{Z}\x{85}]+`),
	}
}

// Segment is Split with a guaranteed candidate: when Split finds nothing
// the first fallbackChars characters of text stand in as the only sentence.
func (s *SentenceSplitter) Segment(text string) []string {
	if sentences := s.Split(text); len(sentences) > 0 {
		return sentences
	}
	return []string{tokenize.Prefix(text, s.fallbackChars)}
}

// Split returns at most maxSentences trimmed, non-empty sentences.
// Whitespace-only input yields nil.
func (s *SentenceSplitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	sentences := s.splitPunctuation(text)
	if len(sentences) <= 1 {
		sentences = splitLines(text)
	}
	if len(sentences) > s.maxSentences {
		sentences = sentences[:s.maxSentences]
	}
	return sentences
}

func (s *SentenceSplitter) splitPunctuation(text string) []string {
	var out []string
	prev := 0
	for _, loc := range s.boundary.FindAllStringIndex(text, -1) {
		// keep the punctuation mark with its sentence
		out = appendTrimmed(out, text[prev:loc[0]+1])
		prev = loc[1]
	}
	return appendTrimmed(out, text[prev:])
}

func splitLines(text string) []string {
	var out []string
	for _, line := range strings.FieldsFunc(text, isLineBreak) {
		out = appendTrimmed(out, line)
	}
	return out
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

func appendTrimmed(dst []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		dst = append(dst, s)
	}
	return dst
}
