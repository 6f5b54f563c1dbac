package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect []string
	}{
		{
			name:   "terminal punctuation",
			input:  "Built APIs in Go. Led a team!  Ready to relocate? Yes",
			expect: []string{"Built APIs in Go.", "Led a team!", "Ready to relocate?", "Yes"},
		},
		{
			name:   "newline after punctuation",
			input:  "First line.\nSecond line.",
			expect: []string{"First line.", "Second line."},
		},
		{
			name:   "falls back to lines without punctuation",
			input:  "John Doe\n\n  Backend engineer  \r\nGo, Kafka",
			expect: []string{"John Doe", "Backend engineer", "Go, Kafka"},
		},
		{
			name:   "single sentence with lines",
			input:  "Summary\nExperienced engineer.",
			expect: []string{"Summary", "Experienced engineer."},
		},
		{
			name:   "punctuation without following whitespace",
			input:  "v1.2.3 released",
			expect: []string{"v1.2.3 released"},
		},
		{
			name:   "empty",
			input:  "",
			expect: nil,
		},
		{
			name:   "whitespace only",
			input:  " \n\t \r\n ",
			expect: nil,
		},
	}
	s := NewSentenceSplitter(0, 0)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, s.Split(tc.input))
		})
	}
}

func TestSplitCapsSentences(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 450; i++ {
		fmt.Fprintf(&b, "Sentence number %d. ", i)
	}
	got := NewSentenceSplitter(0, 0).Split(b.String())
	require.Len(t, got, DefaultMaxSentences)
	assert.Equal(t, "Sentence number 0.", got[0])
	assert.Equal(t, "Sentence number 199.", got[199])

	assert.Len(t, NewSentenceSplitter(3, 0).Split(b.String()), 3)
}

func TestSplitCapsLines(t *testing.T) {
	lines := make([]string, 300)
	for i := range lines {
		lines[i] = fmt.Sprintf("skill %d", i)
	}
	got := NewSentenceSplitter(0, 0).Split(strings.Join(lines, "\n"))
	assert.Len(t, got, DefaultMaxSentences)
}

func TestSegmentFallback(t *testing.T) {
	s := NewSentenceSplitter(0, 4)
	assert.Equal(t, []string{"One.", "Two."}, s.Segment("One. Two."))
	assert.Equal(t, []string{"  \n "}, s.Segment("  \n "))
	assert.Equal(t, []string{""}, s.Segment(""))

	long := strings.Repeat(" ", 600)
	got := NewSentenceSplitter(0, 0).Segment(long)
	require.Len(t, got, 1)
	assert.Len(t, got[0], DefaultFallbackChars)
}
