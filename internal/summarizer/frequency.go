package summarizer

import (
	"math"
	"sort"
	"strings"

	"resumatch/internal/domain"
	"resumatch/internal/tokenize"
)

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered)
// and keeps the best ones in their original order.
type FrequencySummarizer struct {
	segmenter domain.Segmenter
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer(segmenter domain.Segmenter) *FrequencySummarizer {
	return &FrequencySummarizer{segmenter: segmenter}
}

// Summarize returns at most maxSentences sentences of text joined by spaces.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	sentences := s.segmenter.Split(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range tokenize.Terms(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		words := tokenize.Words(sent)
		sscore := 0.0
		for _, tok := range words {
			sscore += freq[tok]
		}
		// Normalize by sentence length to avoid bias
		if l := float64(len(words)); l > 0 {
			sscore /= math.Sqrt(l)
		}
		scores[i] = pair{i, sscore}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	selected := make([]int, maxSentences)
	for i := 0; i < maxSentences; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " "), nil
}
