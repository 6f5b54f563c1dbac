// Package query keeps the single active job description.
package query

import (
	"fmt"
	"sync/atomic"

	"resumatch/internal/domain"
)

// Holder is a single slot: each Set replaces the previous query wholesale.
// Readers see either the old or the new query, never a mix.
type Holder struct {
	embedder  domain.EmbeddingProvider
	segmenter domain.Segmenter
	current   atomic.Pointer[domain.Query]
}

func NewHolder(embedder domain.EmbeddingProvider, segmenter domain.Segmenter) *Holder {
	return &Holder{embedder: embedder, segmenter: segmenter}
}

// Set embeds text and its sentences and makes it the current query.
// On error the previous query stays in place.
func (h *Holder) Set(text string) (domain.Query, error) {
	docEmb, err := h.embedder.EmbedOne(text)
	if err != nil {
		return domain.Query{}, fmt.Errorf("embed job description: %w", err)
	}
	sentences := h.segmenter.Segment(text)
	sentEmbs, err := h.embedder.EmbedMany(sentences)
	if err != nil {
		return domain.Query{}, fmt.Errorf("embed job sentences: %w", err)
	}
	q := &domain.Query{
		Text:               text,
		Sentences:          sentences,
		SentenceEmbeddings: sentEmbs,
		DocEmbedding:       docEmb,
	}
	h.current.Store(q)
	return *q, nil
}

// Get returns the current query, or false before the first Set.
func (h *Holder) Get() (domain.Query, bool) {
	q := h.current.Load()
	if q == nil {
		return domain.Query{}, false
	}
	return *q, true
}
