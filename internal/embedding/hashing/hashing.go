package hashing

import (
	"hash/fnv"
	"math"

	"resumatch/internal/tokenize"
)

// DefaultDimension is wide enough to keep collisions rare for resume-sized vocabularies.
const DefaultDimension = 1024

// Embedder is a deterministic bag-of-words model: stopword-filtered terms
// are hashed into a fixed number of signed buckets and the result is
// L2-normalized. It needs no corpus, so vectors stay comparable across
// process restarts and incremental additions.
type Embedder struct {
	dimension int
}

// NewEmbedder creates a hashing embedder with the given dimension.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hashing" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the hashed term-frequency vector of text. Text without
// any terms maps to the zero vector.
func (e *Embedder) Embed(text string) ([]float64, error) {
	vec := make([]float64, e.dimension)
	terms := tokenize.Terms(text)
	if len(terms) == 0 {
		return vec, nil
	}
	for _, tok := range terms {
		idx, sign := e.bucket(tok)
		vec[idx] += sign
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text independently.
func (e *Embedder) EmbedBatch(texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := e.Embed(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *Embedder) bucket(tok string) (int, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tok))
	sum := h.Sum64()
	sign := 1.0
	if sum>>63 == 1 {
		sign = -1.0
	}
	return int(sum % uint64(e.dimension)), sign
}
