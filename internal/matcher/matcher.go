// Package matcher ranks stored resumes against the current job description.
package matcher

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"resumatch/internal/domain"
	"resumatch/internal/tokenize"
)

const (
	DefaultSentenceWeight   = 0.7
	DefaultSnippetThreshold = 0.05
	DefaultSnippetChars     = 300
)

// Config tunes scoring. score = SentenceWeight*sent_sim + (1-SentenceWeight)*doc_sim.
type Config struct {
	SentenceWeight   float64
	SnippetThreshold float64
	SnippetChars     int
}

// DefaultConfig returns the stock weighting and snippet settings.
func DefaultConfig() Config {
	return Config{
		SentenceWeight:   DefaultSentenceWeight,
		SnippetThreshold: DefaultSnippetThreshold,
		SnippetChars:     DefaultSnippetChars,
	}
}

// DocumentSource yields the documents to rank, in a stable order.
type DocumentSource interface {
	Documents() []*domain.Document
}

// QuerySource yields the current query, if any.
type QuerySource interface {
	Get() (domain.Query, bool)
}

// Engine scores every document against the current query.
type Engine struct {
	docs    DocumentSource
	queries QuerySource
	cfg     Config
}

func NewEngine(docs DocumentSource, queries QuerySource, cfg Config) *Engine {
	if cfg.SnippetChars <= 0 {
		cfg.SnippetChars = DefaultSnippetChars
	}
	return &Engine{docs: docs, queries: queries, cfg: cfg}
}

// Rank returns at most topK matches by descending score. Equal scores keep
// store order. Without a current query, or with topK <= 0, it returns nil.
func (e *Engine) Rank(topK int) []domain.Match {
	q, ok := e.queries.Get()
	if !ok || topK <= 0 {
		return nil
	}
	docs := e.docs.Documents()
	results := make([]domain.Match, 0, len(docs))
	for _, d := range docs {
		results = append(results, e.Score(q, d))
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results
}

// Score computes the weighted similarity of one document and picks its snippet.
func (e *Engine) Score(q domain.Query, d *domain.Document) domain.Match {
	docSim := Cosine(q.DocEmbedding, d.DocEmbedding)
	sentSim, best := 0.0, -1
	if len(q.SentenceEmbeddings) > 0 && len(d.SentenceEmbeddings) > 0 {
		sentSim, best = BestPair(q.SentenceEmbeddings, d.SentenceEmbeddings)
	}
	score := e.cfg.SentenceWeight*sentSim + (1-e.cfg.SentenceWeight)*docSim

	var snippet string
	if best >= 0 && best < len(d.Sentences) && sentSim > e.cfg.SnippetThreshold {
		snippet = d.Sentences[best]
	} else {
		snippet = tokenize.Flatten(tokenize.Prefix(d.Text, e.cfg.SnippetChars))
	}
	return domain.Match{ID: d.ID, Filename: d.Filename, Score: score, Snippet: snippet}
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or their dimensions differ.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// BestPair builds the query×document cosine matrix and returns its maximum
// and the document row that holds it. The first maximum in row-major order
// wins. It returns (0, -1) when the two sides have different dimensions.
func BestPair(query, doc [][]float64) (float64, int) {
	qm, ok := normalizedRows(query)
	if !ok {
		return 0, -1
	}
	dm, ok := normalizedRows(doc)
	if !ok {
		return 0, -1
	}
	_, qc := qm.Dims()
	_, dc := dm.Dims()
	if qc != dc {
		return 0, -1
	}
	var sims mat.Dense
	sims.Mul(qm, dm.T())

	rows, cols := sims.Dims()
	bestVal, bestCol := sims.At(0, 0), 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := sims.At(i, j); v > bestVal {
				bestVal, bestCol = v, j
			}
		}
	}
	return bestVal, bestCol
}

// normalizedRows stacks rows into a matrix of unit vectors; zero rows stay zero.
func normalizedRows(rows [][]float64) (*mat.Dense, bool) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, false
	}
	dim := len(rows[0])
	m := mat.NewDense(len(rows), dim, nil)
	for i, r := range rows {
		if len(r) != dim {
			return nil, false
		}
		if n := floats.Norm(r, 2); n > 0 {
			row := make([]float64, dim)
			floats.ScaleTo(row, 1/n, r)
			m.SetRow(i, row)
		}
	}
	return m, true
}
