package domain

// Document is one indexed resume: its source text, segmentation and embeddings.
// Fields are written once by the store and never mutated afterwards.
type Document struct {
	ID                 string
	Filename           string
	Text               string
	Sentences          []string
	SentenceEmbeddings [][]float64
	DocEmbedding       []float64
}

// Query is the embedded job description the store is ranked against.
type Query struct {
	Text               string
	Sentences          []string
	SentenceEmbeddings [][]float64
	DocEmbedding       []float64
}

// DocumentRef is the listing view of a stored document.
type DocumentRef struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// Match is a ranked document with the sentence that best explains the score.
type Match struct {
	ID       string  `json:"id"`
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
	Snippet  string  `json:"snippet"`
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(text string) ([]float64, error)
	EmbedBatch(texts []string) ([][]float64, error)
}

// EmbeddingProvider is the initialize-once handle around an Embedder.
type EmbeddingProvider interface {
	EmbedOne(text string) ([]float64, error)
	EmbedMany(texts []string) ([][]float64, error)
}

// Segmenter splits text into sentence-like units. Segment never returns
// an empty slice: text that yields no sentences becomes a single
// truncated prefix of itself.
type Segmenter interface {
	Split(text string) []string
	Segment(text string) []string
}

// Extractor returns the plain-text content of a file.
type Extractor interface {
	Supports(path string) bool
	Extract(path string) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
