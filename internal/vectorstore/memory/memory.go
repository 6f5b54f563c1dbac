package memory

import (
	"errors"
	"sync"

	"resumatch/internal/vectorstore"
)

type entry struct {
	sentences [][]float64
	doc       []float64
}

// Storage keeps vectors in process memory. Useful for tests and ephemeral runs.
type Storage struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewStorage() *Storage { return &Storage{entries: make(map[string]entry)} }

func (s *Storage) Save(id string, sentences [][]float64, doc []float64) error {
	if len(sentences) == 0 {
		return errors.New("no sentence vectors")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = entry{sentences: cloneMatrix(sentences), doc: append([]float64(nil), doc...)}
	return nil
}

func (s *Storage) Load(id string) ([][]float64, []float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, nil, vectorstore.ErrNotFound
	}
	return cloneMatrix(e.sentences), append([]float64(nil), e.doc...), nil
}

func (s *Storage) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func cloneMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
