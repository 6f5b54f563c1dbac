package vectorstore

import "errors"

// ErrNotFound is returned by Load when no vectors are stored for an id.
var ErrNotFound = errors.New("vectors not found")

// Storage persists the sentence and document vectors of each document.
type Storage interface {
	Save(id string, sentences [][]float64, doc []float64) error
	Load(id string) (sentences [][]float64, doc []float64, err error)
	Delete(id string) error
}
