// Package npy stores document vectors as NumPy .npy files: a 2-D
// sentences×dims array and a 1-D dims array per document. Files are written
// as float64; float32 files are read and widened.
package npy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"resumatch/internal/vectorstore"
)

const (
	sentenceSuffix = "_sent_embs.npy"
	docSuffix      = "_doc_emb.npy"
)

// Storage writes vector files into a single directory.
type Storage struct {
	dir string
}

// NewStorage creates dir if needed.
func NewStorage(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Storage{dir: dir}, nil
}

// Paths returns the sentence and document vector file paths for id.
func (s *Storage) Paths(id string) (string, string) {
	return filepath.Join(s.dir, id+sentenceSuffix), filepath.Join(s.dir, id+docSuffix)
}

func (s *Storage) Save(id string, sentences [][]float64, doc []float64) error {
	if len(sentences) == 0 || len(sentences[0]) == 0 {
		return errors.New("no sentence vectors")
	}
	rows, cols := len(sentences), len(sentences[0])
	m := mat.NewDense(rows, cols, nil)
	for i, row := range sentences {
		if len(row) != cols {
			return fmt.Errorf("sentence vector %d has dimension %d, want %d", i, len(row), cols)
		}
		m.SetRow(i, row)
	}
	sentPath, docPath := s.Paths(id)
	if err := writeFile(sentPath, m); err != nil {
		return err
	}
	return writeFile(docPath, doc)
}

func (s *Storage) Load(id string) ([][]float64, []float64, error) {
	sentPath, docPath := s.Paths(id)
	data, shape, err := readFile(sentPath)
	if err != nil {
		return nil, nil, err
	}
	if len(shape) != 2 {
		return nil, nil, fmt.Errorf("%s: want a 2-D array, got shape %v", filepath.Base(sentPath), shape)
	}
	rows, cols := shape[0], shape[1]
	if rows == 0 || cols == 0 || len(data) != rows*cols {
		return nil, nil, fmt.Errorf("%s: %d values for shape %v", filepath.Base(sentPath), len(data), shape)
	}
	m := mat.NewDense(rows, cols, data)
	sentences := make([][]float64, rows)
	for i := range sentences {
		sentences[i] = mat.Row(nil, i, m)
	}
	doc, _, err := readFile(docPath)
	if err != nil {
		return nil, nil, err
	}
	return sentences, doc, nil
}

// Delete removes both vector files. Missing files are not an error.
func (s *Storage) Delete(id string) error {
	sentPath, docPath := s.Paths(id)
	var errs []error
	for _, p := range []string{sentPath, docPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func writeFile(path string, val any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := npyio.Write(f, val); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// readFile returns the array in row-major order together with its shape.
func readFile(path string) ([]float64, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), vectorstore.ErrNotFound)
		}
		return nil, nil, err
	}
	defer f.Close()
	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	descr := r.Header.Descr
	var data []float64
	switch {
	case strings.HasSuffix(descr.Type, "f8"):
		err = r.Read(&data)
	case strings.HasSuffix(descr.Type, "f4"):
		var narrow []float32
		err = r.Read(&narrow)
		data = make([]float64, len(narrow))
		for i, v := range narrow {
			data[i] = float64(v)
		}
	default:
		err = fmt.Errorf("unsupported dtype %q", descr.Type)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	shape := descr.Shape
	if descr.Fortran && len(shape) == 2 {
		data = toRowMajor(data, shape[0], shape[1])
	}
	return data, shape, nil
}

func toRowMajor(data []float64, rows, cols int) []float64 {
	out := make([]float64, len(data))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[i*cols+j] = data[j*rows+i]
		}
	}
	return out
}
