// Package store holds the indexed resumes: text, sentences and embeddings
// in memory, mirrored to a JSON index file plus per-document vector files.
package store

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"resumatch/internal/domain"
	"resumatch/internal/vectorstore"
)

// FileIDPrefix namespaces content-hash ids apart from random upload ids.
const FileIDPrefix = "file-"

// Config wires a Store to its collaborators.
type Config struct {
	IndexPath string
	Vectors   vectorstore.Storage
	Embedder  domain.EmbeddingProvider
	Segmenter domain.Segmenter
	Extractor domain.Extractor
	Logger    *zap.Logger
}

// Store is safe for concurrent use. Each Add or Delete is applied to the
// map and the index file under one write lock; a folder rebuild is a
// sequence of independent Adds, so readers may observe it half-done.
type Store struct {
	mu    sync.RWMutex
	docs  map[string]*domain.Document
	order []string

	indexPath string
	vectors   vectorstore.Storage
	embedder  domain.EmbeddingProvider
	segmenter domain.Segmenter
	extractor domain.Extractor
	log       *zap.Logger
	newID     func() string
}

// New returns an empty store. Call Load to pick up a persisted index.
func New(cfg Config) *Store {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		docs:      make(map[string]*domain.Document),
		indexPath: cfg.IndexPath,
		vectors:   cfg.Vectors,
		embedder:  cfg.Embedder,
		segmenter: cfg.Segmenter,
		extractor: cfg.Extractor,
		log:       log.Named("store"),
		newID:     uuid.NewString,
	}
}

// IndexPath is the location of the JSON index file.
func (s *Store) IndexPath() string { return s.indexPath }

// Load reads the index file and the vector files of every record. Records
// whose vectors are missing or unreadable are dropped. A missing index
// file leaves the store empty.
func (s *Store) Load() LoadReport {
	var report LoadReport
	idx, err := readIndex(s.indexPath)
	if err != nil {
		skip := &SkipError{Op: "load index", Path: s.indexPath, Err: err}
		s.log.Warn("index unreadable, starting empty", zap.String("path", s.indexPath), zap.Error(err))
		report.Dropped = append(report.Dropped, skip)
		return report
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range idx {
		doc, err := s.restore(e)
		if err != nil {
			skip := &SkipError{Op: "load vectors", ID: e.ID, Err: err}
			s.log.Warn("dropping index record", zap.String("id", e.ID), zap.Error(err))
			report.Dropped = append(report.Dropped, skip)
			continue
		}
		s.put(doc)
		report.Loaded++
	}
	return report
}

func (s *Store) restore(e indexEntry) (*domain.Document, error) {
	sents, doc, err := s.vectors.Load(e.ID)
	if err != nil {
		return nil, err
	}
	if len(sents) == 0 || len(sents) != len(e.Record.Sentences) {
		return nil, fmt.Errorf("%d sentence vectors for %d sentences", len(sents), len(e.Record.Sentences))
	}
	return &domain.Document{
		ID:                 e.ID,
		Filename:           e.Record.Filename,
		Text:               e.Record.Text,
		Sentences:          e.Record.Sentences,
		SentenceEmbeddings: sents,
		DocEmbedding:       doc,
	}, nil
}

// Add segments and embeds text, stores it under id (a fresh random id when
// empty), persists its vectors and rewrites the index. It returns the id used.
// If the index cannot be written the in-memory state is left as it was.
func (s *Store) Add(id, filename, text string) (string, error) {
	if id == "" {
		id = s.newID()
	}
	sentences := s.segmenter.Segment(text)
	sentEmbs, err := s.embedder.EmbedMany(sentences)
	if err != nil {
		return "", fmt.Errorf("embed sentences: %w", err)
	}
	docEmb, err := s.embedder.EmbedOne(text)
	if err != nil {
		return "", fmt.Errorf("embed document: %w", err)
	}
	if err := s.vectors.Save(id, sentEmbs, docEmb); err != nil {
		return "", fmt.Errorf("save vectors for %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.docs[id]
	s.put(&domain.Document{
		ID:                 id,
		Filename:           filename,
		Text:               text,
		Sentences:          sentences,
		SentenceEmbeddings: sentEmbs,
		DocEmbedding:       docEmb,
	})
	if err := s.persistLocked(); err != nil {
		if existed {
			s.docs[id] = prev
		} else {
			s.removeLocked(id)
			if derr := s.vectors.Delete(id); derr != nil {
				s.log.Warn("vector files not removed", zap.String("id", id), zap.Error(derr))
			}
		}
		return "", fmt.Errorf("write index: %w", err)
	}
	s.log.Debug("document added", zap.String("id", id), zap.String("filename", filename), zap.Int("sentences", len(sentences)))
	return id, nil
}

// Delete removes id from memory, disk and the index. It reports false for
// unknown ids. Vector file removal is best-effort and never blocks the
// logical deletion.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return false, nil
	}
	if err := s.vectors.Delete(id); err != nil {
		s.log.Warn("vector files not removed", zap.String("id", id), zap.Error(&SkipError{Op: "delete vectors", ID: id, Err: err}))
	}
	s.removeLocked(id)
	if err := s.persistLocked(); err != nil {
		return true, fmt.Errorf("write index: %w", err)
	}
	s.log.Debug("document deleted", zap.String("id", id))
	return true, nil
}

// Rebuild adds every supported file in folder that is not indexed yet,
// identified by a hash of its bytes. Unreadable or unextractable files are
// skipped. A missing folder adds nothing.
func (s *Store) Rebuild(folder string) (RebuildReport, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RebuildReport{}, nil
		}
		return RebuildReport{}, err
	}
	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		if s.extractor.Supports(path) {
			paths = append(paths, path)
		}
	}
	report := s.AddFiles(paths)
	s.log.Info("rebuild finished", zap.String("folder", folder), zap.Int("added", report.Added), zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

// AddFiles indexes each file under its content-hash id, skipping files that
// are already stored. A file that cannot be read, extracted or added is
// reported in Skipped and the remaining files are still processed.
func (s *Store) AddFiles(paths []string) RebuildReport {
	var report RebuildReport
	for _, path := range paths {
		id, err := FileID(path)
		if err != nil {
			report.Skipped = append(report.Skipped, s.skip("hash", path, "", err))
			continue
		}
		if s.Has(id) {
			continue
		}
		text, err := s.extractor.Extract(path)
		if err != nil {
			report.Skipped = append(report.Skipped, s.skip("extract", path, id, err))
			continue
		}
		if _, err := s.Add(id, filepath.Base(path), text); err != nil {
			report.Skipped = append(report.Skipped, s.skip("add", path, id, err))
			continue
		}
		report.Added++
	}
	return report
}

func (s *Store) skip(op, path, id string, err error) *SkipError {
	e := &SkipError{Op: op, Path: path, ID: id, Err: err}
	s.log.Warn("skipping file", zap.String("op", op), zap.String("path", path), zap.Error(err))
	return e
}

// FileID returns the content-derived id of the file at path.
func FileID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(data)
	return FileIDPrefix + hex.EncodeToString(sum[:]), nil
}

// Has reports whether id is stored.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[id]
	return ok
}

// Get returns the stored document.
func (s *Store) Get(id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, ErrNotFound
	}
	return *doc, nil
}

// List returns id and filename of every document in insertion order.
func (s *Store) List() []domain.DocumentRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DocumentRef, 0, len(s.order))
	for _, id := range s.order {
		d := s.docs[id]
		out = append(out, domain.DocumentRef{ID: d.ID, Filename: d.Filename})
	}
	return out
}

// Documents returns the stored documents in insertion order. Documents are
// never mutated after insertion, so the pointers are safe to read.
func (s *Store) Documents() []*domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id])
	}
	return out
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) put(doc *domain.Document) {
	if _, ok := s.docs[doc.ID]; !ok {
		s.order = append(s.order, doc.ID)
	}
	s.docs[doc.ID] = doc
}

func (s *Store) removeLocked(id string) {
	delete(s.docs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Store) persistLocked() error {
	idx := make(orderedIndex, 0, len(s.order))
	for _, id := range s.order {
		d := s.docs[id]
		idx = append(idx, indexEntry{ID: id, Record: indexRecord{Filename: d.Filename, Text: d.Text, Sentences: d.Sentences}})
	}
	return writeIndex(s.indexPath, idx)
}
