package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"resumatch/internal/domain"
	"resumatch/internal/matcher"
	"resumatch/internal/query"
	"resumatch/internal/store"
	"resumatch/internal/tokenize"
)

const (
	previewChars        = 300
	summaryMaxSentences = 3
)

// UploadResult describes a stored upload.
type UploadResult struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	TextSnippet string `json:"text_snippet"`
}

// JobReceipt acknowledges a new job description.
type JobReceipt struct {
	Snippet string `json:"snippet"`
	Summary string `json:"summary"`
}

// MatchService is the application core used by the HTTP API, the CLI and the TUI.
type MatchService struct {
	store       *store.Store
	queries     *query.Holder
	engine      *matcher.Engine
	extractor   domain.Extractor
	summarizer  domain.Summarizer
	resumesDir  string
	defaultTopK int
	log         *zap.Logger
}

func NewMatchService(st *store.Store, queries *query.Holder, engine *matcher.Engine, extractor domain.Extractor, summarizer domain.Summarizer, resumesDir string, defaultTopK int, log *zap.Logger) *MatchService {
	if log == nil {
		log = zap.NewNop()
	}
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &MatchService{
		store:       st,
		queries:     queries,
		engine:      engine,
		extractor:   extractor,
		summarizer:  summarizer,
		resumesDir:  resumesDir,
		defaultTopK: defaultTopK,
		log:         log.Named("service"),
	}
}

// DefaultTopK is the number of matches returned when the caller does not ask for one.
func (s *MatchService) DefaultTopK() int { return s.defaultTopK }

// UploadResume saves the upload under the resumes folder as <uuid>_<name>,
// extracts its text and indexes it under the uuid.
func (s *MatchService) UploadResume(filename string, r io.Reader) (UploadResult, error) {
	name := filepath.Base(filepath.Clean("/" + filename))
	uid := uuid.NewString()
	if err := os.MkdirAll(s.resumesDir, 0o755); err != nil {
		return UploadResult{}, err
	}
	path := filepath.Join(s.resumesDir, uid+"_"+name)
	f, err := os.Create(path)
	if err != nil {
		return UploadResult{}, err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return UploadResult{}, fmt.Errorf("save upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return UploadResult{}, err
	}
	text, err := s.extractor.Extract(path)
	if err != nil {
		return UploadResult{}, fmt.Errorf("extract %s: %w", name, err)
	}
	id, err := s.store.Add(uid, name, text)
	if err != nil {
		return UploadResult{}, err
	}
	s.log.Info("resume uploaded", zap.String("id", id), zap.String("filename", name))
	return UploadResult{ID: id, Filename: name, TextSnippet: tokenize.Prefix(text, previewChars)}, nil
}

// IngestFiles indexes local files (glob patterns allowed) under content-hash
// ids, like a rebuild limited to the given paths.
func (s *MatchService) IngestFiles(patterns []string) store.RebuildReport {
	var paths []string
	for _, p := range patterns {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		paths = append(paths, matches...)
	}
	report := s.store.AddFiles(paths)
	s.log.Info("files ingested", zap.Int("added", report.Added), zap.Int("skipped", len(report.Skipped)))
	return report
}

// ListResumes returns every indexed resume.
func (s *MatchService) ListResumes() []domain.DocumentRef { return s.store.List() }

// DeleteResume removes a resume; store.ErrNotFound for unknown ids.
func (s *MatchService) DeleteResume(id string) error {
	ok, err := s.store.Delete(id)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	s.log.Info("resume deleted", zap.String("id", id))
	return nil
}

// Rebuild indexes files in the resumes folder that are not indexed yet.
func (s *MatchService) Rebuild() (store.RebuildReport, error) {
	return s.store.Rebuild(s.resumesDir)
}

// IndexPath is the JSON index file.
func (s *MatchService) IndexPath() string { return s.store.IndexPath() }

// SetJob makes title and description the current job description.
func (s *MatchService) SetJob(title, description string) (JobReceipt, error) {
	text := title + "\n" + description
	if _, err := s.queries.Set(text); err != nil {
		return JobReceipt{}, err
	}
	summary, err := s.summarizer.Summarize(description, summaryMaxSentences)
	if err != nil {
		return JobReceipt{}, err
	}
	s.log.Info("job description set", zap.Int("chars", len(text)))
	return JobReceipt{Snippet: tokenize.Prefix(text, previewChars), Summary: summary}, nil
}

// TopMatches ranks resumes against the current job description.
func (s *MatchService) TopMatches(n int) []domain.Match {
	return s.engine.Rank(n)
}

// Query sets the job description and ranks against it in one step.
func (s *MatchService) Query(description string, topK int) ([]domain.Match, error) {
	if _, err := s.SetJob("", strings.TrimSpace(description)); err != nil {
		return nil, err
	}
	return s.TopMatches(topK), nil
}

// Resume returns a stored resume with its full text.
func (s *MatchService) Resume(id string) (domain.Document, error) {
	return s.store.Get(id)
}

// RebuildFolder is Rebuild over an arbitrary folder.
func (s *MatchService) RebuildFolder(folder string) (store.RebuildReport, error) {
	return s.store.Rebuild(folder)
}
