package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"resumatch/internal/chunker"
	"resumatch/internal/domain"
	"resumatch/internal/embedding"
	"resumatch/internal/embedding/hashing"
	"resumatch/internal/extract"
	"resumatch/internal/vectorstore"
	"resumatch/internal/vectorstore/npy"
)

type fixture struct {
	dir     string
	vecDir  string
	index   string
	vectors *npy.Storage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	vecDir := filepath.Join(dir, "embeddings")
	vs, err := npy.NewStorage(vecDir)
	require.NoError(t, err)
	return &fixture{dir: dir, vecDir: vecDir, index: filepath.Join(vecDir, "index.json"), vectors: vs}
}

func (f *fixture) open(t *testing.T, log *zap.Logger) (*Store, LoadReport) {
	t.Helper()
	return f.openWith(t, log, f.index, hashing.NewEmbedder(256))
}

func (f *fixture) openWith(t *testing.T, log *zap.Logger, indexPath string, emb domain.Embedder) (*Store, LoadReport) {
	t.Helper()
	s := New(Config{
		IndexPath: indexPath,
		Vectors:   f.vectors,
		Embedder:  embedding.NewProvider(func() (domain.Embedder, error) { return emb, nil }, nil),
		Segmenter: chunker.NewSentenceSplitter(0, 0),
		Extractor: extract.New(),
		Logger:    log,
	})
	return s, s.Load()
}

// failingEmbedder refuses any text containing marker.
type failingEmbedder struct {
	domain.Embedder
	marker string
}

func (e failingEmbedder) Embed(text string) ([]float64, error) {
	if strings.Contains(text, e.marker) {
		return nil, errors.New("embedding backend unavailable")
	}
	return e.Embedder.Embed(text)
}

func (e failingEmbedder) EmbedBatch(texts []string) ([][]float64, error) {
	for _, text := range texts {
		if strings.Contains(text, e.marker) {
			return nil, errors.New("embedding backend unavailable")
		}
	}
	return e.Embedder.EmbedBatch(texts)
}

func TestAddAndList(t *testing.T) {
	f := newFixture(t)
	s, report := f.open(t, nil)
	assert.Equal(t, 0, report.Loaded)
	assert.Empty(t, report.Dropped)

	id, err := s.Add("", "jane.txt", "Go engineer. Loves Kafka.")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	id2, err := s.Add("fixed-id", "john.txt", "Designer.")
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id2)

	assert.Equal(t, []domain.DocumentRef{
		{ID: id, Filename: "jane.txt"},
		{ID: "fixed-id", Filename: "john.txt"},
	}, s.List())

	doc, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go engineer.", "Loves Kafka."}, doc.Sentences)
	assert.Len(t, doc.SentenceEmbeddings, 2)
	assert.Len(t, doc.DocEmbedding, 256)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddEmptyTextKeepsOneSentence(t *testing.T) {
	f := newFixture(t)
	s, _ := f.open(t, nil)

	id, err := s.Add("", "blank.txt", "   ")
	require.NoError(t, err)
	doc, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"   "}, doc.Sentences)
	assert.Len(t, doc.SentenceEmbeddings, 1)
}

func TestIndexFileFormat(t *testing.T) {
	f := newFixture(t)
	s, _ := f.open(t, nil)
	_, err := s.Add("b-id", "b.txt", "Second <resume>.\nWith lines")
	require.NoError(t, err)
	_, err = s.Add("a-id", "a.txt", "First")
	require.NoError(t, err)

	data, err := os.ReadFile(f.index)
	require.NoError(t, err)
	var parsed map[string]indexRecord
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, indexRecord{Filename: "b.txt", Text: "Second <resume>.\nWith lines", Sentences: []string{"Second <resume>.", "With lines"}}, parsed["b-id"])
	assert.Contains(t, string(data), "<resume>")

	// insertion order survives in the file
	assert.Less(t, indexOf(string(data), `"b-id"`), indexOf(string(data), `"a-id"`))

	sentPath, docPath := f.vectors.Paths("a-id")
	assert.FileExists(t, sentPath)
	assert.FileExists(t, docPath)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	s, _ := f.open(t, nil)
	id, err := s.Add("", "jane.txt", "Go engineer.")
	require.NoError(t, err)
	keep, err := s.Add("", "john.txt", "Rust engineer.")
	require.NoError(t, err)

	ok, err := s.Delete(id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(id)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []domain.DocumentRef{{ID: keep, Filename: "john.txt"}}, s.List())
	sentPath, docPath := f.vectors.Paths(id)
	assert.NoFileExists(t, sentPath)
	assert.NoFileExists(t, docPath)

	reloaded, report := f.open(t, nil)
	assert.Equal(t, 1, report.Loaded)
	assert.False(t, reloaded.Has(id))
	assert.True(t, reloaded.Has(keep))
}

type brokenDelete struct{ vectorstore.Storage }

func (brokenDelete) Delete(string) error { return errors.New("permission denied") }

func TestDeleteSurvivesVectorRemovalFailure(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zapcore.WarnLevel)
	s, _ := f.open(t, zap.New(core))
	id, err := s.Add("", "jane.txt", "Go engineer.")
	require.NoError(t, err)

	s.vectors = brokenDelete{f.vectors}
	ok, err := s.Delete(id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, s.Has(id))
	assert.Equal(t, 1, logs.FilterMessage("vector files not removed").Len())
}

func TestLoadDropsRecordsWithoutVectors(t *testing.T) {
	f := newFixture(t)
	s, _ := f.open(t, nil)
	good, err := s.Add("", "good.txt", "Go engineer.")
	require.NoError(t, err)
	bad, err := s.Add("", "bad.txt", "Java engineer.")
	require.NoError(t, err)
	corrupt, err := s.Add("", "corrupt.txt", "Python engineer.")
	require.NoError(t, err)

	_, docPath := f.vectors.Paths(bad)
	require.NoError(t, os.Remove(docPath))
	sentPath, _ := f.vectors.Paths(corrupt)
	require.NoError(t, os.WriteFile(sentPath, []byte("garbage"), 0o644))

	core, logs := observer.New(zapcore.WarnLevel)
	reloaded, report := f.open(t, zap.New(core))
	assert.Equal(t, 1, report.Loaded)
	require.Len(t, report.Dropped, 2)
	assert.ErrorIs(t, report.Dropped[0], vectorstore.ErrNotFound)
	assert.Equal(t, bad, report.Dropped[0].ID)
	assert.Equal(t, []domain.DocumentRef{{ID: good, Filename: "good.txt"}}, reloaded.List())
	assert.Equal(t, 2, logs.FilterMessage("dropping index record").Len())
}

func TestLoadCorruptIndexStartsEmpty(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.index, []byte("{not json"), 0o644))
	s, report := f.open(t, nil)
	assert.Equal(t, 0, s.Len())
	assert.Len(t, report.Dropped, 1)
}

func TestPersistenceRoundTrip(t *testing.T) {
	f := newFixture(t)
	s, _ := f.open(t, nil)
	_, err := s.Add("", "one.txt", "Backend engineer. Go and Kafka.")
	require.NoError(t, err)
	_, err = s.Add("", "two.txt", "Graphic designer with expertise in branding.")
	require.NoError(t, err)

	reloaded, report := f.open(t, nil)
	assert.Equal(t, 2, report.Loaded)
	assert.Equal(t, s.List(), reloaded.List())
	before, after := s.Documents(), reloaded.Documents()
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].Sentences, after[i].Sentences)
		assert.InDeltaSlice(t, before[i].DocEmbedding, after[i].DocEmbedding, 1e-12)
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	f := newFixture(t)
	folder := filepath.Join(f.dir, "resumes")
	require.NoError(t, os.MkdirAll(filepath.Join(folder, "nested"), 0o755))
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(folder, name), []byte(body), 0o644))
	}
	write("a.txt", "Go engineer.")
	write("a-copy.txt", "Go engineer.")
	write("b.txt", "Designer.")
	write("notes.md", "ignored")
	write("broken.docx", "not a zip")

	core, logs := observer.New(zapcore.WarnLevel)
	s, _ := f.open(t, zap.New(core))

	report, err := s.Rebuild(folder)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Added)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "extract", report.Skipped[0].Op)
	assert.Equal(t, 1, logs.FilterMessage("skipping file").Len())

	id, err := FileID(filepath.Join(folder, "a.txt"))
	require.NoError(t, err)
	assert.Regexp(t, `^file-[0-9a-f]{40}$`, id)
	assert.True(t, s.Has(id))
	assert.Equal(t, 2, s.Len())

	report, err = s.Rebuild(folder)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Added)
	assert.Equal(t, 2, s.Len())
}

func TestRebuildMissingFolder(t *testing.T) {
	f := newFixture(t)
	s, _ := f.open(t, nil)
	report, err := s.Rebuild(filepath.Join(f.dir, "nope"))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Added)
}

func TestAddFilesContinuesPastFailedAdd(t *testing.T) {
	f := newFixture(t)
	folder := filepath.Join(f.dir, "resumes")
	require.NoError(t, os.MkdirAll(folder, 0o755))
	var paths []string
	for name, body := range map[string]string{
		"a.txt": "Go engineer. BOOM.",
		"b.txt": "Java engineer.",
		"c.txt": "Rust engineer.",
	} {
		path := filepath.Join(folder, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		paths = append(paths, path)
	}

	tests := []struct {
		name string
		run  func(t *testing.T, s *Store) RebuildReport
	}{
		{"files", func(_ *testing.T, s *Store) RebuildReport { return s.AddFiles(paths) }},
		{"folder", func(t *testing.T, s *Store) RebuildReport {
			report, err := s.Rebuild(folder)
			require.NoError(t, err)
			return report
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := filepath.Join(t.TempDir(), "index.json")
			core, logs := observer.New(zapcore.WarnLevel)
			s, _ := f.openWith(t, zap.New(core), index, failingEmbedder{hashing.NewEmbedder(64), "BOOM"})

			report := tt.run(t, s)
			assert.Equal(t, 2, report.Added)
			require.Len(t, report.Skipped, 1)
			assert.Equal(t, "add", report.Skipped[0].Op)
			assert.Equal(t, filepath.Join(folder, "a.txt"), report.Skipped[0].Path)
			assert.Equal(t, 2, s.Len())
			assert.Equal(t, 1, logs.FilterMessage("skipping file").Len())
		})
	}
}

func TestAddRollsBackWhenIndexCannotBeWritten(t *testing.T) {
	f := newFixture(t)
	blocker := filepath.Join(f.dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	s, _ := f.openWith(t, nil, filepath.Join(blocker, "index.json"), hashing.NewEmbedder(64))

	id, err := s.Add("doc-1", "jane.txt", "Go engineer.")
	require.Error(t, err)
	assert.Empty(t, id)
	assert.False(t, s.Has("doc-1"))
	assert.Equal(t, 0, s.Len())
	sentPath, docPath := f.vectors.Paths("doc-1")
	assert.NoFileExists(t, sentPath)
	assert.NoFileExists(t, docPath)

	folder := filepath.Join(f.dir, "resumes")
	require.NoError(t, os.MkdirAll(folder, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "a.txt"), []byte("Designer."), 0o644))
	report, err := s.Rebuild(folder)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Added)
	assert.Len(t, report.Skipped, 1)
	assert.Empty(t, s.List())
}
