package npy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumatch/internal/vectorstore"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)

	sents := [][]float64{{0.1, 0.2, 0.3}, {-1, 0, 1}}
	doc := []float64{0.5, 0.5, 0.5}
	require.NoError(t, s.Save("file-abc", sents, doc))

	sentPath, docPath := s.Paths("file-abc")
	assert.FileExists(t, sentPath)
	assert.FileExists(t, docPath)

	gotSents, gotDoc, err := s.Load("file-abc")
	require.NoError(t, err)
	assert.Equal(t, sents, gotSents)
	assert.Equal(t, doc, gotDoc)
}

func TestLoadMissing(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	_, _, err = s.Load("nope")
	assert.ErrorIs(t, err, vectorstore.ErrNotFound)
}

func TestLoadCorrupted(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Save("id1", [][]float64{{1, 2}}, []float64{1, 2}))
	_, docPath := s.Paths("id1")
	require.NoError(t, os.WriteFile(docPath, []byte("not numpy"), 0o644))

	_, _, err = s.Load("id1")
	assert.Error(t, err)
}

func TestSaveRejectsRaggedRows(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, s.Save("id1", [][]float64{{1, 2}, {1}}, []float64{1, 2}))
	assert.Error(t, s.Save("id1", nil, []float64{1, 2}))
}

func TestDeleteBestEffort(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Save("id1", [][]float64{{1}}, []float64{1}))
	sentPath, docPath := s.Paths("id1")
	require.NoError(t, os.Remove(docPath))

	assert.NoError(t, s.Delete("id1"))
	assert.NoFileExists(t, sentPath)
	assert.NoError(t, s.Delete("never-existed"))
}

// writeRawNPY writes a version 1.0 .npy file the way NumPy does, for dtypes
// this package never writes itself.
func writeRawNPY(t *testing.T, path, descr string, fortran bool, shape string, payload any) {
	t.Helper()
	order := "False"
	if fortran {
		order = "True"
	}
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': %s, 'shape': %s, }", descr, order, shape)
	for (10+len(header)+1)%64 != 0 {
		header += " "
	}
	header += "\n"
	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY\x01\x00")
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint16(len(header))))
	buf.WriteString(header)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, payload))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestLoadFloat32Files(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	sentPath, docPath := s.Paths("file-legacy")
	writeRawNPY(t, sentPath, "<f4", false, "(2, 3)", []float32{0.5, 0, -1, 1, 2, 0.25})
	writeRawNPY(t, docPath, "<f4", false, "(3,)", []float32{0.5, 0.5, 0})

	sents, doc, err := s.Load("file-legacy")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, 0, -1}, {1, 2, 0.25}}, sents)
	assert.Equal(t, []float64{0.5, 0.5, 0}, doc)
}

func TestLoadFortranOrder(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	sentPath, docPath := s.Paths("f")
	writeRawNPY(t, sentPath, "<f8", true, "(2, 3)", []float64{1, 4, 2, 5, 3, 6})
	writeRawNPY(t, docPath, "<f8", false, "(3,)", []float64{1, 2, 3})

	sents, _, err := s.Load("f")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}}, sents)
}

func TestLoadRejectsIntegerArrays(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	sentPath, docPath := s.Paths("i")
	writeRawNPY(t, sentPath, "<i8", false, "(1, 2)", []int64{1, 2})
	writeRawNPY(t, docPath, "<f8", false, "(2,)", []float64{1, 2})

	_, _, err = s.Load("i")
	assert.ErrorContains(t, err, "unsupported dtype")
}
