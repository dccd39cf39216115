package model

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/YuminosukeSato/popforest/pkg/errors"
)

type stubModel struct {
	BaseEstimator
	Weights []float64
	Name    string
}

func TestSaveLoadModel(t *testing.T) {
	m := &stubModel{Weights: []float64{1.5, -2}, Name: "stub"}
	m.SetFitted()

	path := filepath.Join(t.TempDir(), "nested", "dir", "model.gob")
	require.NoError(t, SaveModel(m, path))

	var loaded stubModel
	require.NoError(t, LoadModel(&loaded, path))

	assert.True(t, loaded.IsFitted(), "fitted state must survive gob")
	assert.Equal(t, m.Weights, loaded.Weights)
	assert.Equal(t, "stub", loaded.Name)
}

func TestLoadModelMissingFile(t *testing.T) {
	var loaded stubModel
	err := LoadModel(&loaded, filepath.Join(t.TempDir(), "absent.gob"))
	require.Error(t, err)

	var fnf *perrors.FileNotFoundError
	assert.True(t, perrors.As(err, &fnf))
}

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SaveModelToWriter(&stubModel{Name: "w"}, &buf))

	var loaded stubModel
	require.NoError(t, LoadModelFromReader(&loaded, &buf))
	assert.Equal(t, "w", loaded.Name)
	assert.False(t, loaded.IsFitted())
}

func TestRequireFitted(t *testing.T) {
	var b BaseEstimator
	err := b.RequireFitted("Stub", "Predict")
	var nf *perrors.NotFittedError
	require.True(t, perrors.As(err, &nf))
	assert.Equal(t, "Predict", nf.Method)

	b.SetFitted()
	assert.NoError(t, b.RequireFitted("Stub", "Predict"))
	b.Reset()
	assert.False(t, b.IsFitted())
}
