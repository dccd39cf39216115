package pipeline

import (
	"context"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/popforest/frame"
	"github.com/YuminosukeSato/popforest/pkg/errors"
)

func featureFrame(t *testing.T, rows ...string) *frame.Frame {
	t.Helper()
	text := "energy,acousticness,valence,danceability,tempo,duration_ms,popularity\n" +
		strings.Join(rows, "\n") + "\n"
	f, err := frame.Read(strings.NewReader(text))
	require.NoError(t, err)
	return f
}

func floats(t *testing.T, f *frame.Frame, name string) []float64 {
	t.Helper()
	v, err := f.Float64s(name)
	require.NoError(t, err)
	return v
}

func TestAddFeatures(t *testing.T) {
	f := featureFrame(t,
		"0.8,0.19,0.5,0.6,100,180000,25",
		"0.4,0.0,1.0,0.5,150,60000,45",
		"0.0,0.99,0.2,0.1,200,90000,90",
	)
	require.NoError(t, AddFeatures(f))

	cols := f.Columns()
	assert.Equal(t, DerivedColumns, cols[len(cols)-5:])

	assert.InDeltaSlice(t, []float64{0.8 / 0.2, 0.4 / 0.01, 0}, floats(t, f, "energy_ratio"), 1e-12)
	assert.InDeltaSlice(t, []float64{0.3, 0.5, 0.02}, floats(t, f, "mood_score"), 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1}, floats(t, f, "tempo_normalized"), 1e-12)
	assert.InDeltaSlice(t, []float64{3, 1, 1.5}, floats(t, f, "duration_min"), 1e-12)

	cat, err := f.Column("popularity_category")
	require.NoError(t, err)
	assert.Equal(t, []string{"Low", "Medium", "High"}, cat)
}

func TestAddFeaturesConstantTempo(t *testing.T) {
	f := featureFrame(t,
		"0.5,0.5,0.5,0.5,120,60000,10",
		"0.5,0.5,0.5,0.5,120,60000,20",
	)
	require.NoError(t, AddFeatures(f))
	assert.Equal(t, []float64{0, 0}, floats(t, f, "tempo_normalized"))
}

func TestAddFeaturesReplacesExisting(t *testing.T) {
	f := featureFrame(t, "0.5,0.5,0.5,0.5,120,60000,10")
	require.NoError(t, f.SetColumn("mood_score", []string{"stale"}))
	before := len(f.Columns())

	require.NoError(t, AddFeatures(f))
	assert.Equal(t, before+4, len(f.Columns()))
	assert.InDeltaSlice(t, []float64{0.25}, floats(t, f, "mood_score"), 1e-12)
}

func TestAddFeaturesMissingColumn(t *testing.T) {
	f, err := frame.Read(strings.NewReader("energy\n0.5\n"))
	require.NoError(t, err)

	var ce *errors.ColumnNotFoundError
	assert.True(t, errors.As(AddFeatures(f), &ce))
}

func TestPopularityCategory(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, ""},
		{0.5, "Low"},
		{30, "Low"},
		{30.5, "Medium"},
		{60, "Medium"},
		{61, "High"},
		{100, "High"},
		{101, ""},
		{-5, ""},
		{math.NaN(), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PopularityCategory(tt.in), "PopularityCategory(%v)", tt.in)
	}
}

func TestEngineerFeatures(t *testing.T) {
	dir := t.TempDir()
	in := dir + "/spotify_cleaned.csv"
	out := dir + "/spotify_featured.csv"
	writeSpotifyCSV(t, in, 20)

	r, stdout, _ := newTestRunner(t)
	rep, err := r.EngineerFeatures(context.Background(), in, out)
	require.NoError(t, err)

	assert.Equal(t, 20, rep.RowsOut)
	assert.Equal(t, rep.ColsIn+5, rep.ColsOut)

	featured, err := frame.ReadCSV(out)
	require.NoError(t, err)
	for _, name := range DerivedColumns {
		assert.True(t, featured.Has(name), name)
	}

	text := stdout.String()
	assert.Contains(t, text, "FEATURE ENGINEERING STAGE - Spotify Dataset")
	assert.Contains(t, text, "Loaded cleaned data: (20, 14)")
	assert.Contains(t, text, "energy_ratio, mood_score, tempo_normalized, duration_min, popularity_category")
	assert.Contains(t, text, "Final shape: (20, 19)")
}

func TestEngineerFeaturesMissingInput(t *testing.T) {
	dir := t.TempDir()
	r, _, _ := newTestRunner(t)
	_, err := r.EngineerFeatures(context.Background(), dir+"/absent.csv", dir+"/out.csv")

	var fe *errors.FileNotFoundError
	require.True(t, errors.As(err, &fe))
	_, statErr := os.Stat(dir + "/out.csv")
	assert.True(t, os.IsNotExist(statErr))
}
