package cancer

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/sklearn/ensemble"
)

// sampleRows は mean_radius が 15 を超えると悪性(0)になる合成データ
func sampleRows(n, nFeatures int) [][]float64 {
	rng := rand.New(rand.NewPCG(3, 3))
	rows := make([][]float64, n)
	for i := range rows {
		row := make([]float64, nFeatures+1)
		row[0] = 8 + rng.Float64()*17
		for j := 1; j < nFeatures; j++ {
			row[j] = rng.Float64()
		}
		if row[0] <= 15 {
			row[nFeatures] = 1
		}
		rows[i] = row
	}
	return rows
}

func formatRow(row []float64) string {
	cells := make([]string, len(row))
	for i, v := range row {
		cells[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(cells, ",")
}

func writeSklearnCSV(t *testing.T, path string, n int) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "%d,30,malignant,benign\n", n)
	for _, row := range sampleRows(n, 30) {
		b.WriteString(formatRow(row))
		b.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func TestLoadDataSklearnLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "breast_cancer.csv")
	writeSklearnCSV(t, path, 40)

	ds, err := LoadData(path)
	require.NoError(t, err)

	r, c := ds.X.Dims()
	assert.Equal(t, 40, r)
	assert.Equal(t, NFeatures, c)

	rows := sampleRows(40, 30)
	assert.Equal(t, rows[5][0], ds.X.At(5, 0))
	assert.Equal(t, rows[5][9], ds.X.At(5, 9))
	assert.Equal(t, rows[5][30], ds.Y.At(5, 0))
}

func TestLoadDataTargetColumn(t *testing.T) {
	header := append([]string{"target"}, FeatureNames...)
	header = append(header, "worst_radius")
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteByte('\n')
	for _, row := range sampleRows(12, 11) {
		// target を先頭に移す
		moved := append([]float64{row[11]}, row[:11]...)
		b.WriteString(formatRow(moved))
		b.WriteByte('\n')
	}
	path := filepath.Join(t.TempDir(), "cancer.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	ds, err := LoadData(path)
	require.NoError(t, err)

	_, c := ds.X.Dims()
	assert.Equal(t, NFeatures, c)
	rows := sampleRows(12, 11)
	assert.Equal(t, rows[0][0], ds.X.At(0, 0))
	assert.Equal(t, rows[0][11], ds.Y.At(0, 0))
}

func TestLoadDataErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadData(filepath.Join(dir, "absent.csv"))
	var fe *errors.FileNotFoundError
	assert.True(t, errors.As(err, &fe))

	few := filepath.Join(dir, "few.csv")
	require.NoError(t, os.WriteFile(few, []byte("2,5,a,b\n1,2,3,4,5,0\n1,2,3,4,5,1\n"), 0o644))
	_, err = LoadData(few)
	var de *errors.DimensionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 1, de.Axis)

	count := filepath.Join(dir, "count.csv")
	writeSklearnCSV(t, count, 5)
	raw, err := os.ReadFile(count)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(count, []byte(strings.Replace(string(raw), "5,30", "6,30", 1)), 0o644))
	_, err = LoadData(count)
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 0, de.Axis)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = LoadData(empty)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestSplitData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "breast_cancer.csv")
	writeSklearnCSV(t, path, 50)
	ds, err := LoadData(path)
	require.NoError(t, err)

	split, err := SplitData(ds)
	require.NoError(t, err)
	assert.Len(t, split.TestIndices, 15)
	assert.Len(t, split.TrainIndices, 35)

	again, err := SplitData(ds)
	require.NoError(t, err)
	assert.Equal(t, split.TestIndices, again.TestIndices)
}

func TestFitModel(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "breast_cancer.csv")
	writeSklearnCSV(t, data, 120)
	ds, err := LoadData(data)
	require.NoError(t, err)
	split, err := SplitData(ds)
	require.NoError(t, err)

	modelPath := filepath.Join(dir, "model", "breast_cancer_model.gob")
	res, err := FitModel(context.Background(), split, modelPath, ensemble.WithNEstimators(15))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Accuracy, 0.8)
	assert.LessOrEqual(t, res.Accuracy, 1.0)

	loaded, err := LoadModel(modelPath)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, loaded.Classes())

	X := mat.NewDense(2, NFeatures, []float64{
		24, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5,
		9, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5,
	})
	want, err := res.Model.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, mat.Col(nil, 0, want), mat.Col(nil, 0, got))
	assert.Equal(t, "Malignant", Label(got.At(0, 0)))
	assert.Equal(t, "Benign", Label(got.At(1, 0)))
}

func TestLoadModelErrors(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "absent.gob"))
	var fe *errors.FileNotFoundError
	assert.True(t, errors.As(err, &fe))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Malignant", Label(0))
	assert.Equal(t, "Benign", Label(1))
}
