package tree

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/pkg/errors"
)

// Dataset は学習データを列指向で保持する。
// フォレストは1つのDatasetを全ての木で共有する。
type Dataset struct {
	cols      [][]float64
	y         []float64
	nSamples  int
	nFeatures int
}

// NewDataset はX（n_samples × n_features）とy（n_samples × 1）を検証して列指向に変換する。
// NaNやInfを含む入力はNumericalInstabilityErrorになる。
func NewDataset(X, y mat.Matrix) (*Dataset, error) {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewModelError("Dataset", "empty data", errors.ErrEmptyData)
	}
	yr, yc := y.Dims()
	if yr != r {
		return nil, errors.NewDimensionError("Dataset", r, yr, 0)
	}
	if yc != 1 {
		return nil, errors.NewDimensionError("Dataset", 1, yc, 1)
	}
	if err := errors.CheckMatrix("fit_input", X, r, c); err != nil {
		return nil, err
	}
	if err := errors.CheckMatrix("fit_target", y, r, 1); err != nil {
		return nil, err
	}

	ds := &Dataset{
		cols:      make([][]float64, c),
		y:         make([]float64, r),
		nSamples:  r,
		nFeatures: c,
	}
	for j := 0; j < c; j++ {
		ds.cols[j] = mat.Col(nil, j, X)
	}
	for i := 0; i < r; i++ {
		ds.y[i] = y.At(i, 0)
	}
	return ds, nil
}

// NSamples はサンプル数を返す
func (d *Dataset) NSamples() int { return d.nSamples }

// NFeatures は特徴量数を返す
func (d *Dataset) NFeatures() int { return d.nFeatures }

// Target は目的変数のコピーを返す
func (d *Dataset) Target() []float64 {
	out := make([]float64, len(d.y))
	copy(out, d.y)
	return out
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
