// Package model_selection はデータ分割ユーティリティを提供します。
package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/pkg/errors"
)

// Split は TrainTestSplit の結果
type Split struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.Dense

	// TrainIndices / TestIndices は元データでの行番号
	TrainIndices []int
	TestIndices  []int
}

// TrainTestSplit は行をシャッフルして学習用とテスト用に分ける。
//
// テスト件数は ceil(testSize * n)、学習件数は残り全て。同じ randomState なら
// 同じ分割になる。
//
// 使用例:
//
//	split, err := model_selection.TrainTestSplit(X, y, 0.2, 42)
//	if err != nil {
//	    return err
//	}
//	err = rf.Fit(split.XTrain, split.YTrain)
func TrainTestSplit(X, y mat.Matrix, testSize float64, randomState int64) (*Split, error) {
	n, c := X.Dims()
	yr, yc := y.Dims()
	if yr != n {
		return nil, errors.NewDimensionError("TrainTestSplit", n, yr, 0)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}

	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest
	if nTest < 1 || nTrain < 1 {
		return nil, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("with n_samples=%d and test_size=%v the resulting train or test set would be empty", n, testSize))
	}

	seed := uint64(randomState)
	r := rand.New(rand.NewPCG(seed, seed))
	perm := r.Perm(n)

	s := &Split{
		TestIndices:  perm[:nTest],
		TrainIndices: perm[nTest:],
	}
	s.XTest, s.YTest = takeRows(X, y, s.TestIndices, c, yc)
	s.XTrain, s.YTrain = takeRows(X, y, s.TrainIndices, c, yc)
	return s, nil
}

func takeRows(X, y mat.Matrix, rows []int, c, yc int) (*mat.Dense, *mat.Dense) {
	xs := mat.NewDense(len(rows), c, nil)
	ys := mat.NewDense(len(rows), yc, nil)
	for i, src := range rows {
		for j := 0; j < c; j++ {
			xs.Set(i, j, X.At(src, j))
		}
		for j := 0; j < yc; j++ {
			ys.Set(i, j, y.At(src, j))
		}
	}
	return xs, ys
}
