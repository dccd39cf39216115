package ensemble

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/core/model"
	"github.com/YuminosukeSato/popforest/metrics"
	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/sklearn/tree"
)

// RandomForestRegressor は回帰木の平均で予測するランダムフォレスト
type RandomForestRegressor struct {
	model.BaseEstimator
	forestParams

	trees       []*tree.DecisionTreeRegressor
	importances []float64
	nFeatures   int
}

// NewRandomForestRegressor は回帰フォレストを作成する。
// デフォルトは100本、基準 "squared_error"、max_features は全特徴量。
//
// 使用例:
//
//	rf := ensemble.NewRandomForestRegressor(
//	    ensemble.WithNEstimators(100),
//	    ensemble.WithMaxDepth(15),
//	    ensemble.WithRandomState(42),
//	    ensemble.WithNJobs(-1),
//	)
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	rf := &RandomForestRegressor{forestParams: defaultForestParams("squared_error", "all")}
	for _, opt := range opts {
		opt(&rf.forestParams)
	}
	return rf
}

// Fit は X（n_samples × n_features）と y（n_samples × 1）で学習する
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	return rf.FitContext(context.Background(), X, y)
}

// FitContext は ctx がキャンセルされると未着手の木の学習を中止する
func (rf *RandomForestRegressor) FitContext(ctx context.Context, X, y mat.Matrix) error {
	started := time.Now()
	if err := rf.validate(); err != nil {
		return err
	}
	ds, err := tree.NewDataset(X, y)
	if err != nil {
		return errors.Wrap(err, "RandomForestRegressor.Fit")
	}

	trees := make([]*tree.DecisionTreeRegressor, rf.NEstimators)
	err = fitTrees(ctx, &rf.forestParams, ds.NSamples(), func(i int, seed int64, indices []int) error {
		t := tree.NewDecisionTreeRegressor(rf.treeOptions(seed)...)
		if err := t.FitDataset(ds, indices); err != nil {
			return err
		}
		trees[i] = t
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "RandomForestRegressor.Fit")
	}

	per := make([][]float64, len(trees))
	for i, t := range trees {
		per[i] = t.GetFeatureImportances()
	}

	rf.trees = trees
	rf.importances = meanImportances(per, ds.NFeatures())
	rf.nFeatures = ds.NFeatures()
	rf.SetFitted()
	logFitted("RandomForestRegressor", &rf.forestParams, ds, started)
	return nil
}

// Predict は全ての木の予測の平均（n_samples × 1）を返す
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.RequireFitted("RandomForestRegressor", "Predict"); err != nil {
		return nil, err
	}
	if _, c := X.Dims(); c != rf.nFeatures {
		return nil, errors.NewDimensionError("RandomForestRegressor.Predict", rf.nFeatures, c, 1)
	}

	leaves := make([]leafModel, len(rf.trees))
	for i, t := range rf.trees {
		leaves[i] = t
	}
	return averageLeaves(X, leaves, 1, rf.NJobs), nil
}

// Score は決定係数R²を返す。計算できない場合はNaN。
func (rf *RandomForestRegressor) Score(X, y mat.Matrix) float64 {
	pred, err := rf.Predict(X)
	if err != nil {
		return math.NaN()
	}
	yTrue, err := metrics.ColumnVector("Score", y)
	if err != nil {
		return math.NaN()
	}
	yPred, _ := metrics.ColumnVector("Score", pred)
	s, err := metrics.R2Score(yTrue, yPred)
	if err != nil {
		return math.NaN()
	}
	return s
}

// FeatureImportances は木ごとの重要度の平均（和は1）を返す
func (rf *RandomForestRegressor) FeatureImportances() []float64 {
	return append([]float64(nil), rf.importances...)
}

// Estimators は学習済みの木を返す
func (rf *RandomForestRegressor) Estimators() []*tree.DecisionTreeRegressor {
	return rf.trees
}

// NFeatures は学習時の特徴量数を返す
func (rf *RandomForestRegressor) NFeatures() int { return rf.nFeatures }
