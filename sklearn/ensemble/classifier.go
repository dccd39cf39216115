package ensemble

import (
	"context"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/core/model"
	"github.com/YuminosukeSato/popforest/metrics"
	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/sklearn/tree"
)

// RandomForestClassifier はクラス確率の平均で予測するランダムフォレスト
type RandomForestClassifier struct {
	model.BaseEstimator
	forestParams

	trees       []*tree.DecisionTreeClassifier
	classes     []float64
	importances []float64
	nFeatures   int
}

// NewRandomForestClassifier は分類フォレストを作成する。
// デフォルトは100本、基準 "gini"、max_features は "sqrt"。
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{forestParams: defaultForestParams("gini", "sqrt")}
	for _, opt := range opts {
		opt(&rf.forestParams)
	}
	return rf
}

// Fit は X と y（クラスラベル, n_samples × 1）で学習する
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	return rf.FitContext(context.Background(), X, y)
}

// FitContext は ctx がキャンセルされると未着手の木の学習を中止する
func (rf *RandomForestClassifier) FitContext(ctx context.Context, X, y mat.Matrix) error {
	started := time.Now()
	if err := rf.validate(); err != nil {
		return err
	}
	ds, err := tree.NewDataset(X, y)
	if err != nil {
		return errors.Wrap(err, "RandomForestClassifier.Fit")
	}

	trees := make([]*tree.DecisionTreeClassifier, rf.NEstimators)
	err = fitTrees(ctx, &rf.forestParams, ds.NSamples(), func(i int, seed int64, indices []int) error {
		t := tree.NewDecisionTreeClassifier(rf.treeOptions(seed)...)
		if err := t.FitDataset(ds, indices); err != nil {
			return err
		}
		trees[i] = t
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "RandomForestClassifier.Fit")
	}

	per := make([][]float64, len(trees))
	for i, t := range trees {
		per[i] = t.GetFeatureImportances()
	}

	rf.trees = trees
	rf.classes = tree.UniqueClasses(ds.Target())
	rf.importances = meanImportances(per, ds.NFeatures())
	rf.nFeatures = ds.NFeatures()
	rf.SetFitted()
	logFitted("RandomForestClassifier", &rf.forestParams, ds, started)
	return nil
}

// PredictProba は全ての木のクラス確率の平均（n_samples × n_classes）を返す
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	if _, c := X.Dims(); c != rf.nFeatures {
		return nil, errors.NewDimensionError("RandomForestClassifier.PredictProba", rf.nFeatures, c, 1)
	}

	leaves := make([]leafModel, len(rf.trees))
	for i, t := range rf.trees {
		leaves[i] = t
	}
	return averageLeaves(X, leaves, len(rf.classes), rf.NJobs), nil
}

// Predict は平均確率が最大のクラスラベル（n_samples × 1）を返す
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	p := proba.(*mat.Dense)
	r, _ := p.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, rf.classes[tree.ArgMax(p.RawRowView(i))])
	}
	return out, nil
}

// Score は正解率を返す。計算できない場合はNaN。
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := rf.Predict(X)
	if err != nil {
		return math.NaN()
	}
	yTrue, err := metrics.ColumnVector("Score", y)
	if err != nil {
		return math.NaN()
	}
	yPred, _ := metrics.ColumnVector("Score", pred)
	s, err := metrics.Accuracy(yTrue, yPred)
	if err != nil {
		return math.NaN()
	}
	return s
}

// Classes は学習時のクラスラベルを昇順で返す
func (rf *RandomForestClassifier) Classes() []float64 { return slices.Clone(rf.classes) }

// FeatureImportances は木ごとの重要度の平均（和は1）を返す
func (rf *RandomForestClassifier) FeatureImportances() []float64 {
	return slices.Clone(rf.importances)
}

// Estimators は学習済みの木を返す
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	return rf.trees
}

// NFeatures は学習時の特徴量数を返す
func (rf *RandomForestClassifier) NFeatures() int { return rf.nFeatures }
