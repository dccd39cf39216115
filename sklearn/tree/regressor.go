package tree

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/core/model"
	"github.com/YuminosukeSato/popforest/metrics"
	"github.com/YuminosukeSato/popforest/pkg/errors"
)

// DecisionTreeRegressor は二乗誤差を最小化するCART回帰木
type DecisionTreeRegressor struct {
	model.BaseEstimator
	params

	tree      fittedTree
	nFeatures int
}

// NewDecisionTreeRegressor は回帰木を作成する。基準は "squared_error" のみ。
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	dt := &DecisionTreeRegressor{params: defaultParams("squared_error")}
	for _, opt := range opts {
		opt(&dt.params)
	}
	return dt
}

// Fit は X（n_samples × n_features）と y（n_samples × 1）で学習する
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	ds, err := NewDataset(X, y)
	if err != nil {
		return errors.Wrap(err, "DecisionTreeRegressor.Fit")
	}
	return dt.FitDataset(ds, nil)
}

// FitDataset は ds のうち indices の行（重複可）で学習する。nil は全行。
func (dt *DecisionTreeRegressor) FitDataset(ds *Dataset, indices []int) error {
	if err := dt.validate("squared_error"); err != nil {
		return err
	}
	if indices == nil {
		indices = allIndices(ds.nSamples)
	}
	if len(indices) == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty data", errors.ErrEmptyData)
	}

	b := newBuilder(ds, &squaredError{y: ds.y}, dt.params)
	dt.tree = b.build(append([]int(nil), indices...))
	dt.nFeatures = ds.nFeatures
	dt.SetFitted()
	return nil
}

// Predict は各行の予測値（n_samples × 1）を返す
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if c != dt.nFeatures {
		return nil, errors.NewDimensionError("DecisionTreeRegressor.Predict", dt.nFeatures, c, 1)
	}

	out := mat.NewDense(r, 1, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, dt.tree.leaf(row)[0])
	}
	return out, nil
}

// LeafValue は行 x が到達する葉の値（長さ1）を返す。学習済みであること。
func (dt *DecisionTreeRegressor) LeafValue(x []float64) []float64 {
	return dt.tree.leaf(x)
}

// Score は決定係数R²を返す。計算できない場合はNaN。
func (dt *DecisionTreeRegressor) Score(X, y mat.Matrix) float64 {
	return scoreWith(dt.Predict, metrics.R2Score, X, y)
}

// GetFeatureImportances は正規化された不純度減少量を返す
func (dt *DecisionTreeRegressor) GetFeatureImportances() []float64 {
	return append([]float64(nil), dt.tree.importances...)
}

// GetDepth は木の深さ（根のみなら0）を返す
func (dt *DecisionTreeRegressor) GetDepth() int { return dt.tree.depth }

// GetNLeaves は葉の数を返す
func (dt *DecisionTreeRegressor) GetNLeaves() int { return dt.tree.nLeaves }

// Nodes は学習済みノードを返す
func (dt *DecisionTreeRegressor) Nodes() []Node { return dt.tree.nodes }

// GetParams はハイパーパラメータを返す
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} { return dt.toMap() }

// SetParams はハイパーパラメータを更新する
func (dt *DecisionTreeRegressor) SetParams(p map[string]interface{}) error { return dt.set(p) }

// scoreWith は予測して metric(yTrue, yPred) を返す。失敗時はNaN。
func scoreWith(
	predict func(mat.Matrix) (mat.Matrix, error),
	metric func(yTrue, yPred *mat.VecDense) (float64, error),
	X, y mat.Matrix,
) float64 {
	pred, err := predict(X)
	if err != nil {
		return math.NaN()
	}
	yTrue, err := metrics.ColumnVector("Score", y)
	if err != nil {
		return math.NaN()
	}
	yPred, err := metrics.ColumnVector("Score", pred)
	if err != nil {
		return math.NaN()
	}
	s, err := metric(yTrue, yPred)
	if err != nil {
		return math.NaN()
	}
	return s
}
