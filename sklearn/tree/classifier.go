package tree

import (
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/core/model"
	"github.com/YuminosukeSato/popforest/metrics"
	"github.com/YuminosukeSato/popforest/pkg/errors"
)

// DecisionTreeClassifier はジニ不純度またはエントロピーを最小化するCART分類木
type DecisionTreeClassifier struct {
	model.BaseEstimator
	params

	tree      fittedTree
	classes   []float64
	nClasses_ int
	nFeatures int
}

// NewDecisionTreeClassifier は分類木を作成する。デフォルト基準は "gini"。
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{params: defaultParams("gini")}
	for _, opt := range opts {
		opt(&dt.params)
	}
	return dt
}

// UniqueClasses は y のラベルを昇順・重複なしで返す
func UniqueClasses(y []float64) []float64 {
	classes := slices.Clone(y)
	sort.Float64s(classes)
	return slices.Compact(classes)
}

// Fit は X と y（クラスラベル, n_samples × 1）で学習する
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	ds, err := NewDataset(X, y)
	if err != nil {
		return errors.Wrap(err, "DecisionTreeClassifier.Fit")
	}
	return dt.FitDataset(ds, nil)
}

// FitDataset は ds のうち indices の行（重複可）で学習する。nil は全行。
// クラス集合は ds 全体から決まるため、ブートストラップで一部のクラスが
// 欠けても確率ベクトルの列は揃う。
func (dt *DecisionTreeClassifier) FitDataset(ds *Dataset, indices []int) error {
	if err := dt.validate("gini", "entropy"); err != nil {
		return err
	}
	if indices == nil {
		indices = allIndices(ds.nSamples)
	}
	if len(indices) == 0 {
		return errors.NewModelError("DecisionTreeClassifier.Fit", "empty data", errors.ErrEmptyData)
	}

	classes := UniqueClasses(ds.y)
	encoded := make([]int, len(ds.y))
	for i, v := range ds.y {
		encoded[i], _ = slices.BinarySearch(classes, v)
	}

	crit := &classImpurity{y: encoded, nClasses: len(classes), entropy: dt.criterion == "entropy"}
	b := newBuilder(ds, crit, dt.params)
	dt.tree = b.build(append([]int(nil), indices...))
	dt.classes = classes
	dt.nClasses_ = len(classes)
	dt.nFeatures = ds.nFeatures
	dt.SetFitted()
	return nil
}

func (dt *DecisionTreeClassifier) checkInput(method string, X mat.Matrix) error {
	if err := dt.RequireFitted("DecisionTreeClassifier", method); err != nil {
		return err
	}
	if _, c := X.Dims(); c != dt.nFeatures {
		return errors.NewDimensionError("DecisionTreeClassifier."+method, dt.nFeatures, c, 1)
	}
	return nil
}

// PredictProba は各クラスの確率（n_samples × n_classes、列はClasses()順）を返す
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkInput("PredictProba", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	out := mat.NewDense(r, dt.nClasses_, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out.SetRow(i, dt.tree.leaf(row))
	}
	return out, nil
}

// Predict は確率最大のクラスラベル（n_samples × 1）を返す
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, _ := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	p := proba.(*mat.Dense)
	for i := 0; i < r; i++ {
		out.Set(i, 0, dt.classes[ArgMax(p.RawRowView(i))])
	}
	return out, nil
}

// ArgMax は最大値の最初のインデックスを返す
func ArgMax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// LeafValue は行 x が到達する葉のクラス確率を返す。学習済みであること。
func (dt *DecisionTreeClassifier) LeafValue(x []float64) []float64 {
	return dt.tree.leaf(x)
}

// Classes は学習時のクラスラベルを昇順で返す
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return slices.Clone(dt.classes)
}

// Score は正解率を返す。計算できない場合はNaN。
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	return scoreWith(dt.Predict, metrics.Accuracy, X, y)
}

// GetFeatureImportances は正規化された不純度減少量を返す
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return slices.Clone(dt.tree.importances)
}

// GetDepth は木の深さ（根のみなら0）を返す
func (dt *DecisionTreeClassifier) GetDepth() int { return dt.tree.depth }

// GetNLeaves は葉の数を返す
func (dt *DecisionTreeClassifier) GetNLeaves() int { return dt.tree.nLeaves }

// GetParams はハイパーパラメータを返す
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} { return dt.toMap() }

// SetParams はハイパーパラメータを更新する
func (dt *DecisionTreeClassifier) SetParams(p map[string]interface{}) error { return dt.set(p) }
