package tree

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/core/model"
	"github.com/YuminosukeSato/popforest/pkg/errors"
)

var (
	_ model.Regressor  = (*DecisionTreeRegressor)(nil)
	_ model.Classifier = (*DecisionTreeClassifier)(nil)

	_ model.ParameterGetter = (*DecisionTreeRegressor)(nil)
	_ model.ParameterSetter = (*DecisionTreeClassifier)(nil)
)

func stepData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	y := mat.NewDense(8, 1, []float64{10, 10, 10, 10, 50, 50, 50, 50})
	return X, y
}

func TestDecisionTreeRegressor_StepFunction(t *testing.T) {
	X, y := stepData()

	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.Fit(X, y))

	assert.Equal(t, 1, dt.GetDepth(), "one split separates the two plateaus")
	assert.Equal(t, 2, dt.GetNLeaves())
	assert.InDelta(t, 4.5, dt.Nodes()[0].Threshold, 1e-12)

	pred, err := dt.Predict(mat.NewDense(3, 1, []float64{0, 4.4, 100}))
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 10, 50}, mat.Col(nil, 0, pred))

	assert.Equal(t, 1.0, dt.Score(X, y))
	assert.Equal(t, []float64{1}, dt.GetFeatureImportances())
}

func TestDecisionTreeRegressor_LeafIsMean(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
	y := mat.NewDense(4, 1, []float64{1, 2, 3, 6})

	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.Fit(X, y))

	// 定数特徴量では分割できない
	assert.Equal(t, 1, dt.GetNLeaves())
	assert.Equal(t, []float64{3}, dt.LeafValue([]float64{1}))
	assert.Equal(t, []float64{0}, dt.GetFeatureImportances())
}

func TestDecisionTreeRegressor_MaxDepth(t *testing.T) {
	n := 64
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, math.Sin(float64(i)))
	}

	dt := NewDecisionTreeRegressor(WithMaxDepth(3))
	require.NoError(t, dt.Fit(X, y))
	assert.LessOrEqual(t, dt.GetDepth(), 3)
	assert.LessOrEqual(t, dt.GetNLeaves(), 8)
}

func TestDecisionTreeRegressor_FitDatasetSubset(t *testing.T) {
	X, y := stepData()
	ds, err := NewDataset(X, y)
	require.NoError(t, err)

	// 重複したインデックスはブートストラップ標本を表す
	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.FitDataset(ds, []int{0, 0, 0, 1}))
	assert.Equal(t, 1, dt.GetNLeaves())
	assert.Equal(t, []float64{10}, dt.LeafValue([]float64{8}))
}

func TestDecisionTreeRegressor_MaxFeaturesDeterministic(t *testing.T) {
	n := 40
	X := mat.NewDense(n, 4, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < 4; j++ {
			X.Set(i, j, float64((i*(j+3))%11))
		}
		y.Set(i, 0, float64(i%7))
	}

	fit := func() []float64 {
		dt := NewDecisionTreeRegressor(WithMaxFeatures(2), WithRandomState(7))
		require.NoError(t, dt.Fit(X, y))
		p, err := dt.Predict(X)
		require.NoError(t, err)
		return mat.Col(nil, 0, p)
	}
	assert.Equal(t, fit(), fit())
}

func TestDecisionTreeRegressor_Errors(t *testing.T) {
	dt := NewDecisionTreeRegressor()

	_, err := dt.Predict(mat.NewDense(1, 1, []float64{1}))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	err = dt.Fit(mat.NewDense(2, 1, []float64{1, math.NaN()}), mat.NewDense(2, 1, []float64{1, 2}))
	var ni *errors.NumericalInstabilityError
	assert.True(t, errors.As(err, &ni))

	err = dt.Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(3, 1, []float64{1, 2, 3}))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))

	bad := NewDecisionTreeRegressor(WithCriterion("gini"))
	X, y := stepData()
	var ve *errors.ValidationError
	assert.True(t, errors.As(bad.Fit(X, y), &ve))

	X, y = stepData()
	require.NoError(t, dt.Fit(X, y))
	_, err = dt.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	assert.True(t, errors.As(err, &dim))
}

func TestDecisionTree_GobRoundTrip(t *testing.T) {
	X, y := stepData()
	reg := NewDecisionTreeRegressor(WithMaxDepth(4))
	require.NoError(t, reg.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(reg))

	var loadedReg DecisionTreeRegressor
	require.NoError(t, gob.NewDecoder(&buf).Decode(&loadedReg))
	assert.True(t, loadedReg.IsFitted())
	assert.Equal(t, 4, loadedReg.maxDepth)

	want, _ := reg.Predict(X)
	got, err := loadedReg.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))

	cls := NewDecisionTreeClassifier(WithCriterion("entropy"))
	yc := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})
	require.NoError(t, cls.Fit(X, yc))

	buf.Reset()
	require.NoError(t, gob.NewEncoder(&buf).Encode(cls))
	var loadedCls DecisionTreeClassifier
	require.NoError(t, gob.NewDecoder(&buf).Decode(&loadedCls))

	assert.Equal(t, "entropy", loadedCls.criterion)
	assert.Equal(t, []float64{0, 1}, loadedCls.Classes())
	assert.Equal(t, 1.0, loadedCls.Score(X, yc))
}

func TestDecisionTreeClassifier_ClassesFromFullDataset(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{3, 3, 7, 7})
	ds, err := NewDataset(X, y)
	require.NoError(t, err)

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.FitDataset(ds, []int{0, 1}))

	assert.Equal(t, []float64{3, 7}, dt.Classes())
	assert.Equal(t, []float64{1, 0}, dt.LeafValue([]float64{3}))
}

func TestDecisionTreeClassifier_SetParamsRejectsUnknown(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	err := dt.SetParams(map[string]interface{}{"learning_rate": 0.1})
	assert.Error(t, err)
	assert.Equal(t, "gini", dt.criterion, "failed SetParams must not change state")

	require.NoError(t, dt.SetParams(map[string]interface{}{"max_features": "sqrt", "max_depth": 3.0}))
	assert.Equal(t, "sqrt", dt.GetParams()["max_features"])
	assert.Equal(t, 3, dt.maxDepth)
}

func TestArgMax(t *testing.T) {
	assert.Equal(t, 0, ArgMax([]float64{0.5, 0.5}))
	assert.Equal(t, 2, ArgMax([]float64{0.1, 0.2, 0.7}))
}
