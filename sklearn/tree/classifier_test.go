package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/pkg/errors"
)

// clusters は各クラスが (c*3, c*3) 付近に3点ずつ集まるデータを返す
func clusters(nClasses int) (*mat.Dense, *mat.Dense) {
	offsets := [][2]float64{{0, 0}, {0, 1}, {1, 0}}
	X := mat.NewDense(nClasses*3, 2, nil)
	y := mat.NewDense(nClasses*3, 1, nil)
	for c := 0; c < nClasses; c++ {
		for k, off := range offsets {
			i := c*3 + k
			X.Set(i, 0, float64(c*3)+off[0])
			X.Set(i, 1, float64(c*3)+off[1])
			y.Set(i, 0, float64(c))
		}
	}
	return X, y
}

func TestDecisionTreeClassifier_SeparableClusters(t *testing.T) {
	for _, criterion := range []string{"gini", "entropy"} {
		t.Run(criterion, func(t *testing.T) {
			X, y := clusters(2)

			dt := NewDecisionTreeClassifier(WithCriterion(criterion), WithMaxDepth(4))
			require.NoError(t, dt.Fit(X, y))

			assert.Equal(t, 1.0, dt.Score(X, y))
			assert.Equal(t, []float64{0, 1}, dt.Classes())

			pred, err := dt.Predict(mat.NewDense(2, 2, []float64{0.4, 0.4, 3.6, 3.6}))
			require.NoError(t, err)
			assert.Equal(t, []float64{0, 1}, mat.Col(nil, 0, pred))
		})
	}
}

func TestDecisionTreeClassifier_ProbabilitiesAgreeWithPredict(t *testing.T) {
	X, y := clusters(3)

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, 3, dt.nClasses_)

	proba, err := dt.PredictProba(X)
	require.NoError(t, err)
	rows, cols := proba.Dims()
	require.Equal(t, 9, rows)
	require.Equal(t, 3, cols)

	pred, err := dt.Predict(X)
	require.NoError(t, err)

	for i := 0; i < rows; i++ {
		row := mat.Row(nil, i, proba)
		sum := 0.0
		for _, p := range row {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "row %d", i)
		assert.Equal(t, y.At(i, 0), pred.At(i, 0), "row %d", i)
		assert.Equal(t, int(y.At(i, 0)), ArgMax(row), "row %d", i)
	}
}

func TestDecisionTreeClassifier_ImportanceFollowsInformativeFeature(t *testing.T) {
	// 列0だけがクラスを決める
	X := mat.NewDense(8, 3, []float64{
		0, 1, 0,
		0, 0, 1,
		0, 1, 1,
		0, 0, 0,
		1, 1, 0,
		1, 0, 1,
		1, 1, 1,
		1, 0, 0,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))

	assert.Equal(t, 1, dt.GetDepth())
	assert.Equal(t, 2, dt.GetNLeaves())
	assert.InDeltaSlice(t, []float64{1, 0, 0}, dt.GetFeatureImportances(), 1e-12)
}

func TestDecisionTreeClassifier_GrowthLimits(t *testing.T) {
	alternating := func(n int) (*mat.Dense, *mat.Dense) {
		X := mat.NewDense(n, 2, nil)
		y := mat.NewDense(n, 1, nil)
		for i := 0; i < n; i++ {
			X.Set(i, 0, float64(i))
			X.Set(i, 1, float64(i%3))
			y.Set(i, 0, float64(i%2))
		}
		return X, y
	}

	t.Run("max_depth", func(t *testing.T) {
		X, y := alternating(16)
		dt := NewDecisionTreeClassifier(WithMaxDepth(2))
		require.NoError(t, dt.Fit(X, y))
		assert.LessOrEqual(t, dt.GetDepth(), 2)
		assert.LessOrEqual(t, dt.GetNLeaves(), 4)
	})

	t.Run("min_samples", func(t *testing.T) {
		X, y := alternating(10)
		dt := NewDecisionTreeClassifier(WithMinSamplesSplit(5), WithMinSamplesLeaf(2))
		require.NoError(t, dt.Fit(X, y))
		assert.LessOrEqual(t, dt.GetNLeaves(), 5)
	})
}

func TestDecisionTreeClassifier_Params(t *testing.T) {
	dt := NewDecisionTreeClassifier()

	params := dt.GetParams()
	assert.Equal(t, "gini", params["criterion"])
	assert.Equal(t, 0, params["max_depth"])
	assert.Equal(t, 2, params["min_samples_split"])
	assert.Equal(t, 1, params["min_samples_leaf"])

	require.NoError(t, dt.SetParams(map[string]interface{}{
		"criterion":         "entropy",
		"max_depth":         5.0,
		"min_samples_split": 4,
		"max_features":      "sqrt",
	}))
	assert.Equal(t, "entropy", dt.criterion)
	assert.Equal(t, 5, dt.maxDepth)
	assert.Equal(t, 4, dt.minSamplesSplit)
	assert.Equal(t, "sqrt", dt.maxFeatures)

	err := dt.SetParams(map[string]interface{}{"max_depth": 2.5})
	var verr *errors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "max_depth", verr.ParamName)
	assert.Equal(t, 5, dt.maxDepth, "failed update leaves params untouched")
}

func TestDecisionTreeClassifier_InputErrors(t *testing.T) {
	X, y := clusters(2)

	unfitted := NewDecisionTreeClassifier()
	_, err := unfitted.Predict(X)
	var nf *errors.NotFittedError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "PredictProba", nf.Method)

	_, err = unfitted.PredictProba(X)
	require.True(t, errors.As(err, &nf))

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))
	_, err = dt.Predict(mat.NewDense(1, 3, []float64{1, 2, 3}))
	var dim *errors.DimensionError
	require.True(t, errors.As(err, &dim))
	assert.Equal(t, 2, dim.Expected)
	assert.Equal(t, 3, dim.Got)

	bad := NewDecisionTreeClassifier(WithCriterion("squared_error"))
	var verr *errors.ValidationError
	require.True(t, errors.As(bad.Fit(X, y), &verr))
	assert.Equal(t, "criterion", verr.ParamName)
}
