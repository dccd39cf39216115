package ensemble

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/core/model"
	"github.com/YuminosukeSato/popforest/pkg/errors"
)

var (
	_ model.Regressor  = (*RandomForestRegressor)(nil)
	_ model.Classifier = (*RandomForestClassifier)(nil)
)

// regressionData は y = 3*x0 + x1 の格子データ（x2はノイズ列）
func regressionData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x0 := float64(i % 10)
		x1 := float64((i / 10) % 5)
		X.Set(i, 0, x0)
		X.Set(i, 1, x1)
		X.Set(i, 2, float64((i*7)%3))
		y.Set(i, 0, 3*x0+x1)
	}
	return X, y
}

func blobs() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(40, 2, nil)
	y := mat.NewDense(40, 1, nil)
	for i := 0; i < 40; i++ {
		off := 0.0
		label := 0.0
		if i >= 20 {
			off, label = 10, 1
		}
		X.Set(i, 0, off+float64(i%5)*0.3)
		X.Set(i, 1, off+float64(i%4)*0.2)
		y.Set(i, 0, label)
	}
	return X, y
}

func TestRandomForestRegressor_FitPredict(t *testing.T) {
	X, y := regressionData(200)

	rf := NewRandomForestRegressor(
		WithNEstimators(20),
		WithMaxDepth(10),
		WithRandomState(42),
		WithNJobs(-1),
	)
	require.NoError(t, rf.Fit(X, y))

	pred, err := rf.Predict(X)
	require.NoError(t, err)
	r, c := pred.Dims()
	assert.Equal(t, 200, r)
	assert.Equal(t, 1, c)

	assert.Greater(t, rf.Score(X, y), 0.95)
	assert.Len(t, rf.Estimators(), 20)

	imp := rf.FeatureImportances()
	require.Len(t, imp, 3)
	var sum float64
	for _, v := range imp {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, imp[0], imp[1], "x0 carries most of the signal")
	assert.Greater(t, imp[1], imp[2])
}

func TestRandomForestRegressor_DeterministicAcrossNJobs(t *testing.T) {
	X, y := regressionData(120)

	predict := func(nJobs int) []float64 {
		rf := NewRandomForestRegressor(
			WithNEstimators(15),
			WithMaxFeatures(2),
			WithRandomState(7),
			WithNJobs(nJobs),
		)
		require.NoError(t, rf.Fit(X, y))
		p, err := rf.Predict(X)
		require.NoError(t, err)
		return mat.Col(nil, 0, p)
	}

	assert.Equal(t, predict(1), predict(4))

	other := NewRandomForestRegressor(WithNEstimators(15), WithMaxFeatures(2), WithRandomState(8))
	require.NoError(t, other.Fit(X, y))
	p, _ := other.Predict(X)
	assert.NotEqual(t, predict(1), mat.Col(nil, 0, p), "a different seed should change the forest")
}

func TestRandomForestRegressor_PredictionsWithinTargetRange(t *testing.T) {
	X, y := regressionData(100)
	rf := NewRandomForestRegressor(WithNEstimators(10), WithRandomState(1))
	require.NoError(t, rf.Fit(X, y))

	Xnew := mat.NewDense(2, 3, []float64{-100, -100, 0, 100, 100, 2})
	pred, err := rf.Predict(Xnew)
	require.NoError(t, err)
	lo, hi := mat.Min(y), mat.Max(y)
	for i := 0; i < 2; i++ {
		v := pred.At(i, 0)
		assert.GreaterOrEqual(t, v, lo)
		assert.LessOrEqual(t, v, hi)
	}
}

func TestRandomForestRegressor_Errors(t *testing.T) {
	rf := NewRandomForestRegressor()
	_, err := rf.Predict(mat.NewDense(1, 3, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	assert.True(t, math.IsNaN(rf.Score(mat.NewDense(1, 3, nil), mat.NewDense(1, 1, nil))))

	bad := NewRandomForestRegressor(WithNEstimators(0))
	X, y := regressionData(10)
	var ve *errors.ValidationError
	assert.True(t, errors.As(bad.Fit(X, y), &ve))

	X.Set(3, 1, math.Inf(1))
	var ni *errors.NumericalInstabilityError
	assert.True(t, errors.As(NewRandomForestRegressor(WithNEstimators(2)).Fit(X, y), &ni))
}

func TestRandomForestRegressor_ContextCancelled(t *testing.T) {
	X, y := regressionData(50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rf := NewRandomForestRegressor(WithNEstimators(5), WithNJobs(1))
	err := rf.FitContext(ctx, X, y)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, rf.IsFitted())
}

func TestRandomForestRegressor_Persistence(t *testing.T) {
	X, y := regressionData(80)
	rf := NewRandomForestRegressor(WithNEstimators(8), WithMaxDepth(6), WithRandomState(42))
	require.NoError(t, rf.Fit(X, y))

	path := filepath.Join(t.TempDir(), "models", "spotify_model_v1.gob")
	require.NoError(t, model.SaveModel(rf, path))

	var loaded RandomForestRegressor
	require.NoError(t, model.LoadModel(&loaded, path))
	assert.True(t, loaded.IsFitted())
	assert.Equal(t, 8, loaded.NEstimators)
	assert.Equal(t, 6, loaded.MaxDepth)

	want, _ := rf.Predict(X)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestRandomForestClassifier_FitPredict(t *testing.T) {
	X, y := blobs()

	rf := NewRandomForestClassifier(WithNEstimators(25), WithRandomState(12))
	require.NoError(t, rf.Fit(X, y))

	assert.Equal(t, []float64{0, 1}, rf.Classes())
	assert.Equal(t, 1.0, rf.Score(X, y))
	assert.Equal(t, "sqrt", rf.GetParams()["max_features"])

	proba, err := rf.PredictProba(mat.NewDense(2, 2, []float64{0.2, 0.1, 10.5, 10.2}))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-9)
	}
	assert.Greater(t, proba.At(0, 0), 0.5)
	assert.Greater(t, proba.At(1, 1), 0.5)
}

func TestRandomForestClassifier_Persistence(t *testing.T) {
	X, y := blobs()
	rf := NewRandomForestClassifier(WithNEstimators(10), WithRandomState(12))
	require.NoError(t, rf.Fit(X, y))

	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, model.SaveModel(rf, path))

	var loaded RandomForestClassifier
	require.NoError(t, model.LoadModel(&loaded, path))

	want, _ := rf.PredictProba(X)
	got, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
	assert.Equal(t, rf.Classes(), loaded.Classes())
}

func TestBootstrapIndices(t *testing.T) {
	idx := bootstrapIndices(100, 3)
	require.Len(t, idx, 100)
	seen := map[int]bool{}
	for _, i := range idx {
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 100)
		seen[i] = true
	}
	assert.Less(t, len(seen), 100, "sampling with replacement repeats rows")
	assert.Equal(t, idx, bootstrapIndices(100, 3))
}
