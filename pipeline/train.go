package pipeline

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/core/model"
	"github.com/YuminosukeSato/popforest/frame"
	"github.com/YuminosukeSato/popforest/metrics"
	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/pkg/log"
	"github.com/YuminosukeSato/popforest/preprocessing"
	"github.com/YuminosukeSato/popforest/sklearn/ensemble"
	"github.com/YuminosukeSato/popforest/sklearn/model_selection"
	"github.com/YuminosukeSato/popforest/tracking"
)

// BaseFeatures は両バージョン共通の12特徴量
var BaseFeatures = []string{
	"danceability", "energy", "loudness", "speechiness", "acousticness",
	"instrumentalness", "liveness", "valence", "tempo_normalized",
	"energy_ratio", "mood_score", "duration_min",
}

// TrainSpec は1つのモデルバージョンの学習設定
type TrainSpec struct {
	Version string
	Title   string
	// Label は性能行の見出し（"Model Performance" など）
	Label string

	Features []string
	Target   string

	TestSize    float64
	RandomState int64

	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	NJobs           int

	// Scale が true なら StandardScaler を学習データで学習し、両方に適用する
	Scale bool
	// RecordNFeatures が true ならメトリクスに n_features を書く
	RecordNFeatures bool

	ModelPath   string
	ScalerPath  string
	MetricsPath string
}

// V1Spec はベースラインモデルの設定
func V1Spec() TrainSpec {
	return TrainSpec{
		Version:         "v1",
		Title:           "TRAIN MODEL V1 - Random Forest",
		Label:           "Model Performance",
		Features:        append([]string(nil), BaseFeatures...),
		Target:          "popularity",
		TestSize:        0.2,
		RandomState:     42,
		NEstimators:     100,
		MaxDepth:        15,
		MinSamplesSplit: 2,
		NJobs:           -1,
		ModelPath:       "models/spotify_model_v1.gob",
		MetricsPath:     "models/metrics_v1.json",
	}
}

// V2Spec は標準化付きの改良モデルの設定
func V2Spec() TrainSpec {
	return TrainSpec{
		Version:         "v2",
		Title:           "TRAIN MODEL V2 - Improved Random Forest with Scaling",
		Label:           "Model V2 Performance",
		Features:        append(append([]string(nil), BaseFeatures...), "key", "mode"),
		Target:          "popularity",
		TestSize:        0.2,
		RandomState:     42,
		NEstimators:     150,
		MaxDepth:        20,
		MinSamplesSplit: 5,
		NJobs:           -1,
		Scale:           true,
		RecordNFeatures: true,
		ModelPath:       "models/spotify_model_v2.gob",
		ScalerPath:      "models/scaler_v2.gob",
		MetricsPath:     "models/metrics_v2.json",
	}
}

// TrainResult は学習ステージの結果
type TrainResult struct {
	Metrics *MetricsSnapshot
	Model   *ensemble.RandomForestRegressor
	// Scaler は Scale が false なら nil
	Scaler *preprocessing.StandardScaler
}

// Train は特徴量CSVから回帰フォレストを学習し、モデルとメトリクスを保存する
func (r *Runner) Train(ctx context.Context, spec TrainSpec, in string) (*TrainResult, error) {
	started := time.Now()
	logger := r.logger.With(log.StageKey, "train", log.ModelVersionKey, spec.Version)
	r.banner(50, spec.Title)

	f, err := frame.ReadCSV(in)
	if err != nil {
		return nil, err
	}
	X, y, err := trainingData(f, spec)
	if err != nil {
		return nil, err
	}

	split, err := model_selection.TrainTestSplit(X, y, spec.TestSize, spec.RandomState)
	if err != nil {
		return nil, errors.Wrap(err, "train: split")
	}

	var (
		xTrain mat.Matrix = split.XTrain
		xTest  mat.Matrix = split.XTest
		scaler *preprocessing.StandardScaler
	)
	if spec.Scale {
		scaler = preprocessing.NewStandardScalerDefault()
		if xTrain, xTest, err = model.FitApply(scaler, split.XTrain, split.XTest); err != nil {
			return nil, errors.Wrap(err, "train: scale")
		}
	}

	rf := ensemble.NewRandomForestRegressor(
		ensemble.WithNEstimators(spec.NEstimators),
		ensemble.WithMaxDepth(spec.MaxDepth),
		ensemble.WithMinSamplesSplit(spec.MinSamplesSplit),
		ensemble.WithRandomState(spec.RandomState),
		ensemble.WithNJobs(spec.NJobs),
	)
	if err := rf.FitContext(ctx, xTrain, split.YTrain); err != nil {
		return nil, err
	}

	snap, err := r.evaluate(rf, xTest, split)
	if err != nil {
		return nil, err
	}
	snap.Version = spec.Version
	snap.Features = append([]string(nil), spec.Features...)
	if spec.RecordNFeatures {
		snap.NFeatures = len(spec.Features)
	}

	r.printf("\n%s → RMSE: %.2f, MAE: %.2f, R²: %.4f\n", spec.Label, snap.RMSE, snap.MAE, snap.R2)

	saved := []string{spec.ModelPath}
	if err := model.SaveModel(rf, spec.ModelPath); err != nil {
		return nil, err
	}
	if scaler != nil {
		if err := model.SaveModel(scaler, spec.ScalerPath); err != nil {
			return nil, err
		}
		saved = append(saved, spec.ScalerPath)
	}
	if err := WriteMetrics(spec.MetricsPath, snap); err != nil {
		return nil, err
	}
	saved = append(saved, spec.MetricsPath)

	r.println("\n✓ Model and metrics saved.")
	r.rule(50)

	logger.Info("Training completed",
		log.ModelNameKey, "RandomForestRegressor",
		log.RMSEKey, snap.RMSE,
		log.MAEKey, snap.MAE,
		log.R2ScoreKey, snap.R2,
		log.SamplesKey, snap.NTrain+snap.NTest,
		log.FeaturesKey, len(spec.Features),
		log.DurationMsKey, time.Since(started).Milliseconds(),
	)

	if err := r.recordArtifacts(ctx, "train_"+spec.Version, saved...); err != nil {
		return nil, err
	}
	if r.ledger != nil {
		run := &tracking.Run{
			Version:     spec.Version,
			RMSE:        snap.RMSE,
			MAE:         snap.MAE,
			R2:          snap.R2,
			NTrain:      snap.NTrain,
			NTest:       snap.NTest,
			ModelPath:   spec.ModelPath,
			MetricsPath: spec.MetricsPath,
		}
		if err := r.ledger.RecordRun(ctx, run); err != nil {
			return nil, errors.Wrap(err, "train: record run")
		}
	}

	return &TrainResult{Metrics: snap, Model: rf, Scaler: scaler}, nil
}

func trainingData(f *frame.Frame, spec TrainSpec) (*mat.Dense, *mat.Dense, error) {
	X, err := f.Matrix(spec.Features)
	if err != nil {
		return nil, nil, errors.Wrap(err, "train: features")
	}
	y, err := f.Matrix([]string{spec.Target})
	if err != nil {
		return nil, nil, errors.Wrap(err, "train: target")
	}
	r, c := X.Dims()
	if err := errors.CheckMatrix("train_input", X, r, c); err != nil {
		return nil, nil, err
	}
	if err := errors.CheckMatrix("train_target", y, r, 1); err != nil {
		return nil, nil, err
	}
	return X, y, nil
}

func (r *Runner) evaluate(rf *ensemble.RandomForestRegressor, xTest mat.Matrix, split *model_selection.Split) (*MetricsSnapshot, error) {
	pred, err := rf.Predict(xTest)
	if err != nil {
		return nil, err
	}
	yTrue, err := metrics.ColumnVector("train", split.YTest)
	if err != nil {
		return nil, err
	}
	yPred, err := metrics.ColumnVector("train", pred)
	if err != nil {
		return nil, err
	}

	rmse, err := metrics.RMSE(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	mae, err := metrics.MAE(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	r2, err := metrics.R2Score(yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if err := errors.CheckNumericalStability("evaluate", []float64{rmse, mae, r2}, 0); err != nil {
		return nil, err
	}

	return &MetricsSnapshot{
		Timestamp: r.now().Format(TimestampLayout),
		RMSE:      rmse,
		MAE:       mae,
		R2:        r2,
		NTrain:    len(split.TrainIndices),
		NTest:     len(split.TestIndices),
	}, nil
}
