package cancer

import (
	"context"
	"time"

	"github.com/YuminosukeSato/popforest/core/model"
	"github.com/YuminosukeSato/popforest/metrics"
	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/pkg/log"
	"github.com/YuminosukeSato/popforest/sklearn/ensemble"
	"github.com/YuminosukeSato/popforest/sklearn/model_selection"
)

// Label はモデル出力を診断名に変換する。0 は Malignant、それ以外は Benign。
func Label(class float64) string {
	if class == 0 {
		return "Malignant"
	}
	return "Benign"
}

// NewModel は学習に使う分類フォレストを作成する
func NewModel(opts ...ensemble.Option) *ensemble.RandomForestClassifier {
	base := []ensemble.Option{
		ensemble.WithNEstimators(100),
		ensemble.WithRandomState(RandomState),
		ensemble.WithNJobs(-1),
	}
	return ensemble.NewRandomForestClassifier(append(base, opts...)...)
}

// FitResult は学習結果
type FitResult struct {
	Model    *ensemble.RandomForestClassifier
	Accuracy float64
}

// FitModel は学習用データで分類器を学習し、テスト精度を計算してから path に保存する
func FitModel(ctx context.Context, split *model_selection.Split, path string, opts ...ensemble.Option) (*FitResult, error) {
	started := time.Now()
	logger := log.GetLoggerWithName("cancer")

	clf := NewModel(opts...)
	if err := clf.FitContext(ctx, split.XTrain, split.YTrain); err != nil {
		return nil, err
	}

	pred, err := clf.Predict(split.XTest)
	if err != nil {
		return nil, err
	}
	yTrue, err := metrics.ColumnVector("FitModel", split.YTest)
	if err != nil {
		return nil, err
	}
	yPred, err := metrics.ColumnVector("FitModel", pred)
	if err != nil {
		return nil, err
	}
	acc, err := metrics.Accuracy(yTrue, yPred)
	if err != nil {
		return nil, errors.Wrap(err, "FitModel: accuracy")
	}

	if err := model.SaveModel(clf, path); err != nil {
		return nil, err
	}

	logger.Info("Classifier trained",
		log.ModelNameKey, "RandomForestClassifier",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(split.TrainIndices),
		log.AccuracyKey, acc,
		log.PathKey, path,
		log.DurationMsKey, time.Since(started).Milliseconds(),
	)
	return &FitResult{Model: clf, Accuracy: acc}, nil
}

// LoadModel は保存済みの分類器を読み込む
func LoadModel(path string) (*ensemble.RandomForestClassifier, error) {
	var clf ensemble.RandomForestClassifier
	if err := model.LoadModel(&clf, path); err != nil {
		return nil, err
	}
	if err := clf.RequireFitted("RandomForestClassifier", "Predict"); err != nil {
		return nil, err
	}
	if clf.NFeatures() != NFeatures {
		return nil, errors.NewDimensionError("LoadModel", NFeatures, clf.NFeatures(), 1)
	}
	return &clf, nil
}
