package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/popforest/pkg/errors"
)

// TimestampLayout はメトリクスファイルのタイムスタンプ形式（ローカル時刻、タイムゾーンなし）
const TimestampLayout = "2006-01-02T15:04:05.000000"

// MetricsSnapshot は学習済みモデルの評価結果。JSONのキー順はフィールド順になる。
type MetricsSnapshot struct {
	Version   string  `json:"version"`
	Timestamp string  `json:"timestamp"`
	RMSE      float64 `json:"rmse"`
	MAE       float64 `json:"mae"`
	R2        float64 `json:"r2"`

	// NFeatures は v2 のみ記録する
	NFeatures int `json:"n_features,omitempty"`

	Features []string `json:"features"`
	NTrain   int      `json:"n_train"`
	NTest    int      `json:"n_test"`
}

// WriteMetrics は m を2スペースインデントのJSONとして path に書き出す
func WriteMetrics(path string, m *MetricsSnapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode metrics")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// ReadMetrics は path のメトリクスファイルを読み込む
func ReadMetrics(path string) (*MetricsSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFoundError("ReadMetrics", path)
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var m MetricsSnapshot
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return &m, nil
}
