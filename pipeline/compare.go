package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/pkg/log"
)

// ErrMetricsMissing はどちらかのメトリクスファイルが無い場合のエラー
var ErrMetricsMissing = errors.New("Both metrics_v1.json and metrics_v2.json must exist.")

// Comparison は v1 と v2 のメトリクス比較
type Comparison struct {
	V1, V2 *MetricsSnapshot

	// 改善率（%）。RMSE と MAE は減少、R² は増加を正とする
	RMSEImprove float64
	MAEImprove  float64
	R2Improve   float64
}

// CompareMetrics は改善率を計算する。v1 の値が 0 なら ValueError。
func CompareMetrics(v1, v2 *MetricsSnapshot) (*Comparison, error) {
	rmse, err := percentChange("rmse", v1.RMSE, v1.RMSE-v2.RMSE)
	if err != nil {
		return nil, err
	}
	mae, err := percentChange("mae", v1.MAE, v1.MAE-v2.MAE)
	if err != nil {
		return nil, err
	}
	r2, err := percentChange("r2", v1.R2, v2.R2-v1.R2)
	if err != nil {
		return nil, err
	}
	return &Comparison{V1: v1, V2: v2, RMSEImprove: rmse, MAEImprove: mae, R2Improve: r2}, nil
}

func percentChange(metric string, baseline, delta float64) (float64, error) {
	if baseline == 0 {
		return 0, errors.NewValueError("compare",
			fmt.Sprintf("v1 %s is zero; relative improvement is undefined (division by zero)", metric))
	}
	return delta / baseline * 100, nil
}

// Summary は比較結果のテキスト（末尾改行付き）
func (c *Comparison) Summary() string {
	var b strings.Builder
	b.WriteString("Model Comparison:\n")
	fmt.Fprintf(&b, "RMSE: %.2f → %.2f (%+.2f%%)\n", c.V1.RMSE, c.V2.RMSE, c.RMSEImprove)
	fmt.Fprintf(&b, "MAE: %.2f → %.2f (%+.2f%%)\n", c.V1.MAE, c.V2.MAE, c.MAEImprove)
	fmt.Fprintf(&b, "R²: %.4f → %.4f (%+.2f%%)\n", c.V1.R2, c.V2.R2, c.R2Improve)
	return b.String()
}

// loadPair は両方のファイルの存在を確認してから読み込む
func loadPair(v1Path, v2Path string) (*MetricsSnapshot, *MetricsSnapshot, error) {
	for _, p := range []string{v1Path, v2Path} {
		if _, err := os.Stat(p); err != nil {
			if os.IsNotExist(err) {
				return nil, nil, errors.WithStack(ErrMetricsMissing)
			}
			return nil, nil, errors.Wrapf(err, "stat %s", p)
		}
	}
	v1, err := ReadMetrics(v1Path)
	if err != nil {
		return nil, nil, err
	}
	v2, err := ReadMetrics(v2Path)
	if err != nil {
		return nil, nil, err
	}
	return v1, v2, nil
}

// Compare は2つのメトリクスファイルを比較し、サマリーを out に書き出す
func (r *Runner) Compare(ctx context.Context, v1Path, v2Path, out string) (*Comparison, error) {
	r.banner(60, "MODEL COMPARISON: V1 vs V2")

	v1, v2, err := loadPair(v1Path, v2Path)
	if err != nil {
		return nil, err
	}
	cmp, err := CompareMetrics(v1, v2)
	if err != nil {
		return nil, err
	}

	summary := cmp.Summary()
	r.println(summary)

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create directory for %s", out)
	}
	if err := os.WriteFile(out, []byte(summary), 0o644); err != nil {
		return nil, errors.Wrapf(err, "write %s", out)
	}
	r.printf("✓ Comparison summary saved to %s\n", out)
	r.rule(60)

	r.logger.Info("Comparison completed",
		log.StageKey, "compare",
		log.PathKey, out,
		"improve.rmse_pct", cmp.RMSEImprove,
		"improve.mae_pct", cmp.MAEImprove,
		"improve.r2_pct", cmp.R2Improve,
	)
	if err := r.recordArtifacts(ctx, "compare", out); err != nil {
		return nil, err
	}
	return cmp, nil
}
