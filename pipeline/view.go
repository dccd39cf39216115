package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/pkg/log"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
)

// ViewOptions は結果ダッシュボードの追加出力
type ViewOptions struct {
	// ChartPath が空でなければ棒グラフのPNGを保存する
	ChartPath string
}

// ViewResults は両モデルのメトリクスを表にして表示する
func (r *Runner) ViewResults(ctx context.Context, v1Path, v2Path string, opts ViewOptions) error {
	r.banner(70, "🎵 SPOTIFY ML PIPELINE - RESULTS DASHBOARD 🎵")

	v1, v2, err := loadPair(v1Path, v2Path)
	if err != nil {
		return err
	}

	r.printf("\nModel Performance:\n\n")
	r.println(RenderTable(v1, v2))

	improveR2, err := percentChange("r2", v1.R2, v2.R2-v1.R2)
	if err != nil {
		return err
	}
	r.printf("\n✓ Model V2 improved R² by %.2f%%\n", improveR2)
	r.printf("✓ Average error reduced by %.2f popularity points\n", v1.MAE-v2.MAE)

	if opts.ChartPath != "" {
		if err := SaveChart(v1, v2, opts.ChartPath); err != nil {
			return err
		}
		r.printf("✓ Chart saved to: %s\n", opts.ChartPath)
	}

	if r.ledger != nil {
		n, err := r.ledger.CountRuns(ctx)
		if err != nil {
			return errors.Wrap(err, "view: count runs")
		}
		r.printf("\nTraining runs recorded in the run ledger: %d\n", n)
	}
	r.rule(70)

	r.logger.Debug("Results displayed", log.StageKey, "view")
	return nil
}

// RenderTable は Model, RMSE, MAE, R², Train Samples, Test Samples の表を描画する
func RenderTable(v1, v2 *MetricsSnapshot) string {
	row := func(name string, m *MetricsSnapshot) []string {
		return []string{
			name,
			formatMetric(m.RMSE),
			formatMetric(m.MAE),
			formatMetric(m.R2),
			strconv.Itoa(m.NTrain),
			strconv.Itoa(m.NTest),
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("Model", "RMSE", "MAE", "R²", "Train Samples", "Test Samples").
		Rows(row("V1", v1), row("V2", v2)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		})
	return t.String()
}

func formatMetric(v float64) string {
	return fmt.Sprintf("%.6f", v)
}
