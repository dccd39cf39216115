package pipeline

import (
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/popforest/pkg/errors"
)

// SaveChart は RMSE, MAE, R² を V1/V2 で並べた棒グラフを path に保存する。
// 形式は拡張子（.png, .svg, .pdf）で決まる。
func SaveChart(v1, v2 *MetricsSnapshot, path string) error {
	p := plot.New()
	p.Title.Text = "Model Performance"
	p.Y.Label.Text = "Value"

	w := vg.Points(20)
	bars := make([]*plotter.BarChart, 0, 2)
	for i, m := range []*MetricsSnapshot{v1, v2} {
		b, err := plotter.NewBarChart(plotter.Values{m.RMSE, m.MAE, m.R2}, w)
		if err != nil {
			return errors.Wrap(err, "chart: bars")
		}
		b.LineStyle.Width = vg.Length(0)
		b.Color = plotutil.Color(i)
		b.Offset = w * vg.Length(2*i-1) / 2
		bars = append(bars, b)
	}

	p.Add(bars[0], bars[1])
	p.Legend.Add("V1", bars[0])
	p.Legend.Add("V2", bars[1])
	p.Legend.Top = true
	p.NominalX("RMSE", "MAE", "R²")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save chart %s", path)
	}
	return nil
}
