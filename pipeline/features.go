package pipeline

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/frame"
	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/pkg/log"
	"github.com/YuminosukeSato/popforest/preprocessing"
)

// DerivedColumns は EngineerFeatures が追加する列（この順に追加される）
var DerivedColumns = []string{
	"energy_ratio",
	"mood_score",
	"tempo_normalized",
	"duration_min",
	"popularity_category",
}

// FeatureReport は特徴量エンジニアリングの結果
type FeatureReport struct {
	Input  string
	Output string

	RowsIn, ColsIn   int
	RowsOut, ColsOut int
}

// EngineerFeatures はクリーニング済みCSVに派生特徴量を5列追加して out に書き出す
func (r *Runner) EngineerFeatures(ctx context.Context, in, out string) (*FeatureReport, error) {
	started := time.Now()
	r.banner(50, "FEATURE ENGINEERING STAGE - Spotify Dataset")

	f, err := frame.ReadCSV(in)
	if err != nil {
		return nil, err
	}
	rep := &FeatureReport{Input: in, Output: out}
	rep.RowsIn, rep.ColsIn = f.Shape()
	r.printf("Loaded cleaned data: %s\n", f.ShapeString())

	if err := AddFeatures(f); err != nil {
		return nil, err
	}

	r.println("\n✓ New features created:")
	r.println("energy_ratio, mood_score, tempo_normalized, duration_min, popularity_category")

	if err := f.WriteCSV(out); err != nil {
		return nil, err
	}
	rep.RowsOut, rep.ColsOut = f.Shape()
	r.printf("\n✓ Featured data saved to: %s\n", out)
	r.printf("Final shape: %s\n", f.ShapeString())
	r.rule(50)

	r.logger.Info("Feature engineering completed",
		log.StageKey, "features",
		log.PathKey, out,
		log.SamplesKey, rep.RowsOut,
		log.FeaturesKey, rep.ColsOut,
		log.DurationMsKey, time.Since(started).Milliseconds(),
	)
	if err := r.recordArtifacts(ctx, "features", out); err != nil {
		return nil, err
	}
	return rep, nil
}

// AddFeatures は f に派生特徴量を設定する。既に同名の列があれば置き換える。
//
//	energy_ratio        = energy / (acousticness + 0.01)
//	mood_score          = valence * danceability
//	tempo_normalized    = (tempo - min) / (max - min)、定数列は 0
//	duration_min        = duration_ms / 60000
//	popularity_category = (0,30] Low, (30,60] Medium, (60,100] High、範囲外は空
func AddFeatures(f *frame.Frame) error {
	cols := make(map[string][]float64, 7)
	for _, name := range []string{"energy", "acousticness", "valence", "danceability", "tempo", "duration_ms", "popularity"} {
		v, err := f.Float64s(name)
		if err != nil {
			return errors.Wrap(err, "feature engineering")
		}
		cols[name] = v
	}

	n := f.Len()
	energyRatio := make([]float64, n)
	mood := make([]float64, n)
	duration := make([]float64, n)
	category := make([]string, n)
	for i := 0; i < n; i++ {
		energyRatio[i] = cols["energy"][i] / (cols["acousticness"][i] + 0.01)
		mood[i] = cols["valence"][i] * cols["danceability"][i]
		duration[i] = cols["duration_ms"][i] / 60000
		category[i] = PopularityCategory(cols["popularity"][i])
	}

	tempo, err := normalizeTempo(cols["tempo"])
	if err != nil {
		return err
	}

	if err := f.SetFloatColumn("energy_ratio", energyRatio); err != nil {
		return err
	}
	if err := f.SetFloatColumn("mood_score", mood); err != nil {
		return err
	}
	if err := f.SetFloatColumn("tempo_normalized", tempo); err != nil {
		return err
	}
	if err := f.SetFloatColumn("duration_min", duration); err != nil {
		return err
	}
	return f.SetColumn("popularity_category", category)
}

func normalizeTempo(tempo []float64) ([]float64, error) {
	if len(tempo) == 0 {
		return nil, nil
	}
	scaler := preprocessing.NewMinMaxScalerDefault()
	scaled, err := scaler.FitTransform(mat.NewDense(len(tempo), 1, append([]float64(nil), tempo...)))
	if err != nil {
		return nil, errors.Wrap(err, "normalize tempo")
	}
	out := make([]float64, len(tempo))
	for i := range out {
		out[i] = scaled.At(i, 0)
	}
	return out, nil
}

// PopularityCategory は人気度を右閉区間のビンに割り当てる。範囲外とNaNは空文字列。
func PopularityCategory(p float64) string {
	switch {
	case math.IsNaN(p) || p <= 0 || p > 100:
		return ""
	case p <= 30:
		return "Low"
	case p <= 60:
		return "Medium"
	default:
		return "High"
	}
}
