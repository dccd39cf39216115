package serving

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/YuminosukeSato/popforest/pkg/errors"
)

// maxBodyBytes はリクエストボディの上限
const maxBodyBytes = 1 << 20

// PredictRequest は10個の平均値特徴量。欠けたフィールドは検証エラーになる。
type PredictRequest struct {
	MeanRadius           *float64 `json:"mean_radius"`
	MeanTexture          *float64 `json:"mean_texture"`
	MeanPerimeter        *float64 `json:"mean_perimeter"`
	MeanArea             *float64 `json:"mean_area"`
	MeanSmoothness       *float64 `json:"mean_smoothness"`
	MeanCompactness      *float64 `json:"mean_compactness"`
	MeanConcavity        *float64 `json:"mean_concavity"`
	MeanConcavePoints    *float64 `json:"mean_concave_points"`
	MeanSymmetry         *float64 `json:"mean_symmetry"`
	MeanFractalDimension *float64 `json:"mean_fractal_dimension"`
}

// PredictResponse は予測結果
type PredictResponse struct {
	Prediction string `json:"prediction"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (p *PredictRequest) fields() []struct {
	name  string
	value *float64
} {
	return []struct {
		name  string
		value *float64
	}{
		{"mean_radius", p.MeanRadius},
		{"mean_texture", p.MeanTexture},
		{"mean_perimeter", p.MeanPerimeter},
		{"mean_area", p.MeanArea},
		{"mean_smoothness", p.MeanSmoothness},
		{"mean_compactness", p.MeanCompactness},
		{"mean_concavity", p.MeanConcavity},
		{"mean_concave_points", p.MeanConcavePoints},
		{"mean_symmetry", p.MeanSymmetry},
		{"mean_fractal_dimension", p.MeanFractalDimension},
	}
}

// Validate は全フィールドが揃っているか確認する
func (p *PredictRequest) Validate() error {
	var missing []string
	for _, f := range p.fields() {
		if f.value == nil {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return errors.NewValidationError(missing[0], "field required", strings.Join(missing, ", "))
	}
	return nil
}

// Features は学習時と同じ固定順序で特徴量ベクトルを返す。
// ボディ内のキーの順序には依存しない。
func (p *PredictRequest) Features() []float64 {
	fields := p.fields()
	out := make([]float64, len(fields))
	for i, f := range fields {
		if f.value != nil {
			out[i] = *f.value
		}
	}
	return out
}

func decodeRequest(w http.ResponseWriter, r *http.Request, req *PredictRequest) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(req); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &typeErr):
			return errors.NewValidationError(typeErr.Field, "value is not a valid float", typeErr.Value)
		case errors.Is(err, io.EOF):
			return errors.NewValueError("predict", "request body is empty")
		default:
			return errors.NewValueError("predict", fmt.Sprintf("malformed JSON body: %v", err))
		}
	}
	return req.Validate()
}
