// Package cancer は乳がん分類モデルのデータ読み込みと学習を行います。
//
// 学習済みモデルは serving パッケージがHTTPで提供します。
package cancer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/frame"
	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/sklearn/model_selection"
)

// FeatureNames は学習と推論で使う10特徴量（この順序で行列の列になる）
var FeatureNames = []string{
	"mean_radius",
	"mean_texture",
	"mean_perimeter",
	"mean_area",
	"mean_smoothness",
	"mean_compactness",
	"mean_concavity",
	"mean_concave_points",
	"mean_symmetry",
	"mean_fractal_dimension",
}

// NFeatures は使用する特徴量の数
const NFeatures = 10

// 分割の設定
const (
	TestSize    = 0.3
	RandomState = 12
)

// Dataset は特徴量行列とラベル（0 = malignant, 1 = benign）
type Dataset struct {
	X *mat.Dense
	Y *mat.Dense
}

// LoadData は乳がんデータのCSVを読み込み、先頭10特徴量だけを残す。
//
// 2つの形式を受け付ける。
//
//	569,30,malignant,benign        ← scikit-learn同梱の形式（件数,特徴量数,クラス名...）
//	17.99,10.38,...,0
//
//	mean radius,mean texture,...,target   ← ヘッダー付き、target 列がラベル
func LoadData(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFoundError("LoadData", path)
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	ds, err := readData(file)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return ds, nil
}

func readData(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	if len(records) < 2 {
		return nil, errors.NewModelError("LoadData", "empty data", errors.ErrEmptyData)
	}

	if nSamples, nFeatures, ok := sklearnHeader(records[0]); ok {
		return fromSklearnLayout(records[1:], nSamples, nFeatures)
	}
	return fromTargetColumn(records[0], records[1:])
}

// sklearnHeader は "件数,特徴量数,..." の先頭行を判定する
func sklearnHeader(header []string) (nSamples, nFeatures int, ok bool) {
	if len(header) < 2 {
		return 0, 0, false
	}
	n, err1 := strconv.Atoi(strings.TrimSpace(header[0]))
	f, err2 := strconv.Atoi(strings.TrimSpace(header[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return n, f, true
}

func fromSklearnLayout(rows [][]string, nSamples, nFeatures int) (*Dataset, error) {
	if nFeatures < NFeatures {
		return nil, errors.NewDimensionError("LoadData", NFeatures, nFeatures, 1)
	}
	if len(rows) != nSamples {
		return nil, errors.NewDimensionError("LoadData", nSamples, len(rows), 0)
	}

	X := mat.NewDense(len(rows), NFeatures, nil)
	y := mat.NewDense(len(rows), 1, nil)
	for i, row := range rows {
		if len(row) != nFeatures+1 {
			return nil, errors.NewValueError("LoadData",
				fmt.Sprintf("row %d has %d fields, expected %d", i, len(row), nFeatures+1))
		}
		for j := 0; j < NFeatures; j++ {
			v, err := parseFloat(row[j], i)
			if err != nil {
				return nil, err
			}
			X.Set(i, j, v)
		}
		label, err := parseFloat(row[nFeatures], i)
		if err != nil {
			return nil, err
		}
		y.Set(i, 0, label)
	}
	return &Dataset{X: X, Y: y}, nil
}

func fromTargetColumn(header []string, rows [][]string) (*Dataset, error) {
	f, err := frame.New(header, rows)
	if err != nil {
		return nil, err
	}

	var features []string
	for _, name := range f.Columns() {
		if name == "target" {
			continue
		}
		features = append(features, name)
		if len(features) == NFeatures {
			break
		}
	}
	if len(features) < NFeatures {
		return nil, errors.NewDimensionError("LoadData", NFeatures, len(features), 1)
	}

	X, err := f.Matrix(features)
	if err != nil {
		return nil, err
	}
	y, err := f.Matrix([]string{"target"})
	if err != nil {
		return nil, err
	}
	return &Dataset{X: X, Y: y}, nil
}

func parseFloat(cell string, row int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, errors.NewValueError("LoadData", fmt.Sprintf("row %d: cannot parse %q", row, cell))
	}
	return v, nil
}

// SplitData はデータを 70/30 に分割する（random_state = 12）
func SplitData(ds *Dataset) (*model_selection.Split, error) {
	return model_selection.TrainTestSplit(ds.X, ds.Y, TestSize, RandomState)
}
