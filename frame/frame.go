// Package frame はCSVファイルをメモリ上の表として扱います。
//
// セルは生の文字列のまま保持されるため、クリーニングで触れなかった値は
// 書き出し時にも元の表記のまま残ります。数値列は必要になった時点で解析します。
package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/pkg/errors"
)

// naValues は欠損値として扱うセルの表記（pandas の既定値と同じ集合）
var naValues = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsNA はセルが欠損値かどうかを返す
func IsNA(cell string) bool {
	_, ok := naValues[cell]
	return ok
}

// Frame はヘッダーとレコードからなるCSV表
type Frame struct {
	header  []string
	records [][]string
	index   map[string]int
}

// New はヘッダーとレコードから Frame を作る。重複した列名は name.1, name.2 と改名される。
// 各レコードはヘッダーと同じ長さでなければならない。
func New(header []string, records [][]string) (*Frame, error) {
	f := &Frame{header: dedupeHeader(header)}
	f.reindex()
	for i, rec := range records {
		if len(rec) != len(f.header) {
			return nil, errors.NewValueError("frame.New",
				fmt.Sprintf("row %d has %d fields, expected %d", i, len(rec), len(f.header)))
		}
	}
	f.records = records
	return f, nil
}

func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	counts := make(map[string]int, len(header))
	for i, name := range header {
		candidate := name
		for taken[candidate] {
			counts[name]++
			candidate = fmt.Sprintf("%s.%d", name, counts[name])
		}
		taken[candidate] = true
		out[i] = candidate
	}
	return out
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.header))
	for i, name := range f.header {
		f.index[name] = i
	}
}

// Shape は (行数, 列数) を返す
func (f *Frame) Shape() (rows, cols int) {
	return len(f.records), len(f.header)
}

// ShapeString は "(rows, cols)" 形式の文字列を返す
func (f *Frame) ShapeString() string {
	r, c := f.Shape()
	return fmt.Sprintf("(%d, %d)", r, c)
}

// Len は行数を返す
func (f *Frame) Len() int { return len(f.records) }

// Columns は列名のコピーを返す
func (f *Frame) Columns() []string {
	return append([]string(nil), f.header...)
}

// Has は列が存在するかどうかを返す
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

func (f *Frame) col(name string) (int, error) {
	j, ok := f.index[name]
	if !ok {
		return 0, errors.NewColumnNotFoundError(name)
	}
	return j, nil
}

// Column は列のセルをコピーして返す
func (f *Frame) Column(name string) ([]string, error) {
	j, err := f.col(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(f.records))
	for i, rec := range f.records {
		out[i] = rec[j]
	}
	return out, nil
}

// Float64s は列を数値として解析する。欠損値はNaN、解析できないセルはValueError。
func (f *Frame) Float64s(name string) ([]float64, error) {
	j, err := f.col(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(f.records))
	for i, rec := range f.records {
		v, err := parseCell(rec[j])
		if err != nil {
			return nil, errors.NewValueError("frame.Float64s",
				fmt.Sprintf("column %q row %d: cannot parse %q as float", name, i, rec[j]))
		}
		out[i] = v
	}
	return out, nil
}

func parseCell(cell string) (float64, error) {
	if IsNA(cell) {
		return math.NaN(), nil
	}
	s := strings.TrimSpace(cell)
	switch s {
	case "True", "true":
		return 1, nil
	case "False", "false":
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// Matrix は指定した列を順に並べた (行数 × len(names)) の行列を返す
func (f *Frame) Matrix(names []string) (*mat.Dense, error) {
	if len(f.records) == 0 || len(names) == 0 {
		return nil, errors.NewModelError("frame.Matrix", "empty data", errors.ErrEmptyData)
	}
	m := mat.NewDense(len(f.records), len(names), nil)
	for j, name := range names {
		col, err := f.Float64s(name)
		if err != nil {
			return nil, err
		}
		m.SetCol(j, col)
	}
	return m, nil
}

// SetColumn は列を置き換える。列が無ければ末尾に追加する。
func (f *Frame) SetColumn(name string, values []string) error {
	if len(values) != len(f.records) {
		return errors.NewDimensionError("frame.SetColumn", len(f.records), len(values), 0)
	}
	j, ok := f.index[name]
	if !ok {
		j = len(f.header)
		f.header = append(f.header, name)
		f.index[name] = j
		for i := range f.records {
			f.records[i] = append(f.records[i], values[i])
		}
		return nil
	}
	for i := range f.records {
		f.records[i][j] = values[i]
	}
	return nil
}

// SetFloatColumn は数値列を FormatFloat の表記で設定する
func (f *Frame) SetFloatColumn(name string, values []float64) error {
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = FormatFloat(v)
	}
	return f.SetColumn(name, cells)
}

// FormatFloat は浮動小数点数を最短の往復可能な表記で文字列にする。
// 整数値は "2.0"、NaN は空セル、±Inf は "inf"/"-inf"、
// 絶対値が 1e-4 未満または 1e16 以上なら指数表記になる。
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// DropDuplicates は前の行と全てのセルが一致する行を削除し、削除数を返す（最初の行を残す）。
// 比較は生のセル文字列で行うため、pandas と違い "1" と "1.0" は別の値として扱う。
func (f *Frame) DropDuplicates() int {
	seen := make(map[string]struct{}, len(f.records))
	kept := f.records[:0]
	var key strings.Builder
	for _, rec := range f.records {
		key.Reset()
		for _, cell := range rec {
			key.WriteString(strconv.Itoa(len(cell)))
			key.WriteByte(':')
			key.WriteString(cell)
		}
		k := key.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, rec)
	}
	removed := len(f.records) - len(kept)
	f.records = kept
	return removed
}

// DropNA は欠損セルを1つでも含む行を削除し、削除数を返す
func (f *Frame) DropNA() int {
	kept := f.records[:0]
	for _, rec := range f.records {
		if !hasNA(rec) {
			kept = append(kept, rec)
		}
	}
	removed := len(f.records) - len(kept)
	f.records = kept
	return removed
}

func hasNA(rec []string) bool {
	for _, cell := range rec {
		if IsNA(cell) {
			return true
		}
	}
	return false
}

// CountNA は欠損セルを含む行数を返す
func (f *Frame) CountNA() int {
	n := 0
	for _, rec := range f.records {
		if hasNA(rec) {
			n++
		}
	}
	return n
}
