package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/popforest/pkg/errors"
)

// ReadCSV はヘッダー付きCSVファイルを読み込む。
//
// ファイルが無ければ FileNotFoundError、ヘッダーが無ければ ValueError を返す。
// ヘッダーより短い行は空セルで補い、長い行はエラーにする。
func ReadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFoundError("ReadCSV", path)
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	f, err := Read(file)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return f, nil
}

// Read は r からヘッダー付きCSVを読み込む
func Read(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.NewValueError("frame.Read", "no columns to parse from file")
	}
	if err != nil {
		return nil, errors.Wrap(err, "parse header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "parse record")
		}
		switch {
		case len(rec) > len(header):
			line, _ := cr.FieldPos(0)
			return nil, errors.NewValueError("frame.Read",
				fmt.Sprintf("line %d: expected %d fields, saw %d", line, len(header), len(rec)))
		case len(rec) < len(header):
			padded := make([]string, len(header))
			copy(padded, rec)
			rec = padded
		}
		records = append(records, rec)
	}

	return New(header, records)
}

// WriteCSV はヘッダーと全レコードを path に書き出す（インデックス列なし）。
// 親ディレクトリが無ければ作成する。
func (f *Frame) WriteCSV(path string) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create directory %s", dir)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return f.Write(file)
}

// Write はCSVを w に書き出す
func (f *Frame) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.header); err != nil {
		return errors.Wrap(err, "write header")
	}
	if err := cw.WriteAll(f.records); err != nil {
		return errors.Wrap(err, "write records")
	}
	return nil
}
