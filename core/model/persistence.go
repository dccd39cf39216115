package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	perrors "github.com/YuminosukeSato/popforest/pkg/errors"
)

// SaveModel はモデルをgob形式でファイルに保存する
//
// 保存先の親ディレクトリが無ければ作成する。
//
// 使用例:
//
//	rf := ensemble.NewRandomForestRegressor(ensemble.WithNEstimators(100))
//	// ... モデルの学習 ...
//	err := model.SaveModel(rf, "models/spotify_model_v1.gob")
func SaveModel(model interface{}, filename string) (err error) {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create file %s", filename)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "failed to close file %s", filename)
		}
	}()

	return SaveModelToWriter(model, file)
}

// LoadModel はgob形式のファイルからモデルを読み込む
//
// ファイルが存在しない場合はFileNotFoundErrorを返す。
//
// 使用例:
//
//	var rf ensemble.RandomForestClassifier
//	err := model.LoadModel(&rf, "models/model.gob")
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return perrors.NewFileNotFoundError("LoadModel", filename)
		}
		return errors.Wrapf(err, "failed to open file %s", filename)
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
