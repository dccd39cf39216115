package model

import (
	"gonum.org/v1/gonum/mat"

	perrors "github.com/YuminosukeSato/popforest/pkg/errors"
)

// Transformer は特徴量を学習データの統計で変換する前処理器
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// InverseTransformer は元のスケールに戻せる Transformer
type InverseTransformer interface {
	Transformer
	InverseTransform(X mat.Matrix) (mat.Matrix, error)
}

// FitApply は t を train だけで学習し、train と test の両方を変換する。
// test の統計が学習に漏れないよう、Fit は train にのみ呼ばれる。
func FitApply(t Transformer, train, test mat.Matrix) (mat.Matrix, mat.Matrix, error) {
	trainOut, err := t.FitTransform(train)
	if err != nil {
		return nil, nil, perrors.Wrap(err, "fit transformer")
	}
	testOut, err := t.Transform(test)
	if err != nil {
		return nil, nil, perrors.Wrap(err, "apply transformer")
	}
	return trainOut, testOut, nil
}
