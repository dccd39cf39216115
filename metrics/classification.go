package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/pkg/errors"
)

// Accuracy は正解ラベルと一致した予測の割合を返す
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ConfusionCounts は二値分類の混同行列の各セルを数える。positive が陽性クラス。
func ConfusionCounts(yTrue, yPred *mat.VecDense, positive float64) (tp, fp, tn, fn int, err error) {
	n, err := checkPair("ConfusionCounts", yTrue, yPred)
	if err != nil {
		return 0, 0, 0, 0, errors.WithStack(err)
	}
	for i := 0; i < n; i++ {
		actual := yTrue.AtVec(i) == positive
		predicted := yPred.AtVec(i) == positive
		switch {
		case actual && predicted:
			tp++
		case !actual && predicted:
			fp++
		case !actual && !predicted:
			tn++
		default:
			fn++
		}
	}
	return tp, fp, tn, fn, nil
}
