package tree

import (
	"math"

	"github.com/YuminosukeSato/popforest/pkg/errors"
)

// params は回帰木・分類木で共通のハイパーパラメータ
type params struct {
	criterion       string
	maxDepth        int // 0以下は無制限
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string // "", "all", "sqrt", "log2"
	maxFeaturesN    int    // >0 のとき maxFeatures より優先
	randomState     int64
}

func defaultParams(criterion string) params {
	return params{
		criterion:       criterion,
		maxDepth:        0,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		randomState:     0,
	}
}

// Option は決定木のハイパーパラメータを設定する関数
type Option func(*params)

// WithCriterion は分割基準を設定する。
// 分類木は "gini" または "entropy"、回帰木は "squared_error"。
func WithCriterion(criterion string) Option {
	return func(p *params) { p.criterion = criterion }
}

// WithMaxDepth は木の最大深さを設定する（0以下は無制限）
func WithMaxDepth(depth int) Option {
	return func(p *params) { p.maxDepth = depth }
}

// WithMinSamplesSplit は内部ノードを分割するのに必要な最小サンプル数を設定する
func WithMinSamplesSplit(n int) Option {
	return func(p *params) { p.minSamplesSplit = n }
}

// WithMinSamplesLeaf は葉に必要な最小サンプル数を設定する
func WithMinSamplesLeaf(n int) Option {
	return func(p *params) { p.minSamplesLeaf = n }
}

// WithMaxFeatures は各分割で検討する特徴量の数を設定する（0以下は全特徴量）
func WithMaxFeatures(n int) Option {
	return func(p *params) {
		p.maxFeaturesN = n
		p.maxFeatures = ""
	}
}

// WithMaxFeaturesMode は "sqrt"・"log2"・"all" で特徴量数を指定する
func WithMaxFeaturesMode(mode string) Option {
	return func(p *params) {
		p.maxFeatures = mode
		p.maxFeaturesN = 0
	}
}

// WithRandomState は特徴量サンプリングの乱数シードを設定する
func WithRandomState(seed int64) Option {
	return func(p *params) { p.randomState = seed }
}

func (p *params) validate(allowed ...string) error {
	ok := false
	for _, c := range allowed {
		if p.criterion == c {
			ok = true
			break
		}
	}
	if !ok {
		return errors.NewValidationError("criterion", "unsupported criterion", p.criterion)
	}
	if p.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", p.minSamplesSplit)
	}
	if p.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", p.minSamplesLeaf)
	}
	switch p.maxFeatures {
	case "", "all", "sqrt", "log2":
	default:
		return errors.NewValidationError("max_features", "must be sqrt, log2 or all", p.maxFeatures)
	}
	return nil
}

// resolveMaxFeatures は分割ごとに検討する特徴量数を返す
func (p *params) resolveMaxFeatures(nFeatures int) int {
	k := nFeatures
	switch {
	case p.maxFeaturesN > 0:
		k = p.maxFeaturesN
	case p.maxFeatures == "sqrt":
		k = int(math.Sqrt(float64(nFeatures)))
	case p.maxFeatures == "log2":
		k = int(math.Log2(float64(nFeatures)))
	}
	if k < 1 {
		k = 1
	}
	if k > nFeatures {
		k = nFeatures
	}
	return k
}

func (p *params) toMap() map[string]interface{} {
	var maxFeatures interface{} = p.maxFeatures
	if p.maxFeaturesN > 0 {
		maxFeatures = p.maxFeaturesN
	}
	return map[string]interface{}{
		"criterion":         p.criterion,
		"max_depth":         p.maxDepth,
		"min_samples_split": p.minSamplesSplit,
		"min_samples_leaf":  p.minSamplesLeaf,
		"max_features":      maxFeatures,
		"random_state":      p.randomState,
	}
}

func toInt(name string, v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, errors.NewValidationError(name, "must be an integer", v)
		}
		return int(x), nil
	case nil:
		return 0, nil
	default:
		return 0, errors.NewValidationError(name, "must be an integer", v)
	}
}

func (p *params) set(values map[string]interface{}) error {
	next := *p
	for key, v := range values {
		switch key {
		case "criterion":
			s, ok := v.(string)
			if !ok {
				return errors.NewValidationError(key, "must be a string", v)
			}
			next.criterion = s
		case "max_depth":
			n, err := toInt(key, v)
			if err != nil {
				return err
			}
			next.maxDepth = n
		case "min_samples_split":
			n, err := toInt(key, v)
			if err != nil {
				return err
			}
			next.minSamplesSplit = n
		case "min_samples_leaf":
			n, err := toInt(key, v)
			if err != nil {
				return err
			}
			next.minSamplesLeaf = n
		case "max_features":
			if s, ok := v.(string); ok {
				next.maxFeatures, next.maxFeaturesN = s, 0
				continue
			}
			n, err := toInt(key, v)
			if err != nil {
				return err
			}
			next.maxFeatures, next.maxFeaturesN = "", n
		case "random_state":
			n, err := toInt(key, v)
			if err != nil {
				return err
			}
			next.randomState = int64(n)
		default:
			return errors.NewValidationError(key, "unknown parameter", v)
		}
	}
	*p = next
	return nil
}
