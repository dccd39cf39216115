package ensemble

import (
	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/sklearn/tree"
)

// forestParams はフォレスト共通のハイパーパラメータ
type forestParams struct {
	NEstimators     int
	Criterion       string
	MaxDepth        int // 0以下は無制限
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string // "all", "sqrt", "log2"
	MaxFeaturesN    int    // >0 のとき MaxFeatures より優先
	Bootstrap       bool
	RandomState     int64
	NJobs           int // -1 は全CPU
}

func defaultForestParams(criterion, maxFeatures string) forestParams {
	return forestParams{
		NEstimators:     100,
		Criterion:       criterion,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     maxFeatures,
		Bootstrap:       true,
		NJobs:           1,
	}
}

// Option はフォレストのハイパーパラメータを設定する関数
type Option func(*forestParams)

// WithNEstimators は木の本数を設定する
func WithNEstimators(n int) Option { return func(p *forestParams) { p.NEstimators = n } }

// WithCriterion は分割基準を設定する
func WithCriterion(c string) Option { return func(p *forestParams) { p.Criterion = c } }

// WithMaxDepth は各木の最大深さを設定する（0以下は無制限）
func WithMaxDepth(d int) Option { return func(p *forestParams) { p.MaxDepth = d } }

// WithMinSamplesSplit は分割に必要な最小サンプル数を設定する
func WithMinSamplesSplit(n int) Option { return func(p *forestParams) { p.MinSamplesSplit = n } }

// WithMinSamplesLeaf は葉の最小サンプル数を設定する
func WithMinSamplesLeaf(n int) Option { return func(p *forestParams) { p.MinSamplesLeaf = n } }

// WithMaxFeatures は分割ごとに検討する特徴量数を設定する
func WithMaxFeatures(n int) Option {
	return func(p *forestParams) { p.MaxFeaturesN, p.MaxFeatures = n, "" }
}

// WithMaxFeaturesMode は "sqrt"・"log2"・"all" で特徴量数を指定する
func WithMaxFeaturesMode(mode string) Option {
	return func(p *forestParams) { p.MaxFeatures, p.MaxFeaturesN = mode, 0 }
}

// WithBootstrap はブートストラップ標本を使うかどうかを設定する
func WithBootstrap(b bool) Option { return func(p *forestParams) { p.Bootstrap = b } }

// WithRandomState は乱数シードを設定する
func WithRandomState(seed int64) Option { return func(p *forestParams) { p.RandomState = seed } }

// WithNJobs は学習・予測の並列数を設定する（-1 は全CPU）
func WithNJobs(n int) Option { return func(p *forestParams) { p.NJobs = n } }

func (p *forestParams) validate() error {
	if p.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be positive", p.NEstimators)
	}
	return nil
}

// treeOptions は木1本分のオプションを返す
func (p *forestParams) treeOptions(seed int64) []tree.Option {
	opts := []tree.Option{
		tree.WithCriterion(p.Criterion),
		tree.WithMaxDepth(p.MaxDepth),
		tree.WithMinSamplesSplit(p.MinSamplesSplit),
		tree.WithMinSamplesLeaf(p.MinSamplesLeaf),
		tree.WithRandomState(seed),
	}
	if p.MaxFeaturesN > 0 {
		opts = append(opts, tree.WithMaxFeatures(p.MaxFeaturesN))
	} else {
		opts = append(opts, tree.WithMaxFeaturesMode(p.MaxFeatures))
	}
	return opts
}

// GetParams はハイパーパラメータを返す
func (p *forestParams) GetParams() map[string]interface{} {
	var maxFeatures interface{} = p.MaxFeatures
	if p.MaxFeaturesN > 0 {
		maxFeatures = p.MaxFeaturesN
	}
	return map[string]interface{}{
		"n_estimators":      p.NEstimators,
		"criterion":         p.Criterion,
		"max_depth":         p.MaxDepth,
		"min_samples_split": p.MinSamplesSplit,
		"min_samples_leaf":  p.MinSamplesLeaf,
		"max_features":      maxFeatures,
		"bootstrap":         p.Bootstrap,
		"random_state":      p.RandomState,
		"n_jobs":            p.NJobs,
	}
}
