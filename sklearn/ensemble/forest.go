package ensemble

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/popforest/core/parallel"
	"github.com/YuminosukeSato/popforest/pkg/errors"
	"github.com/YuminosukeSato/popforest/pkg/log"
	"github.com/YuminosukeSato/popforest/sklearn/tree"
)

// predictThreshold 行以下の予測は逐次で行う
const predictThreshold = 256

// leafModel は学習済みの木1本
type leafModel interface {
	LeafValue(x []float64) []float64
}

// treeSeeds は random_state から木ごとのシードを導出する
func treeSeeds(randomState int64, n int) []int64 {
	seed := uint64(randomState)
	rng := rand.New(rand.NewPCG(seed, seed))
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = rng.Int64()
	}
	return seeds
}

// bootstrapIndices は n 行から重複ありで n 個を抽出する
func bootstrapIndices(n int, seed int64) []int {
	s := uint64(seed)
	rng := rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.IntN(n)
	}
	return idx
}

// fitTrees は nTrees 本の木を n_jobs 並列で学習する。
// fitOne は i 番目の木をシード seed・標本 indices で学習する。
func fitTrees(
	ctx context.Context,
	p *forestParams,
	nSamples int,
	fitOne func(i int, seed int64, indices []int) error,
) error {
	seeds := treeSeeds(p.RandomState, p.NEstimators)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel.Workers(p.NJobs))
	for i, seed := range seeds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var indices []int
			if p.Bootstrap {
				indices = bootstrapIndices(nSamples, seed)
			}
			// ワーカー内のpanicはプロセスを落とさずエラーとして返す
			err := errors.SafeExecute("fit tree", func() error {
				return fitOne(i, seed, indices)
			})
			if err != nil {
				return errors.Wrapf(err, "tree %d", i)
			}
			return nil
		})
	}
	return g.Wait()
}

// averageLeaves は各行について全ての木の葉の値を平均し、rows × width の行列を返す
func averageLeaves(X mat.Matrix, trees []leafModel, width, nJobs int) *mat.Dense {
	r, c := X.Dims()
	out := mat.NewDense(r, width, nil)
	inv := 1 / float64(len(trees))

	parallel.ParallelizeWithThreshold(r, predictThreshold, parallel.Workers(nJobs), func(start, end int) {
		row := make([]float64, c)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			acc := out.RawRowView(i)
			for _, t := range trees {
				for k, v := range t.LeafValue(row) {
					acc[k] += v
				}
			}
			for k := range acc {
				acc[k] *= inv
			}
		}
	})
	return out
}

// meanImportances は木ごとの重要度を平均し、和が1になるよう正規化する
func meanImportances(per [][]float64, nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	for _, imp := range per {
		for j, v := range imp {
			out[j] += v
		}
	}
	var total float64
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}

func logFitted(name string, p *forestParams, ds *tree.Dataset, started time.Time) {
	log.GetLoggerWithName("ensemble").Info("forest fitted",
		log.ModelNameKey, name,
		log.OperationKey, log.OperationFit,
		log.TreesKey, p.NEstimators,
		log.SamplesKey, ds.NSamples(),
		log.FeaturesKey, ds.NFeatures(),
		log.RandomSeedKey, p.RandomState,
		log.DurationMsKey, time.Since(started).Milliseconds(),
	)
}
