package tree

import "math"

// featureThreshold より近い隣接値の間では分割しない
const featureThreshold = 1e-7

// impurityEpsilon 以下の不純度のノードは純粋とみなす
const impurityEpsilon = 1e-12

// criterion はノードの値と不純度、および最良分割の探索を担う
type criterion interface {
	// node はノードの予測値と不純度を返す
	node(idx []int) (value []float64, impurity float64)

	// bestSplit は特徴量値でソート済みの idx について、子ノードの
	// 重み付き不純度の和（n_left*imp_left + n_right*imp_right）が最小となる
	// 位置 pos（左は idx[:pos]）を返す
	bestSplit(sorted []int, col []float64, minLeaf int) (pos int, childImpurity float64, ok bool)
}

// validBoundary は sorted[i-1] と sorted[i] の間で分割できるかどうか
func validBoundary(sorted []int, col []float64, i, minLeaf int) bool {
	if i < minLeaf || len(sorted)-i < minLeaf {
		return false
	}
	return col[sorted[i]] > col[sorted[i-1]]+featureThreshold
}

// squaredError は回帰木の二乗誤差基準
type squaredError struct {
	y []float64
}

func (c *squaredError) node(idx []int) ([]float64, float64) {
	var sum, sumSq float64
	for _, i := range idx {
		sum += c.y[i]
		sumSq += c.y[i] * c.y[i]
	}
	n := float64(len(idx))
	mean := sum / n
	impurity := sumSq/n - mean*mean
	if impurity < 0 {
		impurity = 0
	}
	return []float64{mean}, impurity
}

func (c *squaredError) bestSplit(sorted []int, col []float64, minLeaf int) (int, float64, bool) {
	var totalSum, totalSq float64
	for _, i := range sorted {
		totalSum += c.y[i]
		totalSq += c.y[i] * c.y[i]
	}

	n := len(sorted)
	best, bestPos, found := math.Inf(1), 0, false
	var leftSum, leftSq float64
	for i := 1; i < n; i++ {
		v := c.y[sorted[i-1]]
		leftSum += v
		leftSq += v * v
		if !validBoundary(sorted, col, i, minLeaf) {
			continue
		}
		nl, nr := float64(i), float64(n-i)
		rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
		child := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
		if child < best {
			best, bestPos, found = child, i, true
		}
	}
	return bestPos, best, found
}

// classImpurity は分類木のジニ不純度・エントロピー基準
type classImpurity struct {
	y        []int // クラスインデックス
	nClasses int
	entropy  bool
}

// weighted は n * impurity(counts) を返す
func (c *classImpurity) weighted(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	if c.entropy {
		var h float64
		for _, k := range counts {
			if k > 0 {
				h -= k * math.Log2(k/n)
			}
		}
		return h
	}
	var sq float64
	for _, k := range counts {
		sq += k * k
	}
	return n - sq/n
}

func (c *classImpurity) node(idx []int) ([]float64, float64) {
	counts := make([]float64, c.nClasses)
	for _, i := range idx {
		counts[c.y[i]]++
	}
	n := float64(len(idx))
	impurity := c.weighted(counts, n) / n
	for k := range counts {
		counts[k] /= n
	}
	return counts, impurity
}

func (c *classImpurity) bestSplit(sorted []int, col []float64, minLeaf int) (int, float64, bool) {
	total := make([]float64, c.nClasses)
	for _, i := range sorted {
		total[c.y[i]]++
	}
	left := make([]float64, c.nClasses)
	right := make([]float64, c.nClasses)

	n := len(sorted)
	best, bestPos, found := math.Inf(1), 0, false
	for i := 1; i < n; i++ {
		left[c.y[sorted[i-1]]]++
		if !validBoundary(sorted, col, i, minLeaf) {
			continue
		}
		for k := range right {
			right[k] = total[k] - left[k]
		}
		child := c.weighted(left, float64(i)) + c.weighted(right, float64(n-i))
		if child < best {
			best, bestPos, found = child, i, true
		}
	}
	return bestPos, best, found
}
