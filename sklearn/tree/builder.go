package tree

import (
	"math/rand/v2"
	"slices"
)

// Node は学習済みの木の1ノード。葉は Left == -1。
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     []float64
	Impurity  float64
	NSamples  int
}

// IsLeaf は葉ノードかどうかを返す
func (n *Node) IsLeaf() bool { return n.Left < 0 }

// fittedTree は学習結果（ノード配列と統計）
type fittedTree struct {
	nodes       []Node
	importances []float64
	depth       int
	nLeaves     int
}

// leaf は行 x が到達する葉の値を返す
func (t *fittedTree) leaf(x []float64) []float64 {
	i := 0
	for {
		n := &t.nodes[i]
		if n.IsLeaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type builder struct {
	ds          *Dataset
	crit        criterion
	p           params
	maxFeatures int
	rng         *rand.Rand
	tree        fittedTree
}

func newBuilder(ds *Dataset, crit criterion, p params) *builder {
	seed := uint64(p.randomState)
	return &builder{
		ds:          ds,
		crit:        crit,
		p:           p,
		maxFeatures: p.resolveMaxFeatures(ds.nFeatures),
		rng:         rand.New(rand.NewPCG(seed, seed)),
		tree:        fittedTree{importances: make([]float64, ds.nFeatures)},
	}
}

// build はサンプル idx（重複可）から木を構築する
func (b *builder) build(idx []int) fittedTree {
	b.grow(idx, 0)

	var total float64
	for _, v := range b.tree.importances {
		total += v
	}
	if total > 0 {
		for j := range b.tree.importances {
			b.tree.importances[j] /= total
		}
	}
	return b.tree
}

func (b *builder) grow(idx []int, depth int) int {
	value, impurity := b.crit.node(idx)
	id := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, Node{
		Feature:  -1,
		Left:     -1,
		Right:    -1,
		Value:    value,
		Impurity: impurity,
		NSamples: len(idx),
	})
	if depth > b.tree.depth {
		b.tree.depth = depth
	}

	n := len(idx)
	if (b.p.maxDepth > 0 && depth >= b.p.maxDepth) ||
		n < b.p.minSamplesSplit ||
		n < 2*b.p.minSamplesLeaf ||
		impurity <= impurityEpsilon {
		b.tree.nLeaves++
		return id
	}

	feature, pos, child, ok := b.findSplit(idx)
	if !ok {
		b.tree.nLeaves++
		return id
	}

	col := b.ds.cols[feature]
	sortByFeature(idx, col)
	threshold := (col[idx[pos-1]] + col[idx[pos]]) / 2
	if threshold >= col[idx[pos]] {
		threshold = col[idx[pos-1]]
	}

	b.tree.importances[feature] += float64(n)*impurity - child

	left := slices.Clone(idx[:pos])
	right := slices.Clone(idx[pos:])
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)

	node := &b.tree.nodes[id]
	node.Feature = feature
	node.Threshold = threshold
	node.Left = l
	node.Right = r
	return id
}

// findSplit は max_features 個の特徴量を無作為に選んで最良の分割を探す。
// 有効な分割が見つからなければ残りの特徴量も調べる。
func (b *builder) findSplit(idx []int) (feature, pos int, child float64, ok bool) {
	nf := b.ds.nFeatures
	order := make([]int, nf)
	if b.maxFeatures < nf {
		order = b.rng.Perm(nf)
	} else {
		for j := range order {
			order[j] = j
		}
	}

	scratch := make([]int, len(idx))
	best := 0.0
	for k, j := range order {
		if k >= b.maxFeatures && ok {
			break
		}
		col := b.ds.cols[j]
		copy(scratch, idx)
		sortByFeature(scratch, col)
		p, c, found := b.crit.bestSplit(scratch, col, b.p.minSamplesLeaf)
		if found && (!ok || c < best) {
			feature, pos, best, ok = j, p, c, true
		}
	}
	return feature, pos, best, ok
}

func sortByFeature(idx []int, col []float64) {
	slices.SortFunc(idx, func(a, b int) int {
		switch {
		case col[a] < col[b]:
			return -1
		case col[a] > col[b]:
			return 1
		default:
			return a - b
		}
	})
}
