package ml

import (
	"fmt"
	"math/rand"
	"sort"
)

// TreeNode is one node of a flattened CART tree. Leaves have Feature == -1
// and carry the class distribution of the training samples that reached them.
type TreeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      int       `json:"left,omitempty"`
	Right     int       `json:"right,omitempty"`
	Value     []float64 `json:"value,omitempty"`
}

// IsLeaf reports whether the node is terminal.
func (n TreeNode) IsLeaf() bool {
	return n.Feature < 0
}

// DecisionTree is a gini-split classification tree stored in pre-order, so
// every child index is greater than its parent's.
type DecisionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

type treeParams struct {
	maxDepth        int
	minSamplesSplit int
	maxFeatures     int
}

type treeBuilder struct {
	x         [][]float64
	y         []int
	nClasses  int
	nFeatures int
	params    treeParams
	rnd       *rand.Rand
	nodes     []TreeNode
}

// fitTree grows a tree over the rows selected by idx; idx may repeat rows.
func fitTree(x [][]float64, y []int, idx []int, nClasses int, params treeParams, rnd *rand.Rand) DecisionTree {
	b := &treeBuilder{
		x:         x,
		y:         y,
		nClasses:  nClasses,
		nFeatures: len(x[0]),
		params:    params,
		rnd:       rnd,
	}
	b.build(idx, 0)
	return DecisionTree{Nodes: b.nodes}
}

func (b *treeBuilder) build(idx []int, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Feature: -1})

	counts := b.classCounts(idx)
	stop := len(idx) < b.params.minSamplesSplit ||
		isPure(counts) ||
		(b.params.maxDepth > 0 && depth >= b.params.maxDepth)

	if !stop {
		if feature, threshold, ok := b.bestSplit(idx); ok {
			var left, right []int
			for _, i := range idx {
				if b.x[i][feature] <= threshold {
					left = append(left, i)
				} else {
					right = append(right, i)
				}
			}
			l := b.build(left, depth+1)
			r := b.build(right, depth+1)
			b.nodes[id] = TreeNode{Feature: feature, Threshold: threshold, Left: l, Right: r}
			return id
		}
	}

	b.nodes[id].Value = distribution(counts, len(idx))
	return id
}

// bestSplit samples maxFeatures candidate features and returns the threshold
// with the lowest weighted gini. When none of the sampled features can split
// the node, the remaining features are tried before giving up.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	order := b.rnd.Perm(b.nFeatures)
	limit := b.params.maxFeatures
	if limit <= 0 || limit > b.nFeatures {
		limit = b.nFeatures
	}

	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := 0.0

	sorted := make([]int, len(idx))
	left := make([]int, b.nClasses)
	right := make([]int, b.nClasses)

	for visited, feature := range order {
		if visited >= limit && bestFeature >= 0 {
			break
		}

		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.x[sorted[i]][feature] < b.x[sorted[j]][feature]
		})

		for c := range left {
			left[c] = 0
			right[c] = 0
		}
		for _, i := range sorted {
			right[b.y[i]]++
		}

		n := len(sorted)
		for pos := 0; pos < n-1; pos++ {
			cls := b.y[sorted[pos]]
			left[cls]++
			right[cls]--

			lo := b.x[sorted[pos]][feature]
			hi := b.x[sorted[pos+1]][feature]
			if lo >= hi {
				continue
			}

			nl, nr := pos+1, n-pos-1
			impurity := (float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)) / float64(n)
			if bestFeature < 0 || impurity < bestImpurity {
				threshold := lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				bestFeature = feature
				bestThreshold = threshold
				bestImpurity = impurity
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func (b *treeBuilder) classCounts(idx []int) []int {
	counts := make([]int, b.nClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	return counts
}

// predictProba walks the tree to the leaf for x.
func (t *DecisionTree) predictProba(x []float64) []float64 {
	i := 0
	for {
		n := t.Nodes[i]
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

// validate checks the structural invariants a loaded tree must satisfy for
// predictProba to terminate without indexing out of range.
func (t *DecisionTree) validate(nFeatures, nClasses int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i, n := range t.Nodes {
		if n.IsLeaf() {
			if len(n.Value) != nClasses {
				return fmt.Errorf("leaf %d has %d class weights, want %d", i, len(n.Value), nClasses)
			}
			continue
		}
		if n.Feature >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d of %d", i, n.Feature, nFeatures)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children (%d, %d)", i, n.Left, n.Right)
		}
	}
	return nil
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		sum += p * p
	}
	return 1 - sum
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func distribution(counts []int, n int) []float64 {
	out := make([]float64, len(counts))
	if n == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = float64(c) / float64(n)
	}
	return out
}
