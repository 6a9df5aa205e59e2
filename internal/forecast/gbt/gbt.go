// Package gbt implements gradient-boosted regression trees: squared-error
// boosting over depth-limited CART trees with exact greedy splits. Training
// is deterministic for a given input.
package gbt

import (
	"errors"
	"math"
	"sort"
)

type Params struct {
	NumTrees       int
	LearningRate   float64
	MaxDepth       int
	MinSamplesLeaf int
}

func (p Params) withDefaults() Params {
	if p.NumTrees <= 0 {
		p.NumTrees = 100
	}
	if p.LearningRate <= 0 {
		p.LearningRate = 0.1
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = 6
	}
	if p.MinSamplesLeaf <= 0 {
		p.MinSamplesLeaf = 20
	}
	return p
}

type Model struct {
	base        float64
	trees       []*node
	lr          float64
	numFeatures int
	splitCounts []int
}

type node struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *node
	right     *node
}

var (
	ErrNoData          = errors.New("no training data")
	ErrShapeMismatch   = errors.New("feature matrix and target length mismatch")
	ErrRaggedFeatures  = errors.New("feature rows have differing lengths")
	ErrUntrainedModel  = errors.New("model has not been trained")
	ErrFeatureMismatch = errors.New("feature vector length does not match training data")
)

// Train fits a boosted ensemble on X, y. Each tree fits the residuals of the
// running prediction and contributes LearningRate times its output.
func Train(X [][]float64, y []float64, p Params) (*Model, error) {
	if len(X) == 0 {
		return nil, ErrNoData
	}
	if len(X) != len(y) {
		return nil, ErrShapeMismatch
	}
	numFeatures := len(X[0])
	for _, row := range X {
		if len(row) != numFeatures {
			return nil, ErrRaggedFeatures
		}
	}
	p = p.withDefaults()

	m := &Model{
		base:        mean(y),
		lr:          p.LearningRate,
		numFeatures: numFeatures,
		splitCounts: make([]int, numFeatures),
	}

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = m.base
	}
	residual := make([]float64, len(y))
	indices := make([]int, len(y))
	for i := range indices {
		indices[i] = i
	}

	for t := 0; t < p.NumTrees; t++ {
		for i := range y {
			residual[i] = y[i] - pred[i]
		}

		root := buildTree(X, residual, indices, 0, p, m.splitCounts)
		m.trees = append(m.trees, root)

		for i := range pred {
			pred[i] += m.lr * predictNode(root, X[i])
		}
	}
	return m, nil
}

func (m *Model) Predict(features []float64) (float64, error) {
	if m == nil || len(m.trees) == 0 {
		return 0, ErrUntrainedModel
	}
	if len(features) != m.numFeatures {
		return 0, ErrFeatureMismatch
	}
	out := m.base
	for _, t := range m.trees {
		out += m.lr * predictNode(t, features)
	}
	return out, nil
}

// SplitCounts returns how many times each feature was chosen as a split
// across the ensemble, indexed by feature position.
func (m *Model) SplitCounts() []int {
	out := make([]int, len(m.splitCounts))
	copy(out, m.splitCounts)
	return out
}

func (m *Model) NumFeatures() int { return m.numFeatures }

func buildTree(X [][]float64, target []float64, indices []int, depth int, p Params, splitCounts []int) *node {
	if depth >= p.MaxDepth || len(indices) < 2*p.MinSamplesLeaf {
		return leafNode(target, indices)
	}

	feature, threshold, gain := bestSplit(X, target, indices, p.MinSamplesLeaf)
	if gain <= 0 {
		return leafNode(target, indices)
	}

	var left, right []int
	for _, i := range indices {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return leafNode(target, indices)
	}
	splitCounts[feature]++

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      buildTree(X, target, left, depth+1, p, splitCounts),
		right:     buildTree(X, target, right, depth+1, p, splitCounts),
	}
}

// bestSplit scans every feature with a sorted sweep, tracking the SSE
// reduction of each candidate threshold via running sums.
func bestSplit(X [][]float64, target []float64, indices []int, minLeaf int) (feature int, threshold, gain float64) {
	n := len(indices)
	feature = -1

	var totalSum, totalSq float64
	for _, i := range indices {
		totalSum += target[i]
		totalSq += target[i] * target[i]
	}
	parentSSE := totalSq - totalSum*totalSum/float64(n)

	order := make([]int, n)
	for f := 0; f < len(X[indices[0]]); f++ {
		copy(order, indices)
		sort.Slice(order, func(a, b int) bool {
			return X[order[a]][f] < X[order[b]][f]
		})

		var leftSum float64
		for pos := 0; pos < n-1; pos++ {
			i := order[pos]
			leftSum += target[i]

			// No split between equal feature values.
			cur, next := X[i][f], X[order[pos+1]][f]
			if cur == next {
				continue
			}
			leftN := pos + 1
			rightN := n - leftN
			if leftN < minLeaf || rightN < minLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			childSSE := totalSq -
				leftSum*leftSum/float64(leftN) -
				rightSum*rightSum/float64(rightN)
			g := parentSSE - childSSE
			if g > gain {
				gain = g
				feature = f
				threshold = cur + (next-cur)/2
			}
		}
	}
	if feature < 0 {
		return -1, 0, 0
	}
	return feature, threshold, gain
}

func leafNode(target []float64, indices []int) *node {
	var sum float64
	for _, i := range indices {
		sum += target[i]
	}
	return &node{leaf: true, value: sum / float64(len(indices))}
}

func predictNode(n *node, features []float64) float64 {
	for !n.leaf {
		if features[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	out := sum / float64(len(xs))
	if math.IsNaN(out) {
		return 0
	}
	return out
}
