package estimators

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// TreeNode is a node of a fitted decision tree. Leaves carry a class label
// for classification trees and a value for regression trees.
type TreeNode struct {
	IsLeaf       bool
	Class        float64
	Value        float64
	ClassCounts  map[float64]int
	FeatureIndex int
	Threshold    float64
	Left         *TreeNode
	Right        *TreeNode
	SamplesCount int
	Depth        int
}

// DecisionTree is a CART classifier splitting on gini impurity.
type DecisionTree struct {
	Root            *TreeNode
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	NumFeatures     int
	Classes         []float64
}

// NewDecisionTree creates a tree; non-positive settings fall back to
// defaults.
func NewDecisionTree(maxDepth, minSamplesSplit, minSamplesLeaf int) *DecisionTree {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	if minSamplesSplit <= 0 {
		minSamplesSplit = 2
	}
	if minSamplesLeaf <= 0 {
		minSamplesLeaf = 1
	}
	return &DecisionTree{
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
		MinSamplesLeaf:  minSamplesLeaf,
	}
}

func (dt *DecisionTree) Fit(X mat.Matrix, y []float64) error {
	if _, _, err := checkTraining(X, y); err != nil {
		return err
	}
	dt.fitRows(rows(X), y)
	return nil
}

func (dt *DecisionTree) fitRows(X [][]float64, y []float64) {
	dt.NumFeatures = len(X[0])
	dt.Classes = classesOf(y)
	indices := make([]int, len(X))
	for i := range indices {
		indices[i] = i
	}
	dt.Root = dt.buildTree(X, y, indices, 0)
}

func (dt *DecisionTree) buildTree(X [][]float64, y []float64, indices []int, depth int) *TreeNode {
	counts := make(map[float64]int)
	for _, idx := range indices {
		counts[y[idx]]++
	}
	class, _ := majority(counts)
	node := &TreeNode{
		IsLeaf:       true,
		Class:        class,
		ClassCounts:  counts,
		SamplesCount: len(indices),
		Depth:        depth,
	}

	if depth >= dt.MaxDepth || len(indices) < dt.MinSamplesSplit || len(counts) == 1 {
		return node
	}

	feature, threshold, gain := bestSplit(X, indices, dt.NumFeatures, func(left, right []int) float64 {
		n := float64(len(indices))
		return gini(y, indices) -
			(float64(len(left))/n)*gini(y, left) -
			(float64(len(right))/n)*gini(y, right)
	})
	if gain <= 0 {
		return node
	}

	left, right := partition(X, indices, feature, threshold)
	if len(left) < dt.MinSamplesLeaf || len(right) < dt.MinSamplesLeaf {
		return node
	}

	node.IsLeaf = false
	node.FeatureIndex = feature
	node.Threshold = threshold
	node.Left = dt.buildTree(X, y, left, depth+1)
	node.Right = dt.buildTree(X, y, right, depth+1)
	return node
}

func (dt *DecisionTree) Predict(X mat.Matrix) ([]float64, error) {
	if dt.Root == nil {
		return nil, ErrNotFitted
	}
	r, c := X.Dims()
	if c != dt.NumFeatures {
		return nil, errors.Wrapf(ErrShape, "expected %d features, got %d", dt.NumFeatures, c)
	}
	out := make([]float64, r)
	for i, row := range rows(X) {
		out[i] = leaf(dt.Root, row).Class
	}
	return out, nil
}

func leaf(node *TreeNode, x []float64) *TreeNode {
	for !node.IsLeaf {
		if x[node.FeatureIndex] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

// regressionTree fits a variance-reducing tree on continuous targets. It
// backs gradient boosting.
type regressionTree struct {
	maxDepth       int
	minSamplesLeaf int
	numFeatures    int
}

func (rt regressionTree) build(X [][]float64, y []float64, indices []int, depth int) *TreeNode {
	node := &TreeNode{
		IsLeaf:       true,
		Value:        meanAt(y, indices),
		SamplesCount: len(indices),
		Depth:        depth,
	}
	if depth >= rt.maxDepth || len(indices) < 2*rt.minSamplesLeaf {
		return node
	}

	feature, threshold, gain := bestSplit(X, indices, rt.numFeatures, func(left, right []int) float64 {
		return sse(y, indices) - sse(y, left) - sse(y, right)
	})
	if gain <= 1e-12 {
		return node
	}

	left, right := partition(X, indices, feature, threshold)
	if len(left) < rt.minSamplesLeaf || len(right) < rt.minSamplesLeaf {
		return node
	}

	node.IsLeaf = false
	node.FeatureIndex = feature
	node.Threshold = threshold
	node.Left = rt.build(X, y, left, depth+1)
	node.Right = rt.build(X, y, right, depth+1)
	return node
}

// bestSplit scans midpoints between consecutive distinct values of every
// feature and returns the split with the highest gain. The first split seen
// wins ties.
func bestSplit(X [][]float64, indices []int, numFeatures int, gain func(left, right []int) float64) (int, float64, float64) {
	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0
	values := make([]float64, len(indices))
	for feature := 0; feature < numFeatures; feature++ {
		for i, idx := range indices {
			values[i] = X[idx][feature]
		}
		for _, threshold := range thresholds(values) {
			left, right := partition(X, indices, feature, threshold)
			if len(left) == 0 || len(right) == 0 {
				continue
			}
			if g := gain(left, right); g > bestGain {
				bestFeature, bestThreshold, bestGain = feature, threshold, g
			}
		}
	}
	return bestFeature, bestThreshold, bestGain
}

func thresholds(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var out []float64
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			out = append(out, (sorted[i]+sorted[i-1])/2)
		}
	}
	return out
}

func partition(X [][]float64, indices []int, feature int, threshold float64) (left, right []int) {
	for _, idx := range indices {
		if X[idx][feature] <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

func gini(y []float64, indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	counts := make(map[float64]int)
	for _, idx := range indices {
		counts[y[idx]]++
	}
	classes := make([]float64, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Float64s(classes)

	n := float64(len(indices))
	impurity := 1.0
	for _, c := range classes {
		p := float64(counts[c]) / n
		impurity -= p * p
	}
	return impurity
}

func meanAt(y []float64, indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	sum := 0.0
	for _, idx := range indices {
		sum += y[idx]
	}
	return sum / float64(len(indices))
}

func sse(y []float64, indices []int) float64 {
	m := meanAt(y, indices)
	total := 0.0
	for _, idx := range indices {
		d := y[idx] - m
		total += d * d
	}
	return total
}
