package estimators

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// RandomForest is a bagged ensemble of decision trees, each grown on a
// bootstrap sample and a random subset of features. Trees are grown one
// after another from a single seeded source.
type RandomForest struct {
	Trees           []*DecisionTree
	TreeFeatures    [][]int
	NumTrees        int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	NumFeatures     int
	Seed            int64
}

func NewRandomForest(numTrees, maxDepth, minSamplesSplit, minSamplesLeaf int, seed int64) *RandomForest {
	if numTrees <= 0 {
		numTrees = 100
	}
	return &RandomForest{
		NumTrees:        numTrees,
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
		MinSamplesLeaf:  minSamplesLeaf,
		Seed:            seed,
	}
}

func (rf *RandomForest) Fit(X mat.Matrix, y []float64) error {
	n, c, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	data := rows(X)
	rng := rand.New(rand.NewSource(rf.Seed))

	rf.NumFeatures = c
	rf.MaxFeatures = int(math.Sqrt(float64(c)))
	if rf.MaxFeatures < 1 {
		rf.MaxFeatures = 1
	}

	rf.Trees = make([]*DecisionTree, rf.NumTrees)
	rf.TreeFeatures = make([][]int, rf.NumTrees)
	for t := 0; t < rf.NumTrees; t++ {
		features := rng.Perm(c)[:rf.MaxFeatures]

		bootX := make([][]float64, n)
		bootY := make([]float64, n)
		for i := 0; i < n; i++ {
			idx := rng.Intn(n)
			bootX[i] = project(data[idx], features)
			bootY[i] = y[idx]
		}

		tree := NewDecisionTree(rf.MaxDepth, rf.MinSamplesSplit, rf.MinSamplesLeaf)
		tree.fitRows(bootX, bootY)
		rf.Trees[t] = tree
		rf.TreeFeatures[t] = features
	}
	return nil
}

// Predict returns the majority vote of the trees; ties go to the smallest
// label.
func (rf *RandomForest) Predict(X mat.Matrix) ([]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, ErrNotFitted
	}
	r, c := X.Dims()
	if c != rf.NumFeatures {
		return nil, errors.Wrapf(ErrShape, "expected %d features, got %d", rf.NumFeatures, c)
	}

	out := make([]float64, r)
	for i, row := range rows(X) {
		votes := make(map[float64]int)
		for t, tree := range rf.Trees {
			votes[leaf(tree.Root, project(row, rf.TreeFeatures[t])).Class]++
		}
		out[i], _ = majority(votes)
	}
	return out, nil
}

func project(row []float64, features []int) []float64 {
	out := make([]float64, len(features))
	for k, j := range features {
		out[k] = row[j]
	}
	return out
}
