package estimators

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/sjwhitworth/golearn/metrics/pairwise"
	"gonum.org/v1/gonum/mat"
)

// KNeighbors is a k-nearest-neighbours classifier over golearn's Euclidean
// distance. The training rows are kept so the model survives serialization.
// Neighbours at equal distance are taken in training order and tied votes go
// to the lowest label, so predictions are deterministic.
type KNeighbors struct {
	K           int
	X           [][]float64
	Y           []float64
	Classes     []float64
	NumFeatures int
}

func NewKNeighbors(k int) *KNeighbors {
	if k <= 0 {
		k = 5
	}
	return &KNeighbors{K: k}
}

func (kn *KNeighbors) Fit(X mat.Matrix, y []float64) error {
	_, c, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	kn.X = rows(X)
	kn.Y = append([]float64(nil), y...)
	kn.Classes = classesOf(y)
	kn.NumFeatures = c
	return nil
}

type neighbour struct {
	index    int
	distance float64
}

func (kn *KNeighbors) Predict(X mat.Matrix) ([]float64, error) {
	if kn.X == nil {
		return nil, ErrNotFitted
	}
	r, c := X.Dims()
	if c != kn.NumFeatures {
		return nil, errors.Wrapf(ErrShape, "expected %d features, got %d", kn.NumFeatures, c)
	}

	train := make([]*mat.Dense, len(kn.X))
	if c > 0 {
		for i, row := range kn.X {
			train[i] = mat.NewDense(1, c, row)
		}
	}
	k := min(kn.K, len(kn.X))
	metric := pairwise.NewEuclidean()

	out := make([]float64, r)
	neighbours := make([]neighbour, len(train))
	for i, row := range rows(X) {
		for j := range train {
			neighbours[j] = neighbour{index: j}
			if c > 0 {
				neighbours[j].distance = metric.Distance(mat.NewDense(1, c, row), train[j])
			}
		}
		sort.SliceStable(neighbours, func(a, b int) bool {
			return neighbours[a].distance < neighbours[b].distance
		})
		out[i] = kn.vote(neighbours[:k])
	}
	return out, nil
}

// vote returns the majority label, the lowest label on a tie.
func (kn *KNeighbors) vote(neighbours []neighbour) float64 {
	counts := make(map[float64]int, len(kn.Classes))
	for _, n := range neighbours {
		counts[kn.Y[n.index]]++
	}
	best, bestCount := kn.Classes[0], -1
	for _, class := range kn.Classes {
		if counts[class] > bestCount {
			best, bestCount = class, counts[class]
		}
	}
	return best
}
