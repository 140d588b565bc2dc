// Package estimators provides the model heads a pipeline can end in. Every
// head consumes a dense feature matrix and float64 class labels.
package estimators

import (
	"encoding/gob"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNotFitted    = errors.New("estimator is not fitted")
	ErrEmptyData    = errors.New("empty training data")
	ErrShape        = errors.New("feature matrix shape mismatch")
	ErrUnknownKind  = errors.New("unknown estimator kind")
	ErrTooManyClass = errors.New("estimator supports binary targets only")
)

// Classifier is a model head.
type Classifier interface {
	Fit(X mat.Matrix, y []float64) error
	Predict(X mat.Matrix) ([]float64, error)
}

// Params carries hyperparameters keyed by name, as read from the training
// catalogue.
type Params map[string]any

// Int returns the named parameter or def when it is absent or not numeric.
func (p Params) Int(name string, def int) int {
	v, ok := p[name]
	if !ok {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

// Float returns the named parameter or def when it is absent or not numeric.
func (p Params) Float(name string, def float64) float64 {
	v, ok := p[name]
	if !ok {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return f
}

// Estimator kinds.
const (
	KindLogisticRegression = "logistic_regression"
	KindDecisionTree       = "decision_tree"
	KindRandomForest       = "random_forest"
	KindGradientBoosting   = "gradient_boosting"
	KindKNeighbors         = "knn"
	KindDummy              = "dummy"
)

type factory func(params Params, seed int64) Classifier

var catalogue = map[string]factory{
	KindLogisticRegression: func(p Params, _ int64) Classifier {
		return NewLogisticRegression(p.Float("learning_rate", 0.1), p.Int("max_iter", 1000), p.Float("l2", 0.01))
	},
	KindDecisionTree: func(p Params, _ int64) Classifier {
		return NewDecisionTree(p.Int("max_depth", 10), p.Int("min_samples_split", 2), p.Int("min_samples_leaf", 1))
	},
	KindRandomForest: func(p Params, seed int64) Classifier {
		return NewRandomForest(p.Int("n_estimators", 100), p.Int("max_depth", 10),
			p.Int("min_samples_split", 2), p.Int("min_samples_leaf", 1), seed)
	},
	KindGradientBoosting: func(p Params, _ int64) Classifier {
		return NewGradientBoosting(p.Int("n_estimators", 100), p.Float("learning_rate", 0.1), p.Int("max_depth", 3))
	},
	KindKNeighbors: func(p Params, _ int64) Classifier {
		return NewKNeighbors(p.Int("k", 5))
	},
	KindDummy: func(Params, int64) Classifier {
		return NewDummy()
	},
}

// New creates an unfitted estimator of the given kind. Randomized heads use
// seed.
func New(kind string, params Params, seed int64) (Classifier, error) {
	f, ok := catalogue[kind]
	if !ok {
		return nil, errors.Wrap(ErrUnknownKind, kind)
	}
	return f(params, seed), nil
}

// Kinds lists the supported estimator kinds in lexical order.
func Kinds() []string {
	kinds := make([]string, 0, len(catalogue))
	for k := range catalogue {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// IsKnown reports whether kind is in the catalogue.
func IsKnown(kind string) bool {
	_, ok := catalogue[kind]
	return ok
}

func init() {
	gob.Register(&LogisticRegression{})
	gob.Register(&DecisionTree{})
	gob.Register(&RandomForest{})
	gob.Register(&GradientBoosting{})
	gob.Register(&KNeighbors{})
	gob.Register(&Dummy{})
}

// rows copies a matrix into row slices.
func rows(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	out := make([][]float64, r)
	for i := range out {
		row := make([]float64, c)
		for j := range row {
			row[j] = X.At(i, j)
		}
		out[i] = row
	}
	return out
}

func checkTraining(X mat.Matrix, y []float64) (int, int, error) {
	r, c := X.Dims()
	if r == 0 {
		return 0, 0, ErrEmptyData
	}
	if r != len(y) {
		return 0, 0, errors.Wrapf(ErrShape, "X has %d rows but y has %d labels", r, len(y))
	}
	return r, c, nil
}

// classesOf returns the distinct labels in ascending order.
func classesOf(y []float64) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, v := range y {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// majority returns the most frequent label; ties go to the smallest label.
func majority(counts map[float64]int) (float64, int) {
	classes := make([]float64, 0, len(counts))
	for c := range counts {
		classes = append(classes, c)
	}
	sort.Float64s(classes)

	best, bestCount := 0.0, -1
	for _, c := range classes {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best, bestCount
}
