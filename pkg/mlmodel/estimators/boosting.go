package estimators

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// GradientBoosting fits shallow regression trees to the log-loss gradient
// of a binary target.
type GradientBoosting struct {
	Stages       []*TreeNode
	NumStages    int
	LearningRate float64
	MaxDepth     int
	Prior        float64
	Classes      []float64
	NumFeatures  int
}

func NewGradientBoosting(numStages int, learningRate float64, maxDepth int) *GradientBoosting {
	if numStages <= 0 {
		numStages = 100
	}
	if learningRate <= 0 {
		learningRate = 0.1
	}
	if maxDepth <= 0 {
		maxDepth = 3
	}
	return &GradientBoosting{NumStages: numStages, LearningRate: learningRate, MaxDepth: maxDepth}
}

func (gb *GradientBoosting) Fit(X mat.Matrix, y []float64) error {
	n, c, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	gb.Classes = classesOf(y)
	if len(gb.Classes) > 2 {
		return errors.Wrapf(ErrTooManyClass, "gradient boosting got %d classes", len(gb.Classes))
	}
	gb.NumFeatures = c
	gb.Stages = gb.Stages[:0]

	target := make([]float64, n)
	positives := 0.0
	for i, v := range y {
		if len(gb.Classes) == 2 && v == gb.Classes[1] {
			target[i] = 1
			positives++
		}
	}

	// Clamp so a single-class target still yields a finite prior.
	p := math.Min(math.Max(positives/float64(n), 1e-6), 1-1e-6)
	gb.Prior = math.Log(p / (1 - p))

	data := rows(X)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = gb.Prior
	}

	residuals := make([]float64, n)
	builder := regressionTree{maxDepth: gb.MaxDepth, minSamplesLeaf: 1, numFeatures: c}
	for s := 0; s < gb.NumStages; s++ {
		for i := range residuals {
			residuals[i] = target[i] - sigmoid(scores[i])
		}
		stage := builder.build(data, residuals, indices, 0)
		gb.Stages = append(gb.Stages, stage)
		for i, row := range data {
			scores[i] += gb.LearningRate * leaf(stage, row).Value
		}
	}
	return nil
}

// PredictProba returns the probability of the larger class label.
func (gb *GradientBoosting) PredictProba(X mat.Matrix) ([]float64, error) {
	if gb.Classes == nil {
		return nil, ErrNotFitted
	}
	r, c := X.Dims()
	if c != gb.NumFeatures {
		return nil, errors.Wrapf(ErrShape, "expected %d features, got %d", gb.NumFeatures, c)
	}
	out := make([]float64, r)
	for i, row := range rows(X) {
		score := gb.Prior
		for _, stage := range gb.Stages {
			score += gb.LearningRate * leaf(stage, row).Value
		}
		out[i] = sigmoid(score)
	}
	return out, nil
}

func (gb *GradientBoosting) Predict(X mat.Matrix) ([]float64, error) {
	proba, err := gb.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(proba))
	for i, p := range proba {
		if len(gb.Classes) == 2 && p >= 0.5 {
			out[i] = gb.Classes[1]
		} else {
			out[i] = gb.Classes[0]
		}
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
