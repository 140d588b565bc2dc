package estimators

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LogisticRegression is an L2-regularised logistic model trained with full
// batch gradient descent. More than two classes are handled one-vs-rest.
type LogisticRegression struct {
	LearningRate float64
	MaxIter      int
	L2           float64
	Classes      []float64
	Weights      [][]float64
	Intercepts   []float64
	NumFeatures  int
}

func NewLogisticRegression(learningRate float64, maxIter int, l2 float64) *LogisticRegression {
	if learningRate <= 0 {
		learningRate = 0.1
	}
	if maxIter <= 0 {
		maxIter = 1000
	}
	if l2 < 0 {
		l2 = 0
	}
	return &LogisticRegression{LearningRate: learningRate, MaxIter: maxIter, L2: l2}
}

func (lr *LogisticRegression) Fit(X mat.Matrix, y []float64) error {
	n, c, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	lr.Classes = classesOf(y)
	lr.NumFeatures = c

	// A binary problem needs a single model for the larger label.
	targets := lr.Classes
	if len(targets) == 2 {
		targets = targets[1:]
	}

	dense := mat.DenseCopyOf(X)
	lr.Weights = make([][]float64, len(targets))
	lr.Intercepts = make([]float64, len(targets))
	for k, class := range targets {
		binary := make([]float64, n)
		for i, v := range y {
			if v == class {
				binary[i] = 1
			}
		}
		lr.Weights[k], lr.Intercepts[k] = lr.descend(dense, binary)
	}
	return nil
}

func (lr *LogisticRegression) descend(X *mat.Dense, y []float64) ([]float64, float64) {
	n, c := X.Dims()
	w := mat.NewVecDense(c, nil)
	b := 0.0

	z := mat.NewVecDense(n, nil)
	residual := mat.NewVecDense(n, nil)
	grad := mat.NewVecDense(c, nil)
	for iter := 0; iter < lr.MaxIter; iter++ {
		z.MulVec(X, w)
		for i := 0; i < n; i++ {
			residual.SetVec(i, sigmoid(z.AtVec(i)+b)-y[i])
		}
		grad.MulVec(X.T(), residual)
		grad.ScaleVec(1/float64(n), grad)
		grad.AddScaledVec(grad, lr.L2, w)

		w.AddScaledVec(w, -lr.LearningRate, grad)
		b -= lr.LearningRate * floats.Sum(residual.RawVector().Data) / float64(n)
	}
	return mat.Col(nil, 0, w), b
}

// PredictProba returns, per row, the probability of each fitted class in
// the order of Classes. For binary targets the pair sums to one.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) ([][]float64, error) {
	if lr.Weights == nil {
		return nil, ErrNotFitted
	}
	r, c := X.Dims()
	if c != lr.NumFeatures {
		return nil, errors.Wrapf(ErrShape, "expected %d features, got %d", lr.NumFeatures, c)
	}

	out := make([][]float64, r)
	for i, row := range rows(X) {
		scores := make([]float64, len(lr.Weights))
		for k, w := range lr.Weights {
			scores[k] = sigmoid(floats.Dot(w, row) + lr.Intercepts[k])
		}
		switch len(lr.Classes) {
		case 1:
			out[i] = []float64{1}
		case 2:
			out[i] = []float64{1 - scores[0], scores[0]}
		default:
			out[i] = scores
		}
	}
	return out, nil
}

func (lr *LogisticRegression) Predict(X mat.Matrix) ([]float64, error) {
	proba, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(proba))
	for i, p := range proba {
		out[i] = lr.Classes[floats.MaxIdx(p)]
	}
	return out, nil
}
