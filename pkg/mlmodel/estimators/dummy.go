package estimators

import (
	"gonum.org/v1/gonum/mat"
)

// Dummy always predicts the most frequent training label. It is the
// baseline every other head has to beat.
type Dummy struct {
	Class  float64
	Fitted bool
}

func NewDummy() *Dummy {
	return &Dummy{}
}

func (d *Dummy) Fit(X mat.Matrix, y []float64) error {
	if _, _, err := checkTraining(X, y); err != nil {
		return err
	}
	counts := make(map[float64]int)
	for _, v := range y {
		counts[v]++
	}
	d.Class, _ = majority(counts)
	d.Fitted = true
	return nil
}

func (d *Dummy) Predict(X mat.Matrix) ([]float64, error) {
	if !d.Fitted {
		return nil, ErrNotFitted
	}
	r, _ := X.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = d.Class
	}
	return out, nil
}
