package preprocess

import (
	"gonum.org/v1/gonum/stat"
)

// StandardScaler centres a column on zero and scales it to unit population
// variance. A constant column is only centred.
type StandardScaler struct {
	Mean   float64
	Std    float64
	Fitted bool
}

func (s *StandardScaler) Fit(values []float64) error {
	if len(values) == 0 {
		return ErrNoObservations
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if std == 0 {
		std = 1
	}
	s.Mean, s.Std, s.Fitted = mean, std, true
	return nil
}

func (s *StandardScaler) Transform(values []float64) ([]float64, error) {
	if !s.Fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - s.Mean) / s.Std
	}
	return out, nil
}
