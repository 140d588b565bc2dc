// Package preprocess holds the single-column transforms the pipeline chains
// per attribute type: imputation, scaling and encoding.
package preprocess

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Imputation strategies.
const (
	StrategyMean         = "mean"
	StrategyMedian       = "median"
	StrategyMostFrequent = "most_frequent"
	StrategyConstant     = "constant"
)

var (
	ErrNotFitted       = errors.New("transform is not fitted")
	ErrNoObservations  = errors.New("column has no observed values")
	ErrUnknownStrategy = errors.New("unknown imputation strategy")
)

// NumericImputer replaces NaN entries with a statistic learned at fit time.
type NumericImputer struct {
	Strategy  string
	FillValue float64
	Value     float64
	Fitted    bool
}

func NewNumericImputer(strategy string) (*NumericImputer, error) {
	switch strategy {
	case "":
		strategy = StrategyMean
	case StrategyMean, StrategyMedian, StrategyMostFrequent, StrategyConstant:
	default:
		return nil, errors.Wrap(ErrUnknownStrategy, strategy)
	}
	return &NumericImputer{Strategy: strategy}, nil
}

func (im *NumericImputer) Fit(values []float64) error {
	if im.Strategy == StrategyConstant {
		im.Value = im.FillValue
		im.Fitted = true
		return nil
	}

	observed := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		return ErrNoObservations
	}

	switch im.Strategy {
	case StrategyMean:
		im.Value = stat.Mean(observed, nil)
	case StrategyMedian:
		sort.Float64s(observed)
		n := len(observed)
		if n%2 == 1 {
			im.Value = observed[n/2]
		} else {
			im.Value = (observed[n/2-1] + observed[n/2]) / 2
		}
	case StrategyMostFrequent:
		sort.Float64s(observed)
		mode, _ := stat.Mode(observed, nil)
		im.Value = mode
	default:
		return errors.Wrap(ErrUnknownStrategy, im.Strategy)
	}
	im.Fitted = true
	return nil
}

// Transform returns a copy of values with NaN entries filled.
func (im *NumericImputer) Transform(values []float64) ([]float64, error) {
	if !im.Fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = im.Value
		} else {
			out[i] = v
		}
	}
	return out, nil
}

// CategoryImputer fills missing category labels. Entries flagged in the
// missing mask are replaced.
type CategoryImputer struct {
	Strategy  string
	FillValue string
	Value     string
	Fitted    bool
}

func NewCategoryImputer(strategy string) (*CategoryImputer, error) {
	switch strategy {
	case "":
		strategy = StrategyMostFrequent
	case StrategyMostFrequent, StrategyConstant:
	default:
		return nil, errors.Wrapf(ErrUnknownStrategy, "%s (categorical columns support %s and %s)",
			strategy, StrategyMostFrequent, StrategyConstant)
	}
	return &CategoryImputer{Strategy: strategy, FillValue: "missing"}, nil
}

func (im *CategoryImputer) Fit(values []string, missing []bool) error {
	if im.Strategy == StrategyConstant {
		im.Value = im.FillValue
		im.Fitted = true
		return nil
	}

	counts := make(map[string]int)
	for i, v := range values {
		if !missing[i] {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return ErrNoObservations
	}

	// Ties resolve to the lexically smallest label.
	best, bestCount := "", -1
	for _, label := range sortedKeys(counts) {
		if counts[label] > bestCount {
			best, bestCount = label, counts[label]
		}
	}
	im.Value = best
	im.Fitted = true
	return nil
}

func (im *CategoryImputer) Transform(values []string, missing []bool) ([]string, error) {
	if !im.Fitted {
		return nil, ErrNotFitted
	}
	out := make([]string, len(values))
	for i, v := range values {
		if missing[i] {
			out[i] = im.Value
		} else {
			out[i] = v
		}
	}
	return out, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
