package preprocess

import (
	"sort"
)

// UnknownOrdinal is the code OrdinalEncoder emits for a label it was not
// fitted on.
const UnknownOrdinal = -1.0

// OrdinalEncoder maps labels to their position in Categories. When
// Categories is empty at fit time the sorted observed labels are used.
type OrdinalEncoder struct {
	Categories []string
	Fitted     bool
}

func (e *OrdinalEncoder) Fit(values []string) error {
	if len(e.Categories) == 0 {
		e.Categories = distinctSorted(values)
	}
	e.Fitted = true
	return nil
}

func (e *OrdinalEncoder) Transform(values []string) ([]float64, error) {
	if !e.Fitted {
		return nil, ErrNotFitted
	}
	index := indexOf(e.Categories)
	out := make([]float64, len(values))
	for i, v := range values {
		if code, ok := index[v]; ok {
			out[i] = float64(code)
		} else {
			out[i] = UnknownOrdinal
		}
	}
	return out, nil
}

// OneHotEncoder expands a label column into one indicator column per
// category. Labels not seen at fit time produce an all-zero row.
type OneHotEncoder struct {
	Categories []string
	Fitted     bool
}

func (e *OneHotEncoder) Fit(values []string) error {
	if len(e.Categories) == 0 {
		e.Categories = distinctSorted(values)
	}
	e.Fitted = true
	return nil
}

// Transform returns one row per value with len(Categories) indicators.
func (e *OneHotEncoder) Transform(values []string) ([][]float64, error) {
	if !e.Fitted {
		return nil, ErrNotFitted
	}
	index := indexOf(e.Categories)
	out := make([][]float64, len(values))
	for i, v := range values {
		row := make([]float64, len(e.Categories))
		if j, ok := index[v]; ok {
			row[j] = 1
		}
		out[i] = row
	}
	return out, nil
}

// FeatureNames returns the output column names for the given input column.
func (e *OneHotEncoder) FeatureNames(column string) []string {
	names := make([]string, len(e.Categories))
	for j, c := range e.Categories {
		names[j] = column + "_" + c
	}
	return names
}

func distinctSorted(values []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

func indexOf(categories []string) map[string]int {
	index := make(map[string]int, len(categories))
	for i, c := range categories {
		index[c] = i
	}
	return index
}
