// Package features prunes uninformative columns before pipelines are built.
package features

import (
	"fmt"
	"log/slog"

	"github.com/titanic-mlops/titanic-survival/pkg/dataset"
)

// FeatureSelector drops columns whose value is identical across every row.
// Only the listed Columns are examined; when Columns is empty every column
// of the frame is. Columns that are not examined pass through untouched.
type FeatureSelector struct {
	Columns []string
	Verbose bool
	Logger  *slog.Logger

	dropped map[string]bool
	fitted  bool
}

// NewFeatureSelector creates a selector for the given columns.
func NewFeatureSelector(columns []string, verbose bool) *FeatureSelector {
	return &FeatureSelector{Columns: columns, Verbose: verbose}
}

// Fit records which of the examined columns are constant. y is accepted for
// interface symmetry with estimators and is not used.
func (s *FeatureSelector) Fit(X *dataset.Frame, _ []float64) error {
	if X == nil {
		return fmt.Errorf("feature selector: nil frame")
	}

	candidates := s.Columns
	if len(candidates) == 0 {
		candidates = X.Columns()
	}

	s.dropped = make(map[string]bool)
	for _, name := range candidates {
		values, ok := X.Column(name)
		if !ok {
			continue
		}
		if !hasVariance(values) {
			s.dropped[name] = true
		}
	}
	s.fitted = true

	if s.Verbose {
		s.logger().Info("feature selection fitted",
			"examined", len(candidates),
			"dropped", s.Dropped(X))
	}
	return nil
}

// Transform removes the columns marked constant during Fit, keeping the
// original order of the remaining columns.
func (s *FeatureSelector) Transform(X *dataset.Frame) (*dataset.Frame, error) {
	if !s.fitted {
		return nil, fmt.Errorf("feature selector: transform called before fit")
	}
	if X == nil {
		return nil, fmt.Errorf("feature selector: nil frame")
	}

	var drop []string
	for _, name := range X.Columns() {
		if s.dropped[name] {
			drop = append(drop, name)
		}
	}
	return X.Drop(drop...), nil
}

// FitTransform fits on X and returns the pruned frame.
func (s *FeatureSelector) FitTransform(X *dataset.Frame, y []float64) (*dataset.Frame, error) {
	if err := s.Fit(X, y); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// Dropped lists, in frame order, the columns of X that Transform removes.
func (s *FeatureSelector) Dropped(X *dataset.Frame) []string {
	var out []string
	for _, name := range X.Columns() {
		if s.dropped[name] {
			out = append(out, name)
		}
	}
	return out
}

func (s *FeatureSelector) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// hasVariance reports whether values holds more than one distinct value.
// A missing cell counts as a value of its own.
func hasVariance(values []any) bool {
	if len(values) < 2 {
		return false
	}
	first := key(values[0])
	for _, v := range values[1:] {
		if key(v) != first {
			return true
		}
	}
	return false
}

type cellKey struct {
	missing bool
	num     float64
	text    string
	isText  bool
}

func key(v any) cellKey {
	if dataset.IsMissing(v) {
		return cellKey{missing: true}
	}
	switch t := v.(type) {
	case float64:
		return cellKey{num: t}
	case string:
		return cellKey{text: t, isText: true}
	default:
		return cellKey{text: fmt.Sprint(t), isText: true}
	}
}
