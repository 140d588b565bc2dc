// Package pipeline composes per-column preprocessing with a model head and
// builds one such pipeline per requested model.
package pipeline

import (
	"math"

	"github.com/pkg/errors"

	"github.com/titanic-mlops/titanic-survival/pkg/dataset"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/estimators"
)

// Pipeline is a transform-then-estimate unit fitted and invoked as one
// object.
type Pipeline struct {
	Name        string
	Kind        string
	Attributes  *AttributeTypeMap
	Transformer *ColumnTransformer
	Estimator   estimators.Classifier
	fitted      bool
}

// Fit learns the column transforms and the model head from X and y.
func (p *Pipeline) Fit(X *dataset.Frame, y []float64) error {
	if err := p.Attributes.CheckCoverage(X.Columns()); err != nil {
		return err
	}
	if err := p.Transformer.Fit(X); err != nil {
		return err
	}
	features, err := p.Transformer.Transform(X)
	if err != nil {
		return err
	}
	if err := p.Estimator.Fit(features, y); err != nil {
		return err
	}
	p.fitted = true
	return nil
}

// Predict returns one class label per row of X.
func (p *Pipeline) Predict(X *dataset.Frame) ([]int, error) {
	raw, err := p.predict(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(raw))
	for i, v := range raw {
		out[i] = int(math.Round(v))
	}
	return out, nil
}

// Score returns the accuracy of the pipeline on X against y.
func (p *Pipeline) Score(X *dataset.Frame, y []float64) (float64, error) {
	raw, err := p.predict(X)
	if err != nil {
		return 0, err
	}
	return estimators.Accuracy(raw, y)
}

// Fitted reports whether Fit completed.
func (p *Pipeline) Fitted() bool { return p.fitted }

// FeatureNames returns the names of the columns fed to the model head.
func (p *Pipeline) FeatureNames() []string {
	return p.Transformer.FeatureNames()
}

func (p *Pipeline) predict(X *dataset.Frame) ([]float64, error) {
	if !p.fitted {
		return nil, errors.Wrap(ErrNotFitted, p.Name)
	}
	if err := p.Attributes.CheckCoverage(X.Columns()); err != nil {
		return nil, err
	}
	features, err := p.Transformer.Transform(X)
	if err != nil {
		return nil, err
	}
	return p.Estimator.Predict(features)
}
