package pipeline

import (
	"github.com/pkg/errors"

	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/estimators"
)

// ModelSpec is one entry of the model catalogue: a public model name bound
// to an estimator kind and its hyperparameters.
type ModelSpec struct {
	Name   string            `yaml:"name" json:"name"`
	Kind   string            `yaml:"kind" json:"kind"`
	Params estimators.Params `yaml:"params,omitempty" json:"params,omitempty"`
}

// DefaultCatalogue names every estimator kind after itself with default
// hyperparameters.
func DefaultCatalogue() []ModelSpec {
	kinds := estimators.Kinds()
	specs := make([]ModelSpec, len(kinds))
	for i, k := range kinds {
		specs[i] = ModelSpec{Name: k, Kind: k}
	}
	return specs
}

// Builder turns model names into unfitted pipelines sharing one attribute
// map. Construction is deterministic; heads that randomize are given Seed.
type Builder struct {
	attributes *AttributeTypeMap
	catalogue  map[string]ModelSpec
	order      []string
	seed       int64
}

// NewBuilder validates the catalogue against the estimator kinds.
func NewBuilder(attrs *AttributeTypeMap, catalogue []ModelSpec, seed int64) (*Builder, error) {
	if attrs == nil {
		return nil, errors.Wrap(ErrInvalidAttribute, "nil attribute map")
	}
	b := &Builder{
		attributes: attrs,
		catalogue:  make(map[string]ModelSpec, len(catalogue)),
		seed:       seed,
	}
	for _, spec := range catalogue {
		if spec.Name == "" {
			return nil, errors.Wrap(ErrUnknownModel, "catalogue entry without a name")
		}
		if !estimators.IsKnown(spec.Kind) {
			return nil, errors.Wrapf(ErrUnknownModel, "model %q has unknown kind %q", spec.Name, spec.Kind)
		}
		if _, dup := b.catalogue[spec.Name]; dup {
			return nil, errors.Errorf("model %q listed twice in catalogue", spec.Name)
		}
		b.catalogue[spec.Name] = spec
		b.order = append(b.order, spec.Name)
	}
	return b, nil
}

// Attributes returns the attribute map every pipeline is built with.
func (b *Builder) Attributes() *AttributeTypeMap { return b.attributes }

// Models returns the catalogue names in declaration order.
func (b *Builder) Models() []string { return append([]string(nil), b.order...) }

// Build returns a registry holding one unfitted pipeline per name, in the
// order given. Any unknown name fails the whole call.
func (b *Builder) Build(names []string) (*Registry, error) {
	reg := NewRegistry()
	for _, name := range names {
		p, err := b.BuildOne(name)
		if err != nil {
			return nil, err
		}
		if err := reg.Add(p); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// BuildOne returns an unfitted pipeline for a single catalogue name.
func (b *Builder) BuildOne(name string) (*Pipeline, error) {
	spec, ok := b.catalogue[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownModel, name)
	}
	transformer, err := newColumnTransformer(b.attributes)
	if err != nil {
		return nil, err
	}
	head, err := estimators.New(spec.Kind, spec.Params, b.seed)
	if err != nil {
		return nil, errors.Wrap(ErrUnknownModel, err.Error())
	}
	return &Pipeline{
		Name:        name,
		Kind:        spec.Kind,
		Attributes:  b.attributes,
		Transformer: transformer,
		Estimator:   head,
	}, nil
}
